package domain

import "time"

// Roles a user can hold
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User Model
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`                  // Primary key
	Email     string    `gorm:"size:191;unique;not null" json:"email"` // Unique, stored lowercase
	Password  string    `gorm:"not null" json:"-"`                     // Hashed password
	Role      string    `gorm:"size:32;default:user" json:"role"`      // Role: user or admin
	CreatedAt time.Time `json:"createdAt"`                             // Creation time
}
