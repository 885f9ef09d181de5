package domain

import "time"

// Merchant statuses
const (
	MerchantActive   = "ACTIVE"
	MerchantInactive = "INACTIVE"
)

// Merchant Model
type Merchant struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	Address     string    `json:"address"`
	Description string    `gorm:"type:text" json:"description"`
	Status      string    `gorm:"size:32;not null;default:ACTIVE" json:"status"`
	Products    []Product `json:"products,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
