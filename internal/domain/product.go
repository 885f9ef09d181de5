package domain

import "time"

// Category Model
type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:191;unique;not null" json:"name"`
	Image     string    `json:"image"`
	CreatedAt time.Time `json:"createdAt"`
}

// CategoryName is the minimal category join attached to listed products
type CategoryName struct {
	Name string `json:"name"`
}

// Product Model
type Product struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Title        string    `gorm:"not null" json:"title"`
	Slug         string    `gorm:"size:191;uniqueIndex;not null" json:"slug"`
	Price        int       `gorm:"not null;default:0" json:"price"`
	Rating       int       `gorm:"not null;default:0" json:"rating"`
	Description  string    `gorm:"type:text" json:"description"`
	Manufacturer string    `json:"manufacturer"`
	MainImage    string    `json:"mainImage"`
	InStock      int       `gorm:"not null;default:0" json:"inStock"` // Units in stock
	CategoryID   uint      `gorm:"index;not null" json:"categoryId"`
	MerchantID   *uint     `gorm:"index" json:"merchantId"`
	Category     *Category `gorm:"constraint:OnDelete:RESTRICT;" json:"category,omitempty"`
	Images       []Image   `json:"images,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Image Model, an extra picture of a product
type Image struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	ProductID uint   `gorm:"index;not null" json:"productId"`
	Image     string `gorm:"not null" json:"image"`
}
