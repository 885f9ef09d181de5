package domain

import "time"

// Order statuses
const (
	OrderPending    = "pending"
	OrderProcessing = "processing"
	OrderShipped    = "shipped"
	OrderDelivered  = "delivered"
	OrderCancelled  = "cancelled"
)

// OrderStatuses lists every accepted order status
var OrderStatuses = []string{OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled}

// CustomerOrder Model, a guest checkout
type CustomerOrder struct {
	ID          uint                   `gorm:"primaryKey" json:"id"`
	Name        string                 `gorm:"not null" json:"name"`
	Lastname    string                 `gorm:"not null" json:"lastname"`
	Phone       string                 `gorm:"not null" json:"phone"`
	Email       string                 `gorm:"not null" json:"email"`
	Company     string                 `json:"company"`
	Address     string                 `gorm:"not null" json:"address"`
	Apartment   string                 `json:"apartment"`
	PostalCode  string                 `gorm:"not null" json:"postalCode"`
	City        string                 `gorm:"not null" json:"city"`
	Country     string                 `gorm:"not null" json:"country"`
	OrderNotice string                 `gorm:"type:text" json:"orderNotice"`
	Status      string                 `gorm:"size:32;not null;default:pending" json:"status"`
	Total       int                    `gorm:"not null;default:0" json:"total"`
	Products    []CustomerOrderProduct `json:"products,omitempty"`
	CreatedAt   time.Time              `json:"createdAt"`
}

// CustomerOrderProduct Model, one order line
type CustomerOrderProduct struct {
	ID              uint     `gorm:"primaryKey" json:"id"`
	CustomerOrderID uint     `gorm:"index;not null" json:"customerOrderId"`
	ProductID       uint     `gorm:"index;not null" json:"productId"`
	Quantity        int      `gorm:"not null;default:1" json:"quantity"`
	Product         *Product `gorm:"constraint:OnDelete:RESTRICT;" json:"product,omitempty"`
}
