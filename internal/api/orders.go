package api

import (
	"errors"   // Sentinel errors inside transactions
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"storefront_api/internal/domain"     // Importing domain models
	"storefront_api/internal/metrics"    // Prometheus counters
	"storefront_api/internal/middleware" // Request-scoped logging
	"storefront_api/internal/utils"      // Validators and cache keys

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

const (
	maxPlaceLength  = 100
	maxNoticeLength = 500
)

var errUnknownProduct = errors.New("unknown product")

// OrderRequest is the checkout form
type OrderRequest struct {
	Name        string             `json:"name" binding:"required"`
	Lastname    string             `json:"lastname" binding:"required"`
	Phone       string             `json:"phone" binding:"required"`
	Email       string             `json:"email" binding:"required,email"`
	Company     string             `json:"company"`
	Address     string             `json:"address" binding:"required"`
	Apartment   string             `json:"apartment"`
	PostalCode  string             `json:"postalCode" binding:"required"`
	City        string             `json:"city" binding:"required"`
	Country     string             `json:"country" binding:"required"`
	OrderNotice string             `json:"orderNotice"`
	Status      string             `json:"status"`
	Total       *int               `json:"total" binding:"required"`
	CardNumber  string             `json:"cardNumber" binding:"omitempty,credit_card"` // Checked, never stored
	Products    []OrderLineRequest `json:"products" binding:"omitempty,dive"`
}

// OrderLineRequest is one product of a checkout
type OrderLineRequest struct {
	ProductID uint `json:"productId" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,min=1"`
}

// validateOrder trims the request in place and returns the first invalid
// field with its message
func validateOrder(req *OrderRequest) (field, message string) {
	for _, s := range []*string{&req.Name, &req.Lastname, &req.Phone, &req.Email, &req.Company,
		&req.Address, &req.Apartment, &req.PostalCode, &req.City, &req.Country, &req.OrderNotice, &req.Status} {
		*s = strings.TrimSpace(*s)
	}
	req.Email = strings.ToLower(req.Email)

	switch {
	case !utils.IsValidName(req.Name):
		return "name", "name must contain letters only"
	case !utils.IsValidName(req.Lastname):
		return "lastname", "lastname must contain letters only"
	case !utils.IsValidPhone(req.Phone):
		return "phone", "phone must contain 7 to 15 digits"
	case req.Address == "":
		return "address", "address is required"
	case !utils.IsValidPostalCode(req.PostalCode):
		return "postalCode", "postal code is invalid"
	case req.City == "" || len(req.City) > maxPlaceLength:
		return "city", "city is required and must be at most 100 characters"
	case req.Country == "" || len(req.Country) > maxPlaceLength:
		return "country", "country is required and must be at most 100 characters"
	case len(req.OrderNotice) > maxNoticeLength:
		return "orderNotice", "order notice must be at most 500 characters"
	case *req.Total < 0:
		return "total", "total must not be negative"
	case req.Status != "" && !utils.Contains(domain.OrderStatuses, req.Status):
		return "status", "status is invalid"
	}
	return "", ""
}

func (req *OrderRequest) apply(order *domain.CustomerOrder) {
	order.Name = req.Name
	order.Lastname = req.Lastname
	order.Phone = req.Phone
	order.Email = req.Email
	order.Company = req.Company
	order.Address = req.Address
	order.Apartment = req.Apartment
	order.PostalCode = req.PostalCode
	order.City = req.City
	order.Country = req.Country
	order.OrderNotice = req.OrderNotice
	order.Total = *req.Total
}

// CreateOrderHandler places a guest order. Lines sent along are stored in
// the same transaction as the order.
func CreateOrderHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req OrderRequest
		if !bindJSON(c, &req) {
			return
		}
		if field, msg := validateOrder(&req); field != "" {
			validationError(c, field, msg)
			return
		}
		order := domain.CustomerOrder{Status: domain.OrderPending}
		req.apply(&order)

		err := db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
			if len(req.Products) > 0 {
				ids := make([]uint, 0, len(req.Products))
				for _, line := range req.Products {
					ids = append(ids, line.ProductID)
				}
				ids = distinct(ids)
				var known int64
				if err := tx.Model(&domain.Product{}).Where("id IN ?", ids).Count(&known).Error; err != nil {
					return err
				}
				if int(known) != len(ids) {
					return errUnknownProduct
				}
			}
			if err := tx.Create(&order).Error; err != nil {
				return err
			}
			for _, line := range req.Products {
				l := domain.CustomerOrderProduct{CustomerOrderID: order.ID, ProductID: line.ProductID, Quantity: line.Quantity}
				if err := tx.Create(&l).Error; err != nil {
					return err
				}
				order.Products = append(order.Products, l)
			}
			return nil
		})
		if errors.Is(err, errUnknownProduct) {
			validationError(c, "products", "order references a product that does not exist")
			return
		}
		if err != nil {
			middleware.LoggerFrom(c).WithField("error", err.Error()).Error("Failed to create order")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create order"})
			return
		}
		metrics.OrdersCreated.Inc()
		invalidate(c, rdb, nil, utils.OrdersCachePrefix)
		middleware.LoggerFrom(c).WithFields(logrus.Fields{"order_id": order.ID, "lines": len(order.Products)}).Info("Order created")
		c.JSON(http.StatusCreated, order)
	}
}

func distinct(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// ListOrdersHandler pages through orders, newest first
func ListOrdersHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		listPage[domain.CustomerOrder](c, db, rdb, utils.OrdersCachePrefix, "orders")
	}
}

// GetOrderHandler returns an order with its lines and their products
func GetOrderHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var order domain.CustomerOrder
		if err := db.WithContext(c.Request.Context()).Preload("Products.Product").First(&order, id).Error; err != nil {
			respondOrderLookup(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func respondOrderLookup(c *gin.Context, err error) {
	if isNotFound(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	middleware.LoggerFrom(c).WithField("error", err.Error()).Error("Failed to fetch order")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch order"})
}

// UpdateOrderHandler edits an order's contact data, total and status
func UpdateOrderHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var req OrderRequest
		if !bindJSON(c, &req) {
			return
		}
		if field, msg := validateOrder(&req); field != "" {
			validationError(c, field, msg)
			return
		}
		var order domain.CustomerOrder
		if err := db.WithContext(c.Request.Context()).First(&order, id).Error; err != nil {
			respondOrderLookup(c, err)
			return
		}
		req.apply(&order)
		if req.Status != "" {
			order.Status = req.Status
		}
		if err := db.WithContext(c.Request.Context()).Omit("Products").Save(&order).Error; err != nil {
			middleware.LoggerFrom(c).WithFields(logrus.Fields{"order_id": id, "error": err.Error()}).Error("Failed to update order")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update order"})
			return
		}
		invalidate(c, rdb, nil, utils.OrdersCachePrefix)
		c.JSON(http.StatusOK, order)
	}
}

// DeleteOrderHandler removes an order together with its lines
func DeleteOrderHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var order domain.CustomerOrder
		if err := db.WithContext(c.Request.Context()).First(&order, id).Error; err != nil {
			respondOrderLookup(c, err)
			return
		}
		err := db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("customer_order_id = ?", id).Delete(&domain.CustomerOrderProduct{}).Error; err != nil {
				return err
			}
			return tx.Delete(&order).Error
		})
		if err != nil {
			middleware.LoggerFrom(c).WithFields(logrus.Fields{"order_id": id, "error": err.Error()}).Error("Failed to delete order")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete order"})
			return
		}
		invalidate(c, rdb, nil, utils.OrdersCachePrefix)
		c.Status(http.StatusNoContent)
	}
}
