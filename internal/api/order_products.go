package api

import (
	"net/http"

	"storefront_api/internal/domain"
	"storefront_api/internal/middleware"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// OrderProductRequest adds a single line to an existing order
type OrderProductRequest struct {
	CustomerOrderID uint `json:"customerOrderId" binding:"required"`
	ProductID       uint `json:"productId" binding:"required"`
	Quantity        int  `json:"quantity" binding:"required,min=1"`
}

// CreateOrderProductHandler stores one order line
func CreateOrderProductHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req OrderProductRequest
		if !bindJSON(c, &req) {
			return
		}
		tx := db.WithContext(c.Request.Context())
		var count int64
		if err := tx.Model(&domain.CustomerOrder{}).Where("id = ?", req.CustomerOrderID).Count(&count).Error; err != nil || count == 0 {
			validationError(c, "customerOrderId", "order does not exist")
			return
		}
		if err := tx.Model(&domain.Product{}).Where("id = ?", req.ProductID).Count(&count).Error; err != nil || count == 0 {
			validationError(c, "productId", "product does not exist")
			return
		}
		line := domain.CustomerOrderProduct{
			CustomerOrderID: req.CustomerOrderID,
			ProductID:       req.ProductID,
			Quantity:        req.Quantity,
		}
		if err := tx.Create(&line).Error; err != nil {
			middleware.LoggerFrom(c).WithField("error", err.Error()).Error("Failed to create order line")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create order line"})
			return
		}
		c.JSON(http.StatusCreated, line)
	}
}

// ListOrderProductsHandler returns the lines of an order with their products
func ListOrderProductsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		lines := []domain.CustomerOrderProduct{}
		if err := db.WithContext(c.Request.Context()).Preload("Product").Where("customer_order_id = ?", id).Order("id asc").Find(&lines).Error; err != nil {
			middleware.LoggerFrom(c).WithField("error", err.Error()).Error("Failed to fetch order lines")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch order lines"})
			return
		}
		c.JSON(http.StatusOK, lines)
	}
}
