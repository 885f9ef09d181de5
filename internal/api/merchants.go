package api

import (
	"net/http"
	"strings"

	"storefront_api/internal/domain"
	"storefront_api/internal/middleware"
	"storefront_api/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MerchantRequest is the body of merchant create and update
type MerchantRequest struct {
	Name        string `json:"name" binding:"required"`
	Email       string `json:"email" binding:"omitempty,email"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

var merchantStatuses = []string{domain.MerchantActive, domain.MerchantInactive}

func (req *MerchantRequest) validate() (field, message string) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Phone = strings.TrimSpace(req.Phone)
	req.Status = strings.ToUpper(strings.TrimSpace(req.Status))
	if req.Status == "" {
		req.Status = domain.MerchantActive
	}
	switch {
	case req.Name == "":
		return "name", "name is required"
	case req.Phone != "" && !utils.IsValidPhone(req.Phone):
		return "phone", "phone must contain 7 to 15 digits"
	case !utils.Contains(merchantStatuses, req.Status):
		return "status", "status must be ACTIVE or INACTIVE"
	}
	return "", ""
}

func respondMerchantLookup(c *gin.Context, err error) {
	if isNotFound(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Merchant not found"})
		return
	}
	middleware.LoggerFrom(c).WithField("error", err.Error()).Error("Failed to fetch merchant")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch merchant"})
}

// ListMerchantsHandler returns every merchant
func ListMerchantsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		merchants := []domain.Merchant{}
		if err := db.WithContext(c.Request.Context()).Order("name asc").Find(&merchants).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch merchants"})
			return
		}
		c.JSON(http.StatusOK, merchants)
	}
}

// GetMerchantHandler returns a merchant with its products
func GetMerchantHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var merchant domain.Merchant
		if err := db.WithContext(c.Request.Context()).Preload("Products").First(&merchant, id).Error; err != nil {
			respondMerchantLookup(c, err)
			return
		}
		c.JSON(http.StatusOK, merchant)
	}
}

// CreateMerchantHandler adds a merchant
func CreateMerchantHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req MerchantRequest
		if !bindJSON(c, &req) {
			return
		}
		if field, msg := req.validate(); field != "" {
			validationError(c, field, msg)
			return
		}
		merchant := domain.Merchant{
			Name:        req.Name,
			Email:       req.Email,
			Phone:       req.Phone,
			Address:     req.Address,
			Description: req.Description,
			Status:      req.Status,
		}
		if err := db.WithContext(c.Request.Context()).Create(&merchant).Error; err != nil {
			middleware.LoggerFrom(c).WithField("error", err.Error()).Error("Failed to create merchant")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create merchant"})
			return
		}
		c.JSON(http.StatusCreated, merchant)
	}
}

// UpdateMerchantHandler replaces a merchant's fields
func UpdateMerchantHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var req MerchantRequest
		if !bindJSON(c, &req) {
			return
		}
		if field, msg := req.validate(); field != "" {
			validationError(c, field, msg)
			return
		}
		var merchant domain.Merchant
		if err := db.WithContext(c.Request.Context()).First(&merchant, id).Error; err != nil {
			respondMerchantLookup(c, err)
			return
		}
		merchant.Name = req.Name
		merchant.Email = req.Email
		merchant.Phone = req.Phone
		merchant.Address = req.Address
		merchant.Description = req.Description
		merchant.Status = req.Status
		if err := db.WithContext(c.Request.Context()).Save(&merchant).Error; err != nil {
			middleware.LoggerFrom(c).WithFields(logrus.Fields{"merchant_id": id, "error": err.Error()}).Error("Failed to update merchant")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update merchant"})
			return
		}
		c.JSON(http.StatusOK, merchant)
	}
}

// DeleteMerchantHandler removes a merchant that sells nothing
func DeleteMerchantHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		tx := db.WithContext(c.Request.Context())
		var merchant domain.Merchant
		if err := tx.First(&merchant, id).Error; err != nil {
			respondMerchantLookup(c, err)
			return
		}
		var products int64
		if err := tx.Model(&domain.Product{}).Where("merchant_id = ?", id).Count(&products).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete merchant"})
			return
		}
		if products > 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "Cannot delete merchant because it still has products"})
			return
		}
		if err := tx.Delete(&merchant).Error; err != nil {
			middleware.LoggerFrom(c).WithFields(logrus.Fields{"merchant_id": id, "error": err.Error()}).Error("Failed to delete merchant")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete merchant"})
			return
		}
		c.Status(http.StatusNoContent)
	}
}
