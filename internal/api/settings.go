package api

import (
	"net/http"

	"storefront_api/internal/domain"
	"storefront_api/internal/middleware"
	"storefront_api/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// SettingRequest is the body of a setting upsert
type SettingRequest struct {
	Value string `json:"value"`
}

// ListSettingsHandler returns every storefront setting, cached
func ListSettingsHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		settings := []domain.Setting{}
		if found, err := utils.GetCache(ctx, rdb, utils.SettingsCacheKey, &settings); err == nil && found {
			c.JSON(http.StatusOK, settings)
			return
		}
		if err := db.WithContext(ctx).Order("setting_key asc").Find(&settings).Error; err != nil {
			middleware.LoggerFrom(c).WithField("error", err.Error()).Error("Failed to fetch settings")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch settings"})
			return
		}
		_ = utils.SetCache(ctx, rdb, utils.SettingsCacheKey, settings, catalogCacheTTL)
		c.JSON(http.StatusOK, settings)
	}
}

// GetSettingHandler returns one setting by key
func GetSettingHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var setting domain.Setting
		if err := db.WithContext(c.Request.Context()).Where("setting_key = ?", c.Param("key")).First(&setting).Error; err != nil {
			if isNotFound(err) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Setting not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch setting"})
			return
		}
		c.JSON(http.StatusOK, setting)
	}
}

// PutSettingHandler creates or replaces a setting
func PutSettingHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Param("key")
		if key == "" || len(key) > 191 {
			validationError(c, "key", "key is invalid")
			return
		}
		var req SettingRequest
		if !bindJSON(c, &req) {
			return
		}
		setting := domain.Setting{Key: key, Value: req.Value}
		if err := db.WithContext(c.Request.Context()).Save(&setting).Error; err != nil {
			middleware.LoggerFrom(c).WithField("error", err.Error()).Error("Failed to save setting")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save setting"})
			return
		}
		invalidate(c, rdb, []string{utils.SettingsCacheKey})
		c.JSON(http.StatusOK, setting)
	}
}
