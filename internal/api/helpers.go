package api

import (
	"context"  // Context for Redis operations
	"errors"   // Error inspection
	"fmt"      // Message formatting
	"net/http" // HTTP status codes
	"reflect"  // Struct tags for validation messages
	"strconv"  // String conversion
	"strings"  // String manipulation
	"sync"     // One-time validator setup
	"time"     // Cache TTLs

	"storefront_api/internal/domain"     // Importing domain models
	"storefront_api/internal/middleware" // Request-scoped logging
	"storefront_api/internal/utils"      // Cache helpers

	"github.com/gin-gonic/gin"               // Gin web framework
	"github.com/gin-gonic/gin/binding"       // Request binding
	"github.com/go-playground/validator/v10" // Binding validation errors
	"github.com/redis/go-redis/v9"           // Redis client
	"github.com/sirupsen/logrus"             // Logging library
	"gorm.io/gorm"                           // GORM ORM library
)

const (
	catalogCacheTTL = 60 * time.Second // Categories and settings
	adminCacheTTL   = 30 * time.Second // Admin list pages
	maxUploadSize   = 5 << 20          // 5 MB per uploaded file
)

var registerTagNames sync.Once

// useJSONFieldNames makes validation errors report JSON field names
func useJSONFieldNames() {
	registerTagNames.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			v.RegisterTagNameFunc(func(fld reflect.StructField) string {
				name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
				if name == "-" {
					return ""
				}
				return name
			})
		}
	})
}

// validationError answers 400 with the offending field
func validationError(c *gin.Context, field, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message, "field": field})
}

// bindJSON binds the body and answers 400 itself when binding fails
func bindJSON(c *gin.Context, dest any) bool {
	err := c.ShouldBindJSON(dest)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		validationError(c, fe.Field(), validationMessage(fe))
		return false
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
	return false
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "email":
		return fe.Field() + " must be a valid email address"
	case "credit_card":
		return fe.Field() + " is not a valid card number"
	default:
		return fe.Field() + " is invalid"
	}
}

// paramID reads a positive numeric path parameter, answering 400 otherwise
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// pagination reads page and page_size the same way for every admin list
func pagination(c *gin.Context) (page, pageSize int) {
	page = 1      // Default page number
	pageSize = 20 // Default page size
	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}
	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}
	return page, pageSize
}

// pageEnvelope is the cached shape of admin list responses
type pageEnvelope[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// listPage answers a paginated admin list under name, caching each page
// beneath prefix until a write drops the prefix
func listPage[T any](c *gin.Context, db *gorm.DB, rdb *redis.Client, prefix, name string) {
	ctx := c.Request.Context()
	page, pageSize := pagination(c)
	cacheKey := fmt.Sprintf("%spage=%d:size=%d", prefix, page, pageSize)

	var env pageEnvelope[T]
	found, err := utils.GetCache(ctx, rdb, cacheKey, &env)
	if err == nil && found {
		c.JSON(http.StatusOK, env.response(name, true))
		return
	}

	var total int64
	if err := db.WithContext(ctx).Model(new(T)).Count(&total).Error; err != nil {
		middleware.LoggerFrom(c).WithFields(logrus.Fields{"list": name, "error": err.Error()}).Error("Failed to count rows")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch " + name})
		return
	}
	items := make([]T, 0, pageSize)
	offset := (page - 1) * pageSize // Calculate offset for pagination
	if err := db.WithContext(ctx).Order("id desc").Offset(offset).Limit(pageSize).Find(&items).Error; err != nil {
		middleware.LoggerFrom(c).WithFields(logrus.Fields{"list": name, "error": err.Error()}).Error("Failed to fetch rows")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch " + name})
		return
	}
	env = pageEnvelope[T]{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: (int(total) + pageSize - 1) / pageSize,
	}
	_ = utils.SetCache(ctx, rdb, cacheKey, env, adminCacheTTL)
	c.JSON(http.StatusOK, env.response(name, false))
}

func (e pageEnvelope[T]) response(name string, cached bool) gin.H {
	return gin.H{
		name:          e.Items,      // Rows of the page
		"page":        e.Page,       // Current page
		"page_size":   e.PageSize,   // Page size
		"total":       e.Total,      // Total number of rows
		"total_pages": e.TotalPages, // Total pages
		"cached":      cached,       // Whether the page came from Redis
	}
}

// isNotFound reports whether err is GORM's missing-row error
func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// loadCategories returns every category, from Redis when cached
func loadCategories(ctx context.Context, db *gorm.DB, rdb *redis.Client) ([]domain.Category, error) {
	var categories []domain.Category
	found, err := utils.GetCache(ctx, rdb, utils.CategoriesCacheKey, &categories)
	if err == nil && found {
		return categories, nil
	}
	if err := db.WithContext(ctx).Order("id asc").Find(&categories).Error; err != nil {
		return nil, err
	}
	_ = utils.SetCache(ctx, rdb, utils.CategoriesCacheKey, categories, catalogCacheTTL)
	return categories, nil
}

// invalidate drops cached keys and prefixes after a write, logging failures
func invalidate(c *gin.Context, rdb *redis.Client, keys []string, prefixes ...string) {
	ctx := c.Request.Context()
	if len(keys) > 0 {
		if err := utils.DeleteCache(ctx, rdb, keys...); err != nil {
			middleware.LoggerFrom(c).WithFields(logrus.Fields{"keys": keys, "error": err.Error()}).Warn("Cache invalidation failed")
		}
	}
	for _, prefix := range prefixes {
		if err := utils.DeleteCachePrefix(ctx, rdb, prefix); err != nil {
			middleware.LoggerFrom(c).WithFields(logrus.Fields{"prefix": prefix, "error": err.Error()}).Warn("Cache invalidation failed")
		}
	}
}
