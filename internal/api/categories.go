package api

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"storefront_api/internal/domain"     // Importing domain models
	"storefront_api/internal/filter"     // Category name normalization
	"storefront_api/internal/middleware" // Request-scoped logging
	"storefront_api/internal/utils"      // Cache keys

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

// CategoryRequest is the body of category create and update
type CategoryRequest struct {
	Name  string `json:"name" binding:"required"`
	Image string `json:"image"`
}

// ListCategoriesHandler returns every category, cached
func ListCategoriesHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		categories, err := loadCategories(c.Request.Context(), db, rdb)
		if err != nil {
			middleware.LoggerFrom(c).WithField("error", err.Error()).Error("Failed to fetch categories")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch categories"})
			return
		}
		c.JSON(http.StatusOK, categories)
	}
}

// GetCategoryHandler returns one category
func GetCategoryHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var category domain.Category
		if err := db.WithContext(c.Request.Context()).First(&category, id).Error; err != nil {
			respondCategoryLookup(c, err)
			return
		}
		c.JSON(http.StatusOK, category)
	}
}

func respondCategoryLookup(c *gin.Context, err error) {
	if isNotFound(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
		return
	}
	middleware.LoggerFrom(c).WithField("error", err.Error()).Error("Failed to fetch category")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch category"})
}

// categoryNameTaken compares normalized names so "Bazin Riche" and
// "bazin-riche" cannot coexist
func categoryNameTaken(db *gorm.DB, name string, exceptID uint) (bool, error) {
	var categories []domain.Category
	if err := db.Find(&categories).Error; err != nil {
		return false, err
	}
	want := filter.NormalizeCategoryName(name)
	for _, c := range categories {
		if c.ID != exceptID && filter.NormalizeCategoryName(c.Name) == want {
			return true, nil
		}
	}
	return false, nil
}

// saveCategory validates the request, stores category and drops the cache
func saveCategory(c *gin.Context, db *gorm.DB, rdb *redis.Client, category *domain.Category, status int) {
	var req CategoryRequest
	if !bindJSON(c, &req) {
		return
	}
	name := strings.Join(strings.Fields(req.Name), " ")
	if name == "" {
		validationError(c, "name", "name is required")
		return
	}
	tx := db.WithContext(c.Request.Context())
	taken, err := categoryNameTaken(tx, name, category.ID)
	if err != nil {
		middleware.LoggerFrom(c).WithField("error", err.Error()).Error("Category lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save category"})
		return
	}
	if taken {
		c.JSON(http.StatusConflict, gin.H{"error": "Category already exists", "field": "name"})
		return
	}
	category.Name = name
	category.Image = strings.TrimSpace(req.Image)
	if err := tx.Save(category).Error; err != nil {
		middleware.LoggerFrom(c).WithFields(logrus.Fields{"name": name, "error": err.Error()}).Error("Failed to save category")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save category"})
		return
	}
	invalidate(c, rdb, []string{utils.CategoriesCacheKey})
	c.JSON(status, category)
}

// CreateCategoryHandler adds a category
func CreateCategoryHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		saveCategory(c, db, rdb, &domain.Category{}, http.StatusCreated)
	}
}

// UpdateCategoryHandler renames a category or changes its image
func UpdateCategoryHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var category domain.Category
		if err := db.WithContext(c.Request.Context()).First(&category, id).Error; err != nil {
			respondCategoryLookup(c, err)
			return
		}
		saveCategory(c, db, rdb, &category, http.StatusOK)
	}
}

// DeleteCategoryHandler removes an empty category
func DeleteCategoryHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		tx := db.WithContext(c.Request.Context())
		var category domain.Category
		if err := tx.First(&category, id).Error; err != nil {
			respondCategoryLookup(c, err)
			return
		}
		var products int64
		if err := tx.Model(&domain.Product{}).Where("category_id = ?", id).Count(&products).Error; err != nil {
			middleware.LoggerFrom(c).WithField("error", err.Error()).Error("Failed to count category products")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete category"})
			return
		}
		if products > 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot delete category because it still has products"})
			return
		}
		if err := tx.Delete(&category).Error; err != nil {
			middleware.LoggerFrom(c).WithField("error", err.Error()).Error("Failed to delete category")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete category"})
			return
		}
		invalidate(c, rdb, []string{utils.CategoriesCacheKey})
		middleware.LoggerFrom(c).WithField("category_id", id).Info("Category deleted")
		c.Status(http.StatusNoContent)
	}
}
