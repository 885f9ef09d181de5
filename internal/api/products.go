package api

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"storefront_api/internal/domain"     // Importing domain models
	"storefront_api/internal/filter"     // Listing query builder
	"storefront_api/internal/metrics"    // Prometheus counters
	"storefront_api/internal/middleware" // Request-scoped logging
	"storefront_api/internal/utils"      // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

const maxSearchResults = 50

// likeEscaper makes LIKE wildcards in a search term match literally; '!' is
// the ESCAPE character on every supported driver
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// ProductRequest is the body of product create and update
type ProductRequest struct {
	Title        string `json:"title" binding:"required"`
	Slug         string `json:"slug"`
	Price        *int   `json:"price" binding:"required"`
	Rating       int    `json:"rating"`
	Description  string `json:"description"`
	Manufacturer string `json:"manufacturer"`
	MainImage    string `json:"mainImage"`
	InStock      int    `json:"inStock"`
	CategoryID   uint   `json:"categoryId" binding:"required"`
	MerchantID   *uint  `json:"merchantId"`
}

// ProductListing is a listed product with its category name joined in
type ProductListing struct {
	domain.Product
	Category domain.CategoryName `json:"category"`
}

func toListings(products []domain.Product, categories []domain.Category) []ProductListing {
	names := make(map[uint]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	out := make([]ProductListing, 0, len(products))
	for _, p := range products {
		out = append(out, ProductListing{Product: p, Category: domain.CategoryName{Name: names[p.CategoryID]}})
	}
	return out
}

// ListProductsHandler serves the storefront listing. Any failure degrades to
// an empty page instead of an error.
func ListProductsHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := middleware.LoggerFrom(c)
		ctx := c.Request.Context()

		categories, err := loadCategories(ctx, db, rdb)
		if err != nil {
			log.WithField("error", err.Error()).Error("Failed to load categories for listing")
			metrics.ListingFailures.Inc()
			c.JSON(http.StatusOK, []ProductListing{})
			return
		}

		var products []domain.Product
		if c.Query("mode") == "admin" {
			// Admin grid: every product of a known category, unpaginated
			ids := filter.ResolveCategoryIDs(categories, "")
			if len(ids) > 0 {
				err = db.WithContext(ctx).Where("category_id IN ?", ids).Order("id asc").Find(&products).Error
			}
		} else {
			q := filter.Parse(c.Request.URL.Query())
			ids := filter.ResolveCategoryIDs(categories, q.Category)
			if len(ids) > 0 {
				err = q.Apply(db.WithContext(ctx).Model(&domain.Product{}), ids).Find(&products).Error
			}
		}
		if err != nil {
			log.WithFields(logrus.Fields{"query": c.Request.URL.RawQuery, "error": err.Error()}).Error("Product listing failed")
			metrics.ListingFailures.Inc()
			c.JSON(http.StatusOK, []ProductListing{})
			return
		}
		c.JSON(http.StatusOK, toListings(products, categories))
	}
}

// GetProductHandler returns one product with its category and images
func GetProductHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var product domain.Product
		if err := db.WithContext(c.Request.Context()).Preload("Category").Preload("Images").First(&product, id).Error; err != nil {
			respondProductLookup(c, err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

// GetProductBySlugHandler returns the product page data for a slug
func GetProductBySlugHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var product domain.Product
		err := db.WithContext(c.Request.Context()).Preload("Category").Preload("Images").
			Where("slug = ?", c.Param("slug")).First(&product).Error
		if err != nil {
			respondProductLookup(c, err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

func respondProductLookup(c *gin.Context, err error) {
	if isNotFound(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}
	middleware.LoggerFrom(c).WithField("error", err.Error()).Error("Failed to fetch product")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch product"})
}

// SearchProductsHandler matches the query against titles and descriptions
func SearchProductsHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		term := strings.ToLower(strings.TrimSpace(c.Query("query")))
		if term == "" {
			c.JSON(http.StatusOK, []ProductListing{})
			return
		}
		ctx := c.Request.Context()
		categories, err := loadCategories(ctx, db, rdb)
		ids := filter.ResolveCategoryIDs(categories, "")
		if err != nil || len(ids) == 0 {
			c.JSON(http.StatusOK, []ProductListing{})
			return
		}
		var products []domain.Product
		like := "%" + likeEscaper.Replace(term) + "%" // Substring match on the escaped term
		err = db.WithContext(ctx).
			Where("category_id IN ?", ids).
			Where("LOWER(title) LIKE ? ESCAPE '!' OR LOWER(description) LIKE ? ESCAPE '!'", like, like).
			Order("title asc").Limit(maxSearchResults).Find(&products).Error
		if err != nil {
			middleware.LoggerFrom(c).WithFields(logrus.Fields{"query": term, "error": err.Error()}).Error("Product search failed")
			c.JSON(http.StatusOK, []ProductListing{})
			return
		}
		c.JSON(http.StatusOK, toListings(products, categories))
	}
}

// validateProduct checks a product request against the database and fills
// product on success. It answers the request itself on failure.
func validateProduct(c *gin.Context, db *gorm.DB, req *ProductRequest, product *domain.Product) bool {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		validationError(c, "title", "title is required")
		return false
	}
	slug := utils.Slugify(req.Slug)
	if slug == "" {
		slug = utils.Slugify(req.Title)
	}
	if slug == "" {
		validationError(c, "slug", "slug is required")
		return false
	}
	if *req.Price < 0 {
		validationError(c, "price", "price must not be negative")
		return false
	}
	if req.Rating < 0 || req.Rating > 5 {
		validationError(c, "rating", "rating must be between 0 and 5")
		return false
	}
	if req.InStock < 0 {
		validationError(c, "inStock", "inStock must not be negative")
		return false
	}

	tx := db.WithContext(c.Request.Context())
	var count int64
	if err := tx.Model(&domain.Category{}).Where("id = ?", req.CategoryID).Count(&count).Error; err != nil || count == 0 {
		validationError(c, "categoryId", "category does not exist")
		return false
	}
	if req.MerchantID != nil {
		if err := tx.Model(&domain.Merchant{}).Where("id = ?", *req.MerchantID).Count(&count).Error; err != nil || count == 0 {
			validationError(c, "merchantId", "merchant does not exist")
			return false
		}
	}
	conflict := tx.Model(&domain.Product{}).Where("slug = ?", slug)
	if product.ID != 0 {
		conflict = conflict.Where("id <> ?", product.ID)
	}
	if err := conflict.Count(&count).Error; err != nil {
		middleware.LoggerFrom(c).WithField("error", err.Error()).Error("Slug lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save product"})
		return false
	}
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Slug already exists", "field": "slug"})
		return false
	}

	product.Title = req.Title
	product.Slug = slug
	product.Price = *req.Price
	product.Rating = req.Rating
	product.Description = req.Description
	product.Manufacturer = strings.TrimSpace(req.Manufacturer)
	product.MainImage = req.MainImage
	product.InStock = req.InStock
	product.CategoryID = req.CategoryID
	product.MerchantID = req.MerchantID
	return true
}

// CreateProductHandler adds a product to the catalog
func CreateProductHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ProductRequest
		if !bindJSON(c, &req) {
			return
		}
		var product domain.Product
		if !validateProduct(c, db, &req, &product) {
			return
		}
		if err := db.WithContext(c.Request.Context()).Create(&product).Error; err != nil {
			middleware.LoggerFrom(c).WithFields(logrus.Fields{"slug": product.Slug, "error": err.Error()}).Error("Failed to create product")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create product"})
			return
		}
		middleware.LoggerFrom(c).WithFields(logrus.Fields{"product_id": product.ID, "slug": product.Slug}).Info("Product created")
		c.JSON(http.StatusCreated, product)
	}
}

// UpdateProductHandler replaces a product's fields
func UpdateProductHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var req ProductRequest
		if !bindJSON(c, &req) {
			return
		}
		var product domain.Product
		if err := db.WithContext(c.Request.Context()).First(&product, id).Error; err != nil {
			respondProductLookup(c, err)
			return
		}
		if !validateProduct(c, db, &req, &product) {
			return
		}
		if err := db.WithContext(c.Request.Context()).Save(&product).Error; err != nil {
			middleware.LoggerFrom(c).WithFields(logrus.Fields{"product_id": id, "error": err.Error()}).Error("Failed to update product")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update product"})
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

// DeleteProductHandler removes a product and its images. Products that are
// part of an order stay.
func DeleteProductHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		log := middleware.LoggerFrom(c).WithField("product_id", id)
		var product domain.Product
		if err := db.WithContext(c.Request.Context()).First(&product, id).Error; err != nil {
			respondProductLookup(c, err)
			return
		}
		var lines int64
		if err := db.WithContext(c.Request.Context()).Model(&domain.CustomerOrderProduct{}).Where("product_id = ?", id).Count(&lines).Error; err != nil {
			log.WithField("error", err.Error()).Error("Failed to count order lines")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete product"})
			return
		}
		if lines > 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot delete product because it is part of existing orders"})
			return
		}
		err := db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("product_id = ?", id).Delete(&domain.Image{}).Error; err != nil {
				return err
			}
			return tx.Delete(&product).Error
		})
		if err != nil {
			log.WithField("error", err.Error()).Error("Failed to delete product")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete product"})
			return
		}
		log.Info("Product deleted")
		c.Status(http.StatusNoContent)
	}
}
