package api

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"storefront_api/internal/domain"
	"storefront_api/internal/middleware"
	"storefront_api/internal/storage"
	"storefront_api/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Content types accepted for product pictures
var imageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ImageRequest attaches a picture URL to a product
type ImageRequest struct {
	ProductID uint   `json:"productId"`
	Image     string `json:"image" binding:"required"`
}

// ListProductImagesHandler returns the extra pictures of a product
func ListProductImagesHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		productID, ok := paramID(c, "id")
		if !ok {
			return
		}
		images := []domain.Image{}
		if err := db.WithContext(c.Request.Context()).Where("product_id = ?", productID).Order("id asc").Find(&images).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch images"})
			return
		}
		c.JSON(http.StatusOK, images)
	}
}

// CreateImageHandler attaches a picture to a product
func CreateImageHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ImageRequest
		if !bindJSON(c, &req) {
			return
		}
		if req.ProductID == 0 {
			validationError(c, "productId", "productId is required")
			return
		}
		var count int64
		if err := db.WithContext(c.Request.Context()).Model(&domain.Product{}).Where("id = ?", req.ProductID).Count(&count).Error; err != nil || count == 0 {
			validationError(c, "productId", "product does not exist")
			return
		}
		image := domain.Image{ProductID: req.ProductID, Image: strings.TrimSpace(req.Image)}
		if err := db.WithContext(c.Request.Context()).Create(&image).Error; err != nil {
			middleware.LoggerFrom(c).WithField("error", err.Error()).Error("Failed to create image")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create image"})
			return
		}
		c.JSON(http.StatusCreated, image)
	}
}

// UpdateImageHandler replaces the URL of one picture
func UpdateImageHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var req ImageRequest
		if !bindJSON(c, &req) {
			return
		}
		var image domain.Image
		if err := db.WithContext(c.Request.Context()).First(&image, id).Error; err != nil {
			if isNotFound(err) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch image"})
			return
		}
		image.Image = strings.TrimSpace(req.Image)
		if err := db.WithContext(c.Request.Context()).Save(&image).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update image"})
			return
		}
		c.JSON(http.StatusOK, image)
	}
}

// DeleteProductImagesHandler removes every picture of a product
func DeleteProductImagesHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		productID, ok := paramID(c, "id")
		if !ok {
			return
		}
		if err := db.WithContext(c.Request.Context()).Where("product_id = ?", productID).Delete(&domain.Image{}).Error; err != nil {
			middleware.LoggerFrom(c).WithFields(logrus.Fields{"product_id": productID, "error": err.Error()}).Error("Failed to delete images")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete images"})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// UploadMainImageHandler stores a product's main picture and returns its URL
func UploadMainImageHandler(store storage.ImageStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		header, err := c.FormFile("uploadedFile")
		if err != nil {
			validationError(c, "uploadedFile", "uploadedFile is required")
			return
		}
		if header.Size > maxUploadSize {
			validationError(c, "uploadedFile", "file must be at most 5 MB")
			return
		}
		file, err := header.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read upload"})
			return
		}
		defer file.Close()

		sniff := make([]byte, 512)
		n, _ := file.Read(sniff)
		contentType := http.DetectContentType(sniff[:n])
		ext, ok := imageTypes[contentType]
		if !ok {
			validationError(c, "uploadedFile", "only JPEG, PNG, GIF and WebP images are allowed")
			return
		}
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read upload"})
			return
		}

		base := utils.Slugify(strings.TrimSuffix(header.Filename, filepath.Ext(header.Filename)))
		if base == "" {
			base = "image"
		}
		key := fmt.Sprintf("products/%d-%s%s", time.Now().UnixNano(), base, ext)
		url, err := store.Upload(c.Request.Context(), key, file, contentType)
		if err != nil {
			middleware.LoggerFrom(c).WithFields(logrus.Fields{"key": key, "error": err.Error()}).Error("Image upload failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload image"})
			return
		}
		middleware.LoggerFrom(c).WithFields(logrus.Fields{"key": key, "size": header.Size}).Info("Image uploaded")
		c.JSON(http.StatusOK, gin.H{"message": "File uploaded successfully", "secure_url": url})
	}
}
