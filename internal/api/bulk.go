package api

import (
	"errors"        // Error inspection
	"net/http"      // HTTP status codes
	"path/filepath" // File extension checks
	"sort"          // Ordering batch items by row
	"strconv"       // Row numbers in messages
	"strings"       // String manipulation

	"storefront_api/internal/bulk"       // CSV parsing
	"storefront_api/internal/domain"     // Importing domain models
	"storefront_api/internal/metrics"    // Prometheus counters
	"storefront_api/internal/middleware" // Request-scoped logging
	"storefront_api/internal/utils"      // Slugs and cache keys

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

// BulkUploadResponse summarizes an import
type BulkUploadResponse struct {
	BatchID           uint            `json:"batchId"`
	Status            string          `json:"status"`
	TotalRecords      int             `json:"totalRecords"`
	SuccessfulRecords int             `json:"successfulRecords"`
	FailedRecords     int             `json:"failedRecords"`
	Errors            []bulk.RowError `json:"errors"`
}

// batchStatus derives the batch outcome from its counters
func batchStatus(successful, failed int) string {
	switch {
	case failed == 0:
		return domain.BatchCompleted
	case successful == 0:
		return domain.BatchFailed
	default:
		return domain.BatchPartial
	}
}

// importRows creates a product per valid row. Each row stands alone: a
// failing row never rolls back the others and never blocks a later row.
func importRows(c *gin.Context, db *gorm.DB, rows []bulk.Row, categoryIDs map[uint]bool) []domain.BulkUploadItem {
	tx := db.WithContext(c.Request.Context())
	created := make(map[string]int, len(rows))           // Slug to the row that created it
	items := make([]domain.BulkUploadItem, 0, len(rows)) // One outcome per row

	for _, row := range rows {
		item := domain.BulkUploadItem{RowNumber: row.Line, Title: row.Title, Slug: utils.Slugify(row.Slug), Status: domain.ItemError}
		switch {
		case item.Slug == "":
			item.Error = "slug must contain letters or digits"
		case !categoryIDs[row.CategoryID]:
			item.Error = "category does not exist"
		case created[item.Slug] > 0:
			item.Error = "slug duplicates row " + strconv.Itoa(created[item.Slug]) + " of this file"
		default:
			createRow(c, tx, row, &item)
		}
		if item.Status == domain.ItemSuccess {
			created[item.Slug] = row.Line // Only rows that made a product claim their slug
		}
		items = append(items, item)
	}
	return items
}

// createRow inserts the product of one row and records the outcome on item
func createRow(c *gin.Context, tx *gorm.DB, row bulk.Row, item *domain.BulkUploadItem) {
	log := middleware.LoggerFrom(c).WithField("row", row.Line)
	var count int64 // Products already using the slug
	if err := tx.Model(&domain.Product{}).Where("slug = ?", item.Slug).Count(&count).Error; err != nil {
		log.WithField("error", err.Error()).Warn("Bulk row slug lookup failed")
		item.Error = "failed to create product"
		return
	}
	if count > 0 {
		item.Error = "slug already exists"
		return
	}
	product := domain.Product{
		Title:        row.Title,
		Slug:         item.Slug,
		Price:        row.Price,
		Manufacturer: row.Manufacturer,
		InStock:      row.InStock,
		MainImage:    row.MainImage,
		Description:  row.Description,
		CategoryID:   row.CategoryID,
	}
	if err := tx.Create(&product).Error; err != nil {
		log.WithField("error", err.Error()).Warn("Bulk row insert failed")
		item.Error = "failed to create product"
		return
	}
	item.Status = domain.ItemSuccess
	item.ProductID = &product.ID
}

// UploadBulkHandler imports products from a CSV file
func UploadBulkHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := middleware.LoggerFrom(c)
		header, err := c.FormFile("file")
		if err != nil {
			validationError(c, "file", "file is required")
			return
		}
		if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
			validationError(c, "file", "only .csv files are allowed")
			return
		}
		if header.Size > maxUploadSize {
			validationError(c, "file", "file must be at most 5 MB")
			return
		}
		file, err := header.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read upload"})
			return
		}
		defer file.Close()

		rows, rowErrors, err := bulk.Parse(file)
		if err != nil {
			validationError(c, "file", err.Error())
			return
		}

		categories, err := loadCategories(c.Request.Context(), db, rdb)
		if err != nil {
			log.WithField("error", err.Error()).Error("Failed to load categories for import")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process file"})
			return
		}
		known := make(map[uint]bool, len(categories))
		for _, cat := range categories {
			known[cat.ID] = true
		}

		items := importRows(c, db, rows, known)
		for _, re := range rowErrors {
			items = append(items, domain.BulkUploadItem{
				RowNumber: re.Line, Title: re.Title, Slug: re.Slug, Status: domain.ItemError, Error: re.Message,
			})
		}
		sort.Slice(items, func(i, j int) bool { return items[i].RowNumber < items[j].RowNumber })

		batch := domain.BulkUploadBatch{FileName: filepath.Base(header.Filename), Items: items, TotalRecords: len(items)}
		resp := BulkUploadResponse{Errors: []bulk.RowError{}}
		for _, item := range items {
			if item.Status == domain.ItemSuccess {
				batch.SuccessfulRecords++
				continue
			}
			batch.FailedRecords++
			resp.Errors = append(resp.Errors, bulk.RowError{Line: item.RowNumber, Title: item.Title, Slug: item.Slug, Message: item.Error})
		}
		batch.Status = batchStatus(batch.SuccessfulRecords, batch.FailedRecords)
		metrics.BulkRows.WithLabelValues("success").Add(float64(batch.SuccessfulRecords))
		metrics.BulkRows.WithLabelValues("error").Add(float64(batch.FailedRecords))

		if err := db.WithContext(c.Request.Context()).Create(&batch).Error; err != nil {
			log.WithField("error", err.Error()).Error("Failed to record bulk upload batch")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record import"})
			return
		}
		invalidate(c, rdb, nil, utils.BatchesCachePrefix)
		log.WithFields(logrus.Fields{
			"batch_id":   batch.ID,
			"file":       batch.FileName,
			"successful": batch.SuccessfulRecords,
			"failed":     batch.FailedRecords,
		}).Info("Bulk upload processed")

		resp.BatchID = batch.ID
		resp.Status = batch.Status
		resp.TotalRecords = batch.TotalRecords
		resp.SuccessfulRecords = batch.SuccessfulRecords
		resp.FailedRecords = batch.FailedRecords
		c.JSON(http.StatusCreated, resp)
	}
}

// ListBatchesHandler pages through imports, newest first
func ListBatchesHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		listPage[domain.BulkUploadBatch](c, db, rdb, utils.BatchesCachePrefix, "batches")
	}
}

// GetBatchHandler returns an import with its per-row outcome
func GetBatchHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var batch domain.BulkUploadBatch
		err := db.WithContext(c.Request.Context()).
			Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("row_no asc") }).
			First(&batch, id).Error
		if err != nil {
			respondBatchLookup(c, err)
			return
		}
		c.JSON(http.StatusOK, batch)
	}
}

func respondBatchLookup(c *gin.Context, err error) {
	if isNotFound(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Batch not found"})
		return
	}
	middleware.LoggerFrom(c).WithField("error", err.Error()).Error("Failed to fetch batch")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch batch"})
}

// DeleteBatchHandler forgets an import. With deleteProducts=true it also
// removes the products it created, except those already ordered.
func DeleteBatchHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var batch domain.BulkUploadBatch
		if err := db.WithContext(c.Request.Context()).Preload("Items").First(&batch, id).Error; err != nil {
			respondBatchLookup(c, err)
			return
		}
		deleteProducts := c.Query("deleteProducts") == "true"

		var deleted, skipped int
		err := db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
			if deleteProducts {
				for _, item := range batch.Items {
					if item.ProductID == nil {
						continue
					}
					var lines int64
					if err := tx.Model(&domain.CustomerOrderProduct{}).Where("product_id = ?", *item.ProductID).Count(&lines).Error; err != nil {
						return err
					}
					if lines > 0 {
						skipped++
						continue
					}
					if err := tx.Where("product_id = ?", *item.ProductID).Delete(&domain.Image{}).Error; err != nil {
						return err
					}
					res := tx.Delete(&domain.Product{}, *item.ProductID)
					if res.Error != nil {
						return res.Error
					}
					deleted += int(res.RowsAffected)
				}
			}
			if err := tx.Where("batch_id = ?", batch.ID).Delete(&domain.BulkUploadItem{}).Error; err != nil {
				return err
			}
			res := tx.Delete(&batch)
			if res.Error == nil && res.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
			return res.Error
		})
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondBatchLookup(c, err)
			return
		}
		if err != nil {
			middleware.LoggerFrom(c).WithFields(logrus.Fields{"batch_id": id, "error": err.Error()}).Error("Failed to delete batch")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete batch"})
			return
		}
		invalidate(c, rdb, nil, utils.BatchesCachePrefix)
		c.JSON(http.StatusOK, gin.H{
			"message":         "Batch deleted",
			"deletedProducts": deleted,
			"skippedProducts": skipped,
		})
	}
}
