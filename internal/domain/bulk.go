package domain

import "time"

// Batch and item statuses
const (
	BatchCompleted = "COMPLETED"
	BatchPartial   = "PARTIAL"
	BatchFailed    = "FAILED"

	ItemSuccess = "SUCCESS"
	ItemError   = "ERROR"
)

// BulkUploadBatch Model, one CSV import
type BulkUploadBatch struct {
	ID                uint             `gorm:"primaryKey" json:"id"`
	FileName          string           `json:"fileName"`
	Status            string           `gorm:"size:32;not null" json:"status"`
	TotalRecords      int              `json:"totalRecords"`
	SuccessfulRecords int              `json:"successfulRecords"`
	FailedRecords     int              `json:"failedRecords"`
	Items             []BulkUploadItem `gorm:"foreignKey:BatchID" json:"items,omitempty"`
	CreatedAt         time.Time        `json:"createdAt"`
}

// BulkUploadItem Model, the outcome of one CSV row
type BulkUploadItem struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	BatchID   uint   `gorm:"index;not null" json:"batchId"`
	RowNumber int    `gorm:"column:row_no" json:"rowNumber"`
	Title     string `json:"title"`
	Slug      string `json:"slug"`
	ProductID *uint  `json:"productId"`
	Status    string `gorm:"size:32;not null" json:"status"`
	Error     string `gorm:"type:text" json:"error,omitempty"`
}
