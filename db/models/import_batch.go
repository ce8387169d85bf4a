package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ImportBatchStatus is the state machine for one CSV import run.
// PENDING -> PROCESSING -> COMPLETED | FAILED. FAILED may also be reached
// directly from PENDING when a job dies before parsing starts, and a FAILED
// batch re-enters PROCESSING when the queue retries its job.
type ImportBatchStatus string

const (
	ImportStatusPending    ImportBatchStatus = "PENDING"
	ImportStatusProcessing ImportBatchStatus = "PROCESSING"
	ImportStatusCompleted  ImportBatchStatus = "COMPLETED"
	ImportStatusFailed     ImportBatchStatus = "FAILED"
)

// Import error categories stored on ImportErrorDetail.
const (
	ValidationErrorType = "VALIDATION"
	DuplicateErrorType  = "DUPLICATE"
	SystemErrorType     = "SYSTEM"
)

// Error severities stored on ImportErrorDetail.
const (
	SeverityWarning = "WARNING"
	SeverityError   = "ERROR"
)

// ImportBatch tracks one CSV import run end-to-end. Created on upload,
// mutated only by the import worker and batch repository, never deleted.
type ImportBatch struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;" json:"id"`
	ImportDate time.Time `gorm:"not null" json:"import_date"`
	Filename   string    `gorm:"not null" json:"filename"`
	FileSize   int64     `json:"file_size"`
	Checksum   string    `gorm:"index" json:"checksum"`

	TotalRecords      int `gorm:"default:0" json:"total_records"`
	SuccessfulRecords int `gorm:"default:0" json:"successful_records"`
	FailedRecords     int `gorm:"default:0" json:"failed_records"`
	EmptyRowsSkipped  int `gorm:"default:0" json:"empty_rows_skipped"`

	Status    ImportBatchStatus `gorm:"type:varchar(20);default:'PENDING';index" json:"status"`
	CreatedBy string            `gorm:"not null" json:"created_by"`

	ProcessingStartedAt     *time.Time `json:"processing_started_at"`
	EstimatedCompletionTime *time.Time `json:"estimated_completion_time"`
	CompletedAt             *time.Time `json:"completed_at"`

	// Opaque JSON payloads; shape is owned by the worker.
	ErrorLogs          datatypes.JSON `json:"error_logs"`
	ValidationWarnings datatypes.JSON `json:"validation_warnings"`

	ErrorDetails []ImportErrorDetail `gorm:"foreignKey:BatchID" json:"error_details,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ImportErrorDetail is one row-level problem recorded against a batch.
// Written once during batch completion or failure, immutable thereafter.
type ImportErrorDetail struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key;" json:"id"`
	BatchID      uuid.UUID `gorm:"type:uuid;not null;index" json:"batch_id"`
	RowNumber    int       `json:"row_number"`
	ErrorType    string    `gorm:"type:varchar(30)" json:"error_type"`
	ErrorMessage string    `gorm:"type:text" json:"error_message"`
	Severity     string    `gorm:"type:varchar(10);default:'ERROR'" json:"severity"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (b *ImportBatch) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

func (d *ImportErrorDetail) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
