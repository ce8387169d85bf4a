package repositories

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"case-management-backend/db/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MarkProcessingOptions optionally overrides the processing-start stamp and
// supplies an estimated completion time.
type MarkProcessingOptions struct {
	StartedAt               *time.Time
	EstimatedCompletionTime *time.Time
}

// BatchTotals is the final accounting written when a batch completes.
type BatchTotals struct {
	TotalRecords       int
	SuccessfulRecords  int
	FailedRecords      int
	EmptyRowsSkipped   int
	ErrorLogs          datatypes.JSON
	ValidationWarnings datatypes.JSON
	CompletedAt        *time.Time
}

// FailurePayload is persisted as the batch's error log when a run fails.
type FailurePayload struct {
	Error     string    `json:"error"`
	JobID     string    `json:"jobId"`
	Timestamp time.Time `json:"timestamp"`
}

type ImportBatchRepository interface {
	CreateBatch(batch *models.ImportBatch) (*models.ImportBatch, error)
	GetBatchByID(id uuid.UUID) (*models.ImportBatch, error)
	FindBatchByChecksum(checksum string) (*models.ImportBatch, error)
	UpdateChecksum(id uuid.UUID, checksum string) error
	MarkProcessing(id uuid.UUID, opts MarkProcessingOptions) error
	CompleteBatch(id uuid.UUID, totals BatchTotals, details []models.ImportErrorDetail) error
	FailBatch(id uuid.UUID, payload FailurePayload) error
	GetFilteredBatches(pageSize int, offset int, filters map[string]string) ([]models.ImportBatch, int64, error)
}

type importBatchRepository struct {
	db *gorm.DB
}

func NewImportBatchRepository(db *gorm.DB) ImportBatchRepository {
	return &importBatchRepository{
		db: db,
	}
}

// CreateBatch persists a new ImportBatch with zeroed counters and PENDING status.
func (r *importBatchRepository) CreateBatch(batch *models.ImportBatch) (*models.ImportBatch, error) {
	if batch.ID == uuid.Nil {
		batch.ID = uuid.New()
	}
	batch.Status = models.ImportStatusPending
	batch.TotalRecords = 0
	batch.SuccessfulRecords = 0
	batch.FailedRecords = 0
	if batch.ImportDate.IsZero() {
		batch.ImportDate = time.Now()
	}
	err := r.db.Create(batch).Error
	return batch, err
}

func (r *importBatchRepository) GetBatchByID(id uuid.UUID) (*models.ImportBatch, error) {
	var batch models.ImportBatch
	err := r.db.First(&batch, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("import batch '%s' not found", id)
		}
		return nil, err
	}
	return &batch, nil
}

// FindBatchByChecksum returns the most recent non-failed batch with the
// given content checksum, or nil when the file has not been seen before.
func (r *importBatchRepository) FindBatchByChecksum(checksum string) (*models.ImportBatch, error) {
	var batch models.ImportBatch
	err := r.db.
		Where("checksum = ? AND status <> ?", checksum, models.ImportStatusFailed).
		Order("created_at DESC").
		First(&batch).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &batch, nil
}

func (r *importBatchRepository) UpdateChecksum(id uuid.UUID, checksum string) error {
	return r.db.Model(&models.ImportBatch{}).
		Where("id = ?", id).
		Update("checksum", checksum).Error
}

// MarkProcessing transitions a batch into PROCESSING. PENDING batches start
// normally; FAILED batches may restart, so a queue retry after a transient
// failure gets a fresh attempt instead of dying on the status guard. A batch
// already PROCESSING (or COMPLETED) yields zero affected rows and a conflict
// error, which keeps a second concurrent job from double-processing. A
// restart clears the previous attempt's error log and completion stamp.
func (r *importBatchRepository) MarkProcessing(id uuid.UUID, opts MarkProcessingOptions) error {
	startedAt := time.Now()
	if opts.StartedAt != nil {
		startedAt = *opts.StartedAt
	}

	updates := map[string]interface{}{
		"status":                "PROCESSING",
		"processing_started_at": startedAt,
		"error_logs":            nil,
		"completed_at":          nil,
	}
	if opts.EstimatedCompletionTime != nil {
		updates["estimated_completion_time"] = *opts.EstimatedCompletionTime
	}

	result := r.db.Model(&models.ImportBatch{}).
		Where("id = ? AND status IN ?", id, []models.ImportBatchStatus{
			models.ImportStatusPending,
			models.ImportStatusFailed,
		}).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("import batch '%s' is not awaiting processing", id)
	}
	return nil
}

// CompleteBatch transitions PROCESSING -> COMPLETED, writes the final
// totals and bulk-inserts all collected error details in the same call.
func (r *importBatchRepository) CompleteBatch(id uuid.UUID, totals BatchTotals, details []models.ImportErrorDetail) error {
	completedAt := time.Now()
	if totals.CompletedAt != nil {
		completedAt = *totals.CompletedAt
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":             "COMPLETED",
			"total_records":      totals.TotalRecords,
			"successful_records": totals.SuccessfulRecords,
			"failed_records":     totals.FailedRecords,
			"empty_rows_skipped": totals.EmptyRowsSkipped,
			"completed_at":       completedAt,
		}
		if totals.ErrorLogs != nil {
			updates["error_logs"] = totals.ErrorLogs
		}
		if totals.ValidationWarnings != nil {
			updates["validation_warnings"] = totals.ValidationWarnings
		}

		result := tx.Model(&models.ImportBatch{}).
			Where("id = ? AND status = ?", id, models.ImportStatusProcessing).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("import batch '%s' is not processing", id)
		}

		if len(details) > 0 {
			for i := range details {
				details[i].BatchID = id
			}
			if err := tx.CreateInBatches(details, DefaultChunkSize).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// FailBatch transitions to FAILED from PENDING or PROCESSING, recording the
// structured failure payload as the batch's error log. A batch already in a
// terminal state is left untouched.
func (r *importBatchRepository) FailBatch(id uuid.UUID, payload FailurePayload) error {
	errorLog, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return r.db.Model(&models.ImportBatch{}).
		Where("id = ? AND status IN ?", id, []models.ImportBatchStatus{
			models.ImportStatusPending,
			models.ImportStatusProcessing,
		}).
		Updates(map[string]interface{}{
			"status":       "FAILED",
			"error_logs":   datatypes.JSON(errorLog),
			"completed_at": payload.Timestamp,
		}).Error
}

// GetFilteredBatches retrieves import batches with filtering and pagination
func (r *importBatchRepository) GetFilteredBatches(pageSize int, offset int, filters map[string]string) ([]models.ImportBatch, int64, error) {
	var batches []models.ImportBatch
	var total int64

	db := r.db.Model(&models.ImportBatch{}) // start a new query chain

	// Apply filters
	for key, value := range filters {
		switch key {
		case "status":
			db = db.Where("status = ?", strings.ToUpper(value))
		case "start_date":
			db = db.Where("Date(created_at) >= ?", value)
		case "end_date":
			db = db.Where("Date(created_at) <= ?", value)
		case "filename":
			db = db.Where("filename ILIKE ?", "%"+value+"%")
		case "created_by":
			db = db.Where("created_by ILIKE ?", "%"+value+"%")
		}
	}

	// Count total records with filters applied
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// Apply pagination and ordering
	if err := db.Limit(pageSize).Offset(offset).Order("created_at DESC").Find(&batches).Error; err != nil {
		return nil, 0, err
	}

	return batches, total, nil
}
