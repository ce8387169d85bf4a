package workers

import (
	"encoding/json"
	"time"

	"case-management-backend/config"
	"case-management-backend/db/models"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// TypeProcessCsvImport identifies the CSV import job on the queue.
const TypeProcessCsvImport = "import:process_csv"

// PreparsedRecords carries already-transformed records for jobs that skip
// the parse and resolution phases.
type PreparsedRecords struct {
	Cases       []models.Case                `json:"cases"`
	Activities  []models.CaseActivity        `json:"activities,omitempty"`
	Assignments []models.CaseJudgeAssignment `json:"assignments,omitempty"`
}

// TotalsOverride lets the enqueuer pin final batch totals instead of having
// them derived from parse and write counts.
type TotalsOverride struct {
	TotalRecords  *int `json:"totalRecords,omitempty"`
	FailedRecords *int `json:"failedRecords,omitempty"`
}

// ImportTaskOptions tunes a single import job.
type ImportTaskOptions struct {
	ChunkSize          int                        `json:"chunkSize,omitempty"`
	Separator          string                     `json:"separator,omitempty"`
	MaxRows            int                        `json:"maxRows,omitempty"`
	Totals             *TotalsOverride            `json:"totals,omitempty"`
	ErrorDetails       []models.ImportErrorDetail `json:"errorDetails,omitempty"`
	ErrorLogs          json.RawMessage            `json:"errorLogs,omitempty"`
	ValidationWarnings json.RawMessage            `json:"validationWarnings,omitempty"`
	CompletedAt        *time.Time                 `json:"completedAt,omitempty"`
}

// ImportTaskPayload is the job contract between the upload handler and the
// worker. Exactly one of FilePath and Records must be set.
type ImportTaskPayload struct {
	BatchID  uuid.UUID         `json:"batchId"`
	FilePath string            `json:"filePath,omitempty"`
	Records  *PreparsedRecords `json:"records,omitempty"`
	Options  ImportTaskOptions `json:"options,omitempty"`
}

// NewImportTask builds the asynq task for one import job. Retry count rides
// on the task; backoff policy lives on the queue server.
func NewImportTask(payload ImportTaskPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeProcessCsvImport, data, asynq.MaxRetry(config.ImportMaxRetry)), nil
}
