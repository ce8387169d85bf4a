package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"case-management-backend/config"
	"case-management-backend/db/models"
	"case-management-backend/imports/repositories"
	"case-management-backend/imports/services"
	"case-management-backend/utils"
	ws "case-management-backend/websocket"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/datatypes"
)

const (
	// importStartsPerSecond throttles how fast queued jobs may begin,
	// independently of the worker pool's concurrency.
	importStartsPerSecond = 10
	importStartBurst      = 10
)

// ProgressPublisher pushes lifecycle events to a batch's subscribers.
// Implementations must never block; a dropped event is acceptable.
type ProgressPublisher interface {
	PublishProgress(event ws.ImportProgressEvent)
	PublishCompleted(event ws.ImportCompletedEvent)
	PublishFailed(event ws.ImportFailedEvent)
}

// ImportWorker executes queued CSV import jobs. It sequences the pipeline
// stages, emits progress at each boundary, and guarantees the batch ends in
// a terminal state with the temp file cleaned up whatever happens.
type ImportWorker struct {
	service   *services.ImportService
	batchRepo repositories.ImportBatchRepository
	publisher ProgressPublisher
	limiter   *rate.Limiter
	logger    *zap.Logger
}

func NewImportWorker(
	service *services.ImportService,
	batchRepo repositories.ImportBatchRepository,
	publisher ProgressPublisher,
	logger *zap.Logger,
) *ImportWorker {
	return &ImportWorker{
		service:   service,
		batchRepo: batchRepo,
		publisher: publisher,
		limiter:   rate.NewLimiter(rate.Limit(importStartsPerSecond), importStartBurst),
		logger:    logger,
	}
}

// Register mounts the worker's task handlers on the queue mux.
func (w *ImportWorker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeProcessCsvImport, w.ProcessTask)
}

// ProcessTask runs one import job end to end. Errors are recorded on the
// batch and returned so the queue's retry policy applies; a panic is
// persisted as "Unknown error" but still fails the task with the original
// value in the message.
func (w *ImportWorker) ProcessTask(ctx context.Context, task *asynq.Task) (err error) {
	var payload ImportTaskPayload
	if unmarshalErr := json.Unmarshal(task.Payload(), &payload); unmarshalErr != nil {
		return fmt.Errorf("invalid import task payload: %v: %w", unmarshalErr, asynq.SkipRetry)
	}

	if waitErr := w.limiter.Wait(ctx); waitErr != nil {
		return waitErr
	}

	batchID := payload.BatchID
	jobID, _ := asynq.GetTaskID(ctx)
	start := time.Now()

	w.logger.Info("Import job started",
		zap.String("batch_id", batchID.String()),
		zap.String("job_id", jobID),
		zap.String("file_path", payload.FilePath),
	)

	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("Import job panicked",
				zap.String("batch_id", batchID.String()),
				zap.String("job_id", jobID),
				zap.Any("panic", r),
			)
			w.handleFailure(batchID, jobID, payload.FilePath, "Unknown error")
			err = fmt.Errorf("import job panicked: %v", r)
		}
	}()

	w.publishProgress(batchID, jobID, 0, ws.StageValidation, "")

	if payload.FilePath == "" && payload.Records == nil {
		w.handleFailure(batchID, jobID, "", "import job has neither a file path nor preparsed records")
		return fmt.Errorf("import job has neither a file path nor preparsed records: %w", asynq.SkipRetry)
	}

	if markErr := w.batchRepo.MarkProcessing(batchID, repositories.MarkProcessingOptions{StartedAt: &start}); markErr != nil {
		w.handleFailure(batchID, jobID, payload.FilePath, markErr.Error())
		return markErr
	}

	w.publishProgress(batchID, jobID, 20, ws.StageParsing, "")

	result, processErr := w.process(ctx, payload)
	if processErr != nil {
		w.handleFailure(batchID, jobID, payload.FilePath, processErr.Error())
		return processErr
	}

	w.publishProgress(batchID, jobID, 50, ws.StageImporting, "")

	totals := w.buildTotals(payload.Options, result)
	details := append(result.ErrorDetails, payload.Options.ErrorDetails...)
	if completeErr := w.batchRepo.CompleteBatch(batchID, totals, details); completeErr != nil {
		w.handleFailure(batchID, jobID, payload.FilePath, completeErr.Error())
		return completeErr
	}

	duration := time.Since(start)
	w.publishProgress(batchID, jobID, 100, ws.StageCompleted, "")
	if w.publisher != nil {
		w.publisher.PublishCompleted(ws.ImportCompletedEvent{
			BatchID:           batchID.String(),
			JobID:             jobID,
			TotalRecords:      totals.TotalRecords,
			SuccessfulRecords: totals.SuccessfulRecords,
			FailedRecords:     totals.FailedRecords,
			Duration:          duration.Round(time.Millisecond).String(),
		})
	}

	w.logger.Info("Import job completed",
		zap.String("batch_id", batchID.String()),
		zap.String("job_id", jobID),
		zap.Int("total_records", totals.TotalRecords),
		zap.Int("successful_records", totals.SuccessfulRecords),
		zap.Int("failed_records", totals.FailedRecords),
		zap.Duration("duration", duration),
	)

	w.cleanupTempFile(payload.FilePath)
	w.sendErrorReport(batchID, details)
	return nil
}

// process dispatches to the file path or preparsed-records branch.
func (w *ImportWorker) process(ctx context.Context, payload ImportTaskPayload) (*services.ImportResult, error) {
	if payload.FilePath != "" {
		return w.service.ProcessCsvFile(ctx, payload.BatchID, payload.FilePath, services.ImportOptions{
			ChunkSize: payload.Options.ChunkSize,
			Separator: separatorRune(payload.Options.Separator),
			MaxRows:   payload.Options.MaxRows,
		})
	}

	counts, err := w.service.ImportRecords(ctx,
		payload.Records.Cases,
		payload.Records.Activities,
		payload.Records.Assignments,
		payload.Options.ChunkSize,
	)
	if err != nil {
		return nil, err
	}
	return &services.ImportResult{
		TotalRecords: len(payload.Records.Cases),
		Counts:       *counts,
	}, nil
}

// buildTotals derives the final batch accounting, honoring any explicit
// overrides from the job options. Failed records default to whatever part
// of the total the writer did not insert.
func (w *ImportWorker) buildTotals(opts ImportTaskOptions, result *services.ImportResult) repositories.BatchTotals {
	total := result.TotalRecords
	if opts.Totals != nil && opts.Totals.TotalRecords != nil {
		total = *opts.Totals.TotalRecords
	}

	success := result.Counts.Cases

	failed := total - success
	if failed < 0 {
		failed = 0
	}
	if opts.Totals != nil && opts.Totals.FailedRecords != nil {
		failed = *opts.Totals.FailedRecords
	}

	totals := repositories.BatchTotals{
		TotalRecords:      total,
		SuccessfulRecords: success,
		FailedRecords:     failed,
		EmptyRowsSkipped:  result.EmptyRowsSkipped,
		CompletedAt:       opts.CompletedAt,
	}
	if opts.ErrorLogs != nil {
		totals.ErrorLogs = datatypes.JSON(opts.ErrorLogs)
	}
	if opts.ValidationWarnings != nil {
		totals.ValidationWarnings = datatypes.JSON(opts.ValidationWarnings)
	} else if len(result.Warnings) > 0 {
		if warnings, err := json.Marshal(result.Warnings); err == nil {
			totals.ValidationWarnings = datatypes.JSON(warnings)
		}
	}
	return totals
}

// handleFailure runs the failure path: failed event, temp-file cleanup and
// the FAILED batch transition. Each step is best effort so the original
// error stays the one reported to the queue.
func (w *ImportWorker) handleFailure(batchID uuid.UUID, jobID, filePath, message string) {
	now := time.Now()

	if w.publisher != nil {
		w.publisher.PublishFailed(ws.ImportFailedEvent{
			BatchID:   batchID.String(),
			JobID:     jobID,
			Error:     message,
			Timestamp: now,
		})
	}

	w.cleanupTempFile(filePath)

	if err := w.batchRepo.FailBatch(batchID, repositories.FailurePayload{
		Error:     message,
		JobID:     jobID,
		Timestamp: now,
	}); err != nil {
		w.logger.Error("Failed to mark import batch as failed",
			zap.String("batch_id", batchID.String()),
			zap.Error(err),
		)
	}
}

func (w *ImportWorker) publishProgress(batchID uuid.UUID, jobID string, progress int, stage ws.ImportStage, message string) {
	if w.publisher == nil {
		return
	}
	w.publisher.PublishProgress(ws.ImportProgressEvent{
		BatchID:  batchID.String(),
		JobID:    jobID,
		Progress: progress,
		Stage:    stage,
		Message:  message,
	})
}

// cleanupTempFile deletes the uploaded temp file. Failures are logged and
// swallowed so cleanup never masks the job's outcome.
func (w *ImportWorker) cleanupTempFile(filePath string) {
	if filePath == "" {
		return
	}
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		w.logger.Warn("Failed to remove import temp file",
			zap.String("file_path", filePath),
			zap.Error(err),
		)
	}
}

// sendErrorReport writes an xlsx report of the batch's row errors and mails
// it to the uploader when their identifier is an email address. Best effort
// on every step.
func (w *ImportWorker) sendErrorReport(batchID uuid.UUID, details []models.ImportErrorDetail) {
	if len(details) == 0 {
		return
	}

	batch, err := w.batchRepo.GetBatchByID(batchID)
	if err != nil {
		w.logger.Warn("Could not load batch for error report",
			zap.String("batch_id", batchID.String()),
			zap.Error(err),
		)
		return
	}

	reportName := utils.ErrorReportBaseName(batch.Filename, batchID.String())
	publicPath, err := utils.GenerateErrorReportExcel(details, reportName)
	if err != nil {
		w.logger.Warn("Failed to generate import error report",
			zap.String("batch_id", batchID.String()),
			zap.Error(err),
		)
		return
	}

	w.logger.Info("Import error report generated",
		zap.String("batch_id", batchID.String()),
		zap.String("report_path", publicPath),
	)

	if !strings.Contains(batch.CreatedBy, "@") {
		return
	}
	downloadURL := utils.GetBaseDownloadURL(config.GetEnvOrDefault("BASE_URL", "http://localhost:8080"), publicPath)
	message := fmt.Sprintf(
		"Your import of %s finished with %d failed record(s). The attached report lists every affected row. It is also available at %s.",
		batch.Filename, batch.FailedRecords, downloadURL,
	)
	if err := utils.SendEmail(batch.CreatedBy, message, "Case import error report", "."+publicPath); err != nil {
		w.logger.Warn("Failed to email import error report",
			zap.String("batch_id", batchID.String()),
			zap.Error(err),
		)
	}
}

func separatorRune(s string) rune {
	if s == "" {
		return 0
	}
	return []rune(s)[0]
}
