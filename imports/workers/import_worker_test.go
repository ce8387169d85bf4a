package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"case-management-backend/db/models"
	"case-management-backend/imports/repositories"
	"case-management-backend/imports/services"
	ws "case-management-backend/websocket"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeBatchRepo struct {
	batch    *models.ImportBatch
	totals   *repositories.BatchTotals
	details  []models.ImportErrorDetail
	failure  *repositories.FailurePayload
	checksum string
}

func (f *fakeBatchRepo) CreateBatch(batch *models.ImportBatch) (*models.ImportBatch, error) {
	f.batch = batch
	return batch, nil
}

func (f *fakeBatchRepo) GetBatchByID(id uuid.UUID) (*models.ImportBatch, error) {
	if f.batch == nil || f.batch.ID != id {
		return nil, fmt.Errorf("import batch '%s' not found", id)
	}
	return f.batch, nil
}

func (f *fakeBatchRepo) FindBatchByChecksum(checksum string) (*models.ImportBatch, error) {
	return nil, nil
}

func (f *fakeBatchRepo) UpdateChecksum(id uuid.UUID, checksum string) error {
	f.checksum = checksum
	return nil
}

func (f *fakeBatchRepo) MarkProcessing(id uuid.UUID, opts repositories.MarkProcessingOptions) error {
	if f.batch.Status != models.ImportStatusPending && f.batch.Status != models.ImportStatusFailed {
		return fmt.Errorf("import batch '%s' is not awaiting processing", id)
	}
	f.batch.Status = models.ImportStatusProcessing
	f.failure = nil
	return nil
}

func (f *fakeBatchRepo) CompleteBatch(id uuid.UUID, totals repositories.BatchTotals, details []models.ImportErrorDetail) error {
	if f.batch.Status != models.ImportStatusProcessing {
		return fmt.Errorf("import batch '%s' is not processing", id)
	}
	f.batch.Status = models.ImportStatusCompleted
	f.totals = &totals
	f.details = details
	return nil
}

func (f *fakeBatchRepo) FailBatch(id uuid.UUID, payload repositories.FailurePayload) error {
	if f.batch.Status == models.ImportStatusPending || f.batch.Status == models.ImportStatusProcessing {
		f.batch.Status = models.ImportStatusFailed
		f.failure = &payload
	}
	return nil
}

func (f *fakeBatchRepo) GetFilteredBatches(pageSize int, offset int, filters map[string]string) ([]models.ImportBatch, int64, error) {
	return nil, 0, nil
}

type fakeCourtRepo struct{ unknown *models.Court }

func (f *fakeCourtRepo) GetCourtByName(name string) (*models.Court, error) { return nil, nil }
func (f *fakeCourtRepo) CourtCodeExists(code string) (bool, error)        { return false, nil }
func (f *fakeCourtRepo) CreateOrFetchCourt(court *models.Court) (*models.Court, error) {
	court.ID = uuid.New()
	return court, nil
}
func (f *fakeCourtRepo) GetOrCreateUnknownCourt() (*models.Court, error) {
	if f.unknown == nil {
		f.unknown = &models.Court{ID: uuid.New(), Name: models.UnknownCourtName}
	}
	return f.unknown, nil
}

type fakeCaseTypeRepo struct{ unknown *models.CaseType }

func (f *fakeCaseTypeRepo) GetCaseTypeByCode(code string) (*models.CaseType, error) { return nil, nil }
func (f *fakeCaseTypeRepo) CreateOrFetchCaseType(caseType *models.CaseType) (*models.CaseType, error) {
	caseType.ID = uuid.New()
	return caseType, nil
}
func (f *fakeCaseTypeRepo) GetOrCreateUnknownCaseType() (*models.CaseType, error) {
	if f.unknown == nil {
		f.unknown = &models.CaseType{ID: uuid.New(), Code: models.UnknownCaseTypeCode}
	}
	return f.unknown, nil
}

type fakeCaseRepo struct {
	cases       int
	activities  int
	assignments int
	err         error
}

func (f *fakeCaseRepo) ImportCaseRecords(ctx context.Context, cases []models.Case, activities []models.CaseActivity, assignments []models.CaseJudgeAssignment, chunkSize int) (*repositories.ImportCounts, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.cases = len(cases)
	f.activities = len(activities)
	f.assignments = len(assignments)
	return &repositories.ImportCounts{
		Cases:       len(cases),
		Activities:  len(activities),
		Assignments: len(assignments),
	}, nil
}

type fakePublisher struct {
	progress  []ws.ImportProgressEvent
	completed []ws.ImportCompletedEvent
	failed    []ws.ImportFailedEvent
}

func (f *fakePublisher) PublishProgress(e ws.ImportProgressEvent)   { f.progress = append(f.progress, e) }
func (f *fakePublisher) PublishCompleted(e ws.ImportCompletedEvent) { f.completed = append(f.completed, e) }
func (f *fakePublisher) PublishFailed(e ws.ImportFailedEvent)       { f.failed = append(f.failed, e) }

func newTestWorker(batchRepo *fakeBatchRepo, caseRepo *fakeCaseRepo, pub *fakePublisher) *ImportWorker {
	logger := zap.NewNop()
	service := services.NewImportService(batchRepo, &fakeCourtRepo{}, &fakeCaseTypeRepo{}, caseRepo, logger)
	return NewImportWorker(service, batchRepo, pub, logger)
}

func pendingBatch() *models.ImportBatch {
	return &models.ImportBatch{
		ID:       uuid.New(),
		Filename: "cases.csv",
		Status:   models.ImportStatusPending,
	}
}

func importTask(t *testing.T, payload ImportTaskPayload) *asynq.Task {
	t.Helper()
	task, err := NewImportTask(payload)
	require.NoError(t, err)
	return task
}

func TestProcessTask_FileSuccess(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "cases.csv")
	content := "caseid_type,caseid_no,filed_dd,filed_mon,filed_yyyy,court,case_type,judge,outcome,comingfor\n" +
		"HCC,123,14,Mar,2019,Harare High Court,Criminal,J. Moyo,Dismissed,Ruling\n" +
		",,,,,,,,,\n" +
		"MC,45,2,Jun,2020,Gweru Magistrates,Civil,,,Mention\n"
	require.NoError(t, os.WriteFile(filePath, []byte(content), 0644))

	batchRepo := &fakeBatchRepo{batch: pendingBatch()}
	caseRepo := &fakeCaseRepo{}
	pub := &fakePublisher{}
	worker := newTestWorker(batchRepo, caseRepo, pub)

	task := importTask(t, ImportTaskPayload{BatchID: batchRepo.batch.ID, FilePath: filePath})
	require.NoError(t, worker.ProcessTask(context.Background(), task))

	assert.Equal(t, models.ImportStatusCompleted, batchRepo.batch.Status)
	require.NotNil(t, batchRepo.totals)
	assert.Equal(t, 2, batchRepo.totals.TotalRecords)
	assert.Equal(t, 2, batchRepo.totals.SuccessfulRecords)
	assert.Equal(t, 0, batchRepo.totals.FailedRecords)
	assert.Equal(t, 1, batchRepo.totals.EmptyRowsSkipped)
	assert.NotEmpty(t, batchRepo.checksum)

	assert.Equal(t, 2, caseRepo.cases)
	assert.Equal(t, 2, caseRepo.activities) // both rows have comingfor
	assert.Equal(t, 1, caseRepo.assignments)

	// temp file is removed on success
	_, statErr := os.Stat(filePath)
	assert.True(t, os.IsNotExist(statErr))

	// stage order: validation 0 -> parsing 20 -> importing 50 -> completed 100
	require.Len(t, pub.progress, 4)
	assert.Equal(t, ws.StageValidation, pub.progress[0].Stage)
	assert.Equal(t, 0, pub.progress[0].Progress)
	assert.Equal(t, ws.StageParsing, pub.progress[1].Stage)
	assert.Equal(t, 20, pub.progress[1].Progress)
	assert.Equal(t, ws.StageImporting, pub.progress[2].Stage)
	assert.Equal(t, 50, pub.progress[2].Progress)
	assert.Equal(t, ws.StageCompleted, pub.progress[3].Stage)
	assert.Equal(t, 100, pub.progress[3].Progress)

	require.Len(t, pub.completed, 1)
	assert.Equal(t, 2, pub.completed[0].TotalRecords)
	assert.Empty(t, pub.failed)
}

func TestProcessTask_MissingInputIsFatal(t *testing.T) {
	batchRepo := &fakeBatchRepo{batch: pendingBatch()}
	pub := &fakePublisher{}
	worker := newTestWorker(batchRepo, &fakeCaseRepo{}, pub)

	task := importTask(t, ImportTaskPayload{BatchID: batchRepo.batch.ID})
	err := worker.ProcessTask(context.Background(), task)

	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
	assert.Equal(t, models.ImportStatusFailed, batchRepo.batch.Status)
	require.NotNil(t, batchRepo.failure)
	assert.Contains(t, batchRepo.failure.Error, "neither a file path nor preparsed records")
	require.Len(t, pub.failed, 1)
	assert.Empty(t, pub.completed)
}

func TestProcessTask_MissingFileFailsBatch(t *testing.T) {
	batchRepo := &fakeBatchRepo{batch: pendingBatch()}
	pub := &fakePublisher{}
	worker := newTestWorker(batchRepo, &fakeCaseRepo{}, pub)

	task := importTask(t, ImportTaskPayload{
		BatchID:  batchRepo.batch.ID,
		FilePath: filepath.Join(t.TempDir(), "gone.csv"),
	})
	err := worker.ProcessTask(context.Background(), task)

	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry), "infrastructure errors stay retryable")
	assert.Equal(t, models.ImportStatusFailed, batchRepo.batch.Status)
	require.NotNil(t, batchRepo.failure)
	require.Len(t, pub.failed, 1)
	assert.Equal(t, batchRepo.batch.ID.String(), pub.failed[0].BatchID)
}

func TestProcessTask_WriterErrorFailsBatch(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "cases.csv")
	require.NoError(t, os.WriteFile(filePath, []byte("caseid_type,caseid_no\nHCC,1\n"), 0644))

	batchRepo := &fakeBatchRepo{batch: pendingBatch()}
	pub := &fakePublisher{}
	worker := newTestWorker(batchRepo, &fakeCaseRepo{err: errors.New("connection reset")}, pub)

	task := importTask(t, ImportTaskPayload{BatchID: batchRepo.batch.ID, FilePath: filePath})
	err := worker.ProcessTask(context.Background(), task)

	require.Error(t, err)
	assert.Equal(t, models.ImportStatusFailed, batchRepo.batch.Status)
	require.NotNil(t, batchRepo.failure)
	assert.Contains(t, batchRepo.failure.Error, "connection reset")

	// cleanup is attempted on the failure path too
	_, statErr := os.Stat(filePath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestProcessTask_RetryAfterFailureCanComplete(t *testing.T) {
	batchRepo := &fakeBatchRepo{batch: pendingBatch()}
	pub := &fakePublisher{}
	task := importTask(t, ImportTaskPayload{
		BatchID: batchRepo.batch.ID,
		Records: &PreparsedRecords{
			Cases: []models.Case{{ID: uuid.New(), CaseNumber: "HCC/9/2021"}},
		},
	})

	// first attempt hits a transient writer error and fails the batch
	worker := newTestWorker(batchRepo, &fakeCaseRepo{err: errors.New("connection reset")}, pub)
	require.Error(t, worker.ProcessTask(context.Background(), task))
	assert.Equal(t, models.ImportStatusFailed, batchRepo.batch.Status)
	require.NotNil(t, batchRepo.failure)

	// the queue redelivers; the retry restarts the FAILED batch and completes
	worker = newTestWorker(batchRepo, &fakeCaseRepo{}, pub)
	require.NoError(t, worker.ProcessTask(context.Background(), task))
	assert.Equal(t, models.ImportStatusCompleted, batchRepo.batch.Status)
	assert.Nil(t, batchRepo.failure)
	require.NotNil(t, batchRepo.totals)
	assert.Equal(t, 1, batchRepo.totals.SuccessfulRecords)
}

func TestProcessTask_PreparsedRecords(t *testing.T) {
	batchRepo := &fakeBatchRepo{batch: pendingBatch()}
	caseRepo := &fakeCaseRepo{}
	worker := newTestWorker(batchRepo, caseRepo, &fakePublisher{})

	task := importTask(t, ImportTaskPayload{
		BatchID: batchRepo.batch.ID,
		Records: &PreparsedRecords{
			Cases: []models.Case{
				{ID: uuid.New(), CaseNumber: "HCC/1/2020"},
				{ID: uuid.New(), CaseNumber: "HCC/2/2020"},
			},
		},
	})
	require.NoError(t, worker.ProcessTask(context.Background(), task))

	assert.Equal(t, models.ImportStatusCompleted, batchRepo.batch.Status)
	assert.Equal(t, 2, caseRepo.cases)
	require.NotNil(t, batchRepo.totals)
	assert.Equal(t, 2, batchRepo.totals.TotalRecords)
	// no file involved, checksum untouched
	assert.Empty(t, batchRepo.checksum)
}

func TestProcessTask_InvalidPayloadSkipsRetry(t *testing.T) {
	worker := newTestWorker(&fakeBatchRepo{batch: pendingBatch()}, &fakeCaseRepo{}, &fakePublisher{})

	task := asynq.NewTask(TypeProcessCsvImport, []byte("{not json"))
	err := worker.ProcessTask(context.Background(), task)

	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestBuildTotals(t *testing.T) {
	worker := newTestWorker(&fakeBatchRepo{batch: pendingBatch()}, &fakeCaseRepo{}, &fakePublisher{})

	result := &services.ImportResult{
		TotalRecords:     10,
		EmptyRowsSkipped: 2,
		Counts:           repositories.ImportCounts{Cases: 7},
		Warnings:         []string{"row limit of 10 reached, remaining rows were not read"},
	}

	totals := worker.buildTotals(ImportTaskOptions{}, result)
	assert.Equal(t, 10, totals.TotalRecords)
	assert.Equal(t, 7, totals.SuccessfulRecords)
	assert.Equal(t, 3, totals.FailedRecords)
	assert.Equal(t, 2, totals.EmptyRowsSkipped)

	var warnings []string
	require.NoError(t, json.Unmarshal(totals.ValidationWarnings, &warnings))
	assert.Len(t, warnings, 1)

	// failed never goes negative when overrides inflate the success count
	result.Counts.Cases = 15
	totals = worker.buildTotals(ImportTaskOptions{}, result)
	assert.Equal(t, 0, totals.FailedRecords)

	// explicit overrides win
	total, failed := 20, 5
	totals = worker.buildTotals(ImportTaskOptions{
		Totals: &TotalsOverride{TotalRecords: &total, FailedRecords: &failed},
	}, result)
	assert.Equal(t, 20, totals.TotalRecords)
	assert.Equal(t, 5, totals.FailedRecords)
}
