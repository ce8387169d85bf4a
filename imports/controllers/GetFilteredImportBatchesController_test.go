package controllers

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"case-management-backend/db/models"
	"case-management-backend/imports/repositories"
	"case-management-backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBatchRepo struct {
	batch *models.ImportBatch
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

func (f *fakeBatchRepo) UpdateChecksum(id uuid.UUID, checksum string) error { return nil }

func (f *fakeBatchRepo) MarkProcessing(id uuid.UUID, opts repositories.MarkProcessingOptions) error {
	return nil
}

func (f *fakeBatchRepo) CompleteBatch(id uuid.UUID, totals repositories.BatchTotals, details []models.ImportErrorDetail) error {
	return nil
}

func (f *fakeBatchRepo) FailBatch(id uuid.UUID, payload repositories.FailurePayload) error {
	return nil
}

func (f *fakeBatchRepo) GetFilteredBatches(pageSize int, offset int, filters map[string]string) ([]models.ImportBatch, int64, error) {
	return nil, 0, nil
}

func newBatchDetailApp(repo repositories.ImportBatchRepository) *fiber.App {
	app := fiber.New()
	ic := &ImportController{BatchRepo: repo}
	app.Get("/imports/batches/:id", ic.GetImportBatchByIDController)
	return app
}

func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestGetImportBatchByID_IncludesErrorReportURL(t *testing.T) {
	chdirTemp(t)

	batch := &models.ImportBatch{
		ID:            uuid.New(),
		Filename:      "cases.csv",
		Status:        models.ImportStatusCompleted,
		FailedRecords: 3,
	}
	publicPath := utils.ErrorReportPublicPath("cases")
	require.NoError(t, os.MkdirAll(filepath.Dir("."+publicPath), 0755))
	require.NoError(t, os.WriteFile("."+publicPath, []byte("report"), 0644))

	app := newBatchDetailApp(&fakeBatchRepo{batch: batch})
	req := httptest.NewRequest("GET", "http://example.com/imports/batches/"+batch.ID.String(), nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "http://example.com"+publicPath, body["error_report_url"])
	assert.NotNil(t, body["data"])
}

func TestGetImportBatchByID_NoReportNoURL(t *testing.T) {
	chdirTemp(t)

	batch := &models.ImportBatch{
		ID:            uuid.New(),
		Filename:      "cases.csv",
		Status:        models.ImportStatusCompleted,
		FailedRecords: 3,
	}

	app := newBatchDetailApp(&fakeBatchRepo{batch: batch})
	req := httptest.NewRequest("GET", "http://example.com/imports/batches/"+batch.ID.String(), nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	_, present := body["error_report_url"]
	assert.False(t, present, "no link when the report file does not exist")
}

func TestGetImportBatchByID_BadRequests(t *testing.T) {
	app := newBatchDetailApp(&fakeBatchRepo{})

	resp, err := app.Test(httptest.NewRequest("GET", "/imports/batches/not-a-uuid", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/imports/batches/"+uuid.NewString(), nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
