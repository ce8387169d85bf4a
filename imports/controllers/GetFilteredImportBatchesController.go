package controllers

import (
	"os"

	"case-management-backend/config"
	"case-management-backend/utils"
	"case-management-backend/utils/pagination"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// batchFilterKeys are the query parameters forwarded to the repository.
var batchFilterKeys = []string{"status", "start_date", "end_date", "filename", "created_by"}

func (ic *ImportController) GetFilteredImportBatchesController(c *fiber.Ctx) error {
	// Parse and validate pagination params
	params := pagination.ParsePaginationParams(c)
	if err := pagination.ValidatePaginationParams(params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid pagination parameters",
			"error":   err.Error(),
		})
	}

	filters := make(map[string]string)
	for _, key := range batchFilterKeys {
		if value := params.Filters[key]; value != "" && value != "null" {
			filters[key] = value
		}
	}

	offset := (params.Page - 1) * params.PageSize
	batches, total, err := ic.BatchRepo.GetFilteredBatches(params.PageSize, offset, filters)
	if err != nil {
		config.Logger.Error("Failed to fetch paginated import batches", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch import batches"})
	}

	response := pagination.NewPaginatedResponse(c, batches, total, params)
	return c.Status(fiber.StatusOK).JSON(response)
}

// GetImportBatchByIDController returns a single batch with its counters and
// error payloads, plus a download link for the error report when the worker
// has generated one.
func (ic *ImportController) GetImportBatchByIDController(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid batch ID"})
	}

	batch, err := ic.BatchRepo.GetBatchByID(id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}

	response := fiber.Map{"data": batch}
	if batch.FailedRecords > 0 {
		reportName := utils.ErrorReportBaseName(batch.Filename, batch.ID.String())
		publicPath := utils.ErrorReportPublicPath(reportName)
		if _, statErr := os.Stat("." + publicPath); statErr == nil {
			response["error_report_url"] = utils.GetDownloadURL(c, publicPath)
		}
	}
	return c.Status(fiber.StatusOK).JSON(response)
}
