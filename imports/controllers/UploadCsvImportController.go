package controllers

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"case-management-backend/config"
	"case-management-backend/db/models"
	"case-management-backend/imports/workers"
	"case-management-backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// checksumKeyTTL is how long an upload's checksum reservation lives in
// redis. The worker finishes well inside this window; the key only guards
// against the same file being enqueued twice concurrently.
const checksumKeyTTL = 24 * time.Hour

// UploadCsvImportController accepts a CSV upload, creates a PENDING import
// batch and enqueues the processing job. The response returns immediately;
// progress is streamed over the batch's websocket room.
func (ic *ImportController) UploadCsvImportController(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Failed to get file"})
	}

	if ext := strings.ToLower(filepath.Ext(file.Filename)); ext != ".csv" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Only CSV files are accepted"})
	}

	userEmail := c.FormValue("created_by")
	if userEmail == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Missing 'created_by' field in FormData"})
	}

	uploadDir := config.GetEnvOrDefault("UPLOAD_DIR", "./uploads")
	tempFilePath := fmt.Sprintf("%s/tmp/%s_%s", uploadDir, uuid.New().String(), utils.CleanStringForFilename(file.Filename))
	if err := utils.EnsureDirectoryExists(tempFilePath); err != nil {
		config.Logger.Error("Failed to create upload directory", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to save file"})
	}
	if err := c.SaveFile(file, tempFilePath); err != nil {
		config.Logger.Error("Failed to save uploaded file", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to save file"})
	}

	checksum, err := utils.GenerateFileChecksum(tempFilePath)
	if err != nil {
		os.Remove(tempFilePath)
		config.Logger.Error("Failed to compute upload checksum", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to read file"})
	}

	// Duplicate detection: a previous non-failed batch with the same content
	// wins, as does a concurrent upload holding the redis reservation.
	if existing, err := ic.BatchRepo.FindBatchByChecksum(checksum); err == nil && existing != nil {
		os.Remove(tempFilePath)
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"message":  "This file has already been imported",
			"batch_id": existing.ID,
			"status":   existing.Status,
		})
	}

	checksumKey := "import:checksum:" + checksum
	reserved, err := ic.RedisClient.SetNX(c.Context(), checksumKey, userEmail, checksumKeyTTL).Result()
	if err != nil {
		config.Logger.Warn("Checksum reservation failed, continuing without dedup",
			zap.String("checksum", checksum),
			zap.Error(err),
		)
	} else if !reserved {
		os.Remove(tempFilePath)
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"message": "An import of this file is already in progress",
		})
	}

	batch, err := ic.BatchRepo.CreateBatch(&models.ImportBatch{
		Filename:  file.Filename,
		FileSize:  file.Size,
		Checksum:  checksum,
		CreatedBy: userEmail,
	})
	if err != nil {
		os.Remove(tempFilePath)
		ic.RedisClient.Del(c.Context(), checksumKey)
		config.Logger.Error("Failed to create import batch", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to create import batch"})
	}

	taskPayload := workers.ImportTaskPayload{
		BatchID:  batch.ID,
		FilePath: tempFilePath,
	}
	if sep := c.FormValue("separator"); sep != "" {
		taskPayload.Options.Separator = sep
	}

	task, err := workers.NewImportTask(taskPayload)
	if err == nil {
		_, err = ic.QueueClient.Enqueue(task)
	}
	if err != nil {
		os.Remove(tempFilePath)
		ic.RedisClient.Del(c.Context(), checksumKey)
		config.Logger.Error("Failed to enqueue import job",
			zap.String("batch_id", batch.ID.String()),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to queue import job"})
	}

	config.Logger.Info("Import batch queued",
		zap.String("batch_id", batch.ID.String()),
		zap.String("filename", file.Filename),
		zap.String("created_by", userEmail),
	)

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message":  "Import queued",
		"batch_id": batch.ID,
		"status":   batch.Status,
	})
}
