package services

import (
	"context"
	"fmt"

	"case-management-backend/db/models"
	"case-management-backend/imports/repositories"
	"case-management-backend/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ImportOptions tunes one processing run.
type ImportOptions struct {
	ChunkSize int
	Separator rune
	MaxRows   int
	Validator RowValidator
}

// ImportResult aggregates everything the worker needs to close out a batch.
type ImportResult struct {
	TotalRecords     int
	EmptyRowsSkipped int
	Counts           repositories.ImportCounts
	ErrorDetails     []models.ImportErrorDetail
	Warnings         []string
}

// ImportService owns the "process file" operation: checksum refresh, CSV
// parse, two-pass reference resolution, row transformation and the chunked
// transactional write. It holds no per-run state; a fresh resolver is built
// for every call.
type ImportService struct {
	batchRepo    repositories.ImportBatchRepository
	courtRepo    repositories.CourtRepository
	caseTypeRepo repositories.CaseTypeRepository
	caseRepo     repositories.CaseRepository
	logger       *zap.Logger
}

func NewImportService(
	batchRepo repositories.ImportBatchRepository,
	courtRepo repositories.CourtRepository,
	caseTypeRepo repositories.CaseTypeRepository,
	caseRepo repositories.CaseRepository,
	logger *zap.Logger,
) *ImportService {
	return &ImportService{
		batchRepo:    batchRepo,
		courtRepo:    courtRepo,
		caseTypeRepo: caseTypeRepo,
		caseRepo:     caseRepo,
		logger:       logger,
	}
}

// ProcessCsvFile runs the whole pipeline for an on-disk CSV file.
func (s *ImportService) ProcessCsvFile(ctx context.Context, batchID uuid.UUID, filePath string, opts ImportOptions) (*ImportResult, error) {
	// The stored checksum may come from the upload handler; recompute from
	// disk so the batch always reflects what was actually processed.
	checksum, err := utils.GenerateFileChecksum(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to compute file checksum: %w", err)
	}
	if err := s.batchRepo.UpdateChecksum(batchID, checksum); err != nil {
		return nil, fmt.Errorf("failed to store file checksum: %w", err)
	}

	parsed, err := ParseCSVFile(filePath, ParseCSVOptions{
		MaxRows:         opts.MaxRows,
		SkipEmptyRows:   true,
		Validator:       opts.Validator,
		ContinueOnError: true,
		Separator:       opts.Separator,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("CSV parsed",
		zap.String("batch_id", batchID.String()),
		zap.Int("rows", parsed.TotalRows),
		zap.Int("empty_rows_skipped", parsed.EmptyRowsSkipped),
		zap.Int("invalid_rows", parsed.FailedRows),
	)

	// Two-pass: resolve every reference entity before any case is written.
	resolver := NewReferenceResolver(s.courtRepo, s.caseTypeRepo, s.logger)
	if err := resolver.ResolveAll(parsed.Data); err != nil {
		return nil, err
	}

	var cases []models.Case
	var activities []models.CaseActivity
	var assignments []models.CaseJudgeAssignment
	for _, row := range parsed.Data {
		transformed := TransformRow(row, row.LineNumber, resolver.References(row))
		cases = append(cases, transformed.Case)
		if transformed.Activity != nil {
			activities = append(activities, *transformed.Activity)
		}
		if transformed.Assignment != nil {
			assignments = append(assignments, *transformed.Assignment)
		}
	}

	counts, err := s.caseRepo.ImportCaseRecords(ctx, cases, activities, assignments, opts.ChunkSize)
	if err != nil {
		return nil, fmt.Errorf("failed to persist case records: %w", err)
	}

	result := &ImportResult{
		TotalRecords:     len(parsed.Data),
		EmptyRowsSkipped: parsed.EmptyRowsSkipped,
		Counts:           *counts,
		Warnings:         parsed.Warnings,
	}
	for _, rowErr := range parsed.Errors {
		result.ErrorDetails = append(result.ErrorDetails, models.ImportErrorDetail{
			BatchID:      batchID,
			RowNumber:    rowErr.Row,
			ErrorType:    models.ValidationErrorType,
			ErrorMessage: rowErr.Message,
			Severity:     models.SeverityError,
		})
	}

	return result, nil
}

// ImportRecords persists pre-parsed records directly, skipping the parse
// and resolution phases.
func (s *ImportService) ImportRecords(
	ctx context.Context,
	cases []models.Case,
	activities []models.CaseActivity,
	assignments []models.CaseJudgeAssignment,
	chunkSize int,
) (*repositories.ImportCounts, error) {
	counts, err := s.caseRepo.ImportCaseRecords(ctx, cases, activities, assignments, chunkSize)
	if err != nil {
		return nil, fmt.Errorf("failed to persist case records: %w", err)
	}
	return counts, nil
}
