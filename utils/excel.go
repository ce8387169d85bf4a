package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"case-management-backend/db/models"

	"github.com/xuri/excelize/v2"
)

const reportDir = "./public/files"

// EnsureDirectoryExists ensures the specified directory exists before file saving
func EnsureDirectoryExists(filePath string) error {
	dir := filepath.Dir(filePath)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		err := os.MkdirAll(dir, 0755)
		if err != nil {
			return fmt.Errorf("error creating directory: %v", err)
		}
	}
	return nil
}

// GenerateErrorReportExcel writes a batch's error details to an xlsx report
// under the public files directory and returns its public path.
func GenerateErrorReportExcel(details []models.ImportErrorDetail, reportName string) (string, error) {
	if err := EnsureDirectoryExists(reportDir + "/placeholder"); err != nil {
		return "", err
	}

	f := excelize.NewFile()
	sheetName := "Sheet1"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}

	headers := []string{"Row", "Error Type", "Severity", "Message"}
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return "", err
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return "", fmt.Errorf("error setting header %s: %v", header, err)
		}
	}

	for row, detail := range details {
		values := []interface{}{detail.RowNumber, detail.ErrorType, detail.Severity, detail.ErrorMessage}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return "", err
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return "", fmt.Errorf("error writing row %d: %v", row+2, err)
			}
		}
	}

	f.SetActiveSheet(index)

	publicPath := ErrorReportPublicPath(reportName)
	if err := f.SaveAs("." + publicPath); err != nil {
		return "", err
	}

	return publicPath, nil
}

// ErrorReportPublicPath is the public URL path of the error report generated
// for the given report name. Shared with the batch-detail endpoint so links
// match the files the worker writes.
func ErrorReportPublicPath(reportName string) string {
	return fmt.Sprintf("/public/files/%s_import_errors.xlsx", CleanStringForFilename(reportName))
}

// ErrorReportBaseName derives the report name from the uploaded filename,
// falling back to the given identifier for blank names.
func ErrorReportBaseName(filename, fallback string) string {
	name := strings.TrimSuffix(filename, filepath.Ext(filename))
	if name == "" {
		return fallback
	}
	return name
}
