package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "import.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParseCSVFile_MapsRecognizedColumns(t *testing.T) {
	path := writeTempCSV(t,
		"caseid_type,caseid_no,court,case_type,judge,outcome,legalrep\n"+
			"HCC,123,Harare High Court,Criminal,J. Moyo,Dismissed,Yes\n"+
			"MC,45,Gweru Magistrates,Civil,,,No\n")

	result, err := ParseCSVFile(path, ParseCSVOptions{SkipEmptyRows: true})
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalRows)
	assert.Equal(t, 2, result.SuccessfulRows)
	assert.Equal(t, 0, result.FailedRows)
	require.Len(t, result.Data, 2)

	first := result.Data[0]
	assert.Equal(t, "HCC", first.CaseIDType)
	assert.Equal(t, "123", first.CaseIDNo)
	assert.Equal(t, "Harare High Court", first.Court)
	assert.Equal(t, "Criminal", first.CaseType)
	assert.Equal(t, "J. Moyo", first.Judge)
	assert.Equal(t, "Dismissed", first.Outcome)
	assert.Equal(t, "Yes", first.LegalRep)
	assert.Equal(t, 1, first.LineNumber)
	assert.Equal(t, 2, result.Data[1].LineNumber)
}

func TestParseCSVFile_NormalizesHeaders(t *testing.T) {
	// BOM prefix, mixed case and spaces should all resolve to known columns
	path := writeTempCSV(t,
		"\ufeffCaseID_Type,Case Type,COURT\n"+
			"HCC,Criminal,Harare High Court\n")

	result, err := ParseCSVFile(path, ParseCSVOptions{})
	require.NoError(t, err)
	require.Len(t, result.Data, 1)
	assert.Equal(t, "HCC", result.Data[0].CaseIDType)
	assert.Equal(t, "Criminal", result.Data[0].CaseType)
	assert.Equal(t, "Harare High Court", result.Data[0].Court)
}

func TestParseCSVFile_SkipsEmptyRows(t *testing.T) {
	path := writeTempCSV(t,
		"caseid_type,caseid_no\n"+
			"HCC,123\n"+
			",\n"+
			"   ,  \n"+
			"MC,45\n")

	result, err := ParseCSVFile(path, ParseCSVOptions{SkipEmptyRows: true})
	require.NoError(t, err)

	assert.Equal(t, 4, result.TotalRows)
	assert.Equal(t, 2, result.EmptyRowsSkipped)
	assert.Len(t, result.Data, 2)
}

func TestParseCSVFile_MaxRowsEmitsWarning(t *testing.T) {
	path := writeTempCSV(t,
		"caseid_type\nHCC\nMC\nSCC\n")

	result, err := ParseCSVFile(path, ParseCSVOptions{MaxRows: 2})
	require.NoError(t, err)

	assert.Len(t, result.Data, 2)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "row limit of 2 reached")
}

func TestParseCSVFile_ValidatorCollectsErrors(t *testing.T) {
	path := writeTempCSV(t,
		"caseid_type,caseid_no\n"+
			"HCC,123\n"+
			"HCC,\n")

	validator := func(row CaseCSVRow) []RowFieldError {
		if row.CaseIDNo == "" {
			return []RowFieldError{{Field: "caseid_no", Message: "is required"}}
		}
		return nil
	}

	result, err := ParseCSVFile(path, ParseCSVOptions{Validator: validator, ContinueOnError: true})
	require.NoError(t, err)

	assert.Equal(t, 1, result.SuccessfulRows)
	assert.Equal(t, 1, result.FailedRows)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 2, result.Errors[0].Row)
	assert.Contains(t, result.Errors[0].Message, "caseid_no: is required")
}

func TestParseCSVFile_ValidatorAbortsWhenNotContinuing(t *testing.T) {
	path := writeTempCSV(t,
		"caseid_type,caseid_no\n"+
			"HCC,\n")

	validator := func(row CaseCSVRow) []RowFieldError {
		if row.CaseIDNo == "" {
			return []RowFieldError{{Field: "caseid_no", Message: "is required"}}
		}
		return nil
	}

	_, err := ParseCSVFile(path, ParseCSVOptions{Validator: validator})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CSV validation failed at row 1")
}

func TestParseCSVFile_SuppliedHeaders(t *testing.T) {
	// no header row in the file
	path := writeTempCSV(t, "HCC,123\nMC,45\n")

	result, err := ParseCSVFile(path, ParseCSVOptions{Headers: []string{"caseid_type", "caseid_no"}})
	require.NoError(t, err)
	require.Len(t, result.Data, 2)
	assert.Equal(t, "MC", result.Data[1].CaseIDType)
}

func TestParseCSVFile_CustomSeparator(t *testing.T) {
	path := writeTempCSV(t, "caseid_type;caseid_no\nHCC;123\n")

	result, err := ParseCSVFile(path, ParseCSVOptions{Separator: ';'})
	require.NoError(t, err)
	require.Len(t, result.Data, 1)
	assert.Equal(t, "123", result.Data[0].CaseIDNo)
}

func TestParseCSVFile_EmptyFile(t *testing.T) {
	path := writeTempCSV(t, "")

	_, err := ParseCSVFile(path, ParseCSVOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CSV file is empty")
}

func TestValidateCSVStructure(t *testing.T) {
	report := ValidateCSVStructure(
		[]string{"caseid_type", "court", "mystery_column"},
		[]string{"caseid_type", "caseid_no", "court"},
	)

	assert.False(t, report.Valid)
	assert.Equal(t, []string{"caseid_no"}, report.MissingHeaders)
	assert.Equal(t, []string{"mystery_column"}, report.ExtraHeaders)

	report = ValidateCSVStructure([]string{"CaseID_Type"}, []string{"caseid_type"})
	assert.True(t, report.Valid)
}

func TestSampleCSVStats(t *testing.T) {
	path := writeTempCSV(t,
		"caseid_type\nHCC\nMC\nSCC\nELC\nCOA\nTC\nKC\n")

	stats, err := SampleCSVStats(path, 0)
	require.NoError(t, err)

	assert.Equal(t, 7, stats.TotalRows)
	assert.Len(t, stats.SampleRows, 5)
	assert.Equal(t, []string{"caseid_type"}, stats.Headers)
}

func TestDetectDuplicateRows(t *testing.T) {
	rows := []CaseCSVRow{
		{CaseIDType: "HCC", CaseIDNo: "123", LineNumber: 1},
		{CaseIDType: "MC", CaseIDNo: "45", LineNumber: 2},
		{CaseIDType: "hcc", CaseIDNo: " 123 ", LineNumber: 3},
		{LineNumber: 4}, // all key fields blank, never reported
		{LineNumber: 5},
	}

	duplicates := DetectDuplicateRows(rows, []string{"caseid_type", "caseid_no"})
	require.Len(t, duplicates, 1)
	assert.Equal(t, 3, duplicates[0].Row)
	assert.Equal(t, 1, duplicates[0].DuplicateOf)
}
