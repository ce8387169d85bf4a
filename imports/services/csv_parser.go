package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// CaseCSVRow is one parsed data row. Only the recognized columns below are
// captured; any extra columns in the source file are ignored. All fields are
// kept as raw strings, coercion happens in the row transformer.
type CaseCSVRow struct {
	CaseIDType string
	CaseIDNo   string

	FiledDD   string
	FiledMon  string
	FiledYYYY string
	DateDD    string
	DateMon   string
	DateYYYY  string
	FiledDate string // explicit full-date fallback column

	Court    string
	CaseType string
	Judge    string

	Outcome         string
	ComingFor       string
	LegalRep        string
	TotalActivities string

	MaleApplicant         string
	FemaleApplicant       string
	OrganizationApplicant string
	MaleDefendant         string
	FemaleDefendant       string
	OrganizationDefendant string

	OriginalCourt  string
	OriginalNumber string
	OriginalYear   string

	LineNumber int      // 1-based data row number in the source file
	Raw        []string // the record as read, for error reporting
}

// Field returns a named column value, used by the duplicate detector to
// build composite keys from caller-supplied field lists.
func (r CaseCSVRow) Field(name string) string {
	switch normalizeHeader(name) {
	case "caseid_type":
		return r.CaseIDType
	case "caseid_no":
		return r.CaseIDNo
	case "filed_dd":
		return r.FiledDD
	case "filed_mon":
		return r.FiledMon
	case "filed_yyyy":
		return r.FiledYYYY
	case "court":
		return r.Court
	case "case_type":
		return r.CaseType
	case "judge":
		return r.Judge
	case "outcome":
		return r.Outcome
	case "comingfor":
		return r.ComingFor
	case "legalrep":
		return r.LegalRep
	case "original_court":
		return r.OriginalCourt
	case "original_number":
		return r.OriginalNumber
	case "original_year":
		return r.OriginalYear
	default:
		return ""
	}
}

// columnSetters maps normalized header names to row fields. Headers not in
// this map are ignored.
var columnSetters = map[string]func(*CaseCSVRow, string){
	"caseid_type":            func(r *CaseCSVRow, v string) { r.CaseIDType = v },
	"caseid_no":              func(r *CaseCSVRow, v string) { r.CaseIDNo = v },
	"filed_dd":               func(r *CaseCSVRow, v string) { r.FiledDD = v },
	"filed_mon":              func(r *CaseCSVRow, v string) { r.FiledMon = v },
	"filed_yyyy":             func(r *CaseCSVRow, v string) { r.FiledYYYY = v },
	"date_dd":                func(r *CaseCSVRow, v string) { r.DateDD = v },
	"date_mon":               func(r *CaseCSVRow, v string) { r.DateMon = v },
	"date_yyyy":              func(r *CaseCSVRow, v string) { r.DateYYYY = v },
	"filed_date":             func(r *CaseCSVRow, v string) { r.FiledDate = v },
	"court":                  func(r *CaseCSVRow, v string) { r.Court = v },
	"case_type":              func(r *CaseCSVRow, v string) { r.CaseType = v },
	"judge":                  func(r *CaseCSVRow, v string) { r.Judge = v },
	"outcome":                func(r *CaseCSVRow, v string) { r.Outcome = v },
	"comingfor":              func(r *CaseCSVRow, v string) { r.ComingFor = v },
	"legalrep":               func(r *CaseCSVRow, v string) { r.LegalRep = v },
	"total_activities":       func(r *CaseCSVRow, v string) { r.TotalActivities = v },
	"male_applicant":         func(r *CaseCSVRow, v string) { r.MaleApplicant = v },
	"female_applicant":       func(r *CaseCSVRow, v string) { r.FemaleApplicant = v },
	"organization_applicant": func(r *CaseCSVRow, v string) { r.OrganizationApplicant = v },
	"male_defendant":         func(r *CaseCSVRow, v string) { r.MaleDefendant = v },
	"female_defendant":       func(r *CaseCSVRow, v string) { r.FemaleDefendant = v },
	"organization_defendant": func(r *CaseCSVRow, v string) { r.OrganizationDefendant = v },
	"original_court":         func(r *CaseCSVRow, v string) { r.OriginalCourt = v },
	"original_number":        func(r *CaseCSVRow, v string) { r.OriginalNumber = v },
	"original_year":          func(r *CaseCSVRow, v string) { r.OriginalYear = v },
}

// RowFieldError is one failed validation check on a row.
type RowFieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// RowValidator validates a single row independently of all others.
type RowValidator func(row CaseCSVRow) []RowFieldError

// RowError records an invalid row with its 1-based row number and raw data.
type RowError struct {
	Row     int      `json:"row"`
	Raw     []string `json:"raw"`
	Message string   `json:"message"`
}

type ParseCSVOptions struct {
	MaxRows         int
	SkipEmptyRows   bool
	Headers         []string // when set, the file has no header row
	Validator       RowValidator
	ContinueOnError bool
	Separator       rune // defaults to ','
}

type ParseCSVResult struct {
	Data             []CaseCSVRow `json:"data"`
	Errors           []RowError   `json:"errors"`
	TotalRows        int          `json:"total_rows"`
	SuccessfulRows   int          `json:"successful_rows"`
	FailedRows       int          `json:"failed_rows"`
	EmptyRowsSkipped int          `json:"empty_rows_skipped"`
	Headers          []string     `json:"headers"`
	Warnings         []string     `json:"warnings"`
}

// ParseCSVFile streams a delimited file into typed rows. The stream is read
// once; re-parsing requires re-opening the file.
func ParseCSVFile(path string, opts ParseCSVOptions) (*ParseCSVResult, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // tolerate ragged rows
	if opts.Separator != 0 {
		reader.Comma = opts.Separator
	}

	result := &ParseCSVResult{}

	var headers []string
	if len(opts.Headers) > 0 {
		headers = opts.Headers
	} else {
		headers, err = reader.Read()
		if err == io.EOF {
			return nil, errors.New("CSV file is empty")
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV header row: %w", err)
		}
	}
	result.Headers = headers

	setters := make([]func(*CaseCSVRow, string), len(headers))
	for i, header := range headers {
		setters[i] = columnSetters[normalizeHeader(header)]
	}

	rowNumber := 0
	for {
		if opts.MaxRows > 0 && len(result.Data) >= opts.MaxRows {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("row limit of %d reached, remaining rows were not read", opts.MaxRows))
			break
		}

		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}
		rowNumber++
		result.TotalRows++

		if isEmptyRecord(record) {
			if opts.SkipEmptyRows {
				result.EmptyRowsSkipped++
				continue
			}
		}

		row := CaseCSVRow{LineNumber: rowNumber, Raw: record}
		for i, value := range record {
			if i < len(setters) && setters[i] != nil {
				setters[i](&row, strings.TrimSpace(value))
			}
		}

		if opts.Validator != nil {
			if fieldErrors := opts.Validator(row); len(fieldErrors) > 0 {
				message := joinFieldErrors(fieldErrors)
				if !opts.ContinueOnError {
					return nil, fmt.Errorf("CSV validation failed at row %d: %s", rowNumber, message)
				}
				result.Errors = append(result.Errors, RowError{
					Row:     rowNumber,
					Raw:     record,
					Message: message,
				})
				continue
			}
		}

		result.Data = append(result.Data, row)
	}

	result.SuccessfulRows = len(result.Data)
	result.FailedRows = len(result.Errors)
	return result, nil
}

// CSVStructureReport compares a file's headers against an expected set.
type CSVStructureReport struct {
	Valid          bool     `json:"valid"`
	MissingHeaders []string `json:"missing_headers"`
	ExtraHeaders   []string `json:"extra_headers"`
}

// ValidateCSVStructure reports headers missing from or extra to the expected set.
func ValidateCSVStructure(headers []string, expected []string) CSVStructureReport {
	report := CSVStructureReport{}

	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[normalizeHeader(h)] = true
	}
	wanted := make(map[string]bool, len(expected))
	for _, h := range expected {
		wanted[normalizeHeader(h)] = true
	}

	for _, h := range expected {
		if !present[normalizeHeader(h)] {
			report.MissingHeaders = append(report.MissingHeaders, h)
		}
	}
	for _, h := range headers {
		if !wanted[normalizeHeader(h)] {
			report.ExtraHeaders = append(report.ExtraHeaders, h)
		}
	}

	report.Valid = len(report.MissingHeaders) == 0
	return report
}

// CSVStats is a cheap summary of a file: row count plus a small sample,
// produced without materializing the whole file.
type CSVStats struct {
	TotalRows  int        `json:"total_rows"`
	Headers    []string   `json:"headers"`
	SampleRows [][]string `json:"sample_rows"`
}

const statsSampleSize = 5

// SampleCSVStats counts data rows and captures the first few as a sample.
func SampleCSVStats(path string, separator rune) (*CSVStats, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	if separator != 0 {
		reader.Comma = separator
	}

	headers, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New("CSV file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header row: %w", err)
	}

	stats := &CSVStats{Headers: headers}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}
		stats.TotalRows++
		if len(stats.SampleRows) < statsSampleSize {
			stats.SampleRows = append(stats.SampleRows, record)
		}
	}

	return stats, nil
}

// DuplicateRow flags a row whose composite key was already seen.
type DuplicateRow struct {
	Row         int `json:"row"`
	DuplicateOf int `json:"duplicate_of"`
}

// DetectDuplicateRows reports every row whose composite key (built from the
// supplied field names) matches an earlier row. The first occurrence is
// never reported.
func DetectDuplicateRows(rows []CaseCSVRow, keyFields []string) []DuplicateRow {
	firstSeen := make(map[string]int)
	var duplicates []DuplicateRow

	for _, row := range rows {
		parts := make([]string, 0, len(keyFields))
		blank := true
		for _, field := range keyFields {
			value := strings.ToLower(strings.TrimSpace(row.Field(field)))
			if value != "" {
				blank = false
			}
			parts = append(parts, value)
		}
		if blank {
			continue
		}

		key := strings.Join(parts, "|")
		if first, seen := firstSeen[key]; seen {
			duplicates = append(duplicates, DuplicateRow{Row: row.LineNumber, DuplicateOf: first})
			continue
		}
		firstSeen[key] = row.LineNumber
	}

	return duplicates
}

func normalizeHeader(header string) string {
	header = strings.TrimPrefix(header, "\ufeff")
	header = strings.ToLower(strings.TrimSpace(header))
	return strings.ReplaceAll(header, " ", "_")
}

func isEmptyRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

func joinFieldErrors(fieldErrors []RowFieldError) string {
	parts := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return strings.Join(parts, "; ")
}
