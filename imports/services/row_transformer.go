package services

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"case-management-backend/db/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// monthLookup maps 3-letter month names to time.Month for filed-date parsing.
var monthLookup = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// resolvedOutcomeKeywords mark a case as RESOLVED when present in the
// outcome text (case-insensitive).
var resolvedOutcomeKeywords = []string{"terminated", "dismissed", "closed", "resolved"}

var nonNumericPattern = regexp.MustCompile(`[^0-9-]`)

// PartyCounts is the structured summary serialized into the case's
// "parties" payload.
type PartyCounts struct {
	Applicants struct {
		Male         int `json:"male"`
		Female       int `json:"female"`
		Organization int `json:"organization"`
	} `json:"applicants"`
	Defendants struct {
		Male         int `json:"male"`
		Female       int `json:"female"`
		Organization int `json:"organization"`
	} `json:"defendants"`
}

// ResolvedReferences carries the entity ids the resolver assigned to a row.
type ResolvedReferences struct {
	CourtID         uuid.UUID
	OriginalCourtID *uuid.UUID
	CaseTypeID      uuid.UUID
}

// TransformedRow is the normalized output for one CSV row: always a case,
// plus optional activity/assignment records derived from the same row.
type TransformedRow struct {
	Case       models.Case
	Activity   *models.CaseActivity
	Assignment *models.CaseJudgeAssignment
}

// TransformRow converts a raw CSV row into normalized records. It is a pure
// function: coercion is lenient and never fails, missing data degrades to
// defaults.
func TransformRow(row CaseCSVRow, rowIndex int, refs ResolvedReferences) TransformedRow {
	filedDate := ParseFiledDate(row)

	counts := PartyCounts{}
	counts.Applicants.Male = CoerceCount(row.MaleApplicant)
	counts.Applicants.Female = CoerceCount(row.FemaleApplicant)
	counts.Applicants.Organization = CoerceCount(row.OrganizationApplicant)
	counts.Defendants.Male = CoerceCount(row.MaleDefendant)
	counts.Defendants.Female = CoerceCount(row.FemaleDefendant)
	counts.Defendants.Organization = CoerceCount(row.OrganizationDefendant)
	partiesJSON, _ := json.Marshal(counts)

	caseRecord := models.Case{
		ID:                     uuid.New(),
		CaseNumber:             DeriveCaseNumber(row, rowIndex),
		CourtID:                refs.CourtID,
		OriginalCourtID:        refs.OriginalCourtID,
		CaseTypeID:             refs.CaseTypeID,
		FiledDate:              filedDate,
		Status:                 DeriveCaseStatus(row.Outcome),
		TotalActivities:        DeriveTotalActivities(row),
		MaleApplicant:          counts.Applicants.Male,
		FemaleApplicant:        counts.Applicants.Female,
		OrganizationApplicant:  counts.Applicants.Organization,
		MaleDefendant:          counts.Defendants.Male,
		FemaleDefendant:        counts.Defendants.Female,
		OrganizationDefendant:  counts.Defendants.Organization,
		Parties:                datatypes.JSON(partiesJSON),
		HasLegalRepresentation: ParseLegalRep(row.LegalRep),
	}

	if number := strings.TrimSpace(row.OriginalNumber); number != "" {
		caseRecord.OriginalCaseNumber = &number
	}
	if year, err := strconv.Atoi(strings.TrimSpace(row.OriginalYear)); err == nil {
		caseRecord.OriginalYear = &year
	}

	transformed := TransformedRow{Case: caseRecord}

	if row.ComingFor != "" || row.Outcome != "" {
		transformed.Activity = &models.CaseActivity{
			ID:           uuid.New(),
			CaseID:       caseRecord.ID,
			ActivityDate: filedDate,
			ActivityType: row.ComingFor,
			Outcome:      row.Outcome,
		}
	}

	if judge := strings.TrimSpace(row.Judge); judge != "" {
		transformed.Assignment = &models.CaseJudgeAssignment{
			ID:         uuid.New(),
			CaseID:     caseRecord.ID,
			JudgeName:  judge,
			AssignedAt: filedDate,
		}
	}

	return transformed
}

// DeriveCaseNumber joins the non-empty case-id parts with "/". When the row
// carries none of them it falls back to "unknown-{rowIndex}" so every row
// still yields a distinct case number.
func DeriveCaseNumber(row CaseCSVRow, rowIndex int) string {
	year := firstNonEmpty(row.FiledYYYY, row.DateYYYY, row.OriginalYear)

	var parts []string
	for _, part := range []string{row.CaseIDType, row.CaseIDNo, year} {
		if strings.TrimSpace(part) != "" {
			parts = append(parts, strings.TrimSpace(part))
		}
	}
	if len(parts) == 0 {
		return fmt.Sprintf("unknown-%d", rowIndex)
	}
	return strings.Join(parts, "/")
}

// ParseFiledDate derives the filing date from the day/month-name/year
// triple, then the explicit filed_date column, then the current time.
func ParseFiledDate(row CaseCSVRow) time.Time {
	day := firstNonEmpty(row.FiledDD, row.DateDD)
	mon := firstNonEmpty(row.FiledMon, row.DateMon)
	year := firstNonEmpty(row.FiledYYYY, row.DateYYYY)

	if d, err := strconv.Atoi(day); err == nil {
		if y, err := strconv.Atoi(year); err == nil {
			if month, ok := lookupMonth(mon); ok {
				candidate := time.Date(y, month, d, 0, 0, 0, 0, time.UTC)
				// time.Date normalizes out-of-range days; reject those
				if candidate.Day() == d && candidate.Year() == y {
					return candidate
				}
			}
		}
	}

	if row.FiledDate != "" {
		for _, layout := range []string{"2006-01-02", "02/01/2006", time.RFC3339} {
			if parsed, err := time.Parse(layout, row.FiledDate); err == nil {
				return parsed.UTC()
			}
		}
	}

	return time.Now().UTC()
}

// DeriveCaseStatus returns RESOLVED when the outcome text contains a
// terminal keyword, ACTIVE otherwise.
func DeriveCaseStatus(outcome string) models.CaseStatus {
	lowered := strings.ToLower(outcome)
	for _, keyword := range resolvedOutcomeKeywords {
		if strings.Contains(lowered, keyword) {
			return models.CaseStatusResolved
		}
	}
	return models.CaseStatusActive
}

// DeriveTotalActivities returns the explicit numeric total when present,
// else 1 when the row has a coming-for entry, else 0.
func DeriveTotalActivities(row CaseCSVRow) int {
	if total := CoerceCount(row.TotalActivities); total != 0 {
		return total
	}
	if strings.TrimSpace(row.ComingFor) != "" {
		return 1
	}
	return 0
}

// CoerceCount strips non-numeric characters and parses the remainder as an
// integer. Blank or unparsable values degrade to 0, never an error.
func CoerceCount(value string) int {
	cleaned := nonNumericPattern.ReplaceAllString(strings.TrimSpace(value), "")
	if cleaned == "" || cleaned == "-" {
		return 0
	}
	n, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0
	}
	return n
}

// ParseLegalRep coerces boolean-like strings. Anything unrecognized is false.
func ParseLegalRep(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "yes", "y", "true", "1":
		return true
	default:
		return false
	}
}

// lookupMonth matches a month label by its first three letters.
func lookupMonth(label string) (time.Month, bool) {
	label = strings.ToLower(strings.TrimSpace(label))
	if len(label) < 3 {
		return 0, false
	}
	month, ok := monthLookup[label[:3]]
	return month, ok
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
