package services

import (
	"fmt"
	"regexp"
	"strings"

	"case-management-backend/db/models"
	"case-management-backend/imports/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// courtTypePrefixes classifies a court from the row's case-id-type field.
// Matched case-insensitively, longest prefix first; anything unmatched
// falls back to the generic trial-court classification.
var courtTypePrefixes = []struct {
	Prefix string
	Code   string
}{
	{"ELRC", "ELRC"},
	{"SCC", "SCC"},
	{"ELC", "ELC"},
	{"COA", "COA"},
	{"HCC", "HC"},
	{"MCC", "MC"},
	{"SC", "SC"},
	{"HC", "HC"},
	{"MC", "MC"},
	{"KC", "KC"},
	{"TC", "TC"},
}

// DefaultCourtType is used when no prefix matches.
const DefaultCourtType = "TC"

// maxCourtCodeLength bounds generated court codes.
const maxCourtCodeLength = 40

var nonAlphanumericRun = regexp.MustCompile(`[^A-Z0-9]+`)

// ReferenceResolver maps raw court/case-type text to persistent entity ids.
// One resolver is built per import run; its memoization maps are populated
// by ResolveAll before the write phase starts and are read-only afterwards,
// so the per-row lookups during transformation never touch the database.
//
// Resolution never fails a row: anything undeterminable degrades to the
// placeholder entities. Only storage errors propagate.
type ReferenceResolver struct {
	courtRepo    repositories.CourtRepository
	caseTypeRepo repositories.CaseTypeRepository
	logger       *zap.Logger

	courts    map[string]uuid.UUID
	caseTypes map[string]uuid.UUID

	unknownCourtID    uuid.UUID
	unknownCaseTypeID uuid.UUID
}

func NewReferenceResolver(courtRepo repositories.CourtRepository, caseTypeRepo repositories.CaseTypeRepository, logger *zap.Logger) *ReferenceResolver {
	return &ReferenceResolver{
		courtRepo:    courtRepo,
		caseTypeRepo: caseTypeRepo,
		logger:       logger,
		courts:       make(map[string]uuid.UUID),
		caseTypes:    make(map[string]uuid.UUID),
	}
}

// ResolveAll scans every row and populates the memoization maps, creating
// reference entities on first sight. Called once per run, before writing.
func (r *ReferenceResolver) ResolveAll(rows []CaseCSVRow) error {
	unknownCourt, err := r.courtRepo.GetOrCreateUnknownCourt()
	if err != nil {
		return fmt.Errorf("failed to resolve placeholder court: %w", err)
	}
	r.unknownCourtID = unknownCourt.ID

	unknownType, err := r.caseTypeRepo.GetOrCreateUnknownCaseType()
	if err != nil {
		return fmt.Errorf("failed to resolve placeholder case type: %w", err)
	}
	r.unknownCaseTypeID = unknownType.ID

	for _, row := range rows {
		if _, err := r.resolveCourt(row.Court, row.CaseIDType); err != nil {
			return err
		}
		if row.OriginalCourt != "" {
			if _, err := r.resolveCourt(row.OriginalCourt, row.CaseIDType); err != nil {
				return err
			}
		}
		if _, err := r.resolveCaseType(row); err != nil {
			return err
		}
	}
	return nil
}

// References returns the resolved ids for a row. Rows whose court or case
// type was never resolvable get the placeholder ids.
func (r *ReferenceResolver) References(row CaseCSVRow) ResolvedReferences {
	refs := ResolvedReferences{
		CourtID:    r.lookupCourt(row.Court),
		CaseTypeID: r.lookupCaseType(row),
	}
	if row.OriginalCourt != "" {
		originalID := r.lookupCourt(row.OriginalCourt)
		refs.OriginalCourtID = &originalID
	}
	return refs
}

func (r *ReferenceResolver) lookupCourt(name string) uuid.UUID {
	if id, ok := r.courts[courtKey(name)]; ok {
		return id
	}
	return r.unknownCourtID
}

func (r *ReferenceResolver) lookupCaseType(row CaseCSVRow) uuid.UUID {
	if id, ok := r.caseTypes[caseTypeKey(row)]; ok {
		return id
	}
	return r.unknownCaseTypeID
}

// resolveCourt maps a court name to a persistent id, creating the court on
// first encounter. The literal placeholder name always maps to the single
// "Unknown Court" row.
func (r *ReferenceResolver) resolveCourt(name, caseIDType string) (uuid.UUID, error) {
	key := courtKey(name)
	if id, ok := r.courts[key]; ok {
		return id, nil
	}

	trimmed := strings.TrimSpace(name)
	if trimmed == "" || strings.EqualFold(trimmed, models.UnknownCourtName) {
		r.courts[key] = r.unknownCourtID
		return r.unknownCourtID, nil
	}

	existing, err := r.courtRepo.GetCourtByName(trimmed)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to look up court '%s': %w", trimmed, err)
	}
	if existing != nil {
		r.courts[key] = existing.ID
		return existing.ID, nil
	}

	courtType := ClassifyCourtType(caseIDType)
	code, err := r.generateUniqueCourtCode(courtType, trimmed)
	if err != nil {
		return uuid.Nil, err
	}

	created, err := r.courtRepo.CreateOrFetchCourt(&models.Court{
		Name:      trimmed,
		Code:      code,
		CourtType: courtType,
		IsActive:  true,
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create court '%s': %w", trimmed, err)
	}

	r.logger.Info("Created court during import",
		zap.String("name", trimmed),
		zap.String("code", created.Code),
		zap.String("court_type", courtType),
	)
	r.courts[key] = created.ID
	return created.ID, nil
}

// resolveCaseType maps a row's case-type information to a persistent id.
// The code comes from the case-id-type (falling back to the case-type
// column); the display name defaults to the code when no distinct name is
// present. Rows with neither map to the UNKNOWN placeholder.
func (r *ReferenceResolver) resolveCaseType(row CaseCSVRow) (uuid.UUID, error) {
	key := caseTypeKey(row)
	if id, ok := r.caseTypes[key]; ok {
		return id, nil
	}

	code := strings.ToUpper(firstNonEmpty(row.CaseIDType, row.CaseType))
	if code == "" {
		r.caseTypes[key] = r.unknownCaseTypeID
		return r.unknownCaseTypeID, nil
	}

	name := firstNonEmpty(row.CaseType, code)

	created, err := r.caseTypeRepo.CreateOrFetchCaseType(&models.CaseType{
		Code: code,
		Name: name,
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to resolve case type '%s': %w", code, err)
	}

	r.caseTypes[key] = created.ID
	return created.ID, nil
}

// generateUniqueCourtCode slugifies "{type}-{name}" and probes for
// collisions, appending an incrementing numeric suffix until an unused code
// is found. The collision check includes inactive courts.
func (r *ReferenceResolver) generateUniqueCourtCode(courtType, name string) (string, error) {
	base := SlugifyCourtCode(fmt.Sprintf("%s-%s", courtType, name))

	candidate := base
	suffix := 2
	for {
		exists, err := r.courtRepo.CourtCodeExists(candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check court code '%s': %w", candidate, err)
		}
		if !exists {
			return candidate, nil
		}

		tail := fmt.Sprintf("-%d", suffix)
		trimmedBase := base
		if len(trimmedBase)+len(tail) > maxCourtCodeLength {
			trimmedBase = strings.TrimRight(trimmedBase[:maxCourtCodeLength-len(tail)], "-")
		}
		candidate = trimmedBase + tail
		suffix++
	}
}

// ClassifyCourtType infers a court-type classification from the row's
// case-id-type field by case-insensitive prefix match.
func ClassifyCourtType(caseIDType string) string {
	upper := strings.ToUpper(strings.TrimSpace(caseIDType))
	for _, entry := range courtTypePrefixes {
		if strings.HasPrefix(upper, entry.Prefix) {
			return entry.Code
		}
	}
	return DefaultCourtType
}

// SlugifyCourtCode uppercases the input, collapses non-alphanumeric runs to
// single dashes and truncates to the code length limit.
func SlugifyCourtCode(input string) string {
	slug := nonAlphanumericRun.ReplaceAllString(strings.ToUpper(input), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > maxCourtCodeLength {
		slug = strings.TrimRight(slug[:maxCourtCodeLength], "-")
	}
	return slug
}

func courtKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func caseTypeKey(row CaseCSVRow) string {
	return strings.ToLower(firstNonEmpty(row.CaseIDType, row.CaseType))
}
