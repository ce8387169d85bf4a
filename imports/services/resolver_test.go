package services

import (
	"strings"
	"testing"

	"case-management-backend/db/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCourtRepo struct {
	byName  map[string]*models.Court
	byCode  map[string]*models.Court
	creates int
}

func newFakeCourtRepo() *fakeCourtRepo {
	return &fakeCourtRepo{
		byName: make(map[string]*models.Court),
		byCode: make(map[string]*models.Court),
	}
}

func (f *fakeCourtRepo) GetCourtByName(name string) (*models.Court, error) {
	if court, ok := f.byName[strings.ToLower(name)]; ok {
		return court, nil
	}
	return nil, nil
}

func (f *fakeCourtRepo) CourtCodeExists(code string) (bool, error) {
	_, ok := f.byCode[code]
	return ok, nil
}

func (f *fakeCourtRepo) CreateOrFetchCourt(court *models.Court) (*models.Court, error) {
	if existing, ok := f.byCode[court.Code]; ok {
		return existing, nil
	}
	court.ID = uuid.New()
	f.byName[strings.ToLower(court.Name)] = court
	f.byCode[court.Code] = court
	f.creates++
	return court, nil
}

func (f *fakeCourtRepo) GetOrCreateUnknownCourt() (*models.Court, error) {
	return f.CreateOrFetchCourt(&models.Court{
		Name:      models.UnknownCourtName,
		Code:      models.UnknownCourtCode,
		CourtType: "UNK",
		IsActive:  true,
	})
}

type fakeCaseTypeRepo struct {
	byCode  map[string]*models.CaseType
	creates int
}

func newFakeCaseTypeRepo() *fakeCaseTypeRepo {
	return &fakeCaseTypeRepo{byCode: make(map[string]*models.CaseType)}
}

func (f *fakeCaseTypeRepo) GetCaseTypeByCode(code string) (*models.CaseType, error) {
	if ct, ok := f.byCode[code]; ok {
		return ct, nil
	}
	return nil, nil
}

func (f *fakeCaseTypeRepo) CreateOrFetchCaseType(caseType *models.CaseType) (*models.CaseType, error) {
	if existing, ok := f.byCode[caseType.Code]; ok {
		return existing, nil
	}
	caseType.ID = uuid.New()
	f.byCode[caseType.Code] = caseType
	f.creates++
	return caseType, nil
}

func (f *fakeCaseTypeRepo) GetOrCreateUnknownCaseType() (*models.CaseType, error) {
	return f.CreateOrFetchCaseType(&models.CaseType{
		Code: models.UnknownCaseTypeCode,
		Name: "Unknown Case Type",
	})
}

func newTestResolver() (*ReferenceResolver, *fakeCourtRepo, *fakeCaseTypeRepo) {
	courts := newFakeCourtRepo()
	caseTypes := newFakeCaseTypeRepo()
	return NewReferenceResolver(courts, caseTypes, zap.NewNop()), courts, caseTypes
}

func TestResolveAll_CreatesCourtOncePerName(t *testing.T) {
	resolver, courts, _ := newTestResolver()

	rows := []CaseCSVRow{
		{Court: "Harare High Court", CaseIDType: "HCC", CaseType: "Criminal"},
		{Court: "harare high court", CaseIDType: "HCC", CaseType: "Criminal"},
		{Court: "Harare High Court  ", CaseIDType: "HCC", CaseType: "Criminal"},
	}
	require.NoError(t, resolver.ResolveAll(rows))

	// placeholder + one real court, despite three case variants
	assert.Equal(t, 2, courts.creates)

	refs := resolver.References(rows[0])
	assert.Equal(t, refs.CourtID, resolver.References(rows[1]).CourtID)
	assert.NotEqual(t, uuid.Nil, refs.CourtID)
}

func TestResolveAll_BlankCourtMapsToPlaceholder(t *testing.T) {
	resolver, courts, _ := newTestResolver()

	rows := []CaseCSVRow{{Court: "", CaseIDType: "HCC"}}
	require.NoError(t, resolver.ResolveAll(rows))

	unknown, err := courts.GetCourtByName(models.UnknownCourtName)
	require.NoError(t, err)
	require.NotNil(t, unknown)
	assert.Equal(t, unknown.ID, resolver.References(rows[0]).CourtID)

	// the literal placeholder name maps there too
	rows = append(rows, CaseCSVRow{Court: "Unknown Court"})
	require.NoError(t, resolver.ResolveAll(rows))
	assert.Equal(t, unknown.ID, resolver.References(rows[1]).CourtID)
}

func TestResolveAll_ReusesExistingCourt(t *testing.T) {
	resolver, courts, _ := newTestResolver()

	existing, err := courts.CreateOrFetchCourt(&models.Court{
		Name: "Bulawayo High Court", Code: "HC-BULAWAYO-HIGH-COURT", CourtType: "HC", IsActive: true,
	})
	require.NoError(t, err)
	created := courts.creates

	rows := []CaseCSVRow{{Court: "Bulawayo High Court", CaseIDType: "HC"}}
	require.NoError(t, resolver.ResolveAll(rows))

	assert.Equal(t, existing.ID, resolver.References(rows[0]).CourtID)
	// only the placeholder was created on top
	assert.Equal(t, created+1, courts.creates)
}

func TestResolveAll_OriginalCourt(t *testing.T) {
	resolver, _, _ := newTestResolver()

	rows := []CaseCSVRow{{
		Court:         "Gweru Magistrates",
		OriginalCourt: "Kwekwe Magistrates",
		CaseIDType:    "MC",
	}}
	require.NoError(t, resolver.ResolveAll(rows))

	refs := resolver.References(rows[0])
	require.NotNil(t, refs.OriginalCourtID)
	assert.NotEqual(t, refs.CourtID, *refs.OriginalCourtID)

	// rows without an original court get no pointer at all
	refs = resolver.References(CaseCSVRow{Court: "Gweru Magistrates"})
	assert.Nil(t, refs.OriginalCourtID)
}

func TestResolveAll_CaseTypes(t *testing.T) {
	resolver, _, caseTypes := newTestResolver()

	rows := []CaseCSVRow{
		{Court: "A", CaseIDType: "HCC", CaseType: "Criminal"},
		{Court: "A", CaseIDType: "hcc", CaseType: "Criminal"},
		{Court: "A"}, // no case type information at all
	}
	require.NoError(t, resolver.ResolveAll(rows))

	ct, err := caseTypes.GetCaseTypeByCode("HCC")
	require.NoError(t, err)
	require.NotNil(t, ct)
	assert.Equal(t, "Criminal", ct.Name)
	assert.Equal(t, ct.ID, resolver.References(rows[0]).CaseTypeID)
	assert.Equal(t, ct.ID, resolver.References(rows[1]).CaseTypeID)

	unknown, err := caseTypes.GetCaseTypeByCode(models.UnknownCaseTypeCode)
	require.NoError(t, err)
	require.NotNil(t, unknown)
	assert.Equal(t, unknown.ID, resolver.References(rows[2]).CaseTypeID)
}

func TestClassifyCourtType(t *testing.T) {
	tests := []struct {
		caseIDType string
		want       string
	}{
		{"HCC123", "HC"},
		{"hcc", "HC"},
		{"HC", "HC"},
		{"MCC", "MC"},
		{"ELRC", "ELRC"},
		{"ELC", "ELC"},
		{"SCC", "SCC"},
		{"SC", "SC"},
		{"COA", "COA"},
		{"KC", "KC"},
		{"", "TC"},
		{"XYZ", "TC"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyCourtType(tt.caseIDType), "caseid_type %q", tt.caseIDType)
	}
}

func TestSlugifyCourtCode(t *testing.T) {
	assert.Equal(t, "HC-HARARE-HIGH-COURT", SlugifyCourtCode("HC-Harare High Court"))
	assert.Equal(t, "MC-ST-MARY-S", SlugifyCourtCode("MC-St. Mary's"))

	long := SlugifyCourtCode("HC-" + strings.Repeat("Really Long Court Name ", 5))
	assert.LessOrEqual(t, len(long), 40)
	assert.False(t, strings.HasSuffix(long, "-"))
}

func TestGenerateUniqueCourtCode_CollisionSuffix(t *testing.T) {
	resolver, courts, _ := newTestResolver()

	_, err := courts.CreateOrFetchCourt(&models.Court{
		Name: "Other", Code: "MC-GWERU-MAGISTRATES", CourtType: "MC", IsActive: true,
	})
	require.NoError(t, err)

	code, err := resolver.generateUniqueCourtCode("MC", "Gweru Magistrates")
	require.NoError(t, err)
	assert.Equal(t, "MC-GWERU-MAGISTRATES-2", code)
}
