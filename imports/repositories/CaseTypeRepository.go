package repositories

import (
	"errors"

	"case-management-backend/db/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CaseTypeRepository interface {
	GetCaseTypeByCode(code string) (*models.CaseType, error)
	CreateOrFetchCaseType(caseType *models.CaseType) (*models.CaseType, error)
	GetOrCreateUnknownCaseType() (*models.CaseType, error)
}

type caseTypeRepository struct {
	db *gorm.DB
}

func NewCaseTypeRepository(db *gorm.DB) CaseTypeRepository {
	return &caseTypeRepository{
		db: db,
	}
}

// GetCaseTypeByCode finds a case type by code. Returns nil without error
// when no such case type exists.
func (r *caseTypeRepository) GetCaseTypeByCode(code string) (*models.CaseType, error) {
	var caseType models.CaseType
	err := r.db.First(&caseType, "code = ?", code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &caseType, nil
}

// CreateOrFetchCaseType inserts a case type, or fetches the existing row on
// a concurrent code collision.
func (r *caseTypeRepository) CreateOrFetchCaseType(caseType *models.CaseType) (*models.CaseType, error) {
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoNothing: true,
	}).Create(caseType)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		var existing models.CaseType
		if err := r.db.First(&existing, "code = ?", caseType.Code).Error; err != nil {
			return nil, err
		}
		return &existing, nil
	}
	return caseType, nil
}

// GetOrCreateUnknownCaseType returns the single placeholder case type,
// creating it on first use.
func (r *caseTypeRepository) GetOrCreateUnknownCaseType() (*models.CaseType, error) {
	placeholder := models.CaseType{
		Code: models.UnknownCaseTypeCode,
		Name: "Unknown Case Type",
	}
	return r.CreateOrFetchCaseType(&placeholder)
}
