package repositories

import (
	"errors"

	"case-management-backend/db/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CourtRepository interface {
	GetCourtByName(name string) (*models.Court, error)
	CourtCodeExists(code string) (bool, error)
	CreateOrFetchCourt(court *models.Court) (*models.Court, error)
	GetOrCreateUnknownCourt() (*models.Court, error)
}

type courtRepository struct {
	db *gorm.DB
}

func NewCourtRepository(db *gorm.DB) CourtRepository {
	return &courtRepository{
		db: db,
	}
}

// GetCourtByName finds an active court by its display name, ignoring case.
// Returns nil without error when no such court exists. The LOWER(name)
// comparison is backed by an expression index (see config.CreateCourtNameLowerIndex).
func (r *courtRepository) GetCourtByName(name string) (*models.Court, error) {
	var court models.Court
	err := r.db.First(&court, "LOWER(name) = LOWER(?) AND is_active = ?", name, true).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &court, nil
}

// CourtCodeExists checks code collisions across all courts, inactive and
// soft-deleted ones included, so generated codes never clash with history.
func (r *courtRepository) CourtCodeExists(code string) (bool, error) {
	var count int64
	err := r.db.Unscoped().Model(&models.Court{}).Where("code = ?", code).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateOrFetchCourt inserts a court, or fetches the existing row when
// another writer created the same code concurrently. The unique constraint
// on code is the arbiter; no lock is taken.
func (r *courtRepository) CreateOrFetchCourt(court *models.Court) (*models.Court, error) {
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoNothing: true,
	}).Create(court)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		var existing models.Court
		if err := r.db.First(&existing, "code = ?", court.Code).Error; err != nil {
			return nil, err
		}
		return &existing, nil
	}
	return court, nil
}

// GetOrCreateUnknownCourt returns the single placeholder court, creating it
// on first use.
func (r *courtRepository) GetOrCreateUnknownCourt() (*models.Court, error) {
	placeholder := models.Court{
		Name:      models.UnknownCourtName,
		Code:      models.UnknownCourtCode,
		CourtType: "UNK",
		IsActive:  true,
	}
	return r.CreateOrFetchCourt(&placeholder)
}
