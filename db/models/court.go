package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UnknownCourtName is the distinguished placeholder row reused whenever a
// row's court cannot be determined. Exactly one such row exists.
const UnknownCourtName = "Unknown Court"

// UnknownCourtCode is the fixed code of the placeholder court.
const UnknownCourtCode = "UNK-UNKNOWN-COURT"

// Court is a reference entity resolved (or created) during import.
type Court struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;" json:"id"`
	Name      string    `gorm:"not null;index" json:"name"`
	Code      string    `gorm:"unique;not null;index" json:"code"`
	CourtType string    `gorm:"type:varchar(10);not null" json:"court_type"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (ct *Court) BeforeCreate(tx *gorm.DB) error {
	if ct.ID == uuid.Nil {
		ct.ID = uuid.New()
	}
	return nil
}
