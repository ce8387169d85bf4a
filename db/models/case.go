package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CaseStatus is derived from the row's outcome text during import.
type CaseStatus string

const (
	CaseStatusActive   CaseStatus = "ACTIVE"
	CaseStatusResolved CaseStatus = "RESOLVED"
)

// Case is one court case record. Case numbers are not globally unique;
// uniqueness is the (case_number, court_id) composite, enforced by the
// index below and relied on by the chunked writer's skip-on-duplicate
// insert semantics.
type Case struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;" json:"id"`
	CaseNumber string    `gorm:"not null;uniqueIndex:idx_cases_number_court" json:"case_number"`

	CourtID         uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_cases_number_court;index" json:"court_id"`
	OriginalCourtID *uuid.UUID `gorm:"type:uuid;index" json:"original_court_id"`
	CaseTypeID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"case_type_id"`

	FiledDate time.Time  `gorm:"not null" json:"filed_date"`
	Status    CaseStatus `gorm:"type:varchar(20);default:'ACTIVE';index" json:"status"`

	TotalActivities int `gorm:"default:0" json:"total_activities"`

	// Party counts, coerced leniently from the source row.
	MaleApplicant         int `gorm:"default:0" json:"male_applicant"`
	FemaleApplicant       int `gorm:"default:0" json:"female_applicant"`
	OrganizationApplicant int `gorm:"default:0" json:"organization_applicant"`
	MaleDefendant         int `gorm:"default:0" json:"male_defendant"`
	FemaleDefendant       int `gorm:"default:0" json:"female_defendant"`
	OrganizationDefendant int `gorm:"default:0" json:"organization_defendant"`

	// Structured summary of the six party counts.
	Parties datatypes.JSON `json:"parties"`

	HasLegalRepresentation bool `gorm:"default:false" json:"has_legal_representation"`

	OriginalCaseNumber *string `json:"original_case_number"`
	OriginalYear       *int    `json:"original_year"`

	Court    *Court    `gorm:"foreignKey:CourtID" json:"court,omitempty"`
	CaseType *CaseType `gorm:"foreignKey:CaseTypeID" json:"case_type,omitempty"`

	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// CaseActivity is a per-row derived record created alongside a Case in the
// same transaction when the payload carries activity data.
type CaseActivity struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key;" json:"id"`
	CaseID       uuid.UUID `gorm:"type:uuid;not null;index" json:"case_id"`
	ActivityDate time.Time `json:"activity_date"`
	ActivityType string    `json:"activity_type"`
	Outcome      string    `json:"outcome"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// CaseJudgeAssignment links a case to the judge named on the source row.
type CaseJudgeAssignment struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;" json:"id"`
	CaseID     uuid.UUID `gorm:"type:uuid;not null;index" json:"case_id"`
	JudgeName  string    `gorm:"not null" json:"judge_name"`
	AssignedAt time.Time `json:"assigned_at"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (c *Case) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (a *CaseActivity) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

func (j *CaseJudgeAssignment) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}
