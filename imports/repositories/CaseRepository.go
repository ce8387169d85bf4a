package repositories

import (
	"context"

	"case-management-backend/db/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultChunkSize bounds the number of records per INSERT statement.
const DefaultChunkSize = 500

// ImportCounts reports how many records the writer actually created per
// entity kind. Duplicate cases skipped by the conflict clause are not
// counted.
type ImportCounts struct {
	Cases       int `json:"cases"`
	Activities  int `json:"activities"`
	Assignments int `json:"assignments"`
}

type CaseRepository interface {
	ImportCaseRecords(ctx context.Context, cases []models.Case, activities []models.CaseActivity, assignments []models.CaseJudgeAssignment, chunkSize int) (*ImportCounts, error)
}

type caseRepository struct {
	db *gorm.DB
}

func NewCaseRepository(db *gorm.DB) CaseRepository {
	return &caseRepository{
		db: db,
	}
}

// ImportCaseRecords persists all records for one batch inside a single
// transaction, inserting each slice in fixed-size chunks. Case inserts skip
// rows that collide on (case_number, court_id): a repeated case number is
// silently not re-inserted, and the skipped row's activities and judge
// assignments are dropped with it so no child record points at a case UUID
// that never persisted.
func (r *caseRepository) ImportCaseRecords(
	ctx context.Context,
	cases []models.Case,
	activities []models.CaseActivity,
	assignments []models.CaseJudgeAssignment,
	chunkSize int,
) (*ImportCounts, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	counts := &ImportCounts{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		skipped := make(map[uuid.UUID]bool)
		for _, chunk := range ChunkRecords(cases, chunkSize) {
			result := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "case_number"}, {Name: "court_id"}},
				DoNothing: true,
			}).Create(&chunk)
			if result.Error != nil {
				return result.Error
			}
			counts.Cases += int(result.RowsAffected)

			if int(result.RowsAffected) == len(chunk) {
				continue
			}
			// Some rows hit the conflict clause. Inserted rows kept their
			// pre-generated IDs, so membership identifies the survivors.
			ids := make([]uuid.UUID, len(chunk))
			for i := range chunk {
				ids[i] = chunk[i].ID
			}
			var persisted []uuid.UUID
			if err := tx.Model(&models.Case{}).Where("id IN ?", ids).Pluck("id", &persisted).Error; err != nil {
				return err
			}
			inserted := make(map[uuid.UUID]bool, len(persisted))
			for _, id := range persisted {
				inserted[id] = true
			}
			for _, id := range ids {
				if !inserted[id] {
					skipped[id] = true
				}
			}
		}

		activities = activitiesForInsertedCases(activities, skipped)
		assignments = assignmentsForInsertedCases(assignments, skipped)

		for _, chunk := range ChunkRecords(activities, chunkSize) {
			result := tx.Create(&chunk)
			if result.Error != nil {
				return result.Error
			}
			counts.Activities += int(result.RowsAffected)
		}

		for _, chunk := range ChunkRecords(assignments, chunkSize) {
			result := tx.Create(&chunk)
			if result.Error != nil {
				return result.Error
			}
			counts.Assignments += int(result.RowsAffected)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return counts, nil
}

// activitiesForInsertedCases drops activities whose parent case was skipped
// by the conflict clause.
func activitiesForInsertedCases(activities []models.CaseActivity, skipped map[uuid.UUID]bool) []models.CaseActivity {
	if len(skipped) == 0 {
		return activities
	}
	kept := make([]models.CaseActivity, 0, len(activities))
	for _, activity := range activities {
		if !skipped[activity.CaseID] {
			kept = append(kept, activity)
		}
	}
	return kept
}

// assignmentsForInsertedCases drops judge assignments whose parent case was
// skipped by the conflict clause.
func assignmentsForInsertedCases(assignments []models.CaseJudgeAssignment, skipped map[uuid.UUID]bool) []models.CaseJudgeAssignment {
	if len(skipped) == 0 {
		return assignments
	}
	kept := make([]models.CaseJudgeAssignment, 0, len(assignments))
	for _, assignment := range assignments {
		if !skipped[assignment.CaseID] {
			kept = append(kept, assignment)
		}
	}
	return kept
}

// ChunkRecords splits a slice into consecutive chunks of at most size
// elements. The last chunk holds the remainder.
func ChunkRecords[T any](records []T, size int) [][]T {
	if size <= 0 {
		size = DefaultChunkSize
	}
	var chunks [][]T
	for start := 0; start < len(records); start += size {
		end := start + size
		if end > len(records) {
			end = len(records)
		}
		chunks = append(chunks, records[start:end])
	}
	return chunks
}
