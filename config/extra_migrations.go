package config

import "gorm.io/gorm"

// CreateCourtNameLowerIndex creates an expression index over LOWER(name) on
// courts.
//
// Why this is needed:
// The import resolver looks courts up case-insensitively, so source files
// that spell the same court "Harare High Court" and "HARARE HIGH COURT" map
// to one row. AutoMigrate can only build column indexes; without this one
// every LOWER(name) lookup is a sequential scan, which compounds badly on
// large imports that resolve thousands of distinct court spellings.
func CreateCourtNameLowerIndex(db *gorm.DB) error {
	return db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_courts_lower_name
		ON courts (LOWER(name));
	`).Error
}
