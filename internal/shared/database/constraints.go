package database

import (
	"gorm.io/gorm"
)

// MigrateIndexes adds the indexes the availability query leans on
func MigrateIndexes(db *gorm.DB) error {
	// Typed dates are grouped per day on every calendar load
	err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_form_responses_date_value
		ON form_responses (date_value);
	`).Error
	if err != nil {
		return err
	}

	// Staff logins look up by lower-cased email
	return db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_staff_email_lower
		ON staff (LOWER(email));
	`).Error
}
