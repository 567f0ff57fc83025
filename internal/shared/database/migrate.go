package database

import (
	"tablebook/internal/availability"
	"tablebook/internal/staff"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&staff.Staff{},
		&availability.FormResponse{},
	); err != nil {
		return err
	}
	return MigrateIndexes(db)
}
