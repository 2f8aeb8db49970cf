package db

import (
	"fmt"

	"github.com/meinhoongagan/urban-services/models"
	"gorm.io/gorm"
)

// Migrate creates or updates the accounts and profiles tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Account{},
		&models.Profile{},
	); err != nil {
		return fmt.Errorf("db: migrate: %w", err)
	}
	return nil
}
