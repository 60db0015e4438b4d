package database

import (
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/dietvite/backend/internal/models"
)

// RunMigrations brings the schema up to date
func RunMigrations(db *gorm.DB) error {
	log.Printf("Running %s auto-migration", db.Dialector.Name())
	if err := db.AutoMigrate(
		&models.User{},
		&models.Challenge{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
