package database

import (
	"fmt"

	"flashsale/internal/model"
	"flashsale/pkg/log"
)

// AutoMigrate runs schema migration for all models
func AutoMigrate() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	err := DB.AutoMigrate(
		&model.Product{},
		&model.Order{},
		&model.AllocationLog{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Info("Database migration completed")
	return nil
}
