package db

import (
	"errors"                         // Error inspection
	"fmt"                            // Error wrapping
	"storefront_api/internal/domain" // Importing domain models
	"strings"                        // String normalization

	"github.com/sirupsen/logrus" // Logrus for structured logging
	"golang.org/x/crypto/bcrypt" // Password hashing
	"gorm.io/gorm"               // GORM ORM library
)

// Models lists every table managed by AutoMigrate, parents first
func Models() []any {
	return []any{
		&domain.User{},
		&domain.Category{},
		&domain.Merchant{},
		&domain.Product{},
		&domain.Image{},
		&domain.CustomerOrder{},
		&domain.CustomerOrderProduct{},
		&domain.Setting{},
		&domain.BulkUploadBatch{},
		&domain.BulkUploadItem{},
	}
}

// Migrate performs automatic migration for the database schema
func Migrate(db *gorm.DB) error {
	// AutoMigrate will create tables, missing foreign keys, constraints, columns and indexes
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logrus.Info("Migration completed.")
	return nil
}

// Seed creates the admin account and default settings when they are missing
func Seed(db *gorm.DB, adminEmail, adminPassword string) error {
	if adminEmail != "" && adminPassword != "" {
		email := strings.ToLower(strings.TrimSpace(adminEmail))
		var existing domain.User
		err := db.Where("email = ?", email).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hash admin password: %w", err)
			}
			if err := db.Create(&domain.User{Email: email, Password: string(hash), Role: domain.RoleAdmin}).Error; err != nil {
				return fmt.Errorf("create admin user: %w", err)
			}
			logrus.WithField("email", email).Info("Admin user seeded")
		case err != nil:
			return fmt.Errorf("look up admin user: %w", err)
		}
	}

	// Default hero banner, left empty until an admin uploads one
	banner := domain.Setting{Key: domain.SettingHeroBanner}
	if err := db.Where(domain.Setting{Key: domain.SettingHeroBanner}).FirstOrCreate(&banner).Error; err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}
	return nil
}
