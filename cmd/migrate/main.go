package main

import (
	"storefront_api/internal/config" // Custom import path (Config)
	"storefront_api/internal/db"     // Custom import path (Database)

	"github.com/sirupsen/logrus" // Structured logging
)

// Main entry point for migration
func main() {
	cfg := config.LoadConfig() // Load configuration
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	dsn, err := cfg.DSN()
	if err != nil {
		logrus.Fatalf("invalid database configuration: %v", err)
	}
	database, err := db.Open(cfg.DBDriver, dsn, cfg.IsProd)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err)
	}
	if err := db.Migrate(database); err != nil {
		logrus.Fatalf("migration failed: %v", err)
	}
	if err := db.Seed(database, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		logrus.Fatalf("seeding failed: %v", err)
	}
	logrus.WithField("driver", cfg.DBDriver).Info("Migration completed")
}
