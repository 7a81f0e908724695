package main

import (
	"github.com/manifest-festivals/manifest/internal/config"
	"github.com/manifest-festivals/manifest/internal/database"
	"github.com/manifest-festivals/manifest/internal/logging"
	"github.com/manifest-festivals/manifest/internal/models"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	// Connect to database
	cfg.DBMigrate = false
	db, err := database.Connect(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to connect to database")
	}

	if err := models.Migrate(db); err != nil {
		logging.Fatal().Err(err).Msg("failed to migrate database")
	}

	// Seed sample data
	if err := database.SeedData(db); err != nil {
		logging.Fatal().Err(err).Msg("failed to seed data")
	}

	logging.Info().Msg("database migration and seeding completed successfully")
}
