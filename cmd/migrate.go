package cmd

import (
	"fmt"

	"github.com/d-ashesss/nulland/db"
	"github.com/d-ashesss/nulland/internal/config"
)

// runMigrate applies pending database migrations and exits.
// The serve command also migrates on startup; this command exists for
// deploy pipelines that migrate before rolling the service.
func runMigrate() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}
