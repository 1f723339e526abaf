// Package app provides application initialization and dependency wiring.
//
// App is the container that holds the database pool, the token verifier,
// the note store and the notification sink, plus the cleanup for each.
package app

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/d-ashesss/nulland/internal/auth"
	"github.com/d-ashesss/nulland/internal/config"
	"github.com/d-ashesss/nulland/internal/events"
	"github.com/d-ashesss/nulland/internal/note"
)

// App is the application container.
type App struct {
	Config *config.Config

	DBPool   *pgxpool.Pool
	Verifier *auth.Verifier
	Store    *note.Store
	Sink     events.Sink

	logger      *slog.Logger
	dbCleanup   func()
	sinkCleanup func() error
}

// Close releases all resources acquired during Setup. Safe to call on a
// partially initialized App.
func (a *App) Close() error {
	logger := a.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("shutting down application")

	var err error
	if a.sinkCleanup != nil {
		err = a.sinkCleanup()
		a.sinkCleanup = nil
	}
	if a.dbCleanup != nil {
		a.dbCleanup()
		a.dbCleanup = nil
		logger.Info("database pool closed")
	}
	return err
}
