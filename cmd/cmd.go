// Package cmd provides the CLI entry points for nulland.
//
// Commands:
//   - serve: HTTP API server
//   - migrate: apply pending database migrations and exit
//
// The serve command installs signal handling for graceful shutdown.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
)

// Execute is the main entry point for the nulland CLI.
func Execute() error {
	// Initialize logger once at entry point
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "serve":
		return runServe()
	case "migrate":
		return runMigrate()
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("nulland - note-taking REST API")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  nulland serve [addr]  Start HTTP API server (default: 127.0.0.1:8000)")
	fmt.Println("  nulland migrate       Apply database migrations and exit")
	fmt.Println("  nulland --version     Show version information")
	fmt.Println("  nulland --help        Show this help")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  NULLAND_AUTH_OPENID_CONFIGURATION_URL  OIDC discovery document URL")
	fmt.Println("  NULLAND_AUTH_JWKS_URI                  JWKS endpoint (overrides discovery)")
	fmt.Println("  NULLAND_POSTGRES_HOST / DATABASE_URL   Database connection")
	fmt.Println("  NULLAND_EVENTS_SINK                    none, log or redis")
	fmt.Println("  DEBUG                                  Enable debug logging")
}
