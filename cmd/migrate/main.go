package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dvloznov/ledgr/internal/config"
	"github.com/dvloznov/ledgr/internal/ledger/postgres"
	"github.com/dvloznov/ledgr/internal/logger"
	"github.com/rs/zerolog"
)

// Actions understood by the migrate command.
const (
	actionUp     = "up"
	actionDown   = "down"
	actionStatus = "status"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	dsn := flag.String("dsn", cfg.DatabaseURL, "PostgreSQL connection string (defaults to DATABASE_URL)")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: migrate [-dsn URL] [up|down|status]")
		flag.PrintDefaults()
	}
	flag.Parse()

	action, err := parseAction(flag.Args())
	if err != nil {
		flag.Usage()
		log.Fatal().Err(err).Msg("Invalid arguments")
	}
	if *dsn == "" {
		log.Fatal().Msg("Error: -dsn or DATABASE_URL is required")
	}

	if err := run(action, *dsn, log); err != nil {
		log.Fatal().Err(err).Str("action", action).Msg("Migration failed")
	}
}

// parseAction returns the requested action, defaulting to up.
func parseAction(args []string) (string, error) {
	switch len(args) {
	case 0:
		return actionUp, nil
	case 1:
		switch args[0] {
		case actionUp, actionDown, actionStatus:
			return args[0], nil
		}
		return "", fmt.Errorf("unknown action %q", args[0])
	default:
		return "", fmt.Errorf("expected at most one action, got %d", len(args))
	}
}

func run(action, dsn string, log zerolog.Logger) error {
	switch action {
	case actionDown:
		if err := postgres.Rollback(dsn); err != nil {
			return err
		}
		log.Info().Msg("Rolled back the most recent migration")
		return nil

	case actionStatus:
		status, err := postgres.Status(dsn)
		if err != nil {
			return err
		}
		fmt.Printf("Schema version: %d (dirty: %t)\n", status.Version, status.Dirty)
		return nil

	default:
		_, err := postgres.Migrate(dsn, log)
		return err
	}
}
