package postgres

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// MigrationStatus describes the schema version of a database.
type MigrationStatus struct {
	Version uint
	Dirty   bool
}

// Migrate applies every pending schema migration to the database at dsn.
func Migrate(dsn string, log zerolog.Logger) (MigrationStatus, error) {
	m, closeFn, err := newMigrator(dsn)
	if err != nil {
		return MigrationStatus{}, err
	}
	defer closeFn()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return MigrationStatus{}, fmt.Errorf("Migrate: up: %w", err)
	}

	status, err := version(m)
	if err != nil {
		return MigrationStatus{}, err
	}
	log.Info().
		Uint("version", status.Version).
		Bool("dirty", status.Dirty).
		Msg("Database schema is up to date")
	return status, nil
}

// Rollback reverts the most recent migration.
func Rollback(dsn string) error {
	m, closeFn, err := newMigrator(dsn)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := m.Steps(-1); err != nil {
		return fmt.Errorf("Rollback: %w", err)
	}
	return nil
}

// Status reports the current schema version without changing it.
func Status(dsn string) (MigrationStatus, error) {
	m, closeFn, err := newMigrator(dsn)
	if err != nil {
		return MigrationStatus{}, err
	}
	defer closeFn()
	return version(m)
}

func version(m *migrate.Migrate) (MigrationStatus, error) {
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return MigrationStatus{}, nil
	}
	if err != nil {
		return MigrationStatus{}, fmt.Errorf("read schema version: %w", err)
	}
	return MigrationStatus{Version: v, Dirty: dirty}, nil
}

// newMigrator opens a database/sql connection through lib/pq, which is what
// the golang-migrate postgres driver expects, and binds the embedded files.
func newMigrator(dsn string) (*migrate.Migrate, func(), error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}

	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("create migrate driver: %w", err)
	}

	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("load migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("create migrator: %w", err)
	}

	closeFn := func() {
		m.Close()
	}
	return m, closeFn, nil
}
