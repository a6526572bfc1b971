// Package config loads runtime settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config holds every setting shared by the commands.
type Config struct {
	LogLevel string

	Store       string
	DatabaseURL string
	DataFile    string

	Bucket          string
	BackupFolder    string
	BackupRetention int

	SyncURL      string
	SyncSchedule string
	UserID       string

	TaggerRules string

	BQProject string
	BQDataset string

	Port           string
	AllowedOrigins []string
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		LogLevel:     getEnv("LEDGR_LOG_LEVEL", "info"),
		Store:        strings.ToLower(getEnv("LEDGR_STORE", StoreMemory)),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DataFile:     getEnv("LEDGR_DATA_FILE", "ledgr.json"),
		Bucket:       os.Getenv("GCS_BUCKET"),
		BackupFolder: getEnv("LEDGR_BACKUP_FOLDER", "ledgr_data"),
		SyncURL:      os.Getenv("LEDGR_SYNC_URL"),
		SyncSchedule: getEnv("LEDGR_SYNC_SCHEDULE", "@every 2m"),
		UserID:       os.Getenv("LEDGR_USER_ID"),
		TaggerRules:  os.Getenv("LEDGR_TAGGER_RULES"),
		BQProject:    os.Getenv("BQ_PROJECT"),
		BQDataset:    getEnv("BQ_DATASET", "ledgr"),
		Port:         getEnv("PORT", "8080"),
	}

	for _, origin := range strings.Split(os.Getenv("LEDGR_ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
		}
	}

	retention, err := strconv.Atoi(getEnv("LEDGR_BACKUP_RETENTION", "10"))
	if err != nil {
		return nil, fmt.Errorf("config: LEDGR_BACKUP_RETENTION: %w", err)
	}
	cfg.BackupRetention = retention

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL is required for the postgres store")
		}
	default:
		return fmt.Errorf("config: unknown store %q", c.Store)
	}
	if c.BackupRetention < 1 {
		return fmt.Errorf("config: backup retention must be positive, got %d", c.BackupRetention)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
