package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/dvloznov/ledgr/internal/app"
	"github.com/dvloznov/ledgr/internal/config"
	"github.com/dvloznov/ledgr/internal/domain"
	"github.com/dvloznov/ledgr/internal/logger"
	"github.com/dvloznov/ledgr/internal/worker"
	"github.com/rs/zerolog"
)

// commandTimeout bounds a single CLI command.
const commandTimeout = 5 * time.Minute

// session is one CLI invocation's application context. With the memory
// store the ledger lives in a JSON snapshot file between invocations.
type session struct {
	ctx    context.Context
	cancel context.CancelFunc
	log    zerolog.Logger
	app    *app.App
	file   string
}

func openSession(log zerolog.Logger) *session {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log = log.Level(logger.ParseLevel(cfg.LogLevel))

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	ctx = logger.WithContext(ctx, log)

	s := &session{ctx: ctx, cancel: cancel, log: log, app: app.New(cfg, log)}
	if err := s.app.Init(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}

	if cfg.Store == config.StoreMemory && cfg.DataFile != "" {
		s.file = cfg.DataFile
		if err := s.load(); err != nil {
			log.Fatal().Err(err).Str("file", s.file).Msg("Failed to load ledger file")
		}
	}
	return s
}

func (s *session) load() error {
	data, err := os.ReadFile(s.file)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("decode %s: %w", s.file, err)
	}
	_, err = s.app.Worker.Call(s.ctx, worker.LoadSnapshotRequest{Snapshot: snap})
	return err
}

// save writes the ledger back to the data file after a mutating command.
func (s *session) save() {
	if s.file == "" {
		return
	}
	snap, err := worker.Do[domain.Snapshot](s.ctx, s.app.Worker, worker.ExportSnapshotRequest{})
	if err != nil {
		s.log.Fatal().Err(err).Msg("Failed to export ledger")
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		s.log.Fatal().Err(err).Msg("Failed to encode ledger")
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.file), ".ledgr-*.json")
	if err != nil {
		s.log.Fatal().Err(err).Msg("Failed to write ledger file")
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		s.log.Fatal().Err(err).Msg("Failed to write ledger file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		s.log.Fatal().Err(err).Msg("Failed to write ledger file")
	}
	if err := os.Rename(tmp.Name(), s.file); err != nil {
		s.log.Fatal().Err(err).Msg("Failed to replace ledger file")
	}
	s.log.Debug().Str("file", s.file).Int64("version", snap.Version).Msg("Ledger saved")
}

func (s *session) close() {
	s.app.Close(s.ctx)
	s.cancel()
}

// call runs a worker request and exits on failure.
func call[T any](s *session, req worker.Request) T {
	v, err := worker.Do[T](s.ctx, s.app.Worker, req)
	if err != nil {
		s.log.Fatal().Err(err).Str("request", req.Type()).Msg("Request failed")
	}
	return v
}
