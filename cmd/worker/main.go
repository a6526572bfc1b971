package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/ledgr/internal/app"
	"github.com/dvloznov/ledgr/internal/config"
	"github.com/dvloznov/ledgr/internal/logger"
	"github.com/dvloznov/ledgr/internal/syncer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log := logger.New()
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	schedule := flag.String("schedule", cfg.SyncSchedule, "cron spec for background sync (or set LEDGR_SYNC_SCHEDULE env)")
	flag.Parse()

	log := logger.NewWithLevel(cfg.LogLevel)

	log.Info().Str("store", cfg.Store).Msg("Starting ledgr device daemon")

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := app.New(cfg, log)
	if err := a.Init(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}

	// Log ledger changes as the worker reports them
	events, unsubscribe := a.Worker.Subscribe()
	defer unsubscribe()
	go func() {
		for ev := range events {
			log.Debug().Str("event", string(ev.Kind)).Int64("version", ev.Version).Msg("Ledger changed")
		}
	}()

	var scheduler *syncer.Scheduler
	client, err := a.SyncClient()
	if err != nil {
		log.Warn().Err(err).Msg("Background sync disabled")
	} else {
		scheduler, err = syncer.NewScheduler(client, *schedule, logger.Component(log, "scheduler"))
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create sync scheduler")
		}
		scheduler.Start(ctx)
	}

	log.Info().Msg("Daemon started, waiting for signal...")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down daemon...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if scheduler != nil {
		if err := scheduler.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Sync did not finish before shutdown")
		}
	}
	a.Close(shutdownCtx)

	log.Info().Msg("Daemon exited")
}
