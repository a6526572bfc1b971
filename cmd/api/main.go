package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/ledgr/internal/api"
	"github.com/dvloznov/ledgr/internal/blobstore"
	"github.com/dvloznov/ledgr/internal/blobstore/gcs"
	"github.com/dvloznov/ledgr/internal/blobstore/inmemory"
	"github.com/dvloznov/ledgr/internal/config"
	"github.com/dvloznov/ledgr/internal/logger"
	"github.com/dvloznov/ledgr/internal/syncer"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log := logger.New()
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Parse command-line flags
	var (
		port      = flag.String("port", cfg.Port, "HTTP server port")
		bucket    = flag.String("bucket", cfg.Bucket, "GCS bucket for backups (or set GCS_BUCKET env)")
		folder    = flag.String("folder", cfg.BackupFolder, "backup folder under each user's prefix")
		retention = flag.Int("retention", cfg.BackupRetention, "number of backups kept per user")
	)
	flag.Parse()

	log := logger.NewWithLevel(cfg.LogLevel)
	ctx := context.Background()

	var store blobstore.Store
	if *bucket == "" {
		log.Warn().Msg("No GCS bucket configured - backups are kept in memory and lost on exit")
		store = inmemory.NewStore()
	} else {
		gcsStore, err := gcs.New(ctx, *bucket)
		if err != nil {
			log.Fatal().Err(err).Str("bucket", *bucket).Msg("Failed to create backup store")
		}
		defer gcsStore.Close()
		store = gcsStore
	}

	reconciler := syncer.NewReconciler(store,
		syncer.WithFolder(*folder),
		syncer.WithRetention(*retention),
		syncer.WithLogger(logger.Component(log, "sync")),
	)

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(reconciler, log, cfg.AllowedOrigins)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", *port).Str("bucket", *bucket).Msg("Starting sync server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
