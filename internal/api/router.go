// Package api wires the sync server's HTTP routes.
package api

import (
	"github.com/dvloznov/ledgr/internal/api/handlers"
	"github.com/dvloznov/ledgr/internal/api/middleware"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// NewRouter builds the gin engine for the sync server.
func NewRouter(s handlers.Syncer, log zerolog.Logger, allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.Recovery(log),
		middleware.RequestID(log),
		middleware.Logger(log),
		middleware.CORS(allowedOrigins),
	)

	r.GET("/health", handlers.Health)

	syncHandler := handlers.NewSyncHandler(s, log)
	api := r.Group("/api", middleware.Auth())
	api.POST("/sync", syncHandler.Sync)
	api.GET("/backups", syncHandler.ListBackups)

	return r
}
