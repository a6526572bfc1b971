package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/dvloznov/ledgr/internal/api/middleware"
	"github.com/dvloznov/ledgr/internal/logger"
	"github.com/dvloznov/ledgr/internal/syncer"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// defaultBackupLimit is how many backups GET /api/backups returns when the
// caller does not ask for a number.
const defaultBackupLimit = syncer.DefaultRetention

// Syncer is the server-side sync service.
type Syncer interface {
	Sync(ctx context.Context, userID string, msg syncer.Message) (syncer.Message, error)
	ListBackups(ctx context.Context, userID string, n int) ([]syncer.Backup, error)
}

// SyncHandler handles the sync endpoints.
type SyncHandler struct {
	syncer Syncer
	log    zerolog.Logger
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(s Syncer, log zerolog.Logger) *SyncHandler {
	return &SyncHandler{syncer: s, log: log}
}

// Sync handles POST /api/sync. The body is either {"version": n} or a full
// snapshot, and so is the response.
func (h *SyncHandler) Sync(c *gin.Context) {
	var msg syncer.Message
	if err := c.ShouldBindJSON(&msg); err != nil {
		middleware.WriteError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx := c.Request.Context()
	userID := middleware.UserID(c)

	resp, err := h.syncer.Sync(ctx, userID, msg)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().
			Err(err).
			Str("user_id", userID).
			Int64("client_version", msg.Version).
			Msg("Sync failed")
		middleware.WriteAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListBackups handles GET /api/backups?limit=n.
func (h *SyncHandler) ListBackups(c *gin.Context) {
	limit := defaultBackupLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			middleware.WriteError(c, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	ctx := c.Request.Context()
	userID := middleware.UserID(c)

	list, err := h.syncer.ListBackups(ctx, userID, limit)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to list backups")
		middleware.WriteAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

// Health handles GET /health.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}
