package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/dvloznov/ledgr/internal/apperr"
	"github.com/dvloznov/ledgr/internal/logger"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// RequestIDHeader carries the request id in and out.
	RequestIDHeader = "X-Request-ID"

	// UserIDHeader identifies the caller until a real auth provider sits in
	// front of the API.
	UserIDHeader = "X-User-ID"
)

// Context keys.
const (
	requestIDKey = "requestID"
	userIDKey    = "userID"
)

// Logger adds structured logging to HTTP requests.
func Logger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		event := log.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			event = log.Error()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Str("remote_addr", c.ClientIP()).
			Str("request_id", RequestIDFrom(c)).
			Msg("HTTP request")
	}
}

// CORS adds Cross-Origin Resource Sharing headers. An empty origin list
// allows every origin.
func CORS(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", RequestIDHeader, UserIDHeader},
		ExposeHeaders: []string{"Content-Length", RequestIDHeader},
		MaxAge:        time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

// Recovery recovers from panics and returns a 500 error.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().
					Interface("error", err).
					Str("method", c.Request.Method).
					Str("path", c.Request.URL.Path).
					Str("request_id", RequestIDFrom(c)).
					Msg("Panic recovered")

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			}
		}()

		c.Next()
	}
}

// RequestID tags the request with the caller's X-Request-ID or a fresh one,
// and puts a logger carrying it into the request context.
func RequestID(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set(requestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)

		reqLog := logger.WithFields(log, map[string]interface{}{"request_id": requestID})
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), reqLog))
		c.Next()
	}
}

// RequestIDFrom returns the id set by RequestID.
func RequestIDFrom(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// Auth takes the user id from the X-User-ID header. Session handling and
// token exchange belong to the auth provider in front of this service.
func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(UserIDHeader)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// UserID returns the id set by Auth.
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// WriteError writes a JSON error response.
func WriteError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// WriteAppError renders err with the status that matches its kind.
func WriteAppError(c *gin.Context, err error) {
	p := apperr.ToPayload(err)
	c.JSON(StatusFor(err), gin.H{"error": p.Message, "kind": p.Kind})
}

// StatusFor maps an error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	}
	switch apperr.KindOf(err) {
	case apperr.KindParse:
		return http.StatusUnprocessableEntity
	case apperr.KindSync:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
