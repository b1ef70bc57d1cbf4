package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/streamgrab/models"
)

// Version is reported by the health and index endpoints.
const Version = "1.0.0"

// Health returns a handler for GET /api/v1/health. Status is "busy" while an
// extraction holds the gate; the endpoint itself is always 200.
func Health(svc Service, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		gate, entries := svc.Stats()

		status := "healthy"
		if gate.Busy {
			status = "busy"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:       status,
			Uptime:       time.Since(startTime).Round(time.Second).String(),
			Timestamp:    time.Now().UTC(),
			CacheEntries: entries,
			Gate:         gate,
			Version:      Version,
		})
	}
}

// ResetGate returns a handler for POST /api/v1/admin/gate/reset. It frees a
// gate stuck behind a session that will never release it.
func ResetGate(svc Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		before, _ := svc.Stats()
		svc.ResetGate()
		slog.Warn("gate reset by operator",
			"wasBusy", before.Busy,
			"client", c.ClientIP(),
		)
		c.JSON(http.StatusOK, gin.H{"reset": true, "was_busy": before.Busy})
	}
}

// Index returns a handler for GET /: a short description of the service.
func Index() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": "streamgrab: signed HLS stream URL extractor",
			"version": Version,
			"status":  "running",
			"usage": gin.H{
				"endpoint": "GET /api/v1/stream?channel=<channel-slug>",
				"example":  "/api/v1/stream?channel=green-entertainment",
				"legacy":   "GET /api/fresh_stream?channel=<channel-slug>",
			},
			"available_channels": "GET /api/v1/channels",
			"diagnostics":        "GET /api/v1/debug?channel=<channel-slug>",
			"disclaimer":         "Only free/public channels (no login required) are supported. No DRM bypass.",
		})
	}
}

// NotFound answers unknown routes with JSON instead of gin's plain text.
func NotFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "endpoint not found",
			"hint":  "Try GET / for API docs",
		})
	}
}
