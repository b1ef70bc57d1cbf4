package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/streamgrab/engine"
	"github.com/use-agent/streamgrab/models"
)

// cacheNote is attached to results served from the cache.
const cacheNote = "Cached URL. Use ?force=1 for fresh extraction."

// Stream returns a handler for GET /api/v1/stream.
//
// Query: channel (required), force=1 bypasses the cache, verify=1 fetches the
// selected manifest before responding. Failures carry a status derived from
// their kind.
func Stream(svc Service, reg Channels) gin.HandlerFunc {
	return streamHandler(svc, reg, statusForKind)
}

// FreshStream returns the handler for the legacy GET /api/fresh_stream. Every
// failure is a 502, as the endpoint always answered.
func FreshStream(svc Service, reg Channels) gin.HandlerFunc {
	return streamHandler(svc, reg, func(models.ErrorKind) int { return http.StatusBadGateway })
}

func streamHandler(svc Service, reg Channels, status func(models.ErrorKind) int) gin.HandlerFunc {
	return func(c *gin.Context) {
		ch, ok := resolveChannel(c, reg, c.Query("channel"))
		if !ok {
			return
		}

		opts := engine.ExtractOptions{
			Force:  queryBool(c, "force"),
			Verify: queryBool(c, "verify"),
		}
		result := svc.Extract(c.Request.Context(), ch, opts)

		if !result.Success {
			slog.Info("stream request failed",
				"channel", ch.Name,
				"kind", result.ErrorKind,
				"elapsed", result.ElapsedSeconds,
			)
			c.JSON(status(result.ErrorKind), result)
			return
		}
		if result.Source == "cache" && result.Note == "" {
			result.Note = cacheNote
		}
		c.JSON(http.StatusOK, result)
	}
}

// Debug returns a handler for GET /api/v1/debug. A report is a 200 whatever
// the page showed; only a busy gate, which means nothing was probed, is 503.
func Debug(svc Service, reg Channels) gin.HandlerFunc {
	return func(c *gin.Context) {
		ch, ok := resolveChannel(c, reg, c.Query("channel"))
		if !ok {
			return
		}
		report := svc.DebugProbe(c.Request.Context(), ch)
		if report.ErrorKind == models.ErrKindServerBusy {
			c.JSON(http.StatusServiceUnavailable, report)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}
