package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/streamgrab/models"
)

// ListCache returns a handler for GET /api/v1/cache.
func ListCache(svc Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		entries := svc.CacheEntries()
		c.JSON(http.StatusOK, gin.H{
			"count":   len(entries),
			"entries": entries,
		})
	}
}

// GetCache returns a handler for GET /api/v1/cache/:channel.
func GetCache(svc Service, reg Channels) gin.HandlerFunc {
	return func(c *gin.Context) {
		ch, ok := resolveChannel(c, reg, c.Param("channel"))
		if !ok {
			return
		}
		entry, hit := svc.CacheGet(ch.Name)
		if !hit {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeNotCached,
					Message: "no fresh cache entry for '" + ch.Name + "'",
				},
			})
			return
		}
		c.JSON(http.StatusOK, entry)
	}
}

// PutCache returns a handler for PUT /api/v1/cache/:channel. It seeds the
// cache with a known-good URL.
func PutCache(svc Service, reg Channels) gin.HandlerFunc {
	return func(c *gin.Context) {
		ch, ok := resolveChannel(c, reg, c.Param("channel"))
		if !ok {
			return
		}

		var req models.CacheSetRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		c.JSON(http.StatusOK, svc.CacheSet(ch.Name, req.URL, req.Alternates))
	}
}

// DeleteCache returns a handler for DELETE /api/v1/cache/:channel.
func DeleteCache(svc Service, reg Channels) gin.HandlerFunc {
	return func(c *gin.Context) {
		ch, ok := resolveChannel(c, reg, c.Param("channel"))
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"channel": ch.Name,
			"cleared": svc.CacheClear(ch.Name),
		})
	}
}

// ClearCache returns a handler for DELETE /api/v1/cache.
func ClearCache(svc Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"cleared": svc.CacheClearAll()})
	}
}
