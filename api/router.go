package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/streamgrab/api/handler"
	"github.com/use-agent/streamgrab/api/middleware"
	"github.com/use-agent/streamgrab/config"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
// ctx bounds background middleware work.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health stays outside auth so monitoring probes always work. The legacy
// routes share the protected chain.
func NewRouter(ctx context.Context, svc handler.Service, reg handler.Channels, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.NoRoute(handler.NotFound())

	r.GET("/", handler.Index())

	v1 := r.Group("/api/v1")
	v1.GET("/health", handler.Health(svc, startTime))

	var chain []gin.HandlerFunc
	if cfg.Auth.Enabled {
		chain = append(chain, middleware.Auth(cfg.Auth.APIKeys))
	}
	chain = append(chain, middleware.RateLimit(ctx, cfg.RateLimit))

	protected := v1.Group("", chain...)

	// Extraction
	protected.GET("/channels", handler.ListChannels(reg))
	protected.GET("/stream", handler.Stream(svc, reg))
	protected.GET("/debug", handler.Debug(svc, reg))

	// Cache
	protected.GET("/cache", handler.ListCache(svc))
	protected.DELETE("/cache", handler.ClearCache(svc))
	protected.GET("/cache/:channel", handler.GetCache(svc, reg))
	protected.PUT("/cache/:channel", handler.PutCache(svc, reg))
	protected.DELETE("/cache/:channel", handler.DeleteCache(svc, reg))

	// Admin
	protected.POST("/admin/gate/reset", handler.ResetGate(svc))

	// Legacy
	legacy := r.Group("/api")
	legacy.GET("/health", handler.Health(svc, startTime))
	legacyProtected := legacy.Group("", chain...)
	legacyProtected.GET("/channels", handler.ListChannels(reg))
	legacyProtected.GET("/fresh_stream", handler.FreshStream(svc, reg))

	return r
}
