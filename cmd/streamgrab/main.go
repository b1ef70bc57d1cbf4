package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/streamgrab/api"
	"github.com/use-agent/streamgrab/cache"
	"github.com/use-agent/streamgrab/candidate"
	"github.com/use-agent/streamgrab/channels"
	"github.com/use-agent/streamgrab/cleaner"
	"github.com/use-agent/streamgrab/config"
	"github.com/use-agent/streamgrab/engine"
	"github.com/use-agent/streamgrab/scraper"
	"github.com/use-agent/streamgrab/verify"
	"github.com/use-agent/streamgrab/webhook"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("streamgrab starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"baseURL", cfg.Extraction.BaseURL,
		"headless", cfg.Browser.Headless,
	)

	// ── 3. Channel registry ─────────────────────────────────────────
	reg, err := channels.Load(cfg.Registry.File)
	if err != nil {
		slog.Error("failed to load channel registry", "file", cfg.Registry.File, "error", err)
		os.Exit(1)
	}
	slog.Info("channel registry loaded", "channels", reg.Len(), "file", cfg.Registry.File)

	// ── 4. Browser driver ───────────────────────────────────────────
	driver, err := scraper.NewDriver(cfg.Browser, cfg.Extraction)
	if err != nil {
		slog.Error("failed to initialise browser driver", "error", err)
		os.Exit(1)
	}
	defer driver.Close()

	// ── 5. Extraction engine ────────────────────────────────────────
	opts := []engine.Option{
		engine.WithVerifier(verify.New(cfg.Extraction.VerifyTimeout, cfg.Browser.Proxy, cfg.Extraction.BaseURL)),
		engine.WithSummarizer(cleaner.NewSummarizer(0)),
	}
	if n := webhook.New(cfg.Webhook.URL, cfg.Webhook.Secret); n != nil {
		opts = append(opts, engine.WithNotifier(n))
		slog.Info("webhook notifications enabled", "url", cfg.Webhook.URL, "signed", cfg.Webhook.Secret != "")
	}
	extractor := engine.NewExtractor(
		driver,
		cache.New(cfg.Cache.TTL, cfg.Cache.MaxEntries),
		candidate.NewScorer(weightsFrom(cfg.Scoring)),
		cfg.Extraction,
		cfg.Gate,
		opts...,
	)

	// ── 6. Setup router ─────────────────────────────────────────────
	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()
	router := api.NewRouter(rootCtx, extractor, reg, cfg, time.Now())

	// ── 7. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 8. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// An extraction in flight can take as long as the watchdog allows.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Extraction.WatchdogTimeout+5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	// driver.Close() runs via defer and disconnects any remote browser.
	slog.Info("streamgrab stopped")
}

// weightsFrom maps configured scoring weights onto the scorer's, keeping the
// length terms at their defaults.
func weightsFrom(s config.ScoringConfig) candidate.Weights {
	w := candidate.DefaultWeights()
	w.SegmentPlaylist = s.SegmentPlaylist
	w.Chunklist = s.Chunklist
	w.IndexPlaylist = s.IndexPlaylist
	w.MasterPlaylist = s.MasterPlaylist
	w.BareManifest = s.BareManifest
	w.SignedAuth = s.SignedAuth
	w.SessionParam = s.SessionParam
	w.SecureScheme = s.SecureScheme
	w.PerParam = s.PerParam
	w.AdPenalty = s.AdPenalty
	return w
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
