package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Browser    BrowserConfig
	Extraction ExtractionConfig
	Gate       GateConfig
	Cache      CacheConfig
	Scoring    ScoringConfig
	Registry   RegistryConfig
	Auth       AuthConfig
	RateLimit  RateLimitConfig
	Webhook    WebhookConfig
	Log        LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 5000
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls how Chromium sessions are started.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: true

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Proxy is an optional upstream proxy for the browser.
	Proxy string

	// CDPURL connects to an already running browser instead of launching one.
	// Each session then gets its own incognito context.
	CDPURL string

	// BlockedResourceTypes lists resource types to block.
	// default: ["Image", "Stylesheet", "Font", "Media"]
	BlockedResourceTypes []string

	// Timezone is the emulated timezone of every session.
	Timezone string // default: "Asia/Karachi"
}

// ExtractionConfig controls the per-attempt timing of the extraction engine.
type ExtractionConfig struct {
	// BaseURL is the portal origin channel paths are resolved against.
	BaseURL string // default: "https://tamashaweb.com"

	// NavigationTimeout bounds the initial page load. Expiry is not fatal.
	NavigationTimeout time.Duration // default: 45s

	// SettleTimeout bounds the post-load "network quiet" wait. Expiry is not fatal.
	SettleTimeout time.Duration // default: 20s

	// VideoWait bounds the wait for a <video> element before clicking play.
	VideoWait time.Duration // default: 15s

	// CaptureWait is the main wait for manifest requests after playback.
	CaptureWait time.Duration // default: 10s

	// CaptureSettle ends CaptureWait early this long after the first hit.
	CaptureSettle time.Duration // default: 3s

	// ProbeFinalWait is the last unconditional wait when every probe is empty.
	ProbeFinalWait time.Duration // default: 5s

	// WatchdogTimeout is the wall-clock ceiling of one browser session.
	WatchdogTimeout time.Duration // default: 120s

	// MaxRetries is how many times an empty capture is retried.
	MaxRetries int // default: 1

	// ShapeMemoryTTL is how long the working URL shape of a channel is remembered.
	ShapeMemoryTTL time.Duration // default: 6h

	// VerifyTimeout bounds the optional manifest verification fetch.
	VerifyTimeout time.Duration // default: 8s
}

// GateConfig controls the single-flight concurrency gate.
type GateConfig struct {
	// AcquireTimeout is how long a caller waits for the gate before "busy".
	AcquireTimeout time.Duration // default: 10s

	// StaleAfter is how long the gate may stay busy before it self-heals.
	StaleAfter time.Duration // default: 3m
}

// CacheConfig controls the extraction cache.
type CacheConfig struct {
	// TTL is the lifetime of a cached stream URL.
	TTL time.Duration // default: 5m

	// MaxEntries is the maximum number of cached channels.
	MaxEntries int // default: 500
}

// ScoringConfig holds the tunable candidate scoring weights.
type ScoringConfig struct {
	SegmentPlaylist int // default: 100
	Chunklist       int // default: 90
	IndexPlaylist   int // default: 80
	MasterPlaylist  int // default: 50
	BareManifest    int // default: 40
	SignedAuth      int // default: 200
	SessionParam    int // default: 30
	SecureScheme    int // default: 5
	PerParam        int // default: 10
	AdPenalty       int // default: 1000
}

// RegistryConfig controls the channel registry.
type RegistryConfig struct {
	// File is an optional YAML file whose channels override the built-in list.
	File string
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: false

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 1

	// Burst is the maximum burst size per API key.
	Burst int // default: 5
}

// WebhookConfig controls extraction event delivery.
type WebhookConfig struct {
	// URL receives stream.extracted / stream.failed events. Empty disables.
	URL string

	// Secret signs payloads with HMAC-SHA256 when non-empty.
	Secret string
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("STREAMGRAB_HOST", "0.0.0.0"),
			Port: envIntOr("PORT", envIntOr("STREAMGRAB_PORT", 5000)),
			Mode: envOr("STREAMGRAB_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:   envBoolOr("STREAMGRAB_HEADLESS", true),
			NoSandbox:  envBoolOr("STREAMGRAB_NO_SANDBOX", true),
			BrowserBin: os.Getenv("STREAMGRAB_BROWSER_BIN"),
			Proxy:      os.Getenv("STREAMGRAB_PROXY"),
			CDPURL:     os.Getenv("STREAMGRAB_CDP_URL"),
			BlockedResourceTypes: envSliceOr("STREAMGRAB_BLOCKED_RESOURCES", []string{
				"Image", "Stylesheet", "Font", "Media",
			}),
			Timezone: envOr("STREAMGRAB_TIMEZONE", "Asia/Karachi"),
		},
		Extraction: ExtractionConfig{
			BaseURL:           strings.TrimRight(envOr("STREAMGRAB_BASE_URL", "https://tamashaweb.com"), "/"),
			NavigationTimeout: envDurationOr("STREAMGRAB_NAV_TIMEOUT", 45*time.Second),
			SettleTimeout:     envDurationOr("STREAMGRAB_SETTLE_TIMEOUT", 20*time.Second),
			VideoWait:         envDurationOr("STREAMGRAB_VIDEO_WAIT", 15*time.Second),
			CaptureWait:       envDurationOr("STREAMGRAB_CAPTURE_WAIT", 10*time.Second),
			CaptureSettle:     envDurationOr("STREAMGRAB_CAPTURE_SETTLE", 3*time.Second),
			ProbeFinalWait:    envDurationOr("STREAMGRAB_PROBE_FINAL_WAIT", 5*time.Second),
			WatchdogTimeout:   envDurationOr("STREAMGRAB_WATCHDOG_TIMEOUT", 120*time.Second),
			MaxRetries:        envIntOr("STREAMGRAB_MAX_RETRIES", 1),
			ShapeMemoryTTL:    envDurationOr("STREAMGRAB_SHAPE_MEMORY_TTL", 6*time.Hour),
			VerifyTimeout:     envDurationOr("STREAMGRAB_VERIFY_TIMEOUT", 8*time.Second),
		},
		Gate: GateConfig{
			AcquireTimeout: envDurationOr("STREAMGRAB_GATE_ACQUIRE_TIMEOUT", 10*time.Second),
			StaleAfter:     envDurationOr("STREAMGRAB_GATE_STALE_AFTER", 3*time.Minute),
		},
		Cache: CacheConfig{
			TTL:        envDurationOr("STREAMGRAB_CACHE_TTL", 5*time.Minute),
			MaxEntries: envIntOr("STREAMGRAB_CACHE_MAX_ENTRIES", 500),
		},
		Scoring: ScoringConfig{
			SegmentPlaylist: envIntOr("STREAMGRAB_SCORE_PLAYLIST", 100),
			Chunklist:       envIntOr("STREAMGRAB_SCORE_CHUNKLIST", 90),
			IndexPlaylist:   envIntOr("STREAMGRAB_SCORE_INDEX", 80),
			MasterPlaylist:  envIntOr("STREAMGRAB_SCORE_MASTER", 50),
			BareManifest:    envIntOr("STREAMGRAB_SCORE_M3U8", 40),
			SignedAuth:      envIntOr("STREAMGRAB_SCORE_AUTH", 200),
			SessionParam:    envIntOr("STREAMGRAB_SCORE_SESSION", 30),
			SecureScheme:    envIntOr("STREAMGRAB_SCORE_HTTPS", 5),
			PerParam:        envIntOr("STREAMGRAB_SCORE_PER_PARAM", 10),
			AdPenalty:       envIntOr("STREAMGRAB_SCORE_AD_PENALTY", 1000),
		},
		Registry: RegistryConfig{
			File: os.Getenv("STREAMGRAB_CHANNELS_FILE"),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("STREAMGRAB_AUTH_ENABLED", false),
			APIKeys: envSliceOr("STREAMGRAB_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("STREAMGRAB_RATE_RPS", 1.0),
			Burst:             envIntOr("STREAMGRAB_RATE_BURST", 5),
		},
		Webhook: WebhookConfig{
			URL:    os.Getenv("STREAMGRAB_WEBHOOK_URL"),
			Secret: os.Getenv("STREAMGRAB_WEBHOOK_SECRET"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(envOr("LOG_LEVEL", envOr("STREAMGRAB_LOG_LEVEL", "info"))),
			Format: envOr("STREAMGRAB_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
