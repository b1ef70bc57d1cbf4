package handler

import (
	"context"

	"github.com/use-agent/streamgrab/engine"
	"github.com/use-agent/streamgrab/models"
)

// Service is the extraction engine as the handlers see it. *engine.Extractor
// implements it.
type Service interface {
	Extract(ctx context.Context, ch models.Channel, opts engine.ExtractOptions) *models.ExtractionResult
	DebugProbe(ctx context.Context, ch models.Channel) *models.DiagnosticReport
	CacheGet(name string) (models.CacheEntry, bool)
	CacheSet(name, url string, alternates []string) models.CacheEntry
	CacheClear(name string) bool
	CacheClearAll() int
	CacheEntries() []models.CacheEntry
	ResetGate()
	Stats() (models.GateStats, int)
}

// Channels is the channel registry as the handlers see it. *channels.Registry
// implements it.
type Channels interface {
	Resolve(name string) (models.Channel, error)
	CloseMatches(name string) []string
	Names() []string
	Categories() map[string][]string
	Len() int
}

var _ Service = (*engine.Extractor)(nil)
