// Package cli implements the hebbianctl operator surface (spec §6), in
// the teacher's cobra root-plus-subcommand style
// (lazypower-continuity/internal/cli). Unlike continuity's client-server
// split, every subcommand here opens the store and embedder directly and
// runs in-process — the engine has no networked API.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/patternforge/hebbian/internal/config"
	"github.com/patternforge/hebbian/internal/embedcache"
	"github.com/patternforge/hebbian/internal/embedclient"
	"github.com/patternforge/hebbian/internal/embedclient/httpclient"
	"github.com/patternforge/hebbian/internal/embedclient/openai"
	"github.com/patternforge/hebbian/internal/retrieval"
	"github.com/patternforge/hebbian/internal/store"
	"github.com/patternforge/hebbian/internal/store/postgres"
	"github.com/patternforge/hebbian/internal/store/sqlite"
)

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		return postgres.Open(cfg.DBPath)
	default:
		return sqlite.Open(cfg.DBPath)
	}
}

func openEmbedder(cfg *config.Config) embedclient.Client {
	if cfg.EmbedProvider == "openai" {
		return openai.New(openai.Config{
			APIKey:     os.Getenv("OPENAI_API_KEY"),
			Model:      cfg.EmbedModel,
			Dimensions: cfg.EmbeddingDim,
		})
	}
	return httpclient.New(cfg.EmbedURL, cfg.EmbedModel, cfg.EmbeddingDim)
}

// newPipeline builds a retrieval pipeline with the process-local
// query-embedding cache attached, so repeated identical queries within one
// process (notably repeated before_agent_start hooks in a long-lived
// gateway) skip the live embedding call within cfg's TTL window.
func newPipeline(cfg *config.Config, st store.Store, embedder embedclient.Client, log *slog.Logger) *retrieval.Pipeline {
	pipeline := retrieval.New(st, embedder, log)

	cache, err := embedcache.New(time.Duration(cfg.EmbeddingCacheTTLMs) * time.Millisecond)
	if err != nil {
		log.Warn("query embedding cache disabled", "error", err)
		return pipeline
	}
	pipeline.SetCache(cache)
	return pipeline
}

// loadContext loads config and opens the store, the shared preamble for
// every data-touching subcommand.
func loadContext() (*config.Config, store.Store, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	log := newLogger(cfg)
	st, err := openStore(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open store: %w", err)
	}
	return cfg, st, log, nil
}
