// Package config loads the single configuration record recognised by the
// engine (spec §6), in the teacher's env-var-with-typed-default style.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Backend selects which Store implementation DBPath addresses.
type Backend string

const (
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
)

type Config struct {
	DBPath        string
	StoreBackend  Backend
	EmbedModel    string
	EmbedURL      string
	EmbedProvider string // "http" (generic oracle) or "openai"

	MaxContextTokens int
	MaxEntries       int

	SemanticWeight   float64
	ActivationWeight float64
	DomainWeight     float64

	DecayDailyFactor    float64
	DecayPruneThreshold float64

	EmbeddingCacheTTLMs int
	EmbeddingDim        int

	LogLevel string
}

// Load reads process environment (after loading a .env file, if present)
// into a validated Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBPath:        envStr("HEBBIAN_DB_PATH", envStr("DB_PATH", "./hebbian.db")),
		StoreBackend:  Backend(envStr("STORE_BACKEND", string(inferBackend()))),
		EmbedModel:    envStr("EMBED_MODEL", "nomic-embed-text"),
		EmbedURL:      envStr("EMBED_URL", envStr("OLLAMA_URL", "http://localhost:11434")),
		EmbedProvider: envStr("EMBED_PROVIDER", "http"),

		MaxContextTokens: envInt("MAX_CONTEXT_TOKENS", 800),
		MaxEntries:       envInt("MAX_ENTRIES", 20),

		SemanticWeight:   envFloat("SEMANTIC_WEIGHT", 0.6),
		ActivationWeight: envFloat("ACTIVATION_WEIGHT", 0.3),
		DomainWeight:     envFloat("DOMAIN_WEIGHT", 0.1),

		DecayDailyFactor:    envFloat("DECAY_DAILY_FACTOR", 0.9995),
		DecayPruneThreshold: envFloat("DECAY_PRUNE_THRESHOLD", 0.05),

		EmbeddingCacheTTLMs: envInt("EMBEDDING_CACHE_TTL_MS", 300000),
		EmbeddingDim:        envInt("EMBEDDING_DIM", 768),

		LogLevel: envStr("LOG_LEVEL", "info"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func inferBackend() Backend {
	if strings.HasPrefix(os.Getenv("HEBBIAN_DB_PATH"), "postgres://") {
		return BackendPostgres
	}
	return BackendSQLite
}

func (c *Config) validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("config: dbPath must not be empty")
	}
	if c.StoreBackend != BackendSQLite && c.StoreBackend != BackendPostgres {
		return fmt.Errorf("config: unknown store backend %q", c.StoreBackend)
	}
	if c.EmbeddingDim < 1 {
		return fmt.Errorf("config: embeddingDim must be positive, got %d", c.EmbeddingDim)
	}
	if c.MaxContextTokens < 1 {
		return fmt.Errorf("config: maxContextTokens must be positive, got %d", c.MaxContextTokens)
	}
	if c.MaxEntries < 1 {
		return fmt.Errorf("config: maxEntries must be positive, got %d", c.MaxEntries)
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
