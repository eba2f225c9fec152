// Package backfill re-embeds active memories that are missing an embedding
// (or whose stored dimension no longer matches the configured embedder),
// consulting a persistent content-hash-keyed cache first so a repeated
// backfill run after an embedder outage does not re-pay for texts it has
// already embedded. Grounded in the teacher's embedding_cache table
// (clive/apps/memory/internal/store), generalised from clive's
// per-request cache lookup to a batch backfill pass.
package backfill

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/patternforge/hebbian/internal/embedclient"
	"github.com/patternforge/hebbian/internal/ingestion"
	"github.com/patternforge/hebbian/internal/models"
	"github.com/patternforge/hebbian/internal/vectormath"
)

// Store is the subset of store.Store the backfill pass uses.
type Store interface {
	ScanAllActive(ctx context.Context) ([]*models.Memory, error)
	SetEmbedding(ctx context.Context, id string, embedding []byte, contentHash string) error
	GetCachedEmbedding(ctx context.Context, contentHash string) ([]byte, bool, error)
	SetCachedEmbedding(ctx context.Context, contentHash string, embedding []byte, now int64) error
}

// Summary reports counts for one backfill run.
type Summary struct {
	Embedded  int
	FromCache int
	UpToDate  int
	Errored   int
}

// Run embeds every active memory whose embedding is absent or whose length
// doesn't match embedder.Dimension(), preferring the persistent cache over
// a live embedding call whenever the memory's current content hash is
// already cached.
func Run(ctx context.Context, store Store, embedder embedclient.Client, log *slog.Logger) (Summary, error) {
	if log == nil {
		log = slog.Default()
	}

	memories, err := store.ScanAllActive(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("backfill: scan active: %w", err)
	}

	var summary Summary
	now := time.Now().Unix()

	for _, m := range memories {
		vec := vectormath.Deserialize(m.Embedding, embedder.Dimension())
		hash := ingestion.ContentHash(m.Detail)
		if vec != nil && m.ContentHash == hash {
			summary.UpToDate++
			continue
		}

		if cached, ok, err := store.GetCachedEmbedding(ctx, hash); err == nil && ok {
			if err := store.SetEmbedding(ctx, m.ID, cached, hash); err != nil {
				log.Warn("backfill: apply cached embedding failed", "id", m.ID, "error", err)
				summary.Errored++
				continue
			}
			summary.FromCache++
			continue
		}

		vecs, err := embedder.Embed(ctx, []string{ingestion.EmbedText(m)})
		if err != nil || len(vecs) == 0 {
			log.Warn("backfill: embed failed", "id", m.ID, "error", err)
			summary.Errored++
			continue
		}

		blob := vectormath.Serialize(vecs[0])
		if err := store.SetEmbedding(ctx, m.ID, blob, hash); err != nil {
			log.Warn("backfill: set embedding failed", "id", m.ID, "error", err)
			summary.Errored++
			continue
		}
		if err := store.SetCachedEmbedding(ctx, hash, blob, now); err != nil {
			log.Warn("backfill: cache write failed", "hash", hash, "error", err)
		}
		summary.Embedded++
	}

	return summary, nil
}
