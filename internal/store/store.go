// Package store defines the persistence contract for the memory engine and
// the operations every backend (sqlite, postgres) must provide (spec §4.1).
package store

import (
	"context"

	"github.com/patternforge/hebbian/internal/models"
)

// UpsertItem pairs a memory with its tag set for a batched upsert.
type UpsertItem struct {
	Memory *models.Memory
	Tags   []string
}

// Store is the durable state the engine reads and writes. All multi-row
// writes occur inside a single transaction on the implementation side.
type Store interface {
	// Upsert inserts a new memory or replaces an existing row with the same
	// ID, along with its tag edges, in one transaction.
	Upsert(ctx context.Context, m *models.Memory, tags []string) error

	// UpsertMany runs Upsert's insert-or-replace for every item in one
	// transaction, so a batch either lands whole or not at all (spec §4.7
	// step 6, §5 "a reader either sees the whole batch or none"). Returns
	// the number of rows written.
	UpsertMany(ctx context.Context, items []UpsertItem) (int, error)

	// GetByID fetches a single memory, or (nil, nil) if it does not exist.
	GetByID(ctx context.Context, id string) (*models.Memory, error)

	// ScanActiveWithEmbedding returns every active memory that has a
	// non-nil embedding, for brute-force cosine search.
	ScanActiveWithEmbedding(ctx context.Context) ([]*models.Memory, error)

	// ScanByDomain returns active memories in a domain, ordered by
	// activation descending.
	ScanByDomain(ctx context.Context, domain string) ([]*models.Memory, error)

	// ScanTopActive returns the n active memories with the highest
	// activation, used as the retrieval fallback tier.
	ScanTopActive(ctx context.Context, n int) ([]*models.Memory, error)

	// ScanAllActive returns every active memory, used by the stats and
	// backfill-embeddings commands.
	ScanAllActive(ctx context.Context) ([]*models.Memory, error)

	// SetEmbedding overwrites a memory's embedding and content hash without
	// touching its tag edges, for the backfill-embeddings operator command.
	SetEmbedding(ctx context.Context, id string, embedding []byte, contentHash string) error

	// BumpActivation atomically adds delta to activation, increments
	// retrieval_count, and sets last_retrieved to now.
	BumpActivation(ctx context.Context, id string, delta float64, now int64) error

	// BumpMany applies BumpActivation's update to every id in ids inside one
	// transaction (spec §4.4 "runs inside one transaction; count affected
	// rows") and returns the number of rows actually updated, which may be
	// less than len(ids) if some no longer exist.
	BumpMany(ctx context.Context, ids []string, delta float64, now int64) (int, error)

	// DecayAll multiplies every active memory's activation by factor in a
	// single statement.
	DecayAll(ctx context.Context, factor float64) error

	// LowActivation returns active memories whose activation is at or
	// below threshold, for pruning review.
	LowActivation(ctx context.Context, threshold float64) ([]*models.Memory, error)

	// GetMeta and SetMeta read/write the key-value side table used for
	// atomizer content fingerprints and other small engine state.
	GetMeta(ctx context.Context, key string) (string, bool, error)
	SetMeta(ctx context.Context, key, value string) error

	// GetCachedEmbedding and SetCachedEmbedding read/write the persistent,
	// content-hash-keyed embedding cache a backfill run consults before
	// re-embedding a memory's detail text, distinct from the process-local
	// query cache in internal/embedcache.
	GetCachedEmbedding(ctx context.Context, contentHash string) ([]byte, bool, error)
	SetCachedEmbedding(ctx context.Context, contentHash string, embedding []byte, now int64) error

	// UpsertCooccurrence adds weight to the (a,b) edge and its symmetric
	// (b,a) counterpart, creating them if absent, in one transaction.
	UpsertCooccurrence(ctx context.Context, a, b string, weight float64) error

	// UpsertCooccurrences applies UpsertCooccurrence's symmetric-pair update
	// for every pair in pairs inside a single transaction, so a wired group
	// of ids commits atomically instead of one transaction per pair (spec
	// §4.5 "writes are done in a single transaction").
	UpsertCooccurrences(ctx context.Context, pairs []models.CooccurrencePair, weight float64) error

	// Neighbours returns the top-k co-occurrence neighbours of id ordered
	// by weight descending.
	Neighbours(ctx context.Context, id string, k int) ([]models.CooccurrenceEdge, error)

	// Deprecate marks oldID deprecated and points it at newID. Returns an
	// errs.InvalidID error if oldID does not exist.
	Deprecate(ctx context.Context, oldID, newID string) error

	// MarkCorrection marks correctionID as a correction of correctedID.
	// Returns an errs.InvalidID error if either id does not exist.
	MarkCorrection(ctx context.Context, correctionID, correctedID string) error

	// RecordImpact inserts an impact event and adds its delta to the
	// memory's impact score, capped at 1.0. Returns the resulting score.
	RecordImpact(ctx context.Context, memoryID string, signal models.ImpactSignal, source, sessionID string) (float64, error)

	// ImpactLeaders returns the top memories by impact score.
	ImpactLeaders(ctx context.Context, limit int) ([]*models.Memory, error)

	// Close releases the underlying connection.
	Close() error
}
