// Package ingestion implements the candidate-to-memory pipeline: ID dedup,
// batch embedding, semantic dedup, and the atomic upsert (spec §4.7).
// Grounded in the teacher's Deduplicator.CheckDuplicate (cosine-threshold
// rejection against stored and in-batch candidates) and lifecycle.go's
// initial-activation convention.
package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/patternforge/hebbian/internal/embedclient"
	"github.com/patternforge/hebbian/internal/models"
	"github.com/patternforge/hebbian/internal/store"
	"github.com/patternforge/hebbian/internal/vectormath"
)

// SemanticDedupThreshold rejects a candidate whose cosine similarity to any
// stored or in-batch-kept vector meets or exceeds this value.
const SemanticDedupThreshold = 0.92

// TopKAgainstStore bounds how many of a domain's stored embeddings a
// candidate is compared against, per spec §4.7 step 5(a) ("top-3 already
// scored").
const TopKAgainstStore = 3

// InitialActivation and InitialRetrievalCount are the values a freshly
// ingested memory is seeded with (spec §4.7 step 3).
const (
	InitialActivation     = 0.5
	InitialRetrievalCount = 1
)

// Store is the subset of store.Store the ingestion pipeline uses.
type Store interface {
	GetByID(ctx context.Context, id string) (*models.Memory, error)
	ScanActiveWithEmbedding(ctx context.Context) ([]*models.Memory, error)
	UpsertMany(ctx context.Context, items []store.UpsertItem) (int, error)
	GetMeta(ctx context.Context, key string) (string, bool, error)
	SetMeta(ctx context.Context, key, value string) error
}

// Summary reports counts for one ingestion run, printed by the operator CLI.
type Summary struct {
	Added   int
	Skipped int
	Errored int
}

type Pipeline struct {
	store    Store
	embedder embedclient.Client
	log      *slog.Logger
}

func New(store Store, embedder embedclient.Client, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{store: store, embedder: embedder, log: log}
}

// Ingest runs the full pipeline over one batch of candidates from a single
// channel.
func (p *Pipeline) Ingest(ctx context.Context, channel models.Channel, candidates []models.Candidate) (Summary, error) {
	var summary Summary

	type pending struct {
		id  string
		mem *models.Memory
		tags []string
	}
	var toEmbed []pending

	for _, c := range candidates {
		id := MemoryID(c.Domain, channel, c.Title)

		existing, err := p.store.GetByID(ctx, id)
		if err != nil {
			summary.Errored++
			p.log.Warn("ingestion: lookup failed", "id", id, "error", err)
			continue
		}
		if existing != nil && existing.IsActive() {
			summary.Skipped++
			continue
		}

		mem := &models.Memory{
			ID:             id,
			Title:          c.Title,
			Detail:         c.Detail,
			Domain:         c.Domain,
			PatternType:    c.PatternType,
			Source:         c.Source,
			SourceSection:  c.SourceSection,
			Created:        time.Now(),
			RetrievalCount: InitialRetrievalCount,
			Activation:     InitialActivation,
			ContentHash:    ContentHash(c.Detail),
			Status:         models.StatusActive,
		}
		toEmbed = append(toEmbed, pending{id: id, mem: mem, tags: c.Tags})
	}

	if len(toEmbed) == 0 {
		return summary, nil
	}

	texts := make([]string, len(toEmbed))
	for i, pd := range toEmbed {
		texts[i] = EmbedText(pd.mem)
	}

	vectors, embedErr := p.embedder.Embed(ctx, texts)
	if embedErr != nil {
		p.log.Warn("ingestion: batch embedding failed, inserting without embeddings", "error", embedErr)
		vectors = nil
	}

	stored, err := p.store.ScanActiveWithEmbedding(ctx)
	if err != nil {
		return summary, fmt.Errorf("scan stored embeddings: %w", err)
	}

	var keptVectors [][]float32
	var survivors []store.UpsertItem

	for i, pd := range toEmbed {
		var vec []float32
		if vectors != nil && i < len(vectors) {
			vec = vectors[i]
			pd.mem.Embedding = vectormath.Serialize(vec)
		}

		if vec != nil && p.isSemanticDuplicate(pd.mem.Domain, vec, stored, keptVectors) {
			summary.Skipped++
			continue
		}

		survivors = append(survivors, store.UpsertItem{Memory: pd.mem, Tags: pd.tags})
		if vec != nil {
			keptVectors = append(keptVectors, vec)
		}
	}

	// The whole batch's upserts and embedding-blob writes land in one
	// transaction (spec §4.7 step 6, §5 "a reader either sees the whole
	// batch or none"): a failure here rolls every survivor back rather than
	// leaving a partially-written batch.
	if len(survivors) > 0 {
		n, err := p.store.UpsertMany(ctx, survivors)
		if err != nil {
			summary.Errored += len(survivors)
			p.log.Warn("ingestion: batch upsert failed, no candidates stored", "count", len(survivors), "error", err)
		} else {
			summary.Added += n
		}
	}

	return summary, nil
}

func (p *Pipeline) isSemanticDuplicate(domain string, vec []float32, stored []*models.Memory, kept [][]float32) bool {
	var sims []float64
	for _, m := range stored {
		if m.Domain != domain {
			continue
		}
		storedVec := vectormath.Deserialize(m.Embedding, len(vec))
		if storedVec == nil {
			continue
		}
		sims = append(sims, vectormath.Cosine(vec, storedVec))
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(sims)))
	if len(sims) > TopKAgainstStore {
		sims = sims[:TopKAgainstStore]
	}

	best := 0.0
	if len(sims) > 0 {
		best = sims[0]
	}

	for _, kv := range kept {
		if sim := vectormath.Cosine(vec, kv); sim > best {
			best = sim
		}
	}

	return best >= SemanticDedupThreshold
}

// EmbedText builds the concatenation format from spec §4.2: fields omitted
// when empty, whitespace-joined, truncated to embedclient.MaxChars.
func EmbedText(m *models.Memory) string {
	var parts []string
	if m.Domain != "" {
		parts = append(parts, "["+m.Domain+"]")
	}
	if m.PatternType != nil {
		parts = append(parts, "("+string(*m.PatternType)+")")
	}
	if m.Title != "" {
		parts = append(parts, m.Title)
	}
	if m.Detail != "" {
		parts = append(parts, m.Detail)
	}
	if m.SourceSection != "" {
		parts = append(parts, m.SourceSection)
	}
	return embedclient.Truncate(strings.Join(parts, " "))
}

// FingerprintKey builds the Meta key an atomiser source's content
// fingerprint is recorded under.
func FingerprintKey(path string) string {
	return "atomize_hash:" + path
}

// ShouldSkipSource reports whether path's content is unchanged since the
// last run, unless force is set.
func (p *Pipeline) ShouldSkipSource(ctx context.Context, path string, content []byte, force bool) (bool, error) {
	if force {
		return false, nil
	}
	key := FingerprintKey(path)
	prev, ok, err := p.store.GetMeta(ctx, key)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	return prev == SourceFingerprint(content), nil
}

// RecordSourceFingerprint stores the current fingerprint for path.
func (p *Pipeline) RecordSourceFingerprint(ctx context.Context, path string, content []byte) error {
	return p.store.SetMeta(ctx, FingerprintKey(path), SourceFingerprint(content))
}
