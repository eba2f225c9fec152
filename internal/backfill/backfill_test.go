package backfill_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patternforge/hebbian/internal/backfill"
	"github.com/patternforge/hebbian/internal/ingestion"
	"github.com/patternforge/hebbian/internal/models"
	"github.com/patternforge/hebbian/internal/vectormath"
)

type fakeStore struct {
	memories []*models.Memory
	embedded map[string][]byte
	cache    map[string][]byte
}

func newFakeStore(memories ...*models.Memory) *fakeStore {
	return &fakeStore{memories: memories, embedded: make(map[string][]byte), cache: make(map[string][]byte)}
}

func (s *fakeStore) ScanAllActive(ctx context.Context) ([]*models.Memory, error) {
	return s.memories, nil
}

func (s *fakeStore) SetEmbedding(ctx context.Context, id string, embedding []byte, contentHash string) error {
	s.embedded[id] = embedding
	for _, m := range s.memories {
		if m.ID == id {
			m.Embedding = embedding
			m.ContentHash = contentHash
		}
	}
	return nil
}

func (s *fakeStore) GetCachedEmbedding(ctx context.Context, contentHash string) ([]byte, bool, error) {
	v, ok := s.cache[contentHash]
	return v, ok, nil
}

func (s *fakeStore) SetCachedEmbedding(ctx context.Context, contentHash string, embedding []byte, now int64) error {
	s.cache[contentHash] = embedding
	return nil
}

type stubEmbedder struct {
	calls int
	vec   []float32
}

func (e *stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls++
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = e.vec
	}
	return out, nil
}

func (e *stubEmbedder) Dimension() int { return 3 }

func TestBackfillSkipsUpToDateMemories(t *testing.T) {
	vec := []float32{1, 0, 0}
	m := &models.Memory{ID: "m1", Detail: "detail text", Status: models.StatusActive,
		Embedding: vectormath.Serialize(vec), ContentHash: ingestion.ContentHash("detail text")}
	store := newFakeStore(m)
	embedder := &stubEmbedder{vec: vec}

	summary, err := backfill.Run(context.Background(), store, embedder, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.UpToDate)
	assert.Equal(t, 0, summary.Embedded)
	assert.Equal(t, 0, embedder.calls)
}

func TestBackfillEmbedsMissingEmbedding(t *testing.T) {
	m := &models.Memory{ID: "m1", Detail: "needs an embedding", Status: models.StatusActive}
	store := newFakeStore(m)
	embedder := &stubEmbedder{vec: []float32{0.1, 0.2, 0.3}}

	summary, err := backfill.Run(context.Background(), store, embedder, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Embedded)
	assert.Equal(t, 1, embedder.calls)
	assert.NotNil(t, store.embedded["m1"])
}

func TestBackfillUsesPersistentCacheBeforeEmbedding(t *testing.T) {
	m := &models.Memory{ID: "m1", Detail: "cached detail", Status: models.StatusActive}
	store := newFakeStore(m)
	hash := ingestion.ContentHash("cached detail")
	cachedBlob := vectormath.Serialize([]float32{9, 9, 9})
	store.cache[hash] = cachedBlob

	embedder := &stubEmbedder{vec: []float32{0, 0, 0}}
	summary, err := backfill.Run(context.Background(), store, embedder, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.FromCache)
	assert.Equal(t, 0, embedder.calls)
	assert.Equal(t, cachedBlob, store.embedded["m1"])
}

func TestBackfillReembedsOnDimensionMismatch(t *testing.T) {
	wrongDimVec := []float32{1, 0} // stored with dimension 2, embedder expects 3
	m := &models.Memory{ID: "m1", Detail: "dimension changed", Status: models.StatusActive,
		Embedding: vectormath.Serialize(wrongDimVec), ContentHash: ingestion.ContentHash("dimension changed")}
	store := newFakeStore(m)
	embedder := &stubEmbedder{vec: []float32{1, 1, 1}}

	summary, err := backfill.Run(context.Background(), store, embedder, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Embedded)
	assert.Equal(t, 1, embedder.calls)
}
