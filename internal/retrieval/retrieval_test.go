package retrieval_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patternforge/hebbian/internal/models"
	"github.com/patternforge/hebbian/internal/retrieval"
	"github.com/patternforge/hebbian/internal/vectormath"
)

type fakeStore struct {
	byID       map[string]*models.Memory
	bumped     map[string]int
	cooccurred [][2]string
}

func newFakeStore(memories ...*models.Memory) *fakeStore {
	s := &fakeStore{byID: make(map[string]*models.Memory), bumped: make(map[string]int)}
	for _, m := range memories {
		s.byID[m.ID] = m
	}
	return s
}

func (s *fakeStore) ScanActiveWithEmbedding(ctx context.Context) ([]*models.Memory, error) {
	var out []*models.Memory
	for _, m := range s.byID {
		if m.IsActive() && len(m.Embedding) > 0 {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeStore) ScanByDomain(ctx context.Context, domain string) ([]*models.Memory, error) {
	var out []*models.Memory
	for _, m := range s.byID {
		if m.IsActive() && m.Domain == domain {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeStore) ScanTopActive(ctx context.Context, n int) ([]*models.Memory, error) {
	var out []*models.Memory
	for _, m := range s.byID {
		if m.IsActive() {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeStore) BumpMany(ctx context.Context, ids []string, delta float64, now int64) (int, error) {
	for _, id := range ids {
		s.bumped[id]++
	}
	return len(ids), nil
}

func (s *fakeStore) UpsertCooccurrences(ctx context.Context, pairs []models.CooccurrencePair, weight float64) error {
	for _, p := range pairs {
		s.cooccurred = append(s.cooccurred, [2]string{p.A, p.B})
	}
	return nil
}

func (s *fakeStore) Neighbours(ctx context.Context, id string, k int) ([]models.CooccurrenceEdge, error) {
	return nil, nil
}

func (s *fakeStore) GetByID(ctx context.Context, id string) (*models.Memory, error) {
	return s.byID[id], nil
}

func rule() *models.PatternType { p := models.PatternRule; return &p }

func TestRetrieveExcludesBelowSemanticFloor(t *testing.T) {
	queryVec := []float32{1, 0, 0}
	closeMatch := &models.Memory{ID: "close", Domain: "go", Title: "close match", Detail: "matches the query closely enough to pass",
		Embedding: vectormath.Serialize([]float32{0.99, 0.01, 0}), Status: models.StatusActive, PatternType: rule()}
	far := &models.Memory{ID: "far", Domain: "go", Title: "unrelated", Detail: "shares almost nothing with the query vector",
		Embedding: vectormath.Serialize([]float32{0, 1, 0}), Status: models.StatusActive, PatternType: rule()}

	store := newFakeStore(closeMatch, far)
	pipeline := retrieval.New(store, stubEmbedder{vec: queryVec}, nil)

	items, err := pipeline.Retrieve(context.Background(), retrieval.Params{Query: "q"})
	require.NoError(t, err)

	ids := idsOf(items)
	assert.Contains(t, ids, "close")
	assert.NotContains(t, ids, "far")
}

func TestRetrieveDiversityCapAcrossDomains(t *testing.T) {
	queryVec := []float32{1, 0, 0}
	var memories []*models.Memory
	for i := 0; i < 6; i++ {
		memories = append(memories, &models.Memory{
			ID: "go-" + string(rune('a'+i)), Domain: "go", Title: "go pattern", Detail: "a reasonably long detail string for budgeting",
			Embedding: vectormath.Serialize([]float32{1, 0, 0}), Status: models.StatusActive, PatternType: rule(),
		})
	}
	store := newFakeStore(memories...)
	pipeline := retrieval.New(store, stubEmbedder{vec: queryVec}, nil)

	items, err := pipeline.Retrieve(context.Background(), retrieval.Params{Query: "q", MaxEntries: 20, TokenBudget: 10000})
	require.NoError(t, err)

	assert.LessOrEqual(t, len(items), retrieval.MaxDomainRepeats)
}

func TestRetrieveDegradesWithoutEmbedder(t *testing.T) {
	m := &models.Memory{ID: "m1", Domain: "go", Title: "t", Detail: "some detail text long enough", Activation: 2.0, Status: models.StatusActive, PatternType: rule()}
	store := newFakeStore(m)
	pipeline := retrieval.New(store, nil, nil)

	items, err := pipeline.Retrieve(context.Background(), retrieval.Params{Query: "q"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "m1", items[0].Memory.ID)
}

func TestRetrieveAppliesPostEffects(t *testing.T) {
	queryVec := []float32{1, 0, 0}
	m := &models.Memory{ID: "m1", Domain: "go", Title: "t", Detail: "some detail text that is long enough to pass the length penalty",
		Embedding: vectormath.Serialize([]float32{1, 0, 0}), Status: models.StatusActive, PatternType: rule()}
	store := newFakeStore(m)
	pipeline := retrieval.New(store, stubEmbedder{vec: queryVec}, nil)

	_, err := pipeline.Retrieve(context.Background(), retrieval.Params{Query: "q"})
	require.NoError(t, err)
	assert.Equal(t, 1, store.bumped["m1"])
}

func TestRetrieveEmptyQueryNoEmbedding(t *testing.T) {
	m := &models.Memory{ID: "m1", Domain: "go", Title: "t", Detail: "detail", Activation: 1.0, Status: models.StatusActive}
	store := newFakeStore(m)
	pipeline := retrieval.New(store, stubEmbedder{vec: []float32{1, 0, 0}}, nil)

	items, err := pipeline.Retrieve(context.Background(), retrieval.Params{Query: "   "})
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

type stubEmbedder struct{ vec []float32 }

func (s stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = s.vec
	}
	return out, nil
}
func (s stubEmbedder) Dimension() int { return len(s.vec) }

func idsOf(items []retrieval.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Memory.ID
	}
	return out
}

