// Package retrieval composes the query-time pipeline: embed, scan, score,
// diversify-and-budget-select, spread, then bump/wire the returned set
// (spec §4.6). Grounded in the teacher's HybridSearcher.Search — same
// scan/score/sort/limit/spread/post-update shape, generalised from cognitive
// science weights to the spec's semantic/activation/domain formula.
package retrieval

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/patternforge/hebbian/internal/activation"
	"github.com/patternforge/hebbian/internal/cooccurrence"
	"github.com/patternforge/hebbian/internal/embedclient"
	"github.com/patternforge/hebbian/internal/models"
	"github.com/patternforge/hebbian/internal/vectormath"
)

// SemanticFloor is the hard minimum cosine similarity a candidate must clear
// when a query embedding is available.
const SemanticFloor = 0.30

// MaxDomainRepeats caps how many non-spread items from one domain may
// appear in a single result.
const MaxDomainRepeats = 3

// SpreadFillFraction is the char-budget fraction below which the fill pass
// runs.
const SpreadFillFraction = 0.90

// MaxSpreadNeighbours caps how many spread-origin items the fill pass adds.
const MaxSpreadNeighbours = 8

// MaxPostEffectIDs caps how many selected ids receive activation bump and
// co-occurrence wiring after a retrieval.
const MaxPostEffectIDs = 20

var typeBonuses = map[models.PatternType]float64{
	models.PatternRule:       0.08,
	models.PatternDirective:  0.08,
	models.PatternCorrection: 0.05,
	models.PatternBugInsight: 0.05,
	models.PatternCommand:    0.04,
	models.PatternSolution:   0.03,
}

// Weights are the scoring coefficients (spec §4.6, default 0.6/0.3/0.1).
type Weights struct {
	Semantic   float64
	Activation float64
	Domain     float64
}

// Params is one retrieval request.
type Params struct {
	Query       string
	Domains     []string // 0-3 hints
	MaxEntries  int
	TokenBudget int
	Weights     Weights
}

// Item is one selected memory, annotated with its score and whether it was
// added by the spreading-activation fill pass.
type Item struct {
	Memory     *models.Memory
	Score      float64
	SpreadFrom bool
}

// Store is the subset of store.Store the pipeline reads and writes.
type Store interface {
	ScanActiveWithEmbedding(ctx context.Context) ([]*models.Memory, error)
	ScanByDomain(ctx context.Context, domain string) ([]*models.Memory, error)
	ScanTopActive(ctx context.Context, n int) ([]*models.Memory, error)
	BumpMany(ctx context.Context, ids []string, delta float64, now int64) (int, error)
	UpsertCooccurrences(ctx context.Context, pairs []models.CooccurrencePair, weight float64) error
	Neighbours(ctx context.Context, id string, k int) ([]models.CooccurrenceEdge, error)
	GetByID(ctx context.Context, id string) (*models.Memory, error)
}

// QueryCache is the process-local query-embedding cache consulted before a
// live embedding call, keyed on the raw query text (spec §5). embedcache.Cache
// satisfies this.
type QueryCache interface {
	Get(query string) ([]float32, bool)
	Set(query string, vec []float32)
}

// Pipeline runs retrievals against a Store using an embedclient.Client.
type Pipeline struct {
	store    Store
	embedder embedclient.Client
	cache    QueryCache
	log      *slog.Logger
}

func New(store Store, embedder embedclient.Client, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{store: store, embedder: embedder, log: log}
}

// SetCache attaches a query-embedding cache. A nil cache (the default) means
// every retrieval embeds its query live.
func (p *Pipeline) SetCache(cache QueryCache) {
	p.cache = cache
}

// Retrieve runs the full pipeline and fires the post-return side effects
// before returning. Per spec §5, the bump/wire writes are ordered after the
// scan/score/select snapshot and must not affect the current call's ranking
// — running them after the result is assembled satisfies that without
// needing a background goroutine.
func (p *Pipeline) Retrieve(ctx context.Context, params Params) ([]Item, error) {
	if params.MaxEntries <= 0 {
		params.MaxEntries = 20
	}
	if params.TokenBudget <= 0 {
		params.TokenBudget = 800
	}
	if params.Weights == (Weights{}) {
		params.Weights = Weights{Semantic: 0.6, Activation: 0.3, Domain: 0.1}
	}

	queryEmb := p.embedQuery(ctx, params.Query)

	candidates, err := p.selectCandidates(ctx, queryEmb, params.Domains)
	if err != nil {
		return nil, err
	}

	if queryEmb != nil {
		candidates = filterSemanticFloor(candidates, queryEmb)
	}

	scored := p.score(candidates, queryEmb, params)
	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	charBudget := params.TokenBudget * 4
	selected, usedChars := selectDiverseBudgeted(scored, params.MaxEntries, charBudget)

	if usedChars < int(float64(charBudget)*SpreadFillFraction) {
		selected = p.fillFromSpread(ctx, selected, charBudget, usedChars)
	}

	p.applyPostEffects(ctx, selected)

	return selected, nil
}

func (p *Pipeline) embedQuery(ctx context.Context, query string) []float32 {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil
	}
	if p.embedder == nil {
		return nil
	}

	if p.cache != nil {
		if vec, ok := p.cache.Get(query); ok {
			return vec
		}
	}

	vecs, err := p.embedder.Embed(ctx, []string{embedclient.Truncate(query)})
	if err != nil || len(vecs) == 0 {
		p.log.Warn("query embedding failed, degrading to activation-only retrieval", "error", err)
		return nil
	}

	if p.cache != nil {
		p.cache.Set(query, vecs[0])
	}
	return vecs[0]
}

func (p *Pipeline) selectCandidates(ctx context.Context, queryEmb []float32, domains []string) ([]*models.Memory, error) {
	if queryEmb != nil {
		return p.store.ScanActiveWithEmbedding(ctx)
	}
	if len(domains) > 0 {
		var out []*models.Memory
		seen := make(map[string]bool)
		for _, d := range domains {
			mems, err := p.store.ScanByDomain(ctx, d)
			if err != nil {
				return nil, err
			}
			for _, m := range mems {
				if !seen[m.ID] {
					seen[m.ID] = true
					out = append(out, m)
				}
			}
		}
		return out, nil
	}
	return p.store.ScanTopActive(ctx, 100)
}

func filterSemanticFloor(candidates []*models.Memory, queryEmb []float32) []*models.Memory {
	out := candidates[:0]
	for _, m := range candidates {
		vec := vectormath.Deserialize(m.Embedding, len(queryEmb))
		if vec == nil {
			continue
		}
		if vectormath.Cosine(queryEmb, vec) >= SemanticFloor {
			out = append(out, m)
		}
	}
	return out
}

func (p *Pipeline) score(candidates []*models.Memory, queryEmb []float32, params Params) []Item {
	raw := make([]float64, len(candidates))
	for i, m := range candidates {
		raw[i] = m.Activation
	}
	normalized := activation.Normalize(raw)

	now := time.Now()
	items := make([]Item, len(candidates))
	for i, m := range candidates {
		var sim float64
		if queryEmb != nil {
			vec := vectormath.Deserialize(m.Embedding, len(queryEmb))
			sim = vectormath.Cosine(queryEmb, vec)
		}

		s := params.Weights.Semantic*sim + params.Weights.Activation*normalized[i]

		if !m.LastRetrieved.IsZero() && now.Sub(m.LastRetrieved) < 24*time.Hour {
			s += 0.03
		}
		if hintMatches(params.Domains, m.Domain) {
			s += params.Weights.Domain
		}
		if m.PatternType != nil {
			s += typeBonuses[*m.PatternType]
		}

		if m.Domain == models.GeneralDomain {
			s -= 0.20
		}
		if strings.Contains(strings.ToLower(m.Title), "daily log") {
			s -= 0.25
		}
		if m.PatternType == nil {
			s -= 0.10
		}
		if len(m.Detail) < 20 {
			s -= 0.15
		}

		items[i] = Item{Memory: m, Score: s}
	}
	return items
}

func hintMatches(hints []string, domain string) bool {
	d := strings.ToLower(domain)
	for _, h := range hints {
		if strings.Contains(d, strings.ToLower(h)) {
			return true
		}
	}
	return false
}

func selectDiverseBudgeted(ranked []Item, maxEntries, charBudget int) ([]Item, int) {
	var selected []Item
	domainCount := make(map[string]int)
	used := 0

	for _, item := range ranked {
		if len(selected) >= maxEntries {
			break
		}
		if domainCount[item.Memory.Domain] >= MaxDomainRepeats {
			continue
		}

		charge := chargeFor(item.Memory) + 20
		if used+charge > charBudget && len(selected) > 0 {
			break
		}

		selected = append(selected, item)
		domainCount[item.Memory.Domain]++
		used += charge
	}

	return selected, used
}

func chargeFor(m *models.Memory) int {
	if m.Detail != "" {
		return len(m.Detail)
	}
	return len(m.Title)
}

func (p *Pipeline) fillFromSpread(ctx context.Context, selected []Item, charBudget, used int) []Item {
	exclude := make(map[string]bool, len(selected))
	seeds := make([]string, 0, len(selected))
	for _, it := range selected {
		exclude[it.Memory.ID] = true
		seeds = append(seeds, it.Memory.ID)
	}
	if len(seeds) == 0 {
		return selected
	}

	hits, err := cooccurrence.Spread(ctx, p.store, seeds, exclude)
	if err != nil {
		p.log.Warn("spreading activation fill failed", "error", err)
		return selected
	}

	added := 0
	for _, hit := range hits {
		if added >= MaxSpreadNeighbours {
			break
		}
		m, err := p.store.GetByID(ctx, hit.ID)
		if err != nil || m == nil || !m.IsActive() {
			continue
		}
		charge := chargeFor(m) + 20
		if used+charge > charBudget {
			break
		}
		selected = append(selected, Item{Memory: m, Score: hit.Boost, SpreadFrom: true})
		used += charge
		added++
	}

	return selected
}

func (p *Pipeline) applyPostEffects(ctx context.Context, selected []Item) {
	now := time.Now().Unix()

	postIDs := make([]string, 0, MaxPostEffectIDs)
	domainOf := make(map[string]string)
	for _, it := range selected {
		if len(postIDs) >= MaxPostEffectIDs {
			break
		}
		if it.Memory.Domain == "" || it.Memory.PatternType == nil {
			continue
		}
		postIDs = append(postIDs, it.Memory.ID)
		domainOf[it.Memory.ID] = it.Memory.Domain
	}
	if len(postIDs) == 0 {
		return
	}

	if affected, err := p.store.BumpMany(ctx, postIDs, activation.RetrievalDelta, now); err != nil {
		p.log.Warn("activation bump failed", "ids", postIDs, "error", err)
	} else if affected != len(postIDs) {
		p.log.Warn("activation bump affected fewer rows than selected", "selected", len(postIDs), "affected", affected)
	}

	if len(postIDs) > 1 {
		if err := cooccurrence.Wire(ctx, p.store, postIDs, domainOf); err != nil {
			p.log.Warn("cooccurrence wire failed", "error", err)
		}
	}
}
