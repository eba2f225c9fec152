// Package cooccurrence implements the co-retrieval graph: wiring edges when
// memories are returned together, and spreading activation to pull in
// unretrieved neighbours (spec §4.5), grounded in the teacher's one-hop
// applySpreadingActivation pass in internal/search/hybrid.go.
package cooccurrence

import (
	"context"
	"sort"

	"github.com/patternforge/hebbian/internal/models"
)

// WireWeight is the additive weight recorded on every pair in a co-retrieved
// set, per spec §4.5.
const WireWeight = 1.0

// MaxNeighboursPerID caps how many neighbours Spread will pull per seed id.
const MaxNeighboursPerID = 20

// SpreadBoostFactor scales a neighbour's edge weight into an activation
// boost contribution.
const SpreadBoostFactor = 0.3

// Wirer upserts co-occurrence edges. store.Store satisfies this.
type Wirer interface {
	UpsertCooccurrences(ctx context.Context, pairs []models.CooccurrencePair, weight float64) error
}

// Wire adds WireWeight between every pair in ids, grouped by domain — the
// spec restricts wiring to memories sharing a domain, so edges never cross
// unrelated subject areas. Every pair across every domain group commits in
// one transaction (spec §4.5 "writes are done in a single transaction").
func Wire(ctx context.Context, w Wirer, ids []string, domainOf map[string]string) error {
	byDomain := make(map[string][]string)
	for _, id := range ids {
		d := domainOf[id]
		byDomain[d] = append(byDomain[d], id)
	}

	var pairs []models.CooccurrencePair
	for _, group := range byDomain {
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				pairs = append(pairs, models.CooccurrencePair{A: group[i], B: group[j]})
			}
		}
	}
	if len(pairs) == 0 {
		return nil
	}

	return w.UpsertCooccurrences(ctx, pairs, WireWeight)
}

// Neighbourer reads co-occurrence edges. store.Store satisfies this.
type Neighbourer interface {
	Neighbours(ctx context.Context, id string, k int) ([]models.CooccurrenceEdge, error)
}

// SpreadHit is a neighbour surfaced by spreading activation, with the
// activation boost it should receive if selected.
type SpreadHit struct {
	ID    string
	Boost float64
}

// Spread walks one hop of the co-occurrence graph from each seed id, reading
// up to MaxNeighboursPerID neighbours per seed, and returns candidates not
// already in exclude, sorted by descending boost. A neighbour reachable from multiple seeds accumulates a boost
// from each of them, per spec §4.5 ("accumulate boost(n) += weight * 0.3").
func Spread(ctx context.Context, n Neighbourer, seeds []string, exclude map[string]bool) ([]SpreadHit, error) {
	total := make(map[string]float64)

	for _, seed := range seeds {
		edges, err := n.Neighbours(ctx, seed, MaxNeighboursPerID)
		if err != nil {
			return nil, err
		}
		for _, e := range edges {
			if exclude[e.B] {
				continue
			}
			total[e.B] += e.Weight * SpreadBoostFactor
		}
	}

	hits := make([]SpreadHit, 0, len(total))
	for id, boost := range total {
		hits = append(hits, SpreadHit{ID: id, Boost: boost})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Boost > hits[j].Boost })
	return hits, nil
}
