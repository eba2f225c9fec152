package sqlite

import (
	"context"
	"fmt"

	"github.com/patternforge/hebbian/internal/models"
)

// UpsertCooccurrence adds weight to both directed halves of the (a,b) edge,
// creating them if absent, in one transaction (spec §3 invariant: the graph
// is symmetric and both directions are stored explicitly).
func (s *Store) UpsertCooccurrence(ctx context.Context, a, b string, weight float64) error {
	if a == b {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cooccurrence tx: %w", err)
	}
	defer tx.Rollback()

	stmt := `
		INSERT INTO cooccurrences (a, b, weight) VALUES (?, ?, ?)
		ON CONFLICT(a, b) DO UPDATE SET weight = weight + excluded.weight`

	if _, err := tx.ExecContext(ctx, stmt, a, b, weight); err != nil {
		return fmt.Errorf("upsert cooccurrence a->b: %w", err)
	}
	if _, err := tx.ExecContext(ctx, stmt, b, a, weight); err != nil {
		return fmt.Errorf("upsert cooccurrence b->a: %w", err)
	}

	return tx.Commit()
}

// UpsertCooccurrences applies UpsertCooccurrence's symmetric-pair update for
// every pair in pairs inside a single transaction, so a wired group commits
// atomically (spec §4.5 "writes are done in a single transaction").
func (s *Store) UpsertCooccurrences(ctx context.Context, pairs []models.CooccurrencePair, weight float64) error {
	if len(pairs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cooccurrences tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cooccurrences (a, b, weight) VALUES (?, ?, ?)
		ON CONFLICT(a, b) DO UPDATE SET weight = weight + excluded.weight`)
	if err != nil {
		return fmt.Errorf("prepare cooccurrences: %w", err)
	}
	defer stmt.Close()

	for _, p := range pairs {
		if p.A == p.B {
			continue
		}
		if _, err := stmt.ExecContext(ctx, p.A, p.B, weight); err != nil {
			return fmt.Errorf("upsert cooccurrence %s->%s: %w", p.A, p.B, err)
		}
		if _, err := stmt.ExecContext(ctx, p.B, p.A, weight); err != nil {
			return fmt.Errorf("upsert cooccurrence %s->%s: %w", p.B, p.A, err)
		}
	}

	return tx.Commit()
}

// Neighbours returns the top-k co-occurrence neighbours of id by descending
// weight.
func (s *Store) Neighbours(ctx context.Context, id string, k int) ([]models.CooccurrenceEdge, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a, b, weight FROM cooccurrences WHERE a = ? ORDER BY weight DESC LIMIT ?`, id, k)
	if err != nil {
		return nil, fmt.Errorf("neighbours: %w", err)
	}
	defer rows.Close()

	var out []models.CooccurrenceEdge
	for rows.Next() {
		var e models.CooccurrenceEdge
		if err := rows.Scan(&e.A, &e.B, &e.Weight); err != nil {
			return nil, fmt.Errorf("scan neighbour: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
