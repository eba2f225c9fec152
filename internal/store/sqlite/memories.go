package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/patternforge/hebbian/internal/errs"
	"github.com/patternforge/hebbian/internal/models"
	"github.com/patternforge/hebbian/internal/store"
)

const memoryColumns = `id, title, detail, domain, pattern_type, source, source_section,
	created_at, last_retrieved_at, retrieval_count, activation, content_hash,
	embedding, status, superseded_by, corrects, impact_score`

// Upsert inserts or replaces a memory and rewrites its tag edges, in one
// transaction.
func (s *Store) Upsert(ctx context.Context, m *models.Memory, tags []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert tx: %w", err)
	}
	defer tx.Rollback()

	if err := upsertMemoryTx(ctx, tx, m, tags); err != nil {
		return err
	}

	return tx.Commit()
}

// UpsertMany runs the same insert-or-replace-plus-tags logic as Upsert for
// every item in items, all inside one transaction.
func (s *Store) UpsertMany(ctx context.Context, items []store.UpsertItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin upsert-many tx: %w", err)
	}
	defer tx.Rollback()

	for _, item := range items {
		if err := upsertMemoryTx(ctx, tx, item.Memory, item.Tags); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit upsert-many tx: %w", err)
	}
	return len(items), nil
}

func upsertMemoryTx(ctx context.Context, tx *sql.Tx, m *models.Memory, tags []string) error {
	var patternType any
	if m.PatternType != nil {
		patternType = string(*m.PatternType)
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO memories (
			id, title, detail, domain, pattern_type, source, source_section,
			created_at, last_retrieved_at, retrieval_count, activation,
			content_hash, embedding, status, superseded_by, corrects, impact_score
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			detail = excluded.detail,
			domain = excluded.domain,
			pattern_type = excluded.pattern_type,
			source = excluded.source,
			source_section = excluded.source_section,
			content_hash = excluded.content_hash,
			embedding = excluded.embedding
	`,
		m.ID, m.Title, m.Detail, m.Domain, patternType, m.Source, m.SourceSection,
		m.Created.Unix(), nullableUnix(m.LastRetrieved), m.RetrievalCount, m.Activation,
		m.ContentHash, m.Embedding, string(orDefault(m.Status, models.StatusActive)),
		m.SupersededBy, m.Corrects, m.ImpactScore,
	)
	if err != nil {
		return fmt.Errorf("upsert memory %s: %w", m.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM memory_tags WHERE memory_id = ?`, m.ID); err != nil {
		return fmt.Errorf("clear tags for %s: %w", m.ID, err)
	}
	for _, tag := range tags {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO memory_tags (memory_id, tag) VALUES (?, ?)`, m.ID, tag); err != nil {
			return fmt.Errorf("insert tag for %s: %w", m.ID, err)
		}
	}

	return nil
}

func orDefault(s models.Status, def models.Status) models.Status {
	if s == "" {
		return def
	}
	return s
}

func (s *Store) GetByID(ctx context.Context, id string) (*models.Memory, error) {
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM memories WHERE id = ?`, memoryColumns), id)
	m, err := scanOne(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return m, err
}

func (s *Store) ScanActiveWithEmbedding(ctx context.Context) ([]*models.Memory, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT %s FROM memories WHERE (status = 'active' OR status = '') AND embedding IS NOT NULL`, memoryColumns))
	if err != nil {
		return nil, fmt.Errorf("scan active with embedding: %w", err)
	}
	defer rows.Close()
	return scanMany(rows)
}

func (s *Store) ScanByDomain(ctx context.Context, domain string) ([]*models.Memory, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT %s FROM memories WHERE domain = ? AND (status = 'active' OR status = '') ORDER BY activation DESC`, memoryColumns),
		domain)
	if err != nil {
		return nil, fmt.Errorf("scan by domain: %w", err)
	}
	defer rows.Close()
	return scanMany(rows)
}

func (s *Store) ScanTopActive(ctx context.Context, n int) ([]*models.Memory, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT %s FROM memories WHERE (status = 'active' OR status = '') ORDER BY activation DESC LIMIT ?`, memoryColumns),
		n)
	if err != nil {
		return nil, fmt.Errorf("scan top active: %w", err)
	}
	defer rows.Close()
	return scanMany(rows)
}

func (s *Store) ScanAllActive(ctx context.Context) ([]*models.Memory, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT %s FROM memories WHERE (status = 'active' OR status = '')`, memoryColumns))
	if err != nil {
		return nil, fmt.Errorf("scan all active: %w", err)
	}
	defer rows.Close()
	return scanMany(rows)
}

func (s *Store) SetEmbedding(ctx context.Context, id string, embedding []byte, contentHash string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE memories SET embedding = ?, content_hash = ? WHERE id = ?`, embedding, contentHash, id)
	if err != nil {
		return fmt.Errorf("set embedding: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return errs.New(errs.InvalidID, fmt.Sprintf("memory not found: %s", id))
	}
	return nil
}

func (s *Store) BumpActivation(ctx context.Context, id string, delta float64, now int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE memories SET activation = activation + ?, retrieval_count = retrieval_count + 1, last_retrieved_at = ?
		WHERE id = ?`, delta, now, id)
	if err != nil {
		return fmt.Errorf("bump activation: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return errs.New(errs.InvalidID, fmt.Sprintf("memory not found: %s", id))
	}
	return nil
}

// BumpMany applies BumpActivation's update to every id in ids inside one
// transaction and returns the total number of rows affected.
func (s *Store) BumpMany(ctx context.Context, ids []string, delta float64, now int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin bump-many tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE memories SET activation = activation + ?, retrieval_count = retrieval_count + 1, last_retrieved_at = ?
		WHERE id = ?`)
	if err != nil {
		return 0, fmt.Errorf("prepare bump-many: %w", err)
	}
	defer stmt.Close()

	var affected int
	for _, id := range ids {
		res, err := stmt.ExecContext(ctx, delta, now, id)
		if err != nil {
			return 0, fmt.Errorf("bump activation for %s: %w", id, err)
		}
		n, _ := res.RowsAffected()
		affected += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit bump-many tx: %w", err)
	}
	return affected, nil
}

func (s *Store) DecayAll(ctx context.Context, factor float64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE memories SET activation = activation * ? WHERE status = 'active' OR status = ''`, factor)
	if err != nil {
		return fmt.Errorf("decay all: %w", err)
	}
	return nil
}

func (s *Store) LowActivation(ctx context.Context, threshold float64) ([]*models.Memory, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT %s FROM memories WHERE (status = 'active' OR status = '') AND activation <= ? ORDER BY activation ASC`, memoryColumns),
		threshold)
	if err != nil {
		return nil, fmt.Errorf("low activation: %w", err)
	}
	defer rows.Close()
	return scanMany(rows)
}

func (s *Store) GetMeta(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get meta: %w", err)
	}
	return value, true, nil
}

func (s *Store) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("set meta: %w", err)
	}
	return nil
}

func (s *Store) GetCachedEmbedding(ctx context.Context, contentHash string) ([]byte, bool, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT embedding FROM embedding_cache WHERE content_hash = ?`, contentHash).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cached embedding: %w", err)
	}
	return blob, true, nil
}

func (s *Store) SetCachedEmbedding(ctx context.Context, contentHash string, embedding []byte, now int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO embedding_cache (content_hash, embedding, created_at) VALUES (?, ?, ?)
		ON CONFLICT(content_hash) DO UPDATE SET embedding = excluded.embedding, created_at = excluded.created_at`,
		contentHash, embedding, now)
	if err != nil {
		return fmt.Errorf("set cached embedding: %w", err)
	}
	return nil
}

func (s *Store) Deprecate(ctx context.Context, oldID, newID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE memories SET status = 'deprecated', superseded_by = ?
		WHERE id = ? AND (status = 'active' OR status = '')`, newID, oldID)
	if err != nil {
		return fmt.Errorf("deprecate: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return errs.New(errs.InvalidID, fmt.Sprintf("memory not found or already deprecated: %s", oldID))
	}
	return nil
}

func (s *Store) MarkCorrection(ctx context.Context, correctionID, correctedID string) error {
	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM memories WHERE id = ?)`, correctedID).Scan(&exists); err != nil {
		return fmt.Errorf("check corrected id: %w", err)
	}
	if !exists {
		return errs.New(errs.InvalidID, fmt.Sprintf("corrected memory not found: %s", correctedID))
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE memories SET corrects = ? WHERE id = ?`, correctedID, correctionID)
	if err != nil {
		return fmt.Errorf("mark correction: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return errs.New(errs.InvalidID, fmt.Sprintf("correction memory not found: %s", correctionID))
	}
	return nil
}

func (s *Store) RecordImpact(ctx context.Context, memoryID string, signal models.ImpactSignal, source, sessionID string) (float64, error) {
	delta, ok := models.SignalDeltas[signal]
	if !ok {
		return 0, errs.New(errs.InvalidID, fmt.Sprintf("unknown impact signal: %s", signal))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin impact tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO memory_impacts (memory_id, signal, source, session_id, created_at)
		VALUES (?, ?, ?, ?, ?)`, memoryID, string(signal), source, sessionID, now); err != nil {
		return 0, fmt.Errorf("insert impact event: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE memories SET impact_score = MIN(1.0, impact_score + ?) WHERE id = ?`, delta, memoryID)
	if err != nil {
		return 0, fmt.Errorf("update impact score: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, errs.New(errs.InvalidID, fmt.Sprintf("memory not found: %s", memoryID))
	}

	var score float64
	if err := tx.QueryRowContext(ctx, `SELECT impact_score FROM memories WHERE id = ?`, memoryID).Scan(&score); err != nil {
		return 0, fmt.Errorf("read impact score: %w", err)
	}

	return score, tx.Commit()
}

func (s *Store) ImpactLeaders(ctx context.Context, limit int) ([]*models.Memory, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT %s FROM memories WHERE impact_score > 0 ORDER BY impact_score DESC LIMIT ?`, memoryColumns), limit)
	if err != nil {
		return nil, fmt.Errorf("impact leaders: %w", err)
	}
	defer rows.Close()
	return scanMany(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOne(row rowScanner) (*models.Memory, error) {
	m, err := scanRow(row)
	return m, err
}

func scanMany(rows *sql.Rows) ([]*models.Memory, error) {
	var out []*models.Memory
	for rows.Next() {
		m, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanRow(row rowScanner) (*models.Memory, error) {
	var m models.Memory
	var patternType, source, sourceSection sql.NullString
	var lastRetrieved sql.NullInt64
	var status, supersededBy, corrects sql.NullString
	var createdAt int64

	err := row.Scan(
		&m.ID, &m.Title, &m.Detail, &m.Domain, &patternType, &source, &sourceSection,
		&createdAt, &lastRetrieved, &m.RetrievalCount, &m.Activation, &m.ContentHash,
		&m.Embedding, &status, &supersededBy, &corrects, &m.ImpactScore,
	)
	if err != nil {
		return nil, err
	}

	m.Created = time.Unix(createdAt, 0).UTC()
	if lastRetrieved.Valid {
		m.LastRetrieved = time.Unix(lastRetrieved.Int64, 0).UTC()
	}
	if patternType.Valid {
		pt := models.PatternType(patternType.String)
		m.PatternType = &pt
	}
	if source.Valid {
		m.Source = source.String
	}
	if sourceSection.Valid {
		m.SourceSection = sourceSection.String
	}
	if status.Valid {
		m.Status = models.Status(status.String)
	}
	if supersededBy.Valid {
		m.SupersededBy = &supersededBy.String
	}
	if corrects.Valid {
		m.Corrects = &corrects.String
	}

	return &m, nil
}

func nullableUnix(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Unix()
}
