// Package postgres implements store.Store on PostgreSQL via lib/pq,
// grounded in ob-labs-powermem-go's DSN-and-init-tables client shape. Unlike
// that client it does not depend on the pgvector extension: embeddings are
// stored as raw little-endian blobs and compared in Go (vectormath), the
// same representation sqlite uses, so a deployment can switch backends
// without a re-embedding pass.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/patternforge/hebbian/internal/errs"
	"github.com/patternforge/hebbian/internal/models"
	"github.com/patternforge/hebbian/internal/store"
)

type Store struct {
	db *sql.DB
}

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN builds a key=value postgres connection string from the individual
// fields, for passing to Open. Open also accepts a "postgres://" URL as-is.
func (c Config) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, sslMode)
}

// Open connects using a raw DSN (typically a "postgres://" URL) and
// initializes the schema.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) initSchema(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS memories (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  detail TEXT NOT NULL,
  domain TEXT NOT NULL,
  pattern_type TEXT,
  source TEXT,
  source_section TEXT,
  created_at TIMESTAMPTZ NOT NULL,
  last_retrieved_at TIMESTAMPTZ,
  retrieval_count BIGINT NOT NULL DEFAULT 0,
  activation DOUBLE PRECISION NOT NULL DEFAULT 1.0,
  content_hash TEXT NOT NULL,
  embedding BYTEA,
  status TEXT NOT NULL DEFAULT 'active',
  superseded_by TEXT REFERENCES memories(id) ON DELETE SET NULL,
  corrects TEXT REFERENCES memories(id) ON DELETE SET NULL,
  impact_score DOUBLE PRECISION NOT NULL DEFAULT 0.0
);

CREATE INDEX IF NOT EXISTS idx_memories_domain ON memories(domain);
CREATE INDEX IF NOT EXISTS idx_memories_activation ON memories(activation DESC);
CREATE INDEX IF NOT EXISTS idx_memories_pattern_type ON memories(pattern_type);
CREATE INDEX IF NOT EXISTS idx_memories_domain_activation ON memories(domain, activation DESC);
CREATE INDEX IF NOT EXISTS idx_memories_status ON memories(status);

CREATE TABLE IF NOT EXISTS memory_tags (
  memory_id TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
  tag TEXT NOT NULL,
  PRIMARY KEY (memory_id, tag)
);
CREATE INDEX IF NOT EXISTS idx_memory_tags_tag ON memory_tags(tag);

CREATE TABLE IF NOT EXISTS cooccurrences (
  a TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
  b TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
  weight DOUBLE PRECISION NOT NULL DEFAULT 0.0,
  PRIMARY KEY (a, b)
);
CREATE INDEX IF NOT EXISTS idx_cooccurrences_a ON cooccurrences(a);
CREATE INDEX IF NOT EXISTS idx_cooccurrences_b ON cooccurrences(b);

CREATE TABLE IF NOT EXISTS meta (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS memory_impacts (
  id BIGSERIAL PRIMARY KEY,
  memory_id TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
  signal TEXT NOT NULL,
  source TEXT NOT NULL,
  session_id TEXT,
  created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_memory_impacts_memory_id ON memory_impacts(memory_id);
CREATE INDEX IF NOT EXISTS idx_memories_impact_score ON memories(impact_score);

CREATE TABLE IF NOT EXISTS embedding_cache (
  content_hash TEXT PRIMARY KEY,
  embedding BYTEA NOT NULL,
  created_at TIMESTAMPTZ NOT NULL
);
`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init postgres schema: %w", err)
	}
	return nil
}

const memoryColumns = `id, title, detail, domain, pattern_type, source, source_section,
	created_at, last_retrieved_at, retrieval_count, activation, content_hash,
	embedding, status, superseded_by, corrects, impact_score`

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

// UpsertMany runs Upsert's insert-or-replace-plus-tags logic for every item
// in items inside one transaction.
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
	var lastRetrieved any
	if !m.LastRetrieved.IsZero() {
		lastRetrieved = m.LastRetrieved
	}
	status := m.Status
	if status == "" {
		status = models.StatusActive
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO memories (
			id, title, detail, domain, pattern_type, source, source_section,
			created_at, last_retrieved_at, retrieval_count, activation,
			content_hash, embedding, status, superseded_by, corrects, impact_score
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		ON CONFLICT (id) DO UPDATE SET
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
		m.Created, lastRetrieved, m.RetrievalCount, m.Activation,
		m.ContentHash, []byte(m.Embedding), string(status), m.SupersededBy, m.Corrects, m.ImpactScore,
	)
	if err != nil {
		return fmt.Errorf("upsert memory %s: %w", m.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM memory_tags WHERE memory_id = $1`, m.ID); err != nil {
		return fmt.Errorf("clear tags for %s: %w", m.ID, err)
	}
	for _, tag := range tags {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO memory_tags (memory_id, tag) VALUES ($1, $2) ON CONFLICT DO NOTHING`, m.ID, tag); err != nil {
			return fmt.Errorf("insert tag for %s: %w", m.ID, err)
		}
	}

	return nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*models.Memory, error) {
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM memories WHERE id = $1`, memoryColumns), id)
	m, err := scanRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return m, err
}

func (s *Store) ScanActiveWithEmbedding(ctx context.Context) ([]*models.Memory, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT %s FROM memories WHERE status = 'active' AND embedding IS NOT NULL`, memoryColumns))
	if err != nil {
		return nil, fmt.Errorf("scan active with embedding: %w", err)
	}
	defer rows.Close()
	return scanMany(rows)
}

func (s *Store) ScanByDomain(ctx context.Context, domain string) ([]*models.Memory, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT %s FROM memories WHERE domain = $1 AND status = 'active' ORDER BY activation DESC`, memoryColumns), domain)
	if err != nil {
		return nil, fmt.Errorf("scan by domain: %w", err)
	}
	defer rows.Close()
	return scanMany(rows)
}

func (s *Store) ScanTopActive(ctx context.Context, n int) ([]*models.Memory, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT %s FROM memories WHERE status = 'active' ORDER BY activation DESC LIMIT $1`, memoryColumns), n)
	if err != nil {
		return nil, fmt.Errorf("scan top active: %w", err)
	}
	defer rows.Close()
	return scanMany(rows)
}

func (s *Store) ScanAllActive(ctx context.Context) ([]*models.Memory, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM memories WHERE status = 'active'`, memoryColumns))
	if err != nil {
		return nil, fmt.Errorf("scan all active: %w", err)
	}
	defer rows.Close()
	return scanMany(rows)
}

func (s *Store) SetEmbedding(ctx context.Context, id string, embedding []byte, contentHash string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE memories SET embedding = $1, content_hash = $2 WHERE id = $3`, embedding, contentHash, id)
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
		UPDATE memories SET activation = activation + $1, retrieval_count = retrieval_count + 1, last_retrieved_at = $2
		WHERE id = $3`, delta, time.Unix(now, 0).UTC(), id)
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
		UPDATE memories SET activation = activation + $1, retrieval_count = retrieval_count + 1, last_retrieved_at = $2
		WHERE id = $3`)
	if err != nil {
		return 0, fmt.Errorf("prepare bump-many: %w", err)
	}
	defer stmt.Close()

	at := time.Unix(now, 0).UTC()
	var affected int
	for _, id := range ids {
		res, err := stmt.ExecContext(ctx, delta, at, id)
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
	_, err := s.db.ExecContext(ctx, `UPDATE memories SET activation = activation * $1 WHERE status = 'active'`, factor)
	if err != nil {
		return fmt.Errorf("decay all: %w", err)
	}
	return nil
}

func (s *Store) LowActivation(ctx context.Context, threshold float64) ([]*models.Memory, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT %s FROM memories WHERE status = 'active' AND activation <= $1 ORDER BY activation ASC`, memoryColumns), threshold)
	if err != nil {
		return nil, fmt.Errorf("low activation: %w", err)
	}
	defer rows.Close()
	return scanMany(rows)
}

func (s *Store) GetMeta(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = $1`, key).Scan(&value)
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
		INSERT INTO meta (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("set meta: %w", err)
	}
	return nil
}

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
		INSERT INTO cooccurrences (a, b, weight) VALUES ($1, $2, $3)
		ON CONFLICT (a, b) DO UPDATE SET weight = cooccurrences.weight + excluded.weight`
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
		INSERT INTO cooccurrences (a, b, weight) VALUES ($1, $2, $3)
		ON CONFLICT (a, b) DO UPDATE SET weight = cooccurrences.weight + excluded.weight`)
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

func (s *Store) Neighbours(ctx context.Context, id string, k int) ([]models.CooccurrenceEdge, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a, b, weight FROM cooccurrences WHERE a = $1 ORDER BY weight DESC LIMIT $2`, id, k)
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

func (s *Store) GetCachedEmbedding(ctx context.Context, contentHash string) ([]byte, bool, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT embedding FROM embedding_cache WHERE content_hash = $1`, contentHash).Scan(&blob)
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
		INSERT INTO embedding_cache (content_hash, embedding, created_at) VALUES ($1, $2, $3)
		ON CONFLICT (content_hash) DO UPDATE SET embedding = excluded.embedding, created_at = excluded.created_at`,
		contentHash, embedding, time.Unix(now, 0).UTC())
	if err != nil {
		return fmt.Errorf("set cached embedding: %w", err)
	}
	return nil
}

func (s *Store) Deprecate(ctx context.Context, oldID, newID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE memories SET status = 'deprecated', superseded_by = $1
		WHERE id = $2 AND status = 'active'`, newID, oldID)
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
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM memories WHERE id = $1)`, correctedID).Scan(&exists); err != nil {
		return fmt.Errorf("check corrected id: %w", err)
	}
	if !exists {
		return errs.New(errs.InvalidID, fmt.Sprintf("corrected memory not found: %s", correctedID))
	}

	res, err := s.db.ExecContext(ctx, `UPDATE memories SET corrects = $1 WHERE id = $2`, correctedID, correctionID)
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

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO memory_impacts (memory_id, signal, source, session_id, created_at)
		VALUES ($1, $2, $3, $4, $5)`, memoryID, string(signal), source, sessionID, now); err != nil {
		return 0, fmt.Errorf("insert impact event: %w", err)
	}

	res, err := tx.ExecContext(ctx, `UPDATE memories SET impact_score = LEAST(1.0, impact_score + $1) WHERE id = $2`, delta, memoryID)
	if err != nil {
		return 0, fmt.Errorf("update impact score: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, errs.New(errs.InvalidID, fmt.Sprintf("memory not found: %s", memoryID))
	}

	var score float64
	if err := tx.QueryRowContext(ctx, `SELECT impact_score FROM memories WHERE id = $1`, memoryID).Scan(&score); err != nil {
		return 0, fmt.Errorf("read impact score: %w", err)
	}

	return score, tx.Commit()
}

func (s *Store) ImpactLeaders(ctx context.Context, limit int) ([]*models.Memory, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT %s FROM memories WHERE impact_score > 0 ORDER BY impact_score DESC LIMIT $1`, memoryColumns), limit)
	if err != nil {
		return nil, fmt.Errorf("impact leaders: %w", err)
	}
	defer rows.Close()
	return scanMany(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
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
	var lastRetrieved sql.NullTime
	var status, supersededBy, corrects sql.NullString

	err := row.Scan(
		&m.ID, &m.Title, &m.Detail, &m.Domain, &patternType, &source, &sourceSection,
		&m.Created, &lastRetrieved, &m.RetrievalCount, &m.Activation, &m.ContentHash,
		&m.Embedding, &status, &supersededBy, &corrects, &m.ImpactScore,
	)
	if err != nil {
		return nil, err
	}

	if lastRetrieved.Valid {
		m.LastRetrieved = lastRetrieved.Time
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
