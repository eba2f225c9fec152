// Package sqlite implements store.Store on SQLite, grounded in the
// teacher's WAL/single-writer/idempotent-migration conventions.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Store wraps a SQLite connection configured for the engine's single-writer
// access pattern.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path, applies pragmas for
// concurrent-read/single-write throughput, and runs schema migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=ON"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite handles one writer at a time

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func initSchema(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS memories (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  detail TEXT NOT NULL,
  domain TEXT NOT NULL,
  pattern_type TEXT,
  source TEXT,
  source_section TEXT,
  created_at INTEGER NOT NULL,
  last_retrieved_at INTEGER,
  retrieval_count INTEGER NOT NULL DEFAULT 0,
  activation REAL NOT NULL DEFAULT 1.0,
  content_hash TEXT NOT NULL,
  embedding BLOB,
  status TEXT NOT NULL DEFAULT 'active',
  superseded_by TEXT REFERENCES memories(id) ON DELETE SET NULL,
  corrects TEXT REFERENCES memories(id) ON DELETE SET NULL
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
  weight REAL NOT NULL DEFAULT 0.0,
  PRIMARY KEY (a, b)
);
CREATE INDEX IF NOT EXISTS idx_cooccurrences_a ON cooccurrences(a);
CREATE INDEX IF NOT EXISTS idx_cooccurrences_b ON cooccurrences(b);

CREATE TABLE IF NOT EXISTS meta (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS embedding_cache (
  content_hash TEXT PRIMARY KEY,
  embedding BLOB NOT NULL,
  created_at INTEGER NOT NULL
);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

// runMigrations applies incremental schema changes idempotently, so it is
// safe to call on every open. impact_score and memory_impacts were added
// after the initial schema, following the impact-tracking pattern; both are
// gated on columnExists so opening an already-migrated database is a no-op.
func runMigrations(db *sql.DB) error {
	hasImpactScore, err := columnExists(db, "memories", "impact_score")
	if err != nil {
		return fmt.Errorf("check impact_score column: %w", err)
	}
	if hasImpactScore {
		return nil
	}

	migration := `
ALTER TABLE memories ADD COLUMN impact_score REAL NOT NULL DEFAULT 0.0;

CREATE TABLE IF NOT EXISTS memory_impacts (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  memory_id TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
  signal TEXT NOT NULL,
  source TEXT NOT NULL,
  session_id TEXT,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_memory_impacts_memory_id ON memory_impacts(memory_id);
CREATE INDEX IF NOT EXISTS idx_memories_impact_score ON memories(impact_score);
`
	if _, err := db.Exec(migration); err != nil {
		return fmt.Errorf("add impact_score migration: %w", err)
	}
	return nil
}

func columnExists(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(
		fmt.Sprintf("SELECT name FROM pragma_table_info('%s') WHERE name = ?", table),
		column,
	)
	if err != nil {
		return false, err
	}
	found := rows.Next()
	rows.Close()
	return found, rows.Err()
}
