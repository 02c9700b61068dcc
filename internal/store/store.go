package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite data access layer for ingested declaration passes.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS units (
  id              INTEGER PRIMARY KEY,
  pass            INTEGER NOT NULL,
  path            TEXT NOT NULL,
  content         TEXT NOT NULL DEFAULT '',
  content_hash    TEXT,
  newest_level    BOOLEAN DEFAULT FALSE,
  ingested_at     TIMESTAMP,
  UNIQUE(pass, path)
);

CREATE TABLE IF NOT EXISTS types (
  id              INTEGER PRIMARY KEY,
  unit_id         INTEGER NOT NULL REFERENCES units(id),
  parent_type_id  INTEGER REFERENCES types(id),
  ordinal         INTEGER NOT NULL,
  name            TEXT NOT NULL,
  kind            TEXT NOT NULL,
  modifiers       TEXT,
  supertypes      TEXT,
  type_params     TEXT,
  annotations     TEXT,
  doc             TEXT,
  signature_hash  TEXT
);

CREATE TABLE IF NOT EXISTS fields (
  id              INTEGER PRIMARY KEY,
  type_id         INTEGER NOT NULL REFERENCES types(id),
  ordinal         INTEGER NOT NULL,
  name            TEXT NOT NULL,
  type_expr       TEXT NOT NULL,
  modifiers       TEXT,
  constant_value  TEXT,
  annotations     TEXT
);

CREATE TABLE IF NOT EXISTS methods (
  id              INTEGER PRIMARY KEY,
  type_id         INTEGER NOT NULL REFERENCES types(id),
  ordinal         INTEGER NOT NULL,
  name            TEXT NOT NULL,
  params          TEXT,
  return_type     TEXT,
  modifiers       TEXT,
  throws          TEXT,
  type_params     TEXT,
  annotations     TEXT
);

CREATE TABLE IF NOT EXISTS metadata (
  key             TEXT PRIMARY KEY,
  value           TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_units_pass ON units(pass);
CREATE INDEX IF NOT EXISTS idx_types_unit ON types(unit_id);
CREATE INDEX IF NOT EXISTS idx_types_parent ON types(parent_type_id);
CREATE INDEX IF NOT EXISTS idx_types_name ON types(name);
CREATE INDEX IF NOT EXISTS idx_fields_type ON fields(type_id);
CREATE INDEX IF NOT EXISTS idx_methods_type ON methods(type_id);
`

// DeletePass transactionally removes every unit of a pass with its types
// and members. Deletes in reverse-dependency order to respect FK constraints.
func (s *Store) DeletePass(pass int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	typeIDs := "SELECT t.id FROM types t JOIN units u ON t.unit_id = u.id WHERE u.pass = ?"
	for _, q := range []string{
		"DELETE FROM fields WHERE type_id IN (" + typeIDs + ")",
		"DELETE FROM methods WHERE type_id IN (" + typeIDs + ")",
		"DELETE FROM types WHERE unit_id IN (SELECT id FROM units WHERE pass = ?)",
		"DELETE FROM units WHERE pass = ?",
	} {
		if _, err := tx.Exec(q, pass); err != nil {
			return fmt.Errorf("delete pass %d: %w", pass, err)
		}
	}
	return tx.Commit()
}

// Reset removes all ingested passes. Metadata is kept.
func (s *Store) Reset() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		"DELETE FROM fields",
		"DELETE FROM methods",
		"DELETE FROM types",
		"DELETE FROM units",
	} {
		if _, err := tx.Exec(q); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
	}
	return tx.Commit()
}

// SetMeta stores a metadata value.
func (s *Store) SetMeta(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set meta %s: %w", key, err)
	}
	return nil
}

// Meta returns a metadata value, or "" if unset.
func (s *Store) Meta(key string) (string, error) {
	var v string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("meta %s: %w", key, err)
	}
	return v, nil
}
