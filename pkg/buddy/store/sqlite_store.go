// Package store – sqlite_store.go keeps all four categories in one SQLite
// database. Rows carry a sequence number so listings keep insertion order.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS entries (
	kind  TEXT NOT NULL,
	key   TEXT NOT NULL,
	value TEXT NOT NULL,
	seq   INTEGER NOT NULL,
	PRIMARY KEY (kind, key)
);
CREATE INDEX IF NOT EXISTS idx_entries_kind_seq ON entries(kind, seq);
`

// SQLiteDB wraps the database shared by every category table.
type SQLiteDB struct {
	DB *sql.DB
}

// OpenSQLite opens or creates the database and applies the schema.
func OpenSQLite(path string) (*SQLiteDB, error) {
	if path == "" {
		path = "./data/buddy.db"
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create database directory %q: %w", dir, err)
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database %q: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteDB{DB: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteDB) Close() error {
	return s.DB.Close()
}

// SchemaVersion returns the applied schema version (0 when none).
func (s *SQLiteDB) SchemaVersion() (int, error) {
	var version int
	err := s.DB.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

func (s *SQLiteDB) migrate() error {
	_, err := s.DB.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}
	if _, err := s.DB.Exec(sqliteSchema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	if _, err := s.DB.Exec("INSERT OR IGNORE INTO schema_version (version) VALUES (1)"); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}
	return nil
}

// Table returns the Store view for one category.
func (s *SQLiteDB) Table(kind Kind) *SQLiteTable {
	return &SQLiteTable{db: s.DB, kind: string(kind)}
}

// SQLiteTable is one category inside the shared database.
type SQLiteTable struct {
	db   *sql.DB
	kind string
}

// All returns entries ordered by insertion sequence.
func (t *SQLiteTable) All(ctx context.Context) ([]Entry, error) {
	rows, err := t.db.QueryContext(ctx,
		"SELECT key, value FROM entries WHERE kind = ? ORDER BY seq", t.kind)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", t.kind, err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.Value); err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.kind, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Put upserts key, keeping the original sequence of an existing row.
func (t *SQLiteTable) Put(ctx context.Context, key, value string) error {
	_, err := t.db.ExecContext(ctx, `
		INSERT INTO entries (kind, key, value, seq)
		VALUES (?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM entries WHERE kind = ?))
		ON CONFLICT(kind, key) DO UPDATE SET value = excluded.value`,
		t.kind, key, value, t.kind)
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", t.kind, key, err)
	}
	return nil
}

// Append stores value under the key count+1.
func (t *SQLiteTable) Append(ctx context.Context, value string) (string, error) {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var n int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM entries WHERE kind = ?", t.kind).Scan(&n); err != nil {
		return "", fmt.Errorf("count %s: %w", t.kind, err)
	}
	key := strconv.Itoa(n + 1)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO entries (kind, key, value, seq)
		VALUES (?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM entries WHERE kind = ?))
		ON CONFLICT(kind, key) DO UPDATE SET value = excluded.value`,
		t.kind, key, value, t.kind)
	if err != nil {
		return "", fmt.Errorf("append %s: %w", t.kind, err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return key, nil
}

// Delete removes key.
func (t *SQLiteTable) Delete(ctx context.Context, key string) (bool, error) {
	res, err := t.db.ExecContext(ctx,
		"DELETE FROM entries WHERE kind = ? AND key = ?", t.kind, key)
	if err != nil {
		return false, fmt.Errorf("delete %s/%s: %w", t.kind, key, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Len counts the category's rows.
func (t *SQLiteTable) Len(ctx context.Context) (int, error) {
	var n int
	err := t.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM entries WHERE kind = ?", t.kind).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", t.kind, err)
	}
	return n, nil
}
