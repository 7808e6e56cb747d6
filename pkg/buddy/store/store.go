// Package store persists the personal-data categories (reminders, to-dos,
// notes, calendar events) as small key/value tables. The default backend keeps
// one JSON document per category on disk; a SQLite backend is available for
// deployments that prefer a single database file.
package store

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Kind names one personal-data category.
type Kind string

const (
	Reminders Kind = "reminders"
	Todo      Kind = "todo"
	Notes     Kind = "notes"
	Calendar  Kind = "calendar"
)

// AllKinds lists every category in a stable order.
var AllKinds = []Kind{Reminders, Todo, Notes, Calendar}

// FileName returns the JSON file name used by the file backend.
func (k Kind) FileName() string {
	return string(k) + ".json"
}

// Entry is one key/value pair, returned in insertion order.
type Entry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Store is a single category table.
type Store interface {
	// All returns every entry in insertion order.
	All(ctx context.Context) ([]Entry, error)

	// Put stores value under key. An existing key keeps its position.
	Put(ctx context.Context, key, value string) error

	// Append stores value under the key len+1 and returns that key.
	Append(ctx context.Context, value string) (string, error)

	// Delete removes key and reports whether it existed.
	Delete(ctx context.Context, key string) (bool, error)

	// Len returns the number of entries.
	Len(ctx context.Context) (int, error)
}

// Config selects and configures the storage backend.
type Config struct {
	// Backend is "json" (default) or "sqlite".
	Backend string `yaml:"backend"`

	// Dir holds the JSON files for the json backend.
	Dir string `yaml:"dir"`

	// SQLitePath is the database file for the sqlite backend.
	SQLitePath string `yaml:"sqlite_path"`
}

// DefaultConfig mirrors the data/ layout of the flat-file backend.
func DefaultConfig() Config {
	return Config{
		Backend:    "json",
		Dir:        "data",
		SQLitePath: "data/buddy.db",
	}
}

// Set groups the four category stores.
type Set struct {
	stores map[Kind]Store
	closer func() error
	sqlite *SQLiteDB
}

// Get returns the store for kind. It panics on an unknown kind, which is a
// programming error.
func (s *Set) Get(kind Kind) Store {
	st, ok := s.stores[kind]
	if !ok {
		panic(fmt.Sprintf("store: unknown kind %q", kind))
	}
	return st
}

// SQLite returns the shared database of the sqlite backend, so other
// components can keep their tables next to the stores.
func (s *Set) SQLite() (*SQLiteDB, bool) {
	return s.sqlite, s.sqlite != nil
}

// Close releases backend resources.
func (s *Set) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

// NewSet builds a Set from explicit stores. Used by tests and by Open.
func NewSet(stores map[Kind]Store, closer func() error) *Set {
	return &Set{stores: stores, closer: closer}
}

// Open opens every category store for the configured backend.
func Open(cfg Config) (*Set, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "json", "file":
		dir := cfg.Dir
		if dir == "" {
			dir = "data"
		}
		stores := make(map[Kind]Store, len(AllKinds))
		for _, k := range AllKinds {
			fs, err := NewFileStore(filepath.Join(dir, k.FileName()))
			if err != nil {
				return nil, fmt.Errorf("opening %s store: %w", k, err)
			}
			stores[k] = fs
		}
		return NewSet(stores, nil), nil

	case "sqlite", "sqlite3":
		db, err := OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		stores := make(map[Kind]Store, len(AllKinds))
		for _, k := range AllKinds {
			stores[k] = db.Table(k)
		}
		set := NewSet(stores, db.Close)
		set.sqlite = db
		return set, nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
