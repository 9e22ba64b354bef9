package models

import (
	"database/sql"
	"strconv"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/serr"
)

// Store wraps a DuckDB handle with all local persistence operations.
// The application normally works through the package-level default store,
// but tests that simulate multiple devices open additional stores against
// separate database files.
type Store struct {
	db *sql.DB
}

// defaultStore is the package-level store opened by InitDB.
var defaultStore *Store

// OpenStore opens (or creates) a DuckDB database at the given path and runs
// migrations on it. Pass an empty path for an in-memory database.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, serr.Wrap(err, "failed to open database")
	}

	s := &Store{db: db}
	if err := migrateDB(db); err != nil {
		db.Close()
		return nil, serr.Wrap(err, "failed to migrate database")
	}

	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// InitDB opens the default store used by the web layer and the sync runner.
func InitDB(path string) error {
	s, err := OpenStore(path)
	if err != nil {
		return err
	}
	defaultStore = s
	logger.Info("Database initialized", "path", path)
	return nil
}

// InitTestDB opens the default store against a test database file.
// Identical to InitDB; kept as a separate name so test setup reads clearly.
func InitTestDB(path string) error {
	return InitDB(path)
}

// CloseDB closes the default store.
func CloseDB() {
	if defaultStore != nil {
		_ = defaultStore.Close()
		defaultStore = nil
	}
}

// i64s formats a local id for structured log fields and error attributes.
func i64s(n int64) string {
	return strconv.FormatInt(n, 10)
}

// Local returns the default store. Callers outside this package go through
// Local() rather than holding their own handle so test setup can swap the
// database underneath them.
func Local() *Store {
	return defaultStore
}
