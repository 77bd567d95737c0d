// Package sqlite implements the SQLite graph store adapter for the Weft
// narrative engine. One database file per data directory holds every
// universe; all writes flow through ApplyDelta and ImportUniverse, each a
// single transaction.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/storymesh/weft/pkg/types"
)

// databaseFile is the SQLite file name inside DataDir.
const databaseFile = "weft.db"

// timeLayout is the TEXT encoding for all stored timestamps.
const timeLayout = time.RFC3339Nano

// Store implements types.Store on a single SQLite database.
type Store struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
}

var _ types.Store = (*Store)(nil)

// New creates an unattached store; call Attach with a Config to initialize.
func New() *Store {
	return &Store{}
}

// Attach opens (or creates) the database under config.DataDir and ensures
// the schema exists. Returns ErrAlreadyAttached when called twice.
func (s *Store) Attach(config types.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return infraErr("create data dir", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dataDir, databaseFile))
	if err != nil {
		return infraErr("open database", err)
	}

	for _, ddl := range schemaDDL {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return infraErr("create schema", err)
		}
	}
	for _, ddl := range indexDDL {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return infraErr("create indexes", err)
		}
	}

	s.db = db
	s.config = config
	s.attached = true
	return nil
}

// Detach closes the database. Idempotent; after Detach all operations
// return ErrStoreDetached.
func (s *Store) Detach() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.attached {
		return nil
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return infraErr("close database", err)
		}
		s.db = nil
	}
	s.attached = false
	return nil
}

// handle returns the open database or ErrStoreDetached.
func (s *Store) handle() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.attached {
		return nil, types.ErrStoreDetached
	}
	return s.db, nil
}

// infraErr wraps a backend failure so callers can match ErrStoreUnavailable
// and retry with backoff.
func infraErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, types.ErrStoreUnavailable, err)
}

// generateUUID returns a new UUID v7, falling back to v4 if v7 generation
// fails.
func generateUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// nowUTC returns the current time in UTC, the zone all rows are stored in.
func nowUTC() time.Time {
	return time.Now().UTC()
}

// encodeTime formats a timestamp for storage.
func encodeTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// encodeTimePtr formats an optional timestamp, NULL when nil.
func encodeTimePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: encodeTime(*t), Valid: true}
}

// decodeTime parses a stored timestamp.
func decodeTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// decodeTimePtr parses an optional stored timestamp.
func decodeTimePtr(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := decodeTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// nullable maps an empty string to NULL.
func nullable(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// encodeStrings JSON-encodes a string slice, "[]" when empty.
func encodeStrings(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// decodeStrings parses a stored JSON string array.
func decodeStrings(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list, nil
}

// encodeAttrs JSON-encodes an attribute map, "{}" when empty.
func encodeAttrs(attrs types.Attrs) (string, error) {
	if attrs == nil {
		attrs = types.Attrs{}
	}
	raw, err := json.Marshal(attrs)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// decodeAttrs parses a stored attribute map.
func decodeAttrs(raw string) (types.Attrs, error) {
	if raw == "" || raw == "{}" {
		return nil, nil
	}
	var attrs types.Attrs
	if err := json.Unmarshal([]byte(raw), &attrs); err != nil {
		return nil, err
	}
	return attrs, nil
}
