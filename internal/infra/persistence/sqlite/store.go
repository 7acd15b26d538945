// Package sqlite persists command histories to a SQLite database using the
// pure-Go modernc driver. Each run is one JSON bucket in the state table.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"deckhistory/internal/infra/persistence/memory"
	"deckhistory/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

var _ domain.HistoryStore = (*Store)(nil)

const runBucketPrefix = "run:"

// Store hydrates a memory store from SQLite and writes back the touched run
// after every mutation.
type Store struct {
	*memory.Store
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore opens (or creates) the database at path.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "deckhistory.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create state table: %w", err)
	}
	s := &Store{Store: memory.NewStore(), db: db, path: path}
	if err := s.load(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) load(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT bucket, payload FROM state`)
	if err != nil {
		return fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()
	snap := memory.Snapshot{Runs: make(map[string]memory.RunSnapshot)}
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		runID, ok := strings.CutPrefix(bucket, runBucketPrefix)
		if !ok {
			continue
		}
		var run memory.RunSnapshot
		if err := json.Unmarshal(payload, &run); err != nil {
			return fmt.Errorf("decode %s: %w", bucket, err)
		}
		snap.Runs[runID] = run
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate state: %w", err)
	}
	s.ImportState(snap)
	return nil
}

// Append adds commands to runID and persists the run.
func (s *Store) Append(ctx context.Context, runID string, commands []domain.Command) error {
	if err := s.Store.Append(ctx, runID, commands); err != nil {
		return err
	}
	return s.persist(ctx, runID)
}

// PutRunRecord replaces runID's record and persists the run.
func (s *Store) PutRunRecord(ctx context.Context, runID string, record domain.RunRecord) error {
	if err := s.Store.PutRunRecord(ctx, runID, record); err != nil {
		return err
	}
	return s.persist(ctx, runID)
}

func (s *Store) persist(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.ExportRun(runID)
	if !ok {
		return nil
	}
	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encode run %s: %w", runID, err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO state(bucket, payload) VALUES(?, ?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`,
		runBucketPrefix+runID, payload); err != nil {
		return fmt.Errorf("upsert run %s: %w", runID, err)
	}
	return nil
}

// DB exposes the underlying database handle.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }
