// Package postgres persists command histories to Postgres through the pgx
// database/sql driver, one JSONB bucket per run.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"deckhistory/internal/infra/persistence/memory"
	"deckhistory/pkg/domain"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

var _ domain.HistoryStore = (*Store)(nil)

const (
	defaultDriver   = "pgx"
	defaultDSN      = "postgres://localhost/deckhistory?sslmode=disable"
	runBucketPrefix = "run:"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store hydrates a memory store from Postgres and upserts the touched run
// after every mutation.
type Store struct {
	*memory.Store
	db *sql.DB
	mu sync.Mutex
}

// NewStore connects to dsn (defaultDSN when empty), ensures the state table
// and loads existing runs.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload JSONB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("ensure state table: %w", err)
	}
	snap, err := loadSnapshot(ctx, db)
	if err != nil {
		return nil, err
	}
	mem := memory.NewStore()
	mem.ImportState(snap)
	return &Store{Store: mem, db: db}, nil
}

func loadSnapshot(ctx context.Context, db *sql.DB) (memory.Snapshot, error) {
	rows, err := db.QueryContext(ctx, `SELECT bucket, payload FROM state`)
	if err != nil {
		return memory.Snapshot{}, fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()
	snap := memory.Snapshot{Runs: make(map[string]memory.RunSnapshot)}
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return memory.Snapshot{}, fmt.Errorf("scan state: %w", err)
		}
		runID, ok := strings.CutPrefix(bucket, runBucketPrefix)
		if !ok || len(payload) == 0 {
			continue
		}
		var run memory.RunSnapshot
		if err := json.Unmarshal(payload, &run); err != nil {
			return memory.Snapshot{}, fmt.Errorf("decode %s: %w", bucket, err)
		}
		snap.Runs[runID] = run
	}
	if err := rows.Err(); err != nil {
		return memory.Snapshot{}, fmt.Errorf("iterate state: %w", err)
	}
	return snap, nil
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
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO state(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=EXCLUDED.payload`,
		runBucketPrefix+runID, payload); err != nil {
		return fmt.Errorf("upsert run %s: %w", runID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// DB exposes the underlying sql.DB.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
