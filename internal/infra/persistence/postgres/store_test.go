package postgres

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"deckhistory/internal/infra/persistence/postgres/testutil"
	"deckhistory/pkg/domain"
)

func withStub(t *testing.T) *testutil.StubConn {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(driverName, dsn string) (*sql.DB, error) {
		if driverName != "pgx" {
			t.Fatalf("unexpected driver %s", driverName)
		}
		return db, nil
	})
	t.Cleanup(restore)
	return conn
}

func TestNewStoreEnsuresTableAndHydrates(t *testing.T) {
	conn := withStub(t)
	conn.State["run:run-1"] = []byte(`{"commands":[{"id":"c1","commandType":"loadLabware","params":{"location":"offDeck","loadName":"lid"},"result":{"labwareId":"lid-1"}}]}`)
	conn.State["meta"] = []byte(`{}`)

	s, err := NewStore(context.Background(), "")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if len(conn.Execs) == 0 || !strings.Contains(conn.Execs[0], "CREATE TABLE IF NOT EXISTS state") {
		t.Fatalf("expected state table DDL, got %v", conn.Execs)
	}
	cmds, err := s.Commands(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("commands: %v", err)
	}
	if len(cmds) != 1 {
		t.Fatalf("expected hydrated command, got %+v", cmds)
	}
	params, _, ok := cmds[0].LoadLabware()
	if !ok || !domain.IsOffDeck(params.Location) {
		t.Fatalf("expected off-deck load, got %+v", params)
	}
	runs, _ := s.Runs(context.Background())
	if len(runs) != 1 {
		t.Fatalf("foreign bucket leaked into runs: %v", runs)
	}
}

func TestAppendUpsertsRunBucket(t *testing.T) {
	conn := withStub(t)
	s, err := NewStore(context.Background(), "postgres://ignored")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	ctx := context.Background()
	if err := s.Append(ctx, "run-2", []domain.Command{{ID: "c1", CommandType: domain.CommandAspirate}}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.PutRunRecord(ctx, "run-2", domain.RunRecord{ID: "run-2"}); err != nil {
		t.Fatalf("put record: %v", err)
	}
	payload := string(conn.State["run:run-2"])
	if !strings.Contains(payload, `"c1"`) || !strings.Contains(payload, `"record"`) {
		t.Fatalf("unexpected persisted payload %s", payload)
	}
}

func TestNewStoreErrors(t *testing.T) {
	conn := withStub(t)
	conn.FailPing = true
	if _, err := NewStore(context.Background(), ""); err == nil {
		t.Fatalf("expected ping error")
	}
	conn.FailPing = false
	conn.FailQuery = true
	if _, err := NewStore(context.Background(), ""); err == nil {
		t.Fatalf("expected query error")
	}
	conn.FailQuery = false
	conn.State["run:bad"] = []byte("not json")
	if _, err := NewStore(context.Background(), ""); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestPersistFailuresSurface(t *testing.T) {
	conn := withStub(t)
	s, err := NewStore(context.Background(), "")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	conn.FailCommit = true
	if err := s.Append(context.Background(), "run-3", nil); err == nil {
		t.Fatalf("expected commit error")
	}
	conn.FailCommit = false
	conn.FailBegin = true
	if err := s.Append(context.Background(), "run-3", nil); err == nil {
		t.Fatalf("expected begin error")
	}
}
