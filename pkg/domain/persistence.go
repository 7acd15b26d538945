package domain

import "context"

// HistoryStore is the durable, append-only home of command histories keyed by run id.
type HistoryStore interface {
	// Append adds commands to the end of a run's history, creating the run if needed.
	Append(ctx context.Context, runID string, commands []Command) error
	// Commands returns a copy of the run's history in append order.
	Commands(ctx context.Context, runID string) ([]Command, error)
	// Runs lists known run ids in sorted order.
	Runs(ctx context.Context) ([]string, error)
	// RunRecord returns the loaded-entity snapshot stored with the run, if any.
	RunRecord(ctx context.Context, runID string) (*RunRecord, error)
	// PutRunRecord replaces the loaded-entity snapshot of a run.
	PutRunRecord(ctx context.Context, runID string, record RunRecord) error
}
