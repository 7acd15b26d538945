// Package memory implements the command history store in process memory. The
// sqlite and postgres stores embed it and snapshot runs after each write.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"deckhistory/pkg/domain"
)

var _ domain.HistoryStore = (*Store)(nil)

// RunSnapshot is the persisted form of one run.
type RunSnapshot struct {
	Commands []domain.Command  `json:"commands"`
	Record   *domain.RunRecord `json:"record,omitempty"`
}

// Snapshot is the persisted form of the whole store keyed by run id.
type Snapshot struct {
	Runs map[string]RunSnapshot `json:"runs"`
}

// Store keeps run histories in memory.
type Store struct {
	mu   sync.RWMutex
	runs map[string]*RunSnapshot
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{runs: make(map[string]*RunSnapshot)}
}

func validRunID(runID string) error {
	if strings.TrimSpace(runID) == "" {
		return fmt.Errorf("run id required")
	}
	return nil
}

// Append adds commands to the end of runID's history.
func (s *Store) Append(_ context.Context, runID string, commands []domain.Command) error {
	if err := validRunID(runID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	run := s.run(runID)
	run.Commands = append(run.Commands, commands...)
	return nil
}

// Commands returns a copy of runID's history.
func (s *Store) Commands(_ context.Context, runID string) ([]domain.Command, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[runID]
	if !ok {
		return nil, domain.ErrNotFound{Entity: domain.EntityRun, ID: runID}
	}
	return append([]domain.Command(nil), run.Commands...), nil
}

// Runs lists run ids in sorted order.
func (s *Store) Runs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.runs))
	for id := range s.runs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// RunRecord returns the stored loaded-entity snapshot. A known run without a
// record yields nil.
func (s *Store) RunRecord(_ context.Context, runID string) (*domain.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[runID]
	if !ok {
		return nil, domain.ErrNotFound{Entity: domain.EntityRun, ID: runID}
	}
	return cloneRecord(run.Record), nil
}

// PutRunRecord replaces runID's loaded-entity snapshot.
func (s *Store) PutRunRecord(_ context.Context, runID string, record domain.RunRecord) error {
	if err := validRunID(runID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.run(runID).Record = cloneRecord(&record)
	return nil
}

// ExportRun returns a copy of one run's state.
func (s *Store) ExportRun(runID string) (RunSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[runID]
	if !ok {
		return RunSnapshot{}, false
	}
	return RunSnapshot{Commands: append([]domain.Command(nil), run.Commands...), Record: cloneRecord(run.Record)}, true
}

// ExportState returns a copy of every run.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	ids := make([]string, 0, len(s.runs))
	for id := range s.runs {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	snap := Snapshot{Runs: make(map[string]RunSnapshot, len(ids))}
	for _, id := range ids {
		if run, ok := s.ExportRun(id); ok {
			snap.Runs[id] = run
		}
	}
	return snap
}

// ImportState replaces the store contents with snap.
func (s *Store) ImportState(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = make(map[string]*RunSnapshot, len(snap.Runs))
	for id, run := range snap.Runs {
		s.runs[id] = &RunSnapshot{Commands: append([]domain.Command(nil), run.Commands...), Record: cloneRecord(run.Record)}
	}
}

func (s *Store) run(runID string) *RunSnapshot {
	run, ok := s.runs[runID]
	if !ok {
		run = &RunSnapshot{}
		s.runs[runID] = run
	}
	return run
}

func cloneRecord(r *domain.RunRecord) *domain.RunRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.Labware = append([]domain.LoadedLabware(nil), r.Labware...)
	out.Modules = append([]domain.LoadedModule(nil), r.Modules...)
	out.Pipettes = append([]domain.LoadedPipette(nil), r.Pipettes...)
	out.Liquids = append([]domain.Liquid(nil), r.Liquids...)
	return &out
}
