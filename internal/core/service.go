// Package core exposes the command history service: append-only run
// histories guarded by rules, and the location, stack, deck map and command
// text queries answered by replaying them.
package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"deckhistory/internal/analysis"
	"deckhistory/internal/blob"
	"deckhistory/internal/commandtext"
	"deckhistory/internal/deckmap"
	"deckhistory/internal/history"
	"deckhistory/internal/infra/persistence/memory"
	"deckhistory/internal/labware"
	"deckhistory/pkg/domain"
)

// Service answers history questions for runs kept in a HistoryStore.
type Service struct {
	store     domain.HistoryStore
	engine    *domain.RulesEngine
	blobs     blob.Store
	resolver  *history.Resolver
	projector *deckmap.Projector
	renderer  *commandtext.Renderer
	clock     Clock
	logger    domain.Logger
	metrics   MetricsRecorder
	tracer    Tracer
}

// NewService constructs a service backed by the supplied store. Without
// WithRulesEngine the default rule set applies.
func NewService(store domain.HistoryStore, opts ...ServiceOption) *Service {
	cfg := defaultServiceOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.engine == nil {
		cfg.engine = NewDefaultRulesEngine(cfg.maxStackHeight)
	}
	rendererOpts := []commandtext.Option{commandtext.WithLogger(cfg.logger), commandtext.WithMaxStackHeight(cfg.maxStackHeight)}
	if cfg.translator != nil {
		rendererOpts = append(rendererOpts, commandtext.WithTranslator(cfg.translator))
	}
	return &Service{
		store:     store,
		engine:    cfg.engine,
		blobs:     cfg.blobs,
		resolver:  history.NewResolver(history.WithLogger(cfg.logger), history.WithMaxStackHeight(cfg.maxStackHeight)),
		projector: deckmap.NewProjector(deckmap.WithLogger(cfg.logger), deckmap.WithMaxStackHeight(cfg.maxStackHeight)),
		renderer:  commandtext.NewRenderer(rendererOpts...),
		clock:     cfg.clock,
		logger:    cfg.logger,
		metrics:   cfg.metrics,
		tracer:    cfg.tracer,
	}
}

// NewInMemoryService creates a service over a fresh in-memory store.
func NewInMemoryService(opts ...ServiceOption) *Service {
	return NewService(memory.NewStore(), opts...)
}

// Store returns the underlying history store.
func (s *Service) Store() domain.HistoryStore { return s.store }

// Engine returns the rules engine guarding appends.
func (s *Service) Engine() *domain.RulesEngine { return s.engine }

func (s *Service) run(ctx context.Context, op string, fn func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, op)
	start := s.clock.Now()
	s.logger.Debug("core operation start", "operation", op)
	err := fn(ctx)
	duration := s.clock.Now().Sub(start)
	s.metrics.Observe(ctx, op, err == nil, duration)
	span.End(err)
	if err != nil {
		s.logger.Error("core operation failed", "operation", op, "error", err)
		return err
	}
	s.logger.Debug("core operation complete", "operation", op, "duration", duration)
	return nil
}

// AppendCommands evaluates the rules over the history the run would have
// after the append and stores the commands unless a violation blocks them.
// Non-blocking violations are logged and returned.
func (s *Service) AppendCommands(ctx context.Context, runID string, commands ...domain.Command) (domain.Result, error) {
	var res domain.Result
	err := s.run(ctx, "append_commands", func(ctx context.Context) error {
		var err error
		res, err = s.appendCommands(ctx, runID, commands)
		return err
	})
	return res, err
}

func (s *Service) appendCommands(ctx context.Context, runID string, commands []domain.Command) (domain.Result, error) {
	existing, err := s.store.Commands(ctx, runID)
	var notFound domain.ErrNotFound
	if err != nil && !errors.As(err, &notFound) {
		return domain.Result{}, fmt.Errorf("load run %s: %w", runID, err)
	}
	would := make([]domain.Command, 0, len(existing)+len(commands))
	would = append(append(would, existing...), commands...)

	res, err := s.engine.Evaluate(ctx, domain.StaticHistory{ID: runID, List: would}, commands)
	if err != nil {
		return domain.Result{}, fmt.Errorf("evaluate rules: %w", err)
	}
	for _, v := range res.Violations {
		if v.Severity != domain.SeverityBlock {
			s.logger.Warn("history rule violation", "rule", v.Rule, "run_id", runID, "entity", v.Entity, "entity_id", v.EntityID, "message", v.Message)
		}
	}
	if res.HasBlocking() {
		return res, domain.RuleViolationError{Result: res}
	}
	if err := s.store.Append(ctx, runID, commands); err != nil {
		return res, fmt.Errorf("append to run %s: %w", runID, err)
	}
	return res, nil
}

// Check evaluates the rules over a run's stored history without appending.
func (s *Service) Check(ctx context.Context, runID string) (domain.Result, error) {
	var res domain.Result
	err := s.run(ctx, "check", func(ctx context.Context) error {
		commands, err := s.store.Commands(ctx, runID)
		if err != nil {
			return err
		}
		res, err = s.engine.Evaluate(ctx, domain.StaticHistory{ID: runID, List: commands}, commands)
		return err
	})
	return res, err
}

// Commands returns a run's history in append order.
func (s *Service) Commands(ctx context.Context, runID string) ([]domain.Command, error) {
	var out []domain.Command
	err := s.run(ctx, "commands", func(ctx context.Context) error {
		var err error
		out, err = s.store.Commands(ctx, runID)
		return err
	})
	return out, err
}

// Runs lists the known run ids.
func (s *Service) Runs(ctx context.Context) ([]string, error) {
	var out []string
	err := s.run(ctx, "runs", func(ctx context.Context) error {
		var err error
		out, err = s.store.Runs(ctx)
		return err
	})
	return out, err
}

// LabwareLocation returns where labwareID sits at the end of the run's
// history, or nil when it was never placed.
func (s *Service) LabwareLocation(ctx context.Context, runID, labwareID string) (domain.LabwareLocation, error) {
	var loc domain.LabwareLocation
	err := s.run(ctx, "labware_location", func(ctx context.Context) error {
		commands, err := s.store.Commands(ctx, runID)
		if err != nil {
			return err
		}
		loc = history.FinalLabwareLocation(labwareID, commands)
		return nil
	})
	return loc, err
}

// LabwareStack describes the stack a labware belongs to.
type LabwareStack struct {
	history.TopLabwareInfo
	history.StackCount
}

// LabwareStack climbs from labwareID to the top of its stack and counts the
// like labware below that top.
func (s *Service) LabwareStack(ctx context.Context, runID, labwareID string) (LabwareStack, error) {
	var out LabwareStack
	err := s.run(ctx, "labware_stack", func(ctx context.Context) error {
		commands, err := s.store.Commands(ctx, runID)
		if err != nil {
			return err
		}
		top := s.resolver.TopLabwareInfo(labwareID, history.LoadLabwareCommands(commands))
		out = LabwareStack{
			TopLabwareInfo: top,
			StackCount:     s.resolver.LabwareStackCountAndLocation(top.TopLabwareID, commands),
		}
		return nil
	})
	return out, err
}

// LocationInfo returns the display names of where labwareID was loaded.
func (s *Service) LocationInfo(ctx context.Context, runID, labwareID string) (history.LocationInfoNames, error) {
	var out history.LocationInfoNames
	err := s.run(ctx, "location_info", func(ctx context.Context) error {
		commands, err := s.store.Commands(ctx, runID)
		if err != nil {
			return err
		}
		out = s.resolver.LocationInfoNames(labwareID, commands)
		return nil
	})
	return out, err
}

// LastAddressableAreaMove returns the run's most recent addressable-area
// move, or nil.
func (s *Service) LastAddressableAreaMove(ctx context.Context, runID string) (*domain.Command, error) {
	var out *domain.Command
	err := s.run(ctx, "last_addressable_area_move", func(ctx context.Context) error {
		commands, err := s.store.Commands(ctx, runID)
		if err != nil {
			return err
		}
		out = history.FinalMoveToAddressableAreaCommand(commands)
		return nil
	})
	return out, err
}

// DeckMapRequest selects the deck map to draw.
type DeckMapRequest struct {
	RobotType domain.RobotType
	// FailedLabwareID highlights the slot of this labware when set.
	FailedLabwareID string
}

// DeckMap draws the run's deck as it stands at the end of its history.
func (s *Service) DeckMap(ctx context.Context, runID string, req DeckMapRequest) (deckmap.DeckMap, error) {
	var out deckmap.DeckMap
	err := s.run(ctx, "deck_map", func(ctx context.Context) error {
		commands, run, err := s.runState(ctx, runID)
		if err != nil {
			return err
		}
		build := deckmap.Request{
			Run:         run,
			RobotType:   req.RobotType,
			Definitions: labware.DefinitionsFromCommands(commands),
		}
		if req.FailedLabwareID != "" {
			failed, ok := run.FindLabware(req.FailedLabwareID)
			if !ok {
				return domain.ErrNotFound{Entity: domain.EntityLabware, ID: req.FailedLabwareID}
			}
			build.FailedLabware = &failed
		}
		out = s.projector.Build(build)
		return nil
	})
	return out, err
}

// CommandText renders the display text of one command of the run. Commands
// without a text form render as "".
func (s *Service) CommandText(ctx context.Context, runID, commandID string, robot domain.RobotType) (string, error) {
	var out string
	err := s.run(ctx, "command_text", func(ctx context.Context) error {
		commands, run, err := s.runState(ctx, runID)
		if err != nil {
			return err
		}
		cmd, idx := history.FindLastAt(commands, func(c domain.Command) bool { return c.ID == commandID })
		if idx < 0 {
			return domain.ErrNotFound{Entity: domain.EntityCommand, ID: commandID}
		}
		out = s.renderer.PipettingText(cmd, commandtext.Data{Commands: commands, Run: run, RobotType: robot})
		return nil
	})
	return out, err
}

// CommandTexts renders every command of the run that has a text form, keyed
// by command id.
func (s *Service) CommandTexts(ctx context.Context, runID string, robot domain.RobotType) (map[string]string, error) {
	out := make(map[string]string)
	err := s.run(ctx, "command_texts", func(ctx context.Context) error {
		commands, run, err := s.runState(ctx, runID)
		if err != nil {
			return err
		}
		data := commandtext.Data{Commands: commands, Run: run, RobotType: robot}
		for _, cmd := range commands {
			if text := s.renderer.PipettingText(cmd, data); text != "" {
				out[cmd.ID] = text
			}
		}
		return nil
	})
	return out, err
}

// ImportAnalysis reads a protocol analysis from the blob store and appends
// its commands under the analysis id. The analysis's loaded entities become
// the run record.
func (s *Service) ImportAnalysis(ctx context.Context, key string) (domain.Analysis, domain.Result, error) {
	var (
		doc domain.Analysis
		res domain.Result
	)
	err := s.run(ctx, "import_analysis", func(ctx context.Context) error {
		if s.blobs == nil {
			return errors.New("no blob store configured")
		}
		_, rc, err := s.blobs.Open(ctx, key)
		if err != nil {
			return fmt.Errorf("open analysis %s: %w", key, err)
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return fmt.Errorf("read analysis %s: %w", key, err)
		}
		format := analysis.FormatFromKey(key)
		if format != analysis.FormatCBOR {
			format = analysis.Sniff(data)
		}
		doc, err = analysis.Decode(data, format)
		if err != nil {
			return fmt.Errorf("decode analysis %s: %w", key, err)
		}
		if doc.ID == "" {
			return fmt.Errorf("analysis %s has no id", key)
		}
		// The record goes first so a failed write leaves no commands behind
		// and the import can be retried.
		if err := s.store.PutRunRecord(ctx, doc.ID, *doc.RunRecord()); err != nil {
			return fmt.Errorf("store run record %s: %w", doc.ID, err)
		}
		res, err = s.appendCommands(ctx, doc.ID, doc.Commands)
		return err
	})
	return doc, res, err
}

// StoreAnalysis writes an analysis document to the blob store in the format
// implied by key.
func (s *Service) StoreAnalysis(ctx context.Context, key string, doc domain.Analysis, overwrite bool) (blob.Object, error) {
	var obj blob.Object
	err := s.run(ctx, "store_analysis", func(ctx context.Context) error {
		if s.blobs == nil {
			return errors.New("no blob store configured")
		}
		format := analysis.FormatFromKey(key)
		data, err := analysis.Encode(doc, format)
		if err != nil {
			return err
		}
		obj, err = s.blobs.Write(ctx, key, bytes.NewReader(data), blob.WriteOptions{
			ContentType: format.ContentType(),
			Labels:      map[string]string{"analysis_id": doc.ID},
			Overwrite:   overwrite,
		})
		return err
	})
	return obj, err
}

// runState loads a run's history and its record. A stored record keeps its
// entities, but labware locations are recomputed from the history and
// entities loaded after the record was stored are added. Runs appended
// without a record get one derived from their load and move commands.
func (s *Service) runState(ctx context.Context, runID string) ([]domain.Command, *domain.RunRecord, error) {
	commands, err := s.store.Commands(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	run, err := s.store.RunRecord(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	derived := DeriveRunRecord(runID, commands)
	if run == nil {
		return commands, derived, nil
	}
	return commands, refreshRunRecord(run, derived, commands), nil
}

// DeriveRunRecord builds a run record from a history: every loaded entity,
// trash included, with labware at its final location.
func DeriveRunRecord(runID string, commands []domain.Command) *domain.RunRecord {
	run := &domain.RunRecord{
		ID:       runID,
		Modules:  history.RequiredModuleEntities(commands),
		Pipettes: history.PipetteEntities(commands),
	}
	for _, lw := range history.LoadedLabwareEntities(commands) {
		if loc := history.FinalLabwareLocation(lw.ID, commands); loc != nil {
			lw.Location = loc
		}
		run.Labware = append(run.Labware, lw)
	}
	return run
}

func refreshRunRecord(run, derived *domain.RunRecord, commands []domain.Command) *domain.RunRecord {
	for i, lw := range run.Labware {
		if loc := history.FinalLabwareLocation(lw.ID, commands); loc != nil {
			run.Labware[i].Location = loc
		}
	}
	run.Labware = appendMissing(run.Labware, derived.Labware, func(lw domain.LoadedLabware) string { return lw.ID })
	run.Modules = appendMissing(run.Modules, derived.Modules, func(m domain.LoadedModule) string { return m.ID })
	run.Pipettes = appendMissing(run.Pipettes, derived.Pipettes, func(p domain.LoadedPipette) string { return p.ID })
	return run
}

// appendMissing appends the entries of extra whose id is not already in have.
func appendMissing[T any](have, extra []T, id func(T) string) []T {
	seen := make(map[string]struct{}, len(have))
	for _, v := range have {
		seen[id(v)] = struct{}{}
	}
	for _, v := range extra {
		if _, ok := seen[id(v)]; !ok {
			have = append(have, v)
		}
	}
	return have
}
