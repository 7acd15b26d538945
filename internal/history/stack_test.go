package history_test

import (
	"testing"

	"deckhistory/internal/history"
	"deckhistory/internal/historytest"
	"deckhistory/internal/logging"
	"deckhistory/pkg/domain"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var lid = historytest.Definition("opentrons_tough_pcr_auto_sealing_lid", "Opentrons Tough PCR Auto-Sealing Lid")

func observedResolver(opts ...history.Option) (*history.Resolver, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.WarnLevel)
	opts = append([]history.Option{history.WithLogger(logging.Adapt(zap.New(core)))}, opts...)
	return history.NewResolver(opts...), logs
}

func TestTopLabwareOnModuleStack(t *testing.T) {
	commands := []domain.Command{
		historytest.LoadModule("c0", "mod1", domain.ThermocyclerModuleV2, "B1"),
		historytest.LoadLabware("c1", "A", historytest.OnModule("mod1"), lid),
		historytest.LoadLabwareNamed("c2", "B", "Top Lid", historytest.On("A"), lid),
	}
	r := history.NewResolver()

	top := r.TopLabwareInfo("A", history.LoadLabwareCommands(commands))
	want := history.TopLabwareInfo{TopLabwareID: "B", TopLabwareDefinition: lid, TopLabwareDisplayName: "Top Lid"}
	if diff := cmp.Diff(want, top); diff != "" {
		t.Fatalf("top mismatch (-want +got):\n%s", diff)
	}

	count := r.LabwareStackCountAndLocation("B", commands)
	wantCount := history.StackCount{LabwareQuantity: 2, LabwareLocation: domain.ModuleLocation{ModuleID: "mod1"}}
	if diff := cmp.Diff(wantCount, count); diff != "" {
		t.Fatalf("count mismatch (-want +got):\n%s", diff)
	}
}

func TestStackCountStopsAtDifferentLoadName(t *testing.T) {
	commands := []domain.Command{
		historytest.LoadLabware("c1", "P", historytest.Slot("1"), plate),
		historytest.LoadLabware("c2", "L1", historytest.On("P"), lid),
		historytest.LoadLabware("c3", "L2", historytest.On("L1"), lid),
		historytest.LoadLabware("c4", "L3", historytest.On("L2"), lid),
	}
	r := history.NewResolver()
	count := r.LabwareStackCountAndLocation("L3", commands)
	want := history.StackCount{LabwareQuantity: 3, LabwareLocation: domain.OnLabwareLocation{LabwareID: "P"}}
	if diff := cmp.Diff(want, count); diff != "" {
		t.Fatalf("count mismatch (-want +got):\n%s", diff)
	}
	if top := r.TopLabwareInfo("P", history.LoadLabwareCommands(commands)); top.TopLabwareID != "L3" {
		t.Fatalf("expected L3 on top, got %s", top.TopLabwareID)
	}
}

func TestStackCountIsCapped(t *testing.T) {
	commands := []domain.Command{historytest.LoadLabware("c0", "L0", historytest.Slot("1"), lid)}
	ids := []string{"L0", "L1", "L2", "L3", "L4", "L5", "L6"}
	for i := 1; i < len(ids); i++ {
		commands = append(commands, historytest.LoadLabware("c"+ids[i], ids[i], historytest.On(ids[i-1]), lid))
	}
	count := history.NewResolver().LabwareStackCountAndLocation("L6", commands)
	want := history.StackCount{LabwareQuantity: history.MaxStackHeight, LabwareLocation: domain.OnLabwareLocation{LabwareID: "L1"}}
	if diff := cmp.Diff(want, count); diff != "" {
		t.Fatalf("count mismatch (-want +got):\n%s", diff)
	}
}

func TestTopLabwareTerminatesOnCycle(t *testing.T) {
	loads := []domain.Command{
		historytest.LoadLabware("c1", "A", historytest.On("B"), lid),
		historytest.LoadLabware("c2", "B", historytest.On("A"), lid),
	}
	r, logs := observedResolver()
	top := r.TopLabwareInfo("A", loads)
	// A(0) B(1) A(2) B(3) A(4) B(5): six calls, the sixth is treated as the top.
	if top.TopLabwareID != "B" {
		t.Fatalf("expected B after six calls, got %s", top.TopLabwareID)
	}
	entries := logs.FilterMessage("stack height limit reached, treating labware as top of stack").All()
	if len(entries) != 1 {
		t.Fatalf("expected one cap warning, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["stack_height"]; got != int64(history.MaxStackHeight) {
		t.Fatalf("expected stack_height %d, got %v", history.MaxStackHeight, got)
	}
}

func TestTopLabwareSelfLoadTerminates(t *testing.T) {
	loads := []domain.Command{historytest.LoadLabware("c1", "A", historytest.On("A"), lid)}
	r, logs := observedResolver(history.WithMaxStackHeight(2))
	if top := r.TopLabwareInfo("A", loads); top.TopLabwareID != "A" {
		t.Fatalf("expected A, got %s", top.TopLabwareID)
	}
	if logs.Len() != 1 || r.MaxStackHeight() != 2 {
		t.Fatalf("expected one warning with cap 2, got %d (cap %d)", logs.Len(), r.MaxStackHeight())
	}
}

func TestStackWalkersFailSoft(t *testing.T) {
	r, logs := observedResolver()

	top := r.TopLabwareInfo("ghost", nil)
	if diff := cmp.Diff(history.TopLabwareInfo{TopLabwareID: "ghost"}, top); diff != "" {
		t.Fatalf("top mismatch (-want +got):\n%s", diff)
	}

	sentinel := history.StackCount{LabwareQuantity: 0, LabwareLocation: domain.OffDeck{}}
	if diff := cmp.Diff(sentinel, r.LabwareStackCountAndLocation("ghost", nil)); diff != "" {
		t.Fatalf("missing top mismatch (-want +got):\n%s", diff)
	}
	orphan := []domain.Command{historytest.LoadLabware("c1", "A", historytest.On("missing"), lid)}
	if diff := cmp.Diff(sentinel, r.LabwareStackCountAndLocation("A", orphan)); diff != "" {
		t.Fatalf("missing lower mismatch (-want +got):\n%s", diff)
	}

	warned := logs.FilterField(zap.String("labware_id", "missing")).Len()
	if logs.Len() != 3 || warned != 1 {
		t.Fatalf("expected 3 warnings (1 for the missing lower labware), got %d/%d", logs.Len(), warned)
	}
}
