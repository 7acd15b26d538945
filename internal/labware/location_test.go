package labware_test

import (
	"fmt"
	"testing"

	"deckhistory/internal/historytest"
	"deckhistory/internal/labware"
	"deckhistory/internal/logging"
	"deckhistory/pkg/domain"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var (
	plate   = historytest.Definition("nest_96_wellplate_100ul", "NEST 96 Well Plate 100 µL")
	adapter = historytest.Adapter("opentrons_96_deep_well_adapter", "Deep Well Adapter")
)

func fixtureRun() *domain.RunRecord {
	return &domain.RunRecord{
		ID: "run-1",
		Modules: []domain.LoadedModule{
			{ID: "hs-1", Model: domain.HeaterShakerModuleV1, Location: domain.SlotLocation{SlotName: "D1"}},
		},
		Labware: []domain.LoadedLabware{
			{ID: "adapter-mod", DefinitionURI: adapter.URI(), Location: domain.ModuleLocation{ModuleID: "hs-1"}},
			{ID: "adapter-slot", DefinitionURI: adapter.URI(), Location: domain.SlotLocation{SlotName: "C2"}},
			{ID: "adapter-off", DefinitionURI: adapter.URI(), Location: domain.OffDeck{}},
			{ID: "plate-1", DefinitionURI: plate.URI(), Location: domain.OnLabwareLocation{LabwareID: "adapter-slot"}, DisplayName: "Samples"},
		},
	}
}

func newLocator() (*labware.Locator, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.WarnLevel)
	return labware.NewLocator(logging.Adapt(zap.New(core))), logs
}

func TestLocateFullDetail(t *testing.T) {
	run := fixtureRun()
	defs := domain.LabwareDefinitionsByURI{adapter.URI(): *adapter}
	loc, _ := newLocator()

	cases := []struct {
		name string
		in   domain.LabwareLocation
		want *labware.LocationResult
	}{
		{"slot", domain.SlotLocation{SlotName: "A1"}, &labware.LocationResult{SlotName: "A1"}},
		{"addressable area", domain.AddressableAreaLocation{AddressableAreaName: "D4"}, &labware.LocationResult{SlotName: "D4"}},
		{"off deck", domain.OffDeck{}, &labware.LocationResult{SlotName: labware.OffDeckSlot}},
		{"module", domain.ModuleLocation{ModuleID: "hs-1"}, &labware.LocationResult{SlotName: "D1", ModuleModel: domain.HeaterShakerModuleV1}},
		{
			"adapter on module",
			domain.OnLabwareLocation{LabwareID: "adapter-mod"},
			&labware.LocationResult{SlotName: "D1", ModuleModel: domain.HeaterShakerModuleV1, AdapterName: "Deep Well Adapter"},
		},
		{"adapter in slot", domain.OnLabwareLocation{LabwareID: "adapter-slot"}, &labware.LocationResult{SlotName: "C2", AdapterName: "Deep Well Adapter"}},
		{"adapter off deck", domain.OnLabwareLocation{LabwareID: "adapter-off"}, &labware.LocationResult{SlotName: labware.OffDeckSlot, AdapterName: "Deep Well Adapter"}},
		{"labware on labware on adapter", domain.OnLabwareLocation{LabwareID: "plate-1"}, &labware.LocationResult{SlotName: "C2", AdapterName: "Deep Well Adapter"}},
		{"unresolved", nil, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := loc.Locate(labware.Request{Location: tc.in, Run: run, DetailLevel: labware.DetailFull, Definitions: defs})
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("locate mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLocateSlotOnly(t *testing.T) {
	run := fixtureRun()
	loc, _ := newLocator()
	cases := []struct {
		in   domain.LabwareLocation
		want labware.LocationResult
	}{
		// The module beneath an adapter is still reported; adapter names are not.
		{domain.OnLabwareLocation{LabwareID: "adapter-mod"}, labware.LocationResult{SlotName: "D1", ModuleModel: domain.HeaterShakerModuleV1}},
		{domain.OnLabwareLocation{LabwareID: "plate-1"}, labware.LocationResult{SlotName: "C2"}},
		{domain.SlotLocation{SlotName: "A3"}, labware.LocationResult{SlotName: "A3"}},
	}
	for _, tc := range cases {
		got := loc.Locate(labware.Request{Location: tc.in, Run: run, DetailLevel: labware.DetailSlotOnly})
		if diff := cmp.Diff(&tc.want, got); diff != "" {
			t.Fatalf("slot-only mismatch for %v (-want +got):\n%s", tc.in, diff)
		}
	}
	if slot, ok := loc.SlotOnly(domain.OnLabwareLocation{LabwareID: "adapter-mod"}, run); !ok || slot != "D1" {
		t.Fatalf("expected D1, got %q (%v)", slot, ok)
	}
	if slot, ok := loc.SlotOnly(domain.OffDeck{}, run); !ok || slot != labware.OffDeckSlot {
		t.Fatalf("expected offDeck, got %q (%v)", slot, ok)
	}
}

func TestLocateUnknownReferences(t *testing.T) {
	run := fixtureRun()
	loc, logs := newLocator()
	for _, in := range []domain.LabwareLocation{
		domain.ModuleLocation{ModuleID: "ghost"},
		domain.OnLabwareLocation{LabwareID: "ghost"},
		domain.UnknownLocation{},
	} {
		if got := loc.Locate(labware.Request{Location: in, Run: run}); got != nil {
			t.Fatalf("expected nil for %v, got %+v", in, got)
		}
	}
	if _, ok := loc.SlotOnly(domain.ModuleLocation{ModuleID: "hs-1"}, nil); ok {
		t.Fatalf("expected a nil run to leave modules unresolved")
	}
	if logs.Len() != 3 {
		t.Fatalf("expected 3 warnings, got %d", logs.Len())
	}
}

func TestLocateStopsAtStackHeightLimit(t *testing.T) {
	run := &domain.RunRecord{Labware: []domain.LoadedLabware{{ID: "L0", Location: domain.SlotLocation{SlotName: "1"}}}}
	for i := 1; i <= 6; i++ {
		run.Labware = append(run.Labware, domain.LoadedLabware{
			ID:       fmt.Sprintf("L%d", i),
			Location: domain.OnLabwareLocation{LabwareID: fmt.Sprintf("L%d", i-1)},
		})
	}
	loc, logs := newLocator()
	if slot, ok := loc.SlotOnly(domain.OnLabwareLocation{LabwareID: "L4"}, run); !ok || slot != "1" {
		t.Fatalf("expected slot 1 within the limit, got %q (%v)", slot, ok)
	}
	if _, ok := loc.SlotOnly(domain.OnLabwareLocation{LabwareID: "L5"}, run); ok {
		t.Fatalf("expected nesting beyond the limit to be unresolved")
	}
	if logs.FilterMessage("labware nesting exceeds stack height limit").Len() != 1 {
		t.Fatalf("expected one depth warning, got %d logs", logs.Len())
	}

	cyclic := &domain.RunRecord{Labware: []domain.LoadedLabware{
		{ID: "A", Location: domain.OnLabwareLocation{LabwareID: "B"}},
		{ID: "B", Location: domain.OnLabwareLocation{LabwareID: "A"}},
	}}
	if _, ok := loc.SlotOnly(domain.OnLabwareLocation{LabwareID: "A"}, cyclic); ok {
		t.Fatalf("expected a cycle to be unresolved")
	}
}

func TestLocateHonoursConfiguredStackHeight(t *testing.T) {
	run := &domain.RunRecord{Labware: []domain.LoadedLabware{
		{ID: "L0", Location: domain.SlotLocation{SlotName: "1"}},
		{ID: "L1", Location: domain.OnLabwareLocation{LabwareID: "L0"}},
		{ID: "L2", Location: domain.OnLabwareLocation{LabwareID: "L1"}},
	}}
	core, logs := observer.New(zapcore.WarnLevel)
	loc := labware.NewLocator(logging.Adapt(zap.New(core)), labware.WithMaxStackHeight(2))
	if slot, ok := loc.SlotOnly(domain.OnLabwareLocation{LabwareID: "L1"}, run); !ok || slot != "1" {
		t.Fatalf("expected slot 1 within the lowered limit, got %q (%v)", slot, ok)
	}
	if _, ok := loc.SlotOnly(domain.OnLabwareLocation{LabwareID: "L2"}, run); ok {
		t.Fatalf("expected nesting beyond the lowered limit to be unresolved")
	}
	if logs.FilterMessage("labware nesting exceeds stack height limit").Len() != 1 {
		t.Fatalf("expected one depth warning, got %d logs", logs.Len())
	}

	defaulted := labware.NewLocator(nil, labware.WithMaxStackHeight(0))
	if slot, ok := defaulted.SlotOnly(domain.OnLabwareLocation{LabwareID: "L2"}, run); !ok || slot != "1" {
		t.Fatalf("expected a non-positive cap to keep the default, got %q (%v)", slot, ok)
	}
}

func TestDisplayName(t *testing.T) {
	defs := domain.LabwareDefinitionsByURI{plate.URI(): *plate}
	if got := labware.DisplayName(domain.LoadedLabware{DisplayName: "Samples", DefinitionURI: plate.URI()}, defs); got != "Samples" {
		t.Fatalf("expected nickname, got %q", got)
	}
	if got := labware.DisplayName(domain.LoadedLabware{DefinitionURI: plate.URI()}, defs); got != plate.DisplayName() {
		t.Fatalf("expected definition name, got %q", got)
	}
	if got := labware.DisplayName(domain.LoadedLabware{DefinitionURI: "missing/uri/1"}, nil); got != "" {
		t.Fatalf("expected empty name, got %q", got)
	}
}

func TestDefinitionsFromCommands(t *testing.T) {
	noDef := historytest.LoadLabware("c3", "bare", historytest.Slot("3"), nil)
	commands := []domain.Command{
		historytest.LoadLabware("c1", "plate-1", historytest.Slot("1"), plate),
		historytest.LoadLabware("c2", "adapter-1", historytest.Slot("2"), adapter),
		noDef,
		historytest.MoveLabware("c4", "plate-1", historytest.Slot("4")),
	}
	want := domain.LabwareDefinitionsByURI{plate.URI(): *plate, adapter.URI(): *adapter}
	if diff := cmp.Diff(want, labware.DefinitionsFromCommands(commands)); diff != "" {
		t.Fatalf("definitions mismatch (-want +got):\n%s", diff)
	}
}
