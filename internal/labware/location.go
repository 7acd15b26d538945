// Package labware resolves loaded labware placements to deck slots and the
// modules and adapters between them.
package labware

import (
	"deckhistory/internal/history"
	"deckhistory/pkg/domain"
)

// DetailLevel selects how much of a nested placement Locate reports.
type DetailLevel int

const (
	// DetailFull reports the module and adapter nesting the labware.
	DetailFull DetailLevel = iota
	// DetailSlotOnly follows nesting down to the underlying slot.
	DetailSlotOnly
)

// OffDeckSlot is the slot name reported for off-deck placements.
const OffDeckSlot = "offDeck"

// LocationResult is a resolved placement.
type LocationResult struct {
	SlotName    string             `json:"slotName"`
	ModuleModel domain.ModuleModel `json:"moduleModel,omitempty"`
	AdapterName string             `json:"adapterName,omitempty"`
}

// Locator resolves locations against a run record's loaded entities.
type Locator struct {
	log      domain.Logger
	maxDepth int
}

// Option configures a Locator.
type Option func(*Locator)

// WithMaxStackHeight overrides history.MaxStackHeight as the nesting cap.
func WithMaxStackHeight(n int) Option {
	return func(l *Locator) {
		if n > 0 {
			l.maxDepth = n
		}
	}
}

// NewLocator constructs a Locator. Nesting deeper than the stack height cap
// is treated as unresolvable.
func NewLocator(log domain.Logger, opts ...Option) *Locator {
	l := &Locator{log: domain.LoggerOrNop(log), maxDepth: history.MaxStackHeight}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Request carries the inputs of one Locate call.
type Request struct {
	Location    domain.LabwareLocation
	Run         *domain.RunRecord
	DetailLevel DetailLevel
	// Definitions resolves adapter names at DetailFull.
	Definitions domain.LabwareDefinitionsByURI
}

// Locate resolves req.Location, returning nil when it cannot be resolved.
func (l *Locator) Locate(req Request) *LocationResult {
	return l.locate(req, req.Location, 0)
}

// SlotOnly is shorthand for a DetailSlotOnly Locate returning just the slot name.
func (l *Locator) SlotOnly(loc domain.LabwareLocation, run *domain.RunRecord) (string, bool) {
	res := l.Locate(Request{Location: loc, Run: run, DetailLevel: DetailSlotOnly})
	if res == nil {
		return "", false
	}
	return res.SlotName, true
}

func (l *Locator) locate(req Request, loc domain.LabwareLocation, depth int) *LocationResult {
	switch v := loc.(type) {
	case nil:
		return nil
	case domain.OffDeck:
		return &LocationResult{SlotName: OffDeckSlot}
	case domain.SlotLocation:
		return &LocationResult{SlotName: v.SlotName}
	case domain.AddressableAreaLocation:
		return &LocationResult{SlotName: v.AddressableAreaName}
	case domain.ModuleLocation:
		module, ok := req.Run.FindModule(v.ModuleID)
		if !ok {
			l.log.Warn("labware is located on an unknown module", "module_id", v.ModuleID)
			return nil
		}
		return &LocationResult{SlotName: module.Location.SlotName, ModuleModel: module.Model}
	case domain.OnLabwareLocation:
		if depth >= l.maxDepth {
			l.log.Warn("labware nesting exceeds stack height limit", "labware_id", v.LabwareID, "depth", depth)
			return nil
		}
		adapter, ok := req.Run.FindLabware(v.LabwareID)
		if !ok {
			l.log.Warn("labware is located on an unknown adapter", "labware_id", v.LabwareID)
			return nil
		}
		if req.DetailLevel == DetailSlotOnly {
			return l.locate(req, adapter.Location, depth+1)
		}
		return l.locateUnderAdapter(req, adapter, depth)
	default:
		return nil
	}
}

func (l *Locator) locateUnderAdapter(req Request, adapter domain.LoadedLabware, depth int) *LocationResult {
	adapterName := ""
	if def, ok := req.Definitions[adapter.DefinitionURI]; ok {
		adapterName = def.DisplayName()
	}
	switch v := adapter.Location.(type) {
	case domain.OffDeck:
		return &LocationResult{SlotName: OffDeckSlot, AdapterName: adapterName}
	case domain.SlotLocation:
		return &LocationResult{SlotName: v.SlotName, AdapterName: adapterName}
	case domain.AddressableAreaLocation:
		return &LocationResult{SlotName: v.AddressableAreaName, AdapterName: adapterName}
	case domain.ModuleLocation:
		module, ok := req.Run.FindModule(v.ModuleID)
		if !ok {
			l.log.Warn("labware is located on an adapter on an unknown module", "module_id", v.ModuleID)
			return nil
		}
		return &LocationResult{SlotName: module.Location.SlotName, ModuleModel: module.Model, AdapterName: adapterName}
	case domain.OnLabwareLocation:
		return l.locate(req, v, depth+1)
	default:
		return nil
	}
}

// DisplayName returns the nickname of lw, falling back to its definition's display name.
func DisplayName(lw domain.LoadedLabware, defs domain.LabwareDefinitionsByURI) string {
	if lw.DisplayName != "" {
		return lw.DisplayName
	}
	if def, ok := defs[lw.DefinitionURI]; ok {
		return def.DisplayName()
	}
	return ""
}

// DefinitionsFromCommands collects the definitions produced by loadLabware commands.
func DefinitionsFromCommands(commands []domain.Command) domain.LabwareDefinitionsByURI {
	defs := make(domain.LabwareDefinitionsByURI)
	for _, c := range commands {
		_, res, ok := c.LoadLabware()
		if !ok || res == nil || res.Definition == nil {
			continue
		}
		defs[res.Definition.URI()] = *res.Definition
	}
	return defs
}
