// Package deckmap projects a run's loaded modules and labware onto the deck
// view model used by deck map renderers, flagging the slots that hold a
// distinguished labware (the one an error recovery flow is about).
//
// Every function degrades to an empty result when its inputs are incomplete;
// items whose geometry or definition cannot be resolved are left out.
package deckmap

import (
	"deckhistory/internal/labware"
	"deckhistory/pkg/domain"
)

// SlotLocator resolves a location down to its underlying slot name.
type SlotLocator interface {
	SlotOnly(loc domain.LabwareLocation, run *domain.RunRecord) (string, bool)
}

// ModuleDefinitions looks up a module definition by model.
type ModuleDefinitions func(domain.ModuleModel) (domain.ModuleDefinition, bool)

// Projector builds deck map view models.
type Projector struct {
	log        domain.Logger
	locator    SlotLocator
	moduleDefs ModuleDefinitions
	fixedTrash func() domain.LabwareDefinition
	geometry   func(domain.RobotType) Geometry
	maxStack   int
}

// Option configures a Projector.
type Option func(*Projector)

// WithLogger sets the projector's logger.
func WithLogger(l domain.Logger) Option {
	return func(p *Projector) { p.log = domain.LoggerOrNop(l) }
}

// WithSlotLocator replaces the slot-only location resolver.
func WithSlotLocator(l SlotLocator) Option {
	return func(p *Projector) { p.locator = l }
}

// WithModuleDefinitions replaces the module definition lookup.
func WithModuleDefinitions(fn ModuleDefinitions) Option {
	return func(p *Projector) { p.moduleDefs = fn }
}

// WithFixedTrashDefinition replaces the fixed-trash definition getter.
func WithFixedTrashDefinition(fn func() domain.LabwareDefinition) Option {
	return func(p *Projector) { p.fixedTrash = fn }
}

// WithMaxStackHeight caps the nesting walked by the built-in slot locator.
func WithMaxStackHeight(n int) Option {
	return func(p *Projector) { p.maxStack = n }
}

// WithGeometry replaces the per-robot deck geometry lookup.
func WithGeometry(fn func(domain.RobotType) Geometry) Option {
	return func(p *Projector) { p.geometry = fn }
}

// NewProjector constructs a Projector with the built-in collaborators.
func NewProjector(opts ...Option) *Projector {
	p := &Projector{
		log:        domain.NopLogger(),
		moduleDefs: domain.ModuleDefinitionFor,
		fixedTrash: FixedTrashDefinition,
		geometry:   StandardDeck,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.locator == nil {
		p.locator = labware.NewLocator(p.log, labware.WithMaxStackHeight(p.maxStack))
	}
	return p
}

// ModuleInfo is a module that can be drawn, with the labware nested on it.
type ModuleInfo struct {
	ModuleID              string                    `json:"moduleId"`
	ModuleDef             domain.ModuleDefinition   `json:"moduleDef"`
	NestedLabwareDef      *domain.LabwareDefinition `json:"nestedLabwareDef"`
	NestedLabwareSlotName string                    `json:"nestedLabwareSlotName"`
	SlotName              string                    `json:"slotName"`
}

// LabwareInfo is a labware that can be drawn in a slot.
type LabwareInfo struct {
	LabwareDef      domain.LabwareDefinition `json:"labwareDef"`
	LabwareLocation domain.LabwareLocation   `json:"labwareLocation"`
	SlotName        string                   `json:"slotName"`
}

// InnerProps carries module-specific render state.
type InnerProps struct {
	LidMotorState string `json:"lidMotorState,omitempty"`
}

// ModuleOnDeck is a module entry of the deck map.
type ModuleOnDeck struct {
	ModuleModel      domain.ModuleModel        `json:"moduleModel"`
	ModuleLocation   domain.SlotLocation       `json:"moduleLocation"`
	InnerProps       InnerProps                `json:"innerProps"`
	NestedLabwareDef *domain.LabwareDefinition `json:"nestedLabwareDef"`
	// Highlight is the slot name when the nested labware is the labware of
	// interest, or empty.
	Highlight string `json:"highlight,omitempty"`
}

// LabwareOnDeck is a labware entry of the deck map.
type LabwareOnDeck struct {
	LabwareLocation domain.LabwareLocation   `json:"labwareLocation"`
	Definition      domain.LabwareDefinition `json:"definition"`
	Highlight       string                   `json:"highlight,omitempty"`
}

// ModulesInfo derives the drawable modules of run. A module is left out when
// its slot has no deck position or its model has no definition.
func (p *Projector) ModulesInfo(run *domain.RunRecord, robot domain.RobotType, defs domain.LabwareDefinitionsByURI) []ModuleInfo {
	if run == nil || defs == nil {
		return nil
	}
	geometry := p.geometry(robot)
	var out []ModuleInfo
	for _, module := range run.Modules {
		moduleDef, ok := p.moduleDefs(module.Model)
		if !ok {
			p.log.Debug("skipping module without definition", "module_id", module.ID, "model", module.Model)
			continue
		}
		if _, ok := geometry.PositionFromSlotID(module.Location.SlotName); !ok {
			p.log.Debug("skipping module without slot position", "module_id", module.ID, "slot", module.Location.SlotName)
			continue
		}

		var nested *domain.LoadedLabware
		for i := range run.Labware {
			if loc, ok := run.Labware[i].Location.(domain.ModuleLocation); ok && loc.ModuleID == module.ID {
				nested = &run.Labware[i]
				break
			}
		}
		info := ModuleInfo{ModuleID: module.ID, ModuleDef: moduleDef, SlotName: module.Location.SlotName}
		if nested != nil {
			if def, ok := defs[nested.DefinitionURI]; ok {
				info.NestedLabwareDef = &def
			}
			info.NestedLabwareSlotName, _ = p.SlotNameAndLocationFrom(nested.Location, run, false)
		}
		out = append(out, info)
	}
	return out
}

// ModulesOnDeck builds the module entries of the deck map, highlighting the
// slot of the module whose nested labware matches failed.
func (p *Projector) ModulesOnDeck(failed *domain.LoadedLabware, run *domain.RunRecord, modules []ModuleInfo) []ModuleOnDeck {
	out := make([]ModuleOnDeck, 0, len(modules))
	for _, m := range modules {
		entry := ModuleOnDeck{
			ModuleModel:      m.ModuleDef.Model,
			ModuleLocation:   domain.SlotLocation{SlotName: m.SlotName},
			NestedLabwareDef: m.NestedLabwareDef,
		}
		if m.ModuleDef.Model == domain.ThermocyclerModuleV1 {
			entry.InnerProps = InnerProps{LidMotorState: "open"}
		}
		if p.IsLabwareMatch(m.NestedLabwareSlotName, run, failed) {
			entry.Highlight = m.NestedLabwareSlotName
		}
		out = append(out, entry)
	}
	return out
}

// LabwareInfo derives the drawable labware of run, one entry per slot.
// Module-hosted labware is left to ModulesInfo. When a slot holds several
// labware the first one nested on another labware is reported, placed on the
// slot itself, otherwise the first one in run order.
func (p *Projector) LabwareInfo(run *domain.RunRecord, defs domain.LabwareDefinitionsByURI) []LabwareInfo {
	if run == nil || defs == nil {
		return nil
	}
	var order []string
	bySlot := make(map[string][]LabwareInfo)
	for _, lw := range run.Labware {
		slotName, loc := p.SlotNameAndLocationFrom(lw.Location, run, true)
		if slotName == "" || loc == nil {
			continue
		}
		def, ok := p.labwareDefinition(lw, defs)
		if !ok {
			p.log.Debug("skipping labware without definition", "labware_id", lw.ID, "definition_uri", lw.DefinitionURI)
			continue
		}
		if _, seen := bySlot[slotName]; !seen {
			order = append(order, slotName)
		}
		bySlot[slotName] = append(bySlot[slotName], LabwareInfo{LabwareDef: def, LabwareLocation: loc, SlotName: slotName})
	}

	out := make([]LabwareInfo, 0, len(order))
	for _, slotName := range order {
		group := bySlot[slotName]
		chosen := group[0]
		for _, candidate := range group {
			if _, nested := candidate.LabwareLocation.(domain.OnLabwareLocation); nested {
				chosen = candidate
				chosen.LabwareLocation = domain.SlotLocation{SlotName: slotName}
				break
			}
		}
		out = append(out, chosen)
	}
	return out
}

// LabwareOnDeck builds the labware entries of the deck map. Every labware in
// the failed labware's slot is highlighted; renderers draw only the topmost.
func (p *Projector) LabwareOnDeck(failed *domain.LoadedLabware, run *domain.RunRecord, labware []LabwareInfo) []LabwareOnDeck {
	out := make([]LabwareOnDeck, 0, len(labware))
	for _, lw := range labware {
		entry := LabwareOnDeck{LabwareLocation: lw.LabwareLocation, Definition: lw.LabwareDef}
		if p.IsLabwareMatch(lw.SlotName, run, failed) {
			entry.Highlight = lw.SlotName
		}
		out = append(out, entry)
	}
	return out
}

func (p *Projector) labwareDefinition(lw domain.LoadedLabware, defs domain.LabwareDefinitionsByURI) (domain.LabwareDefinition, bool) {
	if lw.ID == domain.FixedTrashID {
		return p.fixedTrash(), true
	}
	def, ok := defs[lw.DefinitionURI]
	return def, ok
}

// SlotNameAndLocationFrom resolves the base slot beneath location and narrows
// location to its variant. An empty slot name or nil location means "nothing
// to show": off-deck, unresolved, unrecognised shapes, and module placements
// when excludeModules is set.
func (p *Projector) SlotNameAndLocationFrom(location domain.LabwareLocation, run *domain.RunRecord, excludeModules bool) (string, domain.LabwareLocation) {
	switch loc := location.(type) {
	case nil, domain.OffDeck:
		return "", nil
	case domain.ModuleLocation:
		if excludeModules {
			return "", nil
		}
		return p.baseSlot(loc, run), domain.ModuleLocation{ModuleID: loc.ModuleID}
	case domain.OnLabwareLocation:
		return p.baseSlot(loc, run), domain.OnLabwareLocation{LabwareID: loc.LabwareID}
	case domain.AddressableAreaLocation:
		return p.baseSlot(loc, run), domain.AddressableAreaLocation{AddressableAreaName: loc.AddressableAreaName}
	case domain.SlotLocation:
		return p.baseSlot(loc, run), domain.SlotLocation{SlotName: loc.SlotName}
	default:
		return "", nil
	}
}

func (p *Projector) baseSlot(loc domain.LabwareLocation, run *domain.RunRecord) string {
	slotName, ok := p.locator.SlotOnly(loc, run)
	if !ok {
		return ""
	}
	return slotName
}

// IsLabwareMatch reports whether the labware of interest sits in slotName.
// Off-deck and module-hosted labware never match: modules are matched through
// the slot of the labware nested on them.
func (p *Projector) IsLabwareMatch(slotName string, run *domain.RunRecord, of *domain.LoadedLabware) bool {
	if of == nil || of.Location == nil {
		return false
	}
	switch of.Location.(type) {
	case domain.OffDeck, domain.ModuleLocation, domain.UnknownLocation:
		return false
	}
	resolved, _ := p.SlotNameAndLocationFrom(of.Location, run, true)
	return resolved != "" && resolved == slotName
}
