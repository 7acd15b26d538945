// Package commandtext renders human-readable descriptions of pipetting
// commands, naming the labware, well and deck location each one targets.
package commandtext

import (
	"strings"

	"deckhistory/internal/history"
	"deckhistory/internal/labware"
	"deckhistory/pkg/domain"
)

// Data is the run context a command is rendered against.
type Data struct {
	Commands    []domain.Command
	Run         *domain.RunRecord
	RobotType   domain.RobotType
	Definitions domain.LabwareDefinitionsByURI
}

// Renderer turns commands into display text.
type Renderer struct {
	t        Translator
	log      domain.Logger
	locator  *labware.Locator
	maxStack int
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithTranslator replaces the English catalog.
func WithTranslator(t Translator) Option {
	return func(r *Renderer) { r.t = t }
}

// WithLogger sets the renderer's logger.
func WithLogger(l domain.Logger) Option {
	return func(r *Renderer) { r.log = domain.LoggerOrNop(l) }
}

// WithMaxStackHeight caps the adapter nesting followed when naming locations.
func WithMaxStackHeight(n int) Option {
	return func(r *Renderer) { r.maxStack = n }
}

// NewRenderer constructs a Renderer.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{t: English, log: domain.NopLogger()}
	for _, opt := range opts {
		opt(r)
	}
	r.locator = labware.NewLocator(r.log, labware.WithMaxStackHeight(r.maxStack))
	return r
}

// PipettingText describes cmd, or returns "" when cmd is not a pipetting
// command. Locations are resolved against the history up to and including
// cmd when cmd is part of data.Commands.
func (r *Renderer) PipettingText(cmd domain.Command, data Data) string {
	commands := historyThrough(cmd, data.Commands)
	defs := r.definitions(data)

	if cmd.CommandType == domain.CommandDropTipInPlace {
		if area := history.FinalMoveToAddressableAreaCommand(commands); area != nil {
			if name, ok := area.AddressableAreaName(); ok {
				return r.t.T("dropping_tip_in_trash", map[string]any{"trash": r.AddressableAreaDisplayName(name)})
			}
		}
		return r.t.T("drop_tip_in_place", nil)
	}

	p, ok := cmd.Pipetting()
	if !ok {
		return ""
	}
	location := ""
	if loc := history.FinalLabwareLocation(p.LabwareID, commands); loc != nil {
		location = r.DisplayLocation(loc, data.Run, defs)
	}
	name := r.labwareName(p.LabwareID, data.Run, commands, defs)
	args := map[string]any{
		"well_name":        p.WellName,
		"labware":          name,
		"labware_location": location,
		"volume":           p.Volume,
		"flow_rate":        p.FlowRate,
	}

	switch cmd.CommandType {
	case domain.CommandAspirate:
		return r.t.T("aspirate", args)
	case domain.CommandDispense:
		if p.PushOut != nil {
			args["push_out_volume"] = *p.PushOut
			return r.t.T("dispense_push_out", args)
		}
		return r.t.T("dispense", args)
	case domain.CommandBlowout:
		return r.t.T("blowout", args)
	case domain.CommandTouchTip:
		return r.t.T("touch_tip", args)
	case domain.CommandMoveToWell:
		return r.t.T("move_to_well", args)
	case domain.CommandPickUpTip:
		pipette, _ := data.Run.FindPipette(p.PipetteID)
		args["well_range"] = WellRange(pipette.PipetteName, p.WellName)
		return r.t.T("pickup_tip", args)
	case domain.CommandDropTip:
		if r.isTiprack(p.LabwareID, data.Run, defs) {
			return r.t.T("return_tip", args)
		}
		return r.t.T("drop_tip", args)
	default:
		return ""
	}
}

// DisplayLocation renders where loc sits: a slot, a module in a slot, an
// adapter in a slot or on a module, or off deck. Unresolvable locations render
// as "".
func (r *Renderer) DisplayLocation(loc domain.LabwareLocation, run *domain.RunRecord, defs domain.LabwareDefinitionsByURI) string {
	if domain.IsOffDeck(loc) {
		return r.t.T("off_deck", nil)
	}
	res := r.locator.Locate(labware.Request{Location: loc, Run: run, DetailLevel: labware.DetailFull, Definitions: defs})
	if res == nil {
		return ""
	}
	if res.SlotName == labware.OffDeckSlot {
		return r.t.T("off_deck", nil)
	}
	switch {
	case res.AdapterName != "" && res.ModuleModel != "":
		return r.t.T("adapter_in_mod_in_slot", map[string]any{
			"adapter": res.AdapterName,
			"module":  domain.ModuleDisplayName(res.ModuleModel),
			"slot":    res.SlotName,
		})
	case res.AdapterName != "":
		return r.t.T("adapter_in_slot", map[string]any{"adapter": res.AdapterName, "slot": res.SlotName})
	case res.ModuleModel != "":
		return r.t.T("module_in_slot", map[string]any{
			"module":    domain.ModuleDisplayName(res.ModuleModel),
			"slot_name": res.SlotName,
		})
	default:
		return r.t.T("slot", map[string]any{"slot_name": res.SlotName})
	}
}

// AddressableAreaDisplayName names a trash or waste chute area for display.
func (r *Renderer) AddressableAreaDisplayName(area string) string {
	switch {
	case area == domain.FixedTrashID:
		return r.t.T("fixed_trash", nil)
	case strings.HasPrefix(area, "movableTrash"):
		return r.t.T("trash_bin_in_slot", map[string]any{"slot": strings.TrimPrefix(area, "movableTrash")})
	case strings.Contains(area, "WasteChute"):
		return r.t.T("waste_chute", nil)
	default:
		return area
	}
}

// WellRange describes the wells a pipette picks tips from when its first
// nozzle is at wellName.
func WellRange(pipetteName, wellName string) string {
	if wellName == "" {
		return ""
	}
	switch channels(pipetteName) {
	case 96:
		return "A1 - H12"
	case 8:
		column := strings.TrimLeft(wellName, "ABCDEFGHIJKLMNOP")
		if column == "" || !strings.HasPrefix(wellName, "A") {
			return wellName
		}
		return wellName + " - H" + column
	default:
		return wellName
	}
}

func channels(pipetteName string) int {
	switch {
	case strings.Contains(pipetteName, "_96"):
		return 96
	case strings.Contains(pipetteName, "multi"):
		return 8
	default:
		return 1
	}
}

func (r *Renderer) definitions(data Data) domain.LabwareDefinitionsByURI {
	defs := labware.DefinitionsFromCommands(data.Commands)
	for uri, def := range data.Definitions {
		defs[uri] = def
	}
	return defs
}

func (r *Renderer) labwareName(labwareID string, run *domain.RunRecord, commands []domain.Command, defs domain.LabwareDefinitionsByURI) string {
	if lw, ok := run.FindLabware(labwareID); ok {
		if name := labware.DisplayName(lw, defs); name != "" {
			return name
		}
	}
	for _, c := range commands {
		params, res, ok := c.LoadLabware()
		if !ok || res == nil || res.LabwareID != labwareID {
			continue
		}
		if params.DisplayName != "" {
			return params.DisplayName
		}
		if res.Definition != nil {
			return res.Definition.DisplayName()
		}
	}
	return ""
}

func (r *Renderer) isTiprack(labwareID string, run *domain.RunRecord, defs domain.LabwareDefinitionsByURI) bool {
	lw, ok := run.FindLabware(labwareID)
	if !ok {
		return false
	}
	def, ok := defs[lw.DefinitionURI]
	return ok && def.Parameters.IsTiprack
}

func historyThrough(cmd domain.Command, commands []domain.Command) []domain.Command {
	if cmd.ID == "" {
		return commands
	}
	_, idx := history.FindLastAt(commands, func(c domain.Command) bool { return c.ID == cmd.ID })
	if idx < 0 {
		return commands
	}
	return commands[:idx+1]
}
