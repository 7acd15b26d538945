package history

import "deckhistory/pkg/domain"

// DefaultLiquidColors are assigned by position to liquids without a display color.
var DefaultLiquidColors = []string{
	"#b925ff", "#ffd600", "#ff9900", "#50d5ff", "#ff80f5", "#7eff42", "#ff4f4f", "#9395a0",
}

// PipetteNamesByMount names the first pipette loaded on each mount.
type PipetteNamesByMount struct {
	Left  string `json:"left,omitempty"`
	Right string `json:"right,omitempty"`
}

// InitialPipetteNamesByMount returns the first pipette name loaded per mount.
func InitialPipetteNamesByMount(commands []domain.Command) PipetteNamesByMount {
	var names PipetteNamesByMount
	if cmd, ok := firstPipetteOn(commands, domain.MountLeft); ok {
		p, _, _ := cmd.LoadPipette()
		names.Left = p.PipetteName
	}
	if cmd, ok := firstPipetteOn(commands, domain.MountRight); ok {
		p, _, _ := cmd.LoadPipette()
		names.Right = p.PipetteName
	}
	return names
}

// PipetteEntities returns the first pipette loaded on the right mount, then on the left.
func PipetteEntities(commands []domain.Command) []domain.LoadedPipette {
	var out []domain.LoadedPipette
	for _, mount := range []domain.Mount{domain.MountRight, domain.MountLeft} {
		cmd, ok := firstPipetteOn(commands, mount)
		if !ok {
			continue
		}
		p, res, _ := cmd.LoadPipette()
		id := ""
		if res != nil {
			id = res.PipetteID
		}
		out = append(out, domain.LoadedPipette{ID: id, PipetteName: p.PipetteName, Mount: p.Mount})
	}
	return out
}

func firstPipetteOn(commands []domain.Command, mount domain.Mount) (domain.Command, bool) {
	return findFirst(commands, func(c domain.Command) bool {
		p, _, ok := c.LoadPipette()
		return ok && p.Mount == mount
	})
}

// RequiredModuleModels lists the model of every loadModule command in order.
func RequiredModuleModels(commands []domain.Command) []domain.ModuleModel {
	var out []domain.ModuleModel
	for _, c := range commands {
		if p, _, ok := c.LoadModule(); ok {
			out = append(out, p.Model)
		}
	}
	return out
}

// RequiredModuleEntities builds module entities from loadModule commands. Serial
// numbers are left blank since analyses do not carry hardware identity.
func RequiredModuleEntities(commands []domain.Command) []domain.LoadedModule {
	var out []domain.LoadedModule
	for _, c := range commands {
		p, res, ok := c.LoadModule()
		if !ok {
			continue
		}
		id := ""
		if res != nil {
			id = res.ModuleID
		}
		out = append(out, domain.LoadedModule{ID: id, Model: p.Model, Location: p.Location})
	}
	return out
}

// InitialLoadedLabwareBySlot maps each slot or addressable area to the first
// loadLabware command placed directly in it.
func InitialLoadedLabwareBySlot(commands []domain.Command) map[string]domain.Command {
	return firstLoadBy(commands, func(loc domain.LabwareLocation) (string, bool) {
		switch l := loc.(type) {
		case domain.SlotLocation:
			return l.SlotName, true
		case domain.AddressableAreaLocation:
			return l.AddressableAreaName, true
		default:
			return "", false
		}
	})
}

// InitialLoadedLabwareByAdapter maps each labware id to the first loadLabware
// command nested on it.
func InitialLoadedLabwareByAdapter(commands []domain.Command) map[string]domain.Command {
	return firstLoadBy(commands, func(loc domain.LabwareLocation) (string, bool) {
		l, ok := loc.(domain.OnLabwareLocation)
		return l.LabwareID, ok
	})
}

// InitialLoadedLabwareByModuleID maps each module id to the first loadLabware
// command placed on it.
func InitialLoadedLabwareByModuleID(commands []domain.Command) map[string]domain.Command {
	return firstLoadBy(commands, func(loc domain.LabwareLocation) (string, bool) {
		l, ok := loc.(domain.ModuleLocation)
		return l.ModuleID, ok
	})
}

func firstLoadBy(commands []domain.Command, key func(domain.LabwareLocation) (string, bool)) map[string]domain.Command {
	out := make(map[string]domain.Command)
	for _, c := range commands {
		p, _, ok := c.LoadLabware()
		if !ok {
			continue
		}
		k, ok := key(p.Location)
		if !ok {
			continue
		}
		if _, seen := out[k]; !seen {
			out[k] = c
		}
	}
	return out
}

// InitialLoadedLabwareEntities builds labware entities from loadLabware
// commands, skipping trash labware.
func InitialLoadedLabwareEntities(commands []domain.Command) []domain.LoadedLabware {
	return loadedLabware(commands, true)
}

// LoadedLabwareEntities builds labware entities from every loadLabware
// command, trash included.
func LoadedLabwareEntities(commands []domain.Command) []domain.LoadedLabware {
	return loadedLabware(commands, false)
}

func loadedLabware(commands []domain.Command, skipTrash bool) []domain.LoadedLabware {
	var out []domain.LoadedLabware
	for _, c := range commands {
		p, res, ok := c.LoadLabware()
		if !ok {
			continue
		}
		var def *domain.LabwareDefinition
		id := ""
		if res != nil {
			id = res.LabwareID
			def = res.Definition
		}
		if skipTrash && def != nil && def.Metadata.DisplayCategory == "trash" {
			continue
		}
		lw := domain.LoadedLabware{ID: id, Location: p.Location, DisplayName: p.DisplayName}
		if def != nil {
			lw.LoadName = def.Parameters.LoadName
			lw.DefinitionURI = def.URI()
		}
		out = append(out, lw)
	}
	return out
}

// LiquidsInLoadOrder returns the liquids referenced by loadLiquid commands in
// the order they were first loaded. Liquids without a display color get one
// from DefaultLiquidColors by their position in liquids.
func LiquidsInLoadOrder(liquids []domain.Liquid, commands []domain.Command) []domain.Liquid {
	colored := make(map[string]domain.Liquid, len(liquids))
	for i, liquid := range liquids {
		if liquid.DisplayColor == "" {
			liquid.DisplayColor = DefaultLiquidColors[i%len(DefaultLiquidColors)]
		}
		if _, dup := colored[liquid.ID]; !dup {
			colored[liquid.ID] = liquid
		}
	}
	var out []domain.Liquid
	seen := make(map[string]struct{})
	for _, c := range commands {
		p, ok := c.LoadLiquid()
		if !ok {
			continue
		}
		liquid, known := colored[p.LiquidID]
		if !known {
			continue
		}
		if _, dup := seen[liquid.ID]; dup {
			continue
		}
		seen[liquid.ID] = struct{}{}
		out = append(out, liquid)
	}
	return out
}

// LabwareLiquidInfo is the merged volume per well of one liquid in one labware.
type LabwareLiquidInfo struct {
	LabwareID    string             `json:"labwareId"`
	VolumeByWell map[string]float64 `json:"volumeByWell"`
}

// LabwareInfoByLiquidID groups loadLiquid commands by liquid, merging the
// volumes of repeated loads into the same labware. Later loads overwrite
// earlier volumes for the same well.
func LabwareInfoByLiquidID(commands []domain.Command) map[string][]LabwareLiquidInfo {
	out := make(map[string][]LabwareLiquidInfo)
	for _, c := range commands {
		p, ok := c.LoadLiquid()
		if !ok {
			continue
		}
		entries := out[p.LiquidID]
		idx := -1
		for i, e := range entries {
			if e.LabwareID == p.LabwareID {
				idx = i
				break
			}
		}
		if idx < 0 {
			entries = append(entries, LabwareLiquidInfo{LabwareID: p.LabwareID, VolumeByWell: map[string]float64{}})
			idx = len(entries) - 1
		}
		for well, vol := range p.VolumeByWell {
			entries[idx].VolumeByWell[well] = vol
		}
		out[p.LiquidID] = entries
	}
	return out
}
