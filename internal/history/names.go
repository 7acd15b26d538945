package history

import "deckhistory/pkg/domain"

// OffDeckSlotName is the slot text reported for off-deck labware.
const OffDeckSlotName = "Off deck"

// LocationInfoNames are the human-facing names describing where a labware was loaded.
type LocationInfoNames struct {
	SlotName        string             `json:"slotName"`
	LabwareName     string             `json:"labwareName"`
	LabwareNickname string             `json:"labwareNickname,omitempty"`
	LabwareQuantity int                `json:"labwareQuantity"`
	AdapterName     string             `json:"adapterName,omitempty"`
	AdapterID       string             `json:"adapterId,omitempty"`
	ModuleModel     domain.ModuleModel `json:"moduleModel,omitempty"`
}

// LocationInfoNames resolves slot, adapter and module names for labwareID from
// its load command and the stack it belongs to.
func (r *Resolver) LocationInfoNames(labwareID string, commands []domain.Command) LocationInfoNames {
	loadCommands := LoadLabwareCommands(commands)
	moduleCommands := LoadModuleCommands(commands)
	load, ok := findLoadCommand(loadCommands, labwareID)
	if !ok {
		r.log.Warn("could not find the load labware command associated with labware", "labware_id", labwareID)
		return LocationInfoNames{}
	}
	params, res, _ := load.LoadLabware()
	labwareName := ""
	if res.Definition != nil {
		labwareName = res.Definition.DisplayName()
	}
	nickname := params.DisplayName

	stack := r.LabwareStackCountAndLocation(labwareID, commands)
	quantity := stack.LabwareQuantity

	switch loc := stack.LabwareLocation.(type) {
	case domain.OffDeck:
		return LocationInfoNames{SlotName: OffDeckSlotName, LabwareName: labwareName, LabwareQuantity: quantity}
	case domain.SlotLocation:
		return LocationInfoNames{SlotName: loc.SlotName, LabwareName: labwareName, LabwareQuantity: quantity}
	case domain.AddressableAreaLocation:
		return LocationInfoNames{SlotName: loc.AddressableAreaName, LabwareName: labwareName, LabwareQuantity: quantity}
	case domain.ModuleLocation:
		module, ok := findModuleCommand(moduleCommands, loc.ModuleID)
		if !ok {
			return LocationInfoNames{LabwareQuantity: quantity}
		}
		mp, _, _ := module.LoadModule()
		return LocationInfoNames{
			SlotName:        mp.Location.SlotName,
			LabwareName:     labwareName,
			ModuleModel:     mp.Model,
			LabwareQuantity: quantity,
		}
	case domain.OnLabwareLocation:
		return r.adapterInfoNames(loc.LabwareID, loadCommands, moduleCommands, LocationInfoNames{
			LabwareName:     labwareName,
			LabwareNickname: nickname,
			LabwareQuantity: quantity,
		})
	default:
		return LocationInfoNames{LabwareName: labwareName, LabwareQuantity: quantity}
	}
}

func (r *Resolver) adapterInfoNames(adapterID string, loadCommands, moduleCommands []domain.Command, names LocationInfoNames) LocationInfoNames {
	adapter, ok := findLoadCommand(loadCommands, adapterID)
	if !ok {
		r.log.Warn("expected to find an adapter under the labware", "adapter_id", adapterID)
		return LocationInfoNames{LabwareName: names.LabwareName, LabwareQuantity: names.LabwareQuantity}
	}
	ap, ares, _ := adapter.LoadLabware()
	names.AdapterID = ares.LabwareID
	if ares.Definition != nil {
		names.AdapterName = ares.Definition.DisplayName()
	}
	switch loc := ap.Location.(type) {
	case domain.SlotLocation:
		names.SlotName = loc.SlotName
		return names
	case domain.AddressableAreaLocation:
		names.SlotName = loc.AddressableAreaName
		return names
	case domain.ModuleLocation:
		module, ok := findModuleCommand(moduleCommands, loc.ModuleID)
		if !ok {
			return LocationInfoNames{LabwareName: names.LabwareName, LabwareQuantity: names.LabwareQuantity}
		}
		mp, _, _ := module.LoadModule()
		names.SlotName = mp.Location.SlotName
		names.ModuleModel = mp.Model
		return names
	default:
		return LocationInfoNames{LabwareName: names.LabwareName, LabwareQuantity: names.LabwareQuantity}
	}
}

func findModuleCommand(commands []domain.Command, moduleID string) (domain.Command, bool) {
	return findFirst(commands, func(c domain.Command) bool {
		_, res, ok := c.LoadModule()
		return ok && res != nil && res.ModuleID == moduleID
	})
}
