// Package historytest builds command histories for tests.
package historytest

import "deckhistory/pkg/domain"

// Definition returns an opentrons-namespace labware definition.
func Definition(loadName, displayName string) *domain.LabwareDefinition {
	return &domain.LabwareDefinition{
		Namespace:  "opentrons",
		Version:    1,
		Parameters: domain.LabwareParameters{LoadName: loadName},
		Metadata:   domain.LabwareMetadata{DisplayName: displayName},
	}
}

// Tiprack returns a tip rack definition.
func Tiprack(loadName, displayName string) *domain.LabwareDefinition {
	def := Definition(loadName, displayName)
	def.Parameters.IsTiprack = true
	return def
}

// Adapter returns a definition allowed to act as an adapter.
func Adapter(loadName, displayName string) *domain.LabwareDefinition {
	def := Definition(loadName, displayName)
	def.AllowedRoles = []string{"adapter"}
	return def
}

// LoadLabware builds a completed loadLabware command. A nil def leaves the
// result without a definition and the load name empty.
func LoadLabware(cmdID, labwareID string, loc domain.LabwareLocation, def *domain.LabwareDefinition) domain.Command {
	p := domain.LoadLabwareParams{Location: loc}
	if def != nil {
		p.LoadName = def.Parameters.LoadName
		p.Namespace = def.Namespace
		p.Version = def.Version
	}
	return domain.Command{
		ID:          cmdID,
		Key:         cmdID,
		CommandType: domain.CommandLoadLabware,
		Status:      "succeeded",
		Params:      p,
		Result:      domain.LoadLabwareResult{LabwareID: labwareID, Definition: def},
	}
}

// LoadLabwareNamed is LoadLabware with a user-facing nickname.
func LoadLabwareNamed(cmdID, labwareID, nickname string, loc domain.LabwareLocation, def *domain.LabwareDefinition) domain.Command {
	c := LoadLabware(cmdID, labwareID, loc, def)
	p := c.Params.(domain.LoadLabwareParams)
	p.DisplayName = nickname
	c.Params = p
	return c
}

// MoveLabware builds a moveLabware command.
func MoveLabware(cmdID, labwareID string, to domain.LabwareLocation) domain.Command {
	return domain.Command{
		ID:          cmdID,
		Key:         cmdID,
		CommandType: domain.CommandMoveLabware,
		Status:      "succeeded",
		Params:      domain.MoveLabwareParams{LabwareID: labwareID, NewLocation: to, Strategy: "manualMoveWithPause"},
	}
}

// LoadModule builds a completed loadModule command.
func LoadModule(cmdID, moduleID string, model domain.ModuleModel, slot string) domain.Command {
	return domain.Command{
		ID:          cmdID,
		Key:         cmdID,
		CommandType: domain.CommandLoadModule,
		Status:      "succeeded",
		Params:      domain.LoadModuleParams{Model: model, Location: domain.SlotLocation{SlotName: slot}},
		Result:      domain.LoadModuleResult{ModuleID: moduleID, Model: model},
	}
}

// LoadPipette builds a completed loadPipette command.
func LoadPipette(cmdID, pipetteID, name string, mount domain.Mount) domain.Command {
	return domain.Command{
		ID:          cmdID,
		Key:         cmdID,
		CommandType: domain.CommandLoadPipette,
		Status:      "succeeded",
		Params:      domain.LoadPipetteParams{PipetteName: name, Mount: mount},
		Result:      domain.LoadPipetteResult{PipetteID: pipetteID},
	}
}

// Pipetting builds a well-targeted command of type ct.
func Pipetting(cmdID string, ct domain.CommandType, p domain.PipettingParams) domain.Command {
	return domain.Command{ID: cmdID, Key: cmdID, CommandType: ct, Status: "succeeded", Params: p}
}

// MoveToAddressableArea builds an addressable-area move of type ct.
func MoveToAddressableArea(cmdID string, ct domain.CommandType, pipetteID, area string) domain.Command {
	return domain.Command{
		ID:          cmdID,
		Key:         cmdID,
		CommandType: ct,
		Status:      "succeeded",
		Params:      domain.MoveToAddressableAreaParams{PipetteID: pipetteID, AddressableAreaName: area},
	}
}

// DropTipInPlace builds a dropTipInPlace command.
func DropTipInPlace(cmdID, pipetteID string) domain.Command {
	return domain.Command{
		ID:          cmdID,
		Key:         cmdID,
		CommandType: domain.CommandDropTipInPlace,
		Status:      "succeeded",
		Params:      domain.DropTipInPlaceParams{PipetteID: pipetteID},
	}
}

// Slot is shorthand for a slot location.
func Slot(name string) domain.LabwareLocation { return domain.SlotLocation{SlotName: name} }

// On is shorthand for a location on top of another labware.
func On(labwareID string) domain.LabwareLocation { return domain.OnLabwareLocation{LabwareID: labwareID} }

// OnModule is shorthand for a module location.
func OnModule(moduleID string) domain.LabwareLocation { return domain.ModuleLocation{ModuleID: moduleID} }

// LoadLiquid builds a loadLiquid command.
func LoadLiquid(cmdID, liquidID, labwareID string, volumeByWell map[string]float64) domain.Command {
	return domain.Command{
		ID:          cmdID,
		Key:         cmdID,
		CommandType: domain.CommandLoadLiquid,
		Status:      "succeeded",
		Params:      domain.LoadLiquidParams{LiquidID: liquidID, LabwareID: labwareID, VolumeByWell: volumeByWell},
	}
}
