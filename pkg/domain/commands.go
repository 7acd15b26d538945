package domain

import (
	"encoding/json"
	"fmt"
)

// CommandType tags a protocol command.
type CommandType string

// Known command types. Anything else decodes with RawParams.
const (
	CommandLoadLabware                     CommandType = "loadLabware"
	CommandLoadModule                      CommandType = "loadModule"
	CommandLoadPipette                     CommandType = "loadPipette"
	CommandLoadLiquid                      CommandType = "loadLiquid"
	CommandMoveLabware                     CommandType = "moveLabware"
	CommandMoveToAddressableArea           CommandType = "moveToAddressableArea"
	CommandMoveToAddressableAreaForDropTip CommandType = "moveToAddressableAreaForDropTip"
	CommandPickUpTip                       CommandType = "pickUpTip"
	CommandDropTip                         CommandType = "dropTip"
	CommandDropTipInPlace                  CommandType = "dropTipInPlace"
	CommandAspirate                        CommandType = "aspirate"
	CommandDispense                        CommandType = "dispense"
	CommandBlowout                         CommandType = "blowout"
	CommandTouchTip                        CommandType = "touchTip"
	CommandMoveToWell                      CommandType = "moveToWell"
)

// Command is an immutable record of one protocol action. Position in the
// history is the only notion of time.
type Command struct {
	ID          string
	Key         string
	CommandType CommandType
	Status      string
	Params      CommandParams
	Result      CommandResult
}

// CommandParams is the sealed set of per-type inputs.
type CommandParams interface{ isCommandParams() }

// CommandResult is the sealed set of per-type outputs.
type CommandResult interface{ isCommandResult() }

// LoadLabwareParams are the inputs of a loadLabware command.
type LoadLabwareParams struct {
	Location    LabwareLocation
	LoadName    string
	Namespace   string
	Version     int
	DisplayName string
	LabwareID   string
}

// LoadModuleParams are the inputs of a loadModule command.
type LoadModuleParams struct {
	Model    ModuleModel  `json:"model"`
	Location SlotLocation `json:"location"`
	ModuleID string       `json:"moduleId,omitempty"`
}

// LoadPipetteParams are the inputs of a loadPipette command.
type LoadPipetteParams struct {
	PipetteName string `json:"pipetteName"`
	Mount       Mount  `json:"mount"`
	PipetteID   string `json:"pipetteId,omitempty"`
}

// LoadLiquidParams are the inputs of a loadLiquid command.
type LoadLiquidParams struct {
	LiquidID     string             `json:"liquidId"`
	LabwareID    string             `json:"labwareId"`
	VolumeByWell map[string]float64 `json:"volumeByWell"`
}

// MoveLabwareParams are the inputs of a moveLabware command.
type MoveLabwareParams struct {
	LabwareID   string
	NewLocation LabwareLocation
	Strategy    string
}

// MoveToAddressableAreaParams serve both addressable-area move commands.
type MoveToAddressableAreaParams struct {
	PipetteID           string `json:"pipetteId"`
	AddressableAreaName string `json:"addressableAreaName"`
}

// PipettingParams serve the well-targeted liquid and tip commands.
type PipettingParams struct {
	PipetteID string   `json:"pipetteId,omitempty"`
	LabwareID string   `json:"labwareId,omitempty"`
	WellName  string   `json:"wellName,omitempty"`
	Volume    float64  `json:"volume,omitempty"`
	FlowRate  float64  `json:"flowRate,omitempty"`
	PushOut   *float64 `json:"pushOut,omitempty"`
}

// DropTipInPlaceParams are the inputs of a dropTipInPlace command.
type DropTipInPlaceParams struct {
	PipetteID string `json:"pipetteId,omitempty"`
}

// RawParams keeps the inputs of a command type without a typed model.
type RawParams struct {
	Raw json.RawMessage
}

func (LoadLabwareParams) isCommandParams()           {}
func (LoadModuleParams) isCommandParams()            {}
func (LoadPipetteParams) isCommandParams()           {}
func (LoadLiquidParams) isCommandParams()            {}
func (MoveLabwareParams) isCommandParams()           {}
func (MoveToAddressableAreaParams) isCommandParams() {}
func (PipettingParams) isCommandParams()             {}
func (DropTipInPlaceParams) isCommandParams()        {}
func (RawParams) isCommandParams()                   {}

// LoadLabwareResult is the output of a loadLabware command.
type LoadLabwareResult struct {
	LabwareID  string             `json:"labwareId"`
	Definition *LabwareDefinition `json:"definition,omitempty"`
}

// LoadModuleResult is the output of a loadModule command.
type LoadModuleResult struct {
	ModuleID     string            `json:"moduleId"`
	Model        ModuleModel       `json:"model,omitempty"`
	SerialNumber string            `json:"serialNumber,omitempty"`
	Definition   *ModuleDefinition `json:"definition,omitempty"`
}

// LoadPipetteResult is the output of a loadPipette command.
type LoadPipetteResult struct {
	PipetteID string `json:"pipetteId"`
}

// RawResult keeps the output of a command type without a typed model.
type RawResult struct {
	Raw json.RawMessage
}

func (LoadLabwareResult) isCommandResult() {}
func (LoadModuleResult) isCommandResult()  {}
func (LoadPipetteResult) isCommandResult() {}
func (RawResult) isCommandResult()         {}

// LoadLabware returns the typed load-labware view of c. The result is nil when
// the command has not produced one.
func (c Command) LoadLabware() (LoadLabwareParams, *LoadLabwareResult, bool) {
	if c.CommandType != CommandLoadLabware {
		return LoadLabwareParams{}, nil, false
	}
	p, ok := c.Params.(LoadLabwareParams)
	if !ok {
		return LoadLabwareParams{}, nil, false
	}
	if r, ok := c.Result.(LoadLabwareResult); ok {
		return p, &r, true
	}
	return p, nil, true
}

// LoadedLabwareID returns result.labwareId of a loadLabware command.
func (c Command) LoadedLabwareID() (string, bool) {
	_, res, ok := c.LoadLabware()
	if !ok || res == nil {
		return "", false
	}
	return res.LabwareID, true
}

// MoveLabware returns the typed move-labware view of c.
func (c Command) MoveLabware() (MoveLabwareParams, bool) {
	if c.CommandType != CommandMoveLabware {
		return MoveLabwareParams{}, false
	}
	p, ok := c.Params.(MoveLabwareParams)
	return p, ok
}

// LoadModule returns the typed load-module view of c.
func (c Command) LoadModule() (LoadModuleParams, *LoadModuleResult, bool) {
	if c.CommandType != CommandLoadModule {
		return LoadModuleParams{}, nil, false
	}
	p, ok := c.Params.(LoadModuleParams)
	if !ok {
		return LoadModuleParams{}, nil, false
	}
	if r, ok := c.Result.(LoadModuleResult); ok {
		return p, &r, true
	}
	return p, nil, true
}

// LoadPipette returns the typed load-pipette view of c.
func (c Command) LoadPipette() (LoadPipetteParams, *LoadPipetteResult, bool) {
	if c.CommandType != CommandLoadPipette {
		return LoadPipetteParams{}, nil, false
	}
	p, ok := c.Params.(LoadPipetteParams)
	if !ok {
		return LoadPipetteParams{}, nil, false
	}
	if r, ok := c.Result.(LoadPipetteResult); ok {
		return p, &r, true
	}
	return p, nil, true
}

// LoadLiquid returns the typed load-liquid view of c.
func (c Command) LoadLiquid() (LoadLiquidParams, bool) {
	if c.CommandType != CommandLoadLiquid {
		return LoadLiquidParams{}, false
	}
	p, ok := c.Params.(LoadLiquidParams)
	return p, ok
}

// Pipetting returns the well-targeted params of c when it carries them.
func (c Command) Pipetting() (PipettingParams, bool) {
	p, ok := c.Params.(PipettingParams)
	return p, ok
}

// IsAddressableAreaMove reports whether c moves a pipette to an addressable area.
func (c Command) IsAddressableAreaMove() bool {
	return c.CommandType == CommandMoveToAddressableArea || c.CommandType == CommandMoveToAddressableAreaForDropTip
}

// AddressableAreaName returns the target area of an addressable-area move.
func (c Command) AddressableAreaName() (string, bool) {
	if !c.IsAddressableAreaMove() {
		return "", false
	}
	p, ok := c.Params.(MoveToAddressableAreaParams)
	if !ok || p.AddressableAreaName == "" {
		return "", false
	}
	return p.AddressableAreaName, true
}

type commandWire struct {
	ID          string          `json:"id"`
	Key         string          `json:"key,omitempty"`
	CommandType CommandType     `json:"commandType"`
	Status      string          `json:"status,omitempty"`
	Params      json.RawMessage `json:"params,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
}

type loadLabwareParamsWire struct {
	Location    Location `json:"location"`
	LoadName    string   `json:"loadName"`
	Namespace   string   `json:"namespace,omitempty"`
	Version     int      `json:"version,omitempty"`
	DisplayName string   `json:"displayName,omitempty"`
	LabwareID   string   `json:"labwareId,omitempty"`
}

type moveLabwareParamsWire struct {
	LabwareID   string   `json:"labwareId"`
	NewLocation Location `json:"newLocation"`
	Strategy    string   `json:"strategy,omitempty"`
}

// MarshalJSON encodes the protocol-schema form of a command.
func (c Command) MarshalJSON() ([]byte, error) {
	w := commandWire{ID: c.ID, Key: c.Key, CommandType: c.CommandType, Status: c.Status}
	var err error
	switch p := c.Params.(type) {
	case nil:
	case LoadLabwareParams:
		w.Params, err = json.Marshal(loadLabwareParamsWire{
			Location: Loc(p.Location), LoadName: p.LoadName, Namespace: p.Namespace,
			Version: p.Version, DisplayName: p.DisplayName, LabwareID: p.LabwareID,
		})
	case MoveLabwareParams:
		w.Params, err = json.Marshal(moveLabwareParamsWire{LabwareID: p.LabwareID, NewLocation: Loc(p.NewLocation), Strategy: p.Strategy})
	case RawParams:
		w.Params = p.Raw
	default:
		w.Params, err = json.Marshal(p)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s params: %w", c.CommandType, err)
	}
	switch r := c.Result.(type) {
	case nil:
	case RawResult:
		w.Result = r.Raw
	default:
		w.Result, err = json.Marshal(r)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s result: %w", c.CommandType, err)
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes params and result according to commandType.
func (c *Command) UnmarshalJSON(data []byte) error {
	var w commandWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode command: %w", err)
	}
	params, err := decodeParams(w.CommandType, w.Params)
	if err != nil {
		return fmt.Errorf("decode %s %s params: %w", w.CommandType, w.ID, err)
	}
	result, err := decodeResult(w.CommandType, w.Result)
	if err != nil {
		return fmt.Errorf("decode %s %s result: %w", w.CommandType, w.ID, err)
	}
	*c = Command{ID: w.ID, Key: w.Key, CommandType: w.CommandType, Status: w.Status, Params: params, Result: result}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

func decodeParams(ct CommandType, raw json.RawMessage) (CommandParams, error) {
	if isNull(raw) {
		return nil, nil
	}
	switch ct {
	case CommandLoadLabware:
		var w loadLabwareParamsWire
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		return LoadLabwareParams{
			Location: w.Location.Get(), LoadName: w.LoadName, Namespace: w.Namespace,
			Version: w.Version, DisplayName: w.DisplayName, LabwareID: w.LabwareID,
		}, nil
	case CommandMoveLabware:
		var w moveLabwareParamsWire
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		return MoveLabwareParams{LabwareID: w.LabwareID, NewLocation: w.NewLocation.Get(), Strategy: w.Strategy}, nil
	case CommandLoadModule:
		return decodeParamsAs[LoadModuleParams](raw)
	case CommandLoadPipette:
		return decodeParamsAs[LoadPipetteParams](raw)
	case CommandLoadLiquid:
		return decodeParamsAs[LoadLiquidParams](raw)
	case CommandMoveToAddressableArea, CommandMoveToAddressableAreaForDropTip:
		return decodeParamsAs[MoveToAddressableAreaParams](raw)
	case CommandAspirate, CommandDispense, CommandPickUpTip, CommandDropTip,
		CommandBlowout, CommandTouchTip, CommandMoveToWell:
		return decodeParamsAs[PipettingParams](raw)
	case CommandDropTipInPlace:
		return decodeParamsAs[DropTipInPlaceParams](raw)
	default:
		return RawParams{Raw: append(json.RawMessage(nil), raw...)}, nil
	}
}

func decodeResult(ct CommandType, raw json.RawMessage) (CommandResult, error) {
	if isNull(raw) {
		return nil, nil
	}
	switch ct {
	case CommandLoadLabware:
		return decodeResultAs[LoadLabwareResult](raw)
	case CommandLoadModule:
		return decodeResultAs[LoadModuleResult](raw)
	case CommandLoadPipette:
		return decodeResultAs[LoadPipetteResult](raw)
	default:
		return RawResult{Raw: append(json.RawMessage(nil), raw...)}, nil
	}
}

func decodeParamsAs[T CommandParams](raw json.RawMessage) (CommandParams, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func decodeResultAs[T CommandResult](raw json.RawMessage) (CommandResult, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}
