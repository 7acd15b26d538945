// Package domain defines the protocol command model, labware locations, loaded
// entities, and rule evaluation primitives used by deckhistory.
package domain

import (
	"encoding/json"
	"fmt"
)

// EntityType identifies the kind of record a violation or lookup refers to.
type EntityType string

// Supported entity type identifiers.
const (
	EntityCommand  EntityType = "command"
	EntityLabware  EntityType = "labware"
	EntityModule   EntityType = "module"
	EntityPipette  EntityType = "pipette"
	EntityLiquid   EntityType = "liquid"
	EntityRun      EntityType = "run"
	EntityAnalysis EntityType = "analysis"
)

// Mount identifies a pipette mount.
type Mount string

// Pipette mounts.
const (
	MountLeft  Mount = "left"
	MountRight Mount = "right"
)

// RobotType names a robot family.
type RobotType string

// Robot types.
const (
	RobotOT2  RobotType = "OT-2 Standard"
	RobotFlex RobotType = "OT-3 Standard"
)

// FixedTrashID is the reserved labware id of the OT-2 fixed trash.
const FixedTrashID = "fixedTrash"

// LabwareParameters carries the definition parameters the core reads.
type LabwareParameters struct {
	LoadName  string `json:"loadName"`
	Format    string `json:"format,omitempty"`
	IsTiprack bool   `json:"isTiprack"`
}

// LabwareMetadata carries human-facing definition metadata.
type LabwareMetadata struct {
	DisplayName        string `json:"displayName"`
	DisplayCategory    string `json:"displayCategory,omitempty"`
	DisplayVolumeUnits string `json:"displayVolumeUnits,omitempty"`
}

// LabwareDefinition is the subset of a labware definition used by the core.
type LabwareDefinition struct {
	Namespace    string            `json:"namespace"`
	Version      int               `json:"version"`
	Parameters   LabwareParameters `json:"parameters"`
	Metadata     LabwareMetadata   `json:"metadata"`
	AllowedRoles []string          `json:"allowedRoles,omitempty"`
	Ordering     [][]string        `json:"ordering,omitempty"`
}

// URI returns the namespace/loadName/version identity of the definition.
func (d LabwareDefinition) URI() string {
	return DefinitionURI(d.Namespace, d.Parameters.LoadName, d.Version)
}

// DisplayName returns the definition's display name.
func (d LabwareDefinition) DisplayName() string {
	return d.Metadata.DisplayName
}

// IsAdapter reports whether the definition may act as an adapter.
func (d LabwareDefinition) IsAdapter() bool {
	for _, role := range d.AllowedRoles {
		if role == "adapter" {
			return true
		}
	}
	return false
}

// DefinitionURI composes a labware definition URI.
func DefinitionURI(namespace, loadName string, version int) string {
	return fmt.Sprintf("%s/%s/%d", namespace, loadName, version)
}

// LabwareDefinitionsByURI indexes definitions by URI.
type LabwareDefinitionsByURI map[string]LabwareDefinition

// LoadedModule is a module produced by a loadModule command.
type LoadedModule struct {
	ID           string       `json:"id"`
	Model        ModuleModel  `json:"model"`
	Location     SlotLocation `json:"location"`
	SerialNumber string       `json:"serialNumber"`
}

// LoadedLabware is a labware produced by a loadLabware command.
type LoadedLabware struct {
	ID            string
	LoadName      string
	DefinitionURI string
	Location      LabwareLocation
	DisplayName   string
}

type loadedLabwareWire struct {
	ID            string   `json:"id"`
	LoadName      string   `json:"loadName"`
	DefinitionURI string   `json:"definitionUri"`
	Location      Location `json:"location"`
	DisplayName   string   `json:"displayName,omitempty"`
}

// MarshalJSON encodes the labware with its schema-form location.
func (l LoadedLabware) MarshalJSON() ([]byte, error) {
	return json.Marshal(loadedLabwareWire{
		ID: l.ID, LoadName: l.LoadName, DefinitionURI: l.DefinitionURI,
		Location: Loc(l.Location), DisplayName: l.DisplayName,
	})
}

// UnmarshalJSON decodes the labware and its location variant.
func (l *LoadedLabware) UnmarshalJSON(data []byte) error {
	var w loadedLabwareWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*l = LoadedLabware{
		ID: w.ID, LoadName: w.LoadName, DefinitionURI: w.DefinitionURI,
		Location: w.Location.Get(), DisplayName: w.DisplayName,
	}
	return nil
}

// LoadedPipette is a pipette produced by a loadPipette command.
type LoadedPipette struct {
	ID          string `json:"id"`
	PipetteName string `json:"pipetteName"`
	Mount       Mount  `json:"mount"`
}

// Liquid describes a liquid referenced by loadLiquid commands.
type Liquid struct {
	ID           string `json:"id"`
	DisplayName  string `json:"displayName"`
	Description  string `json:"description"`
	DisplayColor string `json:"displayColor,omitempty"`
}

// RunRecord is the run-level snapshot of loaded entities.
type RunRecord struct {
	ID       string          `json:"id"`
	Labware  []LoadedLabware `json:"labware"`
	Modules  []LoadedModule  `json:"modules"`
	Pipettes []LoadedPipette `json:"pipettes"`
	Liquids  []Liquid        `json:"liquids,omitempty"`
}

// FindLabware returns the loaded labware with the given id.
func (r *RunRecord) FindLabware(id string) (LoadedLabware, bool) {
	if r == nil {
		return LoadedLabware{}, false
	}
	for _, lw := range r.Labware {
		if lw.ID == id {
			return lw, true
		}
	}
	return LoadedLabware{}, false
}

// FindModule returns the loaded module with the given id.
func (r *RunRecord) FindModule(id string) (LoadedModule, bool) {
	if r == nil {
		return LoadedModule{}, false
	}
	for _, m := range r.Modules {
		if m.ID == id {
			return m, true
		}
	}
	return LoadedModule{}, false
}

// FindPipette returns the loaded pipette with the given id.
func (r *RunRecord) FindPipette(id string) (LoadedPipette, bool) {
	if r == nil {
		return LoadedPipette{}, false
	}
	for _, p := range r.Pipettes {
		if p.ID == id {
			return p, true
		}
	}
	return LoadedPipette{}, false
}

// Analysis is a protocol analysis document: the command history plus the
// entities it loaded.
type Analysis struct {
	ID        string          `json:"id"`
	RobotType RobotType       `json:"robotType,omitempty"`
	Commands  []Command       `json:"commands"`
	Labware   []LoadedLabware `json:"labware,omitempty"`
	Modules   []LoadedModule  `json:"modules,omitempty"`
	Pipettes  []LoadedPipette `json:"pipettes,omitempty"`
	Liquids   []Liquid        `json:"liquids,omitempty"`
}

// RunRecord projects the analysis onto a run record.
func (a Analysis) RunRecord() *RunRecord {
	return &RunRecord{ID: a.ID, Labware: a.Labware, Modules: a.Modules, Pipettes: a.Pipettes, Liquids: a.Liquids}
}

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks the append.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows the append.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string     `json:"rule"`
	Severity Severity   `json:"severity"`
	Message  string     `json:"message"`
	Entity   EntityType `json:"entity"`
	EntityID string     `json:"entity_id"`
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation `json:"violations"`
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "append blocked by rules"
}

// ErrNotFound indicates the requested record does not exist.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}
