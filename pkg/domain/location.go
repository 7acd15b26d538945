package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// LocationKind identifies which variant a LabwareLocation holds.
type LocationKind string

// Location kinds mirror the protocol schema's location shapes.
const (
	LocationOffDeck         LocationKind = "offDeck"
	LocationSlot            LocationKind = "slot"
	LocationModule          LocationKind = "module"
	LocationLabware         LocationKind = "labware"
	LocationAddressableArea LocationKind = "addressableArea"
	LocationUnknown         LocationKind = "unknown"
)

// OffDeckValue is the wire literal for an off-deck location.
const OffDeckValue = "offDeck"

// LabwareLocation is a sealed sum type describing where a labware sits.
// A nil LabwareLocation means the location is unresolved.
type LabwareLocation interface {
	Kind() LocationKind
	isLabwareLocation()
}

// OffDeck places labware off the deck.
type OffDeck struct{}

// SlotLocation places labware directly in a deck slot.
type SlotLocation struct {
	SlotName string `json:"slotName"`
}

// ModuleLocation places labware on a loaded module.
type ModuleLocation struct {
	ModuleID string `json:"moduleId"`
}

// OnLabwareLocation nests labware on another labware (adapter or lid stacking).
type OnLabwareLocation struct {
	LabwareID string `json:"labwareId"`
}

// AddressableAreaLocation places labware in a named deck fixture position.
type AddressableAreaLocation struct {
	AddressableAreaName string `json:"addressableAreaName"`
}

// UnknownLocation keeps a location shape this package does not recognise.
type UnknownLocation struct {
	Raw json.RawMessage
}

func (OffDeck) Kind() LocationKind                 { return LocationOffDeck }
func (SlotLocation) Kind() LocationKind            { return LocationSlot }
func (ModuleLocation) Kind() LocationKind          { return LocationModule }
func (OnLabwareLocation) Kind() LocationKind       { return LocationLabware }
func (AddressableAreaLocation) Kind() LocationKind { return LocationAddressableArea }
func (UnknownLocation) Kind() LocationKind         { return LocationUnknown }

func (OffDeck) isLabwareLocation()                 {}
func (SlotLocation) isLabwareLocation()            {}
func (ModuleLocation) isLabwareLocation()          {}
func (OnLabwareLocation) isLabwareLocation()       {}
func (AddressableAreaLocation) isLabwareLocation() {}
func (UnknownLocation) isLabwareLocation()         {}

// MarshalJSON encodes the off-deck literal.
func (OffDeck) MarshalJSON() ([]byte, error) {
	return json.Marshal(OffDeckValue)
}

// MarshalJSON re-emits the raw payload, or null when nothing was captured.
func (u UnknownLocation) MarshalJSON() ([]byte, error) {
	if len(u.Raw) == 0 {
		return []byte("null"), nil
	}
	return u.Raw, nil
}

// DecodeLocation parses the protocol-schema JSON form of a labware location.
// null decodes to a nil location; shapes that match no variant decode to UnknownLocation.
func DecodeLocation(data []byte) (LabwareLocation, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, fmt.Errorf("decode location literal: %w", err)
		}
		if s == OffDeckValue {
			return OffDeck{}, nil
		}
		return UnknownLocation{Raw: append(json.RawMessage(nil), trimmed...)}, nil
	}
	var shape struct {
		SlotName            *string `json:"slotName"`
		ModuleID            *string `json:"moduleId"`
		LabwareID           *string `json:"labwareId"`
		AddressableAreaName *string `json:"addressableAreaName"`
	}
	if err := json.Unmarshal(trimmed, &shape); err != nil {
		return nil, fmt.Errorf("decode location: %w", err)
	}
	switch {
	case shape.ModuleID != nil:
		return ModuleLocation{ModuleID: *shape.ModuleID}, nil
	case shape.LabwareID != nil:
		return OnLabwareLocation{LabwareID: *shape.LabwareID}, nil
	case shape.AddressableAreaName != nil:
		return AddressableAreaLocation{AddressableAreaName: *shape.AddressableAreaName}, nil
	case shape.SlotName != nil:
		return SlotLocation{SlotName: *shape.SlotName}, nil
	default:
		return UnknownLocation{Raw: append(json.RawMessage(nil), trimmed...)}, nil
	}
}

// Location wraps a LabwareLocation so it can be embedded in JSON documents.
type Location struct {
	LabwareLocation
}

// MarshalJSON encodes the wrapped location, or null.
func (l Location) MarshalJSON() ([]byte, error) {
	if l.LabwareLocation == nil {
		return []byte("null"), nil
	}
	return json.Marshal(l.LabwareLocation)
}

// UnmarshalJSON decodes via DecodeLocation.
func (l *Location) UnmarshalJSON(data []byte) error {
	loc, err := DecodeLocation(data)
	if err != nil {
		return err
	}
	l.LabwareLocation = loc
	return nil
}

// Get returns the wrapped location.
func (l Location) Get() LabwareLocation { return l.LabwareLocation }

// Loc wraps a location for embedding.
func Loc(loc LabwareLocation) Location { return Location{LabwareLocation: loc} }

// IsOffDeck reports whether loc is the off-deck literal.
func IsOffDeck(loc LabwareLocation) bool {
	_, ok := loc.(OffDeck)
	return ok
}
