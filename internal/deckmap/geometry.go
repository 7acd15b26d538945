package deckmap

import "deckhistory/pkg/domain"

// Position is a slot's origin in deck coordinates, in millimetres.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Geometry resolves slot ids to deck positions.
type Geometry interface {
	PositionFromSlotID(slotID string) (Position, bool)
}

// SlotTable is a Geometry backed by a fixed slot map.
type SlotTable map[string]Position

// PositionFromSlotID implements Geometry.
func (t SlotTable) PositionFromSlotID(slotID string) (Position, bool) {
	p, ok := t[slotID]
	return p, ok
}

var ot2Slots = SlotTable{
	"1": {X: 0, Y: 0}, "2": {X: 132.5, Y: 0}, "3": {X: 265, Y: 0},
	"4": {X: 0, Y: 90.5}, "5": {X: 132.5, Y: 90.5}, "6": {X: 265, Y: 90.5},
	"7": {X: 0, Y: 181}, "8": {X: 132.5, Y: 181}, "9": {X: 265, Y: 181},
	"10": {X: 0, Y: 271.5}, "11": {X: 132.5, Y: 271.5}, "12": {X: 265, Y: 271.5},
}

var flexSlots = func() SlotTable {
	rows := map[string]float64{"D": 0, "C": 107, "B": 214, "A": 321}
	cols := map[string]float64{"1": 0, "2": 164, "3": 328, "4": 492}
	t := make(SlotTable, len(rows)*len(cols))
	for row, y := range rows {
		for col, x := range cols {
			t[row+col] = Position{X: x, Y: y}
		}
	}
	return t
}()

// StandardDeck returns the slot geometry of a robot type's standard deck.
// Unknown robot types fall back to the OT-2 deck.
func StandardDeck(robot domain.RobotType) Geometry {
	if robot == domain.RobotFlex {
		return flexSlots
	}
	return ot2Slots
}

// FixedTrashDefinition is the definition of the OT-2 fixed trash.
func FixedTrashDefinition() domain.LabwareDefinition {
	return domain.LabwareDefinition{
		Namespace: "opentrons",
		Version:   1,
		Parameters: domain.LabwareParameters{
			LoadName: "opentrons_1_trash_1100ml_fixed",
			Format:   "trash",
		},
		Metadata: domain.LabwareMetadata{
			DisplayName:        "Opentrons Fixed Trash",
			DisplayCategory:    "trash",
			DisplayVolumeUnits: "mL",
		},
	}
}
