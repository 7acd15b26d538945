package history

import "deckhistory/pkg/domain"

// FinalLabwareLocation returns where labwareID sits after every command in
// commands has executed. The latest of its loadLabware and moveLabware
// commands wins; nil means the labware was never placed.
func FinalLabwareLocation(labwareID string, commands []domain.Command) domain.LabwareLocation {
	lastMove, lastMoveIndex := FindLastAt(commands, func(c domain.Command) bool {
		p, ok := c.MoveLabware()
		return ok && p.LabwareID == labwareID
	})
	lastLoad, lastLoadIndex := FindLastAt(commands, func(c domain.Command) bool {
		id, ok := c.LoadedLabwareID()
		return ok && id == labwareID
	})

	if lastMoveIndex > lastLoadIndex {
		p, _ := lastMove.MoveLabware()
		return p.NewLocation
	} else if lastLoadIndex > lastMoveIndex {
		p, _, _ := lastLoad.LoadLabware()
		return p.Location
	}
	// Equal indices only happen when neither command exists.
	return nil
}
