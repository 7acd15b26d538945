package history

import "deckhistory/pkg/domain"

// FinalMoveToAddressableAreaCommand returns the most recent
// moveToAddressableArea or moveToAddressableAreaForDropTip command, or nil.
func FinalMoveToAddressableAreaCommand(commands []domain.Command) *domain.Command {
	cmd, idx := FindLastAt(commands, domain.Command.IsAddressableAreaMove)
	if idx < 0 {
		return nil
	}
	return &cmd
}
