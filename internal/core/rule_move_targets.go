package core

import (
	"context"
	"fmt"

	"deckhistory/pkg/domain"
)

// MoveTargetsRule warns about moveLabware commands that move labware the run
// has not loaded yet, or that place labware onto itself or onto unknown
// labware.
func MoveTargetsRule() domain.Rule {
	return moveTargetsRule{}
}

type moveTargetsRule struct{}

func (moveTargetsRule) Name() string { return "move_targets" }

func (moveTargetsRule) Evaluate(_ context.Context, view domain.HistoryView, appended []domain.Command) (domain.Result, error) {
	res := domain.Result{}
	all := view.Commands()
	start := len(all) - len(appended)
	if start < 0 {
		start = 0
	}

	loaded := make(map[string]struct{})
	for i, c := range all {
		if id, ok := c.LoadedLabwareID(); ok {
			loaded[id] = struct{}{}
			continue
		}
		p, ok := c.MoveLabware()
		if !ok || i < start {
			continue
		}
		if _, ok := loaded[p.LabwareID]; !ok {
			res.Violations = append(res.Violations, moveViolation(c.ID, fmt.Sprintf("command %s moves labware %s before it is loaded", c.ID, p.LabwareID)))
			continue
		}
		on, nested := p.NewLocation.(domain.OnLabwareLocation)
		if !nested {
			continue
		}
		if on.LabwareID == p.LabwareID {
			res.Violations = append(res.Violations, moveViolation(c.ID, fmt.Sprintf("command %s moves labware %s onto itself", c.ID, p.LabwareID)))
		} else if _, ok := loaded[on.LabwareID]; !ok {
			res.Violations = append(res.Violations, moveViolation(c.ID, fmt.Sprintf("command %s moves labware %s onto unknown labware %s", c.ID, p.LabwareID, on.LabwareID)))
		}
	}
	return res, nil
}

func moveViolation(commandID, message string) domain.Violation {
	return domain.Violation{
		Rule:     "move_targets",
		Severity: domain.SeverityWarn,
		Message:  message,
		Entity:   domain.EntityCommand,
		EntityID: commandID,
	}
}
