package core

import (
	"context"
	"fmt"

	"deckhistory/pkg/domain"
)

// UniqueCommandIDsRule blocks appends that would give two commands of a run
// the same id, or append a command without one.
func UniqueCommandIDsRule() domain.Rule {
	return uniqueCommandIDsRule{}
}

type uniqueCommandIDsRule struct{}

func (uniqueCommandIDsRule) Name() string { return "unique_command_ids" }

func (uniqueCommandIDsRule) Evaluate(_ context.Context, view domain.HistoryView, appended []domain.Command) (domain.Result, error) {
	res := domain.Result{}
	all := view.Commands()
	var existing []domain.Command
	if len(appended) <= len(all) {
		existing = all[:len(all)-len(appended)]
	}

	seen := make(map[string]struct{}, len(all))
	for _, c := range existing {
		seen[c.ID] = struct{}{}
	}
	for _, c := range appended {
		if c.ID == "" {
			res.Violations = append(res.Violations, commandIDViolation(c.ID, fmt.Sprintf("%s command has no id", c.CommandType)))
			continue
		}
		if _, dup := seen[c.ID]; dup {
			res.Violations = append(res.Violations, commandIDViolation(c.ID, fmt.Sprintf("command id %s already used in run %s", c.ID, view.RunID())))
			continue
		}
		seen[c.ID] = struct{}{}
	}
	return res, nil
}

func commandIDViolation(commandID, message string) domain.Violation {
	return domain.Violation{
		Rule:     "unique_command_ids",
		Severity: domain.SeverityBlock,
		Message:  message,
		Entity:   domain.EntityCommand,
		EntityID: commandID,
	}
}
