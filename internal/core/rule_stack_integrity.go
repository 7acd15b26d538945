package core

import (
	"context"
	"fmt"

	"deckhistory/internal/history"
	"deckhistory/pkg/domain"
)

// StackIntegrityRule warns about loadLabware commands that build impossible
// stacks: labware loaded onto itself, onto labware the run never loaded, into
// a cycle, or higher than maxStackHeight.
func StackIntegrityRule(maxStackHeight int) domain.Rule {
	if maxStackHeight < 1 {
		maxStackHeight = history.MaxStackHeight
	}
	return stackIntegrityRule{max: maxStackHeight}
}

type stackIntegrityRule struct {
	max int
}

func (stackIntegrityRule) Name() string { return "stack_integrity" }

func (r stackIntegrityRule) Evaluate(_ context.Context, view domain.HistoryView, appended []domain.Command) (domain.Result, error) {
	res := domain.Result{}

	// Latest load of each labware id decides what it sits on.
	parents := make(map[string]string)
	loaded := make(map[string]struct{})
	for _, c := range view.Commands() {
		p, _, ok := c.LoadLabware()
		if !ok {
			continue
		}
		id, ok := c.LoadedLabwareID()
		if !ok {
			continue
		}
		loaded[id] = struct{}{}
		if on, nested := p.Location.(domain.OnLabwareLocation); nested {
			parents[id] = on.LabwareID
		} else {
			delete(parents, id)
		}
	}

	for _, c := range appended {
		p, _, ok := c.LoadLabware()
		if !ok {
			continue
		}
		id, ok := c.LoadedLabwareID()
		if !ok {
			continue
		}
		on, nested := p.Location.(domain.OnLabwareLocation)
		if !nested {
			continue
		}
		if on.LabwareID == id {
			res.Violations = append(res.Violations, stackViolation(id, fmt.Sprintf("labware %s is loaded onto itself", id)))
			continue
		}
		if _, ok := loaded[on.LabwareID]; !ok {
			res.Violations = append(res.Violations, stackViolation(id, fmt.Sprintf("labware %s is loaded onto unknown labware %s", id, on.LabwareID)))
			continue
		}
		if msg := r.walk(id, parents); msg != "" {
			res.Violations = append(res.Violations, stackViolation(id, msg))
		}
	}
	return res, nil
}

// walk follows id down its stack and describes the first defect found.
func (r stackIntegrityRule) walk(id string, parents map[string]string) string {
	height := 1
	current := id
	for {
		below, nested := parents[current]
		if !nested {
			return ""
		}
		if below == id {
			return fmt.Sprintf("labware %s is part of a stacking cycle", id)
		}
		height++
		if height > r.max {
			return fmt.Sprintf("labware %s sits in a stack higher than %d", id, r.max)
		}
		current = below
	}
}

func stackViolation(labwareID, message string) domain.Violation {
	return domain.Violation{
		Rule:     "stack_integrity",
		Severity: domain.SeverityWarn,
		Message:  message,
		Entity:   domain.EntityLabware,
		EntityID: labwareID,
	}
}
