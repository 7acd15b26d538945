package domain

import "context"

// HistoryView provides read-only access to a run's command history for rule evaluation.
type HistoryView interface {
	RunID() string
	Commands() []Command
}

// Rule defines an evaluation executed before commands are appended to a history.
// appended holds the commands under evaluation; they are already the tail of view.Commands().
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, view HistoryView, appended []Command) (Result, error)
}

// RulesEngine orchestrates rule evaluation.
type RulesEngine struct {
	rules []Rule
}

// NewRulesEngine constructs an engine instance.
func NewRulesEngine() *RulesEngine {
	return &RulesEngine{}
}

// Register appends a rule to the engine.
func (e *RulesEngine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Rules returns the registered rules in evaluation order.
func (e *RulesEngine) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Evaluate executes all registered rules and aggregates their results.
func (e *RulesEngine) Evaluate(ctx context.Context, view HistoryView, appended []Command) (Result, error) {
	var combined Result
	for _, rule := range e.rules {
		res, err := rule.Evaluate(ctx, view, appended)
		if err != nil {
			return Result{}, err
		}
		combined.Merge(res)
	}
	return combined, nil
}

// StaticHistory is a HistoryView over a fixed command slice.
type StaticHistory struct {
	ID   string
	List []Command
}

// RunID implements HistoryView.
func (h StaticHistory) RunID() string { return h.ID }

// Commands implements HistoryView.
func (h StaticHistory) Commands() []Command { return h.List }
