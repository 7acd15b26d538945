package core

import "deckhistory/pkg/domain"

// NewDefaultRulesEngine builds a rules engine with the built-in history
// checks. maxStackHeight bounds stack walks; values below one select
// history.MaxStackHeight.
func NewDefaultRulesEngine(maxStackHeight int) *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(UniqueCommandIDsRule())
	engine.Register(StackIntegrityRule(maxStackHeight))
	engine.Register(MoveTargetsRule())
	return engine
}
