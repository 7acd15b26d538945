package core

import (
	"context"
	"strings"
	"testing"

	"deckhistory/internal/historytest"
	"deckhistory/pkg/domain"
)

func evaluate(t *testing.T, rule domain.Rule, existing []domain.Command, appended ...domain.Command) domain.Result {
	t.Helper()
	all := append(append([]domain.Command(nil), existing...), appended...)
	res, err := rule.Evaluate(context.Background(), domain.StaticHistory{ID: "run", List: all}, appended)
	if err != nil {
		t.Fatalf("evaluate %s: %v", rule.Name(), err)
	}
	return res
}

func TestDefaultRulesEngineRegistersBuiltins(t *testing.T) {
	rules := NewDefaultRulesEngine(0).Rules()
	var names []string
	for _, r := range rules {
		names = append(names, r.Name())
	}
	if strings.Join(names, ",") != "unique_command_ids,stack_integrity,move_targets" {
		t.Fatalf("unexpected rule order: %v", names)
	}
}

func TestUniqueCommandIDsRule(t *testing.T) {
	rule := UniqueCommandIDsRule()
	existing := []domain.Command{historytest.LoadLabware("c1", "a", historytest.Slot("1"), plate)}

	if res := evaluate(t, rule, existing, historytest.MoveLabware("c2", "a", historytest.Slot("2"))); len(res.Violations) != 0 {
		t.Fatalf("expected no violations, got %+v", res.Violations)
	}

	res := evaluate(t, rule, existing,
		historytest.MoveLabware("c1", "a", historytest.Slot("2")),
		historytest.MoveLabware("c3", "a", historytest.Slot("3")),
		historytest.MoveLabware("c3", "a", historytest.Slot("4")),
		historytest.MoveLabware("", "a", historytest.Slot("5")),
	)
	if len(res.Violations) != 3 {
		t.Fatalf("expected 3 violations, got %+v", res.Violations)
	}
	for _, v := range res.Violations {
		if v.Severity != domain.SeverityBlock || v.Entity != domain.EntityCommand {
			t.Fatalf("unexpected violation shape: %+v", v)
		}
	}
}

func TestStackIntegrityRule(t *testing.T) {
	rule := StackIntegrityRule(3)
	base := []domain.Command{historytest.LoadLabware("c1", "a", historytest.Slot("1"), plate)}

	cases := []struct {
		name     string
		existing []domain.Command
		appended []domain.Command
		want     string
	}{
		{
			name:     "valid nesting",
			existing: base,
			appended: []domain.Command{historytest.LoadLabware("c2", "b", historytest.On("a"), plate)},
		},
		{
			name:     "self load",
			appended: []domain.Command{historytest.LoadLabware("c1", "a", historytest.On("a"), plate)},
			want:     "onto itself",
		},
		{
			name:     "unknown parent",
			existing: base,
			appended: []domain.Command{historytest.LoadLabware("c2", "b", historytest.On("ghost"), plate)},
			want:     "unknown labware ghost",
		},
		{
			name: "cycle",
			existing: []domain.Command{
				historytest.LoadLabware("c1", "a", historytest.On("b"), plate),
			},
			appended: []domain.Command{historytest.LoadLabware("c2", "b", historytest.On("a"), plate)},
			want:     "cycle",
		},
		{
			name: "too tall",
			existing: []domain.Command{
				historytest.LoadLabware("c1", "a", historytest.Slot("1"), plate),
				historytest.LoadLabware("c2", "b", historytest.On("a"), plate),
				historytest.LoadLabware("c3", "c", historytest.On("b"), plate),
			},
			appended: []domain.Command{historytest.LoadLabware("c4", "d", historytest.On("c"), plate)},
			want:     "higher than 3",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := evaluate(t, rule, tc.existing, tc.appended...)
			if tc.want == "" {
				if len(res.Violations) != 0 {
					t.Fatalf("expected no violations, got %+v", res.Violations)
				}
				return
			}
			if len(res.Violations) != 1 {
				t.Fatalf("expected one violation, got %+v", res.Violations)
			}
			v := res.Violations[0]
			if v.Severity != domain.SeverityWarn || !strings.Contains(v.Message, tc.want) {
				t.Fatalf("unexpected violation: %+v", v)
			}
		})
	}
}

func TestMoveTargetsRule(t *testing.T) {
	rule := MoveTargetsRule()
	existing := []domain.Command{
		historytest.LoadLabware("c1", "a", historytest.Slot("1"), plate),
		historytest.LoadLabware("c2", "b", historytest.Slot("2"), plate),
	}
	res := evaluate(t, rule, existing,
		historytest.MoveLabware("c3", "a", historytest.On("b")),
		historytest.MoveLabware("c4", "ghost", historytest.Slot("3")),
		historytest.MoveLabware("c5", "a", historytest.On("a")),
		historytest.MoveLabware("c6", "b", historytest.On("nowhere")),
	)
	got := map[string]string{}
	for _, v := range res.Violations {
		got[v.EntityID] = v.Message
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 violations, got %+v", res.Violations)
	}
	if !strings.Contains(got["c4"], "before it is loaded") ||
		!strings.Contains(got["c5"], "onto itself") ||
		!strings.Contains(got["c6"], "unknown labware nowhere") {
		t.Fatalf("unexpected messages: %v", got)
	}
}

func TestMoveTargetsRuleIgnoresExistingMoves(t *testing.T) {
	existing := []domain.Command{historytest.MoveLabware("c1", "ghost", historytest.Slot("3"))}
	res := evaluate(t, MoveTargetsRule(), existing, historytest.LoadLabware("c2", "ghost", historytest.Slot("1"), plate))
	if len(res.Violations) != 0 {
		t.Fatalf("expected earlier moves to be ignored, got %+v", res.Violations)
	}
}
