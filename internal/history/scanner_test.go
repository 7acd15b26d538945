package history

import "testing"

func TestFindLastAtReturnsLastMatch(t *testing.T) {
	seq := []string{"a", "b", "a"}
	got, idx := FindLastAt(seq, func(s string) bool { return s == "a" })
	if got != "a" || idx != 2 {
		t.Fatalf("expected last a at 2, got %q at %d", got, idx)
	}
}

func TestFindLastAtNoMatch(t *testing.T) {
	got, idx := FindLastAt([]int{1, 2, 3}, func(n int) bool { return n > 10 })
	if got != 0 || idx != -1 {
		t.Fatalf("expected zero value and -1, got %d at %d", got, idx)
	}
	if _, idx := FindLastAt[int](nil, func(int) bool { return true }); idx != -1 {
		t.Fatalf("expected -1 for empty input, got %d", idx)
	}
}
