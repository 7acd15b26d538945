// Package history answers point-in-time questions about labware by replaying
// an ordered, immutable protocol command history. Every query recomputes from
// the full history; nothing is cached between calls.
package history

// FindLastAt returns the last element of seq satisfying pred together with its
// index. When nothing matches it returns the zero value and -1.
func FindLastAt[T any](seq []T, pred func(T) bool) (T, int) {
	for i := len(seq) - 1; i >= 0; i-- {
		if pred(seq[i]) {
			return seq[i], i
		}
	}
	var zero T
	return zero, -1
}
