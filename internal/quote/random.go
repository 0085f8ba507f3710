package quote

import "math/rand/v2"

// IndexFunc returns an index in [0, n)
type IndexFunc func(n int) int

var defaultIndex IndexFunc = rand.IntN

// pickRandom selects one element uniformly; every index including the
// last is reachable.
func pickRandom[T any](items []T, index IndexFunc) (T, bool) {
	var zero T
	if len(items) == 0 {
		return zero, false
	}
	return items[index(len(items))], true
}
