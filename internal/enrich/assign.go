package enrich

import (
	"math"
	"math/rand/v2"
	"slices"
)

// IDSet is a set of product identifiers.
type IDSet map[string]struct{}

// Has reports whether id is in the set. A nil set contains nothing.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in lexical order.
func (s IDSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Assign draws floor(len(ids) * fraction) distinct identifiers from ids
// without replacement. The draw depends only on the order of ids, the
// fraction, and the seed, so repeated calls agree. Treatment params reject
// fractions outside [0,1] before any effect runs; for direct callers they
// are clamped.
func Assign(ids []string, fraction float64, seed int64) IDSet {
	n := sampleSize(len(ids), fraction)
	out := make(IDSet, n)
	if n == 0 {
		return out
	}

	pool := slices.Clone(ids)
	rng := newRand(seed)
	for i := range n {
		j := i + rng.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
		out[pool[i]] = struct{}{}
	}
	return out
}

func sampleSize(population int, fraction float64) int {
	if population == 0 || math.IsNaN(fraction) || fraction <= 0 {
		return 0
	}
	fraction = min(fraction, 1)
	return min(int(math.Floor(float64(population)*fraction)), population)
}

func newRand(seed int64) *rand.Rand {
	s := uint64(seed)
	return rand.New(rand.NewPCG(s, s^0x9e3779b97f4a7c15))
}
