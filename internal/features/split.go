package features

import (
	"math"
	"math/rand/v2"
)

// TrainTestSplit shuffles the indices 0..n-1 with a seeded generator and
// returns ceil(n*testFraction) of them as the test set.
func TrainTestSplit(n int, testFraction float64, seed uint64) (train, test []int) {
	idx := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)).Perm(n)
	nTest := int(math.Ceil(float64(n) * testFraction))
	nTest = min(max(nTest, 0), n)
	return idx[nTest:], idx[:nTest]
}

// Select gathers the values at idx.
func Select[T any](values []T, idx []int) []T {
	out := make([]T, len(idx))
	for i, j := range idx {
		out[i] = values[j]
	}
	return out
}
