package random

import (
	"math"
	"slices"
)

// Exp draws from the exponential distribution with the given rate.
func Exp(r Sampler, rate float64) float64 {
	return -math.Log(1-r.Float64()) / rate
}

// Positions returns min(k, n) distinct positions in [0, n), sorted
// ascending, chosen uniformly. When k >= n no draws are consumed.
func Positions(r Sampler, n, k int) []int {
	if k <= 0 || n <= 0 {
		return nil
	}
	if k >= n {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}

	// Floyd's algorithm: k draws, no rejection.
	chosen := make(map[int]struct{}, k)
	out := make([]int, 0, k)
	for j := n - k; j < n; j++ {
		t := r.IntN(j + 1)
		if _, dup := chosen[t]; dup {
			t = j
		}
		chosen[t] = struct{}{}
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}
