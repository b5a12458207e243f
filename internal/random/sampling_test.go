package random

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixed replays scripted draws.
type fixed struct {
	ints   []int
	floats []float64
}

func (f *fixed) IntN(n int) int {
	v := f.ints[0] % n
	f.ints = f.ints[1:]
	return v
}

func (f *fixed) Float64() float64 {
	v := f.floats[0]
	f.floats = f.floats[1:]
	return v
}

func TestExp_PositiveAndScaled(t *testing.T) {
	assert.InDelta(t, 0.0, Exp(&fixed{floats: []float64{0}}, 2), 1e-12)
	assert.InDelta(t, 0.6931471805599453, Exp(&fixed{floats: []float64{0.5}}, 1), 1e-12)
	assert.InDelta(t, 0.34657359027997264, Exp(&fixed{floats: []float64{0.5}}, 2), 1e-12)
}

func TestPositions_AllWhenKAtLeastN(t *testing.T) {
	r := &fixed{}
	assert.Equal(t, []int{0, 1, 2}, Positions(r, 3, 5))
	assert.Nil(t, Positions(r, 0, 1))
	assert.Nil(t, Positions(r, 3, 0))
}

func TestPositions_DistinctSorted(t *testing.T) {
	r := NewStreams(1).Get("positions")
	for trial := 0; trial < 100; trial++ {
		got := Positions(r, 10, 4)
		require.Len(t, got, 4)
		assert.True(t, slices.IsSorted(got))
		assert.Len(t, slices.Compact(slices.Clone(got)), 4)
		for _, p := range got {
			assert.True(t, p >= 0 && p < 10)
		}
	}
}

func TestPositions_FloydCollision(t *testing.T) {
	// n=5, k=2: j=3 draws 1, j=4 draws 1 again and takes 4
	got := Positions(&fixed{ints: []int{1, 1}}, 5, 2)
	assert.Equal(t, []int{1, 4}, got)
}
