package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/simkernel/internal/index"
)

type scores struct {
	typ    *EntityType
	score  *Property[float64]
	bucket *Property[int]
}

func newScores(t *testing.T) scores {
	t.Helper()
	et := NewEntityType("Sample")
	score, err := DefineProperty(et, "Score", WithDefault(0.0))
	require.NoError(t, err)
	bucket, err := DefineProperty(et, "Bucket", WithDefault(0))
	require.NoError(t, err)
	return scores{typ: et, score: score, bucket: bucket}
}

func TestSet_RejectsNaN(t *testing.T) {
	s := newScores(t)
	plain := newTestContext()
	indexed := newTestContext()
	require.NoError(t, indexed.EnableIndex(s.score))
	require.NoError(t, indexed.EnableMultiIndex(s.score, s.bucket))

	for _, c := range []*Context{plain, indexed} {
		changes := 0
		OnChange(c, s.score, func(*Context, PropertyChange[float64]) error {
			changes++
			return nil
		})
		e := mustCreate(t, c, s.typ)

		err := s.score.Set(c, e, math.NaN())
		assert.Equal(t, ErrCodeInvalidProperty, errorCode(err))
		assert.Zero(t, changes, "rejected write emits nothing")
		assert.Equal(t, 0.0, mustGet(t, c, s.score, e))

		require.NoError(t, s.score.Set(c, e, 1.5))
		assert.Zero(t, c.Count(Where(s.typ, Eq(s.score, math.NaN()), Eq(s.bucket, 0))))
		assert.Equal(t, 1, c.Count(Where(s.typ, Eq(s.score, 1.5), Eq(s.bucket, 0))))
	}

	assert.Equal(t, index.Stats{Enabled: true, Buckets: 1, Rows: 1}, indexed.IndexStats(s.score))
	assert.Equal(t, map[string]uint64{"1.5": 1}, indexed.IndexBuckets(s.score))
	assert.Equal(t, map[string]uint64{"[0,1.5]": 1}, indexed.MultiIndexBuckets(s.bucket, s.score))
}

func TestSet_InfinityIsAValue(t *testing.T) {
	s := newScores(t)
	c := newTestContext()
	require.NoError(t, c.EnableIndex(s.score))
	e := mustCreate(t, c, s.typ)

	require.NoError(t, s.score.Set(c, e, math.Inf(1)))
	require.NoError(t, s.score.Set(c, e, 2))
	assert.Equal(t, index.Stats{Enabled: true, Buckets: 1, Rows: 1}, c.IndexStats(s.score))
}

func TestCreate_RejectsNaN(t *testing.T) {
	s := newScores(t)
	c := newTestContext()

	_, err := c.Create(s.typ, With(s.score, math.NaN()))
	assert.Equal(t, ErrCodeInvalidProperty, errorCode(err))
	assert.Zero(t, c.Population(s.typ), "no row is allocated")
}

func TestDefineProperty_RejectsNaNDefault(t *testing.T) {
	et := NewEntityType("Sample")
	_, err := DefineProperty(et, "Score", WithDefault(math.NaN()))
	assert.Equal(t, ErrCodeInvalidProperty, errorCode(err))

	type pair struct{ A, B float64 }
	_, err = DefineProperty(et, "Pair", WithDefault(pair{A: 1, B: math.NaN()}))
	assert.Equal(t, ErrCodeInvalidProperty, errorCode(err))
}

func TestWithInitializer_NaNIsNotCached(t *testing.T) {
	et := NewEntityType("Sample")
	weight := MustDefineProperty(et, "Weight", WithInitializer(func(*Context, EntityID) float64 {
		return math.NaN()
	}))
	c := newTestContext()
	e := mustCreate(t, c, et)
	require.NoError(t, c.EnableIndex(weight))

	_, err := weight.Get(c, e)
	assert.Equal(t, ErrCodeInvalidProperty, errorCode(err))
	assert.Equal(t, index.Stats{Enabled: true}, c.IndexStats(weight))
	assert.Zero(t, c.Count(Where(et, Eq(weight, math.NaN()))))

	require.NoError(t, weight.Set(c, e, 3))
	assert.Equal(t, 3.0, mustGet(t, c, weight, e))
	assert.Equal(t, map[string]uint64{"3": 1}, c.IndexBuckets(weight))
}

func TestDerived_NaNLeavesIndex(t *testing.T) {
	s := newScores(t)
	ratio := MustDefineDerived(s.typ, "Ratio", []PropertyRef{s.score, s.bucket}, func(c *Context, e EntityID) (float64, error) {
		score, err := s.score.Get(c, e)
		if err != nil {
			return 0, err
		}
		bucket, err := s.bucket.Get(c, e)
		if err != nil {
			return 0, err
		}
		return score / float64(bucket), nil
	})
	c := newTestContext()
	e := mustCreate(t, c, s.typ)
	require.NoError(t, c.EnableIndex(ratio))

	// 0/0
	_, err := ratio.Get(c, e)
	assert.Equal(t, ErrCodeInvalidProperty, errorCode(err))
	assert.Empty(t, c.IndexBuckets(ratio))

	require.NoError(t, s.bucket.Set(c, e, 2))
	assert.Equal(t, map[string]uint64{"0": 1}, c.IndexBuckets(ratio))

	err = s.bucket.Set(c, e, 0)
	assert.Equal(t, ErrCodeInvalidProperty, errorCode(err))
	assert.Empty(t, c.IndexBuckets(ratio), "row leaves the index when the value becomes NaN")
	assert.Zero(t, c.Count(Where(s.typ, Eq(ratio, math.NaN()))))
	assert.Zero(t, c.Count(Where(s.typ, Eq(ratio, 0.0))))
}
