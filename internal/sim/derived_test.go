package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/simkernel/internal/query"
)

type aged struct {
	people
	senior  *Derived[bool]
	bracket *Derived[string]
}

func newAged(t *testing.T) aged {
	t.Helper()
	p := newPeople(t)
	senior, err := DefineDerived(p.typ, "Senior", []PropertyRef{p.age}, func(c *Context, e EntityID) (bool, error) {
		age, err := p.age.Get(c, e)
		return age >= 65, err
	})
	require.NoError(t, err)
	bracket, err := DefineDerived(p.typ, "Bracket", []PropertyRef{senior, p.region}, func(c *Context, e EntityID) (string, error) {
		s, err := senior.Get(c, e)
		if err != nil {
			return "", err
		}
		r, err := p.region.Get(c, e)
		if err != nil {
			return "", err
		}
		if s {
			return r + "/senior", nil
		}
		return r + "/adult", nil
	})
	require.NoError(t, err)
	return aged{people: p, senior: senior, bracket: bracket}
}

func TestDerived_Get(t *testing.T) {
	a := newAged(t)
	c := newTestContext()
	young := mustCreate(t, c, a.typ, With(a.age, 30))
	old := mustCreate(t, c, a.typ, With(a.age, 70), With(a.region, "south"))

	assert.False(t, mustGet[bool](t, c, a.senior, young))
	assert.True(t, mustGet[bool](t, c, a.senior, old))
	assert.Equal(t, "north/adult", mustGet[string](t, c, a.bracket, young))
	assert.Equal(t, "south/senior", mustGet[string](t, c, a.bracket, old))
	assert.True(t, a.senior.Derived())
}

func TestDerived_ChangeFollowsDependencyChange(t *testing.T) {
	a := newAged(t)
	c := newTestContext()
	e := mustCreate(t, c, a.typ, With(a.age, 64))

	var log []string
	OnChange(c, a.age, func(*Context, PropertyChange[int]) error {
		log = append(log, "age")
		return nil
	})
	var got []PropertyChange[bool]
	OnChange(c, a.senior, func(_ *Context, ev PropertyChange[bool]) error {
		log = append(log, "senior")
		got = append(got, ev)
		return nil
	})

	require.NoError(t, a.age.Set(c, e, 65))
	require.NoError(t, a.age.Set(c, e, 66))

	assert.Equal(t, []string{"age", "senior", "age", "senior"}, log)
	assert.Equal(t, []PropertyChange[bool]{
		{Entity: e, Previous: false, Current: true, HadPrevious: true},
		{Entity: e, Previous: true, Current: true, HadPrevious: true},
	}, got)
}

func TestDerived_LateSubscriberSeesFirstChange(t *testing.T) {
	a := newAged(t)
	c := newTestContext()
	e := mustCreate(t, c, a.typ, With(a.age, 10))

	// no subscriber yet: nothing is tracked
	require.NoError(t, a.age.Set(c, e, 70))

	var got []PropertyChange[string]
	OnChange(c, a.bracket, func(_ *Context, ev PropertyChange[string]) error {
		got = append(got, ev)
		return nil
	})

	require.NoError(t, a.region.Set(c, e, "east"))
	require.NoError(t, a.age.Set(c, e, 20))

	assert.Equal(t, []PropertyChange[string]{
		{Entity: e, Previous: "north/senior", Current: "east/senior", HadPrevious: true},
		{Entity: e, Previous: "east/senior", Current: "east/adult", HadPrevious: true},
	}, got)
}

func TestDerived_Index(t *testing.T) {
	a := newAged(t)
	c := newTestContext()
	for i := 0; i < 10; i++ {
		mustCreate(t, c, a.typ, With(a.age, 60+i))
	}
	require.NoError(t, c.EnableIndex(a.senior))

	q := Where(a.typ, Eq(a.senior, true))
	strategy, idx := c.Explain(q)
	assert.Equal(t, query.SingleIndex, strategy)
	assert.Equal(t, "Senior", idx)
	assert.Equal(t, []int{5, 6, 7, 8, 9}, collect(c, q))

	require.NoError(t, a.age.Set(c, a.typ.Entity(0), 80))
	require.NoError(t, a.age.Set(c, a.typ.Entity(9), 18))
	assert.Equal(t, []int{0, 5, 6, 7, 8}, collect(c, q))

	// created after the index was enabled
	mustCreate(t, c, a.typ, With(a.age, 99))
	assert.Equal(t, 6, c.Count(q))
	assert.Equal(t, map[string]uint64{"true": 6, "false": 5}, c.IndexBuckets(a.senior))
}

func TestDerived_InMultiIndex(t *testing.T) {
	a := newAged(t)
	c := newTestContext()
	require.NoError(t, c.EnableMultiIndex(a.senior, a.status))
	for i := 0; i < 6; i++ {
		mustCreate(t, c, a.typ, With(a.age, 60+i))
	}

	q := Where(a.typ, Eq(a.status, "S"), Eq(a.senior, true))
	strategy, _ := c.Explain(q)
	assert.Equal(t, query.MultiIndex, strategy)
	assert.Equal(t, []int{5}, collect(c, q))

	require.NoError(t, a.age.Set(c, a.typ.Entity(2), 90))
	assert.Equal(t, []int{2, 5}, collect(c, q))

	require.NoError(t, a.status.Set(c, a.typ.Entity(5), "I"))
	assert.Equal(t, []int{2}, collect(c, q))
}

func TestDefineDerived_Invalid(t *testing.T) {
	p := newPeople(t)
	place := NewEntityType("Place")
	size := MustDefineProperty(place, "Size", WithDefault(0))
	compute := func(*Context, EntityID) (int, error) { return 0, nil }

	_, err := DefineDerived(p.typ, "None", nil, compute)
	assert.Equal(t, ErrCodeInvalidProperty, errorCode(err))

	_, err = DefineDerived(p.typ, "Foreign", []PropertyRef{size}, compute)
	assert.Equal(t, ErrCodeInvalidProperty, errorCode(err))

	_, err = DefineDerived(p.typ, "Age", []PropertyRef{p.status}, compute)
	assert.True(t, IsDuplicateRegistration(err))

	assert.Panics(t, func() { MustDefineDerived(p.typ, "None", nil, compute) })
}
