package sim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/simkernel/internal/testutil"
)

type people struct {
	typ    *EntityType
	age    *Property[int]
	status *Property[string]
	region *Property[string]
}

// newPeople defines a Person type with a required age, a status that
// defaults to "S" and a region that defaults to "north".
func newPeople(t *testing.T) people {
	t.Helper()
	et := NewEntityType("Person")
	age, err := DefineProperty[int](et, "Age")
	require.NoError(t, err)
	status, err := DefineProperty(et, "Status", WithDefault("S"))
	require.NoError(t, err)
	region, err := DefineProperty(et, "Region", WithDefault("north"))
	require.NoError(t, err)
	return people{typ: et, age: age, status: status, region: region}
}

func newTestContext(opts ...Option) *Context {
	quiet := testutil.QuietLogger()
	return New(append([]Option{WithLogger(quiet)}, opts...)...)
}

func mustCreate(t *testing.T, c *Context, et *EntityType, inits ...Init) EntityID {
	t.Helper()
	e, err := c.Create(et, inits...)
	require.NoError(t, err)
	return e
}

func mustGet[T comparable](t *testing.T, c *Context, p TypedProperty[T], e EntityID) T {
	t.Helper()
	v, err := p.Get(c, e)
	require.NoError(t, err)
	return v
}

func errorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func collect(c *Context, q Query) []int {
	var rows []int
	for e := range c.Iter(q) {
		rows = append(rows, e.Row())
	}
	return rows
}
