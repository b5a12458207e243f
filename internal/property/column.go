// Package property implements dense per-(entity type, property) columns.
//
// A cell is in one of three states. Uninitialized cells have never been
// written. Defaulted cells hold a value computed lazily from a registered
// default; no change event was emitted for them. Set cells were written
// explicitly, either at creation or by a later set.
package property

import "fmt"

// State is the lifecycle state of one cell.
type State uint8

const (
	Uninitialized State = iota
	Defaulted
	Set
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Defaulted:
		return "defaulted"
	case Set:
		return "set"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Column stores the cells of one property for every row of one entity type.
// Column length tracks the entity registry's row count through Grow.
type Column[T any] struct {
	values []T
	states []State
}

// NewColumn returns a column with n uninitialized rows.
func NewColumn[T any](n int) *Column[T] {
	c := &Column[T]{}
	c.Grow(n)
	return c
}

// Grow extends the column to n rows. Shrinking is not supported.
func (c *Column[T]) Grow(n int) {
	if n <= len(c.values) {
		return
	}
	var zero T
	for len(c.values) < n {
		c.values = append(c.values, zero)
		c.states = append(c.states, Uninitialized)
	}
}

// Len returns the number of rows.
func (c *Column[T]) Len() int {
	return len(c.values)
}

// Load returns the cell at row and its state. The value is the zero value
// when the state is Uninitialized.
func (c *Column[T]) Load(row int) (T, State) {
	return c.values[row], c.states[row]
}

// State returns the state of the cell at row.
func (c *Column[T]) State(row int) State {
	return c.states[row]
}

// Store writes v at row with state st and returns the previous cell.
func (c *Column[T]) Store(row int, v T, st State) (T, State) {
	prev, prevState := c.values[row], c.states[row]
	c.values[row] = v
	c.states[row] = st
	return prev, prevState
}

