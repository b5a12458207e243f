package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/simkernel/internal/value"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

func (h *Harness) evaluate(a Assertion, trace []string) error {
	switch a.Type {
	case AssertCount:
		return h.assertCount(a)
	case AssertValue:
		return h.assertValue(a)
	case AssertTraceOrder:
		return assertTraceOrder(trace, a)
	case AssertTraceCount:
		return assertTraceCount(trace, a)
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
}

// assertCount checks the number of entities matching a conjunction.
func (h *Harness) assertCount(a Assertion) error {
	q, err := h.query(a.EntityType, a.Where)
	if err != nil {
		return err
	}
	want, _ := a.Expect.(int)
	if got := h.ctx.Count(q); got != want {
		return &AssertionError{
			Type:     AssertCount,
			Expected: fmt.Sprintf("%d entities matching %s", want, q),
			Actual:   fmt.Sprintf("%d", got),
		}
	}
	return nil
}

// assertValue compares canonical text after converting the expected value
// to the property's type, so an expected 3 matches a float property.
func (h *Harness) assertValue(a Assertion) error {
	t, e, err := h.entity(a.Entity)
	if err != nil {
		return err
	}
	b, err := t.property(a.Property)
	if err != nil {
		return err
	}
	want, err := b.format(a.Expect)
	if err != nil {
		return err
	}
	v, err := b.get(h.ctx, e)
	if err != nil {
		return err
	}
	if got := value.MustFormat(v); got != want {
		return &AssertionError{
			Type:     AssertValue,
			Expected: fmt.Sprintf("%s.%s = %s", a.Entity, a.Property, want),
			Actual:   got,
		}
	}
	return nil
}

// assertTraceOrder checks that plans ran in the given relative order.
// Other lines may appear in between.
func assertTraceOrder(trace []string, a Assertion) error {
	pos := 0
	var seen []string
	for _, line := range trace {
		label, ok := planLabel(line)
		if !ok {
			continue
		}
		seen = append(seen, label)
		if pos < len(a.Labels) && label == a.Labels[pos] {
			pos++
		}
	}
	if pos < len(a.Labels) {
		return &AssertionError{
			Type:     AssertTraceOrder,
			Expected: strings.Join(a.Labels, " -> "),
			Actual:   strings.Join(seen, " -> "),
		}
	}
	return nil
}

// planLabel extracts the label of a "t=... plan <label> [phase]" line.
func planLabel(line string) (string, bool) {
	_, rest, ok := strings.Cut(line, " plan ")
	if !ok {
		return "", false
	}
	label, _, ok := strings.Cut(rest, " [")
	return label, ok
}

// assertTraceCount checks how many trace lines contain a substring.
func assertTraceCount(trace []string, a Assertion) error {
	got := 0
	for _, line := range trace {
		if strings.Contains(line, a.Contains) {
			got++
		}
	}
	if got != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d lines containing %q", a.Count, a.Contains),
			Actual:   fmt.Sprintf("%d", got),
		}
	}
	return nil
}
