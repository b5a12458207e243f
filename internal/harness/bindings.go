package harness

import (
	"fmt"
	"math"

	"github.com/roach88/simkernel/internal/sim"
	"github.com/roach88/simkernel/internal/value"
)

// binding adapts a typed property to the untyped values decoded from YAML.
type binding interface {
	ref() sim.PropertyRef
	eq(v any) (sim.Term, error)
	with(v any) (sim.Init, error)
	set(c *sim.Context, e sim.EntityID, v any) error
	get(c *sim.Context, e sim.EntityID) (any, error)
	format(v any) (string, error)
}

type definer func(et *sim.EntityType, name string, def any) (binding, error)

var kinds = map[string]definer{
	"int":    define(toInt),
	"float":  define(toFloat),
	"string": define(toString),
	"bool":   define(toBool),
}

func define[T comparable](conv func(any) (T, error)) definer {
	return func(et *sim.EntityType, name string, def any) (binding, error) {
		var opts []sim.PropertyOption[T]
		if def != nil {
			v, err := conv(def)
			if err != nil {
				return nil, fmt.Errorf("default of %s.%s: %w", et.Name(), name, err)
			}
			opts = append(opts, sim.WithDefault(v))
		}
		p, err := sim.DefineProperty(et, name, opts...)
		if err != nil {
			return nil, err
		}
		return &typedBinding[T]{p: p, conv: conv}, nil
	}
}

type typedBinding[T comparable] struct {
	p    *sim.Property[T]
	conv func(any) (T, error)
}

func (b *typedBinding[T]) ref() sim.PropertyRef { return b.p }

func (b *typedBinding[T]) convert(v any) (T, error) {
	t, err := b.conv(v)
	if err != nil {
		return t, fmt.Errorf("%s: %w", b.p, err)
	}
	return t, nil
}

func (b *typedBinding[T]) eq(v any) (sim.Term, error) {
	t, err := b.convert(v)
	if err != nil {
		return sim.Term{}, err
	}
	return sim.Eq(b.p, t), nil
}

func (b *typedBinding[T]) with(v any) (sim.Init, error) {
	t, err := b.convert(v)
	if err != nil {
		return nil, err
	}
	return sim.With(b.p, t), nil
}

func (b *typedBinding[T]) set(c *sim.Context, e sim.EntityID, v any) error {
	t, err := b.convert(v)
	if err != nil {
		return err
	}
	return b.p.Set(c, e, t)
}

func (b *typedBinding[T]) get(c *sim.Context, e sim.EntityID) (any, error) {
	v, err := b.p.Get(c, e)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (b *typedBinding[T]) format(v any) (string, error) {
	t, err := b.convert(v)
	if err != nil {
		return "", err
	}
	return value.Format(t)
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case float64:
		if n == math.Trunc(n) && !math.IsInf(n, 0) {
			return int(n), nil
		}
	}
	return 0, fmt.Errorf("want int, got %T %v", v, v)
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	}
	return 0, fmt.Errorf("want float, got %T %v", v, v)
}

func toString(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	return "", fmt.Errorf("want string, got %T %v", v, v)
}

func toBool(v any) (bool, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	return false, fmt.Errorf("want bool, got %T %v", v, v)
}
