package sim

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/simkernel/internal/index"
	"github.com/roach88/simkernel/internal/property"
	"github.com/roach88/simkernel/internal/value"
)

// EntityType names a kind of entity and owns its property definitions.
// Definitions are schema: one EntityType may back any number of Contexts,
// each with its own rows.
type EntityType struct {
	name   string
	props  []PropertyRef
	byName map[string]PropertyRef
}

// NewEntityType returns an entity type with no properties.
func NewEntityType(name string) *EntityType {
	return &EntityType{name: name, byName: make(map[string]PropertyRef)}
}

// Name returns the entity type name.
func (et *EntityType) Name() string { return et.name }

// Properties returns the defined properties in definition order.
func (et *EntityType) Properties() []PropertyRef { return slices.Clone(et.props) }

// Property looks up a property by name.
func (et *EntityType) Property(name string) (PropertyRef, bool) {
	p, ok := et.byName[name]
	return p, ok
}

// Entity returns the handle for row. The handle is only meaningful in a
// Context where that row has been created; operations on other handles fail
// with an unknown entity error.
func (et *EntityType) Entity(row int) EntityID {
	return EntityID{typ: et, row: row}
}

// reserve claims name and returns the slot for the next property.
func (et *EntityType) reserve(name string) (int, error) {
	if name == "" {
		return 0, &Error{Code: ErrCodeInvalidProperty, Message: "property name is empty", Name: et.name}
	}
	if _, ok := et.byName[name]; ok {
		return 0, duplicateError("property", et.name+"."+name)
	}
	return len(et.props), nil
}

func (et *EntityType) add(p PropertyRef) {
	et.props = append(et.props, p)
	et.byName[p.Name()] = p
}

// EntityID is an opaque handle: an entity type and a dense row index.
// The zero value is not a valid entity.
type EntityID struct {
	typ *EntityType
	row int
}

// Type returns the entity type, nil for the zero value.
func (e EntityID) Type() *EntityType { return e.typ }

// Row returns the row index.
func (e EntityID) Row() int { return e.row }

func (e EntityID) String() string {
	if e.typ == nil {
		return "<none>"
	}
	return fmt.Sprintf("%s#%d", e.typ.name, e.row)
}

// entityStore is the per-Context state of one entity type.
type entityStore struct {
	typ   *EntityType
	count int

	// columns is indexed by property slot; nil until first use.
	columns []column

	multis      map[string]*multiIndex
	multiOrder  []*multiIndex
	multiByProp map[int][]*multiIndex // stored property slot -> covering multis
}

func newEntityStore(et *EntityType) *entityStore {
	return &entityStore{
		typ:         et,
		multis:      make(map[string]*multiIndex),
		multiByProp: make(map[int][]*multiIndex),
	}
}

// column returns the column for ref, creating it sized to the current
// population on first use.
func (es *entityStore) column(ref PropertyRef) column {
	slot := ref.slot()
	for len(es.columns) <= slot {
		es.columns = append(es.columns, nil)
	}
	if es.columns[slot] == nil {
		es.columns[slot] = ref.newColumn(es.count)
	}
	return es.columns[slot]
}

// grow adds one row to every column created so far.
func (es *entityStore) grow() int {
	row := es.count
	es.count++
	for _, col := range es.columns {
		if col != nil {
			col.grow(es.count)
		}
	}
	return row
}

func (es *entityStore) entity(row int) EntityID {
	return EntityID{typ: es.typ, row: row}
}

// multiIndex is a multi-property index with its components in key order.
type multiIndex struct {
	idx  *index.Multi
	refs []PropertyRef
}

func (m *multiIndex) key(c *Context, es *entityStore, row int) (string, bool) {
	vals := make([]any, len(m.refs))
	for i, ref := range m.refs {
		v, ok := es.column(ref).valueAny(c, es.entity(row))
		if !ok {
			return "", false
		}
		vals[i] = v
	}
	return tupleKey(vals)
}

func (m *multiIndex) names() string {
	names := make([]string, len(m.refs))
	for i, ref := range m.refs {
		names[i] = ref.Name()
	}
	return strings.Join(names, ",")
}

// Population returns the number of entities of type et in O(1).
func (c *Context) Population(et *EntityType) int {
	es := c.types[et]
	if es == nil {
		return 0
	}
	return es.count
}

// Exists reports whether e names a created entity in this context.
func (c *Context) Exists(e EntityID) bool {
	_, err := c.entity(e)
	return err == nil
}

// store returns the state for et, registering the type on first use.
func (c *Context) store(et *EntityType) (*entityStore, error) {
	if es, ok := c.types[et]; ok {
		return es, nil
	}
	if other, ok := c.typeNames[et.name]; ok && other != et {
		return nil, duplicateError("entity type", et.name)
	}
	es := newEntityStore(et)
	c.types[et] = es
	c.typeNames[et.name] = et
	return es, nil
}

// entity validates e against this context.
func (c *Context) entity(e EntityID) (*entityStore, error) {
	if e.typ == nil {
		return nil, &Error{Code: ErrCodeUnknownEntity, Message: "zero entity handle"}
	}
	es := c.types[e.typ]
	if es == nil || e.row < 0 || e.row >= es.count {
		return nil, &Error{Code: ErrCodeUnknownEntity, Message: "entity does not exist", Entity: e.String(), Name: e.typ.name}
	}
	return es, nil
}

// Init supplies an initial property value to Create.
type Init interface {
	initRef() PropertyRef
	initAny() any
	write(c *Context, es *entityStore, row int)
}

type initValue[T comparable] struct {
	p *Property[T]
	v T
}

func (i initValue[T]) initRef() PropertyRef { return i.p }
func (i initValue[T]) initAny() any        { return i.v }

func (i initValue[T]) write(c *Context, es *entityStore, row int) {
	es.column(i.p).(*storedColumn[T]).cells.Store(row, i.v, property.Set)
}

// With pairs a property with its initial value for Create.
func With[T comparable](p *Property[T], v T) Init {
	return initValue[T]{p: p, v: v}
}

// Create allocates the next entity of type et.
//
// Initial values are written without change events. Properties that are not
// supplied use their default lazily. If a property without a default is not
// supplied, Create fails with a missing required property error and no row
// is allocated. A NaN initial value fails the same way with an invalid
// property error. EntityCreated is emitted after every value is committed and
// every enabled index holds the new row.
func (c *Context) Create(et *EntityType, inits ...Init) (EntityID, error) {
	es, err := c.store(et)
	if err != nil {
		return EntityID{}, err
	}

	seen := make(map[PropertyRef]bool, len(inits))
	for _, in := range inits {
		ref := in.initRef()
		if ref.EntityType() != et {
			return EntityID{}, &Error{
				Code:    ErrCodeInvalidProperty,
				Message: fmt.Sprintf("property belongs to entity type %q", ref.EntityType().name),
				Name:    ref.EntityType().name + "." + ref.Name(),
			}
		}
		if seen[ref] {
			return EntityID{}, &Error{
				Code:    ErrCodeInvalidProperty,
				Message: "initial value given twice",
				Name:    et.name + "." + ref.Name(),
			}
		}
		if value.HasNaN(in.initAny()) {
			return EntityID{}, errNaN(et.name+"."+ref.Name(), "")
		}
		seen[ref] = true
	}

	var missing []string
	for _, ref := range et.props {
		if ref.required() && !seen[ref] {
			missing = append(missing, ref.Name())
		}
	}
	if len(missing) > 0 {
		return EntityID{}, &Error{
			Code:    ErrCodeMissingRequiredProperty,
			Message: fmt.Sprintf("no value for required %s", strings.Join(missing, ", ")),
			Name:    et.name + "." + missing[0],
		}
	}

	row := es.grow()
	for _, in := range inits {
		in.write(c, es, row)
	}

	e := es.entity(row)
	for _, col := range es.columns {
		if col != nil {
			col.insertIndex(c, e)
		}
	}
	for _, m := range es.multiOrder {
		if key, ok := m.key(c, es, row); ok {
			m.idx.Insert(row, key)
		}
	}

	c.stats.EntitiesCreated++
	if err := c.bus.Emit(c, createdKey(et), EntityCreated{Entity: e}); err != nil {
		return e, err
	}
	return e, nil
}
