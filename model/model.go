// Package model describes an entity object model: a set of entity-type
// inheritance hierarchies with properties, navigations, keys, foreign keys
// and indexes, plus model-level store functions and sequences.
//
// A model is mutable while it is being described and becomes immutable once
// Finalize is called. Only finalized models can be handed to the relational
// schema builder.
package model

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Model is the root of an entity object model.
type Model struct {
	name        string
	entityTypes map[string]*EntityType
	ordered     []*EntityType
	// preorder holds the entity types indexed by their pre-order ordinal,
	// computed by Finalize. It backs the O(1) assignability checks.
	preorder  []*EntityType
	functions map[string]*DbFunction
	funcList  []*DbFunction
	sequences []*Sequence
	finalized bool
	id        uuid.UUID
}

// New returns a new empty model with the given name.
func New(name string) *Model {
	return &Model{
		name:        name,
		entityTypes: make(map[string]*EntityType),
		functions:   make(map[string]*DbFunction),
	}
}

// Name returns the model name.
func (m *Model) Name() string { return m.name }

// Finalized reports if the model was finalized.
func (m *Model) Finalized() bool { return m.finalized }

// ID returns the model-identity token assigned by Finalize.
// It is the zero UUID before finalization.
func (m *Model) ID() uuid.UUID { return m.id }

// AddEntityType adds a new entity type with the given name.
func (m *Model) AddEntityType(name string) (*EntityType, error) {
	if m.finalized {
		return nil, errFinalized("add entity type")
	}
	if name == "" {
		return nil, fmt.Errorf("model: entity type name cannot be empty")
	}
	if _, ok := m.entityTypes[name]; ok {
		return nil, fmt.Errorf("model: entity type %q redeclared", name)
	}
	et := &EntityType{
		model:       m,
		name:        name,
		propertyMap: make(map[string]*Property),
	}
	m.entityTypes[name] = et
	m.ordered = append(m.ordered, et)
	return et, nil
}

// FindEntityType returns the entity type with the given name, or nil.
func (m *Model) FindEntityType(name string) *EntityType {
	return m.entityTypes[name]
}

// EntityTypes returns all entity types sorted by name.
func (m *Model) EntityTypes() []*EntityType {
	ets := make([]*EntityType, len(m.ordered))
	copy(ets, m.ordered)
	sort.Slice(ets, func(i, j int) bool { return ets[i].name < ets[j].name })
	return ets
}

// AddFunction adds a model-level function definition. The modelName is the
// unique model-level handle; name and schema identify the physical store
// function it resolves to.
func (m *Model) AddFunction(modelName, name, schema string) (*DbFunction, error) {
	if m.finalized {
		return nil, errFinalized("add function")
	}
	if _, ok := m.functions[modelName]; ok {
		return nil, fmt.Errorf("model: function %q redeclared", modelName)
	}
	f := &DbFunction{model: m, modelName: modelName, name: name, schema: schema}
	m.functions[modelName] = f
	m.funcList = append(m.funcList, f)
	return f, nil
}

// FindFunction returns the model-level function with the given model name, or nil.
func (m *Model) FindFunction(modelName string) *DbFunction {
	return m.functions[modelName]
}

// Functions returns all model-level function definitions sorted by model name.
func (m *Model) Functions() []*DbFunction {
	fs := make([]*DbFunction, len(m.funcList))
	copy(fs, m.funcList)
	sort.Slice(fs, func(i, j int) bool { return fs[i].modelName < fs[j].modelName })
	return fs
}

// AddSequence adds a model-level sequence.
func (m *Model) AddSequence(name, schema string) (*Sequence, error) {
	if m.finalized {
		return nil, errFinalized("add sequence")
	}
	for _, s := range m.sequences {
		if s.name == name && s.schema == schema {
			return nil, fmt.Errorf("model: sequence %q redeclared", name)
		}
	}
	s := &Sequence{name: name, schema: schema, startValue: 1, incrementBy: 1}
	m.sequences = append(m.sequences, s)
	return s, nil
}

// Sequences returns all sequences sorted by (name, schema).
func (m *Model) Sequences() []*Sequence {
	ss := make([]*Sequence, len(m.sequences))
	copy(ss, m.sequences)
	sort.Slice(ss, func(i, j int) bool {
		if ss[i].name != ss[j].name {
			return ss[i].name < ss[j].name
		}
		return ss[i].schema < ss[j].schema
	})
	return ss
}

// Finalize freezes the model: it computes the hierarchy index used for
// O(1) ancestor/descendant tests, assigns the model-identity token and
// rejects any further mutation. Finalizing twice is an error.
func (m *Model) Finalize() error {
	if m.finalized {
		return errFinalized("finalize")
	}
	sort.Slice(m.ordered, func(i, j int) bool { return m.ordered[i].name < m.ordered[j].name })
	m.preorder = make([]*EntityType, 0, len(m.ordered))
	for _, et := range m.ordered {
		if et.base == nil {
			m.index(et)
		}
	}
	if len(m.preorder) != len(m.ordered) {
		return fmt.Errorf("model: inheritance graph is not a forest of trees")
	}
	m.id = uuid.New()
	m.finalized = true
	return nil
}

// index assigns the pre-order interval of et and its subtree.
// Direct derived types are visited in name order so that the
// ordinals, and everything derived from them, are deterministic.
func (m *Model) index(et *EntityType) {
	et.ord = len(m.preorder)
	m.preorder = append(m.preorder, et)
	derived := make([]*EntityType, len(et.derived))
	copy(derived, et.derived)
	sort.Slice(derived, func(i, j int) bool { return derived[i].name < derived[j].name })
	et.derived = derived
	for _, d := range derived {
		m.index(d)
	}
	et.end = len(m.preorder) - 1
}

func errFinalized(op string) error {
	return fmt.Errorf("model: cannot %s: model is finalized", op)
}
