// Package relational derives the relational schema of a finalized entity
// model: the deduplicated tables, views and store functions, their columns
// and entity-type mappings, and the synthesized unique constraints,
// indexes and foreign-key constraints.
//
// Derivation is single-threaded and runs exactly once per model. The
// resulting Schema is frozen and safe for unlimited concurrent readers.
package relational

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/syssam/relmodel"
	"github.com/syssam/relmodel/model"
)

// buildState is the build-once lifecycle of a schema.
type buildState int8

const (
	stateUnbuilt buildState = iota
	stateBuilding
	stateFrozen
)

// String returns the state name.
func (s buildState) String() string {
	switch s {
	case stateUnbuilt:
		return "unbuilt"
	case stateBuilding:
		return "building"
	case stateFrozen:
		return "frozen"
	default:
		return "buildState(invalid)"
	}
}

// Schema is the derived relational schema of one entity model. Once built
// it is immutable and shared by every query compiled against the model.
type Schema struct {
	annotatable
	model  *model.Model
	state  buildState
	logger *zap.Logger

	tables    map[tableKey]*Table
	views     map[tableKey]*View
	functions map[functionKey]*StoreFunction

	// Sorted enumeration orders, fixed at freeze time.
	tableList    []*Table
	viewList     []*View
	functionList []*StoreFunction
	sequences    []*Sequence

	// Per-property and per-entity mapping memos. They stand in for
	// annotation side-channels on the metadata objects: later passes and
	// the query compiler enumerate mappings here instead of re-walking
	// the hierarchy.
	propertyMappings map[*model.Property][]*ColumnMapping
	tableMappings    map[*model.EntityType][]*TableMapping
	viewMappings     map[*model.EntityType][]*ViewMapping
	functionMappings map[*model.EntityType][]*FunctionMapping
}

// BuildOption configures a schema build.
type BuildOption func(*buildConfig)

type buildConfig struct {
	logger      *zap.Logger
	annotations AnnotationProvider
}

// WithLogger traces derivation decisions, such as skipped constraints and
// principal elections, to the given logger at debug level.
func WithLogger(l *zap.Logger) BuildOption {
	return func(c *buildConfig) { c.logger = l }
}

// WithAnnotations decorates every relational object with provider-specific
// annotations after structural population.
func WithAnnotations(p AnnotationProvider) BuildOption {
	return func(c *buildConfig) { c.annotations = p }
}

// Build derives the relational schema of a finalized model. The build
// happens in dependency order: tables, views and functions first, then
// constraints, then row-internal foreign-key resolution, then annotation
// attachment; the schema is frozen before it is returned.
func Build(m *model.Model, opts ...BuildOption) (*Schema, error) {
	if m == nil || !m.Finalized() {
		return nil, relmodel.ErrModelNotFinalized
	}
	cfg := buildConfig{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	s := &Schema{
		model:            m,
		state:            stateBuilding,
		logger:           cfg.logger,
		tables:           make(map[tableKey]*Table),
		views:            make(map[tableKey]*View),
		functions:        make(map[functionKey]*StoreFunction),
		propertyMappings: make(map[*model.Property][]*ColumnMapping),
		tableMappings:    make(map[*model.EntityType][]*TableMapping),
		viewMappings:     make(map[*model.EntityType][]*ViewMapping),
		functionMappings: make(map[*model.EntityType][]*FunctionMapping),
	}
	for _, et := range m.EntityTypes() {
		s.addTableMappings(et)
		s.addViewMappings(et)
	}
	if err := s.addFunctionMappings(); err != nil {
		return nil, err
	}
	s.sortObjects()
	for _, t := range s.tableList {
		if err := s.addForeignKeyConstraints(t); err != nil {
			return nil, err
		}
		s.addKeys(t)
		s.addIndexes(t)
	}
	for _, t := range s.tableList {
		s.resolveRowInternalForeignKeys(&t.TableBase)
	}
	for _, v := range s.viewList {
		s.resolveRowInternalForeignKeys(&v.TableBase)
	}
	for _, seq := range m.Sequences() {
		s.sequences = append(s.sequences, &Sequence{Sequence: seq})
	}
	s.applyAnnotations(cfg.annotations)
	s.freeze()
	return s, nil
}

// Model returns the entity model the schema was derived from.
func (s *Schema) Model() *model.Model { return s.model }

// SetAnnotation attaches a provider-specific annotation to the schema
// itself. Once the schema is frozen the structure is published to
// concurrent readers and attachment is rejected.
func (s *Schema) SetAnnotation(name string, value any) error {
	if s.state == stateFrozen {
		return relmodel.NewStateError("set annotation", s.state.String())
	}
	s.annotatable.SetAnnotation(name, value)
	return nil
}

// FindTable returns the table with the given name and schema, or nil.
func (s *Schema) FindTable(name, schema string) *Table {
	return s.tables[tableKey{name: name, schema: schema}]
}

// FindView returns the view with the given name and schema, or nil.
func (s *Schema) FindView(name, schema string) *View {
	return s.views[tableKey{name: name, schema: schema}]
}

// FindFunction returns the store function with the given name, schema and
// ordered parameter store types, or nil.
func (s *Schema) FindFunction(name, schema string, paramTypes []string) *StoreFunction {
	return s.functions[functionKeyOf(name, schema, paramTypes)]
}

// Tables returns all tables sorted by (name, schema).
func (s *Schema) Tables() []*Table { return s.tableList }

// Views returns all views sorted by (name, schema).
func (s *Schema) Views() []*View { return s.viewList }

// Functions returns all store functions sorted by identity.
func (s *Schema) Functions() []*StoreFunction { return s.functionList }

// Sequences returns all sequences sorted by (name, schema).
func (s *Schema) Sequences() []*Sequence { return s.sequences }

// ColumnMappings returns every column mapping of the property across all
// tables, views and functions, in discovery order.
func (s *Schema) ColumnMappings(p *model.Property) []*ColumnMapping {
	return s.propertyMappings[p]
}

// TableMappings returns the entity type's table mappings, root mapping
// first and the leaf mapping last.
func (s *Schema) TableMappings(et *model.EntityType) []*TableMapping {
	return s.tableMappings[et]
}

// ViewMappings returns the entity type's view mappings in the same order
// as TableMappings.
func (s *Schema) ViewMappings(et *model.EntityType) []*ViewMapping {
	return s.viewMappings[et]
}

// FunctionMappings returns the entity type's function mappings.
func (s *Schema) FunctionMappings(et *model.EntityType) []*FunctionMapping {
	return s.functionMappings[et]
}

// sortObjects fixes the deterministic enumeration order of the physical
// objects before the constraint passes run.
func (s *Schema) sortObjects() {
	s.tableList = make([]*Table, 0, len(s.tables))
	for _, t := range s.tables {
		s.tableList = append(s.tableList, t)
	}
	sort.Slice(s.tableList, func(i, j int) bool { return lessTable(&s.tableList[i].TableBase, &s.tableList[j].TableBase) })
	s.viewList = make([]*View, 0, len(s.views))
	for _, v := range s.views {
		s.viewList = append(s.viewList, v)
	}
	sort.Slice(s.viewList, func(i, j int) bool { return lessTable(&s.viewList[i].TableBase, &s.viewList[j].TableBase) })
	s.functionList = make([]*StoreFunction, 0, len(s.functions))
	for _, f := range s.functions {
		s.functionList = append(s.functionList, f)
	}
	sort.Slice(s.functionList, func(i, j int) bool {
		a, b := s.functionList[i], s.functionList[j]
		ka := functionKeyOf(a.name, a.schema, a.ParameterTypes())
		kb := functionKeyOf(b.name, b.schema, b.ParameterTypes())
		if ka.name != kb.name {
			return ka.name < kb.name
		}
		if ka.schema != kb.schema {
			return ka.schema < kb.schema
		}
		return ka.params < kb.params
	})
}

func lessTable(a, b *TableBase) bool {
	if a.name != b.name {
		return a.name < b.name
	}
	return a.schema < b.schema
}

// freeze publishes the schema: it computes the migration-exclusion flags
// and flips the state to frozen. No field is mutated afterwards.
func (s *Schema) freeze() {
	for _, t := range s.tableList {
		t.excludedFromMigrations = len(t.mappings) > 0
		for _, m := range t.mappings {
			if !m.EntityType().IsExcludedFromMigrations() {
				t.excludedFromMigrations = false
				break
			}
		}
	}
	s.state = stateFrozen
}

// Source owns the relational schemas of a set of model lifecycles. It is
// an explicit memo keyed by model identity: the first request for a model
// builds and freezes its schema, later requests return the cached one.
type Source struct {
	mu      sync.Mutex
	schemas map[uuid.UUID]*Schema
}

// NewSource returns an empty schema source.
func NewSource() *Source {
	return &Source{schemas: make(map[uuid.UUID]*Schema)}
}

// Schema returns the relational schema of the model, building it on first
// use. Options are only applied by the build that actually runs.
func (src *Source) Schema(m *model.Model, opts ...BuildOption) (*Schema, error) {
	if m == nil || !m.Finalized() {
		return nil, relmodel.ErrModelNotFinalized
	}
	src.mu.Lock()
	defer src.mu.Unlock()
	if s, ok := src.schemas[m.ID()]; ok {
		return s, nil
	}
	s, err := Build(m, opts...)
	if err != nil {
		return nil, err
	}
	src.schemas[m.ID()] = s
	return s, nil
}
