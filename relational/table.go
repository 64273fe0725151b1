package relational

import (
	"sort"

	"github.com/syssam/relmodel/model"
)

// Annotation is one provider-specific (name, value) pair attached to a
// relational object after structural population.
type Annotation struct {
	Name  string
	Value any
}

// annotatable is embedded by every relational object that can carry
// provider-specific annotations.
type annotatable struct {
	annotations map[string]any
}

// SetAnnotation attaches a provider-specific annotation.
func (a *annotatable) SetAnnotation(name string, value any) {
	if a.annotations == nil {
		a.annotations = make(map[string]any)
	}
	a.annotations[name] = value
}

// Annotation returns the annotation with the given name, or nil.
func (a *annotatable) Annotation(name string) any {
	return a.annotations[name]
}

// Annotations returns all annotations sorted by name.
func (a *annotatable) Annotations() []Annotation {
	if len(a.annotations) == 0 {
		return nil
	}
	names := make([]string, 0, len(a.annotations))
	for name := range a.annotations {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]Annotation, len(names))
	for i, name := range names {
		out[i] = Annotation{Name: name, Value: a.annotations[name]}
	}
	return out
}

// TableBase carries the structure shared by tables, views and store
// functions: identity, the ordered column set and the entity-type mappings.
type TableBase struct {
	annotatable
	kind    model.StoreObjectKind
	name    string
	schema  string
	columns map[string]*Column
	// columnOrder preserves discovery order; lookups go through columns.
	columnOrder []*Column
	mappings    []EntityTypeMapping
	shared      bool
	// rowInternalFKs maps each principal entity type to the foreign keys
	// pointing into it from row-internally linked dependents, sorted by
	// dependent entity type name.
	rowInternalFKs map[*model.EntityType][]*model.ForeignKey
}

// Name returns the object name.
func (t *TableBase) Name() string { return t.name }

// Schema returns the object schema, or "".
func (t *TableBase) Schema() string { return t.schema }

// Kind returns the store-object kind.
func (t *TableBase) Kind() model.StoreObjectKind { return t.kind }

// ID returns the store-object identity.
func (t *TableBase) ID() model.StoreObject {
	return model.StoreObject{Kind: t.kind, Name: t.name, Schema: t.schema}
}

// Columns returns the columns in discovery order.
func (t *TableBase) Columns() []*Column { return t.columnOrder }

// FindColumn returns the column with the given name, or nil.
func (t *TableBase) FindColumn(name string) *Column { return t.columns[name] }

// EntityTypeMappings returns the entity-type mappings in order. After
// row-internal resolution the shared-table principal mapping is first.
func (t *TableBase) EntityTypeMappings() []EntityTypeMapping { return t.mappings }

// IsShared reports if the object holds rows of entity types that are
// neither related by inheritance nor linked row-internally.
func (t *TableBase) IsShared() bool { return t.shared }

// RowInternalForeignKeys returns the foreign keys pointing into the given
// principal entity type from row-internally linked dependents mapped to
// this object, sorted by dependent entity type name.
func (t *TableBase) RowInternalForeignKeys(principal *model.EntityType) []*model.ForeignKey {
	return t.rowInternalFKs[principal]
}

// getOrCreateColumn resolves or creates the named column. An existing
// column is widened to nullable only while no contributing property
// forces non-null; its store type is kept from the first property that
// declared one.
func (t *TableBase) getOrCreateColumn(name, storeType string, nullable bool) *Column {
	if c, ok := t.columns[name]; ok {
		c.nullable = c.nullable && nullable
		if c.storeType == "" {
			c.storeType = storeType
		}
		return c
	}
	c := &Column{name: name, storeType: storeType, nullable: nullable, table: t}
	t.columns[name] = c
	t.columnOrder = append(t.columnOrder, c)
	return c
}

// promoteToPrincipal marks m as the shared-table principal mapping and
// moves it to the front of the mapping list: remove by identity, set the
// flag, insert at front.
func (t *TableBase) promoteToPrincipal(m EntityTypeMapping) {
	for i, em := range t.mappings {
		if em == m {
			t.mappings = append(t.mappings[:i], t.mappings[i+1:]...)
			break
		}
	}
	m.setSharedTablePrincipal(true)
	t.mappings = append([]EntityTypeMapping{m}, t.mappings...)
}

// Table is a physical database table.
type Table struct {
	TableBase
	primaryKey             *UniqueConstraint
	uniqueConstraints      map[string]*UniqueConstraint
	indexes                map[string]*TableIndex
	foreignKeys            map[string]*ForeignKeyConstraint
	excludedFromMigrations bool
}

func newTable(name, schema string) *Table {
	return &Table{
		TableBase: TableBase{
			kind:    model.StoreKindTable,
			name:    name,
			schema:  schema,
			columns: make(map[string]*Column),
		},
		uniqueConstraints: make(map[string]*UniqueConstraint),
		indexes:           make(map[string]*TableIndex),
		foreignKeys:       make(map[string]*ForeignKeyConstraint),
	}
}

// PrimaryKey returns the table's primary key constraint, or nil.
func (t *Table) PrimaryKey() *UniqueConstraint { return t.primaryKey }

// UniqueConstraints returns all unique constraints, including the primary
// key, sorted by name.
func (t *Table) UniqueConstraints() []*UniqueConstraint {
	out := make([]*UniqueConstraint, 0, len(t.uniqueConstraints))
	for _, uc := range t.uniqueConstraints {
		out = append(out, uc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// FindUniqueConstraint returns the unique constraint with the given name, or nil.
func (t *Table) FindUniqueConstraint(name string) *UniqueConstraint {
	return t.uniqueConstraints[name]
}

// Indexes returns all indexes sorted by name.
func (t *Table) Indexes() []*TableIndex {
	out := make([]*TableIndex, 0, len(t.indexes))
	for _, idx := range t.indexes {
		out = append(out, idx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// FindIndex returns the index with the given name, or nil.
func (t *Table) FindIndex(name string) *TableIndex { return t.indexes[name] }

// ForeignKeyConstraints returns all foreign-key constraints sorted by name.
func (t *Table) ForeignKeyConstraints() []*ForeignKeyConstraint {
	out := make([]*ForeignKeyConstraint, 0, len(t.foreignKeys))
	for _, fk := range t.foreignKeys {
		out = append(out, fk)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// FindForeignKeyConstraint returns the constraint with the given name, or nil.
func (t *Table) FindForeignKeyConstraint(name string) *ForeignKeyConstraint {
	return t.foreignKeys[name]
}

// IsExcludedFromMigrations reports if every entity type mapped to the
// table opted out of migrations.
func (t *Table) IsExcludedFromMigrations() bool { return t.excludedFromMigrations }

// View is a read-only physical view.
type View struct {
	TableBase
}

func newView(name, schema string) *View {
	return &View{
		TableBase: TableBase{
			kind:    model.StoreKindView,
			name:    name,
			schema:  schema,
			columns: make(map[string]*Column),
		},
	}
}

// Column is one column of a table, view or store function.
type Column struct {
	annotatable
	name      string
	storeType string
	nullable  bool
	table     *TableBase
	// propertyMappings holds one entry per entity-type property mapped to
	// this column, in discovery order.
	propertyMappings []*ColumnMapping
}

// Name returns the column name.
func (c *Column) Name() string { return c.name }

// StoreType returns the declared store type.
func (c *Column) StoreType() string { return c.storeType }

// IsNullable reports if the column permits nulls.
func (c *Column) IsNullable() bool { return c.nullable }

// Table returns the owning table base.
func (c *Column) Table() *TableBase { return c.table }

// PropertyMappings returns the mappings of all properties bound to this
// column, in discovery order.
func (c *Column) PropertyMappings() []*ColumnMapping { return c.propertyMappings }

// Sequence decorates a model-level sequence with relational annotations.
type Sequence struct {
	annotatable
	*model.Sequence
}
