package relational

import (
	"github.com/syssam/relmodel/model"
)

// EntityTypeMapping binds one entity type to one table, view or store
// function. The three shapes are closed: TableMapping, ViewMapping and
// FunctionMapping.
type EntityTypeMapping interface {
	// EntityType returns the mapped entity type.
	EntityType() *model.EntityType
	// StoreObject returns the identity of the mapped physical object.
	StoreObject() model.StoreObject
	// IncludesDerivedTypes reports if the mapping also covers rows of
	// derived types sharing the same physical object. It is true only for
	// the mapping discovered at the leaf entity type.
	IncludesDerivedTypes() bool
	// ColumnMappings returns the column bindings in discovery order.
	ColumnMappings() []*ColumnMapping
	// IsSharedTablePrincipal reports if this mapping was elected to own
	// row lifecycle semantics for a shared physical object.
	IsSharedTablePrincipal() bool

	setSharedTablePrincipal(bool)
}

// mappingBase carries the state shared by the three mapping shapes.
type mappingBase struct {
	entityType           *model.EntityType
	includesDerivedTypes bool
	sharedTablePrincipal bool
	columnMappings       []*ColumnMapping
}

func (m *mappingBase) EntityType() *model.EntityType    { return m.entityType }
func (m *mappingBase) IncludesDerivedTypes() bool       { return m.includesDerivedTypes }
func (m *mappingBase) ColumnMappings() []*ColumnMapping { return m.columnMappings }
func (m *mappingBase) IsSharedTablePrincipal() bool     { return m.sharedTablePrincipal }
func (m *mappingBase) setSharedTablePrincipal(v bool)   { m.sharedTablePrincipal = v }

// TableMapping binds an entity type to a table.
type TableMapping struct {
	mappingBase
	table *Table
	// splitEntityTypePrincipal marks the leaf mapping of an entity type
	// that spans more than one table.
	splitEntityTypePrincipal bool
}

// Table returns the mapped table.
func (m *TableMapping) Table() *Table { return m.table }

// StoreObject returns the table identity.
func (m *TableMapping) StoreObject() model.StoreObject { return m.table.ID() }

// IsSplitEntityTypePrincipal reports if this is the leaf mapping of an
// entity type split across several tables.
func (m *TableMapping) IsSplitEntityTypePrincipal() bool { return m.splitEntityTypePrincipal }

// ViewMapping binds an entity type to a view.
type ViewMapping struct {
	mappingBase
	view *View
}

// View returns the mapped view.
func (m *ViewMapping) View() *View { return m.view }

// StoreObject returns the view identity.
func (m *ViewMapping) StoreObject() model.StoreObject { return m.view.ID() }

// FunctionMapping binds an entity type to a store function.
type FunctionMapping struct {
	mappingBase
	function   *StoreFunction
	dbFunction *model.DbFunction
	// isDefault marks mappings declared by the entity type itself, as
	// opposed to mappings synthesized for a table-valued function whose
	// return type matched the entity type.
	isDefault bool
}

// Function returns the mapped store function.
func (m *FunctionMapping) Function() *StoreFunction { return m.function }

// DbFunction returns the model-level definition this mapping came from.
func (m *FunctionMapping) DbFunction() *model.DbFunction { return m.dbFunction }

// StoreObject returns the function identity.
func (m *FunctionMapping) StoreObject() model.StoreObject { return m.function.ID() }

// IsDefault reports if the mapping was declared by the entity type rather
// than synthesized from a table-valued function's return type.
func (m *FunctionMapping) IsDefault() bool { return m.isDefault }

// ColumnMapping binds one property to one column within an entity-type
// mapping. A property has one ColumnMapping per physical object it is
// mapped into.
type ColumnMapping struct {
	property *model.Property
	column   *Column
	// storeType records the type mapping the property contributed.
	storeType string
	mapping   EntityTypeMapping
}

// Property returns the mapped property.
func (m *ColumnMapping) Property() *model.Property { return m.property }

// Column returns the mapped column.
func (m *ColumnMapping) Column() *Column { return m.column }

// StoreType returns the type mapping the property contributed.
func (m *ColumnMapping) StoreType() string { return m.storeType }

// Mapping returns the owning entity-type mapping.
func (m *ColumnMapping) Mapping() EntityTypeMapping { return m.mapping }
