package model

import (
	"fmt"

	"github.com/go-openapi/inflect"
)

// StoreObjectKind distinguishes the three kinds of physical store objects
// an entity type can be mapped to.
type StoreObjectKind int8

const (
	StoreKindTable StoreObjectKind = iota
	StoreKindView
	StoreKindFunction
)

// String returns the kind name.
func (k StoreObjectKind) String() string {
	switch k {
	case StoreKindTable:
		return "table"
	case StoreKindView:
		return "view"
	case StoreKindFunction:
		return "function"
	default:
		return fmt.Sprintf("StoreObjectKind(%d)", k)
	}
}

// StoreObject identifies one physical store object by kind, name and schema.
// It is a value type and usable as a map key.
type StoreObject struct {
	Kind   StoreObjectKind
	Name   string
	Schema string
}

// TableObject returns the identity of a table.
func TableObject(name, schema string) StoreObject {
	return StoreObject{Kind: StoreKindTable, Name: name, Schema: schema}
}

// ViewObject returns the identity of a view.
func ViewObject(name, schema string) StoreObject {
	return StoreObject{Kind: StoreKindView, Name: name, Schema: schema}
}

// FunctionObject returns the identity of a store function.
func FunctionObject(name, schema string) StoreObject {
	return StoreObject{Kind: StoreKindFunction, Name: name, Schema: schema}
}

// IsZero reports if the identity is empty.
func (o StoreObject) IsZero() bool { return o.Name == "" }

// String returns "schema.name", or "name" when the schema is empty.
func (o StoreObject) String() string {
	if o.Schema == "" {
		return o.Name
	}
	return o.Schema + "." + o.Name
}

// EntityType is a node in a single-rooted inheritance tree describing one
// mapped object shape.
type EntityType struct {
	model       *Model
	name        string
	base        *EntityType
	derived     []*EntityType
	properties  []*Property
	propertyMap map[string]*Property
	navigations []*Navigation
	keys        []*Key
	primaryKey  *Key
	foreignKeys []*ForeignKey
	indexes     []*Index

	tableName    string
	tableSchema  string
	viewName     string
	viewSchema   string
	functionName string

	excludedFromMigrations bool

	// Pre-order interval of this node within its hierarchy,
	// assigned by Model.Finalize.
	ord, end int
}

// Name returns the entity type name.
func (et *EntityType) Name() string { return et.name }

// Model returns the owning model.
func (et *EntityType) Model() *Model { return et.model }

// Base returns the base entity type, or nil for a hierarchy root.
func (et *EntityType) Base() *EntityType { return et.base }

// RootType returns the least-derived entity type of the hierarchy.
func (et *EntityType) RootType() *EntityType {
	root := et
	for root.base != nil {
		root = root.base
	}
	return root
}

// SetBase declares the entity type as derived from base.
func (et *EntityType) SetBase(base *EntityType) error {
	switch {
	case et.model.finalized:
		return errFinalized("set base type")
	case base == nil:
		return fmt.Errorf("model: base type of %q cannot be nil", et.name)
	case base.model != et.model:
		return fmt.Errorf("model: base type %q belongs to another model", base.name)
	case et.base != nil:
		return fmt.Errorf("model: entity type %q already has a base type", et.name)
	}
	for a := base; a != nil; a = a.base {
		if a == et {
			return fmt.Errorf("model: setting %q as base of %q creates a cycle", base.name, et.name)
		}
	}
	et.base = base
	base.derived = append(base.derived, et)
	return nil
}

// DerivedTypes returns the directly derived entity types.
func (et *EntityType) DerivedTypes() []*EntityType { return et.derived }

// HasDerivedTypes reports if any entity type derives from this one,
// directly or transitively.
func (et *EntityType) HasDerivedTypes() bool {
	if et.model.finalized {
		return et.end > et.ord
	}
	return len(et.derived) > 0
}

// DescendantTypes returns all entity types derived from this one, directly
// or transitively, in deterministic hierarchy order.
func (et *EntityType) DescendantTypes() []*EntityType {
	if et.model.finalized {
		return et.model.preorder[et.ord+1 : et.end+1]
	}
	var out []*EntityType
	for _, d := range et.derived {
		out = append(out, d)
		out = append(out, d.DescendantTypes()...)
	}
	return out
}

// IsAssignableFrom reports whether other equals et or descends from et.
func (et *EntityType) IsAssignableFrom(other *EntityType) bool {
	if other == nil || other.model != et.model {
		return false
	}
	if et.model.finalized {
		return other.ord >= et.ord && other.ord <= et.end
	}
	for a := other; a != nil; a = a.base {
		if a == et {
			return true
		}
	}
	return false
}

// IsStrictlyDerivedFrom reports whether et is a proper descendant of other.
func (et *EntityType) IsStrictlyDerivedFrom(other *EntityType) bool {
	return other != nil && other != et && other.IsAssignableFrom(et)
}

// RelatedTo reports whether the two entity types are on one inheritance
// path, in either direction.
func (et *EntityType) RelatedTo(other *EntityType) bool {
	return et.IsAssignableFrom(other) || (other != nil && other.IsAssignableFrom(et))
}

// SetTable maps the entity type to a table. An empty name selects the
// conventional pluralized snake-case table name.
func (et *EntityType) SetTable(name, schema string) {
	if name == "" {
		name = inflect.Underscore(inflect.Pluralize(et.name))
	}
	et.tableName, et.tableSchema = name, schema
}

// SetView maps the entity type to a read-only view. An empty name selects
// the conventional pluralized snake-case view name.
func (et *EntityType) SetView(name, schema string) {
	if name == "" {
		name = inflect.Underscore(inflect.Pluralize(et.name))
	}
	et.viewName, et.viewSchema = name, schema
}

// SetFunction maps the entity type to the model-level function definition
// with the given model name.
func (et *EntityType) SetFunction(modelName string) {
	et.functionName = modelName
}

// SetExcludedFromMigrations keeps the entity type's table out of migration
// output. A table is excluded only when every entity type mapped to it is.
func (et *EntityType) SetExcludedFromMigrations(excluded bool) {
	et.excludedFromMigrations = excluded
}

// IsExcludedFromMigrations reports if the entity type opted out of
// migration output.
func (et *EntityType) IsExcludedFromMigrations() bool {
	return et.excludedFromMigrations
}

// TableName returns the table (name, schema) the entity type maps to.
// The mapping is inherited: a derived type without an own declaration
// resolves to its base's table. Both strings are empty when the entity
// type is not mapped to a table at all.
func (et *EntityType) TableName() (name, schema string) {
	if et.tableName != "" {
		return et.tableName, et.tableSchema
	}
	if et.base != nil {
		return et.base.TableName()
	}
	return "", ""
}

// ViewName returns the view (name, schema) the entity type maps to,
// with the same inheritance rule as TableName.
func (et *EntityType) ViewName() (name, schema string) {
	if et.viewName != "" {
		return et.viewName, et.viewSchema
	}
	if et.base != nil {
		return et.base.ViewName()
	}
	return "", ""
}

// FunctionName returns the model-level function name the entity type maps
// to, with the same inheritance rule as TableName.
func (et *EntityType) FunctionName() string {
	if et.functionName != "" {
		return et.functionName
	}
	if et.base != nil {
		return et.base.FunctionName()
	}
	return ""
}

// TableID returns the store-object identity of the entity type's table.
func (et *EntityType) TableID() (StoreObject, bool) {
	name, schema := et.TableName()
	if name == "" {
		return StoreObject{}, false
	}
	return TableObject(name, schema), true
}

// ViewID returns the store-object identity of the entity type's view.
func (et *EntityType) ViewID() (StoreObject, bool) {
	name, schema := et.ViewName()
	if name == "" {
		return StoreObject{}, false
	}
	return ViewObject(name, schema), true
}

// FunctionID returns the store-object identity of the entity type's
// mapped store function.
func (et *EntityType) FunctionID() (StoreObject, bool) {
	modelName := et.FunctionName()
	if modelName == "" {
		return StoreObject{}, false
	}
	f := et.model.FindFunction(modelName)
	if f == nil {
		return StoreObject{}, false
	}
	return FunctionObject(f.name, f.schema), true
}

// AddProperty declares a new property on the entity type. The default
// column name is the snake-cased property name; it can be changed with
// Property.SetColumn.
func (et *EntityType) AddProperty(name string) (*Property, error) {
	if et.model.finalized {
		return nil, errFinalized("add property")
	}
	if name == "" {
		return nil, fmt.Errorf("model: property name cannot be empty")
	}
	if et.FindProperty(name) != nil {
		return nil, fmt.Errorf("model: property %q redeclared for entity type %q", name, et.name)
	}
	p := &Property{
		declaring: et,
		name:      name,
		column:    inflect.Underscore(name),
	}
	et.properties = append(et.properties, p)
	et.propertyMap[name] = p
	return p, nil
}

// DeclaredProperties returns the properties declared on this entity type,
// excluding inherited ones, in declaration order.
func (et *EntityType) DeclaredProperties() []*Property { return et.properties }

// Properties returns the declared and inherited properties, base-first.
func (et *EntityType) Properties() []*Property {
	if et.base == nil {
		return et.properties
	}
	inherited := et.base.Properties()
	out := make([]*Property, 0, len(inherited)+len(et.properties))
	out = append(out, inherited...)
	out = append(out, et.properties...)
	return out
}

// FindProperty returns the declared or inherited property with the given
// name, or nil.
func (et *EntityType) FindProperty(name string) *Property {
	for a := et; a != nil; a = a.base {
		if p, ok := a.propertyMap[name]; ok {
			return p
		}
	}
	return nil
}

// AddKey declares a key over the named properties. A primary key also
// marks its properties as key properties, which affects column naming and
// nullability in every store object of the hierarchy.
func (et *EntityType) AddKey(primary bool, properties ...string) (*Key, error) {
	if et.model.finalized {
		return nil, errFinalized("add key")
	}
	props, err := et.resolveProperties("key", properties)
	if err != nil {
		return nil, err
	}
	if primary && et.primaryKey != nil {
		return nil, fmt.Errorf("model: entity type %q already has a primary key", et.name)
	}
	k := &Key{declaring: et, properties: props, primary: primary}
	if primary {
		et.primaryKey = k
		for _, p := range props {
			p.partOfPrimaryKey = true
		}
	}
	et.keys = append(et.keys, k)
	return k, nil
}

// DeclaredKeys returns the keys declared on this entity type.
func (et *EntityType) DeclaredKeys() []*Key { return et.keys }

// Keys returns the declared and inherited keys, base-first.
func (et *EntityType) Keys() []*Key {
	if et.base == nil {
		return et.keys
	}
	return append(append([]*Key{}, et.base.Keys()...), et.keys...)
}

// PrimaryKey returns the declared or inherited primary key, or nil.
func (et *EntityType) PrimaryKey() *Key {
	for a := et; a != nil; a = a.base {
		if a.primaryKey != nil {
			return a.primaryKey
		}
	}
	return nil
}

// AddForeignKey declares a foreign key from the named dependent properties
// to the principal's primary key. Use the ForeignKey setters to change the
// principal key, uniqueness, requiredness, delete behavior or name.
func (et *EntityType) AddForeignKey(principal *EntityType, properties ...string) (*ForeignKey, error) {
	if et.model.finalized {
		return nil, errFinalized("add foreign key")
	}
	if principal == nil || principal.model != et.model {
		return nil, fmt.Errorf("model: foreign key on %q has no principal entity type", et.name)
	}
	props, err := et.resolveProperties("foreign key", properties)
	if err != nil {
		return nil, err
	}
	pk := principal.PrimaryKey()
	if pk == nil {
		return nil, fmt.Errorf("model: principal entity type %q has no primary key", principal.name)
	}
	if len(pk.properties) != len(props) {
		return nil, fmt.Errorf("model: foreign key on %q has %d properties, principal key has %d", et.name, len(props), len(pk.properties))
	}
	fk := &ForeignKey{
		declaring:     et,
		properties:    props,
		principalType: principal,
		principalKey:  pk,
		onDelete:      DeleteNoAction,
	}
	et.foreignKeys = append(et.foreignKeys, fk)
	return fk, nil
}

// DeclaredForeignKeys returns the foreign keys declared on this entity type.
func (et *EntityType) DeclaredForeignKeys() []*ForeignKey { return et.foreignKeys }

// ForeignKeys returns the declared and inherited foreign keys, base-first.
func (et *EntityType) ForeignKeys() []*ForeignKey {
	if et.base == nil {
		return et.foreignKeys
	}
	return append(append([]*ForeignKey{}, et.base.ForeignKeys()...), et.foreignKeys...)
}

// AddIndex declares an index over the named properties.
func (et *EntityType) AddIndex(properties ...string) (*Index, error) {
	if et.model.finalized {
		return nil, errFinalized("add index")
	}
	props, err := et.resolveProperties("index", properties)
	if err != nil {
		return nil, err
	}
	idx := &Index{declaring: et, properties: props}
	et.indexes = append(et.indexes, idx)
	return idx, nil
}

// DeclaredIndexes returns the indexes declared on this entity type.
func (et *EntityType) DeclaredIndexes() []*Index { return et.indexes }

// Indexes returns the declared and inherited indexes, base-first.
func (et *EntityType) Indexes() []*Index {
	if et.base == nil {
		return et.indexes
	}
	return append(append([]*Index{}, et.base.Indexes()...), et.indexes...)
}

// AddNavigation declares a navigation to the target entity type, traversing
// the given foreign key. onDependent marks the navigation declared on the
// foreign key's dependent side.
func (et *EntityType) AddNavigation(name string, target *EntityType, fk *ForeignKey, onDependent bool) (*Navigation, error) {
	switch {
	case et.model.finalized:
		return nil, errFinalized("add navigation")
	case name == "":
		return nil, fmt.Errorf("model: navigation name cannot be empty")
	case target == nil || fk == nil:
		return nil, fmt.Errorf("model: navigation %q on %q needs a target and a foreign key", name, et.name)
	}
	for _, n := range et.navigations {
		if n.name == name {
			return nil, fmt.Errorf("model: navigation %q redeclared for entity type %q", name, et.name)
		}
	}
	n := &Navigation{declaring: et, name: name, target: target, foreignKey: fk, onDependent: onDependent}
	et.navigations = append(et.navigations, n)
	return n, nil
}

// DeclaredNavigations returns the navigations declared on this entity type.
func (et *EntityType) DeclaredNavigations() []*Navigation { return et.navigations }

func (et *EntityType) resolveProperties(kind string, names []string) ([]*Property, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("model: %s on %q has no properties", kind, et.name)
	}
	props := make([]*Property, len(names))
	for i, name := range names {
		p := et.FindProperty(name)
		if p == nil {
			return nil, fmt.Errorf("model: unknown %s property %q on entity type %q", kind, name, et.name)
		}
		props[i] = p
	}
	return props, nil
}
