package model

import (
	"strings"

	"github.com/syssam/relmodel"
)

// Property is a scalar member of an entity type that maps to one column
// per store object the entity type participates in.
type Property struct {
	declaring        *EntityType
	name             string
	column           string
	storeType        string
	nullable         bool
	partOfPrimaryKey bool
	// Per-store-object column name overrides, used for table splitting
	// and for mapping one property differently across tables and views.
	overrides map[StoreObject]string
}

// Name returns the property name.
func (p *Property) Name() string { return p.name }

// DeclaringType returns the entity type the property is declared on.
func (p *Property) DeclaringType() *EntityType { return p.declaring }

// ColumnName returns the default column name.
func (p *Property) ColumnName() string { return p.column }

// SetColumn changes the default column name.
func (p *Property) SetColumn(name string) *Property {
	p.column = name
	return p
}

// StoreType returns the declared store type, e.g. "bigint".
func (p *Property) StoreType() string { return p.storeType }

// SetStoreType sets the declared store type.
func (p *Property) SetStoreType(t string) *Property {
	p.storeType = t
	return p
}

// IsNullable reports if the property itself permits null values.
func (p *Property) IsNullable() bool { return p.nullable }

// SetNullable marks the property nullable.
func (p *Property) SetNullable(nullable bool) *Property {
	p.nullable = nullable
	return p
}

// IsPrimaryKey reports if the property is part of its hierarchy's
// primary key.
func (p *Property) IsPrimaryKey() bool { return p.partOfPrimaryKey }

// SetColumnIn overrides the column name for one store object.
func (p *Property) SetColumnIn(so StoreObject, column string) *Property {
	if p.overrides == nil {
		p.overrides = make(map[StoreObject]string)
	}
	p.overrides[so] = column
	return p
}

// ColumnNameIn returns the column name the property maps to in the given
// store object, or "" when the property is not mapped there. Primary-key
// properties map into every store object of their hierarchy; other
// properties map only into the store object declared at their own level.
func (p *Property) ColumnNameIn(so StoreObject) string {
	if name, ok := p.overrides[so]; ok {
		return name
	}
	if p.partOfPrimaryKey {
		return p.column
	}
	if home, ok := p.homeObject(so.Kind); ok && home == so {
		return p.column
	}
	return ""
}

// IsColumnNullableIn reports the nullability the property contributes to
// its column in the given store object. A non-key property declared on a
// derived type that shares its store object with its base cannot force the
// column non-null, since rows of other types carry no value for it.
func (p *Property) IsColumnNullableIn(so StoreObject) bool {
	if p.partOfPrimaryKey {
		return false
	}
	if p.nullable {
		return true
	}
	if b := p.declaring.Base(); b != nil {
		if home, ok := baseHomeObject(b, so.Kind); ok && home == so {
			return true
		}
	}
	return false
}

func (p *Property) homeObject(kind StoreObjectKind) (StoreObject, bool) {
	return baseHomeObject(p.declaring, kind)
}

func baseHomeObject(et *EntityType, kind StoreObjectKind) (StoreObject, bool) {
	switch kind {
	case StoreKindTable:
		return et.TableID()
	case StoreKindView:
		return et.ViewID()
	case StoreKindFunction:
		return et.FunctionID()
	default:
		return StoreObject{}, false
	}
}

// Key is a unique identifier over a set of properties. At most one key per
// hierarchy is the primary key.
type Key struct {
	declaring  *EntityType
	properties []*Property
	primary    bool
	name       string
}

// DeclaringType returns the entity type the key is declared on.
func (k *Key) DeclaringType() *EntityType { return k.declaring }

// Properties returns the key properties in order.
func (k *Key) Properties() []*Property { return k.properties }

// IsPrimary reports if this is the primary key.
func (k *Key) IsPrimary() bool { return k.primary }

// SetName overrides the derived constraint name.
func (k *Key) SetName(name string) *Key {
	k.name = name
	return k
}

// ConstraintName returns the database constraint name of the key on the
// given table: the override if set, "PK_<table>" for the primary key, and
// "AK_<table>_<columns>" for alternate keys.
func (k *Key) ConstraintName(table StoreObject) string {
	if k.name != "" {
		return k.name
	}
	if k.primary {
		return "PK_" + table.Name
	}
	return "AK_" + table.Name + "_" + joinColumns(k.properties)
}

// DeleteBehavior enumerates the modeled delete behaviors of a relationship.
type DeleteBehavior int8

const (
	DeleteNoAction DeleteBehavior = iota
	DeleteClientSetNull
	DeleteClientCascade
	DeleteClientNoAction
	DeleteRestrict
	DeleteCascade
	DeleteSetNull
	DeleteSetDefault
)

// String returns the behavior name.
func (d DeleteBehavior) String() string {
	switch d {
	case DeleteNoAction:
		return "NoAction"
	case DeleteClientSetNull:
		return "ClientSetNull"
	case DeleteClientCascade:
		return "ClientCascade"
	case DeleteClientNoAction:
		return "ClientNoAction"
	case DeleteRestrict:
		return "Restrict"
	case DeleteCascade:
		return "Cascade"
	case DeleteSetNull:
		return "SetNull"
	case DeleteSetDefault:
		return "SetDefault"
	default:
		return "DeleteBehavior(invalid)"
	}
}

// ReferentialAction enumerates the database-level foreign-key actions.
type ReferentialAction int8

const (
	ActionNoAction ReferentialAction = iota
	ActionRestrict
	ActionCascade
	ActionSetNull
	ActionSetDefault
)

// String returns the SQL spelling of the action.
func (a ReferentialAction) String() string {
	switch a {
	case ActionNoAction:
		return "NO ACTION"
	case ActionRestrict:
		return "RESTRICT"
	case ActionCascade:
		return "CASCADE"
	case ActionSetNull:
		return "SET NULL"
	case ActionSetDefault:
		return "SET DEFAULT"
	default:
		return "ReferentialAction(invalid)"
	}
}

// ReferentialAction maps the delete behavior onto its database-level
// action. Client-side behaviors map to NO ACTION since the database is not
// involved. The enumeration is closed: an unmapped value is a fatal
// configuration error, never a silent fallthrough.
func (d DeleteBehavior) ReferentialAction() (ReferentialAction, error) {
	switch d {
	case DeleteNoAction, DeleteClientSetNull, DeleteClientCascade, DeleteClientNoAction:
		return ActionNoAction, nil
	case DeleteRestrict:
		return ActionRestrict, nil
	case DeleteCascade:
		return ActionCascade, nil
	case DeleteSetNull:
		return ActionSetNull, nil
	case DeleteSetDefault:
		return ActionSetDefault, nil
	default:
		return ActionNoAction, relmodel.NewConfigurationError("unmapped delete behavior "+d.String(), nil)
	}
}

// ForeignKey is a relationship from a set of dependent properties to a
// principal key.
type ForeignKey struct {
	declaring     *EntityType
	properties    []*Property
	principalType *EntityType
	principalKey  *Key
	unique        bool
	required      bool
	onDelete      DeleteBehavior
	name          string
}

// DeclaringType returns the dependent entity type.
func (fk *ForeignKey) DeclaringType() *EntityType { return fk.declaring }

// Properties returns the dependent-side properties in order.
func (fk *ForeignKey) Properties() []*Property { return fk.properties }

// PrincipalEntityType returns the principal entity type.
func (fk *ForeignKey) PrincipalEntityType() *EntityType { return fk.principalType }

// PrincipalKey returns the key the relationship targets.
func (fk *ForeignKey) PrincipalKey() *Key { return fk.principalKey }

// SetPrincipalKey targets the relationship at an alternate key.
func (fk *ForeignKey) SetPrincipalKey(k *Key) *ForeignKey {
	fk.principalKey = k
	return fk
}

// IsUnique reports if the relationship is one-to-one.
func (fk *ForeignKey) IsUnique() bool { return fk.unique }

// SetUnique marks the relationship one-to-one.
func (fk *ForeignKey) SetUnique(unique bool) *ForeignKey {
	fk.unique = unique
	return fk
}

// IsRequired reports if the dependent side requires a principal.
func (fk *ForeignKey) IsRequired() bool { return fk.required }

// SetRequired marks the relationship required.
func (fk *ForeignKey) SetRequired(required bool) *ForeignKey {
	fk.required = required
	return fk
}

// DeleteBehavior returns the modeled delete behavior.
func (fk *ForeignKey) DeleteBehavior() DeleteBehavior { return fk.onDelete }

// SetDeleteBehavior sets the modeled delete behavior.
func (fk *ForeignKey) SetDeleteBehavior(d DeleteBehavior) *ForeignKey {
	fk.onDelete = d
	return fk
}

// SetName overrides the derived constraint name.
func (fk *ForeignKey) SetName(name string) *ForeignKey {
	fk.name = name
	return fk
}

// ConstraintName returns the database constraint name of the foreign key
// between the given tables: the override if set, otherwise
// "FK_<table>_<principalTable>_<columns>".
func (fk *ForeignKey) ConstraintName(table, principalTable StoreObject) string {
	if fk.name != "" {
		return fk.name
	}
	return "FK_" + table.Name + "_" + principalTable.Name + "_" + joinColumns(fk.properties)
}

// Index is a database index over a set of properties.
type Index struct {
	declaring  *EntityType
	properties []*Property
	unique     bool
	filter     string
	name       string
}

// DeclaringType returns the entity type the index is declared on.
func (i *Index) DeclaringType() *EntityType { return i.declaring }

// Properties returns the indexed properties in order.
func (i *Index) Properties() []*Property { return i.properties }

// IsUnique reports if this is a unique index.
func (i *Index) IsUnique() bool { return i.unique }

// SetUnique marks the index unique.
func (i *Index) SetUnique(unique bool) *Index {
	i.unique = unique
	return i
}

// Filter returns the partial-index predicate, or "".
func (i *Index) Filter() string { return i.filter }

// SetFilter sets the partial-index predicate.
func (i *Index) SetFilter(filter string) *Index {
	i.filter = filter
	return i
}

// SetDatabaseName overrides the derived index name.
func (i *Index) SetDatabaseName(name string) *Index {
	i.name = name
	return i
}

// DatabaseName returns the database name of the index on the given table:
// the override if set, otherwise "IX_<table>_<columns>".
func (i *Index) DatabaseName(table StoreObject) string {
	if i.name != "" {
		return i.name
	}
	return "IX_" + table.Name + "_" + joinColumns(i.properties)
}

// Navigation is a traversable member of an entity type backed by a
// foreign key.
type Navigation struct {
	declaring   *EntityType
	name        string
	target      *EntityType
	foreignKey  *ForeignKey
	onDependent bool
}

// Name returns the navigation name.
func (n *Navigation) Name() string { return n.name }

// DeclaringType returns the entity type the navigation is declared on.
func (n *Navigation) DeclaringType() *EntityType { return n.declaring }

// TargetEntityType returns the entity type the navigation points to.
func (n *Navigation) TargetEntityType() *EntityType { return n.target }

// ForeignKey returns the foreign key the navigation traverses.
func (n *Navigation) ForeignKey() *ForeignKey { return n.foreignKey }

// IsOnDependent reports if the navigation is declared on the dependent
// side of its foreign key.
func (n *Navigation) IsOnDependent() bool { return n.onDependent }

func joinColumns(props []*Property) string {
	cols := make([]string, len(props))
	for i, p := range props {
		cols[i] = p.column
	}
	return strings.Join(cols, "_")
}
