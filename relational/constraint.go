package relational

import (
	"go.uber.org/zap"

	"github.com/syssam/relmodel/model"
)

// UniqueConstraint is a physical unique constraint, including the primary
// key. Several metadata keys collapse onto one constraint when entity
// types sharing a table derive the same constraint name.
type UniqueConstraint struct {
	annotatable
	name       string
	table      *Table
	columns    []*Column
	primary    bool
	mappedKeys []*model.Key
}

// Name returns the constraint name.
func (c *UniqueConstraint) Name() string { return c.name }

// Table returns the owning table.
func (c *UniqueConstraint) Table() *Table { return c.table }

// Columns returns the constrained columns in order.
func (c *UniqueConstraint) Columns() []*Column { return c.columns }

// IsPrimaryKey reports if this is the table's primary key.
func (c *UniqueConstraint) IsPrimaryKey() bool { return c.primary }

// MappedKeys returns the metadata keys this constraint was synthesized from.
func (c *UniqueConstraint) MappedKeys() []*model.Key { return c.mappedKeys }

// ForeignKeyConstraint is a physical foreign-key constraint.
type ForeignKeyConstraint struct {
	annotatable
	name              string
	table             *Table
	columns           []*Column
	principalTable    *Table
	principalColumns  []*Column
	onDelete          model.ReferentialAction
	mappedForeignKeys []*model.ForeignKey
}

// Name returns the constraint name.
func (c *ForeignKeyConstraint) Name() string { return c.name }

// Table returns the dependent table.
func (c *ForeignKeyConstraint) Table() *Table { return c.table }

// Columns returns the dependent columns in order.
func (c *ForeignKeyConstraint) Columns() []*Column { return c.columns }

// PrincipalTable returns the principal table.
func (c *ForeignKeyConstraint) PrincipalTable() *Table { return c.principalTable }

// PrincipalColumns returns the principal columns in order.
func (c *ForeignKeyConstraint) PrincipalColumns() []*Column { return c.principalColumns }

// OnDelete returns the referential action.
func (c *ForeignKeyConstraint) OnDelete() model.ReferentialAction { return c.onDelete }

// MappedForeignKeys returns the metadata foreign keys this constraint was
// synthesized from.
func (c *ForeignKeyConstraint) MappedForeignKeys() []*model.ForeignKey {
	return c.mappedForeignKeys
}

// TableIndex is a physical index.
type TableIndex struct {
	annotatable
	name          string
	table         *Table
	columns       []*Column
	unique        bool
	filter        string
	mappedIndexes []*model.Index
}

// Name returns the index name.
func (i *TableIndex) Name() string { return i.name }

// Table returns the owning table.
func (i *TableIndex) Table() *Table { return i.table }

// Columns returns the indexed columns in order.
func (i *TableIndex) Columns() []*Column { return i.columns }

// IsUnique reports if this is a unique index.
func (i *TableIndex) IsUnique() bool { return i.unique }

// Filter returns the partial-index predicate, or "".
func (i *TableIndex) Filter() string { return i.filter }

// MappedIndexes returns the metadata indexes this index was synthesized from.
func (i *TableIndex) MappedIndexes() []*model.Index { return i.mappedIndexes }

// addForeignKeyConstraints synthesizes the foreign-key constraints of one
// table from the foreign keys of every entity type mapped to it. A foreign
// key whose columns cannot all be resolved on this table is mapped
// elsewhere and skipped here; a constraint whose dependent and principal
// column sequences coincide, or whose principal hierarchy is not fully
// contained in one table, is unenforceable and omitted.
func (s *Schema) addForeignKeyConstraints(t *Table) error {
	for _, m := range t.mappings {
		for _, fk := range m.EntityType().ForeignKeys() {
			if err := s.addForeignKeyConstraint(t, fk); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Schema) addForeignKeyConstraint(t *Table, fk *model.ForeignKey) error {
	principal := fk.PrincipalEntityType()
	pms := s.tableMappings[principal]
	if len(pms) == 0 {
		s.logger.Debug("skipping foreign key constraint: principal not mapped to a table",
			zap.String("table", t.name), zap.String("principal", principal.Name()))
		return nil
	}
	// The principal's own leaf mapping is last after the reverse step.
	pm := pms[len(pms)-1]
	for _, derived := range principal.DescendantTypes() {
		if !s.mappedToTable(derived, pm.table) {
			s.logger.Debug("skipping foreign key constraint: principal hierarchy spans unmerged tables",
				zap.String("table", t.name), zap.String("principal", principal.Name()),
				zap.String("derived", derived.Name()))
			return nil
		}
	}
	columns, ok := s.columnsIn(fk.Properties(), &t.TableBase)
	if !ok {
		return nil
	}
	principalColumns, ok := s.columnsIn(fk.PrincipalKey().Properties(), &pm.table.TableBase)
	if !ok {
		return nil
	}
	if pm.table == t && sameColumns(columns, principalColumns) {
		s.logger.Debug("skipping foreign key constraint: dependent and principal columns coincide",
			zap.String("table", t.name))
		return nil
	}
	name := fk.ConstraintName(t.ID(), pm.table.ID())
	if existing, ok := t.foreignKeys[name]; ok {
		existing.mappedForeignKeys = appendForeignKey(existing.mappedForeignKeys, fk)
		return nil
	}
	onDelete, err := fk.DeleteBehavior().ReferentialAction()
	if err != nil {
		return err
	}
	t.foreignKeys[name] = &ForeignKeyConstraint{
		name:              name,
		table:             t,
		columns:           columns,
		principalTable:    pm.table,
		principalColumns:  principalColumns,
		onDelete:          onDelete,
		mappedForeignKeys: []*model.ForeignKey{fk},
	}
	return nil
}

// addKeys synthesizes the unique constraints of one table, designating the
// primary key. The first metadata key to derive a constraint name creates
// the constraint; later keys with the same name attach to it.
func (s *Schema) addKeys(t *Table) {
	for _, m := range t.mappings {
		for _, key := range m.EntityType().Keys() {
			columns, ok := s.columnsIn(key.Properties(), &t.TableBase)
			if !ok {
				continue
			}
			name := key.ConstraintName(t.ID())
			if existing, ok := t.uniqueConstraints[name]; ok {
				existing.mappedKeys = appendKey(existing.mappedKeys, key)
				continue
			}
			uc := &UniqueConstraint{
				name:       name,
				table:      t,
				columns:    columns,
				primary:    key.IsPrimary(),
				mappedKeys: []*model.Key{key},
			}
			t.uniqueConstraints[name] = uc
			if key.IsPrimary() && t.primaryKey == nil {
				t.primaryKey = uc
			}
		}
	}
}

// addIndexes synthesizes the indexes of one table with the same
// dedup-by-name pattern as keys.
func (s *Schema) addIndexes(t *Table) {
	for _, m := range t.mappings {
		for _, idx := range m.EntityType().Indexes() {
			columns, ok := s.columnsIn(idx.Properties(), &t.TableBase)
			if !ok {
				continue
			}
			name := idx.DatabaseName(t.ID())
			if existing, ok := t.indexes[name]; ok {
				existing.mappedIndexes = appendIndex(existing.mappedIndexes, idx)
				continue
			}
			t.indexes[name] = &TableIndex{
				name:          name,
				table:         t,
				columns:       columns,
				unique:        idx.IsUnique(),
				filter:        idx.Filter(),
				mappedIndexes: []*model.Index{idx},
			}
		}
	}
}

// columnsIn resolves each property to its column in the given object via
// the per-property mapping cache. It reports false when any property is
// not mapped there.
func (s *Schema) columnsIn(props []*model.Property, tb *TableBase) ([]*Column, bool) {
	columns := make([]*Column, len(props))
	for i, p := range props {
		var found *Column
		for _, cm := range s.propertyMappings[p] {
			if cm.column.table == tb {
				found = cm.column
				break
			}
		}
		if found == nil {
			return nil, false
		}
		columns[i] = found
	}
	return columns, true
}

func (s *Schema) mappedToTable(et *model.EntityType, t *Table) bool {
	for _, m := range s.tableMappings[et] {
		if m.table == t {
			return true
		}
	}
	return false
}

func sameColumns(a, b []*Column) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func appendForeignKey(fks []*model.ForeignKey, fk *model.ForeignKey) []*model.ForeignKey {
	for _, f := range fks {
		if f == fk {
			return fks
		}
	}
	return append(fks, fk)
}

func appendKey(keys []*model.Key, k *model.Key) []*model.Key {
	for _, existing := range keys {
		if existing == k {
			return keys
		}
	}
	return append(keys, k)
}

func appendIndex(idxs []*model.Index, idx *model.Index) []*model.Index {
	for _, existing := range idxs {
		if existing == idx {
			return idxs
		}
	}
	return append(idxs, idx)
}
