// Package migrate bridges a derived relational schema to atlas schema
// objects, the input of downstream diffing and migration tooling. The
// bridge is one-way and structural: SQL generation and diffing stay with
// atlas.
package migrate

import (
	"fmt"

	"ariga.io/atlas/sql/schema"

	"github.com/syssam/relmodel/model"
	"github.com/syssam/relmodel/relational"
)

// ExportTables converts every table of the derived schema into an atlas
// table, skipping tables excluded from migrations. Tables come back in
// the schema's sorted enumeration order with foreign keys wired to the
// exported instances.
func ExportTables(s *relational.Schema) ([]*schema.Table, error) {
	byKey := make(map[string]*schema.Table)
	var out []*schema.Table
	for _, t := range s.Tables() {
		if t.IsExcludedFromMigrations() {
			continue
		}
		st := schema.NewTable(t.Name())
		if t.Schema() != "" {
			st.SetSchema(schema.New(t.Schema()))
		}
		for _, c := range t.Columns() {
			st.AddColumns(&schema.Column{
				Name: c.Name(),
				Type: &schema.ColumnType{Raw: c.StoreType(), Null: c.IsNullable()},
			})
		}
		if pk := t.PrimaryKey(); pk != nil {
			st.SetPrimaryKey(exportIndex(st, pk.Name(), pk.Columns(), true))
		}
		for _, uc := range t.UniqueConstraints() {
			if uc.IsPrimaryKey() {
				continue
			}
			st.AddIndexes(exportIndex(st, uc.Name(), uc.Columns(), true))
		}
		for _, idx := range t.Indexes() {
			st.AddIndexes(exportIndex(st, idx.Name(), idx.Columns(), idx.IsUnique()))
		}
		byKey[t.ID().String()] = st
		out = append(out, st)
	}
	for _, t := range s.Tables() {
		if t.IsExcludedFromMigrations() {
			continue
		}
		st := byKey[t.ID().String()]
		for _, fk := range t.ForeignKeyConstraints() {
			ref, ok := byKey[fk.PrincipalTable().ID().String()]
			if !ok {
				// Principal opted out of migrations; the constraint
				// cannot reference a table atlas will not manage.
				continue
			}
			onDelete, err := exportAction(fk.OnDelete())
			if err != nil {
				return nil, err
			}
			st.AddForeignKeys(&schema.ForeignKey{
				Symbol:     fk.Name(),
				Table:      st,
				Columns:    tableColumns(st, fk.Columns()),
				RefTable:   ref,
				RefColumns: tableColumns(ref, fk.PrincipalColumns()),
				OnDelete:   onDelete,
			})
		}
	}
	return out, nil
}

func exportIndex(st *schema.Table, name string, cols []*relational.Column, unique bool) *schema.Index {
	idx := &schema.Index{Name: name, Unique: unique, Table: st}
	for i, c := range cols {
		sc, _ := st.Column(c.Name())
		idx.Parts = append(idx.Parts, &schema.IndexPart{SeqNo: i, C: sc})
	}
	return idx
}

func tableColumns(st *schema.Table, cols []*relational.Column) []*schema.Column {
	out := make([]*schema.Column, len(cols))
	for i, c := range cols {
		out[i], _ = st.Column(c.Name())
	}
	return out
}

// exportAction maps the modeled referential action onto atlas's. The
// enumeration is closed; an unmapped value is an error, never a silent
// fallthrough.
func exportAction(a model.ReferentialAction) (schema.ReferenceOption, error) {
	switch a {
	case model.ActionNoAction:
		return schema.NoAction, nil
	case model.ActionRestrict:
		return schema.Restrict, nil
	case model.ActionCascade:
		return schema.Cascade, nil
	case model.ActionSetNull:
		return schema.SetNull, nil
	case model.ActionSetDefault:
		return schema.SetDefault, nil
	default:
		return "", fmt.Errorf("migrate: unmapped referential action %q", a.String())
	}
}
