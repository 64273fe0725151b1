// Package gen renders Go constant declarations for the physical names of
// a derived schema: table, column, constraint and sequence identifiers
// usable by hand-written query code without string literals.
package gen

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dave/jennifer/jen"
	"github.com/go-openapi/inflect"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/syssam/relmodel/relational"
)

var titleCaser = cases.Title(language.English)

// Generate renders one Go source file declaring name constants for every
// table, view and sequence of the schema, in the schema's sorted
// enumeration order.
func Generate(s *relational.Schema, pkg string) ([]byte, error) {
	f := jen.NewFile(pkg)
	f.HeaderComment("Code generated by relmodel, DO NOT EDIT.")

	for _, t := range s.Tables() {
		ident := exportedIdent(t.Name())
		defs := []jen.Code{
			jen.Commentf("%sTable is the table holding %s rows.", ident, entityList(t.EntityTypeMappings())),
			jen.Id(ident + "Table").Op("=").Lit(t.Name()),
		}
		for _, c := range t.Columns() {
			defs = append(defs, jen.Id(ident+"Column"+exportedIdent(c.Name())).Op("=").Lit(c.Name()))
		}
		if pk := t.PrimaryKey(); pk != nil {
			defs = append(defs, jen.Id(ident+"PrimaryKey").Op("=").Lit(pk.Name()))
		}
		for _, uc := range t.UniqueConstraints() {
			if uc.IsPrimaryKey() {
				continue
			}
			defs = append(defs, jen.Id(exportedIdent(uc.Name())).Op("=").Lit(uc.Name()))
		}
		for _, idx := range t.Indexes() {
			defs = append(defs, jen.Id(exportedIdent(idx.Name())).Op("=").Lit(idx.Name()))
		}
		for _, fk := range t.ForeignKeyConstraints() {
			defs = append(defs, jen.Id(exportedIdent(fk.Name())).Op("=").Lit(fk.Name()))
		}
		f.Const().Defs(defs...)
	}
	for _, v := range s.Views() {
		ident := exportedIdent(v.Name())
		defs := []jen.Code{
			jen.Commentf("%sView is the view holding %s rows.", ident, entityList(v.EntityTypeMappings())),
			jen.Id(ident + "View").Op("=").Lit(v.Name()),
		}
		for _, c := range v.Columns() {
			defs = append(defs, jen.Id(ident+"Column"+exportedIdent(c.Name())).Op("=").Lit(c.Name()))
		}
		f.Const().Defs(defs...)
	}
	if seqs := s.Sequences(); len(seqs) > 0 {
		defs := make([]jen.Code, 0, len(seqs))
		for _, seq := range seqs {
			defs = append(defs, jen.Id("Sequence"+exportedIdent(seq.Name())).Op("=").Lit(seq.Name()))
		}
		f.Const().Defs(defs...)
	}

	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, fmt.Errorf("gen: rendering %s constants: %w", pkg, err)
	}
	return buf.Bytes(), nil
}

// exportedIdent turns a physical name into an exported Go identifier:
// "order_items" becomes "OrderItems", "customer_id" becomes "CustomerID".
func exportedIdent(name string) string {
	parts := strings.Split(inflect.Underscore(name), "_")
	for i, p := range parts {
		if p == "id" {
			parts[i] = "ID"
			continue
		}
		parts[i] = titleCaser.String(p)
	}
	return strings.Join(parts, "")
}

func entityList(ms []relational.EntityTypeMapping) string {
	names := make([]string, len(ms))
	for i, m := range ms {
		names[i] = m.EntityType().Name()
	}
	return strings.Join(names, ", ")
}
