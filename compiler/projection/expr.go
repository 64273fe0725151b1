// Package projection holds the entity-shaped binding nodes the query
// compiler builds on top of a derived relational schema. A projection is
// an immutable value node; rewrites return the same instance whenever no
// child expression changed.
package projection

import (
	"github.com/syssam/relmodel/relational"
)

// Expr is a projected expression leaf. The shapes are closed: ColumnExpr
// and FragmentExpr.
type Expr interface {
	// IsNullable reports if the expression can evaluate to null.
	IsNullable() bool

	exprNode()
}

// Visitor rewrites one expression leaf. Returning the argument unchanged
// marks the leaf untouched.
type Visitor interface {
	Visit(Expr) Expr
}

// VisitorFunc adapts a function to the Visitor interface.
type VisitorFunc func(Expr) Expr

// Visit calls f(e).
func (f VisitorFunc) Visit(e Expr) Expr { return f(e) }

// ColumnExpr projects one physical column. The nullable flag belongs to
// the projection context, not the column: the same column projects
// non-null in an inner join and nullable through an outer join.
type ColumnExpr struct {
	column   *relational.Column
	nullable bool
}

// NewColumnExpr returns a column expression with the column's own
// nullability.
func NewColumnExpr(c *relational.Column) *ColumnExpr {
	return &ColumnExpr{column: c, nullable: c.IsNullable()}
}

// Column returns the projected column.
func (e *ColumnExpr) Column() *relational.Column { return e.column }

// IsNullable reports if the expression can evaluate to null.
func (e *ColumnExpr) IsNullable() bool { return e.nullable }

// AsNullable returns a nullable variant of the expression, or the same
// instance when it is already nullable.
func (e *ColumnExpr) AsNullable() *ColumnExpr {
	if e.nullable {
		return e
	}
	return &ColumnExpr{column: e.column, nullable: true}
}

func (*ColumnExpr) exprNode() {}

// FragmentExpr projects an opaque expression fragment, such as a
// discriminator literal or a computed expression the compiler carries
// through unchanged.
type FragmentExpr struct {
	fragment string
	nullable bool
}

// NewFragmentExpr returns a non-null fragment expression.
func NewFragmentExpr(fragment string) *FragmentExpr {
	return &FragmentExpr{fragment: fragment}
}

// Fragment returns the raw fragment.
func (e *FragmentExpr) Fragment() string { return e.fragment }

// IsNullable reports if the expression can evaluate to null.
func (e *FragmentExpr) IsNullable() bool { return e.nullable }

func (*FragmentExpr) exprNode() {}
