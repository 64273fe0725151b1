package projection

import (
	"sort"

	"github.com/syssam/relmodel"
	"github.com/syssam/relmodel/model"
	"github.com/syssam/relmodel/relational"
)

// Shaper turns a projection binding into a materialized object. The query
// compiler supplies concrete shapers; this package only stores them as
// opaque nested nodes. EntityProjection is itself a Shaper, so projections
// nest directly.
type Shaper interface {
	ShapedEntityType() *model.EntityType
}

// EntityProjection binds one entity type reference in a query to the
// columns of its leaf table or view mapping. Except for the append-only
// navigation bindings it is immutable; the narrowing and rewrite
// operations return new nodes.
type EntityProjection struct {
	entityType *model.EntityType
	// properties fixes a deterministic enumeration order over columns.
	properties     []*model.Property
	columns        map[*model.Property]*ColumnExpr
	discTypes      []*model.EntityType
	discriminators map[*model.EntityType]Expr
	navigations    map[*model.Navigation]Shaper
}

// Option configures a new projection.
type Option func(*EntityProjection) error

// WithDiscriminator attaches the expression identifying rows of the given
// entity type, which must be the projected type itself or one of its
// descendants.
func WithDiscriminator(et *model.EntityType, expr Expr) Option {
	return func(p *EntityProjection) error {
		if !p.entityType.IsAssignableFrom(et) {
			return relmodel.NewBindingError("discriminator", et.Name(), p.entityType.Name())
		}
		p.setDiscriminator(et, expr)
		return nil
	}
}

// New builds a projection of the entity type over its leaf mapping in the
// schema, preferring the table mapping and falling back to the view
// mapping. Every mapped property binds to one column expression carrying
// the column's own nullability.
func New(s *relational.Schema, et *model.EntityType, opts ...Option) (*EntityProjection, error) {
	p := &EntityProjection{
		entityType:     et,
		columns:        make(map[*model.Property]*ColumnExpr),
		discriminators: make(map[*model.EntityType]Expr),
		navigations:    make(map[*model.Navigation]Shaper),
	}
	var cms []*relational.ColumnMapping
	switch {
	case len(s.TableMappings(et)) > 0:
		tms := s.TableMappings(et)
		cms = tms[len(tms)-1].ColumnMappings()
	case len(s.ViewMappings(et)) > 0:
		vms := s.ViewMappings(et)
		cms = vms[len(vms)-1].ColumnMappings()
	default:
		return nil, relmodel.NewConfigurationError("entity type "+et.Name()+" has no table or view mapping", nil)
	}
	for _, cm := range cms {
		p.properties = append(p.properties, cm.Property())
		p.columns[cm.Property()] = NewColumnExpr(cm.Column())
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// EntityType returns the projected entity type.
func (p *EntityProjection) EntityType() *model.EntityType { return p.entityType }

// ShapedEntityType implements Shaper.
func (p *EntityProjection) ShapedEntityType() *model.EntityType { return p.entityType }

// Properties returns the bound properties in binding order.
func (p *EntityProjection) Properties() []*model.Property { return p.properties }

// BindProperty returns the column expression of the property. A property
// whose declaring type is unrelated to the projected type, or that was not
// populated at construction, is a caller contract violation.
func (p *EntityProjection) BindProperty(prop *model.Property) (*ColumnExpr, error) {
	if !p.entityType.RelatedTo(prop.DeclaringType()) {
		return nil, relmodel.NewBindingError(prop.Name(), prop.DeclaringType().Name(), p.entityType.Name())
	}
	e, ok := p.columns[prop]
	if !ok {
		return nil, relmodel.NewBindingError(prop.Name(), prop.DeclaringType().Name(), p.entityType.Name())
	}
	return e, nil
}

// AddNavigationBinding stores the nested shaper of a bound navigation.
// Re-adding replaces the previous shaper.
func (p *EntityProjection) AddNavigationBinding(n *model.Navigation, shaper Shaper) error {
	if !p.entityType.RelatedTo(n.DeclaringType()) {
		return relmodel.NewBindingError(n.Name(), n.DeclaringType().Name(), p.entityType.Name())
	}
	p.navigations[n] = shaper
	return nil
}

// BindNavigation returns the shaper of a previously bound navigation. A
// navigation that has not been bound yet reports false, not an error; the
// caller treats it as not loaded in this projection.
func (p *EntityProjection) BindNavigation(n *model.Navigation) (Shaper, bool, error) {
	if !p.entityType.RelatedTo(n.DeclaringType()) {
		return nil, false, relmodel.NewBindingError(n.Name(), n.DeclaringType().Name(), p.entityType.Name())
	}
	shaper, ok := p.navigations[n]
	return shaper, ok, nil
}

// DiscriminatorFor returns the discriminator expression of the given
// entity type, if one was attached.
func (p *EntityProjection) DiscriminatorFor(et *model.EntityType) (Expr, bool) {
	e, ok := p.discriminators[et]
	return e, ok
}

// DiscriminatedTypes returns the entity types carrying a discriminator,
// sorted by name.
func (p *EntityProjection) DiscriminatedTypes() []*model.EntityType { return p.discTypes }

// MakeNullable returns a projection whose columns are all nullable, for
// entities reached through an optional or outer-joined context. The same
// instance comes back when every column is already nullable.
func (p *EntityProjection) MakeNullable() *EntityProjection {
	changed := false
	columns := make(map[*model.Property]*ColumnExpr, len(p.columns))
	for prop, e := range p.columns {
		ne := e.AsNullable()
		if ne != e {
			changed = true
		}
		columns[prop] = ne
	}
	if !changed {
		return p
	}
	return &EntityProjection{
		entityType:     p.entityType,
		properties:     p.properties,
		columns:        columns,
		discTypes:      p.discTypes,
		discriminators: p.discriminators,
		navigations:    copyNavigations(p.navigations),
	}
}

// NarrowTo returns a projection restricted to the derived type: only
// property bindings and discriminators whose entity type is related to it
// survive. Narrowing to an unrelated type is a contract violation.
func (p *EntityProjection) NarrowTo(derived *model.EntityType) (*EntityProjection, error) {
	if !p.entityType.RelatedTo(derived) {
		return nil, relmodel.NewBindingError("projection", p.entityType.Name(), derived.Name())
	}
	np := &EntityProjection{
		entityType:     derived,
		columns:        make(map[*model.Property]*ColumnExpr),
		discriminators: make(map[*model.EntityType]Expr),
		navigations:    make(map[*model.Navigation]Shaper),
	}
	for _, prop := range p.properties {
		if !derived.RelatedTo(prop.DeclaringType()) {
			continue
		}
		np.properties = append(np.properties, prop)
		np.columns[prop] = p.columns[prop]
	}
	for _, et := range p.discTypes {
		if !derived.RelatedTo(et) {
			continue
		}
		np.setDiscriminator(et, p.discriminators[et])
	}
	for n, shaper := range p.navigations {
		if derived.RelatedTo(n.DeclaringType()) {
			np.navigations[n] = shaper
		}
	}
	return np, nil
}

// Rewrite visits every column and discriminator expression. It returns
// the identical node when no visited expression changed by reference, and
// a new node with the rewritten maps otherwise. Navigation bindings are
// leaves for rewrite purposes and carry over unchanged.
func (p *EntityProjection) Rewrite(v Visitor) *EntityProjection {
	changed := false
	columns := make(map[*model.Property]*ColumnExpr, len(p.columns))
	for prop, e := range p.columns {
		ne := v.Visit(e)
		if ne != Expr(e) {
			changed = true
		}
		columns[prop] = ne.(*ColumnExpr)
	}
	discriminators := make(map[*model.EntityType]Expr, len(p.discriminators))
	for et, e := range p.discriminators {
		ne := v.Visit(e)
		if ne != e {
			changed = true
		}
		discriminators[et] = ne
	}
	if !changed {
		return p
	}
	return &EntityProjection{
		entityType:     p.entityType,
		properties:     p.properties,
		columns:        columns,
		discTypes:      p.discTypes,
		discriminators: discriminators,
		navigations:    copyNavigations(p.navigations),
	}
}

func (p *EntityProjection) setDiscriminator(et *model.EntityType, expr Expr) {
	if _, ok := p.discriminators[et]; !ok {
		p.discTypes = append(p.discTypes, et)
		sort.Slice(p.discTypes, func(i, j int) bool {
			return p.discTypes[i].Name() < p.discTypes[j].Name()
		})
	}
	p.discriminators[et] = expr
}

func copyNavigations(m map[*model.Navigation]Shaper) map[*model.Navigation]Shaper {
	out := make(map[*model.Navigation]Shaper, len(m))
	for n, s := range m {
		out[n] = s
	}
	return out
}
