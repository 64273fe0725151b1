package relational

// AnnotationProvider decorates relational objects with provider-specific
// annotations after the structural build. A nil return skips the object.
// Providers run before the schema freezes; annotation maps are not mutated
// afterwards.
type AnnotationProvider interface {
	ForSchema(s *Schema) []Annotation
	ForTable(t *Table) []Annotation
	ForColumn(c *Column) []Annotation
	ForView(v *View) []Annotation
	ForViewColumn(c *Column) []Annotation
	ForUniqueConstraint(uc *UniqueConstraint) []Annotation
	ForTableIndex(idx *TableIndex) []Annotation
	ForForeignKeyConstraint(fk *ForeignKeyConstraint) []Annotation
	ForSequence(seq *Sequence) []Annotation
}

// applyAnnotations runs the provider over the schema and every object in
// enumeration order.
func (s *Schema) applyAnnotations(p AnnotationProvider) {
	if p == nil {
		return
	}
	annotate(&s.annotatable, p.ForSchema(s))
	for _, t := range s.tableList {
		annotate(&t.annotatable, p.ForTable(t))
		for _, c := range t.Columns() {
			annotate(&c.annotatable, p.ForColumn(c))
		}
		for _, uc := range t.UniqueConstraints() {
			annotate(&uc.annotatable, p.ForUniqueConstraint(uc))
		}
		for _, idx := range t.Indexes() {
			annotate(&idx.annotatable, p.ForTableIndex(idx))
		}
		for _, fk := range t.ForeignKeyConstraints() {
			annotate(&fk.annotatable, p.ForForeignKeyConstraint(fk))
		}
	}
	for _, v := range s.viewList {
		annotate(&v.annotatable, p.ForView(v))
		for _, c := range v.Columns() {
			annotate(&c.annotatable, p.ForViewColumn(c))
		}
	}
	for _, seq := range s.sequences {
		annotate(&seq.annotatable, p.ForSequence(seq))
	}
}

func annotate(a *annotatable, anns []Annotation) {
	for _, an := range anns {
		a.SetAnnotation(an.Name, an.Value)
	}
}
