package relational

import (
	"sort"

	"go.uber.org/zap"

	"github.com/syssam/relmodel/model"
)

// resolveRowInternalForeignKeys detects table splitting on one physical
// object: entity types sharing the object that are linked one-to-one
// through their primary keys. It elects exactly one principal mapping,
// moves it to the front of the mapping list, records the inverse
// dependent-to-principal link map and flags the object shared when any
// participants are neither related by inheritance nor linked.
func (s *Schema) resolveRowInternalForeignKeys(tb *TableBase) {
	if len(tb.mappings) == 0 {
		return
	}
	participants := make(map[*model.EntityType]bool, len(tb.mappings))
	var types []*model.EntityType
	for _, m := range tb.mappings {
		if et := m.EntityType(); !participants[et] {
			participants[et] = true
			types = append(types, et)
		}
	}

	rowInternal := make(map[*model.EntityType][]*model.ForeignKey)
	dependents := make(map[*model.EntityType]bool)
	for _, et := range types {
		// An entity type without a primary key cannot be linked
		// row-internally; it stays a plain shared-table participant.
		if et.PrimaryKey() == nil {
			continue
		}
		for _, fk := range et.DeclaredForeignKeys() {
			if !isRowInternal(et, fk, participants) {
				continue
			}
			principal := fk.PrincipalEntityType()
			rowInternal[principal] = append(rowInternal[principal], fk)
			dependents[et] = true
		}
	}
	for _, fks := range rowInternal {
		sort.Slice(fks, func(i, j int) bool {
			return fks[i].DeclaringType().Name() < fks[j].DeclaringType().Name()
		})
	}
	if len(rowInternal) > 0 {
		tb.rowInternalFKs = rowInternal
	}

	principal := electPrincipal(types, dependents)
	if pm := leafMapping(tb, principal); pm != nil {
		tb.promoteToPrincipal(pm)
		s.logger.Debug("elected shared-table principal",
			zap.String("object", tb.ID().String()),
			zap.String("entityType", principal.Name()))
	}
	tb.shared = countComponents(types, rowInternal) > 1
}

// isRowInternal reports if fk is a row-internal link within the given
// participant set: a unique relationship from the dependent's primary key
// to a primary key of an unrelated entity type on the same object.
func isRowInternal(et *model.EntityType, fk *model.ForeignKey, participants map[*model.EntityType]bool) bool {
	pk := et.PrimaryKey()
	switch {
	case !fk.IsUnique():
		return false
	case !fk.PrincipalKey().IsPrimary():
		return false
	case !participants[fk.PrincipalEntityType()]:
		return false
	case et.RelatedTo(fk.PrincipalEntityType()):
		return false
	}
	return samePropertySet(fk.Properties(), pk.Properties())
}

// electPrincipal picks the principal entity type among the participants
// that are not row-internal dependents. The order is total: entity types
// without a primary key first, then the more general of two related
// types, ties broken by name.
func electPrincipal(types []*model.EntityType, dependents map[*model.EntityType]bool) *model.EntityType {
	var principal *model.EntityType
	for _, et := range types {
		if dependents[et] {
			continue
		}
		if principal == nil || principalBefore(et, principal) {
			principal = et
		}
	}
	if principal == nil {
		// Every participant is a dependent of another; fall back to the
		// first in mapping order.
		principal = types[0]
	}
	return principal
}

func principalBefore(a, b *model.EntityType) bool {
	aNoPK, bNoPK := a.PrimaryKey() == nil, b.PrimaryKey() == nil
	if aNoPK != bNoPK {
		return aNoPK
	}
	if a.IsAssignableFrom(b) {
		return true
	}
	if b.IsAssignableFrom(a) {
		return false
	}
	return a.Name() < b.Name()
}

// leafMapping returns the mapping of et on tb that includes derived
// types, falling back to its first mapping on tb.
func leafMapping(tb *TableBase, et *model.EntityType) EntityTypeMapping {
	var first EntityTypeMapping
	for _, m := range tb.mappings {
		if m.EntityType() != et {
			continue
		}
		if m.IncludesDerivedTypes() {
			return m
		}
		if first == nil {
			first = m
		}
	}
	return first
}

// countComponents returns the number of connected components over the
// participants, where two entity types are connected when they are
// related by inheritance or linked by a row-internal foreign key.
func countComponents(types []*model.EntityType, rowInternal map[*model.EntityType][]*model.ForeignKey) int {
	index := make(map[*model.EntityType]int, len(types))
	for i, et := range types {
		index[et] = i
	}
	parent := make([]int, len(types))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	union := func(i, j int) {
		ri, rj := find(i), find(j)
		if ri != rj {
			parent[ri] = rj
		}
	}
	for i, a := range types {
		for j := i + 1; j < len(types); j++ {
			if a.RelatedTo(types[j]) {
				union(i, j)
			}
		}
	}
	for principal, fks := range rowInternal {
		for _, fk := range fks {
			union(index[fk.DeclaringType()], index[principal])
		}
	}
	components := 0
	for i := range types {
		if find(i) == i {
			components++
		}
	}
	return components
}

func samePropertySet(a, b []*model.Property) bool {
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
