package relational

import (
	"github.com/syssam/relmodel/model"
)

// tableKey is the physical identity of a table or view.
type tableKey struct {
	name   string
	schema string
}

// addTableMappings maps one entity type onto tables: it walks the
// inheritance chain upward, producing one mapping per distinct
// (name, schema) reached, and stops when a base type has no table or when
// the chain closes on an already-visited table. The accumulated list is
// reversed so the root mapping comes first and the entity's own leaf
// mapping, the only one that includes derived types, comes last.
func (s *Schema) addTableMappings(et *model.EntityType) {
	if name, _ := et.TableName(); name == "" {
		return
	}
	var mappings []*TableMapping
	visited := make(map[tableKey]struct{})
	for mappedType := et; mappedType != nil; mappedType = mappedType.Base() {
		name, schema := mappedType.TableName()
		if name == "" {
			break
		}
		key := tableKey{name: name, schema: schema}
		if _, ok := visited[key]; ok {
			break
		}
		visited[key] = struct{}{}
		table := s.getOrCreateTable(name, schema)
		so := model.TableObject(name, schema)
		tm := &TableMapping{
			mappingBase: mappingBase{
				entityType:           et,
				includesDerivedTypes: mappedType == et,
			},
			table: table,
		}
		for _, p := range mappedType.Properties() {
			columnName := p.ColumnNameIn(so)
			if columnName == "" {
				continue
			}
			column := table.getOrCreateColumn(columnName, p.StoreType(), p.IsColumnNullableIn(so))
			cm := &ColumnMapping{property: p, column: column, storeType: p.StoreType(), mapping: tm}
			tm.columnMappings = append(tm.columnMappings, cm)
			column.propertyMappings = append(column.propertyMappings, cm)
			s.propertyMappings[p] = append(s.propertyMappings[p], cm)
		}
		// A mapping contributing no columns is dropped, unless it is the
		// entity type's only mapping so far.
		if len(tm.columnMappings) > 0 || len(mappings) == 0 {
			mappings = append(mappings, tm)
			table.mappings = append(table.mappings, tm)
		}
	}
	if len(mappings) == 0 {
		return
	}
	reverseMappings(mappings)
	if len(mappings) > 1 {
		mappings[len(mappings)-1].splitEntityTypePrincipal = true
	}
	s.tableMappings[et] = mappings
}

// addViewMappings is the view-flavored twin of addTableMappings.
func (s *Schema) addViewMappings(et *model.EntityType) {
	if name, _ := et.ViewName(); name == "" {
		return
	}
	var mappings []*ViewMapping
	visited := make(map[tableKey]struct{})
	for mappedType := et; mappedType != nil; mappedType = mappedType.Base() {
		name, schema := mappedType.ViewName()
		if name == "" {
			break
		}
		key := tableKey{name: name, schema: schema}
		if _, ok := visited[key]; ok {
			break
		}
		visited[key] = struct{}{}
		view := s.getOrCreateView(name, schema)
		so := model.ViewObject(name, schema)
		vm := &ViewMapping{
			mappingBase: mappingBase{
				entityType:           et,
				includesDerivedTypes: mappedType == et,
			},
			view: view,
		}
		for _, p := range mappedType.Properties() {
			columnName := p.ColumnNameIn(so)
			if columnName == "" {
				continue
			}
			column := view.getOrCreateColumn(columnName, p.StoreType(), p.IsColumnNullableIn(so))
			cm := &ColumnMapping{property: p, column: column, storeType: p.StoreType(), mapping: vm}
			vm.columnMappings = append(vm.columnMappings, cm)
			column.propertyMappings = append(column.propertyMappings, cm)
			s.propertyMappings[p] = append(s.propertyMappings[p], cm)
		}
		if len(vm.columnMappings) > 0 || len(mappings) == 0 {
			mappings = append(mappings, vm)
			view.mappings = append(view.mappings, vm)
		}
	}
	if len(mappings) == 0 {
		return
	}
	reverseViewMappings(mappings)
	s.viewMappings[et] = mappings
}

func (s *Schema) getOrCreateTable(name, schema string) *Table {
	key := tableKey{name: name, schema: schema}
	if t, ok := s.tables[key]; ok {
		return t
	}
	t := newTable(name, schema)
	s.tables[key] = t
	return t
}

func (s *Schema) getOrCreateView(name, schema string) *View {
	key := tableKey{name: name, schema: schema}
	if v, ok := s.views[key]; ok {
		return v
	}
	v := newView(name, schema)
	s.views[key] = v
	return v
}

func reverseMappings(ms []*TableMapping) {
	for i, j := 0, len(ms)-1; i < j; i, j = i+1, j-1 {
		ms[i], ms[j] = ms[j], ms[i]
	}
}

func reverseViewMappings(ms []*ViewMapping) {
	for i, j := 0, len(ms)-1; i < j; i, j = i+1, j-1 {
		ms[i], ms[j] = ms[j], ms[i]
	}
}
