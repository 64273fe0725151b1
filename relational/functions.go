package relational

import (
	"github.com/syssam/relmodel"
	"github.com/syssam/relmodel/model"
)

// addFunctionMappings binds entity types to store functions. An entity
// type that declares a function mapping is walked up its hierarchy exactly
// like the table walk, against parameter-typed function identity. A
// table-valued function whose return type matches an entity type without
// an own function mapping gets a synthesized, non-default mapping. All
// model-level definitions are registered, folding scalar and aggregate
// definitions that share one physical identity.
func (s *Schema) addFunctionMappings() error {
	for _, et := range s.model.EntityTypes() {
		if et.FunctionName() == "" {
			continue
		}
		if err := s.addDeclaredFunctionMappings(et); err != nil {
			return err
		}
	}
	for _, dbf := range s.model.Functions() {
		sf := s.getOrCreateStoreFunction(dbf)
		ret := dbf.ReturnEntityType()
		if ret == nil || ret.FunctionName() != "" {
			continue
		}
		s.addSynthesizedFunctionMapping(sf, dbf, ret)
	}
	return nil
}

func (s *Schema) addDeclaredFunctionMappings(et *model.EntityType) error {
	var mappings []*FunctionMapping
	visited := make(map[functionKey]struct{})
	for mappedType := et; mappedType != nil; mappedType = mappedType.Base() {
		modelName := mappedType.FunctionName()
		if modelName == "" {
			break
		}
		dbf := s.model.FindFunction(modelName)
		if dbf == nil {
			return relmodel.NewConfigurationError("entity type "+et.Name()+" maps to unknown function "+modelName, nil)
		}
		sf := s.getOrCreateStoreFunction(dbf)
		key := functionKeyOf(sf.name, sf.schema, sf.ParameterTypes())
		if _, ok := visited[key]; ok {
			break
		}
		visited[key] = struct{}{}
		fm := &FunctionMapping{
			mappingBase: mappingBase{
				entityType:           et,
				includesDerivedTypes: mappedType == et,
			},
			function:   sf,
			dbFunction: dbf,
			isDefault:  true,
		}
		so := model.FunctionObject(sf.name, sf.schema)
		for _, p := range mappedType.Properties() {
			columnName := p.ColumnNameIn(so)
			if columnName == "" {
				continue
			}
			column := sf.getOrCreateColumn(columnName, p.StoreType(), p.IsColumnNullableIn(so))
			cm := &ColumnMapping{property: p, column: column, storeType: p.StoreType(), mapping: fm}
			fm.columnMappings = append(fm.columnMappings, cm)
			column.propertyMappings = append(column.propertyMappings, cm)
			s.propertyMappings[p] = append(s.propertyMappings[p], cm)
		}
		if len(fm.columnMappings) > 0 || len(mappings) == 0 {
			mappings = append(mappings, fm)
			sf.mappings = append(sf.mappings, fm)
		}
	}
	if len(mappings) == 0 {
		return nil
	}
	reverseFunctionMappings(mappings)
	s.functionMappings[et] = mappings
	return nil
}

// addSynthesizedFunctionMapping binds a table-valued function's return
// entity type when that type has no function mapping of its own. The
// function returns complete rows, so every property of the entity type
// maps by its default column name.
func (s *Schema) addSynthesizedFunctionMapping(sf *StoreFunction, dbf *model.DbFunction, et *model.EntityType) {
	fm := &FunctionMapping{
		mappingBase: mappingBase{
			entityType:           et,
			includesDerivedTypes: true,
		},
		function:   sf,
		dbFunction: dbf,
	}
	for _, p := range et.Properties() {
		nullable := p.IsNullable() && !p.IsPrimaryKey()
		column := sf.getOrCreateColumn(p.ColumnName(), p.StoreType(), nullable)
		cm := &ColumnMapping{property: p, column: column, storeType: p.StoreType(), mapping: fm}
		fm.columnMappings = append(fm.columnMappings, cm)
		column.propertyMappings = append(column.propertyMappings, cm)
		s.propertyMappings[p] = append(s.propertyMappings[p], cm)
	}
	sf.mappings = append(sf.mappings, fm)
	s.functionMappings[et] = append(s.functionMappings[et], fm)
}

// getOrCreateStoreFunction resolves or creates the physical function for a
// model-level definition. Definitions sharing one (name, schema,
// parameter-type) identity fold onto a single store function.
func (s *Schema) getOrCreateStoreFunction(dbf *model.DbFunction) *StoreFunction {
	key := functionKeyOf(dbf.Name(), dbf.Schema(), dbf.ParameterStoreTypes())
	if sf, ok := s.functions[key]; ok {
		sf.fold(dbf)
		return sf
	}
	sf := newStoreFunction(dbf)
	s.functions[key] = sf
	return sf
}

func reverseFunctionMappings(ms []*FunctionMapping) {
	for i, j := 0, len(ms)-1; i < j; i, j = i+1, j-1 {
		ms[i], ms[j] = ms[j], ms[i]
	}
}
