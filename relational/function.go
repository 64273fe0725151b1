package relational

import (
	"strings"

	"github.com/syssam/relmodel/model"
)

// StoreFunction is a physical database function, scalar or table-valued.
// Its identity is (name, schema, ordered parameter store types): several
// model-level definitions may resolve to one physical function.
type StoreFunction struct {
	TableBase
	parameters []*FunctionParameter
	returnType string
	// dbFunctions holds every model-level definition folded onto this
	// physical function, in fold order.
	dbFunctions []*model.DbFunction
}

func newStoreFunction(f *model.DbFunction) *StoreFunction {
	sf := &StoreFunction{
		TableBase: TableBase{
			kind:    model.StoreKindFunction,
			name:    f.Name(),
			schema:  f.Schema(),
			columns: make(map[string]*Column),
		},
		returnType:  f.ReturnType(),
		dbFunctions: []*model.DbFunction{f},
	}
	for _, p := range f.Parameters() {
		sf.parameters = append(sf.parameters, &FunctionParameter{
			function:     sf,
			name:         p.Name(),
			storeType:    p.StoreType(),
			dbParameters: []*model.DbFunctionParameter{p},
		})
	}
	return sf
}

// fold binds an additional model-level definition sharing this function's
// identity. Later definitions contribute parameter aliases rather than
// duplicate physical functions.
func (f *StoreFunction) fold(dbf *model.DbFunction) {
	for _, bound := range f.dbFunctions {
		if bound == dbf {
			return
		}
	}
	f.dbFunctions = append(f.dbFunctions, dbf)
	for i, p := range dbf.Parameters() {
		f.parameters[i].dbParameters = append(f.parameters[i].dbParameters, p)
	}
}

// Parameters returns the parameters in declaration order.
func (f *StoreFunction) Parameters() []*FunctionParameter { return f.parameters }

// FindParameter returns the parameter with the given name, or nil.
func (f *StoreFunction) FindParameter(name string) *FunctionParameter {
	for _, p := range f.parameters {
		if p.name == name {
			return p
		}
	}
	return nil
}

// ParameterTypes returns the ordered parameter store types.
func (f *StoreFunction) ParameterTypes() []string {
	types := make([]string, len(f.parameters))
	for i, p := range f.parameters {
		types[i] = p.storeType
	}
	return types
}

// ReturnType returns the scalar return store type, or "" for a
// table-valued function.
func (f *StoreFunction) ReturnType() string { return f.returnType }

// IsTableValued reports if the function returns entity rows.
func (f *StoreFunction) IsTableValued() bool {
	for _, dbf := range f.dbFunctions {
		if dbf.IsTableValued() {
			return true
		}
	}
	return false
}

// DbFunctions returns the model-level definitions bound to this function,
// in fold order.
func (f *StoreFunction) DbFunctions() []*model.DbFunction { return f.dbFunctions }

// FunctionParameter is one parameter of a store function, possibly bound
// to parameters of several model-level definitions.
type FunctionParameter struct {
	function     *StoreFunction
	name         string
	storeType    string
	dbParameters []*model.DbFunctionParameter
}

// Name returns the parameter name.
func (p *FunctionParameter) Name() string { return p.name }

// StoreType returns the parameter store type.
func (p *FunctionParameter) StoreType() string { return p.storeType }

// Function returns the owning store function.
func (p *FunctionParameter) Function() *StoreFunction { return p.function }

// DbParameters returns the model-level parameter bindings, in fold order.
func (p *FunctionParameter) DbParameters() []*model.DbFunctionParameter { return p.dbParameters }

// functionKey is the physical identity of a store function.
type functionKey struct {
	name   string
	schema string
	params string
}

func functionKeyOf(name, schema string, paramTypes []string) functionKey {
	return functionKey{name: name, schema: schema, params: strings.Join(paramTypes, ",")}
}
