package model

// DbFunction is a model-level function definition that resolves to one
// physical store function. Several definitions may share one physical
// function when their (name, schema, parameter store types) coincide.
type DbFunction struct {
	model            *Model
	modelName        string
	name             string
	schema           string
	parameters       []*DbFunctionParameter
	returnType       string
	returnEntityType *EntityType
	aggregate        bool
}

// ModelName returns the unique model-level handle of the definition.
func (f *DbFunction) ModelName() string { return f.modelName }

// Name returns the physical function name.
func (f *DbFunction) Name() string { return f.name }

// Schema returns the physical function schema.
func (f *DbFunction) Schema() string { return f.schema }

// AddParameter appends a parameter to the definition.
func (f *DbFunction) AddParameter(name, storeType string) *DbFunctionParameter {
	p := &DbFunctionParameter{function: f, name: name, storeType: storeType}
	f.parameters = append(f.parameters, p)
	return p
}

// Parameters returns the parameters in declaration order.
func (f *DbFunction) Parameters() []*DbFunctionParameter { return f.parameters }

// ParameterStoreTypes returns the ordered parameter store types. Together
// with name and schema they form the physical function identity.
func (f *DbFunction) ParameterStoreTypes() []string {
	types := make([]string, len(f.parameters))
	for i, p := range f.parameters {
		types[i] = p.storeType
	}
	return types
}

// ReturnType returns the scalar return store type, or "" for a
// table-valued function.
func (f *DbFunction) ReturnType() string { return f.returnType }

// SetReturnType declares a scalar return store type.
func (f *DbFunction) SetReturnType(t string) *DbFunction {
	f.returnType = t
	return f
}

// ReturnEntityType returns the entity type a table-valued function
// returns rows of, or nil for scalar functions.
func (f *DbFunction) ReturnEntityType() *EntityType { return f.returnEntityType }

// SetReturnEntityType declares the function table-valued, returning rows
// of the given entity type.
func (f *DbFunction) SetReturnEntityType(et *EntityType) *DbFunction {
	f.returnEntityType = et
	return f
}

// IsTableValued reports if the function returns entity rows.
func (f *DbFunction) IsTableValued() bool { return f.returnEntityType != nil }

// IsAggregate reports if the function is an aggregate.
func (f *DbFunction) IsAggregate() bool { return f.aggregate }

// SetAggregate marks the function as an aggregate.
func (f *DbFunction) SetAggregate(aggregate bool) *DbFunction {
	f.aggregate = aggregate
	return f
}

// DbFunctionParameter is one parameter of a model-level function definition.
type DbFunctionParameter struct {
	function  *DbFunction
	name      string
	storeType string
}

// Name returns the parameter name.
func (p *DbFunctionParameter) Name() string { return p.name }

// StoreType returns the parameter store type.
func (p *DbFunctionParameter) StoreType() string { return p.storeType }

// Function returns the owning definition.
func (p *DbFunctionParameter) Function() *DbFunction { return p.function }

// Sequence is a model-level database sequence.
type Sequence struct {
	name        string
	schema      string
	startValue  int64
	incrementBy int64
	minValue    *int64
	maxValue    *int64
	cyclic      bool
}

// Name returns the sequence name.
func (s *Sequence) Name() string { return s.name }

// Schema returns the sequence schema.
func (s *Sequence) Schema() string { return s.schema }

// StartValue returns the start value, 1 by default.
func (s *Sequence) StartValue() int64 { return s.startValue }

// SetStartValue sets the start value.
func (s *Sequence) SetStartValue(v int64) *Sequence {
	s.startValue = v
	return s
}

// IncrementBy returns the increment, 1 by default.
func (s *Sequence) IncrementBy() int64 { return s.incrementBy }

// SetIncrementBy sets the increment.
func (s *Sequence) SetIncrementBy(v int64) *Sequence {
	s.incrementBy = v
	return s
}

// MinValue returns the minimum value, or nil when unbounded.
func (s *Sequence) MinValue() *int64 { return s.minValue }

// SetMinValue bounds the sequence from below.
func (s *Sequence) SetMinValue(v int64) *Sequence {
	s.minValue = &v
	return s
}

// MaxValue returns the maximum value, or nil when unbounded.
func (s *Sequence) MaxValue() *int64 { return s.maxValue }

// SetMaxValue bounds the sequence from above.
func (s *Sequence) SetMaxValue(v int64) *Sequence {
	s.maxValue = &v
	return s
}

// IsCyclic reports if the sequence wraps around.
func (s *Sequence) IsCyclic() bool { return s.cyclic }

// SetCyclic marks the sequence cyclic.
func (s *Sequence) SetCyclic(cyclic bool) *Sequence {
	s.cyclic = cyclic
	return s
}
