package relational

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/relmodel"
	"github.com/syssam/relmodel/model"
)

// menagerieModel mixes single-table and per-type inheritance: Animal and
// Cat share "animals", SeparatePet keeps base columns in "animals" and its
// own columns in "pets".
func menagerieModel(t *testing.T) *model.Model {
	t.Helper()
	require := require.New(t)
	m := model.New("menagerie")

	animal, err := m.AddEntityType("Animal")
	require.NoError(err)
	animal.SetTable("animals", "")
	_, err = animal.AddProperty("Id")
	require.NoError(err)
	animal.FindProperty("Id").SetStoreType("bigint")
	name, err := animal.AddProperty("Name")
	require.NoError(err)
	name.SetStoreType("text").SetNullable(true)
	_, err = animal.AddKey(true, "Id")
	require.NoError(err)

	cat, err := m.AddEntityType("Cat")
	require.NoError(err)
	require.NoError(cat.SetBase(animal))
	breed, err := cat.AddProperty("Breed")
	require.NoError(err)
	breed.SetStoreType("text")

	pet, err := m.AddEntityType("SeparatePet")
	require.NoError(err)
	require.NoError(pet.SetBase(animal))
	pet.SetTable("pets", "")
	owner, err := pet.AddProperty("Owner")
	require.NoError(err)
	owner.SetStoreType("text")

	require.NoError(m.Finalize())
	return m
}

func TestHierarchyTableMappings(t *testing.T) {
	require := require.New(t)
	s, err := Build(menagerieModel(t))
	require.NoError(err)
	m := s.Model()

	animals := s.FindTable("animals", "")
	require.NotNil(animals)
	pets := s.FindTable("pets", "")
	require.NotNil(pets)
	require.Len(s.Tables(), 2)

	// Animal and Cat map only to "animals"; SeparatePet contributes a
	// base-level mapping there as well.
	require.Len(animals.EntityTypeMappings(), 3)
	require.Len(pets.EntityTypeMappings(), 1)

	animal := m.FindEntityType("Animal")
	cat := m.FindEntityType("Cat")
	pet := m.FindEntityType("SeparatePet")

	ams := s.TableMappings(animal)
	require.Len(ams, 1)
	require.True(ams[0].IncludesDerivedTypes())
	require.False(ams[0].IsSplitEntityTypePrincipal())

	cms := s.TableMappings(cat)
	require.Len(cms, 1)
	require.True(cms[0].IncludesDerivedTypes())

	// Root mapping first, own leaf mapping last.
	pms := s.TableMappings(pet)
	require.Len(pms, 2)
	require.Equal("animals", pms[0].Table().Name())
	require.False(pms[0].IncludesDerivedTypes())
	require.Equal("pets", pms[1].Table().Name())
	require.True(pms[1].IncludesDerivedTypes())
	require.True(pms[1].IsSplitEntityTypePrincipal())
	require.False(pms[0].IsSplitEntityTypePrincipal())

	// Single-table storage of a hierarchy is not sharing.
	require.False(animals.IsShared())
	require.False(pets.IsShared())
}

func TestHierarchyColumns(t *testing.T) {
	require := require.New(t)
	s, err := Build(menagerieModel(t))
	require.NoError(err)

	animals := s.FindTable("animals", "")
	id := animals.FindColumn("id")
	require.NotNil(id)
	require.False(id.IsNullable())
	require.Equal("bigint", id.StoreType())

	nameCol := animals.FindColumn("name")
	require.NotNil(nameCol)
	require.True(nameCol.IsNullable())

	// Breed is required on Cat but rows of Animal and SeparatePet carry
	// no value for it, so the column permits nulls.
	breed := animals.FindColumn("breed")
	require.NotNil(breed)
	require.True(breed.IsNullable())

	// Key columns appear in every table of the hierarchy; Owner only in
	// the entity's own table.
	pets := s.FindTable("pets", "")
	require.NotNil(pets.FindColumn("id"))
	require.Nil(pets.FindColumn("name"))
	require.NotNil(pets.FindColumn("owner"))
	require.Nil(animals.FindColumn("owner"))

	// Id contributes one mapping per entity-type mapping: three on
	// "animals" and one on "pets".
	idProp := s.Model().FindEntityType("Animal").FindProperty("Id")
	require.Len(s.ColumnMappings(idProp), 4)

	// Columns are reachable back through their property mappings.
	require.Len(id.PropertyMappings(), 3)
	for _, cm := range id.PropertyMappings() {
		require.Equal(idProp, cm.Property())
		require.Equal(id, cm.Column())
	}
}

func TestHierarchyKeys(t *testing.T) {
	require := require.New(t)
	s, err := Build(menagerieModel(t))
	require.NoError(err)

	animals := s.FindTable("animals", "")
	pk := animals.PrimaryKey()
	require.NotNil(pk)
	require.Equal("PK_animals", pk.Name())
	require.True(pk.IsPrimaryKey())
	require.Len(pk.Columns(), 1)
	require.Equal("id", pk.Columns()[0].Name())

	// The one metadata key surfaces on both tables of the split entity.
	pets := s.FindTable("pets", "")
	require.NotNil(pets.PrimaryKey())
	require.Equal("PK_pets", pets.PrimaryKey().Name())
	require.Equal(pk.MappedKeys(), pets.PrimaryKey().MappedKeys())
}

// orderModel wires classic table splitting: Order and OrderDetail live in
// one table, linked one-to-one through their shared primary key.
func orderModel(t *testing.T) *model.Model {
	t.Helper()
	require := require.New(t)
	m := model.New("sales")

	order, err := m.AddEntityType("Order")
	require.NoError(err)
	order.SetTable("orders", "")
	_, err = order.AddProperty("Id")
	require.NoError(err)
	order.FindProperty("Id").SetStoreType("bigint")
	_, err = order.AddKey(true, "Id")
	require.NoError(err)

	detail, err := m.AddEntityType("OrderDetail")
	require.NoError(err)
	detail.SetTable("orders", "")
	_, err = detail.AddProperty("Id")
	require.NoError(err)
	detail.FindProperty("Id").SetStoreType("bigint")
	_, err = detail.AddKey(true, "Id")
	require.NoError(err)
	note, err := detail.AddProperty("Note")
	require.NoError(err)
	note.SetStoreType("text").SetNullable(true)
	fk, err := detail.AddForeignKey(order, "Id")
	require.NoError(err)
	fk.SetUnique(true).SetRequired(true)

	require.NoError(m.Finalize())
	return m
}

func TestTableSplitting(t *testing.T) {
	require := require.New(t)
	m := orderModel(t)
	s, err := Build(m)
	require.NoError(err)

	orders := s.FindTable("orders", "")
	require.NotNil(orders)
	require.Len(s.Tables(), 1)
	require.Len(orders.EntityTypeMappings(), 2)

	// The principal of the split owns the row and enumerates first.
	order := m.FindEntityType("Order")
	detail := m.FindEntityType("OrderDetail")
	first := orders.EntityTypeMappings()[0]
	require.Equal(order, first.EntityType())
	require.True(first.IsSharedTablePrincipal())

	fks := orders.RowInternalForeignKeys(order)
	require.Len(fks, 1)
	require.Equal(detail, fks[0].DeclaringType())
	require.Nil(orders.RowInternalForeignKeys(detail))

	// Linked one-to-one through the primary key is splitting, not sharing.
	require.False(orders.IsShared())

	// The linking foreign key would relate a row to itself and produces
	// no database constraint.
	require.Empty(orders.ForeignKeyConstraints())

	// Both primary keys collapse onto one constraint.
	require.Len(orders.UniqueConstraints(), 1)
	require.Len(orders.PrimaryKey().MappedKeys(), 2)
}

func TestUnrelatedSharedTable(t *testing.T) {
	require := require.New(t)
	m := model.New("mixed")
	for _, name := range []string{"Invoice", "Receipt"} {
		et, err := m.AddEntityType(name)
		require.NoError(err)
		et.SetTable("documents", "")
		_, err = et.AddProperty("Id")
		require.NoError(err)
		et.FindProperty("Id").SetStoreType("bigint")
		_, err = et.AddKey(true, "Id")
		require.NoError(err)
	}
	require.NoError(m.Finalize())

	s, err := Build(m)
	require.NoError(err)
	docs := s.FindTable("documents", "")
	require.NotNil(docs)

	// No inheritance and no row-internal link between the participants.
	require.True(docs.IsShared())
	require.Len(docs.EntityTypeMappings(), 2)
	require.True(docs.EntityTypeMappings()[0].IsSharedTablePrincipal())

	// Identical derived names still collapse onto one constraint.
	require.Len(docs.UniqueConstraints(), 1)
	require.Len(docs.PrimaryKey().MappedKeys(), 2)
}

func TestSelfReferentialForeignKey(t *testing.T) {
	require := require.New(t)
	m := model.New("hr")
	emp, err := m.AddEntityType("Employee")
	require.NoError(err)
	emp.SetTable("employees", "")
	_, err = emp.AddProperty("Id")
	require.NoError(err)
	emp.FindProperty("Id").SetStoreType("bigint")
	mgr, err := emp.AddProperty("ManagerId")
	require.NoError(err)
	mgr.SetStoreType("bigint").SetNullable(true)
	_, err = emp.AddKey(true, "Id")
	require.NoError(err)
	fk, err := emp.AddForeignKey(emp, "ManagerId")
	require.NoError(err)
	fk.SetDeleteBehavior(model.DeleteRestrict)
	require.NoError(m.Finalize())

	s, err := Build(m)
	require.NoError(err)
	employees := s.FindTable("employees", "")
	require.Len(employees.ForeignKeyConstraints(), 1)

	c := employees.FindForeignKeyConstraint("FK_employees_employees_manager_id")
	require.NotNil(c)
	require.Equal(employees, c.PrincipalTable())
	require.Equal("manager_id", c.Columns()[0].Name())
	require.Equal("id", c.PrincipalColumns()[0].Name())
	require.Equal(model.ActionRestrict, c.OnDelete())
	require.Len(c.MappedForeignKeys(), 1)
}

func TestForeignKeyAcrossTables(t *testing.T) {
	require := require.New(t)
	m := model.New("catalog")

	cust, err := m.AddEntityType("Customer")
	require.NoError(err)
	cust.SetTable("customers", "")
	_, err = cust.AddProperty("Id")
	require.NoError(err)
	cust.FindProperty("Id").SetStoreType("bigint")
	_, err = cust.AddKey(true, "Id")
	require.NoError(err)

	order, err := m.AddEntityType("Order")
	require.NoError(err)
	order.SetTable("orders", "")
	_, err = order.AddProperty("Id")
	require.NoError(err)
	order.FindProperty("Id").SetStoreType("bigint")
	cid, err := order.AddProperty("CustomerId")
	require.NoError(err)
	cid.SetStoreType("bigint")
	_, err = order.AddKey(true, "Id")
	require.NoError(err)
	fk, err := order.AddForeignKey(cust, "CustomerId")
	require.NoError(err)
	fk.SetDeleteBehavior(model.DeleteCascade)
	_, err = order.AddIndex("CustomerId")
	require.NoError(err)
	require.NoError(m.Finalize())

	s, err := Build(m)
	require.NoError(err)
	orders := s.FindTable("orders", "")
	require.Len(orders.ForeignKeyConstraints(), 1)

	c := orders.FindForeignKeyConstraint("FK_orders_customers_customer_id")
	require.NotNil(c)
	require.Equal("customers", c.PrincipalTable().Name())
	require.Equal(model.ActionCascade, c.OnDelete())

	idx := orders.FindIndex("IX_orders_customer_id")
	require.NotNil(idx)
	require.False(idx.IsUnique())
	require.Equal("customer_id", idx.Columns()[0].Name())
}

func TestViewMappings(t *testing.T) {
	require := require.New(t)
	m := model.New("reporting")
	order, err := m.AddEntityType("Order")
	require.NoError(err)
	order.SetTable("orders", "")
	order.SetView("order_summaries", "reporting")
	_, err = order.AddProperty("Id")
	require.NoError(err)
	order.FindProperty("Id").SetStoreType("bigint")
	total, err := order.AddProperty("Total")
	require.NoError(err)
	total.SetStoreType("numeric")
	_, err = order.AddKey(true, "Id")
	require.NoError(err)
	require.NoError(m.Finalize())

	s, err := Build(m)
	require.NoError(err)
	v := s.FindView("order_summaries", "reporting")
	require.NotNil(v)
	require.Equal(model.StoreKindView, v.Kind())
	require.Equal("reporting.order_summaries", v.ID().String())
	require.Len(v.Columns(), 2)
	require.NotNil(v.FindColumn("total"))

	vms := s.ViewMappings(m.FindEntityType("Order"))
	require.Len(vms, 1)
	require.True(vms[0].IncludesDerivedTypes())

	// The table mapping is unaffected by the extra view mapping.
	require.Len(s.TableMappings(m.FindEntityType("Order")), 1)
	idProp := m.FindEntityType("Order").FindProperty("Id")
	require.Len(s.ColumnMappings(idProp), 2)
}

func functionModel(t *testing.T) *model.Model {
	t.Helper()
	require := require.New(t)
	m := model.New("funcs")

	order, err := m.AddEntityType("Order")
	require.NoError(err)
	order.SetTable("orders", "")
	_, err = order.AddProperty("Id")
	require.NoError(err)
	order.FindProperty("Id").SetStoreType("bigint")
	_, err = order.AddKey(true, "Id")
	require.NoError(err)

	// Two scalar definitions resolve to one physical function.
	one, err := m.AddFunction("OrderCount", "count_orders", "")
	require.NoError(err)
	one.AddParameter("since", "date")
	one.SetReturnType("bigint")
	two, err := m.AddFunction("CountOrders", "count_orders", "")
	require.NoError(err)
	two.AddParameter("from", "date")
	two.SetReturnType("bigint")

	// A table-valued function returning Order rows.
	tvf, err := m.AddFunction("RecentOrders", "recent_orders", "")
	require.NoError(err)
	tvf.AddParameter("days", "int")
	tvf.SetReturnEntityType(order)

	require.NoError(m.Finalize())
	return m
}

func TestFunctionFolding(t *testing.T) {
	require := require.New(t)
	m := functionModel(t)
	s, err := Build(m)
	require.NoError(err)
	require.Len(s.Functions(), 2)

	f := s.FindFunction("count_orders", "", []string{"date"})
	require.NotNil(f)
	require.False(f.IsTableValued())
	require.Equal("bigint", f.ReturnType())
	require.Len(f.DbFunctions(), 2)

	// Parameters of folded definitions alias positionally.
	require.Len(f.Parameters(), 1)
	p := f.Parameters()[0]
	require.Equal("since", p.Name())
	require.Len(p.DbParameters(), 2)
	require.Equal("from", p.DbParameters()[1].Name())
	require.Nil(f.FindParameter("missing"))
}

func TestTableValuedFunctionMapping(t *testing.T) {
	require := require.New(t)
	m := functionModel(t)
	s, err := Build(m)
	require.NoError(err)

	f := s.FindFunction("recent_orders", "", []string{"int"})
	require.NotNil(f)
	require.True(f.IsTableValued())

	// The return entity type gets a synthesized mapping over its full
	// column set.
	order := m.FindEntityType("Order")
	fms := s.FunctionMappings(order)
	require.Len(fms, 1)
	require.False(fms[0].IsDefault())
	require.True(fms[0].IncludesDerivedTypes())
	require.Equal(f, fms[0].Function())
	require.NotNil(f.FindColumn("id"))
	require.False(f.FindColumn("id").IsNullable())
}

func TestDeclaredFunctionMapping(t *testing.T) {
	require := require.New(t)
	m := model.New("funcs")
	order, err := m.AddEntityType("Order")
	require.NoError(err)
	order.SetTable("orders", "")
	order.SetFunction("AllOrders")
	_, err = order.AddProperty("Id")
	require.NoError(err)
	order.FindProperty("Id").SetStoreType("bigint")
	_, err = order.AddKey(true, "Id")
	require.NoError(err)
	dbf, err := m.AddFunction("AllOrders", "all_orders", "")
	require.NoError(err)
	dbf.SetReturnEntityType(order)
	require.NoError(m.Finalize())

	s, err := Build(m)
	require.NoError(err)
	fms := s.FunctionMappings(m.FindEntityType("Order"))
	require.Len(fms, 1)
	require.True(fms[0].IsDefault())
	require.Equal("all_orders", fms[0].Function().Name())
}

func TestUnknownFunctionMapping(t *testing.T) {
	require := require.New(t)
	m := model.New("funcs")
	order, err := m.AddEntityType("Order")
	require.NoError(err)
	order.SetFunction("Missing")
	_, err = order.AddProperty("Id")
	require.NoError(err)
	_, err = order.AddKey(true, "Id")
	require.NoError(err)
	require.NoError(m.Finalize())

	_, err = Build(m)
	require.Error(err)
	require.True(relmodel.IsConfigurationError(err))
	require.EqualError(err, "relmodel: unsupported configuration: entity type Order maps to unknown function Missing")
}

func TestBuildRequiresFinalizedModel(t *testing.T) {
	require := require.New(t)
	_, err := Build(model.New("draft"))
	require.ErrorIs(err, relmodel.ErrModelNotFinalized)
	_, err = Build(nil)
	require.ErrorIs(err, relmodel.ErrModelNotFinalized)

	_, err = NewSource().Schema(model.New("draft"))
	require.ErrorIs(err, relmodel.ErrModelNotFinalized)
}

func TestSequences(t *testing.T) {
	require := require.New(t)
	m := model.New("seq")
	seq, err := m.AddSequence("order_numbers", "sales")
	require.NoError(err)
	seq.SetStartValue(1000).SetIncrementBy(10).SetCyclic(true)
	require.NoError(m.Finalize())

	s, err := Build(m)
	require.NoError(err)
	require.Len(s.Sequences(), 1)
	got := s.Sequences()[0]
	require.Equal("order_numbers", got.Name())
	require.Equal(int64(1000), got.StartValue())
	require.Equal(int64(10), got.IncrementBy())
	require.True(got.IsCyclic())
}

func TestExcludedFromMigrations(t *testing.T) {
	require := require.New(t)
	m := model.New("mixed")
	for _, name := range []string{"Invoice", "Receipt"} {
		et, err := m.AddEntityType(name)
		require.NoError(err)
		et.SetTable("documents", "")
		_, err = et.AddProperty("Id")
		require.NoError(err)
		_, err = et.AddKey(true, "Id")
		require.NoError(err)
	}
	m.FindEntityType("Invoice").SetExcludedFromMigrations(true)
	require.NoError(m.Finalize())

	s, err := Build(m)
	require.NoError(err)
	// One participant still wants migrations.
	require.False(s.FindTable("documents", "").IsExcludedFromMigrations())

	m2 := model.New("mixed")
	et, err := m2.AddEntityType("Invoice")
	require.NoError(err)
	et.SetTable("documents", "")
	_, err = et.AddProperty("Id")
	require.NoError(err)
	_, err = et.AddKey(true, "Id")
	require.NoError(err)
	et.SetExcludedFromMigrations(true)
	require.NoError(m2.Finalize())

	s2, err := Build(m2)
	require.NoError(err)
	require.True(s2.FindTable("documents", "").IsExcludedFromMigrations())
}

type testAnnotations struct{}

func (testAnnotations) ForSchema(*Schema) []Annotation {
	return []Annotation{{Name: "dialect", Value: "postgres"}}
}

func (testAnnotations) ForTable(t *Table) []Annotation {
	return []Annotation{{Name: "comment", Value: "table " + t.Name()}}
}

func (testAnnotations) ForColumn(c *Column) []Annotation {
	if c.Name() != "id" {
		return nil
	}
	return []Annotation{{Name: "identity", Value: true}}
}

func (testAnnotations) ForView(*View) []Annotation                         { return nil }
func (testAnnotations) ForViewColumn(*Column) []Annotation                 { return nil }
func (testAnnotations) ForUniqueConstraint(*UniqueConstraint) []Annotation { return nil }
func (testAnnotations) ForTableIndex(*TableIndex) []Annotation             { return nil }
func (testAnnotations) ForForeignKeyConstraint(*ForeignKeyConstraint) []Annotation {
	return nil
}
func (testAnnotations) ForSequence(*Sequence) []Annotation { return nil }

func TestAnnotationProvider(t *testing.T) {
	require := require.New(t)
	s, err := Build(menagerieModel(t), WithAnnotations(testAnnotations{}))
	require.NoError(err)

	require.Equal("postgres", s.Annotation("dialect"))
	animals := s.FindTable("animals", "")
	require.Equal("table animals", animals.Annotation("comment"))
	require.Equal(true, animals.FindColumn("id").Annotation("identity"))
	require.Nil(animals.FindColumn("name").Annotation("identity"))

	anns := animals.Annotations()
	require.Len(anns, 1)
	require.Equal("comment", anns[0].Name)
}

func TestFrozenSchemaRejectsAnnotations(t *testing.T) {
	require := require.New(t)
	s, err := Build(menagerieModel(t))
	require.NoError(err)

	err = s.SetAnnotation("dialect", "postgres")
	require.Error(err)
	require.ErrorIs(err, relmodel.ErrSchemaFrozen)
	require.True(relmodel.IsStateError(err))
	require.EqualError(err, `relmodel: cannot set annotation in state "frozen"`)
}

func TestFingerprintDeterminism(t *testing.T) {
	require := require.New(t)
	s1, err := Build(menagerieModel(t))
	require.NoError(err)
	s2, err := Build(menagerieModel(t))
	require.NoError(err)

	f1, err := s1.Fingerprint()
	require.NoError(err)
	f2, err := s2.Fingerprint()
	require.NoError(err)
	require.Equal(f1, f2)
	require.Len(f1, 64)

	s3, err := Build(orderModel(t))
	require.NoError(err)
	f3, err := s3.Fingerprint()
	require.NoError(err)
	require.NotEqual(f1, f3)
}

func TestSnapshotShape(t *testing.T) {
	require := require.New(t)
	s, err := Build(menagerieModel(t))
	require.NoError(err)

	snap := s.Snapshot()
	require.Equal("menagerie", snap.Model)
	require.Len(snap.Tables, 2)
	require.Equal("animals", snap.Tables[0].Name)
	require.Equal("PK_animals", snap.Tables[0].PrimaryKey)
	require.Equal([]string{"Animal", "Cat", "SeparatePet"}, snap.Tables[0].Entities)
	require.Equal("pets", snap.Tables[1].Name)
}

func TestSourceMemoizes(t *testing.T) {
	require := require.New(t)
	src := NewSource()
	m := menagerieModel(t)

	s1, err := src.Schema(m)
	require.NoError(err)
	s2, err := src.Schema(m)
	require.NoError(err)
	require.Same(s1, s2)

	other, err := src.Schema(menagerieModel(t))
	require.NoError(err)
	require.NotSame(s1, other)
}

func TestConcurrentReaders(t *testing.T) {
	require := require.New(t)
	src := NewSource()
	m := menagerieModel(t)

	var g errgroup.Group
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			s, err := src.Schema(m)
			if err != nil {
				return err
			}
			for _, tbl := range s.Tables() {
				for _, c := range tbl.Columns() {
					_ = c.PropertyMappings()
				}
				_ = tbl.UniqueConstraints()
				_ = tbl.EntityTypeMappings()
			}
			if _, err := s.Fingerprint(); err != nil {
				return err
			}
			return nil
		})
	}
	require.NoError(g.Wait())
}
