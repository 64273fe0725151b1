package migrate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syssam/relmodel/model"
	"github.com/syssam/relmodel/relational"
)

func storeSchema(t *testing.T) *relational.Schema {
	t.Helper()
	require := require.New(t)
	m := model.New("store")

	cust, err := m.AddEntityType("Customer")
	require.NoError(err)
	cust.SetTable("customers", "")
	_, err = cust.AddProperty("Id")
	require.NoError(err)
	cust.FindProperty("Id").SetStoreType("bigint")
	email, err := cust.AddProperty("Email")
	require.NoError(err)
	email.SetStoreType("text")
	_, err = cust.AddKey(true, "Id")
	require.NoError(err)
	_, err = cust.AddKey(false, "Email")
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
	fk.SetDeleteBehavior(model.DeleteSetNull)
	idx, err := order.AddIndex("CustomerId")
	require.NoError(err)
	idx.SetUnique(false)

	require.NoError(m.Finalize())
	s, err := relational.Build(m)
	require.NoError(err)
	return s
}

func TestExportTables(t *testing.T) {
	require := require.New(t)
	tables, err := ExportTables(storeSchema(t))
	require.NoError(err)
	require.Len(tables, 2)

	customers, orders := tables[0], tables[1]
	require.Equal("customers", customers.Name)
	require.Equal("orders", orders.Name)

	id, ok := customers.Column("id")
	require.True(ok)
	require.Equal("bigint", id.Type.Raw)
	require.False(id.Type.Null)

	require.NotNil(customers.PrimaryKey)
	require.Equal("PK_customers", customers.PrimaryKey.Name)
	// The alternate key exports as a unique index.
	require.Len(customers.Indexes, 1)
	require.Equal("AK_customers_email", customers.Indexes[0].Name)
	require.True(customers.Indexes[0].Unique)

	require.Len(orders.Indexes, 1)
	require.Equal("IX_orders_customer_id", orders.Indexes[0].Name)
	require.False(orders.Indexes[0].Unique)

	require.Len(orders.ForeignKeys, 1)
	fk := orders.ForeignKeys[0]
	require.Equal("FK_orders_customers_customer_id", fk.Symbol)
	require.Same(customers, fk.RefTable)
	require.Equal("customer_id", fk.Columns[0].Name)
	require.Equal("id", fk.RefColumns[0].Name)
	require.Equal("SET NULL", string(fk.OnDelete))
}

func TestExportSkipsExcludedTables(t *testing.T) {
	require := require.New(t)
	m := model.New("partial")
	for _, name := range []string{"Kept", "Dropped"} {
		et, err := m.AddEntityType(name)
		require.NoError(err)
		et.SetTable("", "")
		_, err = et.AddProperty("Id")
		require.NoError(err)
		_, err = et.AddKey(true, "Id")
		require.NoError(err)
	}
	m.FindEntityType("Dropped").SetExcludedFromMigrations(true)
	require.NoError(m.Finalize())
	s, err := relational.Build(m)
	require.NoError(err)

	tables, err := ExportTables(s)
	require.NoError(err)
	require.Len(tables, 1)
	require.Equal("kepts", tables[0].Name)
}
