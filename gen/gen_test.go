package gen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syssam/relmodel/model"
	"github.com/syssam/relmodel/relational"
)

func TestGenerate(t *testing.T) {
	require := require.New(t)
	m := model.New("store")
	item, err := m.AddEntityType("OrderItem")
	require.NoError(err)
	item.SetTable("", "")
	_, err = item.AddProperty("Id")
	require.NoError(err)
	item.FindProperty("Id").SetStoreType("bigint")
	_, err = item.AddProperty("CreatedAt")
	require.NoError(err)
	_, err = item.AddKey(true, "Id")
	require.NoError(err)
	_, err = m.AddSequence("item_numbers", "")
	require.NoError(err)
	require.NoError(m.Finalize())

	s, err := relational.Build(m)
	require.NoError(err)
	src, err := Generate(s, "store")
	require.NoError(err)

	out := string(src)
	require.Contains(out, "// Code generated by relmodel, DO NOT EDIT.")
	require.Contains(out, "package store")
	require.Contains(out, `OrderItemsTable = "order_items"`)
	require.Contains(out, `OrderItemsColumnID = "id"`)
	require.Contains(out, `OrderItemsColumnCreatedAt = "created_at"`)
	require.Contains(out, `OrderItemsPrimaryKey = "PK_order_items"`)
	require.Contains(out, `SequenceItemNumbers = "item_numbers"`)
}

func TestExportedIdent(t *testing.T) {
	require := require.New(t)
	require.Equal("OrderItems", exportedIdent("order_items"))
	require.Equal("CustomerID", exportedIdent("customer_id"))
	require.Equal("ID", exportedIdent("id"))
	require.Equal("PkOrders", exportedIdent("PK_orders"))
}

func TestGenerateIsDeterministic(t *testing.T) {
	require := require.New(t)
	m := model.New("store")
	for _, name := range []string{"Zebra", "Apple"} {
		et, err := m.AddEntityType(name)
		require.NoError(err)
		et.SetTable("", "")
		_, err = et.AddProperty("Id")
		require.NoError(err)
		_, err = et.AddKey(true, "Id")
		require.NoError(err)
	}
	require.NoError(m.Finalize())
	s, err := relational.Build(m)
	require.NoError(err)

	first, err := Generate(s, "store")
	require.NoError(err)
	second, err := Generate(s, "store")
	require.NoError(err)
	require.Equal(first, second)
	// Sorted table order: apples before zebras.
	require.Less(strings.Index(string(first), "ApplesTable"), strings.Index(string(first), "ZebrasTable"))
}
