package editor

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"finitefield.org/catalog-editor/internal/backend"
)

func variantProduct() backend.Product {
	return backend.Product{
		ID:            "p1",
		Kind:          backend.KindVariant,
		Name:          "Runner",
		SKU:           "RUN",
		Status:        "active",
		OriginCountry: "VN",
		Variants: []backend.ProductVariant{
			{ID: "v1", SKU: "RUN-S", SizeCode: "S", Size: "Small", Weight: ptr(1.5), Active: true,
				RetailPrice: ptr(decimal.RequireFromString("50")), OriginalPrice: ptr(decimal.RequireFromString("20"))},
			{ID: "v2", SKU: "RUN-SPECIAL", SizeCode: "M", Size: "Medium", Active: true,
				RetailPrice: ptr(decimal.RequireFromString("55")), OriginalPrice: ptr(decimal.RequireFromString("22")),
				Images: []backend.Image{{ID: "img_v2"}}},
			{ID: "v3", SKU: "RUN-L", SizeCode: "L", Size: "Large", Active: false,
				PackagingType: ptr("pair"), PackagingQuantity: ptr(6),
				RetailPrice: ptr(decimal.RequireFromString("60")), OriginalPrice: ptr(decimal.RequireFromString("25"))},
		},
		Suppliers: []backend.SupplierLink{{SupplierID: "s1", LastPurchasePrice: ptr(decimal.RequireFromString("18.5"))}},
		Images:    []backend.Image{{ID: "img_p"}},
	}
}

func TestFromProductVariantKind(t *testing.T) {
	d := FromProduct(variantProduct(), "EUR")

	require.True(t, d.IsEdit())
	require.Equal(t, "p1", d.ProductID())
	require.True(t, d.VariantEnabled())
	require.False(t, d.IsEditSimple())
	require.Equal(t, "VN", d.Parent.OriginCountry)
	require.Equal(t, "EUR", d.Currency())

	rows := d.Variants()
	require.Len(t, rows, 3)
	require.Equal(t, ExistingRowID("v1"), rows[0].ID)
	require.False(t, rows[0].ID.IsLocal())
	require.True(t, rows[0].AutoSKU)
	require.False(t, rows[1].AutoSKU)
	require.Equal(t, Weight{Main: "1", Sub: "8", Unit: "lb"}, rows[0].Weight)
	require.Equal(t, Packaging{Type: "PAIR", Quantity: "2"}, rows[2].Packaging)
	require.False(t, rows[2].Active)

	price, ok := d.Price(rows[1].ID)
	require.True(t, ok)
	require.Equal(t, VariantPrice{Retail: "55", Original: "22"}, price)

	require.Equal(t, []SupplierRow{{SupplierID: "s1", LastPurchasePrice: "18.5"}}, d.SupplierRows())
	require.Len(t, d.ExistingImages(), 2)
	require.Equal(t, "v2", d.ExistingImages()[1].VariantID)
}

func TestFromProductSimpleKind(t *testing.T) {
	d := FromProduct(backend.Product{
		ID:         "p2",
		Kind:       backend.KindSimple,
		SKU:        "MUG",
		Weight:     ptr(2.25),
		WeightUnit: "kg",
		Length:     ptr(10.5),
		Variants:   []backend.ProductVariant{{ID: "var_backing", SKU: "MUG"}},
	}, "USD")

	require.True(t, d.IsEditSimple())
	require.False(t, d.VariantEnabled())
	require.Empty(t, d.Variants())
	require.Equal(t, Weight{Main: "2", Sub: "250", Unit: "kg"}, d.Parent.Weight)
	require.Equal(t, "10.5", d.Parent.Dimensions.Length)
	require.Equal(t, OriginUnset, d.Parent.OriginCountry)
	require.Equal(t, "active", d.Parent.Status)
}

func TestFromProductLoneSizedVariantWithoutKind(t *testing.T) {
	d := FromProduct(backend.Product{
		ID:  "p3",
		SKU: "CAP",
		Variants: []backend.ProductVariant{
			{ID: "v9", SKU: "CAP-OS", SizeCode: "OS", Size: "One size", Active: true},
		},
	}, "USD")

	require.False(t, d.IsEditSimple())
	require.True(t, d.VariantEnabled())
	require.Len(t, d.Variants(), 1)

	row, err := d.AddVariant()
	require.NoError(t, err)
	require.True(t, row.ID.IsLocal())
}
