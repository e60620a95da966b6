package backend

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryServiceCreateAssignsIDs(t *testing.T) {
	svc := NewMemoryService()

	created, err := svc.CreateProduct(context.Background(), ProductPayload{
		Envelope: Envelope{Name: "Boot", SKU: "B"},
		Variants: []VariantPayload{{SKU: "B-S", Size: "Small"}, {SKU: "B-L", Size: "Large"}},
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Len(t, created.Variants, 2)
	require.Equal(t, "B-S", created.Variants[0].SKU)
	require.NotEqual(t, created.Variants[0].ID, created.Variants[1].ID)

	product, err := svc.GetProductByID(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, KindVariant, product.Kind)
	require.False(t, product.IsSimple())
}

func TestMemoryServiceSimpleProductHasBackingVariant(t *testing.T) {
	svc := NewMemoryService()

	created, err := svc.CreateProduct(context.Background(), ProductPayload{
		Envelope:     Envelope{Name: "Mug", SKU: "M-1"},
		SimpleFields: &SimpleFields{Condition: "new"},
	})
	require.NoError(t, err)

	product, err := svc.GetProductByID(context.Background(), created.ID)
	require.NoError(t, err)
	require.True(t, product.IsSimple())
	require.Len(t, product.Variants, 1)
	require.Equal(t, "M-1", product.Variants[0].SKU)
	require.Equal(t, "new", product.Condition)
}

func TestMemoryServiceFailOn(t *testing.T) {
	svc := NewMemoryService()
	boom := errors.New("boom")
	svc.FailOn(OpUpdateVariant, func(c Call) error {
		if c.VariantID == "var_bad" {
			return boom
		}
		return nil
	})
	svc.Seed(Product{ID: "p1", Variants: []ProductVariant{{ID: "var_ok"}, {ID: "var_bad"}}})

	require.NoError(t, svc.UpdateProductVariant(context.Background(), "p1", "var_ok", VariantSKUPatch{SKU: "X"}))
	require.ErrorIs(t, svc.UpdateProductVariant(context.Background(), "p1", "var_bad", VariantSKUPatch{SKU: "Y"}), boom)
	require.Len(t, svc.CallsFor(OpUpdateVariant), 2)

	product, err := svc.GetProductByID(context.Background(), "p1")
	require.NoError(t, err)
	require.Equal(t, "X", product.Variants[0].SKU)
	require.Empty(t, product.Variants[1].SKU)
}

func TestMemoryServiceMissingProduct(t *testing.T) {
	svc := NewMemoryService()

	_, err := svc.GetProductByID(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryServiceSupplierAndChannelRoundTrip(t *testing.T) {
	svc := NewMemoryService()
	svc.Seed(Product{ID: "p1"})
	ctx := context.Background()

	require.NoError(t, svc.LinkSupplierProducts(ctx, "s1", []string{"p1"}, SupplierTerms{Currency: "USD"}))
	require.NoError(t, svc.LinkSupplierProducts(ctx, "s1", []string{"p1"}, SupplierTerms{Currency: "EUR"}))
	product, err := svc.GetProductByID(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, product.Suppliers, 1)
	require.Equal(t, "EUR", product.Suppliers[0].Currency)

	require.NoError(t, svc.UnlinkSupplierProduct(ctx, "s1", "p1"))
	product, err = svc.GetProductByID(ctx, "p1")
	require.NoError(t, err)
	require.Empty(t, product.Suppliers)

	ch, err := svc.CreateMarketplaceChannel(ctx, "amazon-us")
	require.NoError(t, err)
	found, err := svc.SearchMarketplaceChannels(ctx, "Amazon US")
	require.NoError(t, err)
	require.Equal(t, []Channel{ch}, found)

	listing, err := svc.AddProductMarketplaceListing(ctx, "p1", ListingPayload{ChannelID: ch.ID})
	require.NoError(t, err)
	require.Equal(t, "amazon-us", listing.Marketplace)
}
