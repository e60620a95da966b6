// Package backend is the catalog editor's view of the remote catalog API: the wire
// types it exchanges and the operations it calls.
package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("backend: not found")

// Catalog exposes the remote operations consumed by the product editor.
type Catalog interface {
	// CreateProduct creates a simple or variant product and echoes created variants.
	CreateProduct(ctx context.Context, payload ProductPayload) (CreatedProduct, error)
	// UpdateProductParent patches parent-level fields only.
	UpdateProductParent(ctx context.Context, productID string, patch ParentPatch) error
	// AddProductVariant appends a variant to an existing product.
	AddProductVariant(ctx context.Context, productID string, payload VariantPayload) (VariantRef, error)
	// UpdateProductVariant patches one variant.
	UpdateProductVariant(ctx context.Context, productID, variantID string, update VariantUpdate) error
	// UploadProductImages attaches files to the product or to one of its variants.
	UploadProductImages(ctx context.Context, productID string, files []ImageFile, opts UploadOptions) error
	// DeleteProductImage removes a stored image.
	DeleteProductImage(ctx context.Context, productID, imageID string) error
	// LinkSupplierProducts upserts supplier links for the given products.
	LinkSupplierProducts(ctx context.Context, supplierID string, productIDs []string, terms SupplierTerms) error
	// UnlinkSupplierProduct removes a supplier link.
	UnlinkSupplierProduct(ctx context.Context, supplierID, productID string) error
	// CreateMarketplaceChannel registers a channel for a marketplace key.
	CreateMarketplaceChannel(ctx context.Context, marketplace string) (Channel, error)
	// SearchMarketplaceChannels finds channels matching query.
	SearchMarketplaceChannels(ctx context.Context, query string) ([]Channel, error)
	// AddProductMarketplaceListing creates a listing for the product.
	AddProductMarketplaceListing(ctx context.Context, productID string, payload ListingPayload) (Listing, error)
	// DeleteProductMarketplaceListing removes a listing.
	DeleteProductMarketplaceListing(ctx context.Context, productID, listingID string) error
	// GetProductMetaEnums returns the option sets for the editing form.
	GetProductMetaEnums(ctx context.Context) (MetaEnums, error)
	// GetProductByID fetches the full product aggregate.
	GetProductByID(ctx context.Context, productID string) (Product, error)
}

// APIError describes a non-success response from the catalog API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend: backend error (%s): %s", e.Code, e.Message)
	}
	return fmt.Sprintf("backend: backend error (%d): %s", e.Status, e.Message)
}

// Is maps 404 responses onto ErrNotFound.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

func requireID(kind, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("backend: %s id is required", kind)
	}
	return id, nil
}
