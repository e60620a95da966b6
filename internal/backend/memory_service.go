package backend

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/gosimple/slug"
)

// Operation names recorded by MemoryService.
const (
	OpCreateProduct       = "createProduct"
	OpUpdateProductParent = "updateProductParent"
	OpAddVariant          = "addProductVariant"
	OpUpdateVariant       = "updateProductVariant"
	OpUploadImages        = "uploadProductImages"
	OpDeleteImage         = "deleteProductImage"
	OpLinkSupplier        = "linkSupplierProducts"
	OpUnlinkSupplier      = "unlinkSupplierProduct"
	OpCreateChannel       = "createMarketplaceChannel"
	OpSearchChannels      = "searchMarketplaceChannels"
	OpAddListing          = "addProductMarketplaceListing"
	OpDeleteListing       = "deleteProductMarketplaceListing"
	OpMetaEnums           = "getProductMetaEnums"
	OpGetProduct          = "getProductById"
)

// Call records one invocation against MemoryService.
type Call struct {
	Op         string
	ProductID  string
	VariantID  string
	SupplierID string
	Payload    any
}

// MemoryService is an in-process Catalog used for dry runs and tests. Failures can be
// injected per operation.
type MemoryService struct {
	mu       sync.Mutex
	products map[string]*Product
	channels []Channel
	enums    MetaEnums
	calls    []Call
	failures map[string]func(Call) error
	seq      int
}

var _ Catalog = (*MemoryService)(nil)

// NewMemoryService constructs an empty in-memory catalog.
func NewMemoryService() *MemoryService {
	return &MemoryService{
		products: make(map[string]*Product),
		failures: make(map[string]func(Call) error),
	}
}

// FailOn installs a failure hook for op. Returning nil lets the call proceed.
func (m *MemoryService) FailOn(op string, fn func(Call) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op] = fn
}

// SetMetaEnums configures the enums returned by GetProductMetaEnums.
func (m *MemoryService) SetMetaEnums(enums MetaEnums) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enums = enums
}

// Seed stores a product aggregate as-is.
func (m *MemoryService) Seed(p Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := p
	m.products[p.ID] = &cp
}

// Calls returns a copy of the recorded calls.
func (m *MemoryService) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallsFor returns the recorded calls for op.
func (m *MemoryService) CallsFor(op string) []Call {
	var out []Call
	for _, c := range m.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

func (m *MemoryService) record(call Call) error {
	m.calls = append(m.calls, call)
	if fn := m.failures[call.Op]; fn != nil {
		return fn(call)
	}
	return nil
}

func (m *MemoryService) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s_%d", prefix, m.seq)
}

func (m *MemoryService) product(id string) (*Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, &APIError{Status: 404, Code: "not_found", Message: "product " + id + " not found"}
	}
	return p, nil
}

// CreateProduct stores the product and assigns ids to it and its variants.
func (m *MemoryService) CreateProduct(_ context.Context, payload ProductPayload) (CreatedProduct, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(Call{Op: OpCreateProduct, Payload: payload}); err != nil {
		return CreatedProduct{}, err
	}

	p := &Product{
		ID:            m.nextID("prod"),
		Kind:          KindSimple,
		Name:          payload.Name,
		SKU:           payload.SKU,
		Brand:         payload.Brand,
		Status:        payload.Status,
		Category:      payload.Category,
		OriginCountry: payload.OriginCountry,
		IsDraft:       payload.IsDraft,
		PublishedAt:   payload.PublishedAt,
	}
	if payload.SimpleFields != nil {
		applySimpleFields(p, payload.SimpleFields)
	}
	created := CreatedProduct{ID: p.ID}
	if len(payload.Variants) > 0 {
		p.Kind = KindVariant
	}
	for _, v := range payload.Variants {
		pv := variantFromPayload(m.nextID("var"), v)
		p.Variants = append(p.Variants, pv)
		created.Variants = append(created.Variants, VariantRef{ID: pv.ID, SKU: pv.SKU})
	}
	if p.Kind == KindSimple {
		// Simple products are backed by a single variant carrying the SKU.
		p.Variants = []ProductVariant{{ID: m.nextID("var"), SKU: p.SKU, Active: true}}
	}
	m.products[p.ID] = p
	return created, nil
}

// UpdateProductParent applies the patch to the stored product.
func (m *MemoryService) UpdateProductParent(_ context.Context, productID string, patch ParentPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(Call{Op: OpUpdateProductParent, ProductID: productID, Payload: patch}); err != nil {
		return err
	}
	p, err := m.product(productID)
	if err != nil {
		return err
	}
	p.Name = patch.Name
	p.SKU = patch.SKU
	p.Brand = patch.Brand
	p.Status = patch.Status
	p.Category = patch.Category
	p.OriginCountry = patch.OriginCountry
	p.IsDraft = patch.IsDraft
	p.PublishedAt = patch.PublishedAt
	if patch.SimpleFields != nil {
		applySimpleFields(p, patch.SimpleFields)
	}
	return nil
}

// AddProductVariant appends a variant.
func (m *MemoryService) AddProductVariant(_ context.Context, productID string, payload VariantPayload) (VariantRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(Call{Op: OpAddVariant, ProductID: productID, Payload: payload}); err != nil {
		return VariantRef{}, err
	}
	p, err := m.product(productID)
	if err != nil {
		return VariantRef{}, err
	}
	pv := variantFromPayload(m.nextID("var"), payload)
	p.Variants = append(p.Variants, pv)
	return VariantRef{ID: pv.ID, SKU: pv.SKU}, nil
}

// UpdateProductVariant replaces the variant's fields.
func (m *MemoryService) UpdateProductVariant(_ context.Context, productID, variantID string, update VariantUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(Call{Op: OpUpdateVariant, ProductID: productID, VariantID: variantID, Payload: update}); err != nil {
		return err
	}
	p, err := m.product(productID)
	if err != nil {
		return err
	}
	for i := range p.Variants {
		if p.Variants[i].ID != variantID {
			continue
		}
		switch u := update.(type) {
		case VariantSKUPatch:
			p.Variants[i].SKU = u.SKU
		case VariantPayload:
			images := p.Variants[i].Images
			p.Variants[i] = variantFromPayload(variantID, u)
			p.Variants[i].Images = images
		}
		return nil
	}
	return &APIError{Status: 404, Code: "not_found", Message: "variant " + variantID + " not found"}
}

// UploadProductImages stores image references for the uploaded files.
func (m *MemoryService) UploadProductImages(_ context.Context, productID string, files []ImageFile, opts UploadOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(Call{Op: OpUploadImages, ProductID: productID, VariantID: opts.VariantID, Payload: files}); err != nil {
		return err
	}
	p, err := m.product(productID)
	if err != nil {
		return err
	}
	for _, f := range files {
		img := Image{ID: m.nextID("img"), URL: "memory://" + f.Name, VariantID: opts.VariantID}
		p.Images = append(p.Images, img)
	}
	return nil
}

// DeleteProductImage removes a stored image reference.
func (m *MemoryService) DeleteProductImage(_ context.Context, productID, imageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(Call{Op: OpDeleteImage, ProductID: productID, Payload: imageID}); err != nil {
		return err
	}
	p, err := m.product(productID)
	if err != nil {
		return err
	}
	kept := p.Images[:0]
	for _, img := range p.Images {
		if img.ID != imageID {
			kept = append(kept, img)
		}
	}
	p.Images = kept
	return nil
}

// LinkSupplierProducts upserts supplier links.
func (m *MemoryService) LinkSupplierProducts(_ context.Context, supplierID string, productIDs []string, terms SupplierTerms) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var productID string
	if len(productIDs) > 0 {
		productID = productIDs[0]
	}
	if err := m.record(Call{Op: OpLinkSupplier, SupplierID: supplierID, ProductID: productID, Payload: terms}); err != nil {
		return err
	}
	for _, pid := range productIDs {
		p, err := m.product(pid)
		if err != nil {
			return err
		}
		link := SupplierLink{SupplierID: supplierID, LastPurchasePrice: terms.LastPurchasePrice, Currency: terms.Currency}
		replaced := false
		for i := range p.Suppliers {
			if p.Suppliers[i].SupplierID == supplierID {
				p.Suppliers[i] = link
				replaced = true
			}
		}
		if !replaced {
			p.Suppliers = append(p.Suppliers, link)
		}
	}
	return nil
}

// UnlinkSupplierProduct removes a supplier link.
func (m *MemoryService) UnlinkSupplierProduct(_ context.Context, supplierID, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(Call{Op: OpUnlinkSupplier, SupplierID: supplierID, ProductID: productID}); err != nil {
		return err
	}
	p, err := m.product(productID)
	if err != nil {
		return err
	}
	kept := p.Suppliers[:0]
	for _, l := range p.Suppliers {
		if l.SupplierID != supplierID {
			kept = append(kept, l)
		}
	}
	p.Suppliers = kept
	return nil
}

// CreateMarketplaceChannel registers a channel.
func (m *MemoryService) CreateMarketplaceChannel(_ context.Context, marketplace string) (Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(Call{Op: OpCreateChannel, Payload: marketplace}); err != nil {
		return Channel{}, err
	}
	ch := Channel{ID: m.nextID("chan"), Marketplace: marketplace, Name: marketplace}
	m.channels = append(m.channels, ch)
	return ch, nil
}

// SearchMarketplaceChannels matches channels by slugified marketplace key.
func (m *MemoryService) SearchMarketplaceChannels(_ context.Context, query string) ([]Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(Call{Op: OpSearchChannels, Payload: query}); err != nil {
		return nil, err
	}
	needle := slug.Make(query)
	var out []Channel
	for _, ch := range m.channels {
		if needle == "" || strings.Contains(slug.Make(ch.Marketplace), needle) {
			out = append(out, ch)
		}
	}
	return out, nil
}

// AddProductMarketplaceListing stores a listing.
func (m *MemoryService) AddProductMarketplaceListing(_ context.Context, productID string, payload ListingPayload) (Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(Call{Op: OpAddListing, ProductID: productID, Payload: payload}); err != nil {
		return Listing{}, err
	}
	p, err := m.product(productID)
	if err != nil {
		return Listing{}, err
	}
	listing := Listing{ID: m.nextID("lst"), ChannelID: payload.ChannelID, ExternalID: payload.ExternalID, URL: payload.URL}
	for _, ch := range m.channels {
		if ch.ID == payload.ChannelID {
			listing.Marketplace = ch.Marketplace
		}
	}
	p.Listings = append(p.Listings, listing)
	return listing, nil
}

// DeleteProductMarketplaceListing removes a listing.
func (m *MemoryService) DeleteProductMarketplaceListing(_ context.Context, productID, listingID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(Call{Op: OpDeleteListing, ProductID: productID, Payload: listingID}); err != nil {
		return err
	}
	p, err := m.product(productID)
	if err != nil {
		return err
	}
	kept := p.Listings[:0]
	for _, l := range p.Listings {
		if l.ID != listingID {
			kept = append(kept, l)
		}
	}
	p.Listings = kept
	return nil
}

// GetProductMetaEnums returns the configured enums.
func (m *MemoryService) GetProductMetaEnums(_ context.Context) (MetaEnums, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(Call{Op: OpMetaEnums}); err != nil {
		return MetaEnums{}, err
	}
	return m.enums, nil
}

// GetProductByID returns a copy of the stored product.
func (m *MemoryService) GetProductByID(_ context.Context, productID string) (Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(Call{Op: OpGetProduct, ProductID: productID}); err != nil {
		return Product{}, err
	}
	p, err := m.product(productID)
	if err != nil {
		return Product{}, err
	}
	cp := *p
	cp.Variants = append([]ProductVariant(nil), p.Variants...)
	cp.Images = append([]Image(nil), p.Images...)
	cp.Suppliers = append([]SupplierLink(nil), p.Suppliers...)
	cp.Listings = append([]Listing(nil), p.Listings...)
	return cp, nil
}

func applySimpleFields(p *Product, f *SimpleFields) {
	p.Barcode = f.Barcode
	p.BarcodeType = f.BarcodeType
	p.Condition = f.Condition
	p.Size = f.Size
	p.Color = f.Color
	p.StockOnHand = f.StockOnHand
	p.Weight = f.Weight
	p.WeightUnit = f.WeightUnit
	p.Length = f.Length
	p.Width = f.Width
	p.Height = f.Height
	p.LengthUnit = f.LengthUnit
	p.PackagingType = f.Type
	p.PackagingQuantity = f.Quantity
	p.RetailPrice = f.RetailPrice
	p.CostPrice = f.CostPrice
	p.LastPurchasePrice = f.LastPurchasePrice
	p.Currency = f.Currency
}

func variantFromPayload(id string, v VariantPayload) ProductVariant {
	return ProductVariant{
		ID:                id,
		SKU:               v.SKU,
		Size:              v.Size,
		SizeCode:          v.SizeCode,
		Color:             v.Color,
		Barcode:           v.Barcode,
		Weight:            v.Weight,
		WeightUnit:        v.WeightUnit,
		Length:            v.Length,
		Width:             v.Width,
		Height:            v.Height,
		LengthUnit:        v.LengthUnit,
		PackagingType:     v.Type,
		PackagingQuantity: v.Quantity,
		Active:            v.Active,
		StockOnHand:       v.StockOnHand,
		RetailPrice:       v.RetailPrice,
		OriginalPrice:     v.OriginalPrice,
		PurchasePrice:     v.PurchasePrice,
	}
}
