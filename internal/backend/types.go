package backend

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"finitefield.org/catalog-editor/internal/catalog"
)

// Product kinds reported by the backend.
const (
	KindSimple  = "simple"
	KindVariant = "variant"
)

// Envelope carries the parent-level fields present on every product write.
type Envelope struct {
	Name          string     `json:"name"`
	SKU           string     `json:"sku"`
	Brand         string     `json:"brand,omitempty"`
	Status        string     `json:"status,omitempty"`
	OriginCountry string     `json:"originCountry,omitempty"`
	Category      string     `json:"category,omitempty"`
	IsDraft       bool       `json:"isDraft"`
	PublishedAt   *time.Time `json:"publishedAt"`
}

// SimpleFields are the attributes a simple product carries on the parent record.
type SimpleFields struct {
	Barcode     string   `json:"barcode,omitempty"`
	BarcodeType string   `json:"barcodeType,omitempty"`
	Condition   string   `json:"condition,omitempty"`
	Size        string   `json:"size,omitempty"`
	Color       string   `json:"color,omitempty"`
	StockOnHand *int     `json:"stockOnHand"`
	Weight      *float64 `json:"weight"`
	WeightUnit  string   `json:"weightUnit,omitempty"`
	Length      *float64 `json:"length"`
	Width       *float64 `json:"width"`
	Height      *float64 `json:"height"`
	LengthUnit  string   `json:"lengthUnit,omitempty"`
	catalog.ResolvedPackaging
	RetailPrice       *decimal.Decimal `json:"retailPrice"`
	CostPrice         *decimal.Decimal `json:"costPrice"`
	LastPurchasePrice *decimal.Decimal `json:"lastPurchasePrice"`
	Currency          string           `json:"currency,omitempty"`
}

// ProductPayload is the create request. Simple products carry SimpleFields and an
// explicit empty Variants list; variant products carry only the envelope and rows.
type ProductPayload struct {
	Envelope
	*SimpleFields
	Variants []VariantPayload `json:"variants"`
}

// ParentPatch partially updates parent-level fields of an existing product.
type ParentPatch struct {
	Envelope
	*SimpleFields
}

// VariantUpdate is the body accepted by UpdateProductVariant.
type VariantUpdate interface {
	variantUpdate()
}

// VariantPayload is the normalized representation of one variant row.
type VariantPayload struct {
	SKU         string   `json:"sku"`
	Size        string   `json:"size"`
	SizeCode    string   `json:"sizeCode,omitempty"`
	Color       string   `json:"color,omitempty"`
	Barcode     string   `json:"barcode,omitempty"`
	Weight      *float64 `json:"weight"`
	WeightUnit  string   `json:"weightUnit"`
	Length      *float64 `json:"length"`
	Width       *float64 `json:"width"`
	Height      *float64 `json:"height"`
	LengthUnit  string   `json:"lengthUnit,omitempty"`
	catalog.ResolvedPackaging
	Active        bool             `json:"active"`
	StockOnHand   *int             `json:"stockOnHand"`
	RetailPrice   *decimal.Decimal `json:"retailPrice"`
	OriginalPrice *decimal.Decimal `json:"originalPrice"`
	PurchasePrice *decimal.Decimal `json:"purchasePrice"`
	Currency      string           `json:"currency,omitempty"`
}

func (VariantPayload) variantUpdate() {}

// VariantSKUPatch changes only the SKU of a variant.
type VariantSKUPatch struct {
	SKU string `json:"sku"`
}

func (VariantSKUPatch) variantUpdate() {}

// CreatedProduct echoes the new product id and its variants so callers can resolve
// variant ids by SKU.
type CreatedProduct struct {
	ID       string       `json:"id"`
	Variants []VariantRef `json:"variants,omitempty"`
}

// VariantRef identifies a persisted variant.
type VariantRef struct {
	ID  string `json:"id"`
	SKU string `json:"sku"`
}

// ImageFile is a staged binary awaiting upload.
type ImageFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// UploadOptions targets an upload at a specific variant.
type UploadOptions struct {
	VariantID string
}

// SupplierTerms are the link attributes sent with a supplier/product association.
type SupplierTerms struct {
	LastPurchasePrice *decimal.Decimal `json:"lastPurchasePrice"`
	Currency          string           `json:"currency" validate:"required,iso4217"`
}

// Channel is a marketplace sales channel.
type Channel struct {
	ID          string `json:"id"`
	Marketplace string `json:"marketplace"`
	Name        string `json:"name,omitempty"`
}

// ListingPayload creates a marketplace listing for a product.
type ListingPayload struct {
	ChannelID  string           `json:"channelId" validate:"required"`
	ExternalID string           `json:"externalId,omitempty"`
	URL        string           `json:"url,omitempty" validate:"omitempty,url"`
	Price      *decimal.Decimal `json:"price,omitempty"`
}

// Listing is a persisted marketplace listing.
type Listing struct {
	ID          string `json:"id"`
	ChannelID   string `json:"channelId"`
	Marketplace string `json:"marketplace,omitempty"`
	ExternalID  string `json:"externalId,omitempty"`
	URL         string `json:"url,omitempty"`
}

// MetaEnums are the option sets published by the backend. Entries may be plain strings
// or {value,label} objects; catalog.Option decodes both.
type MetaEnums struct {
	ProductStatus    []catalog.Option `json:"ProductStatus"`
	ProductCondition []catalog.Option `json:"ProductCondition"`
	WeightUnit       []catalog.Option `json:"WeightUnit"`
	LengthUnit       []catalog.Option `json:"LengthUnit"`
}

// Options applies the hardcoded fallbacks for absent enums.
func (m MetaEnums) Options() catalog.MetaOptions {
	return catalog.ResolveMetaOptions(m.ProductStatus, m.ProductCondition, m.WeightUnit, m.LengthUnit)
}

// Image is a stored product or variant image.
type Image struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	VariantID string `json:"variantId,omitempty"`
}

// SupplierLink associates a supplier with a product.
type SupplierLink struct {
	SupplierID        string           `json:"supplierId"`
	SupplierName      string           `json:"supplierName,omitempty"`
	LastPurchasePrice *decimal.Decimal `json:"lastPurchasePrice"`
	Currency          string           `json:"currency,omitempty"`
}

// ProductVariant is a persisted variant as returned inside a Product.
type ProductVariant struct {
	ID                string           `json:"id"`
	SKU               string           `json:"sku"`
	Size              string           `json:"size"`
	SizeCode          string           `json:"sizeCode,omitempty"`
	Color             string           `json:"color,omitempty"`
	Barcode           string           `json:"barcode,omitempty"`
	Weight            *float64         `json:"weight"`
	WeightUnit        string           `json:"weightUnit,omitempty"`
	Length            *float64         `json:"length"`
	Width             *float64         `json:"width"`
	Height            *float64         `json:"height"`
	LengthUnit        string           `json:"lengthUnit,omitempty"`
	PackagingType     *string          `json:"packagingType"`
	PackagingQuantity *int             `json:"packagingQuantity"`
	Active            bool             `json:"active"`
	StockOnHand       *int             `json:"stockOnHand"`
	RetailPrice       *decimal.Decimal `json:"retailPrice"`
	OriginalPrice     *decimal.Decimal `json:"originalPrice"`
	PurchasePrice     *decimal.Decimal `json:"purchasePrice"`
	Images            []Image          `json:"images,omitempty"`
}

// Product is the full aggregate used to hydrate an edit session.
type Product struct {
	ID                string           `json:"id"`
	Kind              string           `json:"kind"`
	Name              string           `json:"name"`
	SKU               string           `json:"sku"`
	Barcode           string           `json:"barcode,omitempty"`
	BarcodeType       string           `json:"barcodeType,omitempty"`
	Brand             string           `json:"brand,omitempty"`
	Status            string           `json:"status"`
	Category          string           `json:"category,omitempty"`
	OriginCountry     string           `json:"originCountry,omitempty"`
	Condition         string           `json:"condition,omitempty"`
	Size              string           `json:"size,omitempty"`
	Color             string           `json:"color,omitempty"`
	StockOnHand       *int             `json:"stockOnHand"`
	Weight            *float64         `json:"weight"`
	WeightUnit        string           `json:"weightUnit,omitempty"`
	Length            *float64         `json:"length"`
	Width             *float64         `json:"width"`
	Height            *float64         `json:"height"`
	LengthUnit        string           `json:"lengthUnit,omitempty"`
	PackagingType     *string          `json:"packagingType"`
	PackagingQuantity *int             `json:"packagingQuantity"`
	RetailPrice       *decimal.Decimal `json:"retailPrice"`
	CostPrice         *decimal.Decimal `json:"costPrice"`
	LastPurchasePrice *decimal.Decimal `json:"lastPurchasePrice"`
	Currency          string           `json:"currency,omitempty"`
	IsDraft           bool             `json:"isDraft"`
	PublishedAt       *time.Time       `json:"publishedAt"`
	Variants          []ProductVariant `json:"variants"`
	Images            []Image          `json:"images,omitempty"`
	Suppliers         []SupplierLink   `json:"suppliers,omitempty"`
	Listings          []Listing        `json:"listings,omitempty"`
}

// IsSimple reports whether the product is a simple (non-variant) product. Without an
// explicit kind, a product is simple only when it has no variants or a single backing
// variant that carries no size or color of its own.
func (p Product) IsSimple() bool {
	if p.Kind != "" {
		return p.Kind == KindSimple
	}
	switch len(p.Variants) {
	case 0:
		return true
	case 1:
		v := p.Variants[0]
		return strings.TrimSpace(v.Size) == "" &&
			strings.TrimSpace(v.SizeCode) == "" &&
			strings.TrimSpace(v.Color) == ""
	default:
		return false
	}
}
