package editor

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"finitefield.org/catalog-editor/internal/backend"
	"finitefield.org/catalog-editor/internal/catalog"
)

// BuildOptions parameterizes the payload builders.
type BuildOptions struct {
	Draft bool
	Now   time.Time
}

func (o BuildOptions) publishedAt() *time.Time {
	if o.Draft {
		return nil
	}
	now := o.Now.UTC()
	return &now
}

// BuildEnvelope returns the parent-level fields shared by every product write.
func BuildEnvelope(d *Draft, opts BuildOptions) backend.Envelope {
	p := d.Parent
	origin := strings.TrimSpace(p.OriginCountry)
	if isOriginUnset(origin) {
		origin = ""
	}
	return backend.Envelope{
		Name:          strings.TrimSpace(p.Name),
		SKU:           strings.TrimSpace(p.SKU),
		Brand:         strings.TrimSpace(p.Brand),
		Status:        strings.TrimSpace(p.Status),
		OriginCountry: origin,
		Category:      strings.TrimSpace(p.Category),
		IsDraft:       opts.Draft,
		PublishedAt:   opts.publishedAt(),
	}
}

// BuildSimpleFields flattens the parent's simple-product attributes.
func BuildSimpleFields(d *Draft) *backend.SimpleFields {
	p := d.Parent
	fields := &backend.SimpleFields{
		Barcode:           strings.TrimSpace(p.Barcode),
		BarcodeType:       strings.TrimSpace(p.BarcodeType),
		Condition:         strings.TrimSpace(p.Condition),
		Size:              strings.TrimSpace(p.SizeText),
		Color:             strings.TrimSpace(p.ColorText),
		StockOnHand:       catalog.ParseInt(p.StockOnHand),
		Length:            catalog.ParseFloat(p.Dimensions.Length),
		Width:             catalog.ParseFloat(p.Dimensions.Width),
		Height:            catalog.ParseFloat(p.Dimensions.Height),
		ResolvedPackaging: catalog.ResolvePackaging(p.Packaging.Type, p.Packaging.Quantity),
		RetailPrice:       catalog.ParseDecimal(p.Pricing.Retail),
		CostPrice:         catalog.ParseDecimal(p.Pricing.Cost),
		LastPurchasePrice: catalog.ParseDecimal(p.Pricing.LastPurchase),
		Currency:          d.Currency(),
	}
	if fields.Length != nil || fields.Width != nil || fields.Height != nil {
		fields.LengthUnit = p.Dimensions.Unit
	}
	unit := weightUnitOr(p.Weight.Unit)
	if w, ok := catalog.ComposeWeight(p.Weight.Main, p.Weight.Sub, unit); ok {
		fields.Weight = &w
		fields.WeightUnit = unit
	}
	return fields
}

// BuildVariantPayload normalizes one row. Weight is always composed as pounds and
// ounces and sent with the lb unit.
func BuildVariantPayload(d *Draft, row VariantRow) backend.VariantPayload {
	price := d.prices[row.ID]
	size := strings.TrimSpace(row.SizeText)
	if size == "" {
		size = strings.TrimSpace(row.SizeCode)
	}
	out := backend.VariantPayload{
		SKU:               strings.TrimSpace(row.SKU),
		Size:              size,
		SizeCode:          strings.TrimSpace(row.SizeCode),
		Color:             strings.TrimSpace(row.ColorText),
		Barcode:           strings.TrimSpace(row.Barcode),
		WeightUnit:        catalog.WeightUnitPound,
		Length:            catalog.ParseFloat(row.Dimensions.Length),
		Width:             catalog.ParseFloat(row.Dimensions.Width),
		Height:            catalog.ParseFloat(row.Dimensions.Height),
		ResolvedPackaging: catalog.ResolvePackaging(row.Packaging.Type, row.Packaging.Quantity),
		Active:            row.Active,
		StockOnHand:       catalog.ParseInt(row.StockOnHand),
		RetailPrice:       catalog.ParseDecimal(price.Retail),
		OriginalPrice:     catalog.ParseDecimal(price.Original),
		PurchasePrice:     catalog.ParseDecimal(price.Purchase),
		Currency:          d.Currency(),
	}
	if out.Length != nil || out.Width != nil || out.Height != nil {
		out.LengthUnit = row.Dimensions.Unit
	}
	if w, ok := catalog.ComposeWeight(row.Weight.Main, row.Weight.Sub, catalog.WeightUnitPound); ok {
		out.Weight = &w
	}
	return out
}

// BuildProductPayload builds the create request. Simple products carry an explicit
// empty variant list.
func BuildProductPayload(d *Draft, opts BuildOptions) backend.ProductPayload {
	payload := backend.ProductPayload{Envelope: BuildEnvelope(d, opts)}
	if !d.variantEnabled {
		payload.SimpleFields = BuildSimpleFields(d)
		payload.Variants = []backend.VariantPayload{}
		return payload
	}
	payload.Variants = make([]backend.VariantPayload, 0, len(d.variants))
	for _, row := range d.variants {
		payload.Variants = append(payload.Variants, BuildVariantPayload(d, row))
	}
	return payload
}

// BuildParentPatch builds the edit-mode parent update. Variant products only patch
// the envelope.
func BuildParentPatch(d *Draft, opts BuildOptions) backend.ParentPatch {
	patch := backend.ParentPatch{Envelope: BuildEnvelope(d, opts)}
	if !d.variantEnabled {
		patch.SimpleFields = BuildSimpleFields(d)
	}
	return patch
}

// BuildSupplierTerms returns the link terms for a supplier row.
func BuildSupplierTerms(d *Draft, row SupplierRow) backend.SupplierTerms {
	return backend.SupplierTerms{
		LastPurchasePrice: catalog.ParseDecimal(row.LastPurchasePrice),
		Currency:          d.Currency(),
	}
}

func weightUnitOr(unit string) string {
	if strings.TrimSpace(unit) == "" {
		return catalog.WeightUnitPound
	}
	return strings.TrimSpace(unit)
}

func decimalString(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}
