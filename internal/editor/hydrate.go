package editor

import (
	"strconv"
	"strings"

	"finitefield.org/catalog-editor/internal/backend"
	"finitefield.org/catalog-editor/internal/catalog"
)

// FromProduct builds an edit-mode draft from a fetched product aggregate. A product of
// simple kind is locked out of variant mode for the session.
func FromProduct(p backend.Product, currency string) *Draft {
	d := NewDraft(currency, p.Status)
	d.productID = p.ID

	origin := strings.TrimSpace(p.OriginCountry)
	if origin == "" {
		origin = OriginUnset
	}
	weightUnit := weightUnitOr(p.WeightUnit)
	lengthUnit := p.LengthUnit
	if lengthUnit == "" {
		lengthUnit = catalog.LengthUnitInch
	}
	d.Parent = ParentFields{
		Name:          p.Name,
		SKU:           p.SKU,
		Barcode:       p.Barcode,
		BarcodeType:   p.BarcodeType,
		Brand:         p.Brand,
		Status:        d.Parent.Status,
		Category:      p.Category,
		OriginCountry: origin,
		Condition:     p.Condition,
		Weight:        weightFrom(p.Weight, weightUnit),
		Dimensions:    dimensionsFrom(p.Length, p.Width, p.Height, lengthUnit),
		Packaging:     packagingFrom(p.PackagingType, p.PackagingQuantity),
		SizeText:      p.Size,
		ColorText:     p.Color,
		StockOnHand:   intString(p.StockOnHand),
		Pricing: Pricing{
			Retail:       decimalString(p.RetailPrice),
			Cost:         decimalString(p.CostPrice),
			LastPurchase: decimalString(p.LastPurchasePrice),
		},
	}
	if p.Currency != "" && d.Currency() == "" {
		d.SetCurrency(p.Currency)
	}

	if p.IsSimple() {
		d.editSimple = true
		if len(p.Variants) > 0 {
			d.backingVariantID = p.Variants[0].ID
			d.backingVariantSKU = p.Variants[0].SKU
		}
	} else {
		d.variantEnabled = true
		for i, v := range p.Variants {
			row := VariantRow{
				ID:          ExistingRowID(v.ID),
				SizeCode:    v.SizeCode,
				SizeText:    v.Size,
				ColorText:   v.Color,
				SKU:         v.SKU,
				Barcode:     v.Barcode,
				Weight:      weightFrom(v.Weight, catalog.WeightUnitPound),
				Dimensions:  dimensionsFrom(v.Length, v.Width, v.Height, orDefault(v.LengthUnit, lengthUnit)),
				Packaging:   packagingFrom(v.PackagingType, v.PackagingQuantity),
				Active:      v.Active,
				StockOnHand: intString(v.StockOnHand),
				AutoSKU:     v.SKU == catalog.AutoChildSKU(p.SKU, v.SizeCode, i),
			}
			d.appendRow(row, VariantPrice{
				Retail:   decimalString(v.RetailPrice),
				Original: decimalString(v.OriginalPrice),
				Purchase: decimalString(v.PurchasePrice),
			})
		}
	}

	d.originalLinks = append(d.originalLinks, p.Suppliers...)
	d.listings = append(d.listings, p.Listings...)
	d.existingImages = append(d.existingImages, p.Images...)
	for _, v := range p.Variants {
		for _, img := range v.Images {
			if img.VariantID == "" {
				img.VariantID = v.ID
			}
			d.existingImages = append(d.existingImages, img)
		}
	}
	return d
}

func weightFrom(value *float64, unit string) Weight {
	w := Weight{Unit: unit}
	if value == nil {
		return w
	}
	parts := catalog.DecomposeWeight(*value, unit)
	w.Main, w.Sub = parts.Main, parts.Sub
	return w
}

func dimensionsFrom(l, w, h *float64, unit string) Dimensions {
	return Dimensions{Length: floatString(l), Width: floatString(w), Height: floatString(h), Unit: unit}
}

func packagingFrom(typ *string, qty *int) Packaging {
	out := Packaging{}
	if typ != nil {
		out.Type = strings.ToUpper(*typ)
	}
	out.Quantity = catalog.PackagingQuantityFor(out.Type, intString(qty))
	return out
}

func floatString(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func intString(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
