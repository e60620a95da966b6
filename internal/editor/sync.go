package editor

import (
	"fmt"
	"strings"

	"finitefield.org/catalog-editor/internal/catalog"
)

// Field names a parent-level form field.
type Field string

// Parent fields accepted by ApplyFieldChange.
const (
	FieldName              Field = "name"
	FieldSKU               Field = "sku"
	FieldBarcode           Field = "barcode"
	FieldBarcodeType       Field = "barcodeType"
	FieldBrand             Field = "brand"
	FieldStatus            Field = "status"
	FieldCategory          Field = "category"
	FieldOrigin            Field = "origin"
	FieldCondition         Field = "condition"
	FieldWeightMain        Field = "weightMain"
	FieldWeightSub         Field = "weightSub"
	FieldWeightUnit        Field = "weightUnit"
	FieldLength            Field = "length"
	FieldWidth             Field = "width"
	FieldHeight            Field = "height"
	FieldLengthUnit        Field = "lengthUnit"
	FieldPackagingType     Field = "packagingType"
	FieldPackagingQuantity Field = "packagingQuantity"
	FieldSize              Field = "size"
	FieldColor             Field = "color"
	FieldStockOnHand       Field = "stockOnHand"
	FieldRetailPrice       Field = "retailPrice"
	FieldCostPrice         Field = "costPrice"
	FieldLastPurchasePrice Field = "lastPurchasePrice"
)

// VariantField names a variant row field.
type VariantField string

// Variant row fields accepted by SetVariantField.
const (
	VariantSizeCode          VariantField = "sizeCode"
	VariantSizeText          VariantField = "sizeText"
	VariantColor             VariantField = "color"
	VariantSKU               VariantField = "sku"
	VariantBarcode           VariantField = "barcode"
	VariantWeightMain        VariantField = "weightMain"
	VariantWeightSub         VariantField = "weightSub"
	VariantWeightUnit        VariantField = "weightUnit"
	VariantLength            VariantField = "length"
	VariantWidth             VariantField = "width"
	VariantHeight            VariantField = "height"
	VariantLengthUnit        VariantField = "lengthUnit"
	VariantPackagingType     VariantField = "packagingType"
	VariantPackagingQuantity VariantField = "packagingQuantity"
	VariantStockOnHand       VariantField = "stockOnHand"
)

// PriceField names a variant pricing field.
type PriceField string

// Variant pricing fields accepted by SetVariantPrice.
const (
	PriceRetail   PriceField = "retail"
	PriceOriginal PriceField = "original"
	PricePurchase PriceField = "purchase"
)

func sanitizeEnum(v string) string { return strings.TrimSpace(v) }

// ApplyFieldChange sanitizes value, stores it on the parent and runs whatever
// propagation the field requires: the PAIR quantity rule, backfill of empty variant
// fields and auto-SKU maintenance while variants are enabled.
func (d *Draft) ApplyFieldChange(field Field, value string) error {
	p := &d.Parent
	shared := false
	switch field {
	case FieldName:
		p.Name = catalog.SanitizeText(value)
	case FieldSKU:
		p.SKU = strings.TrimSpace(catalog.SanitizeText(value))
		if d.variantEnabled {
			d.refreshAutoSKUs()
		}
	case FieldBarcode:
		p.Barcode = catalog.SanitizeText(value)
	case FieldBarcodeType:
		p.BarcodeType = sanitizeEnum(value)
	case FieldBrand:
		p.Brand = catalog.SanitizeText(value)
	case FieldStatus:
		p.Status = sanitizeEnum(value)
	case FieldCategory:
		p.Category = catalog.SanitizeText(value)
	case FieldOrigin:
		p.OriginCountry = strings.ToUpper(sanitizeEnum(value))
	case FieldCondition:
		p.Condition = sanitizeEnum(value)
	case FieldWeightMain:
		p.Weight.Main, shared = catalog.SanitizeDecimal(value), true
	case FieldWeightSub:
		p.Weight.Sub, shared = catalog.SanitizeDecimal(value), true
	case FieldWeightUnit:
		p.Weight.Unit, shared = sanitizeEnum(value), true
	case FieldLength:
		p.Dimensions.Length, shared = catalog.SanitizeDecimal(value), true
	case FieldWidth:
		p.Dimensions.Width, shared = catalog.SanitizeDecimal(value), true
	case FieldHeight:
		p.Dimensions.Height, shared = catalog.SanitizeDecimal(value), true
	case FieldLengthUnit:
		p.Dimensions.Unit, shared = sanitizeEnum(value), true
	case FieldPackagingType:
		p.Packaging.Type = strings.ToUpper(sanitizeEnum(value))
		p.Packaging.Quantity = catalog.PackagingQuantityFor(p.Packaging.Type, p.Packaging.Quantity)
		shared = true
	case FieldPackagingQuantity:
		p.Packaging.Quantity = catalog.PackagingQuantityFor(p.Packaging.Type, catalog.SanitizeInteger(value))
		shared = true
	case FieldSize:
		p.SizeText = catalog.SanitizeText(value)
	case FieldColor:
		p.ColorText = catalog.SanitizeText(value)
	case FieldStockOnHand:
		p.StockOnHand = catalog.SanitizeInteger(value)
	case FieldRetailPrice:
		p.Pricing.Retail, shared = catalog.SanitizeDecimal(value), true
	case FieldCostPrice:
		p.Pricing.Cost, shared = catalog.SanitizeDecimal(value), true
	case FieldLastPurchasePrice:
		p.Pricing.LastPurchase, shared = catalog.SanitizeDecimal(value), true
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	if shared && d.variantEnabled {
		d.backfillVariants()
	}
	return nil
}

// SetVariantEnabled toggles between simple and variant mode.
func (d *Draft) SetVariantEnabled(enabled bool) error {
	if enabled == d.variantEnabled {
		return nil
	}
	if enabled {
		if d.editSimple {
			return ErrSimpleProductLocked
		}
		d.variantEnabled = true
		if len(d.variants) == 0 {
			d.seedFromParent()
		} else {
			d.backfillVariants()
			d.refreshAutoSKUs()
		}
		return nil
	}
	d.variantEnabled = false
	d.copyFirstRowToParent()
	return nil
}

// seedFromParent creates the first row from the parent's shared fields.
func (d *Draft) seedFromParent() {
	p := d.Parent
	row := VariantRow{
		ID:         NewLocalRowID(),
		SizeText:   p.SizeText,
		Weight:     p.Weight,
		Dimensions: p.Dimensions,
		Packaging: Packaging{
			Type:     p.Packaging.Type,
			Quantity: catalog.PackagingQuantityFor(p.Packaging.Type, p.Packaging.Quantity),
		},
		Active:  true,
		AutoSKU: true,
	}
	row.SKU = catalog.AutoChildSKU(p.SKU, row.SizeCode, 0)
	d.appendRow(row, VariantPrice{
		Retail:   p.Pricing.Retail,
		Original: p.Pricing.Cost,
		Purchase: p.Pricing.LastPurchase,
	})
}

// backfillVariants copies parent shared fields into empty variant fields. Non-empty
// variant values are never overwritten.
func (d *Draft) backfillVariants() {
	p := d.Parent
	for i := range d.variants {
		row := &d.variants[i]

		if row.Weight.isEmpty() && !p.Weight.isEmpty() {
			row.Weight = p.Weight
		}

		dimsWereEmpty := row.Dimensions.isEmpty()
		fillEmpty(&row.Dimensions.Length, p.Dimensions.Length)
		fillEmpty(&row.Dimensions.Width, p.Dimensions.Width)
		fillEmpty(&row.Dimensions.Height, p.Dimensions.Height)
		if dimsWereEmpty && !row.Dimensions.isEmpty() {
			row.Dimensions.Unit = p.Dimensions.Unit
		}

		if strings.TrimSpace(row.Packaging.Type) == "" && p.Packaging.Type != "" {
			row.Packaging.Type = p.Packaging.Type
			row.Packaging.Quantity = catalog.PackagingQuantityFor(p.Packaging.Type, p.Packaging.Quantity)
		}

		price := d.prices[row.ID]
		fillEmpty(&price.Retail, p.Pricing.Retail)
		fillEmpty(&price.Original, p.Pricing.Cost)
		fillEmpty(&price.Purchase, p.Pricing.LastPurchase)
		d.prices[row.ID] = price
	}
}

func fillEmpty(dst *string, src string) {
	if strings.TrimSpace(*dst) == "" {
		*dst = src
	}
}

// copyFirstRowToParent pulls the first row's shared fields onto the parent.
func (d *Draft) copyFirstRowToParent() {
	if len(d.variants) == 0 {
		return
	}
	first := d.variants[0]
	d.Parent.Weight = first.Weight
	d.Parent.Dimensions = first.Dimensions
	d.Parent.Packaging = first.Packaging
	price := d.prices[first.ID]
	d.Parent.Pricing = Pricing{Retail: price.Retail, Cost: price.Original, LastPurchase: price.Purchase}
}

// refreshAutoSKUs recomputes the SKU of every auto row against its position.
func (d *Draft) refreshAutoSKUs() {
	for i := range d.variants {
		if d.variants[i].AutoSKU {
			d.variants[i].SKU = catalog.AutoChildSKU(d.Parent.SKU, d.variants[i].SizeCode, i)
		}
	}
}

// AddVariant appends a blank row with an auto SKU.
func (d *Draft) AddVariant() (VariantRow, error) {
	if d.editSimple {
		return VariantRow{}, ErrSimpleProductLocked
	}
	row := VariantRow{ID: NewLocalRowID(), Active: true, AutoSKU: true}
	row.SKU = catalog.AutoChildSKU(d.Parent.SKU, row.SizeCode, len(d.variants))
	d.appendRow(row, VariantPrice{})
	return row, nil
}

// DuplicateLast copies the last row under a new id with a recomputed auto SKU.
func (d *Draft) DuplicateLast() (VariantRow, error) {
	if d.editSimple {
		return VariantRow{}, ErrSimpleProductLocked
	}
	if len(d.variants) == 0 {
		return VariantRow{}, ErrNoVariants
	}
	last := d.variants[len(d.variants)-1]
	row := last
	row.ID = NewLocalRowID()
	row.AutoSKU = true
	row.SKU = catalog.AutoChildSKU(d.Parent.SKU, row.SizeCode, len(d.variants))
	d.appendRow(row, d.prices[last.ID])
	return row, nil
}

// RemoveVariant deletes a row and its pricing, then renumbers auto SKUs.
func (d *Draft) RemoveVariant(id RowID) error {
	i := d.indexOf(id)
	if i < 0 {
		return ErrUnknownVariant
	}
	d.removeRow(i)
	d.refreshAutoSKUs()
	return nil
}

// SetVariantField sanitizes and stores a row value. Editing the SKU directly stops
// auto-generation for that row.
func (d *Draft) SetVariantField(id RowID, field VariantField, value string) error {
	i := d.indexOf(id)
	if i < 0 {
		return ErrUnknownVariant
	}
	row := &d.variants[i]
	switch field {
	case VariantSizeCode:
		row.SizeCode = strings.ToUpper(catalog.SanitizeText(strings.TrimSpace(value)))
		if row.AutoSKU {
			row.SKU = catalog.AutoChildSKU(d.Parent.SKU, row.SizeCode, i)
		}
	case VariantSizeText:
		row.SizeText = catalog.SanitizeText(value)
	case VariantColor:
		row.ColorText = catalog.SanitizeText(value)
	case VariantSKU:
		row.SKU = strings.TrimSpace(catalog.SanitizeText(value))
		row.AutoSKU = false
	case VariantBarcode:
		row.Barcode = catalog.SanitizeText(value)
	case VariantWeightMain:
		row.Weight.Main = catalog.SanitizeDecimal(value)
	case VariantWeightSub:
		row.Weight.Sub = catalog.SanitizeDecimal(value)
	case VariantWeightUnit:
		row.Weight.Unit = sanitizeEnum(value)
	case VariantLength:
		row.Dimensions.Length = catalog.SanitizeDecimal(value)
	case VariantWidth:
		row.Dimensions.Width = catalog.SanitizeDecimal(value)
	case VariantHeight:
		row.Dimensions.Height = catalog.SanitizeDecimal(value)
	case VariantLengthUnit:
		row.Dimensions.Unit = sanitizeEnum(value)
	case VariantPackagingType:
		row.Packaging.Type = strings.ToUpper(sanitizeEnum(value))
		row.Packaging.Quantity = catalog.PackagingQuantityFor(row.Packaging.Type, row.Packaging.Quantity)
	case VariantPackagingQuantity:
		row.Packaging.Quantity = catalog.PackagingQuantityFor(row.Packaging.Type, catalog.SanitizeInteger(value))
	case VariantStockOnHand:
		row.StockOnHand = catalog.SanitizeInteger(value)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	return nil
}

// SetVariantActive toggles a row's active flag.
func (d *Draft) SetVariantActive(id RowID, active bool) error {
	i := d.indexOf(id)
	if i < 0 {
		return ErrUnknownVariant
	}
	d.variants[i].Active = active
	return nil
}

// SetVariantPrice stores a sanitized price on a row.
func (d *Draft) SetVariantPrice(id RowID, field PriceField, value string) error {
	if d.indexOf(id) < 0 {
		return ErrUnknownVariant
	}
	price := d.prices[id]
	value = catalog.SanitizeDecimal(value)
	switch field {
	case PriceRetail:
		price.Retail = value
	case PriceOriginal:
		price.Original = value
	case PricePurchase:
		price.Purchase = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	d.prices[id] = price
	return nil
}

// ensureSKU fills a blank parent SKU from the product name and refreshes auto rows.
func (d *Draft) ensureSKU(randIntN func(int) int) {
	if strings.TrimSpace(d.Parent.SKU) != "" || strings.TrimSpace(d.Parent.Name) == "" {
		return
	}
	d.Parent.SKU = catalog.AutoSKUFromName(d.Parent.Name, randIntN)
	if d.variantEnabled {
		d.refreshAutoSKUs()
	}
}
