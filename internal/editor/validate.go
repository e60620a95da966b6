package editor

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"finitefield.org/catalog-editor/internal/catalog"
)

// ErrValidation is matched by every *ValidationError.
var ErrValidation = errors.New("editor: validation failed")

// Missing-field keys. Row-scoped keys are the row id followed by one of the row suffixes.
const (
	KeyName              = "name"
	KeyStatus            = "status"
	KeyOrigin            = "origin"
	KeyCondition         = "condition"
	KeyPackagingQuantity = "packagingQuantity"
	KeyVariants          = "variants"

	RowKeySize              = ".size"
	RowKeySKU               = ".sku"
	RowKeyPackagingQuantity = ".packagingQuantity"
)

// ValidationError lists the fields blocking a save. Missing drives field highlighting;
// Pricing lists the price requirements enforced only at the save gate.
type ValidationError struct {
	Missing map[string]string
	Pricing []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	labels := make([]string, 0, len(e.Missing)+len(e.Pricing))
	for _, label := range e.Missing {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	labels = append(labels, e.Pricing...)
	return "editor: missing required fields: " + strings.Join(labels, ", ")
}

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// RowKey builds the missing-field key for a row-scoped field.
func RowKey(id RowID, suffix string) string { return id.String() + suffix }

func isOriginUnset(origin string) bool {
	origin = strings.TrimSpace(origin)
	return origin == "" || strings.EqualFold(origin, OriginUnset)
}

func hasSize(row VariantRow) bool {
	return strings.TrimSpace(row.SizeCode) != "" || strings.TrimSpace(row.SizeText) != ""
}

// Validate computes and stores the missing-field map for a draft or full save.
func (d *Draft) Validate(draftSave bool) map[string]string {
	missing := make(map[string]string)
	p := d.Parent

	if strings.TrimSpace(p.Name) == "" {
		missing[KeyName] = "Product name"
	}
	if !draftSave {
		if strings.TrimSpace(p.Status) == "" {
			missing[KeyStatus] = "Status"
		}
		if isOriginUnset(p.OriginCountry) {
			missing[KeyOrigin] = "Country of origin"
		}
		if d.variantEnabled {
			d.collectVariantMissing(missing)
		} else {
			if strings.TrimSpace(p.Condition) == "" {
				missing[KeyCondition] = "Condition"
			}
			if catalog.NeedsQuantity(p.Packaging.Type) && !catalog.ValidPackagingQuantity(p.Packaging.Quantity) {
				missing[KeyPackagingQuantity] = "Packaging quantity"
			}
		}
	}

	d.missing = missing
	return d.Missing()
}

func (d *Draft) collectVariantMissing(missing map[string]string) {
	if len(d.variants) == 0 {
		missing[KeyVariants] = "At least one variant"
		return
	}
	for i, row := range d.variants {
		n := i + 1
		if !hasSize(row) {
			missing[RowKey(row.ID, RowKeySize)] = fmt.Sprintf("Variant %d: Size", n)
		}
		if strings.TrimSpace(row.SKU) == "" {
			missing[RowKey(row.ID, RowKeySKU)] = fmt.Sprintf("Variant %d: SKU", n)
		}
		if catalog.NeedsQuantity(row.Packaging.Type) && !catalog.ValidPackagingQuantity(row.Packaging.Quantity) {
			missing[RowKey(row.ID, RowKeyPackagingQuantity)] = fmt.Sprintf("Variant %d: Packaging quantity", n)
		}
	}
}

// HasRequiredSimple reports whether a simple product carries retail and cost prices.
func (d *Draft) HasRequiredSimple() bool {
	return len(d.simplePricingProblems()) == 0
}

// HasRequiredVariants reports whether every row carries retail and original prices.
func (d *Draft) HasRequiredVariants() bool {
	return len(d.variants) > 0 && len(d.variantPricingProblems()) == 0
}

func (d *Draft) simplePricingProblems() []string {
	var out []string
	if !catalog.IsPositiveAmount(d.Parent.Pricing.Retail) {
		out = append(out, "Retail price")
	}
	if !catalog.IsPositiveAmount(d.Parent.Pricing.Cost) {
		out = append(out, "Cost price")
	}
	return out
}

func (d *Draft) variantPricingProblems() []string {
	var out []string
	for i, row := range d.variants {
		price := d.prices[row.ID]
		if !catalog.IsPositiveAmount(price.Retail) {
			out = append(out, fmt.Sprintf("Variant %d: Retail price", i+1))
		}
		if !catalog.IsPositiveAmount(price.Original) {
			out = append(out, fmt.Sprintf("Variant %d: Original price", i+1))
		}
	}
	return out
}

// CheckSave validates the draft for the given intent and applies the pricing gate to
// non-draft saves. It returns nil or a *ValidationError.
func (d *Draft) CheckSave(draftSave bool) error {
	missing := d.Validate(draftSave)
	var pricing []string
	if !draftSave {
		if d.variantEnabled {
			pricing = d.variantPricingProblems()
		} else {
			pricing = d.simplePricingProblems()
		}
	}
	if len(missing) == 0 && len(pricing) == 0 {
		return nil
	}
	return &ValidationError{Missing: missing, Pricing: pricing}
}
