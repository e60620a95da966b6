package catalog

import (
	"strconv"
	"strings"
)

// Packaging types offered by the editor.
const (
	PackagingSingle = "SINGLE"
	PackagingPair   = "PAIR"
	PackagingPack   = "PACK"
	PackagingBox    = "BOX"
	PackagingCase   = "CASE"
	PackagingBundle = "BUNDLE"
	PackagingSet    = "SET"
)

const pairQuantity = 2

var quantityNeeded = map[string]struct{}{
	PackagingPair:   {},
	PackagingPack:   {},
	PackagingBox:    {},
	PackagingCase:   {},
	PackagingBundle: {},
	PackagingSet:    {},
}

// ResolvedPackaging is the packaging shape sent to the backend. Nil fields encode as null.
type ResolvedPackaging struct {
	Type     *string `json:"packagingType"`
	Quantity *int    `json:"packagingQuantity"`
}

func normalizePackagingType(typ string) string {
	return strings.ToUpper(strings.TrimSpace(typ))
}

// IsPair reports whether typ is the fixed-quantity PAIR type.
func IsPair(typ string) bool {
	return normalizePackagingType(typ) == PackagingPair
}

// NeedsQuantity reports whether the packaging type requires a positive integer quantity.
func NeedsQuantity(typ string) bool {
	_, ok := quantityNeeded[normalizePackagingType(typ)]
	return ok
}

// PackagingQuantityFor applies the PAIR rule to an in-form quantity value.
func PackagingQuantityFor(typ, quantity string) string {
	if IsPair(typ) {
		return strconv.Itoa(pairQuantity)
	}
	return quantity
}

// ValidPackagingQuantity reports whether quantity is a positive integer.
func ValidPackagingQuantity(quantity string) bool {
	n := ParseInt(quantity)
	return n != nil && *n > 0
}

// ResolvePackaging converts form values into the wire shape: an empty type clears both
// fields, PAIR fixes the quantity at 2 and any other type keeps a positive integer
// quantity or null.
func ResolvePackaging(typ, quantity string) ResolvedPackaging {
	typ = normalizePackagingType(typ)
	if typ == "" {
		return ResolvedPackaging{}
	}
	out := ResolvedPackaging{Type: &typ}
	if typ == PackagingPair {
		q := pairQuantity
		out.Quantity = &q
		return out
	}
	if n := ParseInt(quantity); n != nil && *n > 0 {
		out.Quantity = n
	}
	return out
}
