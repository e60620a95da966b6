package catalog

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	defaultSKUPrefix   = "PRD"
	fallbackSizeCode   = "X"
	skuSuffixSpace     = 100_000_000
	gramsPerKilogram   = 1000
	ouncesPerPound     = 16
	weightComposeScale = 6
)

// Weight units understood by the calculators.
const (
	WeightUnitPound    = "lb"
	WeightUnitKilogram = "kg"
	WeightUnitOunce    = "oz"
	WeightUnitGram     = "g"
)

// Length units offered for dimensions.
const (
	LengthUnitInch       = "in"
	LengthUnitCentimeter = "cm"
	LengthUnitMillimeter = "mm"
)

// AutoSKUFromName derives a SKU from the initials of name followed by an 8 digit
// zero-padded random suffix. randIntN defaults to math/rand/v2.IntN.
func AutoSKUFromName(name string, randIntN func(int) int) string {
	if randIntN == nil {
		randIntN = rand.IntN
	}
	suffix := randIntN(skuSuffixSpace)
	if suffix < 0 {
		suffix = -suffix
	}
	return fmt.Sprintf("%s%08d", skuInitials(name), suffix%skuSuffixSpace)
}

func skuInitials(name string) string {
	// Casers hold state and are not shared between goroutines.
	upper := cases.Upper(language.Und)
	var b strings.Builder
	for _, token := range strings.Fields(name) {
		r, _ := utf8.DecodeRuneInString(token)
		b.WriteString(upper.String(string(r)))
	}
	if b.Len() == 0 {
		return defaultSKUPrefix
	}
	return b.String()
}

// AutoChildSKU computes a variant SKU from the parent SKU and the row's size code.
// Without a parent SKU the 1-based position is used instead.
func AutoChildSKU(parentSKU, sizeCode string, position int) string {
	parentSKU = strings.TrimSpace(parentSKU)
	if parentSKU == "" {
		return "X-" + strconv.Itoa(position+1)
	}
	sizeCode = strings.TrimSpace(sizeCode)
	if sizeCode == "" {
		sizeCode = fallbackSizeCode
	}
	return parentSKU + "-" + sizeCode
}

// WeightParts is the main/sub unit pair shown in the form, e.g. pounds and ounces.
type WeightParts struct {
	Main string
	Sub  string
}

// IsZero reports whether neither part is set.
func (w WeightParts) IsZero() bool {
	return strings.TrimSpace(w.Main) == "" && strings.TrimSpace(w.Sub) == ""
}

func subUnitsPer(unit string) int64 {
	if strings.EqualFold(strings.TrimSpace(unit), WeightUnitKilogram) {
		return gramsPerKilogram
	}
	return ouncesPerPound
}

// DecomposeWeight splits a normalized weight into whole main units and rounded sub units:
// kilograms and grams for "kg", pounds and ounces otherwise.
func DecomposeWeight(value float64, unit string) WeightParts {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return WeightParts{}
	}
	factor := subUnitsPer(unit)
	whole := math.Floor(value)
	sub := int64(math.Round((value - whole) * float64(factor)))
	if sub >= factor {
		whole++
		sub -= factor
	}
	return WeightParts{
		Main: strconv.FormatFloat(whole, 'f', -1, 64),
		Sub:  strconv.FormatInt(sub, 10),
	}
}

// ComposeWeight is the inverse of DecomposeWeight. Unparseable components count as zero;
// when both components are blank no weight is asserted and ok is false.
func ComposeWeight(main, sub, unit string) (value float64, ok bool) {
	main = strings.TrimSpace(main)
	sub = strings.TrimSpace(sub)
	if main == "" && sub == "" {
		return 0, false
	}
	total := parseFiniteDecimal(main).Add(
		parseFiniteDecimal(sub).Div(decimal.NewFromInt(subUnitsPer(unit))),
	)
	f, _ := total.Round(weightComposeScale).Float64()
	return f, true
}

func parseFiniteDecimal(raw string) decimal.Decimal {
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseDecimal parses a sanitized numeric string. Blank or invalid input yields nil.
func ParseDecimal(raw string) *decimal.Decimal {
	raw = strings.TrimSuffix(strings.TrimSpace(raw), ".")
	if raw == "" {
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil
	}
	return &d
}

// ParseFloat is ParseDecimal for measurement fields sent as JSON numbers.
func ParseFloat(raw string) *float64 {
	d := ParseDecimal(raw)
	if d == nil {
		return nil
	}
	f, _ := d.Float64()
	return &f
}

// ParseInt parses a non-negative integer string. Blank or invalid input yields nil.
func ParseInt(raw string) *int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return nil
	}
	return &n
}

// IsPositiveAmount reports whether raw parses to a decimal greater than zero.
func IsPositiveAmount(raw string) bool {
	d := ParseDecimal(raw)
	return d != nil && d.IsPositive()
}
