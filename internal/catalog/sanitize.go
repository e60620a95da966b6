// Package catalog holds the pure helpers of the product editor: input sanitizers,
// derived-value calculators and the option sets offered by the editing surface.
package catalog

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var textPolicy = bluemonday.StrictPolicy()

// SanitizeDecimal keeps digits and a single decimal point, with at most two fractional
// digits. A trailing "." is preserved so partially typed values survive.
func SanitizeDecimal(input string) string {
	var (
		b        strings.Builder
		seenDot  bool
		fraction int
	)
	b.Grow(len(input))
	for _, r := range input {
		switch {
		case r == '.':
			if seenDot {
				continue
			}
			seenDot = true
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if seenDot {
				if fraction >= 2 {
					continue
				}
				fraction++
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SanitizeInteger strips everything but ASCII digits.
func SanitizeInteger(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SanitizeText removes markup from free-text input. Surrounding whitespace is kept;
// payload builders trim.
func SanitizeText(input string) string {
	if input == "" {
		return ""
	}
	if !strings.ContainsAny(input, "<>&") {
		return input
	}
	return html.UnescapeString(textPolicy.Sanitize(input))
}
