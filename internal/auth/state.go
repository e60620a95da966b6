// Package auth carries the editor's view of the signed-in tenant and notifies
// subscribers when it changes.
package auth

import (
	"errors"
	"fmt"
	"strings"

	jwt "github.com/golang-jwt/jwt/v4"
	"golang.org/x/text/currency"
)

// ErrTokenMalformed is returned when a bearer token cannot be decoded.
var ErrTokenMalformed = errors.New("auth: token malformed")

// State is the tenant context the editor depends on.
type State struct {
	Token    string
	TenantID string
	Currency string
}

// SignedIn reports whether a bearer token is present.
func (s State) SignedIn() bool {
	return strings.TrimSpace(s.Token) != ""
}

var (
	tenantClaims   = []string{"tenantId", "tenant_id", "tid"}
	currencyClaims = []string{"currency", "tenantCurrency"}
)

// StateFromToken decodes tenant claims from token without verifying its signature; the
// backend verifies the token on every request. The currency claim must be an ISO-4217
// code, otherwise fallbackCurrency is used.
func StateFromToken(token, fallbackCurrency string) (State, error) {
	state := State{Token: strings.TrimSpace(token), Currency: normalizeCurrency(fallbackCurrency)}
	if state.Token == "" {
		return state, nil
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(state.Token, claims); err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
	state.TenantID = firstClaim(claims, tenantClaims)
	if cur := normalizeCurrency(firstClaim(claims, currencyClaims)); cur != "" {
		state.Currency = cur
	}
	return state, nil
}

func firstClaim(claims jwt.MapClaims, keys []string) string {
	for _, key := range keys {
		if v, ok := claims[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func normalizeCurrency(code string) string {
	unit, err := currency.ParseISO(strings.TrimSpace(code))
	if err != nil {
		return ""
	}
	return unit.String()
}
