package auth

import (
	"testing"

	jwt "github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	return token
}

func TestStateFromTokenReadsClaims(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{"tenantId": "t-9", "currency": "eur"})

	state, err := StateFromToken(token, "USD")
	require.NoError(t, err)
	require.True(t, state.SignedIn())
	require.Equal(t, "t-9", state.TenantID)
	require.Equal(t, "EUR", state.Currency)
}

func TestStateFromTokenFallsBackOnInvalidCurrency(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{"tid": "t-1", "currency": "dollars"})

	state, err := StateFromToken(token, "JPY")
	require.NoError(t, err)
	require.Equal(t, "t-1", state.TenantID)
	require.Equal(t, "JPY", state.Currency)
}

func TestStateFromTokenEmptyAndMalformed(t *testing.T) {
	state, err := StateFromToken("", "USD")
	require.NoError(t, err)
	require.False(t, state.SignedIn())
	require.Equal(t, "USD", state.Currency)

	_, err = StateFromToken("not-a-jwt", "USD")
	require.ErrorIs(t, err, ErrTokenMalformed)
}

func TestBroadcasterSubscribePublish(t *testing.T) {
	b := NewBroadcaster(State{Token: "a"})
	require.Equal(t, "a", b.Token())

	var got []string
	unsubscribe := b.Subscribe(func(s State) { got = append(got, "first:"+s.Token) })
	b.Subscribe(func(s State) { got = append(got, "second:"+s.Token) })

	b.Publish(State{Token: "b"})
	require.Equal(t, []string{"first:b", "second:b"}, got)

	unsubscribe()
	unsubscribe()
	b.Publish(State{Token: "c"})
	require.Equal(t, []string{"first:b", "second:b", "second:c"}, got)
	require.Equal(t, "c", b.Current().Token)
}

func TestBroadcasterZeroValue(t *testing.T) {
	var b Broadcaster
	called := false
	b.Subscribe(func(State) { called = true })
	b.Publish(State{})
	require.True(t, called)
	require.NotPanics(t, func() { b.Subscribe(nil)() })
}
