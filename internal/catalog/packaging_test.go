package catalog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolvePackaging(t *testing.T) {
	t.Parallel()

	empty := ResolvePackaging("", "3")
	require.Nil(t, empty.Type)
	require.Nil(t, empty.Quantity)

	pair := ResolvePackaging("pair", "7")
	require.Equal(t, PackagingPair, *pair.Type)
	require.Equal(t, 2, *pair.Quantity)

	box := ResolvePackaging("BOX", "12")
	require.Equal(t, 12, *box.Quantity)

	invalid := ResolvePackaging("BOX", "0")
	require.Equal(t, PackagingBox, *invalid.Type)
	require.Nil(t, invalid.Quantity)

	raw, err := json.Marshal(empty)
	require.NoError(t, err)
	require.JSONEq(t, `{"packagingType":null,"packagingQuantity":null}`, string(raw))
}

func TestPairLockHoldsForAnyInput(t *testing.T) {
	t.Parallel()

	for _, q := range []string{"", "0", "1", "2", "99", "abc"} {
		require.Equal(t, "2", PackagingQuantityFor("PAIR", q))
	}
	require.Equal(t, "5", PackagingQuantityFor("PACK", "5"))
}

func TestNeedsQuantity(t *testing.T) {
	t.Parallel()

	require.True(t, NeedsQuantity("box"))
	require.True(t, NeedsQuantity(PackagingPair))
	require.False(t, NeedsQuantity(PackagingSingle))
	require.False(t, NeedsQuantity(""))
	require.True(t, ValidPackagingQuantity("3"))
	require.False(t, ValidPackagingQuantity("0"))
	require.False(t, ValidPackagingQuantity(""))
}
