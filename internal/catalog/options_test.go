package catalog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOptionUnmarshalAcceptsBothShapes(t *testing.T) {
	t.Parallel()

	var opts []Option
	err := json.Unmarshal([]byte(`["active", {"value": "archived", "label": "Archived"}, {"value": 3}]`), &opts)
	require.NoError(t, err)
	require.Equal(t, []Option{
		{Value: "active", Label: "active"},
		{Value: "archived", Label: "Archived"},
		{Value: "3", Label: "3"},
	}, opts)
}

func TestNormalizeOptions(t *testing.T) {
	t.Parallel()

	got := NormalizeOptions([]any{
		"NEW",
		map[string]any{"value": "USED", "label": "Used"},
		map[string]string{"value": "", "label": "skipped"},
		Option{Value: "RECONDITIONED"},
	})
	require.Equal(t, []Option{
		{Value: "NEW", Label: "NEW"},
		{Value: "USED", Label: "Used"},
		{Value: "RECONDITIONED", Label: "RECONDITIONED"},
	}, got)
}

func TestResolveMetaOptionsFallbacks(t *testing.T) {
	t.Parallel()

	meta := ResolveMetaOptions(nil, []Option{{Value: "NEW", Label: "New"}}, nil, nil)
	require.Equal(t, DefaultStatuses, meta.Statuses)
	require.Equal(t, []Option{{Value: "NEW", Label: "New"}}, meta.Conditions)
	require.Equal(t, DefaultWeightUnits, meta.WeightUnits)
	require.Equal(t, DefaultLengthUnits, meta.LengthUnits)
	require.True(t, Contains(meta.PackagingTypes, PackagingPair))

	meta.Statuses[0].Value = "mutated"
	require.Equal(t, "active", DefaultStatuses[0].Value)
}
