package editor

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildSimplePayload(t *testing.T) {
	d := validSimpleDraft(t)
	applyAll(t, d, map[Field]string{
		FieldWeightMain:    "1",
		FieldWeightSub:     "8",
		FieldPackagingType: "PAIR",
		FieldLength:        "10",
		FieldLengthUnit:    "cm",
	})

	payload := BuildProductPayload(d, BuildOptions{Now: fixedNow})
	require.NotNil(t, payload.Variants)
	require.Empty(t, payload.Variants)
	require.NotNil(t, payload.SimpleFields)
	require.Equal(t, "TOTE-1", payload.SKU)
	require.Equal(t, "US", payload.OriginCountry)
	require.Equal(t, fixedNow, *payload.PublishedAt)
	require.False(t, payload.IsDraft)
	require.InDelta(t, 1.5, *payload.Weight, 1e-9)
	require.Equal(t, "lb", payload.WeightUnit)
	require.Equal(t, 2, *payload.Quantity)
	require.Equal(t, "cm", payload.LengthUnit)
	require.Equal(t, "25", payload.RetailPrice.String())
	require.Equal(t, "USD", payload.Currency)

	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, []any{}, decoded["variants"])
	require.Equal(t, "PAIR", decoded["packagingType"])
}

func TestBuildDraftPayloadHasNoPublishedAt(t *testing.T) {
	d := NewDraft("USD", "")
	require.NoError(t, d.ApplyFieldChange(FieldName, "Draft"))

	payload := BuildProductPayload(d, BuildOptions{Draft: true, Now: fixedNow})
	require.True(t, payload.IsDraft)
	require.Nil(t, payload.PublishedAt)
	require.Empty(t, payload.OriginCountry)
}

func TestBuildVariantPayloadUsesPounds(t *testing.T) {
	d := validSimpleDraft(t)
	require.NoError(t, d.SetVariantEnabled(true))
	row := d.Variants()[0]
	require.NoError(t, d.SetVariantField(row.ID, VariantWeightMain, "2"))
	require.NoError(t, d.SetVariantField(row.ID, VariantWeightSub, "8"))
	require.NoError(t, d.SetVariantField(row.ID, VariantWeightUnit, "kg"))
	require.NoError(t, d.SetVariantField(row.ID, VariantSizeCode, "L"))
	require.NoError(t, d.SetVariantField(row.ID, VariantSKU, "  TOTE-L  "))
	row, _ = d.Variant(row.ID)

	vp := BuildVariantPayload(d, row)
	require.InDelta(t, 2.5, *vp.Weight, 1e-9)
	require.Equal(t, "lb", vp.WeightUnit)
	require.Equal(t, "TOTE-L", vp.SKU)
	require.Equal(t, "L", vp.Size)
	require.Equal(t, "25", vp.RetailPrice.String())
	require.Equal(t, "10", vp.OriginalPrice.String())

	payload := BuildProductPayload(d, BuildOptions{Now: fixedNow})
	require.Nil(t, payload.SimpleFields)
	require.Len(t, payload.Variants, 1)
	require.Equal(t, "Canvas Tote", payload.Name)

	patch := BuildParentPatch(d, BuildOptions{Now: fixedNow})
	require.Nil(t, patch.SimpleFields)
}

func TestEnsureSKUFallsBackToName(t *testing.T) {
	d := NewDraft("USD", "")
	require.NoError(t, d.ApplyFieldChange(FieldName, "canvas tote bag"))
	require.NoError(t, d.SetVariantEnabled(true))

	d.ensureSKU(func(int) int { return 42 })
	require.Equal(t, "CTB00000042", d.Parent.SKU)
	require.Equal(t, "CTB00000042-X", d.Variants()[0].SKU)

	d.ensureSKU(func(int) int { return 7 })
	require.Equal(t, "CTB00000042", d.Parent.SKU)
}
