package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVariationTheme_FieldCodes(t *testing.T) {
	theme := &VariationTheme{
		Name: "color-size",
		Options: []VariationThemeOption{
			{Name: "Color", FieldCodes: []string{"color"}},
			{Name: "Size", FieldCodes: []string{"width", "height"}},
			{Name: "Shade", FieldCodes: []string{"color"}},
		},
	}

	codes := theme.FieldCodes()
	assert.Len(t, codes, 3)
	assert.Contains(t, codes, "color")
	assert.Contains(t, codes, "width")
	assert.Contains(t, codes, "height")

	var nilTheme *VariationTheme
	assert.Empty(t, nilTheme.FieldCodes())
}

func TestSplitAttrs(t *testing.T) {
	attrs := []Attr{
		attr("brand", AttrString, StringValue("acme"), false),
		attr("color", AttrString, StringValue("red"), false),
		attr("material", AttrString, StringValue("wood"), false),
		attr("width", AttrInteger, ListValue(), false),
	}
	codes := map[string]struct{}{"color": {}, "width": {}}

	parent, variation := SplitAttrs(attrs, codes)

	require.Len(t, parent, 2)
	assert.Equal(t, "brand", parent[0].Code)
	assert.Equal(t, "material", parent[1].Code)
	require.Len(t, variation, 2)
	assert.Equal(t, "color", variation[0].Code)
	assert.Equal(t, "width", variation[1].Code)

	t.Run("results are disjoint and cover the input", func(t *testing.T) {
		seen := map[string]int{}
		for _, a := range parent {
			seen[a.Code]++
			assert.NotContains(t, codes, a.Code)
		}
		for _, a := range variation {
			seen[a.Code]++
			assert.Contains(t, codes, a.Code)
		}
		assert.Len(t, seen, len(attrs))
		for _, n := range seen {
			assert.Equal(t, 1, n)
		}
	})

	t.Run("empty theme keeps everything on the parent", func(t *testing.T) {
		parent, variation := SplitAttrs(attrs, (*VariationTheme)(nil).FieldCodes())
		assert.Len(t, parent, len(attrs))
		assert.Empty(t, variation)
	})
}

func TestAttrValue_JSON(t *testing.T) {
	var got []Attr
	raw := `[
		{"code":"c","name":"C","type":"string","value":"red","optional":false,"unit":null,"group":null},
		{"code":"w","name":"W","type":"decimal","value":12.50,"optional":true,"unit":"kg","group":null},
		{"code":"s","name":"S","type":"bivariate","value":[1,"x"],"optional":false,"unit":null,"group":"dims"}
	]`
	require.NoError(t, json.Unmarshal([]byte(raw), &got))
	require.Len(t, got, 3)

	s, ok := got[0].Value.AsString()
	assert.True(t, ok)
	assert.Equal(t, "red", s)

	n, ok := got[1].Value.AsNumber()
	assert.True(t, ok)
	assert.Equal(t, "12.5", n.String())
	assert.Equal(t, "kg", *got[1].Unit)

	assert.Equal(t, 2, got[2].Value.Len())

	encoded, err := json.Marshal(got[2].Value)
	require.NoError(t, err)
	assert.JSONEq(t, `[1,"x"]`, string(encoded))
}

func TestPatchAttrsByCode(t *testing.T) {
	kg := "kg"
	attrs := []Attr{
		attr("brand", AttrString, StringValue("acme"), false),
		attr("weight", AttrDecimal, ListValue(), false),
		attr("color", AttrString, StringValue("red"), false),
	}
	patch := []Attr{
		{Code: "weight", Name: "weight", Type: AttrDecimal, Value: StringValue("ignored-type"), Unit: &kg},
		{Code: "unknown", Name: "unknown", Type: AttrString, Value: StringValue("x")},
	}

	out := PatchAttrsByCode(attrs, patch)
	require.Len(t, out, 3, "patch never appends")
	assert.True(t, out[0].Equal(attrs[0]))
	v, _ := out[1].Value.AsString()
	assert.Equal(t, "ignored-type", v)
	assert.Equal(t, "kg", *out[1].Unit)
	assert.True(t, out[2].Equal(attrs[2]))
	assert.Nil(t, attrs[1].Unit, "input is not mutated")
}

func TestChangedAttrs(t *testing.T) {
	before := []Attr{
		attr("brand", AttrString, StringValue("acme"), false),
		attr("material", AttrString, StringValue("wood"), false),
	}
	after := []Attr{
		attr("brand", AttrString, StringValue("acme"), false),
		attr("material", AttrString, StringValue("steel"), false),
		attr("origin", AttrString, StringValue("EU"), false),
	}

	changed := ChangedAttrs(after, before)
	require.Len(t, changed, 2)
	assert.Equal(t, "material", changed[0].Code)
	assert.Equal(t, "origin", changed[1].Code)
}
