package domain

// VariationThemeOption is one selectable axis of a variation theme.
type VariationThemeOption struct {
	Name       string   `json:"name"`
	FieldCodes []string `json:"field_codes"`
}

// VariationTheme declares which attribute codes differ between variations.
type VariationTheme struct {
	Name    string                 `json:"name"`
	Options []VariationThemeOption `json:"options"`
}

// FieldCodes flattens the field codes of every option into a set.
// A nil theme yields an empty set.
func (t *VariationTheme) FieldCodes() map[string]struct{} {
	codes := make(map[string]struct{})
	if t == nil {
		return codes
	}
	for _, opt := range t.Options {
		for _, code := range opt.FieldCodes {
			codes[code] = struct{}{}
		}
	}
	return codes
}

// SplitAttrs separates attrs into the entries that stay on the parent and the
// entries covered by fieldCodes, which are supplied per variation instead.
// Relative order is preserved in both results.
func SplitAttrs(attrs []Attr, fieldCodes map[string]struct{}) (parentAttrs, variationAttrs []Attr) {
	parentAttrs = make([]Attr, 0, len(attrs))
	variationAttrs = make([]Attr, 0)
	for _, attr := range attrs {
		if _, ok := fieldCodes[attr.Code]; ok {
			variationAttrs = append(variationAttrs, attr)
			continue
		}
		parentAttrs = append(parentAttrs, attr)
	}
	return parentAttrs, variationAttrs
}
