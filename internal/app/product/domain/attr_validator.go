package domain

import "fmt"

// ValidateAttrs checks every attribute value against the rule for its type.
//
// An invalid attribute is dropped from the returned list when it is optional
// and dropInvalidOptional is set. Otherwise it is kept and its message is
// recorded under the attribute code.
func ValidateAttrs(attrs []Attr, dropInvalidOptional bool) ([]Attr, map[string]string) {
	cleaned := make([]Attr, 0, len(attrs))
	errs := make(map[string]string)

	for _, attr := range attrs {
		msg := checkAttrValue(attr)
		if msg == "" {
			cleaned = append(cleaned, attr)
			continue
		}
		if attr.Optional && dropInvalidOptional {
			continue
		}
		errs[attr.Code] = msg
		cleaned = append(cleaned, attr)
	}

	return cleaned, errs
}

func checkAttrValue(attr Attr) string {
	v := attr.Value
	switch attr.Type {
	case AttrString:
		if s, ok := v.AsString(); !ok || s == "" {
			return fmt.Sprintf("%s must have at least 1 symbol", attr.Name)
		}
	case AttrInteger, AttrDecimal:
		if _, ok := v.AsNumber(); !ok {
			return fmt.Sprintf("%s must be integer or decimal number", attr.Name)
		}
	case AttrList:
		if v.Len() < 1 {
			return fmt.Sprintf("%s must be list", attr.Name)
		}
	case AttrBivariate:
		if v.Len() != 2 {
			return fmt.Sprintf("%s must be bivariate", attr.Name)
		}
	case AttrTrivariate:
		if v.Len() != 3 {
			return fmt.Sprintf("%s must be trivariate", attr.Name)
		}
	default:
		return fmt.Sprintf("%s has unknown type %q", attr.Name, attr.Type)
	}
	return ""
}
