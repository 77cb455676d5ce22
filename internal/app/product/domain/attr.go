package domain

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// AttrType is the discriminant of an attribute value.
type AttrType string

const (
	AttrString     AttrType = "string"
	AttrInteger    AttrType = "integer"
	AttrDecimal    AttrType = "decimal"
	AttrList       AttrType = "list"
	AttrBivariate  AttrType = "bivariate"
	AttrTrivariate AttrType = "trivariate"
)

// ValueKind describes the shape a decoded attribute value actually has.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindString
	KindNumber
	KindList
	KindOther
)

// AttrValue is a tagged union over the shapes an attribute value can take.
// The zero value is a null value.
type AttrValue struct {
	kind ValueKind
	str  string
	num  decimal.Decimal
	list []json.RawMessage
	raw  json.RawMessage
}

// StringValue builds a string attribute value.
func StringValue(s string) AttrValue {
	return AttrValue{kind: KindString, str: s}
}

// NumberValue builds a numeric attribute value.
func NumberValue(d decimal.Decimal) AttrValue {
	return AttrValue{kind: KindNumber, num: d}
}

// ListValue builds a list attribute value from arbitrary JSON-encodable items.
func ListValue(items ...any) AttrValue {
	list := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		b, err := json.Marshal(item)
		if err != nil {
			b = []byte("null")
		}
		list = append(list, b)
	}
	return AttrValue{kind: KindList, list: list}
}

func (v AttrValue) Kind() ValueKind { return v.kind }

// AsString returns the string payload and whether the value is a string.
func (v AttrValue) AsString() (string, bool) {
	return v.str, v.kind == KindString
}

// AsNumber returns the numeric payload and whether the value is a number.
func (v AttrValue) AsNumber() (decimal.Decimal, bool) {
	return v.num, v.kind == KindNumber
}

// Len returns the number of list items, or -1 when the value is not a list.
func (v AttrValue) Len() int {
	if v.kind != KindList {
		return -1
	}
	return len(v.list)
}

// Equal reports whether two values encode to the same JSON.
func (v AttrValue) Equal(other AttrValue) bool {
	a, errA := v.MarshalJSON()
	b, errB := other.MarshalJSON()
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(a, b)
}

func (v AttrValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return []byte(v.num.String()), nil
	case KindList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	case KindOther:
		return v.raw, nil
	default:
		return []byte("null"), nil
	}
}

func (v *AttrValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = AttrValue{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StringValue(s)
	case '[':
		var list []json.RawMessage
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*v = AttrValue{kind: KindList, list: list}
	case '{', 't', 'f':
		*v = AttrValue{kind: KindOther, raw: append(json.RawMessage(nil), data...)}
	default:
		d, err := decimal.NewFromString(string(data))
		if err != nil {
			return fmt.Errorf("invalid attribute value %s: %w", data, err)
		}
		*v = NumberValue(d)
	}
	return nil
}

// Attr is a typed product attribute.
type Attr struct {
	Code     string    `json:"code"`
	Name     string    `json:"name"`
	Value    AttrValue `json:"value"`
	Type     AttrType  `json:"type"`
	Optional bool      `json:"optional"`
	Unit     *string   `json:"unit"`
	Group    *string   `json:"group"`
}

// Equal reports whether two attributes are identical in every field.
func (a Attr) Equal(other Attr) bool {
	return a.Code == other.Code &&
		a.Name == other.Name &&
		a.Type == other.Type &&
		a.Optional == other.Optional &&
		equalStringPtr(a.Unit, other.Unit) &&
		equalStringPtr(a.Group, other.Group) &&
		a.Value.Equal(other.Value)
}

// CloneAttrs returns a copy of attrs that shares no slices with the input.
func CloneAttrs(attrs []Attr) []Attr {
	if attrs == nil {
		return nil
	}
	out := make([]Attr, len(attrs))
	copy(out, attrs)
	return out
}

// MarkNonOptional returns attrs with every entry marked required.
func MarkNonOptional(attrs []Attr) []Attr {
	out := CloneAttrs(attrs)
	for i := range out {
		out[i].Optional = false
	}
	return out
}

// ChangedAttrs returns the entries of next that have no identical entry in prev.
func ChangedAttrs(next, prev []Attr) []Attr {
	changed := make([]Attr, 0)
	for _, candidate := range next {
		same := false
		for _, before := range prev {
			if candidate.Equal(before) {
				same = true
				break
			}
		}
		if !same {
			changed = append(changed, candidate)
		}
	}
	return changed
}

// PatchAttrsByCode sets value, unit and group on every entry of attrs whose
// code matches an entry of patch. Entries without a match are left untouched
// and patch entries without a target are not appended.
func PatchAttrsByCode(attrs []Attr, patch []Attr) []Attr {
	out := CloneAttrs(attrs)
	for _, p := range patch {
		for i := range out {
			if out[i].Code == p.Code {
				out[i].Value = p.Value
				out[i].Unit = p.Unit
				out[i].Group = p.Group
			}
		}
	}
	return out
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
