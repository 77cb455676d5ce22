package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Images is the persisted image link set of one product document.
//
// SecondaryImages is nil when the product has no secondary images; an empty
// slice is never stored. SourceProductID is set when the links point at the
// stored images of another product.
type Images struct {
	Main            string   `json:"main"`
	SecondaryImages []string `json:"secondaryImages"`
	SourceProductID *string  `json:"sourceProductId"`
}

// Clone returns a deep copy of i.
func (i Images) Clone() Images {
	out := Images{Main: i.Main}
	if i.SecondaryImages != nil {
		out.SecondaryImages = append([]string(nil), i.SecondaryImages...)
	}
	if i.SourceProductID != nil {
		id := *i.SourceProductID
		out.SourceProductID = &id
	}
	return out
}

// URLs returns the main image followed by every secondary image.
func (i Images) URLs() []string {
	urls := make([]string, 0, 1+len(i.SecondaryImages))
	if i.Main != "" {
		urls = append(urls, i.Main)
	}
	return append(urls, i.SecondaryImages...)
}

// OwnsStorage reports whether the stored objects behind i belong to the
// document itself rather than to a sibling it copies from.
func (i Images) OwnsStorage() bool {
	return i.SourceProductID == nil
}

// SourceRef identifies the product whose images a variation copies.
// During creation the source may not have an identifier yet, in which case
// it is referenced by its index in the in-flight variation list.
type SourceRef struct {
	index     int
	id        string
	persisted bool
}

// Pending references the variation at index in the same request.
func Pending(index int) SourceRef {
	return SourceRef{index: index}
}

// Persisted references a product that already exists in the store.
func Persisted(id string) SourceRef {
	return SourceRef{id: id, persisted: true}
}

// Index returns the in-flight index when the reference is pending.
func (s SourceRef) Index() (int, bool) {
	return s.index, !s.persisted
}

// ID returns the product identifier when the reference is persisted.
func (s SourceRef) ID() (string, bool) {
	return s.id, s.persisted
}

// Resolve turns a pending reference into a persisted one using the
// identifiers generated for the in-flight list.
func (s SourceRef) Resolve(ids []string) (SourceRef, error) {
	if s.persisted {
		return s, nil
	}
	if s.index < 0 || s.index >= len(ids) {
		return SourceRef{}, fmt.Errorf("image source index %d out of range [0,%d)", s.index, len(ids))
	}
	return Persisted(ids[s.index]), nil
}

func (s SourceRef) String() string {
	if s.persisted {
		return s.id
	}
	return "#" + strconv.Itoa(s.index)
}

func (s SourceRef) MarshalJSON() ([]byte, error) {
	if s.persisted {
		return json.Marshal(s.id)
	}
	return json.Marshal(s.index)
}

// UnmarshalJSON accepts an integer (pending index) or a string (identifier).
func (s *SourceRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*s = Persisted(id)
		return nil
	}
	var index int
	if err := json.Unmarshal(data, &index); err != nil {
		return fmt.Errorf("image source must be an index or an identifier: %w", err)
	}
	*s = Pending(index)
	return nil
}

// ImageSet is an incoming image payload: data URLs, not stored links.
type ImageSet struct {
	Main            string   `json:"main"`
	SecondaryImages []string `json:"secondaryImages"`
}

// IsEmpty reports whether the set carries no image at all.
func (s ImageSet) IsEmpty() bool {
	return s.Main == "" && len(s.SecondaryImages) == 0
}

// VariationImages is the image payload of one variation in a request.
// When Source is set the payload is ignored and the images of the source
// are linked instead.
type VariationImages struct {
	ImageSet
	Source *SourceRef `json:"sourceProductId"`
}

// SecondaryReplacement overwrites the object behind Source with NewImage.
type SecondaryReplacement struct {
	Source   string `json:"source"`
	NewImage string `json:"newImg"`
	Index    int    `json:"index"`
}

// ImageReplacements lists in-place overwrites of existing images.
type ImageReplacements struct {
	Main            string                 `json:"main"`
	SecondaryImages []SecondaryReplacement `json:"secondaryImages"`
}

// ImageOps are the image operations requested by an update.
type ImageOps struct {
	Add     []string          `json:"add"`
	Delete  []string          `json:"delete"`
	Replace ImageReplacements `json:"replace"`
}

// IsEmpty reports whether no operation is requested.
func (o ImageOps) IsEmpty() bool {
	return len(o.Add) == 0 && len(o.Delete) == 0 &&
		o.Replace.Main == "" && len(o.Replace.SecondaryImages) == 0
}
