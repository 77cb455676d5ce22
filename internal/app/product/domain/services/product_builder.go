package services

import (
	"time"

	"github.com/google/uuid"

	"github.com/light-bringer/catalog-admin-service/internal/app/product/domain"
)

// FamilyCommon holds the fields shared by every member of a product family.
// Attrs are the parent attributes with theme-covered codes already removed.
type FamilyCommon struct {
	Category       string
	SearchTerms    []string
	ForSale        bool
	IsFilterable   bool
	SameImages     bool
	VariationTheme *domain.VariationTheme
	Attrs          []domain.Attr
	ExtraAttrs     []domain.Attr
}

// CommonFromInput derives the family fields of a create request.
func CommonFromInput(in *domain.ProductInput) FamilyCommon {
	return FamilyCommon{
		Category:       in.Category,
		SearchTerms:    in.SearchTerms,
		ForSale:        in.ForSale,
		IsFilterable:   in.IsFilterable,
		SameImages:     in.SameImages,
		VariationTheme: in.VariationTheme,
		Attrs:          in.Attrs,
		ExtraAttrs:     in.ExtraAttrs,
	}
}

// CommonFromParent derives the family fields used when variations are added
// to an existing parent. New variations are always for sale and filterable.
func CommonFromParent(parent *domain.Product) FamilyCommon {
	return FamilyCommon{
		Category:       parent.Category,
		SearchTerms:    parent.SearchTerms,
		ForSale:        true,
		IsFilterable:   true,
		SameImages:     parent.SameImages,
		VariationTheme: parent.VariationTheme,
		Attrs:          parent.Attrs,
		ExtraAttrs:     parent.ExtraAttrs,
	}
}

// ProductBuilder shapes validated input into stored documents.
// It performs no I/O; images are never inlined into a document.
type ProductBuilder struct {
	newID func() string
}

// NewProductBuilder creates a builder. A nil newID falls back to random UUIDs.
func NewProductBuilder(newID func() string) *ProductBuilder {
	if newID == nil {
		newID = uuid.NewString
	}
	return &ProductBuilder{newID: newID}
}

// BuildSingle builds a standalone product, or the parent of a family when
// isParent is set. A parent is never for sale nor filterable.
func (b *ProductBuilder) BuildSingle(base domain.BaseAttrs, common FamilyCommon, isParent bool, now time.Time) *domain.Product {
	p := &domain.Product{
		ID:           b.newID(),
		Parent:       isParent,
		ParentID:     nil,
		Category:     common.Category,
		BaseAttrs:    base,
		ForSale:      common.ForSale,
		IsFilterable: common.IsFilterable,
		SameImages:   common.SameImages,
		SearchTerms:  append([]string(nil), common.SearchTerms...),
		Attrs:        domain.CloneAttrs(common.Attrs),
		ExtraAttrs:   domain.CloneAttrs(common.ExtraAttrs),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if p.ExtraAttrs == nil {
		p.ExtraAttrs = []domain.Attr{}
	}
	if isParent {
		p.ForSale = false
		p.IsFilterable = false
		p.VariationTheme = common.VariationTheme
	}
	return p
}

// BuildVariations builds one document per variation. Each variation gets the
// shared parent attributes followed by its own attributes.
//
// When copyImages is false the variations carry their own image payloads,
// which are returned in input order for a later batch upload. When it is set
// the family shares one image set and nil is returned.
func (b *ProductBuilder) BuildVariations(
	parentID string,
	common FamilyCommon,
	variations []domain.VariationInput,
	copyImages bool,
	now time.Time,
) ([]*domain.Product, []*domain.VariationImages) {
	docs := make([]*domain.Product, 0, len(variations))
	payloads := make([]*domain.VariationImages, 0, len(variations))

	for _, v := range variations {
		pid := parentID
		attrs := make([]domain.Attr, 0, len(common.Attrs)+len(v.Attrs))
		attrs = append(attrs, common.Attrs...)
		attrs = append(attrs, v.Attrs...)

		doc := &domain.Product{
			ID:           b.newID(),
			Parent:       false,
			ParentID:     &pid,
			Category:     common.Category,
			BaseAttrs:    v.BaseAttrs,
			ForSale:      common.ForSale,
			IsFilterable: common.IsFilterable,
			SameImages:   common.SameImages,
			SearchTerms:  append([]string(nil), common.SearchTerms...),
			Attrs:        attrs,
			ExtraAttrs:   domain.CloneAttrs(common.ExtraAttrs),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if doc.ExtraAttrs == nil {
			doc.ExtraAttrs = []domain.Attr{}
		}
		docs = append(docs, doc)
		payloads = append(payloads, v.Images)
	}

	if copyImages {
		return docs, nil
	}
	return docs, payloads
}
