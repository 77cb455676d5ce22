package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Field names for change tracking
const (
	FieldBaseAttrs    = "base_attrs"
	FieldAttrs        = "attrs"
	FieldExtraAttrs   = "extra_attrs"
	FieldSearchTerms  = "search_terms"
	FieldForSale      = "for_sale"
	FieldIsFilterable = "is_filterable"
	FieldImages       = "images"
)

// BaseAttrs are the commercial fields of a product.
type BaseAttrs struct {
	Name         string              `json:"name"`
	Price        decimal.Decimal     `json:"price"`
	DiscountRate decimal.NullDecimal `json:"discount_rate"`
	TaxRate      decimal.Decimal     `json:"tax_rate"`
	Stock        int64               `json:"stock"`
	MaxOrderQty  int64               `json:"max_order_qty"`
	SKU          string              `json:"sku"`
	ExternalID   *string             `json:"external_id"`
}

// Product is one stored document: a parent, a variation or a standalone product.
type Product struct {
	ID       string
	Parent   bool
	ParentID *string
	Category string

	BaseAttrs

	ForSale      bool
	IsFilterable bool
	SameImages   bool
	SearchTerms  []string

	Attrs          []Attr
	ExtraAttrs     []Attr
	VariationTheme *VariationTheme
	Images         Images

	CreatedAt time.Time
	UpdatedAt time.Time

	changes *ChangeTracker
}

// IsVariation reports whether the product belongs to a parent.
func (p *Product) IsVariation() bool {
	return !p.Parent && p.ParentID != nil
}

// Changes returns the fields modified since the product was loaded.
func (p *Product) Changes() *ChangeTracker {
	if p.changes == nil {
		p.changes = NewChangeTracker()
	}
	return p.changes
}

// SetBaseAttrs replaces the commercial fields.
func (p *Product) SetBaseAttrs(base BaseAttrs) {
	p.BaseAttrs = base
	p.Changes().MarkDirty(FieldBaseAttrs)
}

func (p *Product) SetAttrs(attrs []Attr) {
	p.Attrs = CloneAttrs(attrs)
	p.Changes().MarkDirty(FieldAttrs)
}

func (p *Product) SetExtraAttrs(attrs []Attr) {
	p.ExtraAttrs = CloneAttrs(attrs)
	p.Changes().MarkDirty(FieldExtraAttrs)
}

func (p *Product) SetSearchTerms(terms []string) {
	p.SearchTerms = append([]string(nil), terms...)
	p.Changes().MarkDirty(FieldSearchTerms)
}

// SetForSale is a no-op on a parent, which is never purchasable.
func (p *Product) SetForSale(forSale bool) {
	if p.Parent {
		return
	}
	p.ForSale = forSale
	p.Changes().MarkDirty(FieldForSale)
}

// SetIsFilterable is a no-op on a parent.
func (p *Product) SetIsFilterable(filterable bool) {
	if p.Parent {
		return
	}
	p.IsFilterable = filterable
	p.Changes().MarkDirty(FieldIsFilterable)
}

func (p *Product) SetImages(images Images) {
	p.Images = images.Clone()
	p.Changes().MarkDirty(FieldImages)
}

// ImageOwnerID returns the identifier under which the product's images are
// stored: the parent for a same-images variation, the source for a copying
// variation, the product itself otherwise.
func (p *Product) ImageOwnerID() string {
	if p.SameImages && p.ParentID != nil {
		return *p.ParentID
	}
	if p.Images.SourceProductID != nil {
		return *p.Images.SourceProductID
	}
	return p.ID
}

// Clone returns a deep copy of the product with a fresh change tracker.
func (p *Product) Clone() *Product {
	out := *p
	if p.ParentID != nil {
		id := *p.ParentID
		out.ParentID = &id
	}
	if p.ExternalID != nil {
		ext := *p.ExternalID
		out.ExternalID = &ext
	}
	out.SearchTerms = append([]string(nil), p.SearchTerms...)
	out.Attrs = CloneAttrs(p.Attrs)
	out.ExtraAttrs = CloneAttrs(p.ExtraAttrs)
	if p.VariationTheme != nil {
		theme := *p.VariationTheme
		theme.Options = append([]VariationThemeOption(nil), p.VariationTheme.Options...)
		out.VariationTheme = &theme
	}
	out.Images = p.Images.Clone()
	out.changes = nil
	return &out
}

// ProductInput is a validated create request.
type ProductInput struct {
	Category       string           `json:"category"`
	BaseAttrs      BaseAttrs        `json:"base_attrs"`
	Attrs          []Attr           `json:"attrs"`
	ExtraAttrs     []Attr           `json:"extra_attrs"`
	SearchTerms    []string         `json:"search_terms"`
	ForSale        bool             `json:"for_sale"`
	IsFilterable   bool             `json:"is_filterable"`
	SameImages     bool             `json:"same_images"`
	HasVariations  bool             `json:"has_variations"`
	VariationTheme *VariationTheme  `json:"variation_theme"`
	Images         *ImageSet        `json:"images"`
	Variations     []VariationInput `json:"variations"`
}

// VariationInput is one variation of a create or update request.
type VariationInput struct {
	BaseAttrs
	Attrs  []Attr           `json:"attrs"`
	Images *VariationImages `json:"images"`
}

// VariationUpdate carries the new commercial fields of an existing variation.
type VariationUpdate struct {
	ID string `json:"_id"`
	BaseAttrs
}

// ProductUpdate is a validated update request.
type ProductUpdate struct {
	BaseAttrs          BaseAttrs         `json:"base_attrs"`
	Attrs              []Attr            `json:"attrs"`
	ExtraAttrs         []Attr            `json:"extra_attrs"`
	SearchTerms        []string          `json:"search_terms"`
	ForSale            bool              `json:"for_sale"`
	IsFilterable       bool              `json:"is_filterable"`
	ImageOps           ImageOps          `json:"image_ops"`
	NewVariations      []VariationInput  `json:"new_variations"`
	OldVariations      []VariationUpdate `json:"old_variations"`
	VariationsToDelete []string          `json:"variations_to_delete"`
}
