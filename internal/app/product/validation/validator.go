// Package validation applies the business rules a create or update request
// must satisfy before anything is written.
package validation

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/light-bringer/catalog-admin-service/internal/app/product/contracts"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/domain"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/images"
)

const (
	msgDuplicateSKU     = "SKU must be unique for each variation"
	msgMainRequired     = "Main image is required"
	msgBadSource        = "Image source must reference a variation with its own images"
	msgNotAParent       = "Only a parent product accepts variations"
	msgNoSecondaryAtIdx = "No secondary image at this index"
)

// Validator checks requests against stored state.
type Validator struct {
	products   contracts.ProductRepository
	categories contracts.CategoryRepository
	decoder    images.Decoder
}

// NewValidator creates a Validator.
func NewValidator(products contracts.ProductRepository, categories contracts.CategoryRepository, decoder images.Decoder) *Validator {
	return &Validator{
		products:   products,
		categories: categories,
		decoder:    decoder,
	}
}

// ValidateCreate checks a create request and normalizes it in place: invalid
// optional attributes are dropped from in.Attrs. It returns
// domain.ErrCategoryNotFound for an unknown category and a
// *domain.ValidationError for every other rule.
func (v *Validator) ValidateCreate(ctx context.Context, in *domain.ProductInput) error {
	ok, err := v.categories.Exists(ctx, in.Category)
	if err != nil {
		return fmt.Errorf("check category: %w", err)
	}
	if !ok {
		return domain.ErrCategoryNotFound
	}

	fields := domain.FieldErrors{}

	cleaned, attrErrs := domain.ValidateAttrs(in.Attrs, true)
	in.Attrs = cleaned
	fields.Merge("attrs", attrErrs)
	_, extraErrs := domain.ValidateAttrs(in.ExtraAttrs, false)
	fields.Merge("extra_attrs", extraErrs)

	if in.Images != nil {
		if errs := v.imageSetErrors(*in.Images, false); !errs.Empty() {
			fields.Set("images", errs)
		}
	}

	skus := []string{in.BaseAttrs.SKU}
	if in.HasVariations {
		if in.VariationTheme == nil {
			fields.Set("variation_theme", domain.ErrVariationThemeRequired.Error())
		}
		if len(in.Variations) == 0 {
			fields.Set("variations", domain.ErrNoVariations.Error())
		}
		if errs := v.variationErrors(in.Variations, !in.SameImages, nil); !errs.Empty() {
			fields.Set("variations", errs)
		}
		for _, vi := range in.Variations {
			skus = append(skus, vi.SKU)
		}
	}

	if err := v.checkExistingSKUs(ctx, fields, skus); err != nil {
		return err
	}
	return domain.NewValidationError(fields)
}

// ValidateUpdate checks an update of target and normalizes upd in place.
func (v *Validator) ValidateUpdate(ctx context.Context, target *domain.Product, upd *domain.ProductUpdate) error {
	fields := domain.FieldErrors{}

	cleaned, attrErrs := domain.ValidateAttrs(upd.Attrs, true)
	upd.Attrs = cleaned
	fields.Merge("attrs", attrErrs)
	_, extraErrs := domain.ValidateAttrs(upd.ExtraAttrs, false)
	fields.Merge("extra_attrs", extraErrs)

	// A distinct-images parent has no images of its own to operate on.
	if !(target.Parent && !target.SameImages) {
		if errs := v.imageOpsErrors(upd.ImageOps); !errs.Empty() {
			fields.Set("image_ops", errs)
		}
	}

	if !target.Parent {
		if len(upd.NewVariations) > 0 || len(upd.OldVariations) > 0 || len(upd.VariationsToDelete) > 0 {
			fields.Set("new_variations", msgNotAParent)
		}
		return domain.NewValidationError(fields)
	}

	if len(upd.NewVariations) == 0 {
		return domain.NewValidationError(fields)
	}

	var siblings map[string]*domain.Product
	if !target.SameImages {
		family, err := v.products.ListVariations(ctx, nil, target.ID)
		if err != nil {
			return fmt.Errorf("list variations: %w", err)
		}
		siblings = make(map[string]*domain.Product, len(family))
		for _, s := range family {
			siblings[s.ID] = s
		}
		for _, id := range upd.VariationsToDelete {
			delete(siblings, id)
		}
	}

	if errs := v.variationErrors(upd.NewVariations, !target.SameImages, siblings); !errs.Empty() {
		fields.Set("new_variations", errs)
	}

	skus := make([]string, 0, len(upd.NewVariations))
	for _, vi := range upd.NewVariations {
		skus = append(skus, vi.SKU)
	}
	if err := v.checkExistingSKUs(ctx, fields, skus); err != nil {
		return err
	}
	return domain.NewValidationError(fields)
}

// variationErrors validates a variation list keyed by list index. Persisted
// image sources must be one of siblings.
func (v *Validator) variationErrors(list []domain.VariationInput, checkImages bool, siblings map[string]*domain.Product) domain.FieldErrors {
	errs := domain.FieldErrors{}
	seen := make(map[string]bool, len(list))

	for i, vi := range list {
		key := strconv.Itoa(i)

		_, attrErrs := domain.ValidateAttrs(vi.Attrs, false)
		if len(attrErrs) > 0 {
			errs.Child(key).Merge("attrs", attrErrs)
		}

		if checkImages {
			if imgErrs := v.variationImageErrors(list, i, siblings); !imgErrs.Empty() {
				errs.Child(key).Set("images", imgErrs)
			}
		}

		if vi.SKU == "" {
			continue
		}
		if seen[vi.SKU] {
			errs.Child(key).Set("sku", msgDuplicateSKU)
		}
		seen[vi.SKU] = true
	}
	return errs
}

func (v *Validator) variationImageErrors(list []domain.VariationInput, i int, siblings map[string]*domain.Product) domain.FieldErrors {
	payload := list[i].Images
	if payload == nil {
		return domain.FieldErrors{"main": []string{msgMainRequired}}
	}
	if payload.Source == nil {
		return v.imageSetErrors(payload.ImageSet, true)
	}

	valid := false
	if idx, pending := payload.Source.Index(); pending {
		valid = idx >= 0 && idx < len(list) && idx != i &&
			list[idx].Images != nil && list[idx].Images.Source == nil
	} else if id, _ := payload.Source.ID(); siblings != nil {
		s, ok := siblings[id]
		valid = ok && s.Images.OwnsStorage() && s.Images.Main != ""
	}
	if !valid {
		return domain.FieldErrors{"sourceProductId": msgBadSource}
	}
	return domain.FieldErrors{}
}

func (v *Validator) imageSetErrors(set domain.ImageSet, requireMain bool) domain.FieldErrors {
	errs := domain.FieldErrors{}
	switch {
	case set.Main != "":
		if problems := v.decoder.Validate(set.Main); len(problems) > 0 {
			errs.Set("main", problems)
		}
	case requireMain:
		errs.Set("main", []string{msgMainRequired})
	}
	for i, payload := range set.SecondaryImages {
		if problems := v.decoder.Validate(payload); len(problems) > 0 {
			errs.Child("secondaryImages").Set(strconv.Itoa(i), problems)
		}
	}
	return errs
}

func (v *Validator) imageOpsErrors(ops domain.ImageOps) domain.FieldErrors {
	errs := domain.FieldErrors{}
	for i, payload := range ops.Add {
		if problems := v.decoder.Validate(payload); len(problems) > 0 {
			errs.Child("add").Set(strconv.Itoa(i), problems)
		}
	}
	if ops.Replace.Main != "" {
		if problems := v.decoder.Validate(ops.Replace.Main); len(problems) > 0 {
			errs.Child("replace").Set("main", problems)
		}
	}
	for _, r := range ops.Replace.SecondaryImages {
		key := strconv.Itoa(r.Index)
		if r.Source == "" {
			errs.Child("replace").Child("secondaryImages").Set(key, []string{msgNoSecondaryAtIdx})
			continue
		}
		if problems := v.decoder.Validate(r.NewImage); len(problems) > 0 {
			errs.Child("replace").Child("secondaryImages").Set(key, problems)
		}
	}
	return errs
}

func (v *Validator) checkExistingSKUs(ctx context.Context, fields domain.FieldErrors, skus []string) error {
	unique := make([]string, 0, len(skus))
	seen := make(map[string]bool, len(skus))
	for _, sku := range skus {
		if sku == "" || seen[sku] {
			continue
		}
		seen[sku] = true
		unique = append(unique, sku)
	}
	if len(unique) == 0 {
		return nil
	}

	existing, err := v.products.ExistingSKUs(ctx, unique)
	if err != nil {
		return fmt.Errorf("check skus: %w", err)
	}
	if len(existing) > 0 {
		sort.Strings(existing)
		fields.Set("existed_skus", fmt.Sprintf("SKUs: %s already exist!", strings.Join(existing, ", ")))
	}
	return nil
}
