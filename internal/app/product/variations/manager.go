// Package variations inserts, updates and deletes the variation set of a
// parent product inside a unit of work.
package variations

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/light-bringer/catalog-admin-service/internal/app/product/contracts"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/domain"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/domain/services"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/images"
	"github.com/light-bringer/catalog-admin-service/internal/pkg/clock"
	"github.com/light-bringer/catalog-admin-service/internal/pkg/committer"
)

// Manager orchestrates the variations of one family.
type Manager struct {
	products contracts.ProductRepository
	builder  *services.ProductBuilder
	images   *images.Manager
	clock    clock.Clock
	logger   *zap.Logger
}

// NewManager creates a Manager.
func NewManager(
	products contracts.ProductRepository,
	builder *services.ProductBuilder,
	imgs *images.Manager,
	clk clock.Clock,
	logger *zap.Logger,
) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		products: products,
		builder:  builder,
		images:   imgs,
		clock:    clk,
		logger:   logger,
	}
}

// Inserted describes freshly inserted variations.
type Inserted struct {
	Products []*domain.Product
	// Payloads pair up with Products. Nil when the family shares one image set.
	Payloads []*domain.VariationImages
}

// IDs returns the identifiers of the inserted variations in input order.
func (in *Inserted) IDs() []string {
	ids := make([]string, 0, len(in.Products))
	for _, p := range in.Products {
		ids = append(ids, p.ID)
	}
	return ids
}

// InsertVariations buffers the insertion of variations under parentID.
// common.Attrs must already be split by the variation theme.
func (m *Manager) InsertVariations(h committer.Handle, parentID string, common services.FamilyCommon, variations []domain.VariationInput) (*Inserted, error) {
	docs, payloads := m.builder.BuildVariations(parentID, common, variations, common.SameImages, m.clock.Now())
	for _, doc := range docs {
		mut, err := m.products.InsertMut(doc)
		if err != nil {
			return nil, fmt.Errorf("insert variation: %w", err)
		}
		h.Add(mut)
	}
	return &Inserted{Products: docs, Payloads: payloads}, nil
}

// Patch holds the family-wide changes applied to updated variations.
type Patch struct {
	// Attrs are set by code on every updated variation. Attributes the
	// variation does not carry are left alone.
	Attrs []domain.Attr
	// ExtraAttrs replace the variation's extra attributes when not nil.
	ExtraAttrs []domain.Attr
	// Deleted lists variations removed earlier in the same unit of work.
	// Reads do not see buffered deletes, so updates naming them are dropped.
	Deleted []string
}

// UpdateVariations buffers updates of existing variations of parentID.
// Updates naming a product that is not currently a variation of parentID,
// or one listed in patch.Deleted, are skipped. It returns the updated
// variations.
func (m *Manager) UpdateVariations(ctx context.Context, h committer.Handle, parentID string, updates []domain.VariationUpdate, patch Patch) ([]*domain.Product, error) {
	if len(updates) == 0 {
		return nil, nil
	}

	current, err := m.products.ListVariations(ctx, h.Reader(), parentID)
	if err != nil {
		return nil, err
	}
	deleted := make(map[string]bool, len(patch.Deleted))
	for _, id := range patch.Deleted {
		deleted[id] = true
	}
	byID := make(map[string]*domain.Product, len(current))
	for _, v := range current {
		if !deleted[v.ID] {
			byID[v.ID] = v
		}
	}

	updated := make([]*domain.Product, 0, len(updates))
	for _, u := range updates {
		v, ok := byID[u.ID]
		if !ok {
			m.logger.Debug("skipping update of a product outside the family",
				zap.String("product_id", u.ID),
				zap.String("parent_id", parentID),
			)
			continue
		}

		v.SetBaseAttrs(u.BaseAttrs)
		if len(patch.Attrs) > 0 {
			v.SetAttrs(domain.PatchAttrsByCode(v.Attrs, patch.Attrs))
		}
		if patch.ExtraAttrs != nil {
			v.SetExtraAttrs(patch.ExtraAttrs)
		}

		mut, err := m.products.UpdateMut(v)
		if err != nil {
			return nil, fmt.Errorf("update variation %s: %w", v.ID, err)
		}
		h.Add(mut)
		updated = append(updated, v)
	}
	return updated, nil
}

// DeleteVariations buffers the deletion of the given variations of parentID
// and schedules the removal of the images they own once the unit of work
// commits. Images copied from a sibling are never removed, and neither are
// images still copied by a sibling that stays. It returns the identifiers
// of the deleted variations.
func (m *Manager) DeleteVariations(ctx context.Context, h committer.Handle, parentID string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	family, err := m.products.ListVariations(ctx, h.Reader(), parentID)
	if err != nil {
		return nil, err
	}

	requested := make(map[string]bool, len(ids))
	for _, id := range ids {
		requested[id] = true
	}

	var doomed []*domain.Product
	stillCopied := make(map[string]bool)
	for _, v := range family {
		if requested[v.ID] {
			doomed = append(doomed, v)
			continue
		}
		if src := v.Images.SourceProductID; src != nil {
			stillCopied[*src] = true
		}
	}

	deleted := make([]string, 0, len(doomed))
	var owned []domain.Images
	for _, v := range doomed {
		h.Add(m.products.DeleteMut(v.ID))
		deleted = append(deleted, v.ID)
		if v.SameImages || !v.Images.OwnsStorage() {
			continue
		}
		if stillCopied[v.ID] {
			m.logger.Info("keeping images copied by a sibling", zap.String("product_id", v.ID))
			continue
		}
		owned = append(owned, v.Images)
	}

	if len(owned) > 0 {
		h.AfterCommit("delete variation images", func(ctx context.Context) error {
			_, err := m.images.DeleteObjects(ctx, owned...)
			return err
		})
	}
	return deleted, nil
}

// UploadAfterCommit schedules the upload and linking of family images for
// when the unit of work commits.
func (m *Manager) UploadAfterCommit(h committer.Handle, family images.Family) {
	h.AfterCommit("upload variation images", func(ctx context.Context) error {
		return m.images.UploadFamily(ctx, family)
	})
}
