// Package removal deletes product documents together with the stored
// images they own.
package removal

import (
	"context"

	"go.uber.org/zap"

	"github.com/light-bringer/catalog-admin-service/internal/app/product/contracts"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/domain"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/images"
	"github.com/light-bringer/catalog-admin-service/internal/pkg/committer"
)

// Remover buffers deletions in a unit of work.
type Remover struct {
	products contracts.ProductRepository
	images   *images.Manager
	logger   *zap.Logger
}

// NewRemover creates a Remover.
func NewRemover(products contracts.ProductRepository, imgs *images.Manager, logger *zap.Logger) *Remover {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Remover{products: products, images: imgs, logger: logger}
}

// Remove buffers the deletion of targets in h and returns the identifiers
// of every deleted document. A parent takes all of its variations with it.
//
// Once h commits, the stored objects of the deleted documents are removed,
// except objects a document merely links to and objects still copied by a
// surviving sibling.
func (r *Remover) Remove(ctx context.Context, h committer.Handle, targets []*domain.Product) ([]string, error) {
	families := make(map[string][]*domain.Product)
	family := func(parentID string) ([]*domain.Product, error) {
		if members, ok := families[parentID]; ok {
			return members, nil
		}
		members, err := r.products.ListVariations(ctx, h.Reader(), parentID)
		if err != nil {
			return nil, err
		}
		families[parentID] = members
		return members, nil
	}

	doomed := make(map[string]*domain.Product)
	var order []string
	add := func(p *domain.Product) {
		if _, ok := doomed[p.ID]; ok {
			return
		}
		doomed[p.ID] = p
		order = append(order, p.ID)
	}

	for _, t := range targets {
		add(t)
		if !t.Parent {
			continue
		}
		members, err := family(t.ID)
		if err != nil {
			return nil, err
		}
		for _, v := range members {
			add(v)
		}
	}

	stillCopied := make(map[string]bool)
	for _, id := range order {
		p := doomed[id]
		if !p.IsVariation() {
			continue
		}
		members, err := family(*p.ParentID)
		if err != nil {
			return nil, err
		}
		for _, s := range members {
			if _, gone := doomed[s.ID]; gone {
				continue
			}
			if src := s.Images.SourceProductID; src != nil {
				stillCopied[*src] = true
			}
		}
	}

	var owned []domain.Images
	for _, id := range order {
		p := doomed[id]
		h.Add(r.products.DeleteMut(id))
		if !ownsObjects(p) {
			continue
		}
		if stillCopied[id] {
			r.logger.Info("keeping images copied by a sibling", zap.String("product_id", id))
			continue
		}
		owned = append(owned, p.Images)
	}

	if len(owned) > 0 {
		h.AfterCommit("delete product images", func(ctx context.Context) error {
			_, err := r.images.DeleteObjects(ctx, owned...)
			return err
		})
	}
	return order, nil
}

// ownsObjects reports whether the objects behind p's links were stored
// under p. A same-images variation shows its parent's objects and a
// distinct-images parent shows its first variation's main image.
func ownsObjects(p *domain.Product) bool {
	switch {
	case !p.Images.OwnsStorage():
		return false
	case p.IsVariation() && p.SameImages:
		return false
	case p.Parent && !p.SameImages:
		return false
	}
	return true
}
