package images

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/light-bringer/catalog-admin-service/internal/app/product/contracts"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/domain"
)

// uploadConcurrency bounds parallel puts for one image set.
const uploadConcurrency = 4

// UploadOne stores set under productID: the main image as number 0, the
// secondary images from 1 on. It returns the links to persist.
func (m *Manager) UploadOne(ctx context.Context, productID string, set domain.ImageSet) (domain.Images, error) {
	var images domain.Images
	if set.IsEmpty() {
		return images, nil
	}

	type job struct {
		number  int
		payload string
	}
	var jobs []job
	if set.Main != "" {
		jobs = append(jobs, job{number: mainNumber, payload: set.Main})
	}
	for i, payload := range set.SecondaryImages {
		jobs = append(jobs, job{number: i + 1, payload: payload})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadConcurrency)
	for _, j := range jobs {
		g.Go(func() error {
			return m.put(gctx, m.naming.Key(productID, j.number), j.payload)
		})
	}
	if err := g.Wait(); err != nil {
		return images, err
	}

	if set.Main != "" {
		images.Main = m.naming.URL(m.naming.Key(productID, mainNumber))
	}
	if len(set.SecondaryImages) > 0 {
		images.SecondaryImages = make([]string, 0, len(set.SecondaryImages))
		for i := range set.SecondaryImages {
			images.SecondaryImages = append(images.SecondaryImages, m.naming.URL(m.naming.Key(productID, i+1)))
		}
	}
	return images, nil
}

// UploadMany stores the images of freshly inserted products. ids and
// payloads pair up by position.
//
// A payload with a pending source is linked to the images of the product at
// that index, which are uploaded once under the source's id. A payload with
// a persisted source is linked to that product's stored images. Owned
// uploads come first in the result so they can be linked before the
// products that copy them.
func (m *Manager) UploadMany(ctx context.Context, ids []string, payloads []*domain.VariationImages) ([]contracts.LinkUpdate, error) {
	if len(ids) != len(payloads) {
		return nil, fmt.Errorf("got %d image payloads for %d products", len(payloads), len(ids))
	}

	uploaded := make(map[string]domain.Images)
	var owned, copied []contracts.LinkUpdate

	uploadOwn := func(id string, set domain.ImageSet) (domain.Images, error) {
		if images, ok := uploaded[id]; ok {
			return images, nil
		}
		images, err := m.UploadOne(ctx, id, set)
		if err != nil {
			return images, fmt.Errorf("upload images of %s: %w", id, err)
		}
		uploaded[id] = images
		owned = append(owned, contracts.LinkUpdate{ProductID: id, Images: images})
		return images, nil
	}

	for i, payload := range payloads {
		if payload == nil {
			continue
		}
		id := ids[i]

		if payload.Source == nil {
			if _, err := uploadOwn(id, payload.ImageSet); err != nil {
				return nil, err
			}
			continue
		}

		var (
			sourceID string
			images   domain.Images
		)
		if idx, pending := payload.Source.Index(); pending {
			if idx < 0 || idx >= len(ids) || payloads[idx] == nil {
				return nil, fmt.Errorf("image source %s of %s does not exist", payload.Source, id)
			}
			sourceID = ids[idx]
			src, err := uploadOwn(sourceID, payloads[idx].ImageSet)
			if err != nil {
				return nil, err
			}
			images = src.Clone()
		} else {
			persisted, _ := payload.Source.ID()
			src, err := m.links.GetImages(ctx, persisted)
			if err != nil {
				return nil, fmt.Errorf("read images of source %s: %w", persisted, err)
			}
			sourceID = persisted
			if src.SourceProductID != nil {
				sourceID = *src.SourceProductID
			}
			images = src.Clone()
		}

		images.SourceProductID = &sourceID
		copied = append(copied, contracts.LinkUpdate{ProductID: id, Images: images})
	}

	return append(owned, copied...), nil
}

// Family describes the images of a freshly created or extended family.
type Family struct {
	ParentID     string
	VariationIDs []string
	SameImages   bool
	// Shared is the family image set in same-images mode.
	Shared *domain.ImageSet
	// Payloads are the per-variation payloads in distinct-images mode.
	Payloads []*domain.VariationImages
	// LinkParent sets the parent's image to the first variation's main
	// image in distinct-images mode.
	LinkParent bool
}

// UploadFamily uploads and links the images of a family. Products that copy
// another product are linked only after their source was linked.
func (m *Manager) UploadFamily(ctx context.Context, f Family) error {
	if f.SameImages {
		if f.Shared == nil || f.Shared.IsEmpty() {
			return nil
		}
		images, err := m.UploadOne(ctx, f.ParentID, *f.Shared)
		if err != nil {
			return fmt.Errorf("upload family images of %s: %w", f.ParentID, err)
		}
		ids := append([]string{f.ParentID}, f.VariationIDs...)
		_, err = m.UpdateLinksMany(ctx, ids, []domain.Images{images}, true)
		return err
	}

	updates, err := m.UploadMany(ctx, f.VariationIDs, f.Payloads)
	if err != nil {
		return err
	}

	var owned, copied []contracts.LinkUpdate
	for _, u := range updates {
		if u.Images.SourceProductID == nil {
			owned = append(owned, u)
		} else {
			copied = append(copied, u)
		}
	}
	if len(owned) > 0 {
		if _, err := m.applyLinks(ctx, owned); err != nil {
			return err
		}
	}
	if len(copied) > 0 {
		if _, err := m.applyLinks(ctx, copied); err != nil {
			return err
		}
	}

	if !f.LinkParent || len(f.VariationIDs) == 0 {
		return nil
	}
	first := f.VariationIDs[0]
	for _, u := range updates {
		if u.ProductID != first {
			continue
		}
		parentImages := domain.Images{Main: u.Images.Main}
		m.logger.Debug("linking parent image", zap.String("product_id", f.ParentID), zap.String("from", first))
		return m.UpdateLinksOne(ctx, f.ParentID, parentImages, false)
	}
	return nil
}
