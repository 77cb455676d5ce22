// Package images stores product images and keeps image links consistent
// across a product family.
package images

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/light-bringer/catalog-admin-service/internal/app/product/contracts"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/domain"
	"github.com/light-bringer/catalog-admin-service/internal/pkg/committer"
)

// Manager performs image operations against object storage and persists the
// resulting links.
type Manager struct {
	store   ObjectStore
	links   contracts.ImageLinkStore
	naming  Naming
	decoder Decoder
	logger  *zap.Logger
}

// NewManager creates a Manager. A nil logger disables logging.
func NewManager(store ObjectStore, links contracts.ImageLinkStore, naming Naming, decoder Decoder, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:   store,
		links:   links,
		naming:  naming,
		decoder: decoder,
		logger:  logger,
	}
}

// Perform applies ops to images owned by ownerID, always in the order
// delete, replace, add. The returned set is what must be linked.
func (m *Manager) Perform(ctx context.Context, ownerID string, current domain.Images, ops domain.ImageOps) (domain.Images, error) {
	images := current.Clone()

	if _, err := m.DeleteMany(ctx, &images, ops.Delete); err != nil {
		return images, err
	}
	if _, _, err := m.Replace(ctx, ownerID, &images, ops.Replace); err != nil {
		return images, err
	}
	if err := m.Add(ctx, ownerID, &images, ops.Add); err != nil {
		return images, err
	}
	return images, nil
}

// DeleteMany removes the requested secondary images from images and from
// storage. URLs that are not secondary images of images are ignored. An
// emptied list becomes nil.
func (m *Manager) DeleteMany(ctx context.Context, images *domain.Images, urls []string) (int, error) {
	if len(urls) == 0 || len(images.SecondaryImages) == 0 {
		return 0, nil
	}

	requested := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		requested[u] = struct{}{}
	}

	kept := make([]string, 0, len(images.SecondaryImages))
	var keys []string
	for _, u := range images.SecondaryImages {
		if _, ok := requested[u]; !ok {
			kept = append(kept, u)
			continue
		}
		key, err := m.naming.KeyFromURL(u)
		if err != nil {
			return 0, err
		}
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	if len(kept) == 0 {
		kept = nil
	}
	images.SecondaryImages = kept

	deleted, err := m.store.DeleteMany(ctx, keys)
	if err != nil {
		return len(deleted), fmt.Errorf("delete images: %w", err)
	}
	return len(deleted), nil
}

// Replace overwrites stored images in place. URLs do not change.
// A main replacement on a product without a main image stores a new one.
// Secondary replacements whose source is not a secondary image of images
// are skipped.
func (m *Manager) Replace(ctx context.Context, ownerID string, images *domain.Images, repl domain.ImageReplacements) (int, int, error) {
	var mainReplaced, secondaryReplaced int

	if repl.Main != "" {
		key := m.naming.Key(ownerID, mainNumber)
		if images.Main != "" {
			var err error
			if key, err = m.naming.KeyFromURL(images.Main); err != nil {
				return 0, 0, err
			}
		}
		if err := m.put(ctx, key, repl.Main); err != nil {
			return 0, 0, err
		}
		images.Main = m.naming.URL(key)
		mainReplaced = 1
	}

	owned := make(map[string]bool, len(images.SecondaryImages))
	for _, u := range images.SecondaryImages {
		owned[u] = true
	}
	for _, r := range repl.SecondaryImages {
		if !owned[r.Source] {
			m.logger.Warn("skipping replacement of a foreign image",
				zap.String("product_id", ownerID),
				zap.String("source", r.Source),
			)
			continue
		}
		key, err := m.naming.KeyFromURL(r.Source)
		if err != nil {
			return mainReplaced, secondaryReplaced, err
		}
		if err := m.put(ctx, key, r.NewImage); err != nil {
			return mainReplaced, secondaryReplaced, err
		}
		secondaryReplaced++
	}
	return mainReplaced, secondaryReplaced, nil
}

// Add appends new secondary images numbered after the last existing one.
func (m *Manager) Add(ctx context.Context, ownerID string, images *domain.Images, payloads []string) error {
	if len(payloads) == 0 {
		return nil
	}

	number := 0
	if n := len(images.SecondaryImages); n > 0 {
		last, err := m.naming.Number(images.SecondaryImages[n-1])
		if err != nil {
			return err
		}
		number = last
	}

	secondary := append([]string(nil), images.SecondaryImages...)
	for _, payload := range payloads {
		number++
		key := m.naming.Key(ownerID, number)
		if err := m.put(ctx, key, payload); err != nil {
			return err
		}
		secondary = append(secondary, m.naming.URL(key))
	}
	images.SecondaryImages = secondary
	return nil
}

// UpdateImagesOne performs ops on the images of productID and stores the
// result. With updateLinked, products copying from productID are mirrored.
func (m *Manager) UpdateImagesOne(ctx context.Context, productID string, ops domain.ImageOps, updateLinked bool) error {
	current, err := m.links.GetImages(ctx, productID)
	if err != nil {
		return err
	}
	images, err := m.Perform(ctx, productID, current, ops)
	if err != nil {
		return err
	}
	return m.UpdateLinksOne(ctx, productID, images, updateLinked)
}

// UpdateImagesMany performs ops on the images of a same-images family owner
// and sets the result on the owner and every member.
func (m *Manager) UpdateImagesMany(ctx context.Context, ownerID string, memberIDs []string, ops domain.ImageOps) error {
	current, err := m.links.GetImages(ctx, ownerID)
	if err != nil {
		return err
	}
	images, err := m.Perform(ctx, ownerID, current, ops)
	if err != nil {
		return err
	}
	ids := append([]string{ownerID}, memberIDs...)
	_, err = m.UpdateLinksMany(ctx, ids, []domain.Images{images}, true)
	return err
}

// UpdateLinksOne persists images on one product.
func (m *Manager) UpdateLinksOne(ctx context.Context, productID string, images domain.Images, updateLinked bool) error {
	if err := m.links.UpdateLinksOne(ctx, productID, images, updateLinked); err != nil {
		return fmt.Errorf("update image links of %s: %w", productID, err)
	}
	return nil
}

// UpdateLinksMany persists images on many products as one bulk write. With
// sameImages every id gets images[0]; otherwise ids and images pair up.
// Entries that were applied stay applied when others fail.
func (m *Manager) UpdateLinksMany(ctx context.Context, ids []string, images []domain.Images, sameImages bool) (committer.BatchResult, error) {
	if len(ids) == 0 {
		return committer.BatchResult{}, nil
	}
	if sameImages && len(images) != 1 {
		return committer.BatchResult{}, fmt.Errorf("same images needs exactly one image set, got %d", len(images))
	}
	if !sameImages && len(images) != len(ids) {
		return committer.BatchResult{}, fmt.Errorf("got %d image sets for %d products", len(images), len(ids))
	}

	updates := make([]contracts.LinkUpdate, 0, len(ids))
	for i, id := range ids {
		set := images[0]
		if !sameImages {
			set = images[i]
		}
		updates = append(updates, contracts.LinkUpdate{ProductID: id, Images: set.Clone()})
	}
	return m.applyLinks(ctx, updates)
}

func (m *Manager) applyLinks(ctx context.Context, updates []contracts.LinkUpdate) (committer.BatchResult, error) {
	result, err := m.links.UpdateLinksMany(ctx, updates)
	if len(result.Failed) > 0 {
		failed := make([]string, 0, len(result.Failed))
		for _, idx := range result.Failed {
			if idx >= 0 && idx < len(updates) {
				failed = append(failed, updates[idx].ProductID)
			}
		}
		m.logger.Warn("image link update partially failed",
			zap.Int("applied", len(result.Applied)),
			zap.Strings("failed_product_ids", failed),
		)
	}
	if err != nil {
		return result, fmt.Errorf("update image links: %w", err)
	}
	return result, nil
}

// DeleteObjects removes the stored objects behind every owned image set.
// Sets that copy from another product are skipped.
func (m *Manager) DeleteObjects(ctx context.Context, sets ...domain.Images) (int, error) {
	var keys []string
	seen := make(map[string]struct{})
	for _, set := range sets {
		if !set.OwnsStorage() {
			continue
		}
		for _, u := range set.URLs() {
			key, err := m.naming.KeyFromURL(u)
			if err != nil {
				return 0, err
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return 0, nil
	}

	deleted, err := m.store.DeleteMany(ctx, keys)
	if err != nil {
		return len(deleted), fmt.Errorf("delete images: %w", err)
	}
	return len(deleted), nil
}

func (m *Manager) put(ctx context.Context, key, payload string) error {
	data, err := m.decoder.Decode(payload)
	if err != nil {
		return err
	}
	if err := m.store.Put(ctx, key, data, ContentType); err != nil {
		return fmt.Errorf("store image %s: %w", key, err)
	}
	return nil
}
