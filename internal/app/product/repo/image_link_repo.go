package repo

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/spanner"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"

	"github.com/light-bringer/catalog-admin-service/internal/app/product/contracts"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/domain"
	"github.com/light-bringer/catalog-admin-service/internal/models/m_product"
	"github.com/light-bringer/catalog-admin-service/internal/pkg/committer"
	"github.com/light-bringer/catalog-admin-service/internal/pkg/query"
)

// ImageLinkRepo implements ImageLinkStore for Spanner.
type ImageLinkRepo struct {
	client    *spanner.Client
	committer *committer.Committer
	model     *m_product.Model
}

// NewImageLinkRepo creates a new ImageLinkRepo.
func NewImageLinkRepo(client *spanner.Client, c *committer.Committer) *ImageLinkRepo {
	return &ImageLinkRepo{client: client, committer: c, model: m_product.NewModel()}
}

var _ contracts.ImageLinkStore = (*ImageLinkRepo)(nil)

// GetImages reads the current image links of one product.
func (r *ImageLinkRepo) GetImages(ctx context.Context, productID string) (domain.Images, error) {
	row, err := r.client.Single().ReadRow(ctx, m_product.TableName, spanner.Key{productID}, m_product.ImageColumns)
	if err != nil {
		if spanner.ErrCode(err) == codes.NotFound {
			return domain.Images{}, domain.ErrProductNotFound
		}
		return domain.Images{}, fmt.Errorf("failed to read images: %w", err)
	}

	var (
		main, source spanner.NullString
		secondary    []string
	)
	if err := row.Columns(&main, &secondary, &source); err != nil {
		return domain.Images{}, fmt.Errorf("failed to parse images: %w", err)
	}
	images := domain.Images{Main: main.StringVal, SourceProductID: stringPtr(source)}
	if len(secondary) > 0 {
		images.SecondaryImages = secondary
	}
	return images, nil
}

// UpdateLinksOne stores images on productID and, when asked, mirrors them
// onto every product that copies from it.
func (r *ImageLinkRepo) UpdateLinksOne(ctx context.Context, productID string, images domain.Images, updateLinked bool) error {
	main, secondary, source := imageColumns(images)
	mut := r.model.ImagesMut(productID, main, secondary, source)

	if !updateLinked {
		plan := committer.NewPlan()
		plan.Add(mut)
		return r.committer.Apply(ctx, plan)
	}

	return r.committer.ApplyWithReadWriteTransaction(ctx, func(ctx context.Context, txn *spanner.ReadWriteTransaction) error {
		linked, err := linkedProductIDs(ctx, txn, productID)
		if err != nil {
			return err
		}
		plan := committer.NewPlan()
		plan.Add(mut)
		for _, id := range linked {
			plan.Add(r.model.MirrorMut(id, main, secondary))
		}
		return txn.BufferWrite(plan.Mutations())
	})
}

// UpdateLinksMany writes every update as its own mutation group.
func (r *ImageLinkRepo) UpdateLinksMany(ctx context.Context, updates []contracts.LinkUpdate) (committer.BatchResult, error) {
	groups := make([]*committer.CommitPlan, 0, len(updates))
	for _, u := range updates {
		main, secondary, source := imageColumns(u.Images)
		plan := committer.NewPlan()
		plan.Add(r.model.ImagesMut(u.ProductID, main, secondary, source))
		groups = append(groups, plan)
	}
	return r.committer.ApplyBatch(ctx, groups)
}

func linkedProductIDs(ctx context.Context, rd committer.Reader, sourceID string) ([]string, error) {
	stmt := query.From(m_product.TableName).
		Select(m_product.ProductID).
		Where(query.Eq(m_product.ImageSourceID, sourceID)).
		Where(query.Ne(m_product.ProductID, sourceID)).
		Build()

	iter := rd.Query(ctx, stmt)
	defer iter.Stop()

	var ids []string
	for {
		row, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return ids, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to query linked products: %w", err)
		}
		var id string
		if err := row.Columns(&id); err != nil {
			return nil, fmt.Errorf("failed to parse product id: %w", err)
		}
		ids = append(ids, id)
	}
}
