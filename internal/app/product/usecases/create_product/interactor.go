package create_product

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/light-bringer/catalog-admin-service/internal/app/product/contracts"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/domain"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/domain/services"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/images"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/replication"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/validation"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/variations"
	"github.com/light-bringer/catalog-admin-service/internal/pkg/clock"
	"github.com/light-bringer/catalog-admin-service/internal/pkg/committer"
)

// Request contains the data needed to create a product or a family.
type Request struct {
	Input domain.ProductInput
}

// Response identifies what was created. VariationIDs follow the order of
// the requested variations.
type Response struct {
	ProductID    string   `json:"_id"`
	VariationIDs []string `json:"variation_ids,omitempty"`
}

// Interactor handles the create product use case.
type Interactor struct {
	products   contracts.ProductRepository
	validator  *validation.Validator
	builder    *services.ProductBuilder
	variations *variations.Manager
	images     *images.Manager
	replicator *replication.Replicator
	projector  replication.Projector
	uow        committer.UnitOfWork
	clock      clock.Clock
	logger     *zap.Logger
}

// NewInteractor creates a new create product interactor.
func NewInteractor(
	products contracts.ProductRepository,
	validator *validation.Validator,
	builder *services.ProductBuilder,
	variationManager *variations.Manager,
	imageManager *images.Manager,
	replicator *replication.Replicator,
	projector replication.Projector,
	uow committer.UnitOfWork,
	clock clock.Clock,
	logger *zap.Logger,
) *Interactor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Interactor{
		products:   products,
		validator:  validator,
		builder:    builder,
		variations: variationManager,
		images:     imageManager,
		replicator: replicator,
		projector:  projector,
		uow:        uow,
		clock:      clock,
		logger:     logger,
	}
}

// Execute validates the request, writes the product or the whole family in
// one unit of work and schedules image upload and replication for after the
// commit.
func (i *Interactor) Execute(ctx context.Context, req *Request) (*Response, error) {
	in := req.Input

	// 1. Validate request
	if err := i.validator.ValidateCreate(ctx, &in); err != nil {
		return nil, err
	}

	// 2. Normalize: stored attributes are required, products are for sale
	in.Attrs = domain.MarkNonOptional(in.Attrs)
	in.Variations = append([]domain.VariationInput(nil), in.Variations...)
	for k := range in.Variations {
		in.Variations[k].Attrs = domain.MarkNonOptional(in.Variations[k].Attrs)
	}
	common := services.CommonFromInput(&in)
	common.ForSale = true

	// 3. Write inside one unit of work
	var resp *Response
	err := committer.Run(ctx, i.uow, func(ctx context.Context, h committer.Handle) error {
		var err error
		if in.HasVariations {
			resp, err = i.createFamily(h, &in, common)
		} else {
			resp, err = i.createSingle(h, &in, common)
		}
		return err
	})
	if err != nil {
		return nil, domain.TransactionFailure(err)
	}

	i.logger.Info("product created",
		zap.String("product_id", resp.ProductID),
		zap.Int("variations", len(resp.VariationIDs)),
	)
	return resp, nil
}

func (i *Interactor) createSingle(h committer.Handle, in *domain.ProductInput, common services.FamilyCommon) (*Response, error) {
	p := i.builder.BuildSingle(in.BaseAttrs, common, false, i.clock.Now())
	mut, err := i.products.InsertMut(p)
	if err != nil {
		return nil, fmt.Errorf("insert product: %w", err)
	}
	h.Add(mut)

	event := replication.CreatedEvent(p.ID, []replication.Record{i.projector.Created(p, p.ID)})
	if err := i.replicator.Stage(h, event); err != nil {
		return nil, err
	}

	if in.Images != nil && !in.Images.IsEmpty() {
		set := *in.Images
		h.AfterCommit("upload product images", func(ctx context.Context) error {
			stored, err := i.images.UploadOne(ctx, p.ID, set)
			if err != nil {
				return err
			}
			return i.images.UpdateLinksOne(ctx, p.ID, stored, false)
		})
	}
	return &Response{ProductID: p.ID}, nil
}

func (i *Interactor) createFamily(h committer.Handle, in *domain.ProductInput, common services.FamilyCommon) (*Response, error) {
	parentAttrs, _ := domain.SplitAttrs(common.Attrs, in.VariationTheme.FieldCodes())
	common.Attrs = parentAttrs

	parent := i.builder.BuildSingle(in.BaseAttrs, common, true, i.clock.Now())
	mut, err := i.products.InsertMut(parent)
	if err != nil {
		return nil, fmt.Errorf("insert parent: %w", err)
	}
	h.Add(mut)

	inserted, err := i.variations.InsertVariations(h, parent.ID, common, in.Variations)
	if err != nil {
		return nil, err
	}
	ids := inserted.IDs()

	records := make([]replication.Record, 0, len(inserted.Products))
	for k, v := range inserted.Products {
		records = append(records, i.projector.Created(v, copiedFrom(ids, inserted.Payloads, k)))
	}
	if err := i.replicator.Stage(h, replication.CreatedEvent(parent.ID, records)); err != nil {
		return nil, err
	}

	i.variations.UploadAfterCommit(h, images.Family{
		ParentID:     parent.ID,
		VariationIDs: ids,
		SameImages:   in.SameImages,
		Shared:       in.Images,
		Payloads:     inserted.Payloads,
		LinkParent:   !in.SameImages,
	})
	return &Response{ProductID: parent.ID, VariationIDs: ids}, nil
}

// copiedFrom returns the id of the variation whose images variation k
// copies, or "" when it does not copy.
func copiedFrom(ids []string, payloads []*domain.VariationImages, k int) string {
	if k >= len(payloads) || payloads[k] == nil || payloads[k].Source == nil {
		return ""
	}
	ref, err := payloads[k].Source.Resolve(ids)
	if err != nil {
		return ""
	}
	id, _ := ref.ID()
	return id
}
