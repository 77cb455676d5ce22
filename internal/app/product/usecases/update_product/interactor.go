package update_product

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/light-bringer/catalog-admin-service/internal/app/product/contracts"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/domain"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/domain/services"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/images"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/replication"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/validation"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/variations"
	"github.com/light-bringer/catalog-admin-service/internal/pkg/committer"
)

// Request contains the data to update a product. For a parent it may also
// reshape the variation set.
type Request struct {
	ProductID string
	Update    domain.ProductUpdate
}

// Response reports what the update touched.
type Response struct {
	ProductID            string   `json:"_id"`
	InsertedVariationIDs []string `json:"inserted_variation_ids,omitempty"`
	UpdatedVariationIDs  []string `json:"updated_variation_ids,omitempty"`
	DeletedVariationIDs  []string `json:"deleted_variation_ids,omitempty"`
}

// Interactor handles the update product use case.
type Interactor struct {
	products   contracts.ProductRepository
	validator  *validation.Validator
	variations *variations.Manager
	images     *images.Manager
	replicator *replication.Replicator
	projector  replication.Projector
	uow        committer.UnitOfWork
	logger     *zap.Logger
}

// NewInteractor creates a new update product interactor.
func NewInteractor(
	products contracts.ProductRepository,
	validator *validation.Validator,
	variationManager *variations.Manager,
	imageManager *images.Manager,
	replicator *replication.Replicator,
	projector replication.Projector,
	uow committer.UnitOfWork,
	logger *zap.Logger,
) *Interactor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Interactor{
		products:   products,
		validator:  validator,
		variations: variationManager,
		images:     imageManager,
		replicator: replicator,
		projector:  projector,
		uow:        uow,
		logger:     logger,
	}
}

// Execute updates a product. The product and, for a parent, the variation
// set change in one unit of work; image operations and replication run
// after the commit.
func (i *Interactor) Execute(ctx context.Context, req *Request) (*Response, error) {
	// 1. Load target
	target, err := i.products.Get(ctx, nil, req.ProductID)
	if err != nil {
		return nil, err
	}

	// 2. Validate request
	upd := req.Update
	if err := i.validator.ValidateUpdate(ctx, target, &upd); err != nil {
		return nil, err
	}
	upd.Attrs = domain.MarkNonOptional(upd.Attrs)
	if upd.ExtraAttrs == nil {
		upd.ExtraAttrs = []domain.Attr{}
	}
	upd.NewVariations = append([]domain.VariationInput(nil), upd.NewVariations...)
	for k := range upd.NewVariations {
		upd.NewVariations[k].Attrs = domain.MarkNonOptional(upd.NewVariations[k].Attrs)
	}

	// 3. Write inside one unit of work, re-reading the target
	var resp *Response
	err = committer.Run(ctx, i.uow, func(ctx context.Context, h committer.Handle) error {
		p, err := i.products.Get(ctx, h.Reader(), req.ProductID)
		if err != nil {
			return err
		}
		if p.Parent {
			resp, err = i.updateFamily(ctx, h, p, &upd)
		} else {
			resp, err = i.updateSingle(ctx, h, p, &upd)
		}
		return err
	})
	if err != nil {
		return nil, domain.TransactionFailure(err)
	}

	i.logger.Info("product updated",
		zap.String("product_id", resp.ProductID),
		zap.Int("inserted_variations", len(resp.InsertedVariationIDs)),
		zap.Int("updated_variations", len(resp.UpdatedVariationIDs)),
		zap.Int("deleted_variations", len(resp.DeletedVariationIDs)),
	)
	return resp, nil
}

func (i *Interactor) updateSingle(ctx context.Context, h committer.Handle, p *domain.Product, upd *domain.ProductUpdate) (*Response, error) {
	p.SetBaseAttrs(upd.BaseAttrs)
	p.SetAttrs(upd.Attrs)
	p.SetExtraAttrs(upd.ExtraAttrs)
	p.SetSearchTerms(upd.SearchTerms)
	p.SetForSale(upd.ForSale)
	p.SetIsFilterable(upd.IsFilterable)

	mut, err := i.products.UpdateMut(p)
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	h.Add(mut)

	event := replication.UpdatedEvent(p.ID, []replication.Record{i.projector.Updated(p, true)})
	if err := i.replicator.Stage(h, event); err != nil {
		return nil, err
	}

	if !upd.ImageOps.IsEmpty() {
		if err := i.scheduleImageOps(ctx, h, p, upd.ImageOps); err != nil {
			return nil, err
		}
	}
	return &Response{ProductID: p.ID}, nil
}

// scheduleImageOps runs ops after the commit on the document that owns the
// product's images.
func (i *Interactor) scheduleImageOps(ctx context.Context, h committer.Handle, p *domain.Product, ops domain.ImageOps) error {
	if p.SameImages && p.ParentID != nil {
		parentID := *p.ParentID
		if _, err := i.products.Get(ctx, h.Reader(), parentID); err != nil {
			if errors.Is(err, domain.ErrProductNotFound) {
				return fmt.Errorf("%w: %s", domain.ErrParentNotFound, parentID)
			}
			return err
		}
		members, err := i.products.ListVariations(ctx, h.Reader(), parentID)
		if err != nil {
			return err
		}
		ids := make([]string, 0, len(members))
		for _, m := range members {
			ids = append(ids, m.ID)
		}
		h.AfterCommit("update family images", func(ctx context.Context) error {
			return i.images.UpdateImagesMany(ctx, parentID, ids, ops)
		})
		return nil
	}

	owner := p.ImageOwnerID()
	updateLinked := p.IsVariation()
	h.AfterCommit("update product images", func(ctx context.Context) error {
		return i.images.UpdateImagesOne(ctx, owner, ops, updateLinked)
	})
	return nil
}

func (i *Interactor) updateFamily(ctx context.Context, h committer.Handle, p *domain.Product, upd *domain.ProductUpdate) (*Response, error) {
	before := p.Clone()

	// 1. Patch the parent; theme-covered codes stay on the variations
	parentAttrs, _ := domain.SplitAttrs(upd.Attrs, p.VariationTheme.FieldCodes())
	p.SetBaseAttrs(upd.BaseAttrs)
	p.SetAttrs(parentAttrs)
	p.SetExtraAttrs(upd.ExtraAttrs)
	p.SetSearchTerms(upd.SearchTerms)

	mut, err := i.products.UpdateMut(p)
	if err != nil {
		return nil, fmt.Errorf("update parent: %w", err)
	}
	h.Add(mut)

	current, err := i.products.ListVariations(ctx, h.Reader(), p.ID)
	if err != nil {
		return nil, err
	}

	// 2. Delete, then insert, then update variations
	deleted, err := i.variations.DeleteVariations(ctx, h, p.ID, upd.VariationsToDelete)
	if err != nil {
		return nil, err
	}

	inserted := &variations.Inserted{}
	if len(upd.NewVariations) > 0 {
		inserted, err = i.variations.InsertVariations(h, p.ID, services.CommonFromParent(p), upd.NewVariations)
		if err != nil {
			return nil, err
		}
	}

	patch := variations.Patch{
		Attrs:      domain.ChangedAttrs(parentAttrs, before.Attrs),
		ExtraAttrs: upd.ExtraAttrs,
		Deleted:    deleted,
	}
	updated, err := i.variations.UpdateVariations(ctx, h, p.ID, upd.OldVariations, patch)
	if err != nil {
		return nil, err
	}

	// 3. Replication
	resp := &Response{ProductID: p.ID, DeletedVariationIDs: deleted, InsertedVariationIDs: inserted.IDs()}
	if len(updated) > 0 {
		records := make([]replication.Record, 0, len(updated))
		for _, v := range updated {
			records = append(records, i.projector.Updated(v, false))
			resp.UpdatedVariationIDs = append(resp.UpdatedVariationIDs, v.ID)
		}
		if err := i.replicator.Stage(h, replication.UpdatedEvent(p.ID, records)); err != nil {
			return nil, err
		}
	}
	if len(inserted.Products) > 0 {
		ids := inserted.IDs()
		records := make([]replication.Record, 0, len(ids))
		for k, v := range inserted.Products {
			records = append(records, i.projector.Created(v, copiedFrom(ids, inserted.Payloads, k)))
		}
		if err := i.replicator.Stage(h, replication.CreatedEvent(p.ID, records)); err != nil {
			return nil, err
		}
	}
	if len(deleted) > 0 {
		if err := i.replicator.Stage(h, replication.DeletedEvent(p.ID, deleted)); err != nil {
			return nil, err
		}
	}

	// 4. Images
	if !p.SameImages {
		if len(inserted.Products) > 0 {
			i.variations.UploadAfterCommit(h, images.Family{
				ParentID:     p.ID,
				VariationIDs: inserted.IDs(),
				Payloads:     inserted.Payloads,
			})
		}
		return resp, nil
	}

	if len(inserted.Products) == 0 && upd.ImageOps.IsEmpty() {
		return resp, nil
	}
	members := remainingMembers(current, deleted, inserted.IDs())
	ops := upd.ImageOps
	h.AfterCommit("update family images", func(ctx context.Context) error {
		return i.images.UpdateImagesMany(ctx, p.ID, members, ops)
	})
	return resp, nil
}

// remainingMembers lists the variation ids of a family once deleted were
// removed and inserted were added.
func remainingMembers(current []*domain.Product, deleted, inserted []string) []string {
	gone := make(map[string]bool, len(deleted))
	for _, id := range deleted {
		gone[id] = true
	}
	ids := make([]string, 0, len(current)+len(inserted))
	for _, v := range current {
		if !gone[v.ID] {
			ids = append(ids, v.ID)
		}
	}
	return append(ids, inserted...)
}

// copiedFrom returns the id of the product whose images new variation k
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
