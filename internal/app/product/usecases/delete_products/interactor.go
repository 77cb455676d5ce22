package delete_products

import (
	"context"

	"go.uber.org/zap"

	"github.com/light-bringer/catalog-admin-service/internal/app/product/contracts"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/domain"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/removal"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/replication"
	"github.com/light-bringer/catalog-admin-service/internal/pkg/committer"
)

// Request lists the products to delete. Parents, variations and standalone
// products may be mixed.
type Request struct {
	ProductIDs []string `json:"product_ids"`
}

// Response lists every deleted document.
type Response struct {
	DeletedIDs []string `json:"deleted_ids"`
}

// Interactor handles the bulk delete use case.
type Interactor struct {
	products   contracts.ProductRepository
	remover    *removal.Remover
	replicator *replication.Replicator
	uow        committer.UnitOfWork
	logger     *zap.Logger
}

// NewInteractor creates a new bulk delete interactor.
func NewInteractor(
	products contracts.ProductRepository,
	remover *removal.Remover,
	replicator *replication.Replicator,
	uow committer.UnitOfWork,
	logger *zap.Logger,
) *Interactor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Interactor{
		products:   products,
		remover:    remover,
		replicator: replicator,
		uow:        uow,
		logger:     logger,
	}
}

// Execute deletes the existing products among req.ProductIDs in one unit of
// work. Unknown ids are ignored; when none exists ErrProductNotFound is
// returned.
func (i *Interactor) Execute(ctx context.Context, req *Request) (*Response, error) {
	// 1. Validate request
	if len(req.ProductIDs) == 0 {
		return nil, domain.NewValidationError(domain.FieldErrors{"product_ids": "At least one product id is required"})
	}

	var deleted []string
	err := committer.Run(ctx, i.uow, func(ctx context.Context, h committer.Handle) error {
		// 2. Load aggregates
		targets, err := i.products.GetMany(ctx, h.Reader(), req.ProductIDs)
		if err != nil {
			return err
		}
		if len(targets) == 0 {
			return domain.ErrProductNotFound
		}

		// 3. Buffer deletes and storage cleanup
		deleted, err = i.remover.Remove(ctx, h, targets)
		if err != nil {
			return err
		}

		// 4. Replicate
		return i.replicator.Stage(h, replication.BulkDeletedEvent(req.ProductIDs[0], deleted))
	})
	if err != nil {
		return nil, domain.TransactionFailure(err)
	}

	i.logger.Info("products deleted",
		zap.Int("requested", len(req.ProductIDs)),
		zap.Int("documents", len(deleted)),
	)
	return &Response{DeletedIDs: deleted}, nil
}
