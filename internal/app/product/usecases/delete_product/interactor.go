package delete_product

import (
	"context"

	"go.uber.org/zap"

	"github.com/light-bringer/catalog-admin-service/internal/app/product/contracts"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/domain"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/removal"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/replication"
	"github.com/light-bringer/catalog-admin-service/internal/pkg/committer"
)

// Request identifies the product to delete.
type Request struct {
	ProductID string
}

// Response lists every deleted document.
type Response struct {
	DeletedIDs []string `json:"deleted_ids"`
}

// Interactor handles the delete product use case.
type Interactor struct {
	products   contracts.ProductRepository
	remover    *removal.Remover
	replicator *replication.Replicator
	uow        committer.UnitOfWork
	logger     *zap.Logger
}

// NewInteractor creates a new delete product interactor.
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

// Execute deletes one product. Deleting a parent deletes its variations.
func (i *Interactor) Execute(ctx context.Context, req *Request) (*Response, error) {
	var deleted []string
	err := committer.Run(ctx, i.uow, func(ctx context.Context, h committer.Handle) error {
		// 1. Load aggregate
		p, err := i.products.Get(ctx, h.Reader(), req.ProductID)
		if err != nil {
			return err
		}

		// 2. Buffer deletes and storage cleanup
		deleted, err = i.remover.Remove(ctx, h, []*domain.Product{p})
		if err != nil {
			return err
		}

		// 3. Replicate
		return i.replicator.Stage(h, replication.DeletedEvent(p.ID, deleted))
	})
	if err != nil {
		return nil, domain.TransactionFailure(err)
	}

	i.logger.Info("product deleted",
		zap.String("product_id", req.ProductID),
		zap.Int("documents", len(deleted)),
	)
	return &Response{DeletedIDs: deleted}, nil
}
