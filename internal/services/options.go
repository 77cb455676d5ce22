package services

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/spanner"
	gcs "cloud.google.com/go/storage"
	"go.uber.org/zap"

	productsvc "github.com/light-bringer/catalog-admin-service/internal/app/product/domain/services"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/images"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/queries/get_product"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/queries/list_products"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/queries/list_replication"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/removal"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/replication"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/repo"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/usecases/create_product"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/usecases/delete_product"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/usecases/delete_products"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/usecases/update_product"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/validation"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/variations"
	"github.com/light-bringer/catalog-admin-service/internal/config"
	"github.com/light-bringer/catalog-admin-service/internal/pkg/clock"
	"github.com/light-bringer/catalog-admin-service/internal/pkg/committer"
	"github.com/light-bringer/catalog-admin-service/internal/pkg/tasks"
	"github.com/light-bringer/catalog-admin-service/internal/platform/spannerdb"
	"github.com/light-bringer/catalog-admin-service/internal/platform/storage"
	transport "github.com/light-bringer/catalog-admin-service/internal/transport/http"
)

// ServiceOptions holds all dependencies for the application.
type ServiceOptions struct {
	SpannerClient *spanner.Client
	StorageClient *gcs.Client
	PubSubClient  *pubsub.Client

	Dispatcher     *tasks.Dispatcher
	Publisher      *replication.PubSubPublisher
	Replicator     *replication.Replicator
	ReplicationLog *repo.ReplicationLogRepo
	ProductHandler *transport.ProductHandler

	logger *zap.Logger
}

// NewServiceOptions creates and wires up all application dependencies.
func NewServiceOptions(ctx context.Context, cfg config.Config, logger *zap.Logger) (*ServiceOptions, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := &ServiceOptions{logger: logger}

	// 1. Initialize clients
	spannerClient, err := spannerdb.NewClient(ctx, cfg.Spanner.Database)
	if err != nil {
		return nil, err
	}
	opts.SpannerClient = spannerClient

	storageClient, err := gcs.NewClient(ctx)
	if err != nil {
		opts.Close()
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	opts.StorageClient = storageClient

	pubsubClient, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		opts.Close()
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}
	opts.PubSubClient = pubsubClient

	// 2. Create infrastructure components
	clk := clock.NewSystem()
	comm := committer.NewCommitter(spannerClient)
	opts.Dispatcher = tasks.NewDispatcher(logger.Named("tasks"), tasks.WithTaskTimeout(cfg.Tasks.Timeout))
	uow := committer.NewUnitOfWork(spannerClient, opts.Dispatcher)

	bucket, err := storage.NewBucket(storageClient, cfg.Storage.Bucket,
		storage.WithDeleteConcurrency(cfg.Storage.DeleteConcurrency),
		storage.WithLogger(logger.Named("storage")),
	)
	if err != nil {
		opts.Close()
		return nil, err
	}

	publisher, err := replication.NewPubSubPublisher(pubsubClient.Topic(cfg.PubSub.Topic))
	if err != nil {
		opts.Close()
		return nil, err
	}
	opts.Publisher = publisher

	// 3. Create repositories
	productRepo := repo.NewProductRepo(spannerClient)
	categoryRepo := repo.NewCategoryRepo(spannerClient)
	imageLinkRepo := repo.NewImageLinkRepo(spannerClient, comm)
	opts.ReplicationLog = repo.NewReplicationLogRepo(spannerClient, comm)
	readModel := repo.NewReadModel(spannerClient)

	// 4. Create domain components
	naming := images.NewNaming(cfg.Storage.BaseURL)
	decoder := images.NewDecoder(int64(cfg.Images.MaxBytes))
	imageManager := images.NewManager(bucket, imageLinkRepo, naming, decoder, logger.Named("images"))
	builder := productsvc.NewProductBuilder(nil)
	variationManager := variations.NewManager(productRepo, builder, imageManager, clk, logger.Named("variations"))
	validator := validation.NewValidator(productRepo, categoryRepo, decoder)
	remover := removal.NewRemover(productRepo, imageManager, logger.Named("removal"))
	opts.Replicator = replication.NewReplicator(opts.ReplicationLog, publisher, logger.Named("replication"))
	projector := replication.NewProjector(cfg.Images.CDNHost)

	// 5. Create command use cases (write operations)
	usecaseLogger := logger.Named("usecases")
	createProductUseCase := create_product.NewInteractor(productRepo, validator, builder, variationManager, imageManager, opts.Replicator, projector, uow, clk, usecaseLogger)
	updateProductUseCase := update_product.NewInteractor(productRepo, validator, variationManager, imageManager, opts.Replicator, projector, uow, usecaseLogger)
	deleteProductUseCase := delete_product.NewInteractor(productRepo, remover, opts.Replicator, uow, usecaseLogger)
	deleteProductsUseCase := delete_products.NewInteractor(productRepo, remover, opts.Replicator, uow, usecaseLogger)

	// 6. Create query use cases (read operations)
	getProductQuery := get_product.NewQuery(readModel)
	listProductsQuery := list_products.NewQuery(readModel)
	listReplicationQuery := list_replication.NewQuery(readModel)

	// 7. Create HTTP handler
	opts.ProductHandler = transport.NewProductHandler(
		createProductUseCase,
		updateProductUseCase,
		deleteProductUseCase,
		deleteProductsUseCase,
		getProductQuery,
		listProductsQuery,
		listReplicationQuery,
		logger.Named("http"),
	)

	return opts, nil
}

// Shutdown waits for post-commit tasks, then flushes the publisher.
func (s *ServiceOptions) Shutdown(ctx context.Context) error {
	var err error
	if s.Dispatcher != nil {
		if err = s.Dispatcher.Shutdown(ctx); err != nil {
			s.logger.Warn("post-commit tasks still running at shutdown", zap.Error(err))
		}
	}
	if s.Publisher != nil {
		s.Publisher.Stop()
	}
	return err
}

// Close closes all resources.
func (s *ServiceOptions) Close() {
	if s.PubSubClient != nil {
		_ = s.PubSubClient.Close()
	}
	if s.StorageClient != nil {
		_ = s.StorageClient.Close()
	}
	if s.SpannerClient != nil {
		s.SpannerClient.Close()
	}
}
