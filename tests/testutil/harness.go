package testutil

import (
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/light-bringer/catalog-admin-service/internal/app/product/domain/services"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/images"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/replication"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/validation"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/variations"
	"github.com/light-bringer/catalog-admin-service/internal/pkg/clock"
)

// CDNBaseURL is the base URL images are served from in tests.
const CDNBaseURL = "https://cdn.test"

// Harness wires the product components over in-memory fakes.
// Product ids are generated as id-1, id-2, ...
type Harness struct {
	Store     *MemStore
	Objects   *ObjectStore
	Publisher *Publisher
	Clock     *clock.Fixed

	Naming     images.Naming
	Images     *images.Manager
	Builder    *services.ProductBuilder
	Variations *variations.Manager
	Validator  *validation.Validator
	Replicator *replication.Replicator
	Projector  replication.Projector
}

// NewHarness creates a Harness whose store knows the given categories.
func NewHarness(t *testing.T, categories ...string) *Harness {
	t.Helper()

	logger := zaptest.NewLogger(t)
	store := NewMemStore(categories...)
	objects := NewObjectStore()
	publisher := NewPublisher()
	clk := clock.NewFixed(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))

	n := 0
	builder := services.NewProductBuilder(func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	})

	naming := images.NewNaming(CDNBaseURL)
	decoder := images.NewDecoder(0)
	imgs := images.NewManager(objects, store, naming, decoder, logger)

	return &Harness{
		Store:      store,
		Objects:    objects,
		Publisher:  publisher,
		Clock:      clk,
		Naming:     naming,
		Images:     imgs,
		Builder:    builder,
		Variations: variations.NewManager(store, builder, imgs, clk, logger),
		Validator:  validation.NewValidator(store, store, decoder),
		Replicator: replication.NewReplicator(store.ReplicationLog(), publisher, logger),
		Projector:  replication.NewProjector(CDNBaseURL),
	}
}

// Scheduler returns the inline scheduler of the store.
func (h *Harness) Scheduler() *InlineScheduler {
	return h.Store.Scheduler.(*InlineScheduler)
}

// URL returns the public URL of image number of productID.
func (h *Harness) URL(productID string, number int) string {
	return h.Naming.URL(h.Naming.Key(productID, number))
}
