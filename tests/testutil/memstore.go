package testutil

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"cloud.google.com/go/spanner"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/light-bringer/catalog-admin-service/internal/app/product/contracts"
	"github.com/light-bringer/catalog-admin-service/internal/app/product/domain"
	"github.com/light-bringer/catalog-admin-service/internal/pkg/committer"
)

// MemStore is an in-memory product store. It implements the product
// repository, the category repository, the image link store, the
// replication log and the unit of work, so that usecases can be exercised
// without Spanner.
//
// Mutations returned by the repository methods are real Spanner mutations;
// what they do to the store is recorded next to them and applied when the
// handle they were added to commits. Like Spanner, a commit applies all of
// its mutations or none, and updating a missing row fails it with NotFound.
type MemStore struct {
	mu         sync.Mutex
	products   map[string]*domain.Product
	categories map[string]bool
	entries    map[string]*contracts.ReplicationEntry
	effects    map[*spanner.Mutation]func() error
	tick       int64

	// Scheduler receives after-commit tasks. Defaults to an InlineScheduler.
	Scheduler committer.Scheduler
	// CommitErr, when set, fails every commit.
	CommitErr error
	// FailLinks lists product ids whose batched link updates fail.
	FailLinks map[string]bool

	Commits   int
	Rollbacks int
}

var (
	_ contracts.ProductRepository  = (*MemStore)(nil)
	_ contracts.CategoryRepository = (*MemStore)(nil)
	_ contracts.ImageLinkStore     = (*MemStore)(nil)
	_ contracts.ReplicationLog     = (*MemReplicationLog)(nil)
	_ committer.UnitOfWork         = (*MemStore)(nil)
)

// NewMemStore creates an empty store knowing the given categories.
func NewMemStore(categories ...string) *MemStore {
	s := &MemStore{
		products:   make(map[string]*domain.Product),
		categories: make(map[string]bool),
		entries:    make(map[string]*contracts.ReplicationEntry),
		effects:    make(map[*spanner.Mutation]func() error),
		FailLinks:  make(map[string]bool),
		Scheduler:  NewInlineScheduler(),
	}
	for _, c := range categories {
		s.categories[c] = true
	}
	return s
}

// Seed stores products as if they were committed earlier.
func (s *MemStore) Seed(products ...*domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range products {
		s.insertLocked(p)
	}
}

// Product returns a copy of a stored product, or nil.
func (s *MemStore) Product(id string) *domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.products[id]; ok {
		return p.Clone()
	}
	return nil
}

// Products returns copies of every stored product ordered by insertion.
func (s *MemStore) Products() []*domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p.Clone())
	}
	sortByCreation(out)
	return out
}

// Count returns the number of stored products.
func (s *MemStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.products)
}

// Entries returns the replication log ordered by creation.
func (s *MemStore) Entries() []*contracts.ReplicationEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*contracts.ReplicationEntry, 0, len(s.entries))
	for _, e := range s.entries {
		c := *e
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// --- product repository ---

func (s *MemStore) InsertMut(product *domain.Product) (*spanner.Mutation, error) {
	if product.ID == "" {
		return nil, errors.New("product id is required")
	}
	snapshot := product.Clone()
	mut := spanner.Insert("products", []string{"product_id"}, []interface{}{product.ID})
	s.record(mut, func() error {
		s.insertLocked(snapshot)
		return nil
	})
	return mut, nil
}

func (s *MemStore) UpdateMut(product *domain.Product) (*spanner.Mutation, error) {
	changes := product.Changes()
	if !changes.HasChanges() {
		return nil, nil
	}
	dirty := changes.DirtyFields()
	snapshot := product.Clone()
	mut := spanner.Update("products", []string{"product_id"}, []interface{}{product.ID})
	s.record(mut, func() error {
		stored, ok := s.products[snapshot.ID]
		if !ok {
			return status.Errorf(codes.NotFound, "row not found: products(%s)", snapshot.ID)
		}
		for _, field := range dirty {
			switch field {
			case domain.FieldBaseAttrs:
				stored.BaseAttrs = snapshot.BaseAttrs
			case domain.FieldAttrs:
				stored.Attrs = snapshot.Attrs
			case domain.FieldExtraAttrs:
				stored.ExtraAttrs = snapshot.ExtraAttrs
			case domain.FieldSearchTerms:
				stored.SearchTerms = snapshot.SearchTerms
			case domain.FieldForSale:
				stored.ForSale = snapshot.ForSale
			case domain.FieldIsFilterable:
				stored.IsFilterable = snapshot.IsFilterable
			case domain.FieldImages:
				stored.Images = snapshot.Images
			}
		}
		stored.UpdatedAt = s.nextTimeLocked()
		return nil
	})
	return mut, nil
}

func (s *MemStore) DeleteMut(productID string) *spanner.Mutation {
	mut := spanner.Delete("products", spanner.Key{productID})
	s.record(mut, func() error {
		delete(s.products, productID)
		return nil
	})
	return mut
}

func (s *MemStore) Get(_ context.Context, _ committer.Reader, productID string) (*domain.Product, error) {
	if p := s.Product(productID); p != nil {
		return p, nil
	}
	return nil, domain.ErrProductNotFound
}

func (s *MemStore) GetMany(_ context.Context, _ committer.Reader, ids []string) ([]*domain.Product, error) {
	var out []*domain.Product
	for _, id := range ids {
		if p := s.Product(id); p != nil {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *MemStore) ListVariations(_ context.Context, _ committer.Reader, parentID string) ([]*domain.Product, error) {
	var out []*domain.Product
	for _, p := range s.Products() {
		if p.ParentID != nil && *p.ParentID == parentID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *MemStore) ExistingSKUs(_ context.Context, skus []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	used := make(map[string]bool)
	for _, p := range s.products {
		used[p.SKU] = true
	}
	var out []string
	seen := make(map[string]bool)
	for _, sku := range skus {
		if used[sku] && !seen[sku] {
			seen[sku] = true
			out = append(out, sku)
		}
	}
	return out, nil
}

// Exists implements the category repository.
func (s *MemStore) Exists(_ context.Context, categoryID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.categories[categoryID], nil
}

// --- image link store ---

func (s *MemStore) GetImages(_ context.Context, productID string) (domain.Images, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok {
		return domain.Images{}, domain.ErrProductNotFound
	}
	return p.Images.Clone(), nil
}

func (s *MemStore) UpdateLinksOne(_ context.Context, productID string, images domain.Images, updateLinked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok {
		return nil
	}
	p.Images = images.Clone()
	if !updateLinked {
		return nil
	}
	for id, other := range s.products {
		src := other.Images.SourceProductID
		if id == productID || src == nil || *src != productID {
			continue
		}
		mirrored := images.Clone()
		mirrored.SourceProductID = src
		other.Images = mirrored
	}
	return nil
}

func (s *MemStore) UpdateLinksMany(_ context.Context, updates []contracts.LinkUpdate) (committer.BatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result committer.BatchResult
	for i, u := range updates {
		if s.FailLinks[u.ProductID] {
			result.Failed = append(result.Failed, i)
			continue
		}
		if p, ok := s.products[u.ProductID]; ok {
			p.Images = u.Images.Clone()
		}
		result.Applied = append(result.Applied, i)
	}
	return result, nil
}

// --- replication log ---

// MemReplicationLog is the replication log of a MemStore.
type MemReplicationLog struct {
	s *MemStore
}

// ReplicationLog returns the store's replication log.
func (s *MemStore) ReplicationLog() *MemReplicationLog {
	return &MemReplicationLog{s: s}
}

func (l *MemReplicationLog) InsertMut(entry *contracts.ReplicationEntry) (*spanner.Mutation, error) {
	if entry.LogID == "" {
		l.s.mu.Lock()
		l.s.tick++
		entry.LogID = fmt.Sprintf("log-%d", l.s.tick)
		l.s.mu.Unlock()
	}
	entry.Status = "pending"
	snapshot := *entry
	mut := spanner.Insert("replication_log", []string{"log_id"}, []interface{}{entry.LogID})
	l.s.record(mut, func() error {
		snapshot.CreatedAt = l.s.nextTimeLocked()
		l.s.entries[snapshot.LogID] = &snapshot
		return nil
	})
	return mut, nil
}

func (l *MemReplicationLog) MarkPublished(_ context.Context, logID string, attempts int64) error {
	return l.s.updateEntry(logID, func(e *contracts.ReplicationEntry) {
		now := l.s.nextTimeLocked()
		e.Status = "published"
		e.Attempts = attempts
		e.Error = ""
		e.PublishedAt = &now
	})
}

func (l *MemReplicationLog) MarkFailed(_ context.Context, logID string, attempts int64, reason string) error {
	return l.s.updateEntry(logID, func(e *contracts.ReplicationEntry) {
		e.Status = "failed"
		e.Attempts = attempts
		e.Error = reason
	})
}

func (l *MemReplicationLog) ListUndelivered(_ context.Context, olderThan time.Time, limit int) ([]*contracts.ReplicationEntry, error) {
	var out []*contracts.ReplicationEntry
	for _, e := range l.s.Entries() {
		if e.Status == "failed" || (e.Status == "pending" && e.CreatedAt.Before(olderThan)) {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (l *MemReplicationLog) DeletePublishedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	var n int64
	for id, e := range l.s.entries {
		if e.Status == "published" && e.CreatedAt.Before(cutoff) {
			delete(l.s.entries, id)
			n++
		}
	}
	return n, nil
}

func (s *MemStore) updateEntry(logID string, fn func(*contracts.ReplicationEntry)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[logID]
	if !ok {
		return fmt.Errorf("replication entry %s not found", logID)
	}
	fn(e)
	return nil
}

// --- unit of work ---

// Begin opens a handle whose mutations apply to the store on commit.
func (s *MemStore) Begin(context.Context) (committer.Handle, error) {
	return &memHandle{s: s}, nil
}

type memHandle struct {
	s     *MemStore
	muts  []*spanner.Mutation
	tasks []committer.Task
	done  bool
}

func (h *memHandle) Add(muts ...*spanner.Mutation) {
	for _, m := range muts {
		if m != nil {
			h.muts = append(h.muts, m)
		}
	}
}

// Reader returns nil: MemStore reads ignore the reader.
func (h *memHandle) Reader() committer.Reader {
	return nil
}

func (h *memHandle) AfterCommit(name string, fn committer.TaskFunc) {
	h.tasks = append(h.tasks, committer.Task{Name: name, Fn: fn})
}

func (h *memHandle) Commit(context.Context) error {
	if h.done {
		return committer.ErrHandleClosed
	}
	h.done = true

	h.s.mu.Lock()
	if h.s.CommitErr != nil {
		err := h.s.CommitErr
		h.s.mu.Unlock()
		return err
	}
	if err := h.s.applyLocked(h.muts); err != nil {
		h.s.mu.Unlock()
		return err
	}
	h.s.Commits++
	scheduler := h.s.Scheduler
	h.s.mu.Unlock()

	committer.ReleaseTasks(scheduler, h.tasks)
	return nil
}

func (h *memHandle) Rollback(context.Context) {
	if h.done {
		return
	}
	h.done = true
	h.s.mu.Lock()
	for _, m := range h.muts {
		delete(h.s.effects, m)
	}
	h.s.Rollbacks++
	h.s.mu.Unlock()
}

// applyLocked runs the effects of muts in order. When one fails, the store
// is restored to its state before the first effect.
func (s *MemStore) applyLocked(muts []*spanner.Mutation) error {
	products := make(map[string]*domain.Product, len(s.products))
	for id, p := range s.products {
		products[id] = p.Clone()
	}
	entries := make(map[string]*contracts.ReplicationEntry, len(s.entries))
	for id, e := range s.entries {
		c := *e
		entries[id] = &c
	}

	for _, m := range muts {
		effect, ok := s.effects[m]
		if !ok {
			continue
		}
		delete(s.effects, m)
		if err := effect(); err != nil {
			s.products = products
			s.entries = entries
			for _, rest := range muts {
				delete(s.effects, rest)
			}
			return err
		}
	}
	return nil
}

func (s *MemStore) record(mut *spanner.Mutation, effect func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.effects[mut] = effect
}

func (s *MemStore) insertLocked(p *domain.Product) {
	stored := p.Clone()
	now := s.nextTimeLocked()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.products[stored.ID] = stored
}

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// nextTimeLocked returns strictly increasing timestamps, standing in for
// commit timestamps.
func (s *MemStore) nextTimeLocked() time.Time {
	s.tick++
	return epoch.Add(time.Duration(s.tick) * time.Millisecond)
}

func sortByCreation(products []*domain.Product) {
	sort.Slice(products, func(i, j int) bool {
		if !products[i].CreatedAt.Equal(products[j].CreatedAt) {
			return products[i].CreatedAt.Before(products[j].CreatedAt)
		}
		return products[i].ID < products[j].ID
	})
}
