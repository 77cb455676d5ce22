// Package committer implements the Golden Mutation Pattern for Spanner writes.
//
// Repositories never write. They return *spanner.Mutation values which the
// caller collects into a CommitPlan (or a unit-of-work Handle) and commits
// once:
//
//	h, err := uow.Begin(ctx)
//	...
//	h.Add(repo.InsertMut(parent))
//	h.Add(repo.InsertMuts(variations)...)
//	h.AfterCommit("upload-images", upload)
//	return h.Commit(ctx)
//
// Everything buffered in one plan is applied atomically. Work registered with
// AfterCommit starts only after the commit succeeded.
package committer

import (
	"context"
	"fmt"

	"cloud.google.com/go/spanner"
	sppb "cloud.google.com/go/spanner/apiv1/spannerpb"
	"google.golang.org/grpc/codes"
)

// CommitPlan is an ordered collection of mutations applied together.
type CommitPlan struct {
	mutations []*spanner.Mutation
}

// NewPlan creates a new empty CommitPlan.
func NewPlan() *CommitPlan {
	return &CommitPlan{mutations: make([]*spanner.Mutation, 0)}
}

// Add appends mutations to the plan. Nil mutations are ignored.
func (cp *CommitPlan) Add(muts ...*spanner.Mutation) {
	for _, mut := range muts {
		if mut != nil {
			cp.mutations = append(cp.mutations, mut)
		}
	}
}

// Mutations returns all collected mutations.
func (cp *CommitPlan) Mutations() []*spanner.Mutation {
	return cp.mutations
}

// IsEmpty returns true if the plan has no mutations.
func (cp *CommitPlan) IsEmpty() bool {
	return len(cp.mutations) == 0
}

// Count returns the number of mutations in the plan.
func (cp *CommitPlan) Count() int {
	return len(cp.mutations)
}

// Reset drops every buffered mutation.
func (cp *CommitPlan) Reset() {
	cp.mutations = cp.mutations[:0]
}

// BatchResult reports which groups of a best-effort batch were applied.
// Indexes refer to the position of the group in the request.
type BatchResult struct {
	Applied []int
	Failed  []int
}

// Complete reports whether every group was applied.
func (r BatchResult) Complete() bool {
	return len(r.Failed) == 0
}

// Committer applies plans outside of a unit of work.
type Committer struct {
	client *spanner.Client
}

// NewCommitter creates a new Committer.
func NewCommitter(client *spanner.Client) *Committer {
	return &Committer{client: client}
}

// Apply executes the CommitPlan atomically.
func (c *Committer) Apply(ctx context.Context, plan *CommitPlan) error {
	if plan.IsEmpty() {
		return nil
	}

	if _, err := c.client.Apply(ctx, plan.Mutations()); err != nil {
		return fmt.Errorf("failed to apply commit plan: %w", err)
	}
	return nil
}

// ApplyWithReadWriteTransaction runs fn inside a read-write transaction that
// the client retries on abort. Use it when mutations depend on reads.
func (c *Committer) ApplyWithReadWriteTransaction(ctx context.Context, fn func(context.Context, *spanner.ReadWriteTransaction) error) error {
	if _, err := c.client.ReadWriteTransaction(ctx, fn); err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}
	return nil
}

// ApplyBatch writes each group independently with BatchWrite. A group is
// atomic on its own, but groups are not atomic with each other: the result
// lists applied and failed groups and no applied group is rolled back.
func (c *Committer) ApplyBatch(ctx context.Context, groups []*CommitPlan) (BatchResult, error) {
	var result BatchResult
	req := make([]*spanner.MutationGroup, 0, len(groups))
	for _, g := range groups {
		req = append(req, &spanner.MutationGroup{Mutations: g.Mutations()})
	}
	if len(req) == 0 {
		return result, nil
	}

	seen := make(map[int]bool, len(req))
	err := c.client.BatchWrite(ctx, req).Do(func(r *sppb.BatchWriteResponse) error {
		ok := codes.Code(r.GetStatus().GetCode()) == codes.OK
		for _, idx := range r.GetIndexes() {
			i := int(idx)
			seen[i] = true
			if ok {
				result.Applied = append(result.Applied, i)
			} else {
				result.Failed = append(result.Failed, i)
			}
		}
		return nil
	})
	if err != nil {
		for i := range req {
			if !seen[i] {
				result.Failed = append(result.Failed, i)
			}
		}
		return result, fmt.Errorf("batch write: %w", err)
	}
	return result, nil
}
