// Package pool runs independent tasks in sequential waves of bounded size.
// Each wave starts at most Limit tasks and waits for all of them before the
// next wave begins, so peak resource use never exceeds Limit tasks.
package pool

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// MaxLimit is the largest wave size New accepts
const MaxLimit = 4

// Task processes item i. Tasks report their own outcome; the pool never
// cancels a running task because a sibling failed.
type Task func(ctx context.Context, i int)

// Pool is a bounded batch runner
type Pool struct {
	limit int

	// OnBatch, when set, is called before each wave with its index and size.
	OnBatch func(batch, size int)
}

// New returns a pool whose wave size is clamped to [1, MaxLimit]
func New(limit int) *Pool {
	if limit < 1 {
		limit = 1
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return &Pool{limit: limit}
}

// Limit is the effective wave size
func (p *Pool) Limit() int { return p.limit }

// Run executes task for 0..n-1 in index order, in waves of at most Limit.
// It stops starting new waves once ctx is done and returns the number of
// waves that ran.
func (p *Pool) Run(ctx context.Context, n int, task Task) int {
	batches := 0
	for start := 0; start < n; start += p.limit {
		if ctx.Err() != nil {
			break
		}
		end := min(start+p.limit, n)
		if p.OnBatch != nil {
			p.OnBatch(batches, end-start)
		}

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				task(ctx, i)
				return nil
			})
		}
		_ = g.Wait()
		batches++
	}
	return batches
}

// Batches returns how many waves n items need at limit
func Batches(n, limit int) int {
	if n <= 0 {
		return 0
	}
	if limit < 1 {
		limit = 1
	}
	return (n + limit - 1) / limit
}
