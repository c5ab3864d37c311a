// Package worker provides a bounded-concurrency runner used by
// processing stages that are allowed to work on the documents of a
// batch concurrently (spec §5: "within a batch, per-document work may
// be concurrent only when explicitly permitted by the stage"),
// generalized from the teacher's job-queue-backed Pool/Worker/Queue
// trio to an in-process bounded channel per stage (Design Note §9: "use
// a bounded worker pool per stage").
package worker

import (
	"context"
	"sync"
)

// Pool runs a fixed number of goroutines pulling from a bounded work
// channel, the in-process analogue of the teacher's per-queue worker
// count.
type Pool struct {
	concurrency int
}

// NewPool creates a pool with the given concurrency (at least 1).
func NewPool(concurrency int) *Pool {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Pool{concurrency: concurrency}
}

// Run executes fn once per index in [0, n) across the pool's
// concurrency, blocking until every call returns or ctx is cancelled.
// It stops dispatching new work once ctx is done, but already-started
// calls run to completion — matching the "in-flight batches are allowed
// to complete" cancellation rule of spec §4.5.
func (p *Pool) Run(ctx context.Context, n int, fn func(ctx context.Context, index int)) {
	if n == 0 {
		return
	}

	indices := make(chan int, n)
	for i := 0; i < n; i++ {
		indices <- i
	}
	close(indices)

	var wg sync.WaitGroup
	workers := p.concurrency
	if workers > n {
		workers = n
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				select {
				case <-ctx.Done():
					return
				default:
				}
				fn(ctx, i)
			}
		}()
	}
	wg.Wait()
}
