// Package parallel provides the shared worker pool used by training and
// tuning. The pool is an explicit, scoped resource: the workflow creates it,
// passes it to every training call, and closes it when the run ends.
// Parallelism is a wall-clock optimization only; running the same tasks
// sequentially must produce identical results.
package parallel

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Pool bounds the number of concurrently running tasks.
type Pool struct {
	workers int

	mu     sync.Mutex
	closed bool
}

// DefaultWorkers returns the default pool size: available cores minus one,
// with a floor of one.
func DefaultWorkers() int {
	n := runtime.NumCPU() - 1
	if n < 1 {
		n = 1
	}
	return n
}

// NewPool creates a pool with the given number of workers.
// workers <= 0 selects DefaultWorkers().
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	return &Pool{workers: workers}
}

// Workers returns the pool size.
func (p *Pool) Workers() int {
	return p.workers
}

// Run executes all tasks with at most Workers() running at once and waits
// for every task to finish (a barrier). The first task error is returned;
// remaining tasks still run to completion so no partial state is observed.
// A closed pool runs the tasks sequentially.
func (p *Pool) Run(ctx context.Context, tasks ...func() error) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()

	if closed || p.workers == 1 || len(tasks) == 1 {
		var firstErr error
		for _, task := range tasks {
			if err := task(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for _, task := range tasks {
		g.Go(task)
	}
	return g.Wait()
}

// Close marks the pool closed. Subsequent Run calls degrade to sequential
// execution; Close is idempotent.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

// Parallelize splits items into contiguous chunks and runs fn over each
// chunk using the pool. fn must not return until its chunk is fully
// processed; Parallelize returns only after all chunks complete.
func (p *Pool) Parallelize(ctx context.Context, items int, fn func(start, end int)) {
	if items == 0 {
		return
	}

	numWorkers := p.workers
	if numWorkers > items {
		numWorkers = items
	}
	chunkSize := (items + numWorkers - 1) / numWorkers

	tasks := make([]func() error, 0, numWorkers)
	for i := 0; i < numWorkers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > items {
			end = items
		}
		if start >= end {
			continue
		}
		s, e := start, end
		tasks = append(tasks, func() error {
			fn(s, e)
			return nil
		})
	}

	_ = p.Run(ctx, tasks...)
}
