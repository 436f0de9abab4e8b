// Package worker provides a bounded fan-out pool for per-file inspection.
// The status and diff engines classify every resolved file independently, so
// the reads parallelize cleanly; results come back in input order and each
// carries its own outcome, keeping the per-file error degradation intact.
package worker

import (
	"runtime"
	"sync"
)

// Pool fans paths out to a fixed number of goroutines and collects one result
// per path.
type Pool[T any] struct {
	workers int
}

// New creates a pool with the given worker count. A count <= 0 defaults to
// runtime.NumCPU().
func New[T any](workers int) *Pool[T] {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool[T]{workers: workers}
}

// Map applies fn to every path concurrently and returns the results in the
// same order as the input. fn must be safe for concurrent use; failures are
// the callback's business to encode in its result.
func (p *Pool[T]) Map(paths []string, fn func(string) T) []T {
	if len(paths) == 0 {
		return nil
	}

	workers := p.workers
	if workers > len(paths) {
		workers = len(paths)
	}

	results := make([]T, len(paths))
	jobs := make(chan int, len(paths))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = fn(paths[i])
			}
		}()
	}

	for i := range paths {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}
