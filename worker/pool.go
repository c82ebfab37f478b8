// ABOUTME: Bounded worker pool that maps a function over a slice of items
// ABOUTME: Results keep input order; a single worker processes items sequentially
package worker

import (
	"context"
	"sync"
)

// Map runs fn over items with at most workers goroutines and returns the
// results in input order. Items not started before ctx is cancelled get
// the zero result and ctx.Err() is returned alongside the partial slice.
func Map[In, Out any](ctx context.Context, workers int, items []In, fn func(ctx context.Context, item In) Out) ([]Out, error) {
	if workers <= 0 {
		workers = 1
	}
	if workers > len(items) {
		workers = len(items)
	}

	results := make([]Out, len(items))
	if len(items) == 0 {
		return results, ctx.Err()
	}

	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = fn(ctx, items[i])
			}
		}()
	}

feed:
	for i := range items {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	return results, ctx.Err()
}
