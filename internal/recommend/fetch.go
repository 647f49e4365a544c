// NextTrack - Music Track Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexttrack

package recommend

import (
	"context"
	"sync"
)

// fetchResult pairs one fan-out item with its outcome. Results are indexed
// by input position so callers can attribute failures to items.
type fetchResult[R any] struct {
	value R
	err   error
}

// fanOut runs fn over items with at most workers goroutines and returns
// per-index results. workers <= 0 or beyond len(items) means one goroutine
// per item. A failed item never aborts its siblings; cancellation marks
// unstarted items with the context error.
func fanOut[I, R any](ctx context.Context, items []I, workers int, fn func(context.Context, I) (R, error)) []fetchResult[R] {
	n := len(items)
	if n == 0 {
		return nil
	}
	if workers <= 0 || workers > n {
		workers = n
	}

	results := make([]fetchResult[R], n)
	idx := make(chan int)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range idx {
				v, err := fn(ctx, items[i])
				results[i] = fetchResult[R]{value: v, err: err}
			}
		}()
	}

	cancelled := -1
	for i := 0; i < n; i++ {
		select {
		case idx <- i:
		case <-ctx.Done():
			cancelled = i
		}
		if cancelled >= 0 {
			break
		}
	}
	close(idx)
	wg.Wait()

	if cancelled >= 0 {
		for i := cancelled; i < n; i++ {
			results[i].err = ctx.Err()
		}
	}
	return results
}
