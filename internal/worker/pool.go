// Package worker runs independent tasks on a bounded number of goroutines and
// returns their results in input order.
package worker

import (
	"context"
	"sync"
)

// Job is one item handed to a ProcessFunc together with its input position.
type Job[T any] struct {
	Index int
	Data  T
}

// ProcessFunc handles a single job.
type ProcessFunc[I, O any] func(ctx context.Context, job Job[I]) (O, error)

// ProgressFunc is called after each successful job. Calls are serialized and
// completed increases by one each time.
type ProgressFunc func(completed, total int)

// Process runs process over items on up to workers goroutines. The first
// error cancels the jobs not yet started and is returned; outputs are
// discarded in that case.
func Process[I, O any](ctx context.Context, items []I, workers int, process ProcessFunc[I, O], onProgress ProgressFunc) ([]O, error) {
	if len(items) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if workers < 1 {
		workers = 1
	}
	if workers > len(items) {
		workers = len(items)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		out       = make([]O, len(items))
		next      = make(chan int)
		mu        sync.Mutex
		firstErr  error
		completed int
		wg        sync.WaitGroup
	)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range next {
				if ctx.Err() != nil {
					continue
				}
				v, err := process(ctx, Job[I]{Index: i, Data: items[i]})

				mu.Lock()
				if err != nil {
					if firstErr == nil {
						firstErr = err
						cancel()
					}
				} else if firstErr == nil {
					out[i] = v
					completed++
					if onProgress != nil {
						onProgress(completed, len(items))
					}
				}
				mu.Unlock()
			}
		}()
	}

feed:
	for i := range items {
		select {
		case next <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(next)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if completed < len(items) {
		return nil, ctx.Err()
	}
	return out, nil
}
