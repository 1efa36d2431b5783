// Package parallel provides bounded concurrent execution for work that
// is safe to parallelize regardless of item order — notably, Mach-O
// patching across the files of one formula.
package parallel

import (
	"context"
	"sync"
)

// Semaphore limits concurrent operations
type Semaphore struct {
	ch chan struct{}
}

// NewSemaphore creates a new semaphore
func NewSemaphore(limit int) *Semaphore {
	return &Semaphore{
		ch: make(chan struct{}, limit),
	}
}

// Acquire acquires a semaphore slot
func (s *Semaphore) Acquire(ctx context.Context) error {
	select {
	case s.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release releases a semaphore slot
func (s *Semaphore) Release() {
	<-s.ch
}

// Map executes a function on each item in parallel and returns results
func Map[T any, R any](ctx context.Context, items []T, workers int, fn func(context.Context, T) (R, error)) ([]R, error) {
	if len(items) == 0 {
		return nil, nil
	}

	type result struct {
		index int
		value R
		err   error
	}

	sem := NewSemaphore(workers)
	results := make(chan result, len(items))
	var wg sync.WaitGroup

	for i, item := range items {
		wg.Add(1)
		go func(idx int, it T) {
			defer wg.Done()

			if err := sem.Acquire(ctx); err != nil {
				results <- result{index: idx, err: err}
				return
			}
			defer sem.Release()

			val, err := fn(ctx, it)
			results <- result{index: idx, value: val, err: err}
		}(i, item)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	output := make([]R, len(items))
	for r := range results {
		if r.err != nil {
			return nil, r.err
		}
		output[r.index] = r.value
	}

	return output, nil
}

// ForEach executes a function on each item in parallel
func ForEach[T any](ctx context.Context, items []T, workers int, fn func(context.Context, T) error) error {
	_, err := Map(ctx, items, workers, func(ctx context.Context, item T) (struct{}, error) {
		return struct{}{}, fn(ctx, item)
	})
	return err
}
