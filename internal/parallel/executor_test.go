package parallel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestMapAppliesFunctionToEveryItem(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	out, err := Map(context.Background(), items, 2, func(_ context.Context, n int) (int, error) {
		return n * n, nil
	})
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	want := []int{1, 4, 9, 16, 25}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("out[%d] = %d, want %d", i, out[i], want[i])
		}
	}
}

func TestMapPropagatesFirstError(t *testing.T) {
	boom := errors.New("boom")
	items := []int{1, 2, 3}
	_, err := Map(context.Background(), items, 1, func(_ context.Context, n int) (int, error) {
		if n == 2 {
			return 0, boom
		}
		return n, nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom error, got %v", err)
	}
}

func TestForEachVisitsAllItems(t *testing.T) {
	var count int64
	items := make([]int, 20)
	err := ForEach(context.Background(), items, 4, func(_ context.Context, _ int) error {
		atomic.AddInt64(&count, 1)
		return nil
	})
	if err != nil {
		t.Fatalf("ForEach: %v", err)
	}
	if count != int64(len(items)) {
		t.Fatalf("count = %d, want %d", count, len(items))
	}
}

func TestSemaphoreLimitsConcurrency(t *testing.T) {
	sem := NewSemaphore(2)
	var current, max int64

	items := make([]int, 10)
	_ = ForEach(context.Background(), items, 10, func(ctx context.Context, _ int) error {
		if err := sem.Acquire(ctx); err != nil {
			return err
		}
		defer sem.Release()

		n := atomic.AddInt64(&current, 1)
		for {
			old := atomic.LoadInt64(&max)
			if n <= old || atomic.CompareAndSwapInt64(&max, old, n) {
				break
			}
		}
		atomic.AddInt64(&current, -1)
		return nil
	})

	if max > 2 {
		t.Fatalf("observed concurrency %d exceeds semaphore limit of 2", max)
	}
}
