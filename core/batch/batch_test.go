package batch

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMapPreservesOrder(t *testing.T) {
	items := []int{5, 3, 9, 1, 7, 2, 8}
	results := Map(context.Background(), items, 3, 0, func(ctx context.Context, n int) (string, error) {
		return strconv.Itoa(n), nil
	})

	if len(results) != len(items) {
		t.Fatalf("len(results) = %d, want %d", len(results), len(items))
	}
	for i, r := range results {
		if r.Skip {
			t.Errorf("results[%d] unexpectedly skipped", i)
		}
		if want := strconv.Itoa(items[i]); r.Value != want {
			t.Errorf("results[%d] = %q, want %q", i, r.Value, want)
		}
	}
}

func TestMapBoundsConcurrency(t *testing.T) {
	const size = 5
	var current, peak int64
	var mu sync.Mutex

	items := make([]int, 23)
	Map(context.Background(), items, size, 0, func(ctx context.Context, n int) (int, error) {
		c := atomic.AddInt64(&current, 1)
		mu.Lock()
		if c > peak {
			peak = c
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt64(&current, -1)
		return n, nil
	})

	if peak > size {
		t.Errorf("peak concurrency = %d, want at most %d", peak, size)
	}
}

func TestMapMarksFailuresAsSkip(t *testing.T) {
	items := []int{1, 2, 3, 4}
	results := Map(context.Background(), items, 2, 0, func(ctx context.Context, n int) (int, error) {
		if n%2 == 0 {
			return 0, errors.New("even numbers fail")
		}
		return n * 10, nil
	})

	want := []struct {
		skip  bool
		value int
	}{
		{false, 10}, {true, 0}, {false, 30}, {true, 0},
	}
	for i, w := range want {
		if results[i].Skip != w.skip {
			t.Errorf("results[%d].Skip = %v, want %v", i, results[i].Skip, w.skip)
		}
		if results[i].Value != w.value {
			t.Errorf("results[%d].Value = %d, want %d", i, results[i].Value, w.value)
		}
	}
}

func TestMapPausesBetweenBatchesOnly(t *testing.T) {
	pause := 40 * time.Millisecond

	// 两批：中间应有一次停顿
	start := time.Now()
	Map(context.Background(), make([]int, 6), 5, pause, func(ctx context.Context, n int) (int, error) {
		return n, nil
	})
	if elapsed := time.Since(start); elapsed < pause {
		t.Errorf("two batches: elapsed = %s, want at least %s", elapsed, pause)
	}

	// 单批：最后一批之后不停顿
	start = time.Now()
	Map(context.Background(), make([]int, 5), 5, pause, func(ctx context.Context, n int) (int, error) {
		return n, nil
	})
	if elapsed := time.Since(start); elapsed >= pause {
		t.Errorf("single batch: elapsed = %s, want less than %s", elapsed, pause)
	}
}

func TestMapCancelSkipsRemaining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var calls int64
	results := Map(ctx, make([]int, 10), 5, time.Hour, func(ctx context.Context, n int) (int, error) {
		atomic.AddInt64(&calls, 1)
		cancel() // 第一批执行期间取消
		return n, nil
	})

	if got := atomic.LoadInt64(&calls); got != 5 {
		t.Errorf("calls = %d, want 5 (first batch only)", got)
	}
	for i := 5; i < 10; i++ {
		if !results[i].Skip {
			t.Errorf("results[%d].Skip = false, want true after cancellation", i)
		}
	}
}

func TestMapZeroSizeClampsToOne(t *testing.T) {
	results := Map(context.Background(), []int{1, 2}, 0, 0, func(ctx context.Context, n int) (int, error) {
		return n, nil
	})
	if len(results) != 2 || results[0].Value != 1 || results[1].Value != 2 {
		t.Errorf("unexpected results: %+v", results)
	}
}
