package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDoSucceedsFirstTry(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), 3, time.Millisecond, func(ctx context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if got != "ok" {
		t.Errorf("Do = %q, want %q", got, "ok")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDoRetriesThenSucceeds(t *testing.T) {
	failures := 2
	calls := 0
	base := 10 * time.Millisecond

	start := time.Now()
	got, err := Do(context.Background(), 5, base, func(ctx context.Context) (int, error) {
		calls++
		if calls <= failures {
			return 0, errors.New("transient")
		}
		return 42, nil
	})
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if got != 42 {
		t.Errorf("Do = %d, want 42", got)
	}
	if calls != failures+1 {
		t.Errorf("calls = %d, want %d", calls, failures+1)
	}
	// 两次失败的等待时间应为 base·2^0 + base·2^1
	minWait := base + 2*base
	if elapsed < minWait {
		t.Errorf("elapsed = %s, want at least %s", elapsed, minWait)
	}
}

func TestDoExhaustsAndReturnsLastError(t *testing.T) {
	lastErr := errors.New("attempt 3")
	calls := 0
	_, err := Do(context.Background(), 3, time.Millisecond, func(ctx context.Context) (int, error) {
		calls++
		if calls == 3 {
			return 0, lastErr
		}
		return 0, errors.New("earlier")
	})
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if !errors.Is(err, lastErr) {
		t.Errorf("err = %v, want last error %v", err, lastErr)
	}
}

func TestDoSingleAttemptNoRetry(t *testing.T) {
	tt := []struct {
		name     string
		attempts int
	}{
		{"one attempt", 1},
		{"zero attempts clamps to one", 0},
		{"negative clamps to one", -2},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			calls := 0
			_, err := Do(context.Background(), tc.attempts, time.Millisecond, func(ctx context.Context) (int, error) {
				calls++
				return 0, errors.New("fail")
			})
			if calls != 1 {
				t.Errorf("calls = %d, want 1", calls)
			}
			if err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestDoPermanentErrorStopsRetrying(t *testing.T) {
	permErr := errors.New("access denied")
	calls := 0
	_, err := Do(context.Background(), 5, time.Millisecond, func(ctx context.Context) (int, error) {
		calls++
		return 0, Permanent(permErr)
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if !errors.Is(err, permErr) {
		t.Errorf("err = %v, want %v", err, permErr)
	}
}

func TestDoContextCanceledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := Do(ctx, 3, time.Hour, func(ctx context.Context) (int, error) {
			return 0, errors.New("fail")
		})
		done <- err
	}()

	// 给第一次尝试一点时间进入等待
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Do did not return after context cancellation")
	}
}
