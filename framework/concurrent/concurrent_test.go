package concurrent

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestSettle_Concurrency(t *testing.T) {
	var current, peak atomic.Int32
	items := make([]int, 20)

	outcomes := Settle(context.Background(), items, 3, func(ctx context.Context, _ int) (struct{}, error) {
		n := current.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		current.Add(-1)
		return struct{}{}, nil
	})

	for i, o := range outcomes {
		if o.Err != nil {
			t.Errorf("outcome[%d]: unexpected error %v", i, o.Err)
		}
	}
	if peak.Load() > 3 {
		t.Errorf("expected at most 3 concurrent calls, got %d", peak.Load())
	}
}

func TestSettle_PreservesOrder(t *testing.T) {
	items := []int{5, 1, 4, 2, 3}
	outcomes := Settle(context.Background(), items, 2, func(ctx context.Context, n int) (int, error) {
		time.Sleep(time.Duration(n) * time.Millisecond)
		return n * 10, nil
	})
	for i, n := range items {
		if outcomes[i].Value != n*10 {
			t.Errorf("outcomes[%d] = %d, want %d", i, outcomes[i].Value, n*10)
		}
	}
}

func TestSettle_FailureDoesNotCancelOthers(t *testing.T) {
	boom := errors.New("boom")
	var calls atomic.Int32

	outcomes := Settle(context.Background(), []string{"a", "b", "c"}, 1, func(ctx context.Context, s string) (string, error) {
		calls.Add(1)
		if s == "a" {
			return "", boom
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return s, nil
	})

	if calls.Load() != 3 {
		t.Errorf("expected every item to run, got %d calls", calls.Load())
	}
	if !errors.Is(outcomes[0].Err, boom) || outcomes[1].Value != "b" || outcomes[2].Value != "c" {
		t.Errorf("unexpected outcomes %+v", outcomes)
	}
}

func TestSettle_Empty(t *testing.T) {
	outcomes := Settle(context.Background(), []int{}, 2, func(context.Context, int) (int, error) {
		t.Error("fn should not be called")
		return 0, nil
	})
	if len(outcomes) != 0 {
		t.Errorf("expected no outcomes, got %d", len(outcomes))
	}
}

func TestSettle_IndependentOutcomes(t *testing.T) {
	boom := errors.New("boom")
	outcomes := Settle(context.Background(), []int{1, 2, 3}, 2, func(ctx context.Context, n int) (string, error) {
		if n == 2 {
			return "", boom
		}
		return "ok", nil
	})

	if len(outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(outcomes))
	}
	if outcomes[0].Value != "ok" || outcomes[0].Err != nil {
		t.Errorf("unexpected outcome[0] %+v", outcomes[0])
	}
	if !errors.Is(outcomes[1].Err, boom) {
		t.Errorf("expected outcome[1] to fail, got %+v", outcomes[1])
	}
	if outcomes[2].Value != "ok" || outcomes[2].Err != nil {
		t.Errorf("unexpected outcome[2] %+v", outcomes[2])
	}
}

func TestSettle_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	outcomes := Settle(ctx, []int{1, 2}, 1, func(ctx context.Context, n int) (int, error) {
		calls.Add(1)
		return n, nil
	})

	for i, o := range outcomes {
		if !errors.Is(o.Err, context.Canceled) {
			t.Errorf("expected outcome[%d] canceled, got %+v", i, o)
		}
	}
	if calls.Load() != 0 {
		t.Errorf("expected no calls, got %d", calls.Load())
	}
}
