package worker

import (
	"context"
	"testing"
	"time"
)

func TestGovernor_MinimumGap(t *testing.T) {
	interval := 50 * time.Millisecond
	g := NewGovernor(interval)
	ctx := context.Background()

	var grants []time.Time
	for i := 0; i < 4; i++ {
		if err := g.Acquire(ctx); err != nil {
			t.Fatalf("acquire %d failed: %v", i, err)
		}
		grants = append(grants, time.Now())
	}

	for i := 1; i < len(grants); i++ {
		gap := grants[i].Sub(grants[i-1])
		if gap < interval {
			t.Errorf("grant %d followed grant %d after %v, want >= %v", i, i-1, gap, interval)
		}
	}
}

func TestGovernor_ZeroIntervalNeverBlocks(t *testing.T) {
	g := NewGovernor(0)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 100; i++ {
		if err := g.Acquire(ctx); err != nil {
			t.Fatalf("acquire failed: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("zero-interval governor blocked for %v", elapsed)
	}
}

func TestGovernor_CancelledWhileWaiting(t *testing.T) {
	g := NewGovernor(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	// Consume the initial token, then cancel the blocked waiter.
	if err := g.Acquire(ctx); err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	if err := g.Acquire(ctx); err == nil {
		t.Fatal("expected error when context cancelled during wait")
	}
}

func TestGovernor_AcquireWithDelay(t *testing.T) {
	g := NewGovernor(0)
	ctx := context.Background()

	start := time.Now()
	if err := g.AcquireWithDelay(ctx, 40*time.Millisecond); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("expected delay >= 40ms, got %v", elapsed)
	}
}
