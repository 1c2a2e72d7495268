package resilience

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_AcquireRelease(t *testing.T) {
	l := NewLimiter(2)

	ctx := context.Background()
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("second Acquire failed: %v", err)
	}

	if l.InUse() != 2 {
		t.Errorf("Expected 2 slots in use, got %d", l.InUse())
	}

	l.Release()
	l.Release()

	if l.InUse() != 0 {
		t.Errorf("Expected 0 slots in use after release, got %d", l.InUse())
	}
}

func TestLimiter_BlocksWhenFull(t *testing.T) {
	l := NewLimiter(1)

	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := l.Acquire(ctx)
	if err == nil {
		t.Fatal("Expected Acquire to fail when the limiter is full")
	}
	if err != context.DeadlineExceeded {
		t.Errorf("Expected context.DeadlineExceeded, got %v", err)
	}

	// The queued caller must not have consumed a slot
	l.Release()
	if l.InUse() != 0 {
		t.Errorf("Expected 0 slots in use, got %d", l.InUse())
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	l := NewLimiter(0)

	ctx := context.Background()
	for i := 0; i < 100; i++ {
		if err := l.Acquire(ctx); err != nil {
			t.Fatalf("Acquire %d failed: %v", i, err)
		}
	}

	if l.Limit() != 0 {
		t.Errorf("Expected limit 0, got %d", l.Limit())
	}

	// Release is a no-op for the unlimited limiter
	l.Release()
}

func TestLimiter_CancelledBeforeAcquire(t *testing.T) {
	l := NewLimiter(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	if err := l.Acquire(ctx); err != context.Canceled {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
