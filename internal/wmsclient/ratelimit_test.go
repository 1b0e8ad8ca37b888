package wmsclient

import (
	"context"
	"testing"
	"time"
)

func TestSlidingWindowLimiterAllowsUpToMax(t *testing.T) {
	t.Parallel()
	l := NewSlidingWindowLimiter(3, time.Second)

	for i := 0; i < 3; i++ {
		start := time.Now()
		if err := l.Wait(context.Background()); err != nil {
			t.Fatalf("Wait() returned error: %v", err)
		}
		if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
			t.Errorf("Wait() took %v, expected immediate (call %d)", elapsed, i)
		}
	}
}

func TestSlidingWindowLimiterBlocksPastMax(t *testing.T) {
	t.Parallel()
	l := NewSlidingWindowLimiter(1, 150*time.Millisecond)

	if err := l.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	if err := l.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	elapsed := time.Since(start)

	if elapsed < 50*time.Millisecond {
		t.Errorf("expected blocking ~150ms, got %v", elapsed)
	}
	if elapsed > 500*time.Millisecond {
		t.Errorf("blocked too long: %v", elapsed)
	}
}

func TestSlidingWindowLimiterPrunesOldTimestamps(t *testing.T) {
	t.Parallel()
	l := NewSlidingWindowLimiter(1, 80*time.Millisecond)

	if err := l.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)

	start := time.Now()
	if err := l.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("expected immediate after window elapsed, got %v", elapsed)
	}
}

func TestSlidingWindowLimiterContextCancelled(t *testing.T) {
	t.Parallel()
	l := NewSlidingWindowLimiter(1, time.Hour)

	_ = l.Wait(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := l.Wait(ctx); err == nil {
		t.Error("expected context error, got nil")
	}
}
