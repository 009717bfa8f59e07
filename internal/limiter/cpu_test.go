package limiter

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCPU_BlocksAtCapacity(t *testing.T) {
	l := NewCPU(1)
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := l.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Acquire() on full limiter = %v, want deadline exceeded", err)
	}

	l.Release()
	if err := l.Acquire(context.Background()); err != nil {
		t.Errorf("Acquire() after Release = %v", err)
	}
}

func TestNewCPU_MinimumOne(t *testing.T) {
	if got := NewCPU(0).Capacity(); got != 1 {
		t.Errorf("Capacity() = %d, want 1", got)
	}
}
