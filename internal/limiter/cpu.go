// Package limiter bounds the number of concurrent CPU-heavy operations.
package limiter

import "context"

// CPU is a counting semaphore for local CPU-bound work such as frame
// binarization and tesseract runs. One CPU limiter is shared by every
// component of a process so parallel stages cannot oversubscribe the machine.
type CPU struct {
	slots chan struct{}
}

// NewCPU allows up to n concurrent operations. n < 1 is treated as 1.
func NewCPU(n int) *CPU {
	if n < 1 {
		n = 1
	}
	return &CPU{slots: make(chan struct{}, n)}
}

// Acquire blocks until a slot is free or ctx is done.
func (l *CPU) Acquire(ctx context.Context) error {
	select {
	case l.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot taken by Acquire.
func (l *CPU) Release() {
	<-l.slots
}

// Capacity returns the maximum number of concurrent holders.
func (l *CPU) Capacity() int {
	return cap(l.slots)
}
