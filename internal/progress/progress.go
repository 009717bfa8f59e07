// Package progress defines the progress-reporting capability injected into
// pipeline stages, plus its terminal, websocket and composition adapters.
package progress

import (
	"math"
	"sync"
)

// Sink receives progress updates. percent is in [0, 100].
// Implementations must be safe for use from the pipeline goroutine while a
// UI goroutine renders.
type Sink interface {
	Report(percent int, label string)
}

// Nop discards all updates.
type Nop struct{}

func (Nop) Report(int, string) {}

// Func adapts a function to a Sink.
type Func func(percent int, label string)

func (f Func) Report(percent int, label string) {
	if f != nil {
		f(percent, label)
	}
}

// Multi fans updates out to several sinks in order.
type Multi []Sink

func (m Multi) Report(percent int, label string) {
	for _, s := range m {
		if s != nil {
			s.Report(percent, label)
		}
	}
}

// Range maps a stage-local 0..100 scale into [start, end] of an outer sink,
// so each stage can report its own completion while the job bar advances
// through its slice.
func Range(outer Sink, start, end int) Sink {
	if outer == nil {
		outer = Nop{}
	}
	return &rangeSink{outer: outer, start: start, end: end}
}

type rangeSink struct {
	outer      Sink
	start, end int
}

func (r *rangeSink) Report(percent int, label string) {
	percent = Clamp(percent)
	scaled := r.start + int(math.Round(float64(percent)*float64(r.end-r.start)/100))
	r.outer.Report(scaled, label)
}

// Monotonic drops updates that would move the bar backwards.
func Monotonic(s Sink) Sink {
	return &monotonic{inner: s, last: -1}
}

type monotonic struct {
	mu    sync.Mutex
	inner Sink
	last  int
}

func (m *monotonic) Report(percent int, label string) {
	m.mu.Lock()
	if percent < m.last {
		m.mu.Unlock()
		return
	}
	m.last = percent
	m.mu.Unlock()
	m.inner.Report(percent, label)
}

// Percent returns round(100*done/total), or 100 when total is zero.
func Percent(done, total int) int {
	if total <= 0 {
		return 100
	}
	return Clamp(int(math.Round(100 * float64(done) / float64(total))))
}

// Clamp limits p to [0, 100].
func Clamp(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}
