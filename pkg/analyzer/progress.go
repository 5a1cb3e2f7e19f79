package analyzer

import (
	"context"
	"sync/atomic"
)

// ProgressFunc is called to report scan progress. current is the number of
// cells visited, total the number planned, and cell the A1 address of the
// cell just visited.
type ProgressFunc func(current, total int, cell string)

// Tracker tracks progress across one or more sheet scans.
// It is safe for concurrent use from multiple goroutines.
type Tracker struct {
	total    atomic.Int64
	current  atomic.Int64
	callback ProgressFunc
}

// NewTracker creates a new progress tracker with the given callback.
func NewTracker(callback ProgressFunc) *Tracker {
	return &Tracker{callback: callback}
}

// Add grows the planned total by n cells.
func (t *Tracker) Add(n int) {
	t.total.Add(int64(n))
}

// SetTotal replaces the planned total.
func (t *Tracker) SetTotal(n int) {
	t.total.Store(int64(n))
}

// Tick marks one cell as visited.
func (t *Tracker) Tick(cell string) {
	current := int(t.current.Add(1))
	total := int(t.total.Load())
	if t.callback != nil {
		t.callback(current, total, cell)
	}
}

// Current returns the number of cells visited.
func (t *Tracker) Current() int {
	return int(t.current.Load())
}

// Total returns the planned total.
func (t *Tracker) Total() int {
	return int(t.total.Load())
}

type trackerKey struct{}

// WithTracker returns a context that carries a progress tracker.
func WithTracker(ctx context.Context, t *Tracker) context.Context {
	return context.WithValue(ctx, trackerKey{}, t)
}

// TrackerFromContext extracts the progress tracker from the context.
// Returns nil if no tracker was set.
func TrackerFromContext(ctx context.Context) *Tracker {
	if t, ok := ctx.Value(trackerKey{}).(*Tracker); ok {
		return t
	}
	return nil
}
