// Package progress renders scan progress on stderr.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/panbanda/formulint/pkg/analyzer"
)

// Tracker wraps a progress bar for cell scanning.
type Tracker struct {
	mu    sync.Mutex
	bar   *progressbar.ProgressBar
	label string
	out   io.Writer
	max   int
}

// NewSpinner creates a spinner for operations with unknown total count.
func NewSpinner(label string) *Tracker {
	return newSpinner(os.Stderr, label)
}

func newSpinner(w io.Writer, label string) *Tracker {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetWidth(20),
		progressbar.OptionSetDescription(label),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	return &Tracker{bar: bar, label: label, out: w, max: -1}
}

// NewTracker creates a progress bar with the given label and total count.
// The total can grow later through Func.
func NewTracker(label string, total int) *Tracker {
	return newTracker(os.Stderr, label, total)
}

func newTracker(w io.Writer, label string, total int) *Tracker {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription(label),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	return &Tracker{bar: bar, label: label, out: w, max: total}
}

// Tick increments the progress by 1. Safe for concurrent use.
func (t *Tracker) Tick() {
	t.mu.Lock()
	defer t.mu.Unlock()
	_ = t.bar.Add(1)
}

// Func adapts the bar to an analyzer.ProgressFunc. The bar follows the
// scanner's count and grows when scans add cells to the plan.
func (t *Tracker) Func() analyzer.ProgressFunc {
	return func(current, total int, cell string) {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.max >= 0 && total > t.max {
			t.max = total
			t.bar.ChangeMax(total)
		}
		t.bar.Describe(fmt.Sprintf("%s %s", t.label, cell))
		_ = t.bar.Set(current)
	}
}

// Analyzer returns an analyzer.Tracker that drives this bar.
func (t *Tracker) Analyzer() *analyzer.Tracker {
	return analyzer.NewTracker(t.Func())
}

// Current returns the bar position.
func (t *Tracker) Current() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return int(t.bar.State().CurrentNum)
}

// FinishSuccess clears the bar completely (no output).
func (t *Tracker) FinishSuccess() {
	_ = t.bar.Finish()
	_ = t.bar.Clear()
}

// FinishSkipped clears the bar and prints a skip message.
func (t *Tracker) FinishSkipped(reason string) {
	_ = t.bar.Finish()
	_ = t.bar.Clear()
	fmt.Fprintf(t.out, "  %s skipped (%s)\n", t.label, reason)
}

// FinishError clears the bar and prints an error message.
func (t *Tracker) FinishError(err error) {
	_ = t.bar.Finish()
	_ = t.bar.Clear()
	fmt.Fprintf(t.out, "  %s error: %v\n", t.label, err)
}
