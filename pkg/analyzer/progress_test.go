package analyzer

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracker_AddAndTick(t *testing.T) {
	var calls []struct {
		current, total int
		cell           string
	}
	var mu sync.Mutex

	tracker := NewTracker(func(current, total int, cell string) {
		mu.Lock()
		calls = append(calls, struct {
			current, total int
			cell           string
		}{current, total, cell})
		mu.Unlock()
	})

	tracker.Add(3)
	tracker.Tick("A1")
	tracker.Tick("A2")
	tracker.Tick("A3")

	if got := tracker.Total(); got != 3 {
		t.Errorf("Total() = %d, want 3", got)
	}
	if got := tracker.Current(); got != 3 {
		t.Errorf("Current() = %d, want 3", got)
	}
	if len(calls) != 3 {
		t.Fatalf("expected 3 callback calls, got %d", len(calls))
	}
	if calls[2].current != 3 || calls[2].total != 3 || calls[2].cell != "A3" {
		t.Errorf("call 3: got (%d, %d, %q), want (3, 3, \"A3\")",
			calls[2].current, calls[2].total, calls[2].cell)
	}
}

func TestTracker_SetTotal(t *testing.T) {
	tracker := NewTracker(nil)
	tracker.Add(5)
	tracker.SetTotal(10)
	if got := tracker.Total(); got != 10 {
		t.Errorf("after SetTotal(10): Total() = %d, want 10", got)
	}
}

func TestTracker_ConcurrentTicks(t *testing.T) {
	tracker := NewTracker(nil)
	tracker.Add(100)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Tick("B2")
		}()
	}
	wg.Wait()

	if got := tracker.Current(); got != 100 {
		t.Errorf("Current() = %d, want 100", got)
	}
}

func TestWithTracker(t *testing.T) {
	tracker := NewTracker(nil)
	ctx := WithTracker(context.Background(), tracker)
	assert.Same(t, tracker, TrackerFromContext(ctx))
	assert.Nil(t, TrackerFromContext(context.Background()))
}

func TestMapSheets(t *testing.T) {
	sheets := []string{"Q1", "Q2", "Q3", "Bad"}
	results := MapSheets(context.Background(), sheets, 2, func(_ context.Context, name string) (int, error) {
		if name == "Bad" {
			return 0, errors.New("unreadable")
		}
		return len(name), nil
	})

	assert.Len(t, results, 4)
	for i, r := range results {
		assert.Equal(t, sheets[i], r.Sheet, "results keep input order")
	}
	assert.Equal(t, 2, results[0].Result)
	assert.EqualError(t, results[3].Err, "unreadable")
}

func TestMapSheets_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := MapSheets(ctx, []string{"A"}, 1, func(context.Context, string) (int, error) {
		return 1, nil
	})
	assert.ErrorIs(t, results[0].Err, context.Canceled)
	assert.Empty(t, MapSheets(ctx, nil, 1, func(context.Context, string) (int, error) { return 0, nil }))
}
