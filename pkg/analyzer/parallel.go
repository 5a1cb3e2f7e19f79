package analyzer

import (
	"context"
	"runtime"

	"github.com/sourcegraph/conc/pool"
)

// SheetResult pairs a sheet name with its analysis outcome.
type SheetResult[T any] struct {
	Sheet  string
	Result T
	Err    error
}

// MapSheets runs fn for every sheet on a bounded worker pool and returns
// the outcomes in input order. Each fn call owns its sheet; nothing is
// shared between workers. maxWorkers <= 0 means NumCPU.
func MapSheets[T any](ctx context.Context, sheets []string, maxWorkers int, fn func(context.Context, string) (T, error)) []SheetResult[T] {
	if len(sheets) == 0 {
		return nil
	}
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}

	results := make([]SheetResult[T], len(sheets))
	p := pool.New().WithMaxGoroutines(maxWorkers)
	for i, name := range sheets {
		p.Go(func() {
			results[i].Sheet = name
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return
			}
			results[i].Result, results[i].Err = fn(ctx, name)
		})
	}
	p.Wait()

	return results
}
