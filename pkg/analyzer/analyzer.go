// Package analyzer holds what the sheet analyzers share: the analyzer
// contract, progress tracking and multi-sheet fan-out.
package analyzer

import (
	"context"

	"github.com/panbanda/formulint/pkg/sheet"
)

// SheetAnalyzer is implemented by analyzers that consume a whole sheet.
type SheetAnalyzer[T any] interface {
	// Analyze processes every cell of the sheet behind acc. The context is
	// checked between cells and can carry a progress Tracker.
	Analyze(ctx context.Context, acc sheet.Accessor) (T, error)
}
