// Package sheet defines the document boundary the formula engine reads
// through, plus the in-memory, CSV and xlsx backends that implement it.
package sheet

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrCellNotFound is returned when a reference cannot be resolved.
	ErrCellNotFound = errors.New("cell not found")
	// ErrOutOfBounds is returned when a reference lies outside the grid.
	ErrOutOfBounds = errors.New("reference outside sheet bounds")
	// ErrReadOnly is returned by backends that refuse writes.
	ErrReadOnly = errors.New("sheet is read-only")
)

// Accessor is the capability the engine needs from a host document.
// Implementations block; the engine never retries.
type Accessor interface {
	// Formula returns the formula text of a cell, or "" when the cell holds
	// a plain value or nothing.
	Formula(ctx context.Context, ref string) (string, error)

	// FormulaGrid returns the raw text of every cell in rng, row-major.
	// Formula cells start with "=".
	FormulaGrid(ctx context.Context, rng Range) ([][]string, error)

	// Bounds returns the grid size of the sheet.
	Bounds(ctx context.Context) (Bounds, error)

	// WriteFormula replaces the content of a cell.
	WriteFormula(ctx context.Context, ref, formula string) error
}

// Extenter is implemented by backends whose grid is much larger than the
// data it holds. Whole-sheet scans are limited to the data extent when
// available. ok is false for a sheet with no data.
type Extenter interface {
	DataExtent(ctx context.Context) (rng Range, ok bool, err error)
}

// Workbook is a collection of named sheets.
type Workbook interface {
	Sheets() []string
	Sheet(name string) (Accessor, error)
	Close() error
}

// Snapshot copies the data extent of acc into an in-memory sheet with the
// same bounds. Workbook scans use snapshots so sheets can be analyzed
// independently of the backing file handle.
func Snapshot(ctx context.Context, acc Accessor) (*Memory, error) {
	bounds, err := acc.Bounds(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading bounds: %w", err)
	}
	mem := NewMemory(bounds.MaxRows, bounds.MaxCols)
	if bounds.Empty() {
		return mem, nil
	}

	extent := bounds.Range()
	if ext, ok := acc.(Extenter); ok {
		rng, has, err := ext.DataExtent(ctx)
		if err != nil {
			return nil, fmt.Errorf("reading data extent: %w", err)
		}
		if !has {
			return mem, nil
		}
		extent = rng
	}

	grid, err := acc.FormulaGrid(ctx, extent)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", extent, err)
	}
	for i, row := range grid {
		for j, text := range row {
			if text == "" {
				continue
			}
			mem.SetCell(CellRef{Col: extent.Start.Col + j, Row: extent.Start.Row + i}, text)
		}
	}
	return mem, nil
}
