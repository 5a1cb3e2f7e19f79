package sheet

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Memory is an in-memory sheet. It backs tests, workbook snapshots and the
// CSV accessor.
type Memory struct {
	mu       sync.RWMutex
	cells    map[CellRef]string
	bounds   Bounds
	writeErr error
	writes   []Write
}

// Write records one WriteFormula call.
type Write struct {
	Ref     string
	Formula string
}

// NewMemory creates an empty sheet with the given grid size.
func NewMemory(maxRows, maxCols int) *Memory {
	return &Memory{
		cells:  make(map[CellRef]string),
		bounds: Bounds{MaxRows: maxRows, MaxCols: maxCols},
	}
}

// NewMemoryFromMap builds a sheet from A1-keyed cell text. It panics on
// malformed keys and is meant for literals.
func NewMemoryFromMap(maxRows, maxCols int, cells map[string]string) *Memory {
	m := NewMemory(maxRows, maxCols)
	for ref, text := range cells {
		m.SetCell(MustParseCellRef(ref), text)
	}
	return m
}

// SetCell stores raw cell text. Empty text clears the cell.
func (m *Memory) SetCell(c CellRef, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if text == "" {
		delete(m.cells, c)
		return
	}
	m.cells[c] = text
}

// Cell returns the raw text of c.
func (m *Memory) Cell(c CellRef) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cells[c]
}

// FailWrites makes every later WriteFormula return err.
func (m *Memory) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// Writes returns the writes applied so far.
func (m *Memory) Writes() []Write {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Write(nil), m.writes...)
}

func (m *Memory) resolve(ref string) (CellRef, error) {
	if strings.Contains(ref, "!") {
		return CellRef{}, fmt.Errorf("%w: %s is on another sheet", ErrCellNotFound, ref)
	}
	c, err := ParseCellRef(ref)
	if err != nil {
		return CellRef{}, fmt.Errorf("%w: %w", ErrCellNotFound, err)
	}
	if !m.bounds.Contains(c) {
		return CellRef{}, fmt.Errorf("%w: %s", ErrOutOfBounds, ref)
	}
	return c, nil
}

// Formula implements Accessor.
func (m *Memory) Formula(ctx context.Context, ref string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c, err := m.resolve(ref)
	if err != nil {
		return "", err
	}
	text := m.Cell(c)
	if !strings.HasPrefix(text, "=") {
		return "", nil
	}
	return text, nil
}

// FormulaGrid implements Accessor. Cells outside the grid read as empty.
func (m *Memory) FormulaGrid(ctx context.Context, rng Range) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rng = rng.Normalize()
	m.mu.RLock()
	defer m.mu.RUnlock()

	grid := make([][]string, rng.Height())
	for i := range grid {
		row := make([]string, rng.Width())
		for j := range row {
			row[j] = m.cells[CellRef{Col: rng.Start.Col + j, Row: rng.Start.Row + i}]
		}
		grid[i] = row
	}
	return grid, nil
}

// Bounds implements Accessor.
func (m *Memory) Bounds(ctx context.Context) (Bounds, error) {
	if err := ctx.Err(); err != nil {
		return Bounds{}, err
	}
	return m.bounds, nil
}

// WriteFormula implements Accessor.
func (m *Memory) WriteFormula(ctx context.Context, ref, formula string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c, err := m.resolve(ref)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	if formula == "" {
		delete(m.cells, c)
	} else {
		m.cells[c] = formula
	}
	m.writes = append(m.writes, Write{Ref: c.String(), Formula: formula})
	return nil
}

// DataExtent implements Extenter.
func (m *Memory) DataExtent(ctx context.Context) (Range, bool, error) {
	if err := ctx.Err(); err != nil {
		return Range{}, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.cells) == 0 {
		return Range{}, false, nil
	}
	var ext Range
	first := true
	for c := range m.cells {
		if first {
			ext = Range{Start: c, End: c}
			first = false
			continue
		}
		ext.Start.Col = min(ext.Start.Col, c.Col)
		ext.Start.Row = min(ext.Start.Row, c.Row)
		ext.End.Col = max(ext.End.Col, c.Col)
		ext.End.Row = max(ext.End.Row, c.Row)
	}
	return ext, true, nil
}

