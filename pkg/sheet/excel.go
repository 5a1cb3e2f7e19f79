package sheet

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"
)

// ExcelWorkbook is an .xlsx workbook opened through excelize. Writes are
// saved back to the file immediately.
type ExcelWorkbook struct {
	mu   sync.Mutex
	file *excelize.File
	path string
}

// OpenExcel opens an .xlsx or .xlsm file.
func OpenExcel(path string) (*ExcelWorkbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return &ExcelWorkbook{file: f, path: path}, nil
}

// NewExcelWorkbook wraps an already open file. Without a path to save to
// the workbook is read-only.
func NewExcelWorkbook(f *excelize.File) *ExcelWorkbook {
	return &ExcelWorkbook{file: f}
}

// Sheets lists sheet names in workbook order.
func (w *ExcelWorkbook) Sheets() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.GetSheetList()
}

// Sheet returns an accessor for name. An empty name selects the first sheet.
func (w *ExcelWorkbook) Sheet(name string) (Accessor, error) {
	sheets := w.Sheets()
	if name == "" && len(sheets) > 0 {
		name = sheets[0]
	}
	if !slices.Contains(sheets, name) {
		return nil, fmt.Errorf("%w: sheet %q", ErrCellNotFound, name)
	}
	return &ExcelSheet{wb: w, name: name}, nil
}

// Close releases the workbook.
func (w *ExcelWorkbook) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

// ExcelSheet is one worksheet of an ExcelWorkbook.
type ExcelSheet struct {
	wb   *ExcelWorkbook
	name string
}

// Name returns the worksheet name.
func (s *ExcelSheet) Name() string { return s.name }

func (s *ExcelSheet) cellName(ref string) (string, error) {
	if strings.Contains(ref, "!") {
		return "", fmt.Errorf("%w: %s is on another sheet", ErrCellNotFound, ref)
	}
	c, err := ParseCellRef(ref)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCellNotFound, err)
	}
	if !(Bounds{MaxRows: excelize.TotalRows, MaxCols: excelize.MaxColumns}).Contains(c) {
		return "", fmt.Errorf("%w: %s", ErrOutOfBounds, ref)
	}
	return excelize.CoordinatesToCellName(c.Col, c.Row)
}

// text returns the formula of cell with its "=" marker, or its value.
// Caller holds the workbook lock.
func (s *ExcelSheet) text(cell string) (string, error) {
	f, err := s.wb.file.GetCellFormula(s.name, cell)
	if err != nil {
		return "", err
	}
	if f != "" {
		if !strings.HasPrefix(f, "=") {
			f = "=" + f
		}
		return f, nil
	}
	return s.wb.file.GetCellValue(s.name, cell, excelize.Options{RawCellValue: true})
}

// Formula implements Accessor.
func (s *ExcelSheet) Formula(ctx context.Context, ref string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cell, err := s.cellName(ref)
	if err != nil {
		return "", err
	}
	s.wb.mu.Lock()
	defer s.wb.mu.Unlock()
	f, err := s.wb.file.GetCellFormula(s.name, cell)
	if err != nil {
		return "", fmt.Errorf("reading %s!%s: %w", s.name, cell, err)
	}
	if f == "" {
		return "", nil
	}
	if !strings.HasPrefix(f, "=") {
		f = "=" + f
	}
	return f, nil
}

// FormulaGrid implements Accessor.
func (s *ExcelSheet) FormulaGrid(ctx context.Context, rng Range) ([][]string, error) {
	rng = rng.Normalize()
	s.wb.mu.Lock()
	defer s.wb.mu.Unlock()

	grid := make([][]string, rng.Height())
	for i := range grid {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row := make([]string, rng.Width())
		for j := range row {
			cell, err := excelize.CoordinatesToCellName(rng.Start.Col+j, rng.Start.Row+i)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrOutOfBounds, err)
			}
			if row[j], err = s.text(cell); err != nil {
				return nil, fmt.Errorf("reading %s!%s: %w", s.name, cell, err)
			}
		}
		grid[i] = row
	}
	return grid, nil
}

// Bounds implements Accessor. An xlsx worksheet always has the full
// format grid.
func (s *ExcelSheet) Bounds(ctx context.Context) (Bounds, error) {
	if err := ctx.Err(); err != nil {
		return Bounds{}, err
	}
	return Bounds{MaxRows: excelize.TotalRows, MaxCols: excelize.MaxColumns}, nil
}

// DataExtent implements Extenter using the stored sheet dimension, falling
// back to the populated rows.
func (s *ExcelSheet) DataExtent(ctx context.Context) (Range, bool, error) {
	if err := ctx.Err(); err != nil {
		return Range{}, false, err
	}
	s.wb.mu.Lock()
	defer s.wb.mu.Unlock()

	rows, cols := 0, 0
	if dim, err := s.wb.file.GetSheetDimension(s.name); err == nil && dim != "" {
		if rng, err := ParseRange(dim); err == nil && (rng.Cells() > 1 || s.hasContent(rng.Start)) {
			rows, cols = rng.End.Row, rng.End.Col
		}
	}

	// The stored dimension is optional and may be stale.
	values, err := s.wb.file.GetRows(s.name)
	if err != nil {
		return Range{}, false, fmt.Errorf("reading rows of %s: %w", s.name, err)
	}
	for i, r := range values {
		if len(r) > 0 {
			rows = max(rows, i+1)
			cols = max(cols, len(r))
		}
	}
	if rows == 0 || cols == 0 {
		return Range{}, false, nil
	}
	return NewRange(1, 1, rows, cols), true, nil
}

func (s *ExcelSheet) hasContent(c CellRef) bool {
	cell, err := excelize.CoordinatesToCellName(c.Col, c.Row)
	if err != nil {
		return false
	}
	text, err := s.text(cell)
	return err == nil && text != ""
}

// WriteFormula implements Accessor and saves the workbook.
func (s *ExcelSheet) WriteFormula(ctx context.Context, ref, formula string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cell, err := s.cellName(ref)
	if err != nil {
		return err
	}
	s.wb.mu.Lock()
	defer s.wb.mu.Unlock()
	if s.wb.path == "" {
		return ErrReadOnly
	}
	body := strings.TrimPrefix(formula, "=")
	if err := s.wb.file.SetCellFormula(s.name, cell, body); err != nil {
		return fmt.Errorf("writing %s!%s: %w", s.name, cell, err)
	}
	if err := s.wb.file.Save(); err != nil {
		return fmt.Errorf("saving %s: %w", s.wb.path, err)
	}
	return nil
}

