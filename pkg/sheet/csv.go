package sheet

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Minimum grid of a CSV sheet, matching a freshly created hosted sheet.
const (
	csvMinRows = 1000
	csvMinCols = 26
)

// CSV is a single-sheet accessor over a CSV file. Cells starting with "="
// are formulas. Writes rewrite the whole file.
type CSV struct {
	*Memory
	fs   afero.Fs
	path string
}

// OpenCSV loads path from fs.
func OpenCSV(fs afero.Fs, path string) (*CSV, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cols := 0
	for _, rec := range records {
		cols = max(cols, len(rec))
	}
	mem := NewMemory(max(len(records), csvMinRows), max(cols, csvMinCols))
	for i, rec := range records {
		for j, field := range rec {
			mem.SetCell(CellRef{Col: j + 1, Row: i + 1}, field)
		}
	}
	return &CSV{Memory: mem, fs: fs, path: path}, nil
}

// Path returns the backing file path.
func (s *CSV) Path() string { return s.path }

// WriteFormula updates the cell and persists the file.
func (s *CSV) WriteFormula(ctx context.Context, ref, formula string) error {
	if err := s.Memory.WriteFormula(ctx, ref, formula); err != nil {
		return err
	}
	return s.flush(ctx)
}

func (s *CSV) flush(ctx context.Context) error {
	var buf bytes.Buffer
	ext, ok, err := s.DataExtent(ctx)
	if err != nil {
		return err
	}
	if ok {
		grid, err := s.FormulaGrid(ctx, NewRange(1, 1, ext.End.Row, ext.End.Col))
		if err != nil {
			return err
		}
		w := csv.NewWriter(&buf)
		for _, row := range grid {
			if err := w.Write(trimTrailing(row)); err != nil {
				return fmt.Errorf("encoding %s: %w", s.path, err)
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return fmt.Errorf("encoding %s: %w", s.path, err)
		}
	}
	if err := afero.WriteFile(s.fs, s.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", s.path, err)
	}
	return nil
}

func trimTrailing(row []string) []string {
	n := len(row)
	for n > 0 && row[n-1] == "" {
		n--
	}
	if n == 0 {
		return []string{""}
	}
	return row[:n]
}

// csvWorkbook exposes a CSV file as a workbook with one sheet named after
// the file.
type csvWorkbook struct {
	name  string
	sheet *CSV
}

func (w *csvWorkbook) Sheets() []string { return []string{w.name} }

func (w *csvWorkbook) Sheet(name string) (Accessor, error) {
	if name != "" && name != w.name {
		return nil, fmt.Errorf("%w: sheet %q", ErrCellNotFound, name)
	}
	return w.sheet, nil
}

func (w *csvWorkbook) Close() error { return nil }

// OpenCSVWorkbook wraps OpenCSV as a Workbook.
func OpenCSVWorkbook(fs afero.Fs, path string) (Workbook, error) {
	s, err := OpenCSV(fs, path)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return &csvWorkbook{name: name, sheet: s}, nil
}
