package diagnose

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/panbanda/formulint/pkg/analyzer"
	"github.com/panbanda/formulint/pkg/formula"
	"github.com/panbanda/formulint/pkg/sheet"
)

// ErrEmptySheet is returned when a whole-sheet scan targets a sheet whose
// grid has no rows or no columns.
var ErrEmptySheet = errors.New("sheet has no rows or columns")

// ScopeKind selects what a scan covers.
type ScopeKind string

const (
	ScopeCell  ScopeKind = "cell"
	ScopeRange ScopeKind = "range"
	ScopeSheet ScopeKind = "sheet"
)

// Scope is the area a scan covers. Range is unused for sheet scopes.
type Scope struct {
	Kind  ScopeKind   `json:"kind"`
	Range sheet.Range `json:"range"`
}

// CellScope covers one cell.
func CellScope(c sheet.CellRef) Scope {
	return Scope{Kind: ScopeCell, Range: sheet.Range{Start: c, End: c}}
}

// RangeScope covers a rectangle.
func RangeScope(r sheet.Range) Scope {
	return Scope{Kind: ScopeRange, Range: r.Normalize()}
}

// SheetScope covers every cell of the sheet.
func SheetScope() Scope {
	return Scope{Kind: ScopeSheet}
}

// ParseScope reads "", "sheet", "B2" or "A1:C10".
func ParseScope(s string) (Scope, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, string(ScopeSheet)) {
		return SheetScope(), nil
	}
	rng, err := sheet.ParseRange(s)
	if err != nil {
		return Scope{}, err
	}
	if !strings.Contains(s, ":") {
		return CellScope(rng.Start), nil
	}
	return RangeScope(rng), nil
}

func (s Scope) String() string {
	if s.Kind == ScopeSheet {
		return string(ScopeSheet)
	}
	return s.Range.String()
}

// Cursor is the next cell a scan will visit.
type Cursor struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// State is the serializable progress of a scan. A host that must yield
// between chunks stores it and later passes it to ResumeScan.
type State struct {
	Scope  Scope           `json:"scope"`
	Area   sheet.Range     `json:"area"`
	Cursor Cursor          `json:"cursor"`
	Done   bool            `json:"done"`
	Result *AnalysisResult `json:"result"`
}

// Scan is a resumable walk over the cells of a scope. Next processes a
// bounded number of cells per call, so a caller can stop between calls
// and pick up from the saved State. A Scan is not safe for concurrent use.
type Scan struct {
	a      *Analyzer
	acc    sheet.Accessor
	bounds sheet.Bounds
	state  State
}

// NewScan resolves the scope against the accessor and returns a scan
// positioned on its first cell.
//
// Sheet scopes fail with ErrEmptySheet on an empty grid and are narrowed
// to the data extent when the accessor implements sheet.Extenter. A cell
// scope outside the grid fails with sheet.ErrOutOfBounds. Range scopes are
// clipped to the grid; a range that misses the grid yields an empty result.
func (a *Analyzer) NewScan(ctx context.Context, acc sheet.Accessor, scope Scope) (*Scan, error) {
	bounds, err := acc.Bounds(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading sheet bounds: %w", err)
	}

	s := &Scan{
		a:      a,
		acc:    acc,
		bounds: bounds,
		state: State{
			Scope:  scope,
			Result: NewAnalysisResult(scope.String()),
		},
	}

	area, ok, err := s.area(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.state.Done = true
		return s, nil
	}
	s.state.Area = area
	s.state.Cursor = Cursor{Row: area.Start.Row, Col: area.Start.Col}

	if t := analyzer.TrackerFromContext(ctx); t != nil {
		t.Add(area.Cells())
	}
	return s, nil
}

// ResumeScan continues a scan from a saved state.
func (a *Analyzer) ResumeScan(ctx context.Context, acc sheet.Accessor, st State) (*Scan, error) {
	bounds, err := acc.Bounds(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading sheet bounds: %w", err)
	}
	if st.Result == nil {
		st.Result = NewAnalysisResult(st.Scope.String())
	}
	if st.Result.Summary.ByKind == nil {
		st.Result.Summary.ByKind = make(map[Kind]int)
	}
	if !st.Done && !st.Area.Contains(sheet.CellRef{Col: st.Cursor.Col, Row: st.Cursor.Row}) {
		return nil, fmt.Errorf("cursor %s is outside scan area %s: %w",
			sheet.CellRef{Col: st.Cursor.Col, Row: st.Cursor.Row}, st.Area, sheet.ErrOutOfBounds)
	}
	return &Scan{a: a, acc: acc, bounds: bounds, state: st}, nil
}

func (s *Scan) area(ctx context.Context) (sheet.Range, bool, error) {
	scope := s.state.Scope
	switch scope.Kind {
	case ScopeSheet:
		if s.bounds.Empty() {
			return sheet.Range{}, false, ErrEmptySheet
		}
		if ext, ok := s.acc.(sheet.Extenter); ok {
			rng, has, err := ext.DataExtent(ctx)
			if err != nil {
				return sheet.Range{}, false, fmt.Errorf("reading data extent: %w", err)
			}
			if !has {
				return sheet.Range{}, false, nil
			}
			rng, ok = clip(rng, s.bounds)
			return rng, ok, nil
		}
		return s.bounds.Range(), true, nil

	case ScopeCell:
		if !s.bounds.Contains(scope.Range.Start) {
			return sheet.Range{}, false, fmt.Errorf("%s: %w", scope.Range.Start, sheet.ErrOutOfBounds)
		}
		return sheet.Range{Start: scope.Range.Start, End: scope.Range.Start}, true, nil

	case ScopeRange:
		rng, ok := clip(scope.Range, s.bounds)
		return rng, ok, nil

	default:
		return sheet.Range{}, false, fmt.Errorf("unknown scope kind %q", scope.Kind)
	}
}

func clip(r sheet.Range, b sheet.Bounds) (sheet.Range, bool) {
	r = r.Normalize()
	r.Start.Col, r.Start.Row = max(r.Start.Col, 1), max(r.Start.Row, 1)
	r.End.Col, r.End.Row = min(r.End.Col, b.MaxCols), min(r.End.Row, b.MaxRows)
	return r, r.Cells() > 0
}

// Done reports whether every cell of the scope has been visited.
func (s *Scan) Done() bool { return s.state.Done }

// Result returns the aggregate so far. It is final once Done is true.
func (s *Scan) Result() *AnalysisResult { return s.state.Result }

// State returns a snapshot of the scan position for later resumption.
func (s *Scan) State() State { return s.state }

// Next visits up to n cells, or the rest of the scope when n <= 0, and
// returns the number visited. The context is checked before every cell;
// on cancellation the cursor stays on the first unvisited cell and the
// context error is returned.
func (s *Scan) Next(ctx context.Context, n int) (int, error) {
	visited := 0
	tracker := analyzer.TrackerFromContext(ctx)
	area := s.state.Area

	for !s.state.Done && (n <= 0 || visited < n) {
		if err := ctx.Err(); err != nil {
			return visited, err
		}

		cur := s.state.Cursor
		rows := min(s.a.chunkRows, area.End.Row-cur.Row+1)
		if n > 0 {
			need := (cur.Col - area.Start.Col + n - visited + area.Width() - 1) / area.Width()
			rows = min(rows, need)
		}
		chunk := sheet.Range{
			Start: sheet.CellRef{Col: area.Start.Col, Row: cur.Row},
			End:   sheet.CellRef{Col: area.End.Col, Row: cur.Row + rows - 1},
		}
		grid, err := s.acc.FormulaGrid(ctx, chunk)
		if err != nil {
			return visited, fmt.Errorf("reading %s: %w", chunk, err)
		}

		for i := 0; i < rows && !s.state.Done; i++ {
			row := cur.Row + i
			startCol := area.Start.Col
			if i == 0 {
				startCol = cur.Col
			}
			for col := startCol; col <= area.End.Col; col++ {
				if n > 0 && visited >= n {
					return visited, nil
				}
				if err := ctx.Err(); err != nil {
					return visited, err
				}

				ref := sheet.CellRef{Col: col, Row: row}
				if err := s.visit(ctx, ref, cellText(grid, i, col-area.Start.Col)); err != nil {
					return visited, err
				}
				visited++
				if tracker != nil {
					tracker.Tick(ref.String())
				}
				s.advance(ref)
			}
		}
	}
	return visited, nil
}

func cellText(grid [][]string, i, j int) string {
	if i >= len(grid) || j >= len(grid[i]) {
		return ""
	}
	return grid[i][j]
}

// visit analyzes one cell. A cell whose analysis was cut short by
// cancellation is not recorded, so resuming the scan analyzes it again.
func (s *Scan) visit(ctx context.Context, ref sheet.CellRef, text string) error {
	if !formula.IsFormula(text) {
		return nil
	}
	c := s.a.AnalyzeFormula(ctx, s.acc, s.bounds, ref.String(), text)
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state.Result.AddCell(c)
	return nil
}

func (s *Scan) advance(ref sheet.CellRef) {
	area := s.state.Area
	switch {
	case ref.Col < area.End.Col:
		s.state.Cursor = Cursor{Row: ref.Row, Col: ref.Col + 1}
	case ref.Row < area.End.Row:
		s.state.Cursor = Cursor{Row: ref.Row + 1, Col: area.Start.Col}
	default:
		s.state.Done = true
	}
}
