package diagnose

import (
	"context"
	"fmt"
	"strings"

	"github.com/panbanda/formulint/pkg/formula"
	"github.com/panbanda/formulint/pkg/sheet"
)

// DefaultMaxDepth bounds the indirect cycle search. With depth 2 a cycle
// through three cells (A1 -> B1 -> C1 -> A1) is found.
const DefaultMaxDepth = 2

// CheckCircular reports a formula that references its own cell, directly
// or through up to maxDepth intermediate formulas fetched from acc.
//
// Absence of a diagnostic is not proof of absence of a cycle: chains
// longer than maxDepth+1 cells are not followed. Cells the accessor cannot
// resolve, including other sheets, are treated as leaves.
func CheckCircular(ctx context.Context, f, cell string, acc sheet.Accessor, maxDepth int) *Diagnostic {
	if !formula.IsFormula(f) {
		return nil
	}
	host, err := sheet.ParseCellRef(cell)
	if err != nil {
		return nil
	}
	refs := formula.ExtractReferences(f)

	for _, r := range refs {
		if r.IsRange || r.CrossSheet || r.Cell() != host {
			continue
		}
		return &Diagnostic{
			Kind:     KindCircularReference,
			Severity: SeverityError,
			Message:  fmt.Sprintf("Formula in %s references its own cell", host),
			Cell:     cell,
			Formula:  f,
			Span:     &formula.Span{Start: r.Start, End: r.End},
			Suggestions: []Suggestion{{
				Description: fmt.Sprintf("Remove the reference to %s", host),
				Formula:     removeSelfReferences(f, host),
			}},
		}
	}

	if acc == nil {
		return nil
	}
	w := &walker{
		ctx:      ctx,
		acc:      acc,
		maxDepth: maxDepth,
		visited:  map[sheet.CellRef]bool{host: true},
	}
	path := w.walk(refs, []string{host.String()}, 0)
	if path == nil {
		return nil
	}
	return &Diagnostic{
		Kind:     KindCircularReference,
		Severity: SeverityError,
		Message:  "Circular reference: " + strings.Join(path, " -> "),
		Cell:     cell,
		Formula:  f,
	}
}

// maxRangeCells caps how many members of one range reference are followed.
const maxRangeCells = 4096

// walker is a depth-bounded DFS over formula references. visited holds the
// cells on the current path only, so two branches reaching the same cell
// are not mistaken for a cycle.
type walker struct {
	ctx      context.Context
	acc      sheet.Accessor
	maxDepth int
	visited  map[sheet.CellRef]bool

	// area is the part of the sheet holding data, loaded on first use.
	area     sheet.Range
	hasArea  bool
	areaRead bool
}

// precedent is a formula cell reached from a reference.
type precedent struct {
	cell sheet.CellRef
	text string
}

func (w *walker) walk(refs []formula.Reference, path []string, depth int) []string {
	for _, r := range refs {
		if r.CrossSheet {
			continue
		}
		if w.ctx.Err() != nil {
			return nil
		}
		if w.onPath(r) {
			return append(path, strings.ReplaceAll(r.Raw, "$", ""))
		}
		if depth >= w.maxDepth {
			continue
		}

		for _, p := range w.precedents(r) {
			w.visited[p.cell] = true
			found := w.walk(formula.ExtractReferences(p.text), append(path, p.cell.String()), depth+1)
			delete(w.visited, p.cell)
			if found != nil {
				return found
			}
		}
	}
	return nil
}

// precedents returns the formula cells behind r. A range yields each of its
// formula members inside the data area, in row-major order.
func (w *walker) precedents(r formula.Reference) []precedent {
	if !r.IsRange {
		c := r.Cell()
		text, err := w.acc.Formula(w.ctx, c.String())
		if err != nil || !formula.IsFormula(text) {
			return nil
		}
		return []precedent{{cell: c, text: text}}
	}

	rng, ok := w.clip(r.Range())
	if !ok {
		return nil
	}
	grid, err := w.acc.FormulaGrid(w.ctx, rng)
	if err != nil {
		return nil
	}
	var out []precedent
	for i, row := range grid {
		for j, text := range row {
			if formula.IsFormula(text) {
				c := sheet.CellRef{Col: rng.Start.Col + j, Row: rng.Start.Row + i}
				out = append(out, precedent{cell: c, text: text})
			}
		}
	}
	return out
}

// clip limits rng to the data area and to maxRangeCells.
func (w *walker) clip(rng sheet.Range) (sheet.Range, bool) {
	if !w.areaRead {
		w.areaRead = true
		w.area, w.hasArea = w.dataArea()
	}
	if !w.hasArea {
		return sheet.Range{}, false
	}
	rng = rng.Normalize()
	out := sheet.Range{
		Start: sheet.CellRef{
			Col: max(rng.Start.Col, w.area.Start.Col),
			Row: max(rng.Start.Row, w.area.Start.Row),
		},
		End: sheet.CellRef{
			Col: min(rng.End.Col, w.area.End.Col),
			Row: min(rng.End.Row, w.area.End.Row),
		},
	}
	if out.Start.Col > out.End.Col || out.Start.Row > out.End.Row {
		return sheet.Range{}, false
	}
	if out.Width() > maxRangeCells {
		out.End.Col = out.Start.Col + maxRangeCells - 1
	}
	if rows := maxRangeCells / out.Width(); out.Height() > rows {
		out.End.Row = out.Start.Row + rows - 1
	}
	return out, true
}

func (w *walker) dataArea() (sheet.Range, bool) {
	if ext, ok := w.acc.(sheet.Extenter); ok {
		rng, has, err := ext.DataExtent(w.ctx)
		if err != nil {
			return sheet.Range{}, false
		}
		return rng, has
	}
	b, err := w.acc.Bounds(w.ctx)
	if err != nil || b.Empty() {
		return sheet.Range{}, false
	}
	return b.Range(), true
}

// onPath reports whether r is, or for a range covers, a cell on the path.
func (w *walker) onPath(r formula.Reference) bool {
	if !r.IsRange {
		return w.visited[r.Cell()]
	}
	rng := r.Range()
	for c := range w.visited {
		if rng.Contains(c) {
			return true
		}
	}
	return false
}
