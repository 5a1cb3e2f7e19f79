// Package depgraph builds the complete cell dependency graph of a sheet
// and finds every reference cycle in it. Unlike the bounded circular check
// it reads the whole sheet up front, so it suits offline reports rather
// than per-cell diagnostics.
package depgraph

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/panbanda/formulint/pkg/formula"
	"github.com/panbanda/formulint/pkg/sheet"
)

// Analyzer builds dependency graphs.
// This analyzer is safe for concurrent use.
type Analyzer struct {
	keyCells int
}

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithKeyCells sets how many top PageRank cells are reported.
func WithKeyCells(n int) Option {
	return func(a *Analyzer) {
		a.keyCells = n
	}
}

// New creates a new dependency graph analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{keyCells: 10}
	for _, opt := range opts {
		opt(a)
	}
	if a.keyCells < 0 {
		a.keyCells = 0
	}
	return a
}

// cellGraph indexes cells by sequential gonum IDs.
type cellGraph struct {
	refs     []sheet.CellRef
	formulas []string
	ids      map[sheet.CellRef]int64
	out      [][]int64
	selfLoop []bool
}

func (g *cellGraph) id(c sheet.CellRef) int64 {
	if id, ok := g.ids[c]; ok {
		return id
	}
	id := int64(len(g.refs))
	g.ids[c] = id
	g.refs = append(g.refs, c)
	g.formulas = append(g.formulas, "")
	g.out = append(g.out, nil)
	g.selfLoop = append(g.selfLoop, false)
	return id
}

// Analyze reads the data extent of the sheet and builds its graph. Edges
// run from a formula to each non-empty cell it references; a range
// reference links to every non-empty cell inside it. References to other
// sheets are ignored.
func (a *Analyzer) Analyze(ctx context.Context, acc sheet.Accessor) (*Analysis, error) {
	snap, err := sheet.Snapshot(ctx, acc)
	if err != nil {
		return nil, fmt.Errorf("reading sheet: %w", err)
	}
	extent, ok, err := snap.DataExtent(ctx)
	if err != nil {
		return nil, err
	}

	analysis := &Analysis{
		GeneratedAt: time.Now().UTC(),
		Nodes:       make([]Node, 0),
		Cycles:      make([]Cycle, 0),
		KeyCells:    make([]string, 0),
	}
	if !ok {
		return analysis, nil
	}

	g, err := build(ctx, snap, extent)
	if err != nil {
		return nil, err
	}
	a.measure(g, analysis)
	return analysis, nil
}

func build(ctx context.Context, snap *sheet.Memory, extent sheet.Range) (*cellGraph, error) {
	g := &cellGraph{ids: make(map[sheet.CellRef]int64)}

	// occupied lists non-empty cells per row so large ranges only visit data
	occupied := make(map[int][]int)
	for row := extent.Start.Row; row <= extent.End.Row; row++ {
		for col := extent.Start.Col; col <= extent.End.Col; col++ {
			if snap.Cell(sheet.CellRef{Col: col, Row: row}) != "" {
				occupied[row] = append(occupied[row], col)
			}
		}
	}

	for row := extent.Start.Row; row <= extent.End.Row; row++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, col := range occupied[row] {
			host := sheet.CellRef{Col: col, Row: row}
			text := snap.Cell(host)
			if !formula.IsFormula(text) {
				continue
			}
			from := g.id(host)
			g.formulas[from] = text

			seen := make(map[int64]bool)
			link := func(c sheet.CellRef) {
				if snap.Cell(c) == "" {
					return
				}
				to := g.id(c)
				if seen[to] {
					return
				}
				seen[to] = true
				if to == from {
					g.selfLoop[from] = true
				}
				g.out[from] = append(g.out[from], to)
			}

			for _, r := range formula.ExtractReferences(text) {
				if r.CrossSheet {
					continue
				}
				if !r.IsRange {
					link(r.Cell())
					continue
				}
				rng := r.Range()
				for rr := max(rng.Start.Row, extent.Start.Row); rr <= min(rng.End.Row, extent.End.Row); rr++ {
					for _, cc := range occupied[rr] {
						if cc >= rng.Start.Col && cc <= rng.End.Col {
							link(sheet.CellRef{Col: cc, Row: rr})
						}
					}
				}
			}
		}
	}
	return g, nil
}

func (a *Analyzer) measure(g *cellGraph, analysis *Analysis) {
	directed := simple.NewDirectedGraph()
	for i := range g.refs {
		directed.AddNode(simple.Node(int64(i)))
	}
	edges := 0
	dependents := make([]int, len(g.refs))
	for from, tos := range g.out {
		for _, to := range tos {
			edges++
			dependents[to]++
			// gonum simple graphs reject self-loops; they are tracked separately
			if int64(from) != to {
				directed.SetEdge(simple.Edge{F: simple.Node(int64(from)), T: simple.Node(to)})
			}
		}
	}

	var rank map[int64]float64
	if len(g.refs) > 0 {
		rank = network.PageRank(directed, 0.85, 1e-6)
	}

	inCycle := make([]bool, len(g.refs))
	for _, scc := range topo.TarjanSCC(directed) {
		if len(scc) < 2 {
			continue
		}
		ids := make([]int64, 0, len(scc))
		for _, n := range scc {
			ids = append(ids, n.ID())
			inCycle[n.ID()] = true
		}
		analysis.Cycles = append(analysis.Cycles, g.cycle(ids))
	}
	for i, self := range g.selfLoop {
		if self && !inCycle[i] {
			inCycle[i] = true
			analysis.Cycles = append(analysis.Cycles, g.cycle([]int64{int64(i)}))
		}
	}
	sort.Slice(analysis.Cycles, func(i, j int) bool {
		return lessCell(analysis.Cycles[i].Cells[0], analysis.Cycles[j].Cells[0])
	})

	formulas := 0
	for i, ref := range g.refs {
		n := Node{
			Cell:       ref.String(),
			Formula:    g.formulas[i],
			Precedents: len(g.out[i]),
			Dependents: dependents[i],
			PageRank:   rank[int64(i)],
		}
		if n.Formula != "" {
			formulas++
			n.Reach = g.reach(int64(i))
		}
		analysis.Summary.MaxReach = max(analysis.Summary.MaxReach, n.Reach)
		analysis.Nodes = append(analysis.Nodes, n)
	}
	sort.Slice(analysis.Nodes, func(i, j int) bool {
		return lessCell(analysis.Nodes[i].Cell, analysis.Nodes[j].Cell)
	})

	analysis.KeyCells = keyCells(analysis.Nodes, a.keyCells)

	cycleCells := 0
	for _, in := range inCycle {
		if in {
			cycleCells++
		}
	}
	analysis.Summary.TotalNodes = len(g.refs)
	analysis.Summary.TotalEdges = edges
	analysis.Summary.FormulaCells = formulas
	analysis.Summary.Cycles = len(analysis.Cycles)
	analysis.Summary.CellsInCycles = cycleCells
}

// reach counts the cells transitively read by the formula at id.
func (g *cellGraph) reach(id int64) uint64 {
	visited := roaring.New()
	stack := []int64{id}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, to := range g.out[n] {
			if visited.CheckedAdd(uint32(to)) {
				stack = append(stack, to)
			}
		}
	}
	return visited.GetCardinality()
}

func (g *cellGraph) cycle(ids []int64) Cycle {
	sort.Slice(ids, func(i, j int) bool { return less(g.refs[ids[i]], g.refs[ids[j]]) })
	cells := make([]string, len(ids))
	for i, id := range ids {
		cells[i] = g.refs[id].String()
	}
	return Cycle{Cells: cells}
}

// keyCells returns up to n cells with at least one dependent, highest
// PageRank first.
func keyCells(nodes []Node, n int) []string {
	ranked := make([]Node, 0, len(nodes))
	for _, node := range nodes {
		if node.Dependents > 0 {
			ranked = append(ranked, node)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].PageRank > ranked[j].PageRank
	})
	out := make([]string, 0, min(n, len(ranked)))
	for i := 0; i < len(ranked) && i < n; i++ {
		out = append(out, ranked[i].Cell)
	}
	return out
}

func less(a, b sheet.CellRef) bool {
	if a.Row != b.Row {
		return a.Row < b.Row
	}
	return a.Col < b.Col
}

func lessCell(a, b string) bool {
	ra, _ := sheet.ParseCellRef(a)
	rb, _ := sheet.ParseCellRef(b)
	return less(ra, rb)
}
