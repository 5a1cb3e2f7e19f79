package depgraph

import "time"

// Node is one cell in the dependency graph.
type Node struct {
	Cell    string `json:"cell"`
	Formula string `json:"formula,omitempty"`
	// Precedents counts the cells the formula reads directly.
	Precedents int `json:"precedents"`
	// Dependents counts the formulas that read this cell directly.
	Dependents int `json:"dependents"`
	// Reach counts every cell the formula depends on, directly or not.
	Reach    uint64  `json:"reach"`
	PageRank float64 `json:"pagerank"`
}

// Cycle is a set of cells whose formulas depend on each other. A
// single-cell cycle is a formula that reads its own cell.
type Cycle struct {
	Cells []string `json:"cells"`
}

// Summary aggregates graph statistics.
type Summary struct {
	TotalNodes    int    `json:"total_nodes"`
	TotalEdges    int    `json:"total_edges"`
	FormulaCells  int    `json:"formula_cells"`
	Cycles        int    `json:"cycles"`
	CellsInCycles int    `json:"cells_in_cycles"`
	MaxReach      uint64 `json:"max_reach"`
}

// Analysis is the dependency graph of one sheet.
type Analysis struct {
	GeneratedAt time.Time `json:"generated_at"`
	Sheet       string    `json:"sheet,omitempty"`
	Nodes       []Node    `json:"nodes"`
	Cycles      []Cycle   `json:"cycles"`
	// KeyCells are the most depended-upon cells by PageRank.
	KeyCells []string `json:"key_cells"`
	Summary  Summary  `json:"summary"`
}

// Cyclic reports whether the sheet has any cycle.
func (a *Analysis) Cyclic() bool { return len(a.Cycles) > 0 }
