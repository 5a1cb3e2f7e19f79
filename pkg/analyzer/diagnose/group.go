package diagnose

import (
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/panbanda/formulint/pkg/formula"
	"github.com/panbanda/formulint/pkg/sheet"
)

// Group collects diagnostics of one kind raised on formulas of the same
// shape, such as a formula filled down a column.
type Group struct {
	Hash     uint64   `json:"hash"`
	Kind     Kind     `json:"kind"`
	Severity Severity `json:"severity"`
	Shape    string   `json:"shape"`
	Message  string   `json:"message"`
	Cells    []string `json:"cells"`
}

// Count returns the number of cells in the group.
func (g Group) Count() int { return len(g.Cells) }

// GroupIssues buckets issues by kind and formula shape. Groups are
// ordered by size, largest first, then by first occurrence.
func GroupIssues(issues []Diagnostic) []Group {
	index := make(map[uint64]int)
	var groups []Group

	for _, d := range issues {
		shape := shapeOf(d)
		h := xxhash.Sum64String(string(d.Kind) + "\x00" + shape)
		i, ok := index[h]
		if !ok {
			i = len(groups)
			index[h] = i
			groups = append(groups, Group{
				Hash:     h,
				Kind:     d.Kind,
				Severity: d.Severity,
				Shape:    shape,
				Message:  d.Message,
			})
		}
		g := &groups[i]
		g.Cells = append(g.Cells, d.Cell)
		if d.Severity.Weight() > g.Severity.Weight() {
			g.Severity = d.Severity
		}
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return len(groups[i].Cells) > len(groups[j].Cells)
	})
	return groups
}

// shapeOf renders the formula relative to its cell. Cells qualified with
// a sheet name ("Totals!B4") are read by their local part.
func shapeOf(d Diagnostic) string {
	local := d.Cell
	if i := strings.LastIndexByte(local, '!'); i >= 0 {
		local = local[i+1:]
	}
	host, err := sheet.ParseCellRef(local)
	if err != nil {
		return strings.ToUpper(d.Formula)
	}
	return formula.Shape(d.Formula, host)
}
