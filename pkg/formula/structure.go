package formula

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/panbanda/formulint/pkg/sheet"
)

// Parens is the result of a single left-to-right parenthesis scan.
type Parens struct {
	// Balance is the open count when the scan stopped.
	Balance int
	// MaxDepth is the deepest nesting reached.
	MaxDepth int
	// FirstNegative is the offset of the first unmatched ")", or -1. The
	// scan stops there.
	FirstNegative int
}

// ScanParens counts "(" and ")" across the whole text. Quoted text is not
// skipped, so a literal like "(" inside a string is counted.
func ScanParens(formula string) Parens {
	p := Parens{FirstNegative: -1}
	for i := 0; i < len(formula); i++ {
		switch formula[i] {
		case '(':
			p.Balance++
			p.MaxDepth = max(p.MaxDepth, p.Balance)
		case ')':
			p.Balance--
			if p.Balance < 0 {
				p.FirstNegative = i
				return p
			}
		}
	}
	return p
}

// Span is a byte range within a formula.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// WholeRange is a range token that is unbounded in one direction: A:A,
// A2:A (open-ended column) or 1:1 (whole row).
type WholeRange struct {
	Span
	Raw    string
	Column bool
	// StartColumn/EndColumn are set for column ranges; StartRow is the row
	// an open-ended column range starts at, or 0.
	StartColumn string
	EndColumn   string
	StartRow    int
}

var (
	columnRange = regexp.MustCompile(`\$?([A-Z]{1,3})\$?([0-9]*):\$?([A-Z]{1,3})\$?([0-9]*)`)
	rowRange    = regexp.MustCompile(`\$?[0-9]+:\$?[0-9]+`)
)

// WholeRanges finds whole-column and whole-row range tokens.
func WholeRanges(formula string) []WholeRange {
	var out []WholeRange
	for _, m := range columnRange.FindAllStringSubmatchIndex(formula, -1) {
		if !bounded(formula, m[0], m[1]) || m[9] > m[8] {
			continue
		}
		w := WholeRange{
			Span:        Span{Start: m[0], End: m[1]},
			Raw:         formula[m[0]:m[1]],
			Column:      true,
			StartColumn: formula[m[2]:m[3]],
			EndColumn:   formula[m[6]:m[7]],
		}
		if m[5] > m[4] {
			w.StartRow = atoi(formula[m[4]:m[5]])
		}
		out = append(out, w)
	}
	for _, m := range rowRange.FindAllStringIndex(formula, -1) {
		if !bounded(formula, m[0], m[1]) {
			continue
		}
		out = append(out, WholeRange{Span: Span{Start: m[0], End: m[1]}, Raw: formula[m[0]:m[1]]})
	}
	return out
}

// HasWholeRange reports whether formula contains any whole-column or
// whole-row range.
func HasWholeRange(formula string) bool {
	return len(WholeRanges(formula)) > 0
}

func bounded(formula string, start, end int) bool {
	if start > 0 && (isIdentByte(formula[start-1]) || formula[start-1] == ':') {
		return false
	}
	if end < len(formula) && (isIdentByte(formula[end]) || formula[end] == '(' || formula[end] == ':') {
		return false
	}
	return true
}

// BoundColumns rewrites every whole-column range as a range ending at
// lastRow: A:A becomes A1:A1000, A2:B becomes A2:B1000. Whole-row ranges
// are left alone.
func BoundColumns(formula string, lastRow int) string {
	ranges := WholeRanges(formula)
	if len(ranges) == 0 {
		return formula
	}
	var b strings.Builder
	last := 0
	for _, w := range ranges {
		if !w.Column || w.Start < last {
			continue
		}
		first := max(w.StartRow, 1)
		b.WriteString(formula[last:w.Start])
		fmt.Fprintf(&b, "%s%d:%s%d", w.StartColumn, first, w.EndColumn, max(lastRow, first))
		last = w.End
	}
	b.WriteString(formula[last:])
	return b.String()
}

// Shape renders formula with every reference replaced by its offset from
// host in R1C1 style, so formulas filled down or across share one shape.
// Absolute parts stay absolute.
func Shape(formula string, host sheet.CellRef) string {
	refs := ExtractReferences(formula)
	if len(refs) == 0 {
		return strings.ToUpper(formula)
	}
	var b strings.Builder
	last := 0
	for _, r := range refs {
		b.WriteString(strings.ToUpper(formula[last:r.Start]))
		if r.CrossSheet {
			b.WriteString(r.Sheet)
			b.WriteByte('!')
		}
		b.WriteString(relative(r.Raw, r.Cell(), host))
		if r.IsRange {
			b.WriteByte(':')
			end := sheet.CellRef{Col: r.EndColumn, Row: r.EndRow}
			b.WriteString(relative(r.Raw[strings.LastIndex(r.Raw, ":")+1:], end, host))
		}
		last = r.End
	}
	b.WriteString(strings.ToUpper(formula[last:]))
	return b.String()
}

func relative(raw string, c, host sheet.CellRef) string {
	if i := strings.LastIndex(raw, "!"); i >= 0 {
		raw = raw[i+1:]
	}
	if i := strings.Index(raw, ":"); i >= 0 {
		raw = raw[:i]
	}
	colAbs := strings.HasPrefix(raw, "$")
	rowAbs := strings.Count(raw, "$") == 2 || (!colAbs && strings.Contains(raw, "$"))

	var b strings.Builder
	if rowAbs {
		fmt.Fprintf(&b, "R%d", c.Row)
	} else {
		fmt.Fprintf(&b, "R[%d]", c.Row-host.Row)
	}
	if colAbs {
		fmt.Fprintf(&b, "C%d", c.Col)
	} else {
		fmt.Fprintf(&b, "C[%d]", c.Col-host.Col)
	}
	return b.String()
}
