// Package formula extracts structure from spreadsheet formula text without
// evaluating it: cell references, function calls, parenthesis nesting and
// whole-column ranges.
package formula

import (
	"regexp"
	"strings"

	"github.com/panbanda/formulint/pkg/sheet"
)

// Marker prefixes every formula cell.
const Marker = "="

// IsFormula reports whether cell text is a formula.
func IsFormula(text string) bool {
	return strings.HasPrefix(text, Marker)
}

// Reference is a cell or range pointer found in formula text.
type Reference struct {
	Raw        string `json:"raw"`
	Sheet      string `json:"sheet,omitempty"`
	CrossSheet bool   `json:"cross_sheet,omitempty"`
	Column     int    `json:"column"`
	Row        int    `json:"row"`
	IsRange    bool   `json:"is_range,omitempty"`
	EndColumn  int    `json:"end_column,omitempty"`
	EndRow     int    `json:"end_row,omitempty"`

	// Byte offsets of Raw within the formula.
	Start int `json:"start"`
	End   int `json:"end"`
}

// Cell returns the first (or only) cell of the reference.
func (r Reference) Cell() sheet.CellRef {
	return sheet.CellRef{Col: r.Column, Row: r.Row}
}

// Range returns the covered rectangle; a single cell yields a 1x1 range.
func (r Reference) Range() sheet.Range {
	if !r.IsRange {
		return sheet.Range{Start: r.Cell(), End: r.Cell()}
	}
	return sheet.Range{Start: r.Cell(), End: sheet.CellRef{Col: r.EndColumn, Row: r.EndRow}}.Normalize()
}

// Key is the address without absolute markers, sheet-qualified when the
// reference points at another sheet. Ranges key on their first cell.
func (r Reference) Key() string {
	if r.CrossSheet {
		return r.Sheet + "!" + r.Cell().String()
	}
	return r.Cell().String()
}

var refPattern = regexp.MustCompile(
	`(?:('[^']+'|[A-Za-z_][A-Za-z0-9_.]*)!)?\$?([A-Z]+)\$?([0-9]+)(?::\$?([A-Z]+)\$?([0-9]+))?`,
)

// ExtractReferences returns every cell or range token in formula in order
// of appearance. Duplicates are kept. Tokens directly followed by "(" are
// function names (LOG10, ATAN2) and are skipped, as are tokens glued to a
// preceding identifier character. No bounds checking is done here.
func ExtractReferences(formula string) []Reference {
	matches := refPattern.FindAllStringSubmatchIndex(formula, -1)
	refs := make([]Reference, 0, len(matches))
	for _, m := range matches {
		start, end := m[0], m[1]
		if end < len(formula) && formula[end] == '(' {
			continue
		}
		hasSheet := m[2] >= 0
		if !hasSheet && start > 0 && isIdentByte(formula[start-1]) {
			continue
		}
		if end < len(formula) && isIdentByte(formula[end]) {
			continue
		}

		ref := Reference{
			Raw:    formula[start:end],
			Column: sheet.ColumnNumber(formula[m[4]:m[5]]),
			Row:    atoi(formula[m[6]:m[7]]),
			Start:  start,
			End:    end,
		}
		if hasSheet {
			ref.Sheet = strings.Trim(formula[m[2]:m[3]], "'")
			ref.CrossSheet = true
		}
		if m[8] >= 0 {
			ref.IsRange = true
			ref.EndColumn = sheet.ColumnNumber(formula[m[8]:m[9]])
			ref.EndRow = atoi(formula[m[10]:m[11]])
		}
		refs = append(refs, ref)
	}
	return refs
}

func isIdentByte(b byte) bool {
	return b == '_' || b == '.' ||
		(b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}

// atoi parses a run of ASCII digits, saturating instead of overflowing.
func atoi(digits string) int {
	const limit = int(^uint(0)>>1) / 10
	n := 0
	for i := 0; i < len(digits); i++ {
		if n > limit {
			return int(^uint(0) >> 1)
		}
		n = n*10 + int(digits[i]-'0')
	}
	return n
}
