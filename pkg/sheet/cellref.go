package sheet

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidRef is returned when a cell or range reference cannot be parsed.
var ErrInvalidRef = errors.New("invalid cell reference")

// maxColumnLetters caps decoding so column numbers never overflow an int.
const maxColumnLetters = 7

// CellRef identifies a single cell by 1-based column and row.
type CellRef struct {
	Col int `json:"col"`
	Row int `json:"row"`
}

// String renders the cell in A1 notation.
func (c CellRef) String() string {
	return ColumnName(c.Col) + strconv.Itoa(c.Row)
}

// ColumnNumber decodes column letters as a bijective base-26 numeral
// (A=1 .. Z=26, AA=27), most significant letter first.
// Returns 0 if letters is empty or contains anything but A-Z.
func ColumnNumber(letters string) int {
	if letters == "" {
		return 0
	}
	n := 0
	for i := 0; i < len(letters); i++ {
		ch := letters[i]
		if ch < 'A' || ch > 'Z' {
			return 0
		}
		if i >= maxColumnLetters {
			// Saturate rather than overflow; anything this wide is out of bounds anyway.
			return int(^uint(0) >> 1)
		}
		n = n*26 + int(ch-'A'+1)
	}
	return n
}

// ColumnName encodes a 1-based column number as letters.
func ColumnName(n int) string {
	if n <= 0 {
		return ""
	}
	var buf [16]byte
	i := len(buf)
	for n > 0 {
		n--
		i--
		buf[i] = byte('A' + n%26)
		n /= 26
	}
	return string(buf[i:])
}

// ParseCellRef parses A1 notation. Absolute markers ($A$1) and lowercase
// letters are accepted; sheet-qualified references are not.
func ParseCellRef(s string) (CellRef, error) {
	raw := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "$", ""))
	i := 0
	for i < len(raw) && raw[i] >= 'A' && raw[i] <= 'Z' {
		i++
	}
	if i == 0 || i == len(raw) {
		return CellRef{}, fmt.Errorf("%w: %q", ErrInvalidRef, s)
	}
	row, err := strconv.Atoi(raw[i:])
	if err != nil || row < 1 {
		return CellRef{}, fmt.Errorf("%w: %q", ErrInvalidRef, s)
	}
	return CellRef{Col: ColumnNumber(raw[:i]), Row: row}, nil
}

// MustParseCellRef is ParseCellRef for literals known to be valid.
func MustParseCellRef(s string) CellRef {
	c, err := ParseCellRef(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Range is an inclusive rectangle of cells.
type Range struct {
	Start CellRef `json:"start"`
	End   CellRef `json:"end"`
}

// NewRange builds a range from the {row, col, height, width} descriptor.
func NewRange(row, col, height, width int) Range {
	return Range{
		Start: CellRef{Col: col, Row: row},
		End:   CellRef{Col: col + width - 1, Row: row + height - 1},
	}
}

// ParseRange parses "A1:C10" or a single cell "B2".
func ParseRange(s string) (Range, error) {
	parts := strings.Split(s, ":")
	switch len(parts) {
	case 1:
		c, err := ParseCellRef(parts[0])
		if err != nil {
			return Range{}, err
		}
		return Range{Start: c, End: c}, nil
	case 2:
		a, err := ParseCellRef(parts[0])
		if err != nil {
			return Range{}, err
		}
		b, err := ParseCellRef(parts[1])
		if err != nil {
			return Range{}, err
		}
		return Range{Start: a, End: b}.Normalize(), nil
	default:
		return Range{}, fmt.Errorf("%w: %q", ErrInvalidRef, s)
	}
}

// MustParseRange is ParseRange for literals known to be valid.
func MustParseRange(s string) Range {
	r, err := ParseRange(s)
	if err != nil {
		panic(err)
	}
	return r
}

// Normalize orders the corners so Start is top-left.
func (r Range) Normalize() Range {
	if r.Start.Col > r.End.Col {
		r.Start.Col, r.End.Col = r.End.Col, r.Start.Col
	}
	if r.Start.Row > r.End.Row {
		r.Start.Row, r.End.Row = r.End.Row, r.Start.Row
	}
	return r
}

// Height returns the number of rows.
func (r Range) Height() int { return r.End.Row - r.Start.Row + 1 }

// Width returns the number of columns.
func (r Range) Width() int { return r.End.Col - r.Start.Col + 1 }

// Cells returns the number of cells covered.
func (r Range) Cells() int {
	if r.Height() <= 0 || r.Width() <= 0 {
		return 0
	}
	return r.Height() * r.Width()
}

// Contains reports whether c lies inside the range.
func (r Range) Contains(c CellRef) bool {
	return c.Col >= r.Start.Col && c.Col <= r.End.Col &&
		c.Row >= r.Start.Row && c.Row <= r.End.Row
}

// String renders the range in A1 notation, collapsing single cells.
func (r Range) String() string {
	if r.Start == r.End {
		return r.Start.String()
	}
	return r.Start.String() + ":" + r.End.String()
}

// Bounds is the size of a sheet's grid.
type Bounds struct {
	MaxRows int `json:"max_rows"`
	MaxCols int `json:"max_cols"`
}

// Empty reports whether the grid has no cells at all.
func (b Bounds) Empty() bool {
	return b.MaxRows <= 0 || b.MaxCols <= 0
}

// Contains reports whether c lies inside the grid.
func (b Bounds) Contains(c CellRef) bool {
	return c.Col >= 1 && c.Row >= 1 && c.Col <= b.MaxCols && c.Row <= b.MaxRows
}

// Range returns the whole grid as a range.
func (b Bounds) Range() Range {
	return NewRange(1, 1, b.MaxRows, b.MaxCols)
}
