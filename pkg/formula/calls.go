package formula

import (
	"regexp"
	"strings"

	"github.com/xuri/efp"
)

// Call matches invocations of one spreadsheet function by name. A match
// requires the name to be followed directly by "(" and not preceded by an
// identifier character, so STDEV does not match STDEV.S( or _xlfn.STDEV(.
type Call struct {
	name string
	re   *regexp.Regexp
}

// NewCall builds a matcher for name (case-insensitive).
func NewCall(name string) Call {
	return Call{
		name: strings.ToUpper(name),
		re:   regexp.MustCompile(`(?i)` + regexp.QuoteMeta(name) + `\(`),
	}
}

// Name returns the upper-cased function name.
func (c Call) Name() string { return c.name }

// indexes returns the byte offsets of every accepted match.
func (c Call) indexes(formula string) [][]int {
	var out [][]int
	for _, m := range c.re.FindAllStringIndex(formula, -1) {
		if m[0] > 0 && isIdentByte(formula[m[0]-1]) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// In reports whether formula calls the function.
func (c Call) In(formula string) bool {
	return len(c.indexes(formula)) > 0
}

// Count returns the number of opening calls.
func (c Call) Count(formula string) int {
	return len(c.indexes(formula))
}

// Index returns the offset of the first call, or -1.
func (c Call) Index(formula string) int {
	idx := c.indexes(formula)
	if len(idx) == 0 {
		return -1
	}
	return idx[0][0]
}

// Replace substitutes every call's name with repl, keeping the "(".
func (c Call) Replace(formula, repl string) string {
	idx := c.indexes(formula)
	if len(idx) == 0 {
		return formula
	}
	var b strings.Builder
	last := 0
	for _, m := range idx {
		b.WriteString(formula[last:m[0]])
		b.WriteString(repl)
		b.WriteByte('(')
		last = m[1]
	}
	b.WriteString(formula[last:])
	return b.String()
}

// Args returns the raw argument text of the first call and the offsets of
// the call's name start and closing parenthesis. ok is false when the call
// is missing or unterminated. Commas nested in inner calls or quoted text do
// not split arguments.
func (c Call) Args(formula string) (args []string, start, end int, ok bool) {
	idx := c.indexes(formula)
	if len(idx) == 0 {
		return nil, -1, -1, false
	}
	start = idx[0][0]
	depth := 0
	inQuote := false
	argStart := idx[0][1]
	for i := idx[0][1]; i < len(formula); i++ {
		switch ch := formula[i]; {
		case ch == '"':
			inQuote = !inQuote
		case inQuote:
		case ch == '(' || ch == '{':
			depth++
		case ch == ')' && depth == 0:
			args = append(args, strings.TrimSpace(formula[argStart:i]))
			return args, start, i, true
		case ch == ')' || ch == '}':
			depth--
		case (ch == ',' || ch == ';') && depth == 0:
			args = append(args, strings.TrimSpace(formula[argStart:i]))
			argStart = i + 1
		}
	}
	return nil, start, -1, false
}

// Functions lists the function names called in formula, upper-cased, in
// order of appearance with duplicates kept. Tokenizing is delegated to efp,
// the Excel formula parser used by excelize.
func Functions(formula string) (names []string) {
	defer func() {
		if recover() != nil {
			names = nil
		}
	}()
	ps := efp.ExcelParser()
	for _, tok := range ps.Parse(strings.TrimPrefix(formula, Marker)) {
		if tok.TType == efp.TokenTypeFunction && tok.TSubType == efp.TokenSubTypeStart {
			names = append(names, strings.ToUpper(tok.TValue))
		}
	}
	return names
}
