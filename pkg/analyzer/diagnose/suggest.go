package diagnose

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/panbanda/formulint/pkg/formula"
	"github.com/panbanda/formulint/pkg/sheet"
)

var xlfnPrefix = regexp.MustCompile(`(?i)_xl(fn|ws)\.`)

func rewriteXlfn(f string) []Suggestion {
	return []Suggestion{{
		Description: "Remove the _xlfn. prefix",
		Formula:     xlfnPrefix.ReplaceAllString(f, ""),
	}}
}

func rewriteRename(to, description string) func(formula.Call, string) []Suggestion {
	return func(call formula.Call, f string) []Suggestion {
		return []Suggestion{{Description: description, Formula: call.Replace(f, to)}}
	}
}

// aggregateFunctions maps AGGREGATE function numbers above 11 to the plain
// function taking the same trailing arguments.
var aggregateFunctions = map[int]string{
	12: "MEDIAN",
	13: "MODE.SNGL",
	14: "LARGE",
	15: "SMALL",
	16: "PERCENTILE.INC",
	17: "QUARTILE.INC",
	18: "PERCENTILE.EXC",
	19: "QUARTILE.EXC",
}

// rewriteAggregate turns AGGREGATE(fn, options, refs...) into SUBTOTAL for
// fn 1-11, using the 101-111 variants when the options ignore hidden rows.
// Other function numbers map to the plain function. The options argument
// is dropped.
func rewriteAggregate(call formula.Call, f string) []Suggestion {
	args, start, end, ok := call.Args(f)
	if ok && len(args) >= 3 {
		fn, fnErr := strconv.Atoi(args[0])
		opt, optErr := strconv.Atoi(args[1])
		rest := strings.Join(args[2:], ", ")
		switch {
		case fnErr == nil && fn >= 1 && fn <= 11:
			if optErr == nil && opt%2 == 1 && opt <= 7 {
				fn += 100
			}
			return []Suggestion{{
				Description: "Use SUBTOTAL, which covers the same function numbers",
				Formula:     f[:start] + fmt.Sprintf("SUBTOTAL(%d, %s)", fn, rest) + f[end+1:],
			}}
		case fnErr == nil && aggregateFunctions[fn] != "":
			name := aggregateFunctions[fn]
			return []Suggestion{{
				Description: fmt.Sprintf("Call %s directly", name),
				Formula:     f[:start] + fmt.Sprintf("%s(%s)", name, rest) + f[end+1:],
			}}
		}
	}
	return []Suggestion{{
		Description: "Replace AGGREGATE with SUBTOTAL and drop the options argument",
		Formula:     call.Replace(f, "SUBTOTAL"),
	}}
}

// rewriteUnwrap replaces a call with its first argument.
func rewriteUnwrap(call formula.Call, f string) []Suggestion {
	args, start, end, ok := call.Args(f)
	if !ok || len(args) == 0 {
		return nil
	}
	return []Suggestion{{
		Description: fmt.Sprintf("Use the referenced text directly instead of %s", call.Name()),
		Formula:     f[:start] + args[0] + f[end+1:],
	}}
}

func errorTokenSuggestions(token, f string) []Suggestion {
	switch token {
	case "#REF!":
		return []Suggestion{{
			Description: "Replace #REF! with a valid cell reference",
			Formula:     strings.ReplaceAll(f, "#REF!", placeholderRef),
		}}
	case "#VALUE!":
		return []Suggestion{{
			Description: "Wrap the formula in IFERROR to handle the wrong argument type",
			Formula:     wrapIferror(f),
		}}
	case "#NAME?":
		return nameSuggestions(f)
	}
	return nil
}

func wrapIferror(f string) string {
	return fmt.Sprintf(`=IFERROR(%s, "")`, strings.TrimPrefix(f, formula.Marker))
}

type nameFix struct{ name, fix string }

// nameFixes pairs every unknown function name with its closest known
// function, skipping names with no close match.
func nameFixes(f string) []nameFix {
	var out []nameFix
	seen := make(map[string]bool)
	for _, name := range unknownFunctions(f) {
		if seen[name] {
			continue
		}
		seen[name] = true
		if fix, ok := correctName(name); ok {
			out = append(out, nameFix{name: name, fix: fix})
		}
	}
	return out
}

func nameSuggestions(f string) []Suggestion {
	var out []Suggestion
	for _, nf := range nameFixes(f) {
		out = append(out, Suggestion{
			Description: fmt.Sprintf("Did you mean %s instead of %s?", nf.fix, nf.name),
			Formula:     formula.NewCall(nf.name).Replace(f, nf.fix),
		})
	}
	return out
}

func unknownFunctions(f string) []string {
	var out []string
	for _, name := range formula.Functions(f) {
		if !formula.IsKnownFunction(name) && !isDeprecatedName(name) && !strings.Contains(name, "_XL") {
			out = append(out, name)
		}
	}
	return out
}

func isDeprecatedName(name string) bool {
	for _, r := range deprecatedRules {
		if r.call.Name() == name {
			return true
		}
	}
	return false
}

// correctName looks a misspelt function up in the typo table, then ranks
// known functions by edit distance. Only close matches are accepted.
func correctName(name string) (string, bool) {
	upper := strings.ToUpper(name)
	for _, t := range nameTypos {
		if t.typo == upper {
			return t.fix, true
		}
	}

	limit := 1
	if len(upper) >= 8 {
		limit = 2
	}

	ranks := fuzzy.RankFindFold(upper, formula.KnownFunctions)
	sort.Sort(ranks)
	if len(ranks) > 0 && ranks[0].Distance <= limit {
		return ranks[0].Target, true
	}

	best, bestDist := "", limit+1
	for _, known := range formula.KnownFunctions {
		if d := fuzzy.LevenshteinDistance(upper, known); d < bestDist {
			best, bestDist = known, d
		}
	}
	return best, best != ""
}

// flattenIfs rewrites an else-chain IF(c1, v1, IF(c2, v2, ...)) as
// IFS(c1, v1, c2, v2, ..., TRUE, else). ok is false when the outermost IF
// is not such a chain.
func flattenIfs(f string) (string, bool) {
	args, start, end, ok := ifCall.Args(f)
	if !ok || len(args) < 2 {
		return "", false
	}

	var pairs []string
	links := 0
	for {
		pairs = append(pairs, args[0], args[1])
		if len(args) < 3 {
			break
		}
		next := args[2]
		inner, istart, iend, iok := ifCall.Args(next)
		if !iok || istart != 0 || iend != len(next)-1 || len(inner) < 2 {
			pairs = append(pairs, "TRUE", next)
			break
		}
		args = inner
		links++
	}
	if links == 0 {
		return "", false
	}
	return f[:start] + "IFS(" + strings.Join(pairs, ", ") + ")" + f[end+1:], true
}

// removeSelfReferences deletes every single-cell reference to host along
// with one adjoining operator or separator. An emptied formula becomes =0.
func removeSelfReferences(f string, host sheet.CellRef) string {
	refs := formula.ExtractReferences(f)
	out := f
	for i := len(refs) - 1; i >= 0; i-- {
		r := refs[i]
		if r.IsRange || r.CrossSheet || r.Cell() != host {
			continue
		}
		out = cutToken(out, r.Start, r.End)
	}
	body := strings.TrimSpace(strings.TrimPrefix(out, formula.Marker))
	if strings.Trim(body, "+-*/&^ ") == "" {
		return formula.Marker + "0"
	}
	return formula.Marker + body
}

func isOperator(b byte) bool {
	return strings.IndexByte("+-*/&^", b) >= 0
}

func cutToken(s string, start, end int) string {
	left := start
	for left > 0 && s[left-1] == ' ' {
		left--
	}
	right := end
	for right < len(s) && s[right] == ' ' {
		right++
	}

	switch {
	case left > 0 && isOperator(s[left-1]):
		return s[:left-1] + s[end:]
	case right < len(s) && (isOperator(s[right]) || s[right] == ','):
		right++
		for right < len(s) && s[right] == ' ' {
			right++
		}
		return s[:start] + s[right:]
	case left > 0 && s[left-1] == ',':
		return s[:left-1] + s[end:]
	default:
		return s[:start] + s[end:]
	}
}

// balanceLeading inserts one "(" just after the formula marker, or at the
// very start when the unmatched ")" precedes the marker.
func balanceLeading(f string, firstNegative int) string {
	if i := strings.Index(f, formula.Marker); i >= 0 && i < firstNegative {
		return f[:i+1] + "(" + f[i+1:]
	}
	return "(" + f
}
