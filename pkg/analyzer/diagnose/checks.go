package diagnose

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/panbanda/formulint/pkg/formula"
	"github.com/panbanda/formulint/pkg/sheet"
)

// Each check returns at most one diagnostic, the first match within the
// check, and nil for text that is not a formula.

// CheckKnownErrors reports constructs the target engine rejects, then
// literal error tokens, then misspelt function names.
func CheckKnownErrors(f, cell string) *Diagnostic {
	return checkKnownErrors(f, cell, true)
}

func checkKnownErrors(f, cell string, compat bool) *Diagnostic {
	if !formula.IsFormula(f) {
		return nil
	}

	for _, rule := range compatRules {
		if !compat || !rule.match(f) {
			continue
		}
		return &Diagnostic{
			Kind:        KindFormulaError,
			Severity:    rule.severity,
			Message:     rule.message,
			Cell:        cell,
			Formula:     f,
			Suggestions: rule.rewrite(f),
		}
	}

	for _, tok := range errorTokens {
		idx := strings.Index(f, tok.token)
		if idx < 0 {
			continue
		}
		return &Diagnostic{
			Kind:        KindFormulaError,
			Severity:    SeverityError,
			Message:     tok.message,
			Cell:        cell,
			Formula:     f,
			Span:        &formula.Span{Start: idx, End: idx + len(tok.token)},
			Suggestions: errorTokenSuggestions(tok.token, f),
		}
	}

	// A misspelt name evaluates to #NAME? once the host recalculates.
	if fixes := nameFixes(f); len(fixes) > 0 {
		name := fixes[0].name
		d := &Diagnostic{
			Kind:        KindFormulaError,
			Severity:    SeverityError,
			Message:     fmt.Sprintf("Unknown function %s will produce #NAME?", name),
			Cell:        cell,
			Formula:     f,
			Suggestions: nameSuggestions(f),
		}
		if idx := formula.NewCall(name).Index(f); idx >= 0 {
			d.Span = &formula.Span{Start: idx, End: idx + len(name)}
		}
		return d
	}
	return nil
}

// CheckBounds reports the first same-sheet reference that falls outside
// the grid.
func CheckBounds(f, cell string, bounds sheet.Bounds) *Diagnostic {
	if !formula.IsFormula(f) {
		return nil
	}
	for _, r := range formula.ExtractReferences(f) {
		if r.CrossSheet {
			continue
		}
		col, row := r.Column, r.Row
		if r.IsRange {
			col, row = max(col, r.EndColumn), max(row, r.EndRow)
		}
		if col <= bounds.MaxCols && row <= bounds.MaxRows {
			continue
		}
		return &Diagnostic{
			Kind:     KindInvalidReference,
			Severity: SeverityWarning,
			Message: fmt.Sprintf("Reference %s is outside the sheet bounds of %d rows and %d columns",
				r.Raw, bounds.MaxRows, bounds.MaxCols),
			Cell:    cell,
			Formula: f,
			Span:    &formula.Span{Start: r.Start, End: r.End},
		}
	}
	return nil
}

// CheckDeprecated reports the first legacy function in the formula.
func CheckDeprecated(f, cell string) *Diagnostic {
	if !formula.IsFormula(f) {
		return nil
	}
	for _, rule := range deprecatedRules {
		idx := rule.call.Index(f)
		if idx < 0 {
			continue
		}
		d := &Diagnostic{
			Kind:     KindDeprecatedFunction,
			Severity: SeverityWarning,
			Message:  rule.message,
			Cell:     cell,
			Formula:  f,
			Span:     &formula.Span{Start: idx, End: idx + len(rule.call.Name())},
		}
		if rule.replacement != "" {
			d.Suggestions = []Suggestion{{
				Description: fmt.Sprintf("Replace %s with %s", rule.call.Name(), rule.replacement),
				Formula:     rule.call.Replace(f, rule.replacement),
			}}
		}
		return d
	}
	return nil
}

// CheckPerformanceInline reports the first of: ARRAYFORMULA over a whole
// column, IF nesting beyond the limit, or a volatile call in a long formula.
func (a *Analyzer) CheckPerformanceInline(f, cell string) *Diagnostic {
	if !formula.IsFormula(f) {
		return nil
	}

	if arrayFormulaCall.In(f) {
		for _, w := range formula.WholeRanges(f) {
			if !w.Column {
				continue
			}
			return &Diagnostic{
				Kind:     KindPerformance,
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("ARRAYFORMULA over the whole-column range %s evaluates every row of the sheet", w.Raw),
				Cell:     cell,
				Formula:  f,
				Span:     &formula.Span{Start: w.Start, End: w.End},
				Suggestions: []Suggestion{{
					Description: fmt.Sprintf("Limit the range to rows 1-%d", a.thresholds.BoundedRowSpan),
					Formula:     formula.BoundColumns(f, a.thresholds.BoundedRowSpan),
				}},
			}
		}
	}

	if n := ifCall.Count(f); n > a.thresholds.NestedIfLimit {
		d := &Diagnostic{
			Kind:     KindPerformance,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("Formula nests %d IF functions; deep nesting is slow and hard to read", n),
			Cell:     cell,
			Formula:  f,
		}
		if flat, ok := flattenIfs(f); ok {
			d.Suggestions = []Suggestion{{Description: "Flatten the IF chain into IFS", Formula: flat}}
		}
		return d
	}

	if len(f) > a.thresholds.InlineVolatileLength {
		for _, rule := range volatileRules {
			if idx := rule.call.Index(f); idx >= 0 {
				return &Diagnostic{
					Kind:     KindPerformance,
					Severity: SeverityWarning,
					Message: fmt.Sprintf("Long formula (%d characters) calls volatile %s and is recalculated on every edit",
						len(f), rule.call.Name()),
					Cell:    cell,
					Formula: f,
					Span:    &formula.Span{Start: idx, End: idx + len(rule.call.Name())},
				}
			}
		}
	}
	return nil
}

var missingSeparator = regexp.MustCompile(`\)\s+[A-Z]`)

// CheckSyntax validates parenthesis balance and flags a likely missing
// separator. Parentheses inside quoted text are counted like any other.
//
// Text is checked once it contains the formula marker anywhere, so a stray
// ")" typed before "=" is reported. Scans only hand it formula cells.
func CheckSyntax(f, cell string) *Diagnostic {
	if !strings.Contains(f, formula.Marker) {
		return nil
	}

	p := formula.ScanParens(f)
	switch {
	case p.FirstNegative >= 0:
		return &Diagnostic{
			Kind:     KindSyntaxError,
			Severity: SeverityError,
			Message:  fmt.Sprintf("Unmatched closing parenthesis at position %d", p.FirstNegative),
			Cell:     cell,
			Formula:  f,
			Span:     &formula.Span{Start: p.FirstNegative, End: p.FirstNegative + 1},
			Suggestions: []Suggestion{{
				Description: "Add the missing opening parenthesis",
				Formula:     balanceLeading(f, p.FirstNegative),
			}},
		}
	case p.Balance > 0:
		noun := "parenthesis"
		if p.Balance > 1 {
			noun = "parentheses"
		}
		return &Diagnostic{
			Kind:     KindSyntaxError,
			Severity: SeverityError,
			Message:  fmt.Sprintf("Missing %d closing %s", p.Balance, noun),
			Cell:     cell,
			Formula:  f,
			Span:     &formula.Span{Start: len(f), End: len(f)},
			Suggestions: []Suggestion{{
				Description: fmt.Sprintf("Append %d closing %s", p.Balance, noun),
				Formula:     f + strings.Repeat(")", p.Balance),
			}},
		}
	}

	if m := missingSeparator.FindStringIndex(f); m != nil {
		return &Diagnostic{
			Kind:     KindSyntaxError,
			Severity: SeverityWarning,
			Message:  "A closing parenthesis is followed by a name; a separator or operator may be missing",
			Cell:     cell,
			Formula:  f,
			Span:     &formula.Span{Start: m[0], End: m[1]},
		}
	}
	return nil
}

// CheckVolatile reports the first volatile function as information.
func CheckVolatile(f, cell string) *Diagnostic {
	if !formula.IsFormula(f) {
		return nil
	}
	for _, rule := range volatileRules {
		idx := rule.call.Index(f)
		if idx < 0 {
			continue
		}
		return &Diagnostic{
			Kind:     KindVolatileFunction,
			Severity: SeverityInfo,
			Message: fmt.Sprintf("%s is volatile (%s impact) and recalculates whenever the sheet changes",
				rule.call.Name(), rule.impact),
			Cell:    cell,
			Formula: f,
			Span:    &formula.Span{Start: idx, End: idx + len(rule.call.Name())},
		}
	}
	return nil
}
