package diagnose

import (
	"time"

	"github.com/panbanda/formulint/pkg/formula"
)

// Kind is the category of a diagnostic.
type Kind string

const (
	KindFormulaError       Kind = "formula_error"
	KindCircularReference  Kind = "circular_reference"
	KindInvalidReference   Kind = "invalid_reference"
	KindDeprecatedFunction Kind = "deprecated_function"
	KindPerformance        Kind = "performance"
	KindSyntaxError        Kind = "syntax_error"
	KindVolatileFunction   Kind = "volatile_function"
)

// Kinds lists every kind in pipeline order.
var Kinds = []Kind{
	KindFormulaError,
	KindCircularReference,
	KindInvalidReference,
	KindDeprecatedFunction,
	KindPerformance,
	KindSyntaxError,
	KindVolatileFunction,
}

// Severity orders diagnostics: error > warning > info.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Weight returns a numeric weight for sorting (higher = more severe).
func (s Severity) Weight() int {
	switch s {
	case SeverityError:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// Suggestion is a candidate replacement formula. It is never applied
// automatically.
type Suggestion struct {
	Description string `json:"description"`
	Formula     string `json:"formula"`
}

// Diagnostic is one finding about one formula.
type Diagnostic struct {
	Kind        Kind          `json:"kind"`
	Severity    Severity      `json:"severity"`
	Message     string        `json:"message"`
	Cell        string        `json:"cell"`
	Formula     string        `json:"formula"`
	Span        *formula.Span `json:"span,omitempty"`
	Suggestions []Suggestion  `json:"suggestions,omitempty"`
}

// CellAnalysis is the outcome of running every check on one formula.
type CellAnalysis struct {
	Cell         string       `json:"cell"`
	Formula      string       `json:"formula"`
	Issues       []Diagnostic `json:"issues"`
	ErrorCount   int          `json:"error_count"`
	WarningCount int          `json:"warning_count"`
	InfoCount    int          `json:"info_count"`
}

func (c *CellAnalysis) add(d *Diagnostic) {
	if d == nil {
		return
	}
	c.Issues = append(c.Issues, *d)
	switch d.Severity {
	case SeverityError:
		c.ErrorCount++
	case SeverityWarning:
		c.WarningCount++
	case SeverityInfo:
		c.InfoCount++
	}
}

// Worst returns the highest severity among the issues, or "" if none.
func (c CellAnalysis) Worst() Severity {
	var worst Severity
	for _, d := range c.Issues {
		if d.Severity.Weight() > worst.Weight() {
			worst = d.Severity
		}
	}
	return worst
}

// Summary breaks results down per cell and per kind.
type Summary struct {
	// Cells counted once each by their worst severity.
	ErrorCells   int          `json:"error_cells"`
	WarningCells int          `json:"warning_cells"`
	InfoCells    int          `json:"info_cells"`
	ByKind       map[Kind]int `json:"by_kind"`
}

// AnalysisResult aggregates a scan. It is complete once the scan that
// built it reports done.
type AnalysisResult struct {
	GeneratedAt   time.Time    `json:"generated_at"`
	Sheet         string       `json:"sheet,omitempty"`
	Scope         string       `json:"scope"`
	Issues        []Diagnostic `json:"issues"`
	ErrorCount    int          `json:"error_count"`
	WarningCount  int          `json:"warning_count"`
	InfoCount     int          `json:"info_count"`
	ValidCount    int          `json:"valid_count"`
	TotalFormulas int          `json:"total_formulas"`
	Summary       Summary      `json:"summary"`
}

// NewAnalysisResult creates an empty result for scope.
func NewAnalysisResult(scope string) *AnalysisResult {
	return &AnalysisResult{
		GeneratedAt: time.Now().UTC(),
		Scope:       scope,
		Issues:      make([]Diagnostic, 0),
		Summary:     Summary{ByKind: make(map[Kind]int)},
	}
}

// AddCell folds one formula's outcome into the result.
func (r *AnalysisResult) AddCell(c CellAnalysis) {
	r.TotalFormulas++
	if len(c.Issues) == 0 {
		r.ValidCount++
		return
	}

	r.Issues = append(r.Issues, c.Issues...)
	r.ErrorCount += c.ErrorCount
	r.WarningCount += c.WarningCount
	r.InfoCount += c.InfoCount
	if r.Summary.ByKind == nil {
		r.Summary.ByKind = make(map[Kind]int)
	}
	for _, d := range c.Issues {
		r.Summary.ByKind[d.Kind]++
	}

	switch c.Worst() {
	case SeverityError:
		r.Summary.ErrorCells++
	case SeverityWarning:
		r.Summary.WarningCells++
	case SeverityInfo:
		r.Summary.InfoCells++
	}
}

// Merge folds another result in, as when combining sheets of a workbook.
func (r *AnalysisResult) Merge(o *AnalysisResult) {
	if o == nil {
		return
	}
	r.Issues = append(r.Issues, o.Issues...)
	r.ErrorCount += o.ErrorCount
	r.WarningCount += o.WarningCount
	r.InfoCount += o.InfoCount
	r.ValidCount += o.ValidCount
	r.TotalFormulas += o.TotalFormulas
	r.Summary.ErrorCells += o.Summary.ErrorCells
	r.Summary.WarningCells += o.Summary.WarningCells
	r.Summary.InfoCells += o.Summary.InfoCells
	if r.Summary.ByKind == nil {
		r.Summary.ByKind = make(map[Kind]int)
	}
	for k, n := range o.Summary.ByKind {
		r.Summary.ByKind[k] += n
	}
}

// Thresholds tunes the inline performance check.
type Thresholds struct {
	// InlineVolatileLength is the formula length above which a volatile
	// call is reported as a performance warning.
	InlineVolatileLength int `json:"inline_volatile_length"`
	// NestedIfLimit is the number of IF calls tolerated before suggesting IFS.
	NestedIfLimit int `json:"nested_if_limit"`
	// BoundedRowSpan is the last row used when narrowing whole-column ranges.
	BoundedRowSpan int `json:"bounded_row_span"`
}

// DefaultThresholds returns the stock thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		InlineVolatileLength: 100,
		NestedIfLimit:        3,
		BoundedRowSpan:       1000,
	}
}
