// Package diagnose runs the formula rule pipeline over cells, ranges and
// sheets and aggregates the findings.
package diagnose

import (
	"context"

	"github.com/panbanda/formulint/pkg/analyzer"
	"github.com/panbanda/formulint/pkg/sheet"
)

// DefaultChunkRows is the number of rows a sheet scan reads per grid fetch.
const DefaultChunkRows = 500

// Target is the spreadsheet application formulas must run in.
type Target string

const (
	// TargetSheets reports Excel-only constructs as incompatibilities.
	TargetSheets Target = "sheets"
	// TargetExcel skips the compatibility rules.
	TargetExcel Target = "excel"
)

// Analyzer runs the rule pipeline.
// This analyzer is safe for concurrent use.
type Analyzer struct {
	thresholds Thresholds
	maxDepth   int
	chunkRows  int
	target     Target
}

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithThresholds sets custom performance thresholds.
func WithThresholds(thresholds Thresholds) Option {
	return func(a *Analyzer) {
		a.thresholds = thresholds
	}
}

// WithMaxDepth sets how many intermediate formulas the circular check
// follows. Zero limits it to references that point straight back.
func WithMaxDepth(depth int) Option {
	return func(a *Analyzer) {
		a.maxDepth = depth
	}
}

// WithTarget sets the application formulas are checked against.
func WithTarget(t Target) Option {
	return func(a *Analyzer) {
		a.target = t
	}
}

// WithChunkRows sets the number of rows fetched per grid read.
func WithChunkRows(rows int) Option {
	return func(a *Analyzer) {
		a.chunkRows = rows
	}
}

// New creates a new diagnostic analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		thresholds: DefaultThresholds(),
		maxDepth:   DefaultMaxDepth,
		chunkRows:  DefaultChunkRows,
		target:     TargetSheets,
	}
	for _, opt := range opts {
		opt(a)
	}

	defaults := DefaultThresholds()
	if a.thresholds.InlineVolatileLength <= 0 {
		a.thresholds.InlineVolatileLength = defaults.InlineVolatileLength
	}
	if a.thresholds.NestedIfLimit <= 0 {
		a.thresholds.NestedIfLimit = defaults.NestedIfLimit
	}
	if a.thresholds.BoundedRowSpan <= 0 {
		a.thresholds.BoundedRowSpan = defaults.BoundedRowSpan
	}
	if a.maxDepth < 0 {
		a.maxDepth = DefaultMaxDepth
	}
	if a.chunkRows <= 0 {
		a.chunkRows = DefaultChunkRows
	}
	if a.target != TargetExcel {
		a.target = TargetSheets
	}
	return a
}

// Thresholds returns the thresholds in effect.
func (a *Analyzer) Thresholds() Thresholds { return a.thresholds }

// MaxDepth returns the circular check traversal bound.
func (a *Analyzer) MaxDepth() int { return a.maxDepth }

// CheckCircular runs the circular check with the analyzer's depth bound.
func (a *Analyzer) CheckCircular(ctx context.Context, f, cell string, acc sheet.Accessor) *Diagnostic {
	return CheckCircular(ctx, f, cell, acc, a.maxDepth)
}

// AnalyzeFormula runs every check on one formula in pipeline order and
// keeps every diagnostic produced.
func (a *Analyzer) AnalyzeFormula(ctx context.Context, acc sheet.Accessor, bounds sheet.Bounds, cell, f string) CellAnalysis {
	c := CellAnalysis{Cell: cell, Formula: f, Issues: make([]Diagnostic, 0)}
	c.add(checkKnownErrors(f, cell, a.target == TargetSheets))
	c.add(a.CheckCircular(ctx, f, cell, acc))
	c.add(CheckBounds(f, cell, bounds))
	c.add(CheckDeprecated(f, cell))
	c.add(a.CheckPerformanceInline(f, cell))
	c.add(CheckSyntax(f, cell))
	c.add(CheckVolatile(f, cell))
	return c
}

// Analyze scans the whole of scope in one pass. It implements
// analyzer.SheetAnalyzer when bound to a scope with ForScope.
func (a *Analyzer) Analyze(ctx context.Context, acc sheet.Accessor, scope Scope) (*AnalysisResult, error) {
	s, err := a.NewScan(ctx, acc, scope)
	if err != nil {
		return nil, err
	}
	for !s.Done() {
		if _, err := s.Next(ctx, 0); err != nil {
			return nil, err
		}
	}
	return s.Result(), nil
}

// ForScope binds a scope, yielding a sheet analyzer usable with
// analyzer.MapSheets.
func (a *Analyzer) ForScope(scope Scope) analyzer.SheetAnalyzer[*AnalysisResult] {
	return scoped{a: a, scope: scope}
}

type scoped struct {
	a     *Analyzer
	scope Scope
}

func (s scoped) Analyze(ctx context.Context, acc sheet.Accessor) (*AnalysisResult, error) {
	return s.a.Analyze(ctx, acc, s.scope)
}
