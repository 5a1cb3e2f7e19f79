// Package engine is the host-facing entry point of the formula engine. Every
// operation returns an envelope instead of an error and never panics.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/panbanda/formulint/pkg/analyzer/diagnose"
	"github.com/panbanda/formulint/pkg/analyzer/perfscore"
	"github.com/panbanda/formulint/pkg/config"
	"github.com/panbanda/formulint/pkg/sheet"
)

// DefaultMemoSize is the number of score reports kept per engine.
const DefaultMemoSize = 1024

// Response is the outcome of an analysis call.
type Response struct {
	Success bool                     `json:"success"`
	Data    *diagnose.AnalysisResult `json:"data,omitempty"`
	Error   string                   `json:"error,omitempty"`
}

// ScoreResponse is the outcome of a scoring call.
type ScoreResponse struct {
	Success  bool              `json:"success"`
	Analysis *perfscore.Report `json:"analysis,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// FixResult is the outcome of writing a replacement formula.
type FixResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Engine binds the analyzers to one sheet.
type Engine struct {
	acc      sheet.Accessor
	diag     *diagnose.Analyzer
	scorer   *perfscore.Scorer
	memo     *lru.Cache[string, perfscore.Report]
	logger   *slog.Logger
	memoSize int
	workers  int
	diagOpts []diagnose.Option
	perfOpts []perfscore.Option
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig applies the analysis and threshold sections of cfg.
func WithConfig(cfg *config.Config) Option {
	return func(e *Engine) {
		if cfg == nil {
			return
		}
		e.diagOpts = append(e.diagOpts, DiagnoseOptions(cfg)...)
		e.perfOpts = append(e.perfOpts, ScoreOptions(cfg)...)
		e.workers = cfg.Analysis.Workers
	}
}

// WithDiagnoseOptions passes options straight to the rule pipeline.
func WithDiagnoseOptions(opts ...diagnose.Option) Option {
	return func(e *Engine) {
		e.diagOpts = append(e.diagOpts, opts...)
	}
}

// WithScoreOptions passes options straight to the scorer.
func WithScoreOptions(opts ...perfscore.Option) Option {
	return func(e *Engine) {
		e.perfOpts = append(e.perfOpts, opts...)
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithMemoSize sets how many score reports are memoized.
func WithMemoSize(n int) Option {
	return func(e *Engine) {
		e.memoSize = n
	}
}

// WithWorkers bounds the sheets analyzed at once by AnalyzeWorkbook.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// DiagnoseOptions maps configuration onto rule pipeline options.
func DiagnoseOptions(cfg *config.Config) []diagnose.Option {
	return []diagnose.Option{
		diagnose.WithMaxDepth(cfg.Analysis.MaxDepth),
		diagnose.WithChunkRows(cfg.Analysis.ChunkRows),
		diagnose.WithTarget(diagnose.Target(cfg.Analysis.Target)),
		diagnose.WithThresholds(diagnose.Thresholds{
			InlineVolatileLength: cfg.Thresholds.InlineVolatileLength,
			NestedIfLimit:        cfg.Thresholds.NestedIfLimit,
			BoundedRowSpan:       cfg.Thresholds.BoundedRowSpan,
		}),
	}
}

// ScoreOptions maps configuration onto scorer options.
func ScoreOptions(cfg *config.Config) []perfscore.Option {
	return []perfscore.Option{
		perfscore.WithThresholds(perfscore.Thresholds{
			Length:       cfg.Thresholds.ScoreLength,
			NestingDepth: cfg.Thresholds.ScoreNestingDepth,
		}),
	}
}

// New creates an engine over acc. acc may be nil for an engine that only
// scores formulas or analyzes workbooks.
func New(acc sheet.Accessor, opts ...Option) *Engine {
	e := &Engine{
		acc:      acc,
		logger:   slog.Default(),
		memoSize: DefaultMemoSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	if e.memoSize <= 0 {
		e.memoSize = DefaultMemoSize
	}

	e.diag = diagnose.New(e.diagOpts...)
	e.scorer = perfscore.New(e.perfOpts...)
	// lru.New only fails for a non-positive size.
	e.memo, _ = lru.New[string, perfscore.Report](e.memoSize)
	return e
}

// Analyzer returns the rule pipeline the engine runs.
func (e *Engine) Analyzer() *diagnose.Analyzer { return e.diag }

var errNoSheet = errors.New("no sheet attached")

// guard runs fn, turning a panic into an error.
func (e *Engine) guard(op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("recovered panic", "op", op, "panic", r)
			err = fmt.Errorf("%s: internal error: %v", op, r)
		}
	}()
	return fn()
}

func (e *Engine) analyze(ctx context.Context, op string, scope diagnose.Scope) Response {
	var result *diagnose.AnalysisResult
	err := e.guard(op, func() error {
		if e.acc == nil {
			return errNoSheet
		}
		e.logger.Debug("analyzing", "op", op, "scope", scope.String())
		var err error
		result, err = e.diag.Analyze(ctx, e.acc, scope)
		return err
	})
	if err != nil {
		e.logger.Warn("analysis failed", "op", op, "scope", scope.String(), "error", err)
		return Response{Error: err.Error()}
	}
	e.logger.Debug("analysis complete",
		"op", op,
		"scope", scope.String(),
		"formulas", result.TotalFormulas,
		"errors", result.ErrorCount,
		"warnings", result.WarningCount,
		"info", result.InfoCount,
	)
	return Response{Success: true, Data: result}
}

// AnalyzeCell runs the pipeline on one cell.
func (e *Engine) AnalyzeCell(ctx context.Context, ref string) Response {
	c, err := sheet.ParseCellRef(strings.TrimSpace(ref))
	if err != nil {
		return Response{Error: err.Error()}
	}
	return e.analyze(ctx, "analyze_cell", diagnose.CellScope(c))
}

// AnalyzeRange runs the pipeline on every cell of an A1 range.
func (e *Engine) AnalyzeRange(ctx context.Context, rng string) Response {
	r, err := sheet.ParseRange(strings.TrimSpace(rng))
	if err != nil {
		return Response{Error: err.Error()}
	}
	return e.analyze(ctx, "analyze_range", diagnose.RangeScope(r))
}

// AnalyzeSheet runs the pipeline on the whole sheet.
func (e *Engine) AnalyzeSheet(ctx context.Context) Response {
	return e.analyze(ctx, "analyze_sheet", diagnose.SheetScope())
}

// ScorePerformance rates a formula. Reports are memoized by formula text.
func (e *Engine) ScorePerformance(f string) ScoreResponse {
	if strings.TrimSpace(f) == "" {
		return ScoreResponse{Error: "formula is empty"}
	}
	if r, ok := e.memo.Get(f); ok {
		return ScoreResponse{Success: true, Analysis: &r}
	}

	var report perfscore.Report
	err := e.guard("score_formula", func() error {
		report = e.scorer.Score(f)
		return nil
	})
	if err != nil {
		return ScoreResponse{Error: err.Error()}
	}
	e.memo.Add(f, report)
	e.logger.Debug("scored formula", "score", report.Score, "grade", report.Grade)
	return ScoreResponse{Success: true, Analysis: &report}
}

// ApplyFix writes formula into ref. Nothing is validated beyond the
// address; the caller is expected to have confirmed the fix.
func (e *Engine) ApplyFix(ctx context.Context, ref, formula string) FixResult {
	err := e.guard("apply_fix", func() error {
		if e.acc == nil {
			return errNoSheet
		}
		c, err := sheet.ParseCellRef(strings.TrimSpace(ref))
		if err != nil {
			return err
		}
		if err := e.acc.WriteFormula(ctx, c.String(), formula); err != nil {
			return fmt.Errorf("writing %s: %w", c, err)
		}
		return nil
	})
	if err != nil {
		e.logger.Warn("fix not applied", "cell", ref, "error", err)
		return FixResult{Error: err.Error()}
	}
	e.logger.Info("fix applied", "cell", ref)
	return FixResult{Success: true}
}
