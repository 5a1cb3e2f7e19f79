package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/panbanda/formulint/pkg/analyzer"
	"github.com/panbanda/formulint/pkg/analyzer/diagnose"
	"github.com/panbanda/formulint/pkg/sheet"
)

// SheetReport is the outcome for one sheet of a workbook.
type SheetReport struct {
	Name    string                   `json:"name"`
	Result  *diagnose.AnalysisResult `json:"result,omitempty"`
	Skipped bool                     `json:"skipped,omitempty"`
	Error   string                   `json:"error,omitempty"`
}

// WorkbookResult combines every sheet of a workbook. Issue cells in Total
// are sheet-qualified ("Sheet1!B2").
type WorkbookResult struct {
	GeneratedAt time.Time                `json:"generated_at"`
	Sheets      []SheetReport            `json:"sheets"`
	Total       *diagnose.AnalysisResult `json:"total"`
}

// WorkbookResponse is the outcome of a workbook scan.
type WorkbookResponse struct {
	Success bool            `json:"success"`
	Data    *WorkbookResult `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// AnalyzeWorkbook scans every sheet of wb. Sheets are snapshotted one at a
// time from the backing document, then analyzed concurrently. A failing
// sheet is reported in its SheetReport and does not fail the workbook;
// empty sheets are marked skipped.
func (e *Engine) AnalyzeWorkbook(ctx context.Context, wb sheet.Workbook) WorkbookResponse {
	var res *WorkbookResult
	err := e.guard("analyze_workbook", func() error {
		var err error
		res, err = e.analyzeWorkbook(ctx, wb)
		return err
	})
	if err != nil {
		e.logger.Warn("workbook analysis failed", "error", err)
		return WorkbookResponse{Error: err.Error()}
	}
	return WorkbookResponse{Success: true, Data: res}
}

func (e *Engine) analyzeWorkbook(ctx context.Context, wb sheet.Workbook) (*WorkbookResult, error) {
	names := wb.Sheets()
	snaps := make(map[string]*sheet.Memory, len(names))
	snapErrs := make(map[string]error)
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		acc, err := wb.Sheet(name)
		if err == nil {
			snaps[name], err = sheet.Snapshot(ctx, acc)
		}
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			snapErrs[name] = fmt.Errorf("sheet %s: %w", name, err)
		}
	}
	e.logger.Debug("workbook snapshotted", "sheets", len(names), "failed", len(snapErrs))

	outcomes := analyzer.MapSheets(ctx, names, e.workers, func(ctx context.Context, name string) (*diagnose.AnalysisResult, error) {
		if err := snapErrs[name]; err != nil {
			return nil, err
		}
		return e.diag.Analyze(ctx, snaps[name], diagnose.SheetScope())
	})

	res := &WorkbookResult{
		GeneratedAt: time.Now().UTC(),
		Sheets:      make([]SheetReport, 0, len(outcomes)),
		Total:       diagnose.NewAnalysisResult("workbook"),
	}
	for _, o := range outcomes {
		rep := SheetReport{Name: o.Sheet}
		switch {
		case errors.Is(o.Err, diagnose.ErrEmptySheet):
			rep.Skipped = true
		case o.Err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			rep.Error = o.Err.Error()
		default:
			o.Result.Sheet = o.Sheet
			rep.Result = o.Result
			res.Total.Merge(qualify(o.Result, o.Sheet))
		}
		res.Sheets = append(res.Sheets, rep)
	}
	return res, nil
}

// qualify returns a copy of r whose issue cells carry the sheet name.
func qualify(r *diagnose.AnalysisResult, name string) *diagnose.AnalysisResult {
	q := *r
	prefix := QuoteSheet(name) + "!"
	q.Issues = make([]diagnose.Diagnostic, len(r.Issues))
	for i, d := range r.Issues {
		d.Cell = prefix + d.Cell
		q.Issues[i] = d
	}
	return &q
}

// QuoteSheet renders a sheet name the way formulas reference it, quoting
// names that are not plain identifiers.
func QuoteSheet(name string) string {
	plain := name != ""
	for _, r := range name {
		if !(r == '_' || r == '.' || r >= '0' && r <= '9' || r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z') {
			plain = false
			break
		}
	}
	if plain {
		return name
	}
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
