package output

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/formulint/internal/service/engine"
	"github.com/panbanda/formulint/pkg/analyzer/depgraph"
	"github.com/panbanda/formulint/pkg/analyzer/diagnose"
	"github.com/panbanda/formulint/pkg/analyzer/perfscore"
	"github.com/panbanda/formulint/pkg/sheet"
)

func memCSV(t *testing.T, path, content string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	return fs
}

func analyzed(t *testing.T) *diagnose.AnalysisResult {
	t.Helper()
	acc := sheet.NewMemoryFromMap(10, 5, map[string]string{
		"A1": "=A1+1",
		"B1": "=NOW()",
		"B2": "=NOW()",
		"C1": "=SUM(A1:A3)",
	})
	res, err := diagnose.New().Analyze(context.Background(), acc, diagnose.SheetScope())
	require.NoError(t, err)
	return res
}

func TestAnalysisView(t *testing.T) {
	v := &AnalysisView{Title: "Sheet1", Result: analyzed(t)}

	var buf bytes.Buffer
	require.NoError(t, v.RenderText(&buf, false))
	text := buf.String()
	assert.Contains(t, text, "references its own cell")
	assert.Contains(t, text, "volatile_function")
	assert.Contains(t, text, "4 formulas")

	buf.Reset()
	require.NoError(t, v.RenderMarkdown(&buf))
	assert.Contains(t, buf.String(), "| Cell | Severity | Kind | Message | Fix |")

	buf.Reset()
	require.NoError(t, NewWriterFormatter(FormatJSON, &buf, false).Output(v))
	var decoded diagnose.AnalysisResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 4, decoded.TotalFormulas)
}

func TestAnalysisView_Grouped(t *testing.T) {
	v := &AnalysisView{Title: "Sheet1", Result: analyzed(t), Grouped: true}

	var buf bytes.Buffer
	require.NoError(t, v.RenderMarkdown(&buf))
	md := buf.String()
	assert.Contains(t, md, "| Count | Severity | Kind | Message | Cells |")
	assert.Contains(t, md, "B1, B2")
}

func TestAnalysisView_Clean(t *testing.T) {
	r := diagnose.NewAnalysisResult("sheet")
	r.AddCell(diagnose.CellAnalysis{Cell: "A1", Formula: "=1"})

	var buf bytes.Buffer
	require.NoError(t, (&AnalysisView{Title: "Totals", Result: r}).RenderText(&buf, false))
	assert.Equal(t, "Totals: 1 formula(s), no issues found\n", buf.String())
}

func TestAnalysisView_HTML(t *testing.T) {
	v := &AnalysisView{Title: "Sheet1", Result: analyzed(t)}

	var buf bytes.Buffer
	require.NoError(t, NewWriterFormatter(FormatHTML, &buf, false).Output(v))
	assert.Contains(t, buf.String(), "<!DOCTYPE html>")
	assert.Contains(t, buf.String(), "<h2>Sheet1</h2>")
}

func TestWorkbookView(t *testing.T) {
	total := diagnose.NewAnalysisResult("workbook")
	first := analyzed(t)
	total.Merge(first)
	v := &WorkbookView{
		Title: "budget.xlsx",
		Result: &engine.WorkbookResult{
			GeneratedAt: time.Now(),
			Sheets: []engine.SheetReport{
				{Name: "Totals", Result: first},
				{Name: "Blank", Skipped: true},
				{Name: "Broken", Error: "sheet Broken: corrupt"},
			},
			Total: total,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, v.RenderText(&buf, false))
	text := buf.String()
	assert.Contains(t, text, "budget.xlsx")
	assert.Contains(t, text, "skipped")
	assert.Contains(t, text, "failed")
	assert.Contains(t, text, "sheet Broken: corrupt")

	buf.Reset()
	require.NoError(t, NewWriterFormatter(FormatHTML, &buf, false).Output(v))
	assert.Contains(t, buf.String(), "Empty sheet, skipped.")
}

func TestWorkbookView_FromEngine(t *testing.T) {
	e := engine.New(nil, engine.WithLogger(slog.New(slog.DiscardHandler)))
	wb, err := sheet.OpenCSVWorkbook(memCSV(t, "/book.csv", "=A1,2\n=NOW(),\n"), "/book.csv")
	require.NoError(t, err)

	resp := e.AnalyzeWorkbook(context.Background(), wb)
	require.True(t, resp.Success, resp.Error)

	var buf bytes.Buffer
	require.NoError(t, (&WorkbookView{Title: "book.csv", Result: resp.Data}).RenderMarkdown(&buf))
	assert.Contains(t, buf.String(), "| book | 2 |")
}

func TestScoreView(t *testing.T) {
	rep := perfscore.New().Score("=SUM(A:A)+NOW()")
	v := &ScoreView{Report: rep}

	var buf bytes.Buffer
	require.NoError(t, v.RenderText(&buf, false))
	text := buf.String()
	assert.Contains(t, text, "Score: 75/100 (grade B)")
	assert.Contains(t, text, "whole_range")
	assert.Contains(t, text, "+15")

	buf.Reset()
	require.NoError(t, (&ScoreView{Report: perfscore.New().Score("=A1")}).RenderMarkdown(&buf))
	assert.Equal(t, "`=A1`\n\n**Score: 100/100 (grade A)**\n\n", buf.String())
}

func TestGraphView(t *testing.T) {
	acc := sheet.NewMemoryFromMap(5, 5, map[string]string{
		"A1": "=B1",
		"B1": "=A1",
		"C1": "=A1+B1",
	})
	a, err := depgraph.New().Analyze(context.Background(), acc)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, (&GraphView{Title: "Sheet1", Analysis: a, Top: 2}).RenderText(&buf, false))
	text := buf.String()
	assert.Contains(t, text, "1 cycle(s) covering 2 cell(s)")
	assert.Contains(t, text, "A1 -> B1")
	assert.Contains(t, text, "Key cells")
}
