package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/panbanda/formulint/internal/report"
	"github.com/panbanda/formulint/internal/service/engine"
	"github.com/panbanda/formulint/pkg/analyzer/depgraph"
	"github.com/panbanda/formulint/pkg/analyzer/diagnose"
	"github.com/panbanda/formulint/pkg/analyzer/perfscore"
)

// maxFixWidth bounds the suggestion column of issue tables.
const maxFixWidth = 60

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func severityCell(s diagnose.Severity, colored bool) string {
	if colored {
		return SeverityColor(string(s), string(s))
	}
	return string(s)
}

func firstFix(d diagnose.Diagnostic) string {
	if len(d.Suggestions) == 0 {
		return ""
	}
	return clip(d.Suggestions[0].Formula, maxFixWidth)
}

func countsFooter(r *diagnose.AnalysisResult) []string {
	return []string{
		fmt.Sprintf("%d formulas", r.TotalFormulas),
		fmt.Sprintf("%d valid", r.ValidCount),
		fmt.Sprintf("%d errors", r.ErrorCount),
		fmt.Sprintf("%d warnings", r.WarningCount),
		fmt.Sprintf("%d info", r.InfoCount),
	}
}

func issueTable(title string, r *diagnose.AnalysisResult, colored bool) *Table {
	rows := make([][]string, 0, len(r.Issues))
	for _, d := range r.Issues {
		rows = append(rows, []string{
			d.Cell,
			severityCell(d.Severity, colored),
			string(d.Kind),
			d.Message,
			firstFix(d),
		})
	}
	return NewTable(title, []string{"Cell", "Severity", "Kind", "Message", "Fix"}, rows, countsFooter(r), r)
}

func groupTable(title string, groups []diagnose.Group, colored bool) *Table {
	rows := make([][]string, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, []string{
			strconv.Itoa(g.Count()),
			severityCell(g.Severity, colored),
			string(g.Kind),
			g.Message,
			strings.Join(clipCells(g.Cells, 3), ", "),
		})
	}
	return NewTable(title, []string{"Count", "Severity", "Kind", "Message", "Cells"}, rows, nil, groups)
}

func clipCells(cells []string, n int) []string {
	if len(cells) <= n {
		return cells
	}
	out := append([]string(nil), cells[:n]...)
	return append(out, fmt.Sprintf("+%d more", len(cells)-n))
}

// AnalysisView renders the result of a cell, range or sheet scan.
type AnalysisView struct {
	Title  string
	Result *diagnose.AnalysisResult
	// Grouped collapses issues raised on copies of the same formula.
	Grouped bool
	Meta    report.Metadata
}

func (v *AnalysisView) RenderData() any { return v.Result }

func (v *AnalysisView) table(colored bool) *Table {
	if v.Grouped {
		t := groupTable(v.Title, diagnose.GroupIssues(v.Result.Issues), colored)
		t.Footer = countsFooter(v.Result)
		return t
	}
	return issueTable(v.Title, v.Result, colored)
}

func (v *AnalysisView) RenderText(w io.Writer, colored bool) error {
	if len(v.Result.Issues) == 0 {
		msg := fmt.Sprintf("%s: %d formula(s), no issues found", v.Title, v.Result.TotalFormulas)
		if colored {
			color.New(color.FgGreen).Fprintln(w, msg)
		} else {
			fmt.Fprintln(w, msg)
		}
		return nil
	}
	return v.table(colored).RenderText(w, colored)
}

func (v *AnalysisView) RenderMarkdown(w io.Writer) error {
	return v.table(false).RenderMarkdown(w)
}

func (v *AnalysisView) RenderHTML(w io.Writer) error {
	r, err := report.NewRenderer()
	if err != nil {
		return err
	}
	return r.Render(w, report.ForSheet(v.Meta, v.Title, v.Result))
}

// WorkbookView renders a workbook scan.
type WorkbookView struct {
	Title   string
	Result  *engine.WorkbookResult
	Grouped bool
	Meta    report.Metadata
}

func (v *WorkbookView) RenderData() any { return v.Result }

func (v *WorkbookView) sheetTable(colored bool) *Table {
	rows := make([][]string, 0, len(v.Result.Sheets))
	for _, s := range v.Result.Sheets {
		switch {
		case s.Skipped:
			rows = append(rows, []string{s.Name, "-", "-", "-", "-", "skipped"})
		case s.Error != "":
			status := "failed"
			if colored {
				status = color.RedString(status)
			}
			rows = append(rows, []string{s.Name, "-", "-", "-", "-", status})
		default:
			r := s.Result
			rows = append(rows, []string{
				s.Name,
				strconv.Itoa(r.TotalFormulas),
				strconv.Itoa(r.ErrorCount),
				strconv.Itoa(r.WarningCount),
				strconv.Itoa(r.InfoCount),
				fmt.Sprintf("%d%% valid", report.HealthScore(r)),
			})
		}
	}
	return NewTable("Sheets", []string{"Sheet", "Formulas", "Errors", "Warnings", "Info", "Status"}, rows, nil, nil)
}

func (v *WorkbookView) sections(colored bool) *Report {
	issues := &AnalysisView{Title: "Issues", Result: v.Result.Total, Grouped: v.Grouped}
	rep := &Report{Title: v.Title, Sections: []Renderable{v.sheetTable(colored), issues}, Data: v.Result}
	for _, s := range v.Result.Sheets {
		if s.Error != "" {
			rep.Sections = append(rep.Sections, &Section{Title: s.Name, Content: s.Error})
		}
	}
	return rep
}

func (v *WorkbookView) RenderText(w io.Writer, colored bool) error {
	return v.sections(colored).RenderText(w, colored)
}

func (v *WorkbookView) RenderMarkdown(w io.Writer) error {
	return v.sections(false).RenderMarkdown(w)
}

func (v *WorkbookView) RenderHTML(w io.Writer) error {
	r, err := report.NewRenderer()
	if err != nil {
		return err
	}
	return r.Render(w, report.ForWorkbook(v.Meta, v.Result))
}

// ScoreView renders a performance report.
type ScoreView struct {
	Report perfscore.Report
}

func (v *ScoreView) RenderData() any { return v.Report }

func (v *ScoreView) table() *Table {
	rows := make([][]string, 0, len(v.Report.Suggestions))
	for _, s := range v.Report.Suggestions {
		rows = append(rows, []string{string(s.Factor), "+" + strconv.Itoa(s.Improvement), s.Description})
	}
	return NewTable("Suggestions", []string{"Factor", "Points", "Suggestion"}, rows, nil, nil)
}

func (v *ScoreView) headline() string {
	return fmt.Sprintf("Score: %d/100 (grade %s)", v.Report.Score, v.Report.Grade)
}

func (v *ScoreView) RenderText(w io.Writer, colored bool) error {
	fmt.Fprintln(w, v.Report.Formula)
	if colored {
		fmt.Fprintln(w, SeverityColor(string(v.Report.Grade), v.headline()))
	} else {
		fmt.Fprintln(w, v.headline())
	}
	fmt.Fprintln(w)
	if len(v.Report.Suggestions) == 0 {
		return nil
	}
	return v.table().RenderText(w, colored)
}

func (v *ScoreView) RenderMarkdown(w io.Writer) error {
	fmt.Fprintf(w, "`%s`\n\n**%s**\n\n", v.Report.Formula, v.headline())
	if len(v.Report.Suggestions) == 0 {
		return nil
	}
	return v.table().RenderMarkdown(w)
}

// GraphView renders a sheet dependency graph.
type GraphView struct {
	Title    string
	Analysis *depgraph.Analysis
	// Top bounds the node table; 0 shows every formula cell.
	Top int
}

func (v *GraphView) RenderData() any { return v.Analysis }

func (v *GraphView) report() *Report {
	a := v.Analysis
	s := a.Summary
	summary := &Section{
		Title: "Summary",
		Content: fmt.Sprintf("%d cells, %d edges, %d formulas, %d cycle(s) covering %d cell(s), max reach %d",
			s.TotalNodes, s.TotalEdges, s.FormulaCells, s.Cycles, s.CellsInCycles, s.MaxReach),
	}

	cycles := make([][]string, 0, len(a.Cycles))
	for i, c := range a.Cycles {
		cycles = append(cycles, []string{strconv.Itoa(i + 1), strconv.Itoa(len(c.Cells)), strings.Join(c.Cells, " -> ")})
	}

	var nodes [][]string
	for _, n := range a.Nodes {
		if n.Formula == "" {
			continue
		}
		if v.Top > 0 && len(nodes) >= v.Top {
			break
		}
		nodes = append(nodes, []string{
			n.Cell,
			strconv.Itoa(n.Precedents),
			strconv.Itoa(n.Dependents),
			strconv.FormatUint(n.Reach, 10),
			clip(n.Formula, maxFixWidth),
		})
	}

	sections := []Renderable{summary}
	if len(cycles) > 0 {
		sections = append(sections, NewTable("Cycles", []string{"#", "Cells", "Path"}, cycles, nil, nil))
	}
	if len(a.KeyCells) > 0 {
		sections = append(sections, &Section{Title: "Key cells", Content: strings.Join(a.KeyCells, ", ")})
	}
	sections = append(sections, NewTable("Formulas", []string{"Cell", "Precedents", "Dependents", "Reach", "Formula"}, nodes, nil, nil))
	return &Report{Title: v.Title, Sections: sections, Data: a}
}

func (v *GraphView) RenderText(w io.Writer, colored bool) error {
	return v.report().RenderText(w, colored)
}

func (v *GraphView) RenderMarkdown(w io.Writer) error {
	return v.report().RenderMarkdown(w)
}
