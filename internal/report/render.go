// Package report renders analysis results as a standalone HTML page.
package report

import (
	"embed"
	"encoding/json"
	"html/template"
	"io"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/panbanda/formulint/internal/service/engine"
	"github.com/panbanda/formulint/pkg/analyzer/diagnose"
)

//go:embed template.html
var templateFS embed.FS

// RenderData contains all data needed to render the report.
type RenderData struct {
	Metadata        Metadata
	Total           *diagnose.AnalysisResult
	Sheets          []SheetSection
	Groups          []diagnose.Group
	Kinds           []KindCount
	Recommendations Recommendations
	Score           int
}

// ForSheet builds report data for a single analyzed sheet or range.
func ForSheet(meta Metadata, name string, r *diagnose.AnalysisResult) *RenderData {
	groups := diagnose.GroupIssues(r.Issues)
	return &RenderData{
		Metadata:        meta,
		Total:           r,
		Sheets:          []SheetSection{{Name: name, Result: r, Groups: groups}},
		Groups:          groups,
		Kinds:           KindCounts(r),
		Recommendations: BuildRecommendations(r),
		Score:           HealthScore(r),
	}
}

// ForWorkbook builds report data for a workbook scan.
func ForWorkbook(meta Metadata, wb *engine.WorkbookResult) *RenderData {
	d := &RenderData{
		Metadata:        meta,
		Total:           wb.Total,
		Groups:          diagnose.GroupIssues(wb.Total.Issues),
		Kinds:           KindCounts(wb.Total),
		Recommendations: BuildRecommendations(wb.Total),
		Score:           HealthScore(wb.Total),
	}
	for _, s := range wb.Sheets {
		sec := SheetSection{Name: s.Name, Result: s.Result, Skipped: s.Skipped, Error: s.Error}
		if s.Result != nil {
			sec.Groups = diagnose.GroupIssues(s.Result.Issues)
		}
		d.Sheets = append(d.Sheets, sec)
	}
	return d
}

// Renderer handles HTML report generation.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer creates a new renderer with the embedded template.
func NewRenderer() (*Renderer, error) {
	title := cases.Title(language.English)
	funcMap := template.FuncMap{
		"scoreClass": func(score int) string {
			if score >= 80 {
				return "good"
			}
			if score >= 60 {
				return "warning"
			}
			return "danger"
		},
		"severityClass": func(s diagnose.Severity) string {
			switch s {
			case diagnose.SeverityError:
				return "danger"
			case diagnose.SeverityWarning:
				return "warning"
			default:
				return "info"
			}
		},
		"kindLabel": func(k diagnose.Kind) string {
			return title.String(strings.ReplaceAll(string(k), "_", " "))
		},
		"limit": func(items []diagnose.Diagnostic, n int) []diagnose.Diagnostic {
			if len(items) > n {
				return items[:n]
			}
			return items
		},
		"limitGroups": func(items []diagnose.Group, n int) []diagnose.Group {
			if len(items) > n {
				return items[:n]
			}
			return items
		},
		"title": title.String,
		"truncate": func(s string, n int) string {
			if len(s) > n {
				return s[:n] + "..."
			}
			return s
		},
		"percent": func(a, b int) float64 {
			if b == 0 {
				return 0
			}
			return float64(a) / float64(b) * 100
		},
		"json": func(v any) template.JS {
			b, _ := json.Marshal(v)
			return template.JS(b)
		},
		"num": func(n any) string {
			p := message.NewPrinter(language.English)
			switch v := n.(type) {
			case int:
				return p.Sprintf("%d", v)
			case int64:
				return p.Sprintf("%d", v)
			case float64:
				return p.Sprintf("%d", int64(v))
			default:
				return "0"
			}
		},
	}

	tmplContent, err := templateFS.ReadFile("template.html")
	if err != nil {
		return nil, err
	}

	tmpl, err := template.New("report").Funcs(funcMap).Parse(string(tmplContent))
	if err != nil {
		return nil, err
	}

	return &Renderer{tmpl: tmpl}, nil
}

// Render writes the HTML report for data.
func (r *Renderer) Render(w io.Writer, data *RenderData) error {
	return r.tmpl.Execute(w, data)
}

// RenderToFile writes the HTML report to a file.
func (r *Renderer) RenderToFile(data *RenderData, outputPath string) error {
	f, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer f.Close()

	return r.Render(f, data)
}
