package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input string
		want  Format
	}{
		{"text", FormatText},
		{"TEXT", FormatText},
		{"json", FormatJSON},
		{"markdown", FormatMarkdown},
		{"md", FormatMarkdown},
		{"toon", FormatTOON},
		{"HTML", FormatHTML},
		{"", FormatText},
		{"xml", FormatText},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseFormat(tt.input))
		})
	}
}

func TestNewFormatterWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")

	f, err := NewFormatter(FormatJSON, path, true)
	require.NoError(t, err)
	assert.False(t, f.Colored(), "no colors when writing to a file")
	assert.Equal(t, FormatJSON, f.Format())

	require.NoError(t, f.Output(map[string]int{"formulas": 3}))
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"formulas": 3}`, string(data))
}

func TestNewFormatterInvalidPath(t *testing.T) {
	_, err := NewFormatter(FormatText, "/nonexistent/directory/file.txt", false)
	assert.Error(t, err)
}

func sampleTable() *Table {
	return NewTable("Issues",
		[]string{"Cell", "Severity"},
		[][]string{{"A1", "error"}, {"B2", "info"}},
		[]string{"2 formulas", ""},
		nil,
	)
}

func TestTableRender(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleTable().RenderText(&buf, false))
	text := buf.String()
	assert.Contains(t, text, "Issues\n======")
	assert.Contains(t, text, "A1")
	assert.Contains(t, text, "2 formulas")

	buf.Reset()
	require.NoError(t, sampleTable().RenderMarkdown(&buf))
	md := buf.String()
	assert.Contains(t, md, "## Issues")
	assert.Contains(t, md, "| Cell | Severity |")
	assert.Contains(t, md, "| --- | --- |")
	assert.Contains(t, md, "| B2 | info |")
}

func TestTableRenderData(t *testing.T) {
	got := sampleTable().RenderData()
	assert.Equal(t, []map[string]string{
		{"Cell": "A1", "Severity": "error"},
		{"Cell": "B2", "Severity": "info"},
	}, got)

	withData := NewTable("x", nil, nil, nil, []int{1, 2})
	assert.Equal(t, []int{1, 2}, withData.RenderData())
}

func TestSectionAndReport(t *testing.T) {
	rep := &Report{
		Title: "Workbook",
		Sections: []Renderable{
			&Section{Title: "Summary", Content: "3 formulas", Sections: []Section{{Title: "Detail", Content: "ok"}}},
			sampleTable(),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, rep.RenderText(&buf, false))
	text := buf.String()
	assert.True(t, strings.HasPrefix(text, "Workbook\n========"))
	assert.Contains(t, text, "Detail\n------")

	buf.Reset()
	require.NoError(t, rep.RenderMarkdown(&buf))
	md := buf.String()
	assert.Contains(t, md, "# Workbook")
	assert.Contains(t, md, "## Summary")
	assert.Contains(t, md, "### Detail")

	data, ok := rep.RenderData().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Workbook", data["title"])
}

func TestFormatterOutputFormats(t *testing.T) {
	tests := []struct {
		format Format
		check  func(t *testing.T, out string)
	}{
		{FormatText, func(t *testing.T, out string) { assert.Contains(t, out, "Issues") }},
		{FormatMarkdown, func(t *testing.T, out string) { assert.Contains(t, out, "## Issues") }},
		{FormatJSON, func(t *testing.T, out string) {
			var rows []map[string]string
			require.NoError(t, json.Unmarshal([]byte(out), &rows))
			assert.Len(t, rows, 2)
		}},
		{FormatTOON, func(t *testing.T, out string) {
			assert.Contains(t, out, "Cell")
			assert.Contains(t, out, "A1")
		}},
		{FormatHTML, func(t *testing.T, out string) {
			// Tables have no HTML form and fall back to JSON.
			assert.True(t, json.Valid([]byte(out)))
		}},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			var buf bytes.Buffer
			f := NewWriterFormatter(tt.format, &buf, false)
			require.NoError(t, f.Output(sampleTable()))
			tt.check(t, buf.String())
		})
	}
}

func TestFormatterOutputRaw(t *testing.T) {
	data := map[string]any{"score": 90}

	var buf bytes.Buffer
	require.NoError(t, NewWriterFormatter(FormatMarkdown, &buf, false).Output(data))
	assert.True(t, strings.HasPrefix(buf.String(), "```json\n"))

	buf.Reset()
	require.NoError(t, NewWriterFormatter(FormatText, &buf, false).Output(data))
	assert.JSONEq(t, `{"score": 90}`, buf.String())
}

func TestToTOON_UsesJSONNames(t *testing.T) {
	type row struct {
		TotalFormulas int `json:"total_formulas"`
	}
	out, err := ToTOON(row{TotalFormulas: 4})
	require.NoError(t, err)
	assert.Contains(t, out, "total_formulas")
	assert.NotContains(t, out, "TotalFormulas")

	_, err = ToTOON(func() {})
	assert.Error(t, err)
}

func TestFormatterMessages(t *testing.T) {
	var buf bytes.Buffer
	f := NewWriterFormatter(FormatText, &buf, false)

	f.Success("wrote %s", "B2")
	f.Warning("cache disabled")
	f.Error("cannot open %s", "book.xlsx")
	f.Info("3 sheets")

	out := buf.String()
	assert.Contains(t, out, "wrote B2\n")
	assert.Contains(t, out, "WARNING: cache disabled\n")
	assert.Contains(t, out, "ERROR: cannot open book.xlsx\n")
	assert.Contains(t, out, "3 sheets\n")
}

func TestSeverityColor(t *testing.T) {
	for _, sev := range []string{"error", "warning", "info", "A", "F", "other"} {
		assert.Contains(t, SeverityColor(sev, "text"), "text", sev)
	}
	assert.Equal(t, "plain", SeverityColor("unknown", "plain"))
}
