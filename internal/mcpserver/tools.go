package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/panbanda/formulint/internal/output"
	"github.com/panbanda/formulint/internal/service/engine"
	"github.com/panbanda/formulint/pkg/analyzer/depgraph"
	"github.com/panbanda/formulint/pkg/analyzer/diagnose"
	"github.com/panbanda/formulint/pkg/sheet"
)

// Common input structures for tools

// WorkbookInput locates a sheet.
type WorkbookInput struct {
	Path   string `json:"path" jsonschema:"Path to the .xlsx, .xlsm or .csv workbook."`
	Sheet  string `json:"sheet,omitempty" jsonschema:"Sheet name. Defaults to the first sheet."`
	Format string `json:"format,omitempty" jsonschema:"Output format: toon (default), json, or markdown."`
}

// CellInput selects one cell.
type CellInput struct {
	WorkbookInput
	Cell string `json:"cell" jsonschema:"Cell in A1 notation, e.g. B7."`
}

// RangeInput selects a rectangle of cells.
type RangeInput struct {
	WorkbookInput
	Range string `json:"range" jsonschema:"Range in A1 notation, e.g. A1:C10."`
}

// SheetInput selects a whole sheet.
type SheetInput struct {
	WorkbookInput
	Grouped bool `json:"grouped,omitempty" jsonschema:"Collapse issues raised on copies of the same formula."`
}

// ScoreInput is a formula to score.
type ScoreInput struct {
	Formula string `json:"formula" jsonschema:"Formula text including the leading =."`
	Format  string `json:"format,omitempty" jsonschema:"Output format: toon (default), json, or markdown."`
}

// FixInput is a replacement formula to write.
type FixInput struct {
	WorkbookInput
	Cell    string `json:"cell" jsonschema:"Cell in A1 notation to overwrite."`
	Formula string `json:"formula" jsonschema:"Replacement formula, usually one of the suggestions returned by an analyze tool."`
}

// GraphInput adds graph-specific options.
type GraphInput struct {
	WorkbookInput
	KeyCells int `json:"key_cells,omitempty" jsonschema:"Number of most depended-upon cells to return. Default 10."`
}

// Helper functions

func getFormat(format string) output.Format {
	switch format {
	case "json":
		return output.FormatJSON
	case "markdown", "md":
		return output.FormatMarkdown
	default:
		return output.FormatTOON
	}
}

func formatOutput(data any, format output.Format) (string, error) {
	switch format {
	case output.FormatJSON:
		out, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return "", err
		}
		return string(out), nil
	case output.FormatMarkdown:
		out, err := output.ToTOON(data)
		if err != nil {
			return "", err
		}
		return "```\n" + out + "\n```", nil
	default:
		return output.ToTOON(data)
	}
}

func toolResult(data any, format output.Format) (*mcp.CallToolResult, any, error) {
	text, err := formatOutput(data, format)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, nil, nil
}

func toolError(msg string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Error: " + msg},
		},
		IsError: true,
	}, nil, nil
}

// withSheet opens the workbook and the requested sheet and runs fn.
func (s *Server) withSheet(in WorkbookInput, fn func(sheet.Accessor) (*mcp.CallToolResult, any, error)) (*mcp.CallToolResult, any, error) {
	if in.Path == "" {
		return toolError("path is required")
	}
	wb, err := s.open(in.Path)
	if err != nil {
		return toolError(err.Error())
	}
	defer wb.Close()

	acc, err := wb.Sheet(in.Sheet)
	if err != nil {
		return toolError(err.Error())
	}
	return fn(acc)
}

func (s *Server) newEngine(acc sheet.Accessor) *engine.Engine {
	return engine.New(acc, engine.WithConfig(s.cfg), engine.WithLogger(s.logger))
}

func analysisResult(resp engine.Response, format string) (*mcp.CallToolResult, any, error) {
	if !resp.Success {
		return toolError(resp.Error)
	}
	return toolResult(resp.Data, getFormat(format))
}

// Tool handlers

func (s *Server) handleAnalyzeCell(ctx context.Context, req *mcp.CallToolRequest, input CellInput) (*mcp.CallToolResult, any, error) {
	return s.withSheet(input.WorkbookInput, func(acc sheet.Accessor) (*mcp.CallToolResult, any, error) {
		return analysisResult(s.newEngine(acc).AnalyzeCell(ctx, input.Cell), input.Format)
	})
}

func (s *Server) handleAnalyzeRange(ctx context.Context, req *mcp.CallToolRequest, input RangeInput) (*mcp.CallToolResult, any, error) {
	return s.withSheet(input.WorkbookInput, func(acc sheet.Accessor) (*mcp.CallToolResult, any, error) {
		return analysisResult(s.newEngine(acc).AnalyzeRange(ctx, input.Range), input.Format)
	})
}

func (s *Server) handleAnalyzeSheet(ctx context.Context, req *mcp.CallToolRequest, input SheetInput) (*mcp.CallToolResult, any, error) {
	return s.withSheet(input.WorkbookInput, func(acc sheet.Accessor) (*mcp.CallToolResult, any, error) {
		resp := s.newEngine(acc).AnalyzeSheet(ctx)
		if !resp.Success || !input.Grouped {
			return analysisResult(resp, input.Format)
		}
		return toolResult(struct {
			Summary diagnose.Summary `json:"summary"`
			Total   int              `json:"total_formulas"`
			Valid   int              `json:"valid_count"`
			Groups  []diagnose.Group `json:"groups"`
		}{
			Summary: resp.Data.Summary,
			Total:   resp.Data.TotalFormulas,
			Valid:   resp.Data.ValidCount,
			Groups:  diagnose.GroupIssues(resp.Data.Issues),
		}, getFormat(input.Format))
	})
}

func (s *Server) handleAnalyzeWorkbook(ctx context.Context, req *mcp.CallToolRequest, input WorkbookInput) (*mcp.CallToolResult, any, error) {
	if input.Path == "" {
		return toolError("path is required")
	}
	wb, err := s.open(input.Path)
	if err != nil {
		return toolError(err.Error())
	}
	defer wb.Close()

	resp := s.newEngine(nil).AnalyzeWorkbook(ctx, wb)
	if !resp.Success {
		return toolError(resp.Error)
	}
	return toolResult(resp.Data, getFormat(input.Format))
}

func (s *Server) handleScoreFormula(ctx context.Context, req *mcp.CallToolRequest, input ScoreInput) (*mcp.CallToolResult, any, error) {
	resp := s.newEngine(nil).ScorePerformance(input.Formula)
	if !resp.Success {
		return toolError(resp.Error)
	}
	return toolResult(resp.Analysis, getFormat(input.Format))
}

func (s *Server) handleAnalyzeGraph(ctx context.Context, req *mcp.CallToolRequest, input GraphInput) (*mcp.CallToolResult, any, error) {
	return s.withSheet(input.WorkbookInput, func(acc sheet.Accessor) (*mcp.CallToolResult, any, error) {
		var opts []depgraph.Option
		if input.KeyCells > 0 {
			opts = append(opts, depgraph.WithKeyCells(input.KeyCells))
		}
		a, err := depgraph.New(opts...).Analyze(ctx, acc)
		if err != nil {
			return toolError(err.Error())
		}
		// Node lists grow with the sheet; hosts get the summary and cycles.
		return toolResult(struct {
			Summary  depgraph.Summary `json:"summary"`
			Cycles   []depgraph.Cycle `json:"cycles"`
			KeyCells []string         `json:"key_cells"`
		}{a.Summary, a.Cycles, a.KeyCells}, getFormat(input.Format))
	})
}

func (s *Server) handleApplyFix(ctx context.Context, req *mcp.CallToolRequest, input FixInput) (*mcp.CallToolResult, any, error) {
	return s.withSheet(input.WorkbookInput, func(acc sheet.Accessor) (*mcp.CallToolResult, any, error) {
		res := s.newEngine(acc).ApplyFix(ctx, input.Cell, input.Formula)
		if !res.Success {
			return toolError(res.Error)
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Wrote %s to %s", input.Formula, input.Cell)},
			},
		}, nil, nil
	})
}
