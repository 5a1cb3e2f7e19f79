// Package mcpserver exposes the formula engine to LLM hosts over the Model
// Context Protocol.
package mcpserver

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/panbanda/formulint/pkg/config"
	"github.com/panbanda/formulint/pkg/sheet"
)

// Opener opens a workbook by path.
type Opener func(path string) (sheet.Workbook, error)

// Server wraps the MCP server and registers the formulint tools.
type Server struct {
	server *mcp.Server
	cfg    *config.Config
	open   Opener
	logger *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithConfig sets the analysis configuration used by every tool call.
func WithConfig(cfg *config.Config) Option {
	return func(s *Server) {
		s.cfg = cfg
	}
}

// WithOpener replaces how workbooks are opened (for testing).
func WithOpener(open Opener) Option {
	return func(s *Server) {
		s.open = open
	}
}

// WithLogger sets the structured logger. MCP runs over stdio, so logs must
// not go to stdout.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// NewServer creates a new MCP server with all tools and prompts registered.
func NewServer(version string, opts ...Option) *Server {
	if version == "" {
		version = "dev"
	}
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    serverName,
			Title:   serverTitle,
			Version: version,
		},
		nil,
	)

	s := &Server{
		server: server,
		cfg:    config.DefaultConfig(),
		open:   sheet.Open,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.registerTools()
	s.registerPrompts()
	return s
}

// Run starts the MCP server over stdio transport.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("mcp server starting", "transport", "stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// registerTools adds the formula tools to the server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "analyze_cell",
		Description: describeAnalyzeCell(),
	}, s.handleAnalyzeCell)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "analyze_range",
		Description: describeAnalyzeRange(),
	}, s.handleAnalyzeRange)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "analyze_sheet",
		Description: describeAnalyzeSheet(),
	}, s.handleAnalyzeSheet)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "analyze_workbook",
		Description: describeAnalyzeWorkbook(),
	}, s.handleAnalyzeWorkbook)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "score_formula",
		Description: describeScoreFormula(),
	}, s.handleScoreFormula)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "analyze_graph",
		Description: describeGraph(),
	}, s.handleAnalyzeGraph)

	// Writes to the workbook; hosts should confirm with the user first.
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "apply_fix",
		Description: describeApplyFix(),
	}, s.handleApplyFix)
}
