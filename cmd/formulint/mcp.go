package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/formulint/internal/mcpserver"
)

func mcpCmd() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Start MCP (Model Context Protocol) server for LLM tool integration",
		Description: `Starts an MCP server over stdio transport that exposes formulint's
checks as tools that LLMs can invoke.

To use with Claude Desktop, add to your config:
  {
    "mcpServers": {
      "formulint": {
        "command": "formulint",
        "args": ["mcp"]
      }
    }
  }

Available tools:
  - analyze_cell       Diagnose one cell
  - analyze_range      Diagnose every formula in a range
  - analyze_sheet      Diagnose a sheet, optionally grouped
  - analyze_workbook   Diagnose every sheet of a workbook
  - score_formula      Recalculation cost score and grade
  - analyze_graph      Dependency graph and full cycles
  - apply_fix          Write a replacement formula (modifies the file)`,
		Action: runMCPCmd,
		Subcommands: []*cli.Command{
			{
				Name:   "manifest",
				Usage:  "Print the MCP registry manifest (server.json)",
				Action: runMCPManifestCmd,
			},
		},
	}
}

func runMCPCmd(c *cli.Context) error {
	// stdout carries the protocol, so the logger must stay on stderr.
	server := mcpserver.NewServer(version,
		mcpserver.WithConfig(appConfig(c)),
		mcpserver.WithLogger(appLogger(c)),
	)
	ctx, cancel := signalContext()
	defer cancel()
	return server.Run(ctx)
}

func runMCPManifestCmd(c *cli.Context) error {
	data, err := mcpserver.GenerateManifest(version)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, string(data))
	return nil
}
