package main

import (
	"github.com/urfave/cli/v2"

	"github.com/panbanda/formulint/internal/output"
	"github.com/panbanda/formulint/pkg/analyzer/depgraph"
)

func graphCmd() *cli.Command {
	return &cli.Command{
		Name:      "graph",
		Usage:     "Build the cell dependency graph and list every cycle",
		ArgsUsage: "<workbook>",
		Flags: []cli.Flag{
			sheetFlag,
			&cli.IntFlag{
				Name:  "top",
				Value: 20,
				Usage: "Formula cells to list (0 for all)",
			},
			&cli.IntFlag{
				Name:  "key-cells",
				Value: 10,
				Usage: "Most depended-upon cells to report",
			},
		},
		Action: runGraphCmd,
	}
}

func runGraphCmd(c *cli.Context) error {
	args, err := requireArgs(c, 1, "<workbook>")
	if err != nil {
		return err
	}

	wb, acc, name, err := openSheet(args[0], c.String("sheet"))
	if err != nil {
		return err
	}
	defer wb.Close()

	analysis, err := depgraph.New(depgraph.WithKeyCells(c.Int("key-cells"))).Analyze(c.Context, acc)
	if err != nil {
		return err
	}
	analysis.Sheet = name

	formatter, err := newFormatter(c)
	if err != nil {
		return err
	}
	defer formatter.Close()
	return formatter.Output(&output.GraphView{Title: name, Analysis: analysis, Top: c.Int("top")})
}
