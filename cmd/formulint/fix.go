package main

import (
	"errors"

	"github.com/urfave/cli/v2"
)

func fixCmd() *cli.Command {
	return &cli.Command{
		Name:      "fix",
		Usage:     "Write a replacement formula into a cell",
		ArgsUsage: "<workbook> <cell> <formula>",
		Description: `Writes the formula as given and saves the workbook, then re-checks the
cell. Use a suggestion printed by the cell, range or sheet commands.`,
		Flags:  []cli.Flag{sheetFlag},
		Action: runFixCmd,
	}
}

func runFixCmd(c *cli.Context) error {
	args, err := requireArgs(c, 3, "<workbook> <cell> <formula>")
	if err != nil {
		return err
	}
	path, cell, formula := args[0], args[1], args[2]

	wb, acc, _, err := openSheet(path, c.String("sheet"))
	if err != nil {
		return err
	}
	defer wb.Close()

	e := newEngine(c, acc)
	if res := e.ApplyFix(c.Context, cell, formula); !res.Success {
		return errors.New(res.Error)
	}

	formatter, err := newFormatter(c)
	if err != nil {
		return err
	}
	defer formatter.Close()
	formatter.Success("Wrote %s to %s", formula, cell)

	// The check is advisory; the write already happened.
	if resp := e.AnalyzeCell(c.Context, cell); resp.Success && len(resp.Data.Issues) > 0 {
		for _, d := range resp.Data.Issues {
			formatter.Warning("%s: %s", d.Kind, d.Message)
		}
	}
	return nil
}
