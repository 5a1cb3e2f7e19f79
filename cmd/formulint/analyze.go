package main

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/formulint/internal/output"
	"github.com/panbanda/formulint/internal/service/engine"
)

func cellCmd() *cli.Command {
	return &cli.Command{
		Name:      "cell",
		Usage:     "Diagnose the formula in one cell",
		ArgsUsage: "<workbook> <cell>",
		Flags:     []cli.Flag{sheetFlag, failOnFlag},
		Action:    runCellCmd,
	}
}

func rangeCmd() *cli.Command {
	return &cli.Command{
		Name:      "range",
		Usage:     "Diagnose every formula in a range",
		ArgsUsage: "<workbook> <range>",
		Flags: []cli.Flag{
			sheetFlag,
			failOnFlag,
			&cli.BoolFlag{
				Name:    "grouped",
				Aliases: []string{"g"},
				Usage:   "Collapse issues raised on copies of the same formula",
			},
		},
		Action: runRangeCmd,
	}
}

func sheetCmd() *cli.Command {
	return &cli.Command{
		Name:      "sheet",
		Usage:     "Diagnose every formula on a sheet",
		ArgsUsage: "<workbook>",
		Flags: []cli.Flag{
			sheetFlag,
			failOnFlag,
			&cli.BoolFlag{
				Name:    "grouped",
				Aliases: []string{"g"},
				Usage:   "Collapse issues raised on copies of the same formula",
			},
		},
		Action: runSheetCmd,
	}
}

func runCellCmd(c *cli.Context) error {
	args, err := requireArgs(c, 2, "<workbook> <cell>")
	if err != nil {
		return err
	}
	return runScoped(c, args[0], func(e *engine.Engine) engine.Response {
		return e.AnalyzeCell(c.Context, args[1])
	}, func(name string) string { return fmt.Sprintf("%s!%s", engine.QuoteSheet(name), args[1]) })
}

func runRangeCmd(c *cli.Context) error {
	args, err := requireArgs(c, 2, "<workbook> <range>")
	if err != nil {
		return err
	}
	return runScoped(c, args[0], func(e *engine.Engine) engine.Response {
		return e.AnalyzeRange(c.Context, args[1])
	}, func(name string) string { return fmt.Sprintf("%s!%s", engine.QuoteSheet(name), args[1]) })
}

func runSheetCmd(c *cli.Context) error {
	args, err := requireArgs(c, 1, "<workbook>")
	if err != nil {
		return err
	}
	return runScoped(c, args[0], func(e *engine.Engine) engine.Response {
		ctx, done := withProgress(c, c.Context, "Scanning")
		defer done()
		return e.AnalyzeSheet(ctx)
	}, func(name string) string { return name })
}

// runScoped opens the sheet, runs one engine call and prints the result.
func runScoped(c *cli.Context, path string, run func(*engine.Engine) engine.Response, title func(sheet string) string) error {
	wb, acc, name, err := openSheet(path, c.String("sheet"))
	if err != nil {
		return err
	}
	defer wb.Close()

	resp := run(newEngine(c, acc))
	if !resp.Success {
		return errors.New(resp.Error)
	}

	formatter, err := newFormatter(c)
	if err != nil {
		return err
	}
	defer formatter.Close()

	view := &output.AnalysisView{
		Title:   title(name),
		Result:  resp.Data,
		Grouped: c.Bool("grouped"),
		Meta:    metadata(c, path),
	}
	if err := formatter.Output(view); err != nil {
		return err
	}
	return failOn(c.String("fail-on"), resp.Data)
}
