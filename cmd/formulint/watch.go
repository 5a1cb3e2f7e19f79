package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/formulint/internal/output"
	"github.com/panbanda/formulint/pkg/watch"
)

func watchCmd() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Re-analyze workbooks whenever they change",
		ArgsUsage: "[workbook or directory]",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "debounce",
				Value: 500 * time.Millisecond,
				Usage: "Wait this long after the last write before analyzing",
			},
			&cli.BoolFlag{
				Name:    "grouped",
				Aliases: []string{"g"},
				Usage:   "Collapse issues raised on copies of the same formula",
			},
		},
		Action: runWatchCmd,
	}
}

func runWatchCmd(c *cli.Context) error {
	target := "."
	if c.Args().Len() > 0 {
		target = c.Args().First()
	}
	absPath, err := filepath.Abs(target)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	watcher, err := watch.NewWatcher(absPath, c.Duration("debounce"),
		watch.WithOutput(c.App.Writer),
		watch.WithLogger(appLogger(c)),
	)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Stop()

	watcher.SetCallback(func(changed string) {
		if err := reportChange(c, changed); err != nil {
			color.New(color.FgRed).Fprintf(c.App.ErrWriter, "Analysis error: %v\n", err)
		}
	})

	ctx, cancel := signalContext()
	defer cancel()

	err = watcher.Start(ctx)
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(c.App.Writer, "\nStopping watch...")
		return nil
	}
	return err
}

// reportChange runs a workbook scan on a changed file. Results are never
// cached since the file just changed.
func reportChange(c *cli.Context, path string) error {
	res, err := analyzeWorkbook(c, path)
	if err != nil {
		return err
	}
	format := c.String("format")
	if format == "" {
		format = appConfig(c).Output.Format
	}
	formatter := output.NewWriterFormatter(output.ParseFormat(format), c.App.Writer, !c.Bool("no-color") && !color.NoColor)
	return formatter.Output(&output.WorkbookView{
		Title:   filepath.Base(path),
		Result:  res,
		Grouped: c.Bool("grouped"),
	})
}
