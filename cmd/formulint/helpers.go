package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/formulint/internal/output"
	"github.com/panbanda/formulint/internal/progress"
	"github.com/panbanda/formulint/internal/report"
	"github.com/panbanda/formulint/internal/service/engine"
	"github.com/panbanda/formulint/pkg/analyzer"
	"github.com/panbanda/formulint/pkg/analyzer/diagnose"
	"github.com/panbanda/formulint/pkg/config"
	"github.com/panbanda/formulint/pkg/sheet"
)

var sheetFlag = &cli.StringFlag{
	Name:    "sheet",
	Aliases: []string{"s"},
	Usage:   "Sheet name (default: first sheet)",
}

var failOnFlag = &cli.StringFlag{
	Name:  "fail-on",
	Value: "none",
	Usage: "Exit with an error when issues of this severity or worse are found: error, warning, info, none",
}

func appConfig(c *cli.Context) *config.Config {
	if cfg, ok := c.App.Metadata["config"].(*config.Config); ok {
		return cfg
	}
	return config.DefaultConfig()
}

func appLogger(c *cli.Context) *slog.Logger {
	if l, ok := c.App.Metadata["logger"].(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

func newEngine(c *cli.Context, acc sheet.Accessor) *engine.Engine {
	return engine.New(acc, engine.WithConfig(appConfig(c)), engine.WithLogger(appLogger(c)))
}

// newFormatter builds the formatter from --format/--output, falling back
// to the configured format.
func newFormatter(c *cli.Context) (*output.Formatter, error) {
	cfg := appConfig(c)
	format := c.String("format")
	if format == "" {
		format = cfg.Output.Format
	}
	colored := cfg.Output.Color && !c.Bool("no-color") && !color.NoColor
	if path := c.String("output"); path != "" {
		return output.NewFormatter(output.ParseFormat(format), path, colored)
	}
	return output.NewWriterFormatter(output.ParseFormat(format), c.App.Writer, colored), nil
}

func metadata(c *cli.Context, path string) report.Metadata {
	return report.Metadata{
		Workbook:    filepath.Base(path),
		GeneratedAt: time.Now(),
		Version:     version,
		Target:      appConfig(c).Analysis.Target,
	}
}

// requireArgs returns the first n positional arguments.
func requireArgs(c *cli.Context, n int, usage string) ([]string, error) {
	if c.Args().Len() < n {
		return nil, fmt.Errorf("usage: formulint %s %s", c.Command.Name, usage)
	}
	return c.Args().Slice()[:n], nil
}

// openSheet opens a workbook and one of its sheets. The caller closes the
// workbook.
func openSheet(path, name string) (sheet.Workbook, sheet.Accessor, string, error) {
	wb, err := sheet.Open(path)
	if err != nil {
		return nil, nil, "", err
	}
	acc, err := wb.Sheet(name)
	if err != nil {
		wb.Close()
		return nil, nil, "", err
	}
	if name == "" {
		if names := wb.Sheets(); len(names) > 0 {
			name = names[0]
		}
	}
	return wb, acc, name, nil
}

// withProgress attaches a progress bar to ctx unless disabled. The returned
// function clears the bar.
func withProgress(c *cli.Context, ctx context.Context, label string) (context.Context, func()) {
	if c.Bool("no-progress") {
		return ctx, func() {}
	}
	bar := progress.NewTracker(label, 0)
	return analyzer.WithTracker(ctx, bar.Analyzer()), bar.FinishSuccess
}

// signalContext is cancelled on Ctrl+C.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// failOn returns an error when r holds issues at or above the named
// severity.
func failOn(level string, r *diagnose.AnalysisResult) error {
	var count int
	switch strings.ToLower(level) {
	case "", "none":
		return nil
	case "error":
		count = r.ErrorCount
	case "warning":
		count = r.ErrorCount + r.WarningCount
	case "info":
		count = r.ErrorCount + r.WarningCount + r.InfoCount
	default:
		return fmt.Errorf("invalid --fail-on value %q", level)
	}
	if count > 0 {
		return fmt.Errorf("%d formula(s) with %s-level issues or worse", count, strings.ToLower(level))
	}
	return nil
}
