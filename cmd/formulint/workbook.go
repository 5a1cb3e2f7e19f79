package main

import (
	"errors"
	"fmt"

	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/formulint/internal/cache"
	"github.com/panbanda/formulint/internal/output"
	"github.com/panbanda/formulint/internal/service/engine"
	"github.com/panbanda/formulint/pkg/config"
	"github.com/panbanda/formulint/pkg/sheet"
)

func workbookCmd() *cli.Command {
	return &cli.Command{
		Name:      "workbook",
		Aliases:   []string{"wb"},
		Usage:     "Diagnose every sheet of a workbook",
		ArgsUsage: "<workbook>",
		Flags: []cli.Flag{
			failOnFlag,
			&cli.BoolFlag{
				Name:    "grouped",
				Aliases: []string{"g"},
				Usage:   "Collapse issues raised on copies of the same formula",
			},
		},
		Action: runWorkbookCmd,
	}
}

func cacheCmd() *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect or clear cached workbook results",
		Subcommands: []*cli.Command{
			{
				Name:   "stats",
				Usage:  "Show cache statistics",
				Action: runCacheStatsCmd,
			},
			{
				Name:   "clear",
				Usage:  "Remove every cached result",
				Action: runCacheClearCmd,
			},
		},
	}
}

// cacheSettings are the configuration values that change a workbook result.
type cacheSettings struct {
	Analysis   config.AnalysisConfig  `json:"analysis"`
	Thresholds config.ThresholdConfig `json:"thresholds"`
	Version    string                 `json:"version"`
}

func openCache(c *cli.Context) (*cache.Cache, error) {
	cfg := appConfig(c)
	return cache.New(cfg.Cache.Dir, cfg.Cache.TTL, cfg.Cache.Enabled && !c.Bool("no-cache"))
}

func runWorkbookCmd(c *cli.Context) error {
	args, err := requireArgs(c, 1, "<workbook>")
	if err != nil {
		return err
	}
	path := args[0]
	cfg := appConfig(c)
	logger := appLogger(c)

	store, err := openCache(c)
	if err != nil {
		logger.Warn("cache unavailable", "error", err)
		store, _ = cache.New("", 0, false)
	}

	var key, hash string
	if store.Enabled() {
		key, err = cache.Key(path, cacheSettings{Analysis: cfg.Analysis, Thresholds: cfg.Thresholds, Version: version})
		if err == nil {
			hash, err = cache.HashFile(afero.NewOsFs(), path)
		}
		if err != nil {
			return err
		}
	}

	var result engine.WorkbookResult
	if store.Enabled() && store.Get(key, hash, &result) {
		logger.Debug("cache hit", "workbook", path)
	} else {
		res, err := analyzeWorkbook(c, path)
		if err != nil {
			return err
		}
		result = *res
		if err := store.Set(key, hash, &result); err != nil {
			logger.Warn("caching result failed", "error", err)
		}
	}

	formatter, err := newFormatter(c)
	if err != nil {
		return err
	}
	defer formatter.Close()

	view := &output.WorkbookView{
		Title:   path,
		Result:  &result,
		Grouped: c.Bool("grouped"),
		Meta:    metadata(c, path),
	}
	if err := formatter.Output(view); err != nil {
		return err
	}
	return failOn(c.String("fail-on"), result.Total)
}

func analyzeWorkbook(c *cli.Context, path string) (*engine.WorkbookResult, error) {
	wb, err := sheet.Open(path)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	ctx, done := withProgress(c, c.Context, "Analyzing workbook")
	resp := newEngine(c, nil).AnalyzeWorkbook(ctx, wb)
	done()
	if !resp.Success {
		return nil, errors.New(resp.Error)
	}
	return resp.Data, nil
}

func runCacheStatsCmd(c *cli.Context) error {
	store, err := openCache(c)
	if err != nil {
		return err
	}
	if !store.Enabled() {
		fmt.Fprintln(c.App.Writer, "Cache is disabled")
		return nil
	}
	stats, err := store.GetStats()
	if err != nil {
		return err
	}

	formatter, err := newFormatter(c)
	if err != nil {
		return err
	}
	defer formatter.Close()
	return formatter.Output(stats)
}

func runCacheClearCmd(c *cli.Context) error {
	store, err := openCache(c)
	if err != nil {
		return err
	}
	if err := store.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, "Cache cleared")
	return nil
}
