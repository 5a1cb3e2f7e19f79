package main

import (
	"errors"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/formulint/internal/output"
)

func scoreCmd() *cli.Command {
	return &cli.Command{
		Name:      "score",
		Usage:     "Score the recalculation cost of a formula",
		ArgsUsage: "<formula>",
		Description: `Scores a formula from 0 to 100 and grades it A-F. Quote the formula
so the shell passes it as one argument:

  formulint score '=SUMPRODUCT((A:A="x")*(B:B))'`,
		Action: runScoreCmd,
	}
}

func runScoreCmd(c *cli.Context) error {
	formula := strings.Join(c.Args().Slice(), " ")
	resp := newEngine(c, nil).ScorePerformance(formula)
	if !resp.Success {
		return errors.New(resp.Error)
	}

	formatter, err := newFormatter(c)
	if err != nil {
		return err
	}
	defer formatter.Close()
	return formatter.Output(&output.ScoreView{Report: *resp.Analysis})
}
