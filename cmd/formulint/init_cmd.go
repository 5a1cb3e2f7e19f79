package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/pelletier/go-toml"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/formulint/pkg/config"
)

func initCmd() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Initialize a new formulint configuration file",
		Description: `Creates a new formulint.toml configuration file in the current directory
with sensible defaults. Use --path to specify a different location.

Examples:
  formulint init                              # Creates formulint.toml in current directory
  formulint init --path .formulint/formulint.toml
  formulint init --force                      # Overwrite existing config file`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "path",
				Value: "formulint.toml",
				Usage: "Config file path",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite existing config file",
			},
		},
		Action: runInit,
	}
}

func runInit(c *cli.Context) error {
	outputPath := c.String("path")

	// Check if file already exists
	if _, err := os.Stat(outputPath); err == nil && !c.Bool("force") {
		return fmt.Errorf("config file %q already exists (use --force to overwrite)", outputPath)
	}

	// Create parent directory if needed
	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %q: %w", dir, err)
		}
	}

	content, err := generateDefaultConfig()
	if err != nil {
		return err
	}

	if err := os.WriteFile(outputPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	color.New(color.FgGreen).Fprintf(c.App.Writer, "Created %s\n", outputPath)
	fmt.Fprintln(c.App.Writer, "Edit this file to customize analysis settings.")
	return nil
}

func generateDefaultConfig() (string, error) {
	content, err := toml.Marshal(config.DefaultConfig())
	if err != nil {
		return "", fmt.Errorf("failed to marshal config to TOML: %w", err)
	}

	var buf strings.Builder
	buf.WriteString("# formulint configuration\n")
	buf.WriteString("# Documentation: https://github.com/panbanda/formulint\n\n")
	buf.Write(content)

	return buf.String(), nil
}
