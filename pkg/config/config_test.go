package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig() returned nil")
	}
	if cfg.Analysis.MaxDepth != 2 {
		t.Errorf("Analysis.MaxDepth = %d, want 2", cfg.Analysis.MaxDepth)
	}
	if cfg.Analysis.ChunkRows != 500 {
		t.Errorf("Analysis.ChunkRows = %d, want 500", cfg.Analysis.ChunkRows)
	}
	if cfg.Thresholds.NestedIfLimit != 3 {
		t.Errorf("Thresholds.NestedIfLimit = %d, want 3", cfg.Thresholds.NestedIfLimit)
	}
	if cfg.Thresholds.ScoreLength != 200 {
		t.Errorf("Thresholds.ScoreLength = %d, want 200", cfg.Thresholds.ScoreLength)
	}
	if !cfg.Cache.Enabled {
		t.Error("Cache.Enabled should be true by default")
	}
	if cfg.Output.Format != "text" {
		t.Errorf("Output.Format = %s, want text", cfg.Output.Format)
	}
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"toml", "formulint.toml", `
[analysis]
max_depth = 4

[thresholds]
nested_if_limit = 5

[output]
format = "json"
`},
		{"yaml", "formulint.yaml", `
analysis:
  max_depth: 4
thresholds:
  nested_if_limit: 5
output:
  format: json
`},
		{"json", "formulint.json", `{
  "analysis": {"max_depth": 4},
  "thresholds": {"nested_if_limit": 5},
  "output": {"format": "json"}
}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, tt.file, tt.content))
			require.NoError(t, err)

			assert.Equal(t, 4, cfg.Analysis.MaxDepth)
			assert.Equal(t, 5, cfg.Thresholds.NestedIfLimit)
			assert.Equal(t, "json", cfg.Output.Format)

			// untouched keys keep their defaults
			assert.Equal(t, 500, cfg.Analysis.ChunkRows)
			assert.Equal(t, 1000, cfg.Thresholds.BoundedRowSpan)
			assert.True(t, cfg.Cache.Enabled)
		})
	}
}

func TestLoad_SchemaViolations(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown section", "[bogus]\nkey = 1\n"},
		{"unknown key", "[analysis]\ncomplexity = true\n"},
		{"negative depth", "[analysis]\nmax_depth = -1\n"},
		{"wrong type", "[thresholds]\nnested_if_limit = \"three\"\n"},
		{"bad format", "[output]\nformat = \"xml\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, "formulint.toml", tt.content))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, "custom.toml", "[analysis]\nmax_depth = 6\n")

	res, err := LoadConfig(WithPath(path))
	require.NoError(t, err)
	assert.Equal(t, path, res.Source)
	assert.Equal(t, 6, res.Config.Analysis.MaxDepth)

	t.Setenv(EnvConfig, path)
	res, err = LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, path, res.Source)
}

func TestLoadConfig_SearchesStandardLocations(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(EnvConfig, "")

	res, err := LoadConfig()
	require.NoError(t, err)
	assert.Empty(t, res.Source)
	assert.Equal(t, DefaultConfig(), res.Config)

	require.NoError(t, os.MkdirAll(".formulint", 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(".formulint", "formulint.yml"), []byte("log:\n  level: debug\n"), 0o644))

	res, err = LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(".formulint", "formulint.yml"), res.Source)
	assert.Equal(t, "debug", res.Config.Log.Level)
}

func TestLoadOrDefault_InvalidFileFallsBack(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(EnvConfig, "")
	require.NoError(t, os.WriteFile("formulint.toml", []byte("[output]\nformat = \"xml\"\n"), 0o644))

	assert.Equal(t, DefaultConfig(), LoadOrDefault())
}

func TestLogLevel(t *testing.T) {
	cfg := DefaultConfig()
	t.Setenv(EnvLogLevel, "")
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel())

	cfg.Log.Level = "warn"
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel())

	t.Setenv(EnvLogLevel, "debug")
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())

	t.Setenv(EnvLogLevel, "loud")
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel())
}
