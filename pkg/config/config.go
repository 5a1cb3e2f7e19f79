package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Environment variables read after .env files are loaded.
const (
	EnvConfig   = "FORMULINT_CONFIG"
	EnvLogLevel = "FORMULINT_LOG_LEVEL"
)

// Config holds all configuration options for formulint.
type Config struct {
	// Analysis settings
	Analysis AnalysisConfig `koanf:"analysis" toml:"analysis" json:"analysis"`

	// Thresholds for the inline performance check and the scorer
	Thresholds ThresholdConfig `koanf:"thresholds" toml:"thresholds" json:"thresholds"`

	// Cache settings
	Cache CacheConfig `koanf:"cache" toml:"cache" json:"cache"`

	// Output settings
	Output OutputConfig `koanf:"output" toml:"output" json:"output"`

	// Log settings
	Log LogConfig `koanf:"log" toml:"log" json:"log"`
}

// AnalysisConfig controls how scans run.
type AnalysisConfig struct {
	MaxDepth  int    `koanf:"max_depth" toml:"max_depth" json:"max_depth"`
	ChunkRows int    `koanf:"chunk_rows" toml:"chunk_rows" json:"chunk_rows"`
	Workers   int    `koanf:"workers" toml:"workers" json:"workers"` // 0 means NumCPU
	Target    string `koanf:"target" toml:"target" json:"target"`    // sheets or excel
}

// ThresholdConfig defines check and scoring thresholds.
type ThresholdConfig struct {
	InlineVolatileLength int `koanf:"inline_volatile_length" toml:"inline_volatile_length" json:"inline_volatile_length"`
	NestedIfLimit        int `koanf:"nested_if_limit" toml:"nested_if_limit" json:"nested_if_limit"`
	BoundedRowSpan       int `koanf:"bounded_row_span" toml:"bounded_row_span" json:"bounded_row_span"`
	ScoreLength          int `koanf:"score_length" toml:"score_length" json:"score_length"`
	ScoreNestingDepth    int `koanf:"score_nesting_depth" toml:"score_nesting_depth" json:"score_nesting_depth"`
}

// CacheConfig controls caching behavior.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled" toml:"enabled" json:"enabled"`
	Dir     string `koanf:"dir" toml:"dir" json:"dir"`
	TTL     int    `koanf:"ttl" toml:"ttl" json:"ttl"` // TTL in hours
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format string `koanf:"format" toml:"format" json:"format"` // text, json, markdown, toon, html
	Color  bool   `koanf:"color" toml:"color" json:"color"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level string `koanf:"level" toml:"level" json:"level"` // debug, info, warn, error
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			MaxDepth:  2,
			ChunkRows: 500,
			Workers:   0,
			Target:    "sheets",
		},
		Thresholds: ThresholdConfig{
			InlineVolatileLength: 100,
			NestedIfLimit:        3,
			BoundedRowSpan:       1000,
			ScoreLength:          200,
			ScoreNestingDepth:    5,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".formulint/cache",
			TTL:     24,
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

//go:embed schema.json
var schemaJSON []byte

// ErrInvalidConfig is returned when a config file fails schema validation.
var ErrInvalidConfig = errors.New("invalid configuration")

var configNames = []string{
	"formulint.toml",
	"formulint.yaml",
	"formulint.yml",
	"formulint.json",
	".formulint.toml",
	".formulint.yaml",
	".formulint.yml",
	".formulint.json",
}

var searchDirs = []string{".", ".formulint"}

func parserFor(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser()
	case ".json":
		return kjson.Parser()
	default:
		return toml.Parser()
	}
}

// Load loads configuration from a file, validating it against the schema.
// Keys the file omits keep their defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	if err := validate(k.Raw()); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks a config file against the embedded schema.
func Validate(path string) error {
	_, err := Load(path)
	return err
}

func validate(raw map[string]any) error {
	c := jsonschema.NewCompiler()
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return fmt.Errorf("reading schema: %w", err)
	}
	if err := c.AddResource("formulint.schema.json", doc); err != nil {
		return fmt.Errorf("adding schema: %w", err)
	}
	sch, err := c.Compile("formulint.schema.json")
	if err != nil {
		return fmt.Errorf("compiling schema: %w", err)
	}

	// Round-trip through JSON so numbers from every parser validate alike.
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return err
	}
	if err := sch.Validate(inst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// LoadResult is a loaded configuration and where it came from.
type LoadResult struct {
	Config *Config
	// Source is the file path, or "" when defaults were used.
	Source string
}

type loadOptions struct {
	path string
}

// LoadOption configures LoadConfig.
type LoadOption func(*loadOptions)

// WithPath loads a specific file instead of searching.
func WithPath(path string) LoadOption {
	return func(o *loadOptions) {
		o.path = path
	}
}

// LoadConfig loads the explicit path, then FORMULINT_CONFIG, then the first
// config file found in the standard locations. With none present the
// defaults are returned. A file that exists but is invalid is an error.
func LoadConfig(opts ...LoadOption) (*LoadResult, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.path == "" {
		o.path = os.Getenv(EnvConfig)
	}
	if o.path != "" {
		cfg, err := Load(o.path)
		if err != nil {
			return nil, err
		}
		return &LoadResult{Config: cfg, Source: o.path}, nil
	}

	if path := Find(); path != "" {
		cfg, err := Load(path)
		if err != nil {
			return nil, err
		}
		return &LoadResult{Config: cfg, Source: path}, nil
	}
	return &LoadResult{Config: DefaultConfig()}, nil
}

// Find returns the first config file in the standard locations, or "".
func Find() string {
	for _, dir := range searchDirs {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// LoadOrDefault tries to load config from standard locations or returns defaults.
func LoadOrDefault() *Config {
	res, err := LoadConfig()
	if err != nil {
		return DefaultConfig()
	}
	return res.Config
}

// LogLevel resolves the configured level, letting FORMULINT_LOG_LEVEL
// override the file. Unknown names fall back to info.
func (c *Config) LogLevel() slog.Level {
	name := c.Log.Level
	if env := os.Getenv(EnvLogLevel); env != "" {
		name = env
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return level
}
