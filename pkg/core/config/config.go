// Package config loads runtime settings from .env, a YAML file and the
// environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"intrinseco/pkg/core/agent"
	"intrinseco/pkg/core/chunker"
)

// DefaultPath is the YAML file read when no path is given.
const DefaultPath = "config/intrinseco.yaml"

// Environment overrides.
const (
	EnvDatabaseURL = "DATABASE_URL"
	EnvCacheDir    = "INTRINSECO_CACHE_DIR"
	EnvDumpDir     = "INTRINSECO_DUMP_DIR"
	EnvProvider    = "INTRINSECO_PROVIDER"
	EnvMinHits     = "INTRINSECO_MIN_HITS"
	EnvAddr        = "INTRINSECO_ADDR"
	EnvPrompts     = "INTRINSECO_PROMPTS_DIR"
)

// Scan mirrors chunker.ScanParameters plus the pool size.
type Scan struct {
	WindowSize      int `yaml:"window_size"`
	OverlapStride   int `yaml:"overlap_stride"`
	BufferSize      int `yaml:"buffer_size"`
	OutputChunkSize int `yaml:"output_chunk_size"`
	Workers         int `yaml:"workers"`
}

// Dictionary is the YAML shape of one language's indicator lists.
type Dictionary struct {
	Balance  []string `yaml:"balance"`
	Income   []string `yaml:"income"`
	CashFlow []string `yaml:"cash_flow"`
}

// Config is the full runtime configuration.
type Config struct {
	agent.Config `yaml:",inline"`

	Scan       Scan                  `yaml:"scan"`
	MinHits    int                   `yaml:"min_hits"`
	Indicators map[string]Dictionary `yaml:"indicators"`
	DumpDir    string                `yaml:"dump_dir"`
	CacheDir   string                `yaml:"cache_dir"`
	PromptsDir string                `yaml:"prompts_dir"`
	Addr       string                `yaml:"addr"`

	DatabaseURL string `yaml:"-"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Config: agent.Config{
			ActiveProvider: "openai",
			Agents:         map[string]agent.AgentConfig{},
		},
		Scan: Scan{
			WindowSize:      chunker.DefaultWindowSize,
			OverlapStride:   chunker.DefaultOverlapStride,
			BufferSize:      chunker.DefaultBufferSize,
			OutputChunkSize: chunker.DefaultOutputChunkSize,
			Workers:         chunker.DefaultWorkers,
		},
		MinHits:  chunker.DefaultMinHits,
		CacheDir: filepath.Join(".cache", "intrinseco"),
		Addr:     ":8080",
	}
}

// Load reads .env (if present), then the YAML file at path (if present),
// then environment overrides. An empty path means DefaultPath.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()

	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvDatabaseURL); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv(EnvCacheDir); v != "" {
		c.CacheDir = v
	}
	if v := os.Getenv(EnvDumpDir); v != "" {
		c.DumpDir = v
	}
	if v := os.Getenv(EnvProvider); v != "" {
		c.ActiveProvider = v
	}
	if v := os.Getenv(EnvAddr); v != "" {
		c.Addr = v
	}
	if v := os.Getenv(EnvPrompts); v != "" {
		c.PromptsDir = v
	}
	if v := os.Getenv(EnvMinHits); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvMinHits, v, err)
		}
		c.MinHits = n
	}
	c.DumpDir = expandHome(c.DumpDir)
	c.CacheDir = expandHome(c.CacheDir)
	c.PromptsDir = expandHome(c.PromptsDir)
	return nil
}

// Validate checks scan sizes, the fallback threshold and any dictionary
// overrides.
func (c Config) Validate() error {
	if err := c.ScanParameters().Validate(); err != nil {
		return fmt.Errorf("invalid scan parameters: %w", err)
	}
	if c.Scan.Workers <= 0 {
		return fmt.Errorf("invalid scan parameters: workers must be positive, got %d", c.Scan.Workers)
	}
	if c.MinHits < 0 {
		return fmt.Errorf("min_hits must not be negative, got %d", c.MinHits)
	}
	if _, err := c.BuildIndicators(); err != nil {
		return fmt.Errorf("invalid indicators: %w", err)
	}
	return nil
}

// ScanParameters returns the locator settings.
func (c Config) ScanParameters() chunker.ScanParameters {
	return chunker.ScanParameters{
		WindowSize:      c.Scan.WindowSize,
		OverlapStride:   c.Scan.OverlapStride,
		BufferSize:      c.Scan.BufferSize,
		OutputChunkSize: c.Scan.OutputChunkSize,
	}
}

// BuildIndicators merges dictionary overrides over the built-in ones. A
// category list present in the YAML replaces the default list entirely.
func (c Config) BuildIndicators() (*chunker.Indicators, error) {
	dicts := chunker.DefaultDictionaries()
	for key, d := range c.Indicators {
		lang := chunker.Language(strings.ToUpper(key))
		if lang != chunker.EN && lang != chunker.ES {
			return nil, fmt.Errorf("unknown indicator language %q", key)
		}
		if len(d.Balance) > 0 {
			dicts[lang][chunker.Balance] = d.Balance
		}
		if len(d.Income) > 0 {
			dicts[lang][chunker.Income] = d.Income
		}
		if len(d.CashFlow) > 0 {
			dicts[lang][chunker.CashFlow] = d.CashFlow
		}
	}
	return chunker.NewIndicators(dicts)
}

func expandHome(p string) string {
	if !strings.HasPrefix(p, "~") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
