// Package config loads apiscan.toml.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/phobologic/apiscan/internal/report"
)

// Default source locations.
const (
	DefaultAPIHeader  = "https://raw.githubusercontent.com/OpenCPN/OpenCPN/master/include/ocpn_plugin.h"
	DefaultPluginsXML = "https://github.com/OpenCPN/plugins/raw/master/ocpn-plugins.xml"
	DefaultWorkDir    = "./workdir"
	DefaultOutputDir  = "./reports"
	DefaultFileName   = "apiscan.toml"
)

type Config struct {
	LogLevel    string   `toml:"log_level"`
	MetricsFile string   `toml:"metrics_file"`
	Sources     Sources  `toml:"sources"`
	Paths       Paths    `toml:"paths"`
	Analysis    Analysis `toml:"analysis"`
	Report      Report   `toml:"report"`
}

type Sources struct {
	APIHeader  string `toml:"api_header"`
	PluginsXML string `toml:"plugins_xml"`
}

type Paths struct {
	WorkDir   string `toml:"work_dir"`
	OutputDir string `toml:"output_dir"`
	DB        string `toml:"db"`
}

type Analysis struct {
	Workers          int      `toml:"workers"`
	ChunkSize        int      `toml:"chunk_size"`
	ExcludeDirs      []string `toml:"exclude_dirs"`
	ExcludeGlobs     []string `toml:"exclude_globs"`
	RespectGitignore bool     `toml:"respect_gitignore"`
	Plugins          []string `toml:"plugins"`
	// GitRate caps git network operations per second. Zero is unlimited.
	GitRate          float64  `toml:"git_rate"`
}

type Report struct {
	Format string `toml:"format"`
	Top    int    `toml:"top"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads path, applies defaults and validates the result. Unknown keys
// are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(string(data))
}

// Parse decodes TOML text, applies defaults and validates the result.
func Parse(text string) (*Config, error) {
	var cfg Config
	md, err := toml.Decode(text, &cfg)
	if err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Sources.APIHeader) == "" {
		cfg.Sources.APIHeader = DefaultAPIHeader
	}
	if strings.TrimSpace(cfg.Sources.PluginsXML) == "" {
		cfg.Sources.PluginsXML = DefaultPluginsXML
	}
	if strings.TrimSpace(cfg.Paths.WorkDir) == "" {
		cfg.Paths.WorkDir = DefaultWorkDir
	}
	if strings.TrimSpace(cfg.Paths.OutputDir) == "" {
		cfg.Paths.OutputDir = DefaultOutputDir
	}
	if strings.TrimSpace(cfg.Report.Format) == "" {
		cfg.Report.Format = report.Markdown
	}
	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = "info"
	}
}

// Validate checks value ranges and the report format.
func (c *Config) Validate() error {
	if c.Analysis.Workers < 0 {
		return fmt.Errorf("analysis.workers must be >= 0, got %d", c.Analysis.Workers)
	}
	if c.Analysis.ChunkSize < 0 {
		return fmt.Errorf("analysis.chunk_size must be >= 0, got %d", c.Analysis.ChunkSize)
	}
	if c.Analysis.GitRate < 0 {
		return fmt.Errorf("analysis.git_rate must be >= 0, got %g", c.Analysis.GitRate)
	}
	if c.Report.Top < 0 {
		return fmt.Errorf("report.top must be >= 0, got %d", c.Report.Top)
	}
	if err := report.ValidateFormat(c.Report.Format); err != nil {
		return fmt.Errorf("report.format: %w", err)
	}
	return nil
}
