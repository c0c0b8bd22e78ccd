package config

import (
	"fmt"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Default configuration values
const (
	DefaultPlatform     = "arm"
	DefaultColor        = "auto"
	DefaultLogLevel     = "warn"
	DefaultBuildDir     = "build"
	DefaultCacheDir     = "libs"
	DefaultReadme       = "README.md"
	DefaultMinTextBytes = 1024
	DefaultTopSymbols   = 10
	DefaultHistoryDB    = ".footprint-cache/history.db"
)

var validate = validator.New()

// Influx locates the optional InfluxDB v2 results sink
type Influx struct {
	URL    string `mapstructure:"url" validate:"omitempty,url"`
	Token  string `mapstructure:"token"`
	Org    string `mapstructure:"org" validate:"required_with=URL"`
	Bucket string `mapstructure:"bucket" validate:"required_with=URL"`
}

// Holds the configuration options for footprint
type Config struct {
	// Platform selector (e.g. arm, esp32, avr)
	Platform string `validate:"required"`

	// Skip the pre-build artifact cleanup
	NoClean bool
	// Remove build artifacts and exit
	CleanOnly bool
	// Print top symbols and the ELF inspection for every pair
	Verify bool
	// Enable verbose output
	Verbose bool
	// Console colour: auto, on or off
	Color string `validate:"oneof=auto on off"`
	// Diagnostic log level and format; --verbose forces debug
	LogLevel string `validate:"omitempty,oneof=debug info warn warning error"`
	LogJSON  bool

	// Directory every relative path is resolved against
	WorkDir string `validate:"required"`
	// Directory holding the benchmark sources
	SourceDir string `validate:"required"`
	// Directory for .o/.elf/.map artifacts
	BuildDir string `validate:"required"`
	// Directory for fetched dependencies
	CacheDir string `validate:"required"`
	// Extra include directories, searched first
	IncludeDirs []string

	// Directory the results snapshot is written to
	ResultsDir  string
	SaveResults bool

	// Reference library, empty for the catalog default
	Reference string
	// Smallest .text size not reported as suspicious
	MinTextBytes int `validate:"gte=0"`
	// Number of largest symbols listed in verify mode
	TopSymbols int `validate:"gte=0"`

	// Run history database
	HistoryDB string
	NoHistory bool
	// Directory successful artifacts are copied to, empty to disable
	RetainDir string

	// Optional export targets
	BenchFile   string
	MetricsFile string
	Influx      Influx

	// TOML catalog overlay
	CatalogFile string
	// Markdown document updated by sync-readme
	Readme string
}

func Load() (*Config, error) {
	cfg := &Config{
		Platform:     viper.GetString("platform"),
		NoClean:      viper.GetBool("no_clean"),
		CleanOnly:    viper.GetBool("clean_only"),
		Verify:       viper.GetBool("verify"),
		Verbose:      viper.GetBool("verbose"),
		Color:        viper.GetString("color"),
		LogLevel:     viper.GetString("log_level"),
		LogJSON:      viper.GetBool("log_json"),
		WorkDir:      viper.GetString("work_dir"),
		SourceDir:    viper.GetString("source_dir"),
		BuildDir:     viper.GetString("build_dir"),
		CacheDir:     viper.GetString("cache_dir"),
		IncludeDirs:  viper.GetStringSlice("include_dirs"),
		ResultsDir:   viper.GetString("results_dir"),
		SaveResults:  viper.GetBool("save_results"),
		Reference:    viper.GetString("reference"),
		MinTextBytes: viper.GetInt("min_text_bytes"),
		TopSymbols:   viper.GetInt("top_symbols"),
		HistoryDB:    viper.GetString("history_db"),
		NoHistory:    viper.GetBool("no_history"),
		RetainDir:    viper.GetString("retain_dir"),
		BenchFile:    viper.GetString("bench_file"),
		MetricsFile:  viper.GetString("metrics_file"),
		Influx: Influx{
			URL:    viper.GetString("influx.url"),
			Token:  viper.GetString("influx.token"),
			Org:    viper.GetString("influx.org"),
			Bucket: viper.GetString("influx.bucket"),
		},
		CatalogFile: viper.GetString("catalog_file"),
		Readme:      viper.GetString("readme"),
	}

	// Apply defaults if not set
	if cfg.Platform == "" {
		cfg.Platform = DefaultPlatform
	}

	if cfg.Color == "" {
		cfg.Color = DefaultColor
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	if cfg.WorkDir == "" {
		cfg.WorkDir = "."
	}

	// Relative to the work directory
	if cfg.SourceDir == "" {
		cfg.SourceDir = "."
	}

	if cfg.BuildDir == "" {
		cfg.BuildDir = DefaultBuildDir
	}

	if cfg.CacheDir == "" {
		cfg.CacheDir = DefaultCacheDir
	}

	if cfg.ResultsDir == "" {
		cfg.ResultsDir = "."
	}

	if cfg.HistoryDB == "" {
		cfg.HistoryDB = DefaultHistoryDB
	}

	if cfg.Readme == "" {
		cfg.Readme = DefaultReadme
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate resolves every path against the work directory and checks the
// field constraints
func (c *Config) Validate() error {
	abs, err := filepath.Abs(c.WorkDir)
	if err != nil {
		return fmt.Errorf("invalid work directory: %v", err)
	}

	c.WorkDir = abs

	for _, p := range []*string{
		&c.SourceDir, &c.BuildDir, &c.CacheDir, &c.ResultsDir, &c.HistoryDB,
		&c.RetainDir, &c.BenchFile, &c.MetricsFile, &c.CatalogFile, &c.Readme,
	} {
		*p = c.resolve(*p)
	}

	for i, dir := range c.IncludeDirs {
		c.IncludeDirs[i] = c.resolve(dir)
	}

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	return nil
}

// resolve makes p absolute relative to the work directory. Empty stays empty.
func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}

	return filepath.Join(c.WorkDir, p)
}
