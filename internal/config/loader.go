package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagKeys maps command-line flags to their configuration keys
var flagKeys = map[string]string{
	"platform":   "platform",
	"no-clean":   "no_clean",
	"clean-only": "clean_only",
	"verify":     "verify",
	"verbose":    "verbose",
	"color":      "color",
	"work-dir":   "work_dir",
	"reference":  "reference",
	"no-history": "no_history",
	"readme":     "readme",
}

// Loader handles configuration loading from various sources
type Loader struct{}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{}
}

// Load layers defaults, the global config, the nearest local config, an
// explicit --config file and the command flags, in that order
func (l *Loader) Load(cmd *cobra.Command) (*Config, error) {
	l.setupViperDefaults()
	l.loadGlobalConfig()
	l.loadLocalConfig(l.workDir(cmd))

	if err := l.loadExplicitConfig(cmd); err != nil {
		return nil, err
	}

	l.bindCommandFlags(cmd)

	return Load()
}

// setupViperDefaults sets up default values for viper
func (l *Loader) setupViperDefaults() {
	viper.SetDefault("platform", DefaultPlatform)
	viper.SetDefault("color", DefaultColor)
	viper.SetDefault("build_dir", DefaultBuildDir)
	viper.SetDefault("cache_dir", DefaultCacheDir)
	viper.SetDefault("save_results", true)
	viper.SetDefault("min_text_bytes", DefaultMinTextBytes)
	viper.SetDefault("top_symbols", DefaultTopSymbols)
	viper.SetDefault("history_db", DefaultHistoryDB)
	viper.SetDefault("readme", DefaultReadme)
}

// loadGlobalConfig loads the per-user configuration
func (l *Loader) loadGlobalConfig() {
	globalDir := GlobalConfigDir()
	if globalDir == "" {
		return
	}

	for _, ext := range Extensions {
		globalPath := filepath.Join(globalDir, "config."+ext)

		if _, err := os.Stat(globalPath); err == nil {
			viper.SetConfigFile(globalPath)

			if err := viper.MergeInConfig(); err == nil {
				break
			}
		}
	}
}

// loadLocalConfig merges the nearest .footprint.* file at or above dir
func (l *Loader) loadLocalConfig(dir string) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return // silently ignore, config.Load() will handle validation
	}

	localPath := FindLocalConfig(abs)
	if localPath != "" {
		viper.SetConfigFile(localPath)
		_ = viper.MergeInConfig()
	}
}

// loadExplicitConfig merges the file named by --config. Unlike the
// discovered files, a broken explicit file is an error.
func (l *Loader) loadExplicitConfig(cmd *cobra.Command) error {
	f := lookupFlag(cmd, "config")
	if f == nil || f.Value.String() == "" {
		return nil
	}

	viper.SetConfigFile(f.Value.String())
	if err := viper.MergeInConfig(); err != nil {
		return fmt.Errorf("failed to read config %s: %w", f.Value.String(), err)
	}

	return nil
}

// workDir returns the directory the local config search starts from
func (l *Loader) workDir(cmd *cobra.Command) string {
	if f := lookupFlag(cmd, "work-dir"); f != nil && f.Changed {
		return f.Value.String()
	}

	if wd := viper.GetString("work_dir"); wd != "" {
		return wd
	}

	return "."
}

// bindCommandFlags binds command flags to viper
func (l *Loader) bindCommandFlags(cmd *cobra.Command) {
	for name, key := range flagKeys {
		if f := lookupFlag(cmd, name); f != nil {
			_ = viper.BindPFlag(key, f)
		}
	}
}

// lookupFlag finds name among the command's own and inherited flags
func lookupFlag(cmd *cobra.Command, name string) *pflag.Flag {
	if cmd == nil {
		return nil
	}

	if f := cmd.Flags().Lookup(name); f != nil {
		return f
	}

	// Own persistent flags only reach Flags() once cobra parses
	if f := cmd.PersistentFlags().Lookup(name); f != nil {
		return f
	}

	return cmd.InheritedFlags().Lookup(name)
}
