package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestCommand mirrors the flag surface of the footprint root command
func newTestCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.PersistentFlags().StringP("platform", "p", "", "")
	cmd.PersistentFlags().Bool("no-clean", false, "")
	cmd.PersistentFlags().Bool("clean-only", false, "")
	cmd.PersistentFlags().Bool("verify", false, "")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "")
	cmd.PersistentFlags().String("color", "", "")
	cmd.PersistentFlags().StringP("work-dir", "C", "", "")
	cmd.PersistentFlags().String("config", "", "")

	return cmd
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNewLoader(t *testing.T) {
	loader := NewLoader()
	assert.NotNil(t, loader)
}

func TestLoader_SetupViperDefaults(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	loader := NewLoader()
	loader.setupViperDefaults()

	assert.Equal(t, "arm", viper.GetString("platform"))
	assert.Equal(t, "auto", viper.GetString("color"))
	assert.Equal(t, "build", viper.GetString("build_dir"))
	assert.Equal(t, "libs", viper.GetString("cache_dir"))
	assert.Equal(t, 1024, viper.GetInt("min_text_bytes"))
	assert.Equal(t, true, viper.GetBool("save_results"))
}

func TestLoader_LoadGlobalConfig(t *testing.T) {
	tempDir := t.TempDir()
	globalDir := filepath.Join(tempDir, "footprint")

	t.Run("loads yaml config", func(t *testing.T) {
		viper.Reset()
		writeFile(t, filepath.Join(globalDir, "config.yml"), "platform: esp32\nverbose: true\n")
		t.Setenv("XDG_CONFIG_HOME", tempDir)

		loader := NewLoader()
		loader.loadGlobalConfig()

		assert.Equal(t, "esp32", viper.GetString("platform"))
		assert.Equal(t, true, viper.GetBool("verbose"))
	})

	t.Run("loads json config", func(t *testing.T) {
		viper.Reset()
		os.Remove(filepath.Join(globalDir, "config.yml"))
		writeFile(t, filepath.Join(globalDir, "config.json"), `{"platform": "avr", "min_text_bytes": 256}`)
		t.Setenv("XDG_CONFIG_HOME", tempDir)

		loader := NewLoader()
		loader.loadGlobalConfig()

		assert.Equal(t, "avr", viper.GetString("platform"))
		assert.Equal(t, 256, viper.GetInt("min_text_bytes"))
	})

	t.Run("handles missing config dir gracefully", func(t *testing.T) {
		viper.Reset()
		t.Setenv("XDG_CONFIG_HOME", filepath.Join(tempDir, "nowhere"))

		loader := NewLoader()
		assert.NotPanics(t, func() {
			loader.loadGlobalConfig()
		})
		assert.Equal(t, "", viper.GetString("platform"))
	})

	viper.Reset()
}

func TestLoader_LoadLocalConfig(t *testing.T) {
	t.Run("loads local config from parent directory", func(t *testing.T) {
		viper.Reset()

		tempDir := t.TempDir()
		writeFile(t, filepath.Join(tempDir, ".footprint.toml"), "platform = \"avr\"\nbuild_dir = \"out\"\n")
		subDir := filepath.Join(tempDir, "bench")
		require.NoError(t, os.Mkdir(subDir, 0o755))

		loader := NewLoader()
		loader.loadLocalConfig(subDir)

		assert.Equal(t, "avr", viper.GetString("platform"))
		assert.Equal(t, "out", viper.GetString("build_dir"))
	})

	t.Run("local config overrides global", func(t *testing.T) {
		viper.Reset()

		globalHome := t.TempDir()
		writeFile(t, filepath.Join(globalHome, "footprint", "config.yml"), "platform: esp32\nverify: true\n")
		t.Setenv("XDG_CONFIG_HOME", globalHome)

		project := t.TempDir()
		writeFile(t, filepath.Join(project, ".footprint.yml"), "platform: avr\n")

		loader := NewLoader()
		loader.loadGlobalConfig()
		loader.loadLocalConfig(project)

		assert.Equal(t, "avr", viper.GetString("platform"))
		// keys the local file does not set survive from the global file
		assert.Equal(t, true, viper.GetBool("verify"))
	})

	viper.Reset()
}

func TestLoader_Load(t *testing.T) {
	t.Run("flags override files", func(t *testing.T) {
		viper.Reset()
		defer viper.Reset()
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())

		project := t.TempDir()
		writeFile(t, filepath.Join(project, ".footprint.yml"), "platform: esp32\nmin_text_bytes: 64\n")

		cmd := newTestCommand()
		require.NoError(t, cmd.ParseFlags([]string{"--work-dir", project, "--platform", "avr", "--verify"}))

		cfg, err := NewLoader().Load(cmd)
		require.NoError(t, err)

		assert.Equal(t, "avr", cfg.Platform)
		assert.True(t, cfg.Verify)
		assert.Equal(t, 64, cfg.MinTextBytes)
		assert.Equal(t, project, cfg.WorkDir)
		assert.Equal(t, filepath.Join(project, "build"), cfg.BuildDir)
	})

	t.Run("explicit config file", func(t *testing.T) {
		viper.Reset()
		defer viper.Reset()
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())

		project := t.TempDir()
		explicit := filepath.Join(t.TempDir(), "ci.yaml")
		writeFile(t, explicit, "reference: cJSON\nbench_file: /tmp/ci.bench\n")

		cmd := newTestCommand()
		require.NoError(t, cmd.ParseFlags([]string{"--work-dir", project, "--config", explicit}))

		cfg, err := NewLoader().Load(cmd)
		require.NoError(t, err)

		assert.Equal(t, "cJSON", cfg.Reference)
		assert.Equal(t, "/tmp/ci.bench", cfg.BenchFile)
	})

	t.Run("unreadable explicit config", func(t *testing.T) {
		viper.Reset()
		defer viper.Reset()

		cmd := newTestCommand()
		require.NoError(t, cmd.ParseFlags([]string{"--config", filepath.Join(t.TempDir(), "missing.yml")}))

		_, err := NewLoader().Load(cmd)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read config")
	})

	t.Run("invalid flag value", func(t *testing.T) {
		viper.Reset()
		defer viper.Reset()
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())

		cmd := newTestCommand()
		require.NoError(t, cmd.ParseFlags([]string{"--work-dir", t.TempDir(), "--color", "rainbow"}))

		_, err := NewLoader().Load(cmd)
		require.Error(t, err)
	})
}

func TestLoader_BindCommandFlags(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	parent := newTestCommand()
	child := &cobra.Command{Use: "bench"}
	parent.AddCommand(child)

	require.NoError(t, parent.PersistentFlags().Set("platform", "esp32"))

	loader := NewLoader()
	loader.bindCommandFlags(child)

	assert.Equal(t, "esp32", viper.GetString("platform"))
}

func TestLookupFlag(t *testing.T) {
	assert.Nil(t, lookupFlag(nil, "platform"))

	cmd := newTestCommand()
	assert.NotNil(t, lookupFlag(cmd, "platform"))
	assert.Nil(t, lookupFlag(cmd, "does-not-exist"))

	child := &cobra.Command{Use: "bench"}
	child.Flags().Bool("retain", false, "")
	cmd.AddCommand(child)

	assert.NotNil(t, lookupFlag(child, "retain"))
	assert.NotNil(t, lookupFlag(child, "platform"), "inherited from the parent")
}
