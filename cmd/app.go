package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Norgate-AV/footprint/internal/catalog"
	"github.com/Norgate-AV/footprint/internal/compiler"
	"github.com/Norgate-AV/footprint/internal/config"
	"github.com/Norgate-AV/footprint/internal/logging"
	"github.com/Norgate-AV/footprint/internal/report"
)

// Replaced in tests
var (
	defaultCatalog = catalog.Default
	newCommander   = func() compiler.Commander { return compiler.ExecCommander{} }
)

// app is the per-invocation state shared by every command
type app struct {
	cfg     *config.Config
	catalog catalog.Catalog
	console *report.Console
	logger  *slog.Logger
}

// setup loads the layered configuration and the catalog for cmd
func setup(cmd *cobra.Command) (*app, error) {
	cfg, err := config.NewLoader().Load(cmd)
	if err != nil {
		return nil, err
	}

	applyColor(cfg.Color, cmd.OutOrStdout())

	level := logging.ParseLevel(cfg.LogLevel)
	if cfg.Verbose {
		level = logging.LevelDebug
	}

	logger := logging.New(logging.Config{
		Level:   level,
		JSON:    cfg.LogJSON,
		Writer:  cmd.ErrOrStderr(),
		Service: "footprint",
	})

	cat, err := loadCatalog(cfg)
	if err != nil {
		return nil, err
	}

	logger.Debug("configuration loaded", "platform", cfg.Platform, "work_dir", cfg.WorkDir, "catalog", cfg.CatalogFile)

	return &app{
		cfg:     cfg,
		catalog: cat,
		console: report.NewConsole(cmd.OutOrStdout(), cfg.Verbose),
		logger:  logger,
	}, nil
}

// loadCatalog returns the built-in catalog with the configured overlay
func loadCatalog(cfg *config.Config) (catalog.Catalog, error) {
	cat := defaultCatalog()
	if cfg.CatalogFile == "" {
		return cat, nil
	}

	overlay, err := catalog.LoadOverlay(cfg.CatalogFile)
	if err != nil {
		return catalog.Catalog{}, err
	}

	cat, err = cat.Apply(overlay)
	if err != nil {
		return catalog.Catalog{}, err
	}

	if err := cat.Validate(); err != nil {
		return catalog.Catalog{}, fmt.Errorf("invalid catalog: %w", err)
	}

	return cat, nil
}

// reference is the configured reference library or the catalog default
func (a *app) reference() string {
	if a.cfg.Reference != "" {
		return a.cfg.Reference
	}

	return a.catalog.Reference
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return term.IsTerminal(int(f.Fd()))
}
