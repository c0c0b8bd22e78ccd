// Package bench runs the complete benchmark for one platform: cleanup,
// dependency fetch, the build matrix, comparison, history and export.
package bench

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/Norgate-AV/footprint/internal/cache"
	"github.com/Norgate-AV/footprint/internal/catalog"
	"github.com/Norgate-AV/footprint/internal/compiler"
	"github.com/Norgate-AV/footprint/internal/config"
	"github.com/Norgate-AV/footprint/internal/elfinspect"
	"github.com/Norgate-AV/footprint/internal/fetch"
	"github.com/Norgate-AV/footprint/internal/logging"
	"github.com/Norgate-AV/footprint/internal/pipeline"
	"github.com/Norgate-AV/footprint/internal/report"
	"github.com/Norgate-AV/footprint/internal/results"
)

// Result is everything one run produced
type Result struct {
	RunID       string
	Platform    catalog.Platform
	Reference   string
	Snapshot    results.Snapshot
	Outcomes    []pipeline.Outcome
	Comparisons []results.Comparison
	History     []report.HistoryDelta
	Fetched     fetch.Summary
}

// Runner orchestrates a platform run
type Runner struct {
	cfg     *config.Config
	catalog catalog.Catalog
	console *report.Console
	logger  *slog.Logger

	commander  compiler.Commander
	analyzer   compiler.Analyzer
	httpClient *http.Client
	history    *cache.Cache
	exporters  []report.Exporter
	now        func() time.Time
}

// Option configures a Runner
type Option func(*Runner)

// WithCommander replaces the process runner for every external tool
func WithCommander(c compiler.Commander) Option {
	return func(r *Runner) { r.commander = c }
}

// WithAnalyzer replaces the binutils analyzer
func WithAnalyzer(a compiler.Analyzer) Option {
	return func(r *Runner) { r.analyzer = a }
}

// WithHTTPClient sets the client used for dependency downloads
func WithHTTPClient(c *http.Client) Option {
	return func(r *Runner) { r.httpClient = c }
}

// WithHistory records sizes in h and reports changes since the last run
func WithHistory(h *cache.Cache) Option {
	return func(r *Runner) { r.history = h }
}

// WithExporters sets the sinks the final snapshot is published to
func WithExporters(e ...report.Exporter) Option {
	return func(r *Runner) { r.exporters = e }
}

// WithLogger sets the diagnostic logger
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithClock overrides the snapshot timestamp source
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// NewRunner creates a runner for cfg over cat, reporting to console
func NewRunner(cfg *config.Config, cat catalog.Catalog, console *report.Console, opts ...Option) *Runner {
	r := &Runner{
		cfg:     cfg,
		catalog: cat,
		console: console,
		logger:  logging.Discard(),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.commander == nil {
		r.commander = compiler.ExecCommander{}
	}

	return r
}

// Exporters builds the snapshot sinks enabled in cfg. The returned closer
// releases network clients.
func Exporters(cfg *config.Config) ([]report.Exporter, func()) {
	var (
		exporters []report.Exporter
		closers   []func()
	)

	if cfg.SaveResults {
		exporters = append(exporters, report.JSONExporter{Dir: cfg.ResultsDir})
	}

	if cfg.BenchFile != "" {
		exporters = append(exporters, report.BenchExporter{Path: cfg.BenchFile})
	}

	if cfg.MetricsFile != "" {
		exporters = append(exporters, report.MetricsExporter{Path: cfg.MetricsFile})
	}

	if cfg.Influx.URL != "" {
		influx := report.NewInfluxExporter(report.InfluxConfig{
			URL:    cfg.Influx.URL,
			Token:  cfg.Influx.Token,
			Org:    cfg.Influx.Org,
			Bucket: cfg.Influx.Bucket,
		})
		exporters = append(exporters, influx)
		closers = append(closers, influx.Close)
	}

	return exporters, func() {
		for _, c := range closers {
			c()
		}
	}
}

// Reference returns the library deltas are computed against
func (r *Runner) Reference() string {
	if r.cfg.Reference != "" {
		return r.cfg.Reference
	}

	return r.catalog.Reference
}

// Clean removes the build artifacts. The dependency cache is never touched.
func (r *Runner) Clean() (int, error) {
	r.console.Section("Cleaning Build Artifacts")

	n, err := cache.RemoveOutputs(r.cfg.BuildDir)
	if err != nil {
		return n, err
	}

	r.logger.Debug("removed build artifacts", "dir", r.cfg.BuildDir, "count", n)
	r.console.Removed(n)

	return n, nil
}

// Run benchmarks the configured platform. Any fetch, compile or link
// failure aborts the run and is returned.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	platform, err := r.catalog.Platform(r.cfg.Platform)
	if err != nil {
		return nil, err
	}

	libs := r.catalog.ApplicableLibraries(platform)
	if len(libs) == 0 {
		return nil, fmt.Errorf("no libraries apply to platform %q", platform.ID)
	}

	res := &Result{
		RunID:     uuid.NewString(),
		Platform:  platform,
		Reference: r.Reference(),
	}

	r.logger.Info("starting run", "run_id", res.RunID, "platform", platform.ID, "libraries", len(libs))

	_, compare := r.catalog.Library(res.Reference)
	if !compare {
		r.console.Warn(fmt.Sprintf("reference library %q is not in the catalog; comparisons are skipped", res.Reference))
	}

	if !r.cfg.NoClean {
		if _, err := r.Clean(); err != nil {
			return nil, err
		}
	}

	r.console.Banner(platform, libs)

	if res.Fetched, err = r.fetch(ctx, libs); err != nil {
		return nil, err
	}

	table := results.NewTable()
	pipe := r.pipeline(platform, table)

	for _, cfg := range platform.Configs {
		r.console.ConfigHeader(cfg)

		for i, lib := range libs {
			pair := pipeline.Pair{
				Platform: platform,
				Config:   cfg,
				Library:  lib,
				Index:    i + 1,
				Total:    len(libs),
			}

			out, err := pipe.Run(ctx, pair)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", pair, err)
			}

			res.Outcomes = append(res.Outcomes, out)
		}

		if !compare {
			continue
		}

		if cmp, ok := results.Compare(table, cfg.Name, res.Reference); ok {
			r.console.Comparison(cmp)
			res.Comparisons = append(res.Comparisons, cmp)
		}
	}

	res.History = r.recordHistory(res)

	r.console.Summary(r.builtExecutables(), table)
	r.console.History(res.History)

	res.Snapshot = results.Snapshot{
		Platform:    platform.Name,
		PlatformID:  platform.ID,
		GeneratedAt: r.now(),
		Results:     table,
		Versions:    r.catalog.Versions(libs),
	}

	r.export(ctx, res.Snapshot)
	r.console.Done()

	return res, nil
}

func (r *Runner) fetch(ctx context.Context, libs []catalog.Library) (fetch.Summary, error) {
	r.console.Section("Checking Dependencies")

	opts := []fetch.Option{
		fetch.WithGit(r.commander),
		fetch.WithLogger(r.logger),
		fetch.WithNotify(r.console.Fetched),
	}

	if r.httpClient != nil {
		opts = append(opts, fetch.WithHTTPClient(r.httpClient))
	}

	sum, err := fetch.New(r.cfg.CacheDir, opts...).Fetch(ctx, libs)
	if err != nil {
		return sum, fmt.Errorf("dependency fetch failed: %w", err)
	}

	r.logger.Debug("dependencies ready", "network", sum.Network(), "normalized", sum.Normalized, "skipped", sum.Skipped)
	r.console.Blank()

	return sum, nil
}

func (r *Runner) pipeline(p catalog.Platform, table *results.Table) *pipeline.Pipeline {
	analyzer := r.analyzer
	if analyzer == nil {
		analyzer = compiler.NewToolAnalyzer(p, r.commander)
	}

	opts := pipeline.Options{
		SourceDir:    r.cfg.SourceDir,
		BuildDir:     r.cfg.BuildDir,
		CacheDir:     r.cfg.CacheDir,
		IncludeDirs:  r.cfg.IncludeDirs,
		MinTextBytes: uint64(max(r.cfg.MinTextBytes, 0)),
		TopSymbols:   r.cfg.TopSymbols,
		Verify:       r.cfg.Verify,
		RetainDir:    r.cfg.RetainDir,
		Sink:         r.console,
		Logger:       r.logger,
	}

	if r.cfg.Verify {
		opts.Inspector = elfinspect.Inspector{Patterns: compiler.DefaultExpectedSymbols}
	}

	return pipeline.New(compiler.NewCommandBuilder(r.commander, r.logger), analyzer, table, opts)
}

// recordHistory stores every measured size and returns the changes against
// the previous run. History problems never fail the run.
func (r *Runner) recordHistory(res *Result) []report.HistoryDelta {
	if r.history == nil {
		return nil
	}

	var deltas []report.HistoryDelta
	for _, out := range res.Outcomes {
		if out.Size == 0 {
			continue
		}

		pair := out.Pair
		src := filepath.Join(r.cfg.SourceDir, pair.Library.Source)
		flags := append(append([]string{}, pair.Platform.Flags...), pair.Config.Flags...)

		hash, err := cache.HashInputs(src, flags, pair.Platform.Prefix)
		if err != nil {
			r.logger.Warn("failed to hash build inputs", "pair", pair.String(), "error", err)
		}

		entry := cache.Entry{RunID: res.RunID, Bytes: out.Size, InputHash: hash, Timestamp: r.now()}

		prev, err := r.history.Previous(pair.Platform.ID, pair.Config.Name, pair.Library.Name, res.RunID)
		if err != nil {
			r.warnHistory(err)
			return deltas
		}

		if err := r.history.Record(pair.Platform.ID, pair.Config.Name, pair.Library.Name, entry); err != nil {
			r.warnHistory(err)
			return deltas
		}

		if prev != nil {
			deltas = append(deltas, report.HistoryDelta{
				Config:        pair.Config.Name,
				Library:       pair.Library.Name,
				Previous:      prev.Bytes,
				Current:       out.Size,
				InputsChanged: prev.InputsChanged(entry),
			})
		}
	}

	return deltas
}

func (r *Runner) warnHistory(err error) {
	r.logger.Warn("run history unavailable", "error", err)
	r.console.Warn(fmt.Sprintf("run history unavailable: %v", err))
}

// builtExecutables lists the .elf files in the build directory with their
// on-disk size
func (r *Runner) builtExecutables() []report.ELFFile {
	names, err := cache.CollectOutputs(r.cfg.BuildDir, ".elf")
	if err != nil {
		r.logger.Debug("cannot list executables", "error", err)
		return nil
	}

	files := make([]report.ELFFile, 0, len(names))
	for _, name := range names {
		info, err := os.Stat(filepath.Join(r.cfg.BuildDir, name))
		if err != nil {
			continue
		}

		files = append(files, report.ELFFile{Name: name, Bytes: info.Size()})
	}

	return files
}

// export publishes the snapshot to every sink. Failures are warnings.
func (r *Runner) export(ctx context.Context, s results.Snapshot) {
	for _, e := range r.exporters {
		dest, err := e.Export(ctx, s)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}

			r.logger.Warn("export failed", "exporter", e.Name(), "error", err)
			r.console.Warn(fmt.Sprintf("%s export failed: %v", e.Name(), err))

			continue
		}

		if dest != "" {
			r.console.Saved(e.Name(), dest)
		}
	}
}
