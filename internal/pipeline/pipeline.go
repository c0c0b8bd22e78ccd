// Package pipeline builds and measures one (library, config) pair at a time.
//
// Each pair moves through an explicit state machine:
//
//	compile -> link -> analyze -> record -> done
//
// A compile or link failure moves the pair to failed and the error is
// returned to the caller, which aborts the run. Analysis findings such as
// missing symbols or a suspiciously small image are warnings only.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Norgate-AV/footprint/internal/cache"
	"github.com/Norgate-AV/footprint/internal/compiler"
	"github.com/Norgate-AV/footprint/internal/logging"
	"github.com/Norgate-AV/footprint/internal/results"
)

const (
	// DefaultMinTextBytes is the size below which an image is suspicious
	DefaultMinTextBytes = 1024

	// DefaultTopSymbols is how many of the largest symbols are shown
	DefaultTopSymbols = 10
)

// Options configures a Pipeline
type Options struct {
	SourceDir   string
	BuildDir    string
	CacheDir    string
	IncludeDirs []string

	// MinTextBytes flags images below this .text size; 0 disables the check
	MinTextBytes uint64

	// ExpectedSymbols defaults to compiler.DefaultExpectedSymbols
	ExpectedSymbols []string

	// TopSymbols is the number of largest symbols to collect
	TopSymbols int

	// Verify runs the Inspector after analysis
	Verify    bool
	Inspector Inspector

	// RetainDir receives a copy of every analyzed pair's artifacts
	RetainDir string

	Sink   Sink
	Logger *slog.Logger
}

// Pipeline runs pairs through the build stages
type Pipeline struct {
	builder  *compiler.CommandBuilder
	analyzer compiler.Analyzer
	table    *results.Table
	opts     Options
	logger   *slog.Logger
}

// New creates a pipeline that records into table
func New(builder *compiler.CommandBuilder, analyzer compiler.Analyzer, table *results.Table, opts Options) *Pipeline {
	if opts.ExpectedSymbols == nil {
		opts.ExpectedSymbols = compiler.DefaultExpectedSymbols
	}

	if opts.TopSymbols == 0 {
		opts.TopSymbols = DefaultTopSymbols
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	return &Pipeline{
		builder:  builder,
		analyzer: analyzer,
		table:    table,
		opts:     opts,
		logger:   logger,
	}
}

// Includes returns the include directories for pair in search order
func (p *Pipeline) Includes(pair Pair) []string {
	dirs := make([]string, 0, len(p.opts.IncludeDirs)+2+len(pair.Library.Includes))
	dirs = append(dirs, p.opts.IncludeDirs...)
	dirs = append(dirs, p.opts.SourceDir, p.opts.CacheDir)

	for _, inc := range pair.Library.Includes {
		dirs = append(dirs, filepath.Join(p.opts.CacheDir, inc))
	}

	return dirs
}

// Run drives pair from compile to done. On failure the outcome's stage is
// StageFailed and its Diagnostics hold the failing tool's output.
func (p *Pipeline) Run(ctx context.Context, pair Pair) (Outcome, error) {
	out := Outcome{
		Pair:     pair,
		Artifact: ArtifactFor(p.opts.BuildDir, pair),
		Stage:    StageCompile,
	}

	for out.Stage != StageDone {
		if err := ctx.Err(); err != nil {
			out.Stage = StageFailed
			return out, err
		}

		stage := out.Stage
		start := time.Now()
		p.emit(Event{Pair: pair, Stage: stage, Status: StatusWorking})

		next, err := p.step(ctx, stage, &out)
		elapsed := time.Since(start)

		if err != nil {
			out.Stage = StageFailed
			if ctxErr := ctx.Err(); ctxErr != nil {
				return out, ctxErr
			}

			p.logger.Debug("stage failed", "pair", pair.String(), "stage", stage, "error", err)
			p.emit(Event{Pair: pair, Stage: stage, Status: StatusError, Err: err, Detail: out.Diagnostics, Elapsed: elapsed})

			return out, err
		}

		p.logger.Debug("stage done", "pair", pair.String(), "stage", stage, "elapsed", elapsed)
		p.emit(Event{Pair: pair, Stage: stage, Status: StatusDone, Elapsed: elapsed})
		out.Stage = next
	}

	return out, nil
}

func (p *Pipeline) step(ctx context.Context, stage Stage, out *Outcome) (Stage, error) {
	switch stage {
	case StageCompile:
		return StageLink, p.compile(ctx, out)
	case StageLink:
		return StageAnalyze, p.link(ctx, out)
	case StageAnalyze:
		p.analyze(ctx, out)
		return StageRecord, nil
	case StageRecord:
		p.table.Set(out.Pair.Config.Name, out.Pair.Library.Name, out.Size)
		return StageDone, nil
	default:
		return StageFailed, fmt.Errorf("invalid pipeline stage %q", stage)
	}
}

func (p *Pipeline) compile(ctx context.Context, out *Outcome) error {
	if err := os.MkdirAll(p.opts.BuildDir, 0o755); err != nil {
		return fmt.Errorf("failed to create build directory: %w", err)
	}

	pair := out.Pair
	src := filepath.Join(p.opts.SourceDir, pair.Library.Source)

	res, err := p.builder.Compile(ctx, pair.Platform, pair.Config, p.Includes(pair), src, out.Artifact.Object)
	diag := append(compiler.NonEmptyLines(res.Stderr), compiler.NonEmptyLines(res.Stdout)...)
	if err != nil {
		out.Diagnostics = diag
		return err
	}

	out.CompilerOutput = diag
	if len(diag) > 0 {
		p.emit(Event{Pair: pair, Stage: StageCompile, Status: StatusInfo, Message: "compiler output", Detail: diag})
	}

	return nil
}

func (p *Pipeline) link(ctx context.Context, out *Outcome) error {
	pair := out.Pair
	a := out.Artifact

	notes, err := p.builder.Link(ctx, pair.Platform, pair.Config, a.Object, a.Executable, a.Map)
	if err != nil {
		out.Diagnostics = notes
		return err
	}

	out.LinkerNotes = notes
	if len(notes) > 0 {
		p.emit(Event{Pair: pair, Stage: StageLink, Status: StatusInfo, Message: "linker output", Detail: notes})
	}

	return nil
}

// analyze never fails the pair: every problem it finds is a warning
func (p *Pipeline) analyze(ctx context.Context, out *Outcome) {
	elf := out.Artifact.Executable

	rep, err := p.analyzer.Size(ctx, elf)
	if err != nil {
		p.warn(out, StageAnalyze, fmt.Sprintf("size analysis failed: %v", err))
	}

	out.Size = rep.Text
	out.SizeRaw = rep.Raw
	if err == nil && out.Size == 0 {
		p.warn(out, StageAnalyze, "could not determine .text size; recording as unmeasured")
	}

	if rows, err := p.analyzer.Sections(ctx, elf); err != nil {
		p.logger.Debug("section sizes unavailable", "elf", elf, "error", err)
	} else {
		out.Sections = rows
	}

	if syms, err := p.analyzer.TopSymbols(ctx, elf, p.opts.TopSymbols); err != nil {
		p.logger.Debug("top symbols unavailable", "elf", elf, "error", err)
	} else {
		out.TopSymbols = syms
	}

	if out.SizeRaw != "" || len(out.Sections) > 0 {
		detail := append(compiler.NonEmptyLines(out.SizeRaw), out.Sections...)
		p.emit(Event{Pair: out.Pair, Stage: StageAnalyze, Status: StatusInfo, Message: "size analysis", Detail: detail})
	}

	p.verify(ctx, out)

	if p.opts.RetainDir != "" {
		p.retain(out)
	}
}

func (p *Pipeline) verify(ctx context.Context, out *Outcome) {
	elf := out.Artifact.Executable

	symbols, err := p.analyzer.Symbols(ctx, elf)
	switch {
	case err != nil:
		p.warn(out, StageAnalyze, fmt.Sprintf("symbol check skipped: %v", err))
	case len(compiler.MatchExpectedSymbols(symbols, p.opts.ExpectedSymbols)) == 0:
		p.warn(out, StageAnalyze, fmt.Sprintf("no expected symbols (%v) found; the benchmarked code may have been optimized away", p.opts.ExpectedSymbols))
	}

	if p.opts.MinTextBytes > 0 && out.Size > 0 && out.Size < p.opts.MinTextBytes {
		p.warn(out, StageAnalyze, fmt.Sprintf(".text is only %d bytes (below %d); suspiciously small", out.Size, p.opts.MinTextBytes))
	}

	if !p.opts.Verify {
		return
	}

	if len(out.TopSymbols) > 0 {
		p.emit(Event{Pair: out.Pair, Stage: StageAnalyze, Status: StatusInfo, Message: "largest symbols", Detail: out.TopSymbols})
	}

	if p.opts.Inspector == nil {
		return
	}

	lines, err := p.opts.Inspector.Inspect(elf)
	if err != nil {
		p.warn(out, StageAnalyze, fmt.Sprintf("ELF inspection failed: %v", err))
		return
	}

	out.Inspection = lines
	p.emit(Event{Pair: out.Pair, Stage: StageAnalyze, Status: StatusInfo, Message: "ELF inspection", Detail: lines})
}

func (p *Pipeline) retain(out *Outcome) {
	a := out.Artifact
	dest := filepath.Join(p.opts.RetainDir, out.Pair.Platform.ID, out.Pair.Stem())

	if err := cache.CopyArtifacts(filepath.Dir(a.Executable), dest, a.Names()); err != nil {
		p.warn(out, StageAnalyze, fmt.Sprintf("failed to retain artifacts: %v", err))
		return
	}

	out.Retained = dest
}

func (p *Pipeline) warn(out *Outcome, stage Stage, msg string) {
	out.Warnings = append(out.Warnings, Warning{Stage: stage, Message: msg})
	p.logger.Debug("warning", "pair", out.Pair.String(), "message", msg)
	p.emit(Event{Pair: out.Pair, Stage: stage, Status: StatusWarning, Message: msg})
}

func (p *Pipeline) emit(e Event) {
	if p.opts.Sink != nil {
		p.opts.Sink.OnEvent(e)
	}
}
