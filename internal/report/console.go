// Package report renders run progress and results for the operator and
// exports the final results table to file and network sinks.
package report

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"fortio.org/safecast"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fatih/color"

	"github.com/Norgate-AV/footprint/internal/cache"
	"github.com/Norgate-AV/footprint/internal/catalog"
	"github.com/Norgate-AV/footprint/internal/compiler"
	"github.com/Norgate-AV/footprint/internal/fetch"
	"github.com/Norgate-AV/footprint/internal/pipeline"
	"github.com/Norgate-AV/footprint/internal/results"
)

const rule = "============================================================"

// Console writes the human-readable run report. It implements
// pipeline.Sink so build progress lands in the same stream.
type Console struct {
	out     io.Writer
	verbose bool

	green  *color.Color
	red    *color.Color
	yellow *color.Color
	faint  *color.Color
}

// NewConsole creates a console writing to w. Verbose adds stage timings.
func NewConsole(w io.Writer, verbose bool) *Console {
	return &Console{
		out:     w,
		verbose: verbose,
		green:   color.New(color.FgGreen),
		red:     color.New(color.FgRed),
		yellow:  color.New(color.FgYellow),
		faint:   color.New(color.Faint),
	}
}

func (c *Console) println(a ...any) {
	fmt.Fprintln(c.out, a...)
}

func (c *Console) printf(format string, a ...any) {
	fmt.Fprintf(c.out, format, a...)
}

// Banner opens a platform run
func (c *Console) Banner(p catalog.Platform, libs []catalog.Library) {
	names := make([]string, 0, len(libs))
	for _, l := range libs {
		names = append(names, l.Name)
	}

	c.green.Fprintln(c.out, "=== Embedded Binary Size Benchmark ===")
	c.printf("Target: %s\n", p.Name)
	c.printf("Comparing: %s\n", strings.Join(names, ", "))
	c.println()
}

// Blank ends a block of output
func (c *Console) Blank() {
	c.println()
}

// Section prints a section title such as the dependency check or cleanup
func (c *Console) Section(title string) {
	c.yellow.Fprintf(c.out, "=== %s ===\n", title)
}

// Removed reports the outcome of an artifact cleanup
func (c *Console) Removed(n int) {
	if n == 0 {
		c.println("No build artifacts to remove")
	} else {
		c.green.Fprintf(c.out, "✓ Removed %d file(s)\n", n)
	}

	c.println()
}

// Fetched reports one dependency acquisition. It matches the fetcher's
// notify callback.
func (c *Console) Fetched(a fetch.Action, target string) {
	switch a {
	case fetch.ActionSkipped:
		c.printf("✓ %s already exists\n", target)
	case fetch.ActionDownloaded:
		c.green.Fprintf(c.out, "✓ Downloaded %s\n", target)
	case fetch.ActionCloned:
		c.green.Fprintf(c.out, "✓ Cloned %s\n", target)
	case fetch.ActionNormalized:
		c.printf("✓ Prepared %s\n", target)
	}
}

// ConfigHeader opens one build config of a platform run
func (c *Console) ConfigHeader(cfg catalog.BuildConfig) {
	c.yellow.Fprintln(c.out, rule)
	c.yellow.Fprintf(c.out, "Configuration: %s\n", cfg.Name)
	c.yellow.Fprintf(c.out, "Flags: %s\n", strings.Join(cfg.Flags, " "))
	c.yellow.Fprintln(c.out, rule)
	c.println()
}

// OnEvent renders pipeline progress
func (c *Console) OnEvent(e pipeline.Event) {
	switch e.Status {
	case pipeline.StatusWorking:
		c.stageStarted(e)
	case pipeline.StatusDone:
		c.stageDone(e)
	case pipeline.StatusError:
		c.red.Fprintf(c.out, "✗ %s failed\n", stageNoun(e.Stage))
		for _, line := range e.Detail {
			c.println(line)
		}
	case pipeline.StatusWarning:
		c.yellow.Fprintf(c.out, "⚠ %s\n", e.Message)
	case pipeline.StatusInfo:
		c.info(e)
	}
}

func (c *Console) stageStarted(e pipeline.Event) {
	switch e.Stage {
	case pipeline.StageCompile:
		c.green.Fprintf(c.out, "[%d/%d] Building %s...\n", e.Pair.Index, e.Pair.Total, e.Pair.Library.Name)
		if e.Pair.Library.Description != "" {
			c.printf("Description: %s\n", e.Pair.Library.Description)
		}

		c.println()
		c.println("Compiling to object file...")
	case pipeline.StageLink:
		c.println("Linking to ELF...")
	}
}

func (c *Console) stageDone(e pipeline.Event) {
	if c.verbose {
		c.faint.Fprintf(c.out, "  %s took %s\n", e.Stage, e.Elapsed.Round(time.Millisecond))
	}

	switch e.Stage {
	case pipeline.StageLink:
		c.green.Fprintf(c.out, "✓ Built: %s\n", filepath.Base(pipeline.ArtifactFor("", e.Pair).Executable))
	case pipeline.StageRecord:
		c.println()
		c.println()
	}
}

func (c *Console) info(e pipeline.Event) {
	switch e.Message {
	case "size analysis":
		c.println()
		c.println("=== Size Analysis ===")
	case "largest symbols":
		c.println()
		c.println("=== Top Symbols by Size ===")

		if syms := compiler.ParseSymbols(strings.Join(e.Detail, "\n")); len(syms) == len(e.Detail) {
			for _, s := range syms {
				c.printf("%8d  %s  %s\n", s.Size, s.Type, s.Name)
			}

			return
		}
	case "ELF inspection":
		c.println()
		c.println("=== ELF Inspection ===")
	}

	for _, line := range e.Detail {
		c.println(line)
	}
}

func stageNoun(s pipeline.Stage) string {
	switch s {
	case pipeline.StageCompile:
		return "Compilation"
	case pipeline.StageLink:
		return "Linking"
	case pipeline.StageAnalyze:
		return "Analysis"
	default:
		return string(s)
	}
}

// Comparison prints the per-config size rows and the reference narrative
func (c *Console) Comparison(cmp results.Comparison) {
	c.yellow.Fprintf(c.out, "=== Comparison (%s) ===\n", cmp.Config)

	narrative := false
	for _, line := range cmp.Lines() {
		if line.Narrative && !narrative {
			c.println()
			narrative = true
		}

		switch line.Verdict {
		case results.RefSmaller:
			c.green.Fprintln(c.out, line.Text)
		case results.RefLarger:
			c.red.Fprintln(c.out, line.Text)
		default:
			c.println(line.Text)
		}
	}

	c.println()
	c.println("---")
	c.println()
}

// ELFFile is one built executable listed in the summary
type ELFFile struct {
	Name  string
	Bytes int64
}

// Summary prints the built executables and the library by config table
func (c *Console) Summary(elfs []ELFFile, t *results.Table) {
	c.green.Fprintln(c.out, "=== Summary ===")
	c.println()

	c.println("Built ELF files:")
	for _, f := range elfs {
		c.printf("  %-50s %6.1f KB\n", f.Name, float64(f.Bytes)/1024)
	}

	c.println()

	if t == nil || t.Empty() {
		return
	}

	c.println("Code Size Summary (.text section):")
	c.println()
	c.println(SummaryTable(t))
	c.println()
}

// SummaryTable renders the results as a Library by config table
func SummaryTable(t *results.Table) string {
	configs := t.Configs()
	headers := append([]string{"Library"}, configs...)

	rows := make([][]string, 0)
	for _, lib := range t.AllLibraries() {
		row := []string{lib}
		for _, cfg := range configs {
			size, ok := t.Get(cfg, lib)
			if !ok {
				row = append(row, "-")
				continue
			}

			row = append(row, fmt.Sprintf("%6.1f KB (%5d B)", results.KB(size), size))
		}

		rows = append(rows, row)
	}

	return renderTable(headers, rows)
}

// HistoryTable lists stored size series with their newest entry
func HistoryTable(series []cache.Series) string {
	rows := make([][]string, 0, len(series))
	for _, s := range series {
		latest, ok := s.Latest()
		if !ok {
			continue
		}

		rows = append(rows, []string{
			s.Platform,
			s.Config,
			s.Library,
			fmt.Sprintf("%d", len(s.Entries)),
			fmt.Sprintf("%d B", latest.Bytes),
			latest.Timestamp.Local().Format("2006-01-02 15:04"),
		})
	}

	return renderTable([]string{"Platform", "Config", "Library", "Runs", "Latest", "Recorded"}, rows)
}

func renderTable(headers []string, rows [][]string) string {
	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)

	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}

			return cell
		}).
		Render()
}

// HistoryDelta is a size change against the previous recorded run
type HistoryDelta struct {
	Config   string
	Library  string
	Previous uint64
	Current  uint64

	// InputsChanged is true when source, flags or toolchain differ from
	// the previous run
	InputsChanged bool
}

// Line renders the delta as one sentence
func (d HistoryDelta) Line() string {
	diff := safecast.MustConv[int64](d.Current) - safecast.MustConv[int64](d.Previous)

	var change string
	switch {
	case diff == 0:
		change = "unchanged"
	case diff > 0:
		change = fmt.Sprintf("+%d bytes", diff)
	default:
		change = fmt.Sprintf("%d bytes", diff)
	}

	line := fmt.Sprintf("%-20s [%s] %7d -> %7d (%s)", d.Library, d.Config, d.Previous, d.Current, change)
	if d.InputsChanged {
		line += ", inputs changed"
	}

	return line
}

// History prints changes since the last recorded run
func (c *Console) History(deltas []HistoryDelta) {
	if len(deltas) == 0 {
		return
	}

	c.yellow.Fprintln(c.out, "=== Since Last Run ===")
	for _, d := range deltas {
		switch {
		case d.Current < d.Previous:
			c.green.Fprintln(c.out, d.Line())
		case d.Current > d.Previous:
			c.red.Fprintln(c.out, d.Line())
		default:
			c.println(d.Line())
		}
	}

	c.println()
}

// Saved reports a written results file
func (c *Console) Saved(what, path string) {
	c.printf("✓ %s saved to %s\n", what, path)
}

// Warn prints a non-fatal problem outside the pipeline
func (c *Console) Warn(msg string) {
	c.yellow.Fprintf(c.out, "⚠ %s\n", msg)
}

// Interrupted reports a user interrupt
func (c *Console) Interrupted() {
	c.println()
	c.yellow.Fprintln(c.out, "Interrupted by user")
}

// Error prints a fatal error
func (c *Console) Error(err error) {
	c.red.Fprintf(c.out, "Error: %v\n", err)
}

// Done closes a successful run
func (c *Console) Done() {
	c.green.Fprintln(c.out, "Done!")
}
