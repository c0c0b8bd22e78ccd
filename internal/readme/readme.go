// Package readme rewrites the size tables of a markdown document from
// persisted result snapshots.
package readme

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/Norgate-AV/footprint/internal/logging"
	"github.com/Norgate-AV/footprint/internal/results"
	"github.com/Norgate-AV/footprint/internal/utils"
)

// Column maps one build config to a size column
type Column struct {
	Header string
	Config string
}

// Table describes one synchronized markdown table. The first column is the
// primary sort key.
type Table struct {
	PlatformID string
	Anchor     string
	Columns    []Column
}

// DefaultTables returns the tables kept in sync for the built-in platforms
func DefaultTables() []Table {
	return []Table{
		{
			PlatformID: "arm",
			Anchor:     "#### ARM Cortex-M",
			Columns: []Column{
				{Header: "M7", Config: "cortex-m7_os"},
				{Header: "M0+", Config: "cortex-m0plus_os"},
			},
		},
		{
			PlatformID: "esp32",
			Anchor:     "#### ESP32",
			Columns:    []Column{{Header: "ESP32", Config: "esp32_os"}},
		},
		{
			PlatformID: "avr",
			Anchor:     "#### AVR",
			Columns:    []Column{{Header: "ATmega2560", Config: "atmega2560_os"}},
		},
	}
}

var (
	headerRow    = regexp.MustCompile(`^\|\s*Library\s*\|`)
	separatorRow = regexp.MustCompile(`^\|[-\s|:]+\|\s*$`)
)

// Outcome reports what happened to one table
type Outcome struct {
	PlatformID string
	Updated    bool

	// Warning is set when the table was left untouched
	Warning string
}

// Syncer updates markdown tables from results_<platform>.json files
type Syncer struct {
	ResultsDir string
	Reference  string
	Tables     []Table

	logger *slog.Logger
}

// NewSyncer creates a syncer for the default tables
func NewSyncer(resultsDir, reference string, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = logging.Discard()
	}

	return &Syncer{
		ResultsDir: resultsDir,
		Reference:  reference,
		Tables:     DefaultTables(),
		logger:     logger,
	}
}

// SyncFile rewrites the document at path in place. The file is only written
// when its content changes.
func (s *Syncer) SyncFile(path string) ([]Outcome, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	doc, outcomes := s.Sync(string(data))
	if doc == string(data) {
		return outcomes, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return outcomes, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if err := os.WriteFile(path, []byte(doc), info.Mode().Perm()); err != nil {
		return outcomes, fmt.Errorf("failed to write %s: %w", path, err)
	}

	return outcomes, nil
}

// Sync returns doc with every table it can locate replaced. Tables whose
// results or anchor are missing are left untouched and reported with a
// warning.
func (s *Syncer) Sync(doc string) (string, []Outcome) {
	outcomes := make([]Outcome, 0, len(s.Tables))

	for _, t := range s.Tables {
		out := Outcome{PlatformID: t.PlatformID}

		path := filepath.Join(s.ResultsDir, utils.ResultsFileName(t.PlatformID))
		snap, err := results.Read(path)
		if err != nil {
			out.Warning = fmt.Sprintf("results file not found or unreadable: %s", path)
			s.logger.Debug("skipping table", "platform", t.PlatformID, "error", err)
			outcomes = append(outcomes, out)

			continue
		}

		rendered, err := Render(t, snap, s.Reference)
		if err != nil {
			out.Warning = err.Error()
			outcomes = append(outcomes, out)

			continue
		}

		updated, ok := Replace(doc, t.Anchor, rendered)
		if !ok {
			out.Warning = fmt.Sprintf("could not locate the %q table", t.Anchor)
			outcomes = append(outcomes, out)

			continue
		}

		doc = updated
		out.Updated = true
		outcomes = append(outcomes, out)
	}

	return doc, outcomes
}

type row struct {
	name    string
	sizes   []float64
	present []bool
	version string
}

// Render formats the table for snap. Rows are sorted ascending by the
// primary column, ties by library name, and the reference is bold.
func Render(t Table, snap results.Snapshot, reference string) (string, error) {
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("table %q has no columns", t.Anchor)
	}

	primary := t.Columns[0].Config
	if snap.Results == nil || snap.Results.Len(primary) == 0 {
		return "", fmt.Errorf("no %s results for %s", primary, t.PlatformID)
	}

	rows := make([]row, 0)
	for _, lib := range snap.Results.AllLibraries() {
		r := row{name: lib, version: snap.Versions[lib]}
		for _, col := range t.Columns {
			size, ok := snap.Results.Get(col.Config, lib)
			r.sizes = append(r.sizes, results.KB(size))
			r.present = append(r.present, ok)
		}

		if lib == reference {
			r.name = "**" + lib + "**"
		}

		rows = append(rows, r)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.present[0] != b.present[0] {
			return a.present[0]
		}

		if a.sizes[0] != b.sizes[0] {
			return a.sizes[0] < b.sizes[0]
		}

		return strings.Trim(a.name, "*") < strings.Trim(b.name, "*")
	})

	header := []string{"Library"}
	for _, col := range t.Columns {
		header = append(header, col.Header)
	}

	header = append(header, "Version")

	cells := make([][]string, 0, len(rows))
	for _, r := range rows {
		line := []string{r.name}
		for i := range t.Columns {
			if !r.present[i] {
				line = append(line, "-")
				continue
			}

			line = append(line, fmt.Sprintf("%5.1f KB", r.sizes[i]))
		}

		line = append(line, r.version)
		cells = append(cells, line)
	}

	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = runewidth.StringWidth(h)
	}

	for _, line := range cells {
		for i, c := range line {
			widths[i] = max(widths[i], runewidth.StringWidth(c))
		}
	}

	var b strings.Builder
	writeRow(&b, header, widths, false)

	b.WriteString("|")
	for _, w := range widths {
		b.WriteString(strings.Repeat("-", w+2))
		b.WriteString("|")
	}

	b.WriteString("\n")

	for _, line := range cells {
		writeRow(&b, line, widths, true)
	}

	return b.String(), nil
}

// writeRow pads every cell to its column width. Size columns are right
// aligned in data rows.
func writeRow(b *strings.Builder, cells []string, widths []int, data bool) {
	b.WriteString("|")
	for i, c := range cells {
		size := data && i > 0 && i < len(cells)-1
		if size {
			c = runewidth.FillLeft(c, widths[i])
		} else {
			c = runewidth.FillRight(c, widths[i])
		}

		b.WriteString(" " + c + " |")
	}

	b.WriteString("\n")
}

func headingLevel(line string) int {
	trimmed := strings.TrimLeft(line, "#")
	n := len(line) - len(trimmed)
	if n == 0 || (trimmed != "" && trimmed[0] != ' ') {
		return 0
	}

	return n
}

// Replace swaps the first Library table below anchor for table. The search
// stops at the next heading of the same or a higher level. ok is false when
// the anchor or the table cannot be found.
func Replace(doc, anchor, table string) (string, bool) {
	lines := strings.Split(doc, "\n")

	start := -1
	for i, l := range lines {
		if strings.TrimRight(l, " \t\r") == anchor {
			start = i
			break
		}
	}

	if start < 0 {
		return doc, false
	}

	level := headingLevel(anchor)
	first := -1

	for i := start + 1; i < len(lines)-1; i++ {
		if lvl := headingLevel(lines[i]); lvl > 0 && (level == 0 || lvl <= level) {
			break
		}

		if headerRow.MatchString(lines[i]) && separatorRow.MatchString(lines[i+1]) {
			first = i
			break
		}
	}

	if first < 0 {
		return doc, false
	}

	end := first + 2
	for end < len(lines) && strings.HasPrefix(lines[end], "|") {
		end++
	}

	replacement := strings.Split(strings.TrimSuffix(table, "\n"), "\n")

	out := make([]string, 0, len(lines)-(end-first)+len(replacement))
	out = append(out, lines[:first]...)
	out = append(out, replacement...)
	out = append(out, lines[end:]...)

	return strings.Join(out, "\n"), true
}
