package compiler

import (
	"strconv"
	"strings"
)

// BenignLinkerWarnings are substrings of linker diagnostics that newlib
// stubs and nano specs emit on every bare-metal link
var BenignLinkerWarnings = []string{
	"is not implemented and will always fail",
	"the message above does not take linker garbage collection into account",
	"libc_nano.a",
}

// SectionAllowList selects the rows of `size -A` worth echoing
var SectionAllowList = []string{"section", ".text", ".rodata", ".data", ".bss", "Total"}

// DefaultExpectedSymbols are case-insensitive substrings at least one of
// which should appear in a linked benchmark
var DefaultExpectedSymbols = []string{"parse", "serial", "format", "EmbeddedConfig"}

// Symbol is one row of nm output
type Symbol struct {
	Size uint64
	Type string
	Name string
}

// ParseSizeSummary extracts the text size from Berkeley-format `size` output.
// The first field of the second line is the text column. Anything else
// yields 0, which callers treat as unmeasured.
func ParseSizeSummary(out string) uint64 {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) < 2 {
		return 0
	}

	fields := strings.Fields(lines[1])
	if len(fields) == 0 {
		return 0
	}

	n, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil {
		return 0
	}

	return n
}

// FilterSectionRows keeps the `size -A` rows mentioning an allow-listed section
func FilterSectionRows(out string) []string {
	var rows []string
	for line := range strings.SplitSeq(out, "\n") {
		line = strings.TrimRight(line, "\r")
		for _, keep := range SectionAllowList {
			if strings.Contains(line, keep) {
				rows = append(rows, line)
				break
			}
		}
	}

	return rows
}

// DropBSS removes zero-initialized data symbols from nm output lines
func DropBSS(lines []string) []string {
	kept := make([]string, 0, len(lines))
	for _, l := range lines {
		if strings.Contains(l, " B ") || strings.Contains(l, " b ") {
			continue
		}

		kept = append(kept, l)
	}

	return kept
}

// ParseSymbols parses `nm --size-sort --radix=d` output. Rows have the form
// "<addr> <size> <type> <name>"; rows without a size are skipped.
func ParseSymbols(out string) []Symbol {
	var syms []Symbol
	for line := range strings.SplitSeq(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}

		size, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			continue
		}

		syms = append(syms, Symbol{
			Size: size,
			Type: fields[2],
			Name: strings.Join(fields[3:], " "),
		})
	}

	return syms
}

// FilterLinkerWarnings drops known-benign diagnostics and blank lines from
// linker stderr
func FilterLinkerWarnings(stderr string) []string {
	var kept []string

lines:
	for line := range strings.SplitSeq(stderr, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		for _, benign := range BenignLinkerWarnings {
			if strings.Contains(line, benign) {
				continue lines
			}
		}

		kept = append(kept, line)
	}

	return kept
}

// MatchExpectedSymbols returns the symbol lines containing any of patterns,
// compared case-insensitively
func MatchExpectedSymbols(lines []string, patterns []string) []string {
	lowered := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p != "" {
			lowered = append(lowered, strings.ToLower(p))
		}
	}

	var matched []string
	for _, l := range lines {
		ll := strings.ToLower(l)
		for _, p := range lowered {
			if strings.Contains(ll, p) {
				matched = append(matched, l)
				break
			}
		}
	}

	return matched
}

// NonEmptyLines splits tool output into trimmed, non-blank lines
func NonEmptyLines(out string) []string {
	var lines []string
	for line := range strings.SplitSeq(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}

	return lines
}
