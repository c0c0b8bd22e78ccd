// Package elfinspect reads a linked executable directly with debug/elf.
// It gives a second opinion on the binutils-based verification without
// depending on the cross toolchain.
package elfinspect

import (
	"debug/elf"
	"errors"
	"fmt"
	"strings"
)

// maxMatched bounds the symbol names kept in a report
const maxMatched = 10

// Section is one allocated section of the image
type Section struct {
	Name  string
	Addr  uint64
	Size  uint64
	Exec  bool
	Write bool
}

// Report summarizes an executable
type Report struct {
	Path     string
	Class    string
	Machine  string
	Sections []Section

	// TextSize is the size of the .text section, 0 if absent
	TextSize uint64

	// Symbols is the number of entries in the symbol table
	Symbols int

	// Matches counts symbols matching any expected pattern; Matched holds
	// the first few names
	Matches int
	Matched []string
}

// Inspect opens path and summarizes its sections and symbols. Patterns are
// matched case-insensitively against symbol names.
func Inspect(path string, patterns []string) (*Report, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ELF file: %w", err)
	}
	defer func() { _ = f.Close() }()

	r := &Report{
		Path:    path,
		Class:   f.Class.String(),
		Machine: f.Machine.String(),
	}

	for _, s := range f.Sections {
		if s.Flags&elf.SHF_ALLOC == 0 || s.Size == 0 {
			continue
		}

		r.Sections = append(r.Sections, Section{
			Name:  s.Name,
			Addr:  s.Addr,
			Size:  s.Size,
			Exec:  s.Flags&elf.SHF_EXECINSTR != 0,
			Write: s.Flags&elf.SHF_WRITE != 0,
		})

		if s.Name == ".text" {
			r.TextSize = s.Size
		}
	}

	syms, err := f.Symbols()
	if err != nil && !errors.Is(err, elf.ErrNoSymbols) {
		return nil, fmt.Errorf("failed to read symbol table: %w", err)
	}

	r.Symbols = len(syms)

	lowered := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p != "" {
			lowered = append(lowered, strings.ToLower(p))
		}
	}

	for _, sym := range syms {
		name := strings.ToLower(sym.Name)
		for _, p := range lowered {
			if strings.Contains(name, p) {
				r.Matches++
				if len(r.Matched) < maxMatched {
					r.Matched = append(r.Matched, sym.Name)
				}

				break
			}
		}
	}

	return r, nil
}

// Lines renders the report for console output
func (r *Report) Lines() []string {
	lines := []string{fmt.Sprintf("%s %s, %d symbols", r.Class, r.Machine, r.Symbols)}

	for _, s := range r.Sections {
		flags := "r"
		if s.Write {
			flags += "w"
		}

		if s.Exec {
			flags += "x"
		}

		lines = append(lines, fmt.Sprintf("  %-20s %-3s %8d  0x%08x", s.Name, flags, s.Size, s.Addr))
	}

	lines = append(lines, fmt.Sprintf("expected-symbol matches: %d", r.Matches))
	for _, name := range r.Matched {
		lines = append(lines, "  "+name)
	}

	return lines
}

// Inspector adapts Inspect to a fixed pattern set
type Inspector struct {
	Patterns []string
}

// Inspect returns the rendered report of the executable at path
func (i Inspector) Inspect(path string) ([]string, error) {
	r, err := Inspect(path, i.Patterns)
	if err != nil {
		return nil, err
	}

	return r.Lines(), nil
}
