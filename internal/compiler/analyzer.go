package compiler

import (
	"context"
	"fmt"
	"strings"

	"github.com/Norgate-AV/footprint/internal/catalog"
)

// SizeReport is the outcome of running `size` on a linked executable
type SizeReport struct {
	Raw  string
	Text uint64
}

// Analyzer inspects linked executables. Every tool-output format the
// pipeline depends on is parsed behind this interface.
type Analyzer interface {
	// Size returns the text-section size, 0 when it cannot be determined
	Size(ctx context.Context, elf string) (SizeReport, error)

	// Sections returns the allow-listed rows of the per-section size report
	Sections(ctx context.Context, elf string) ([]string, error)

	// TopSymbols returns the n largest non-BSS symbols, demangled
	TopSymbols(ctx context.Context, elf string, n int) ([]string, error)

	// Symbols returns the demangled symbol table lines
	Symbols(ctx context.Context, elf string) ([]string, error)
}

// ToolAnalyzer implements Analyzer with a platform's binutils
type ToolAnalyzer struct {
	platform catalog.Platform
	cmd      Commander
}

// NewToolAnalyzer creates an analyzer for p. A nil commander runs real
// processes.
func NewToolAnalyzer(p catalog.Platform, cmd Commander) *ToolAnalyzer {
	if cmd == nil {
		cmd = ExecCommander{}
	}

	return &ToolAnalyzer{platform: p, cmd: cmd}
}

func (a *ToolAnalyzer) run(ctx context.Context, tool string, args ...string) (string, error) {
	out, err := a.cmd.Run(ctx, Invocation{Name: a.platform.Tool(tool), Args: args})
	if err != nil {
		return "", err
	}

	return out.Stdout, nil
}

func (a *ToolAnalyzer) Size(ctx context.Context, elf string) (SizeReport, error) {
	raw, err := a.run(ctx, "size", elf)
	if err != nil {
		return SizeReport{}, fmt.Errorf("size %s: %w", elf, err)
	}

	return SizeReport{Raw: raw, Text: ParseSizeSummary(raw)}, nil
}

func (a *ToolAnalyzer) Sections(ctx context.Context, elf string) ([]string, error) {
	raw, err := a.run(ctx, "size", "-A", elf)
	if err != nil {
		return nil, fmt.Errorf("size -A %s: %w", elf, err)
	}

	return FilterSectionRows(raw), nil
}

func (a *ToolAnalyzer) TopSymbols(ctx context.Context, elf string, n int) ([]string, error) {
	raw, err := a.run(ctx, "gcc-nm", "--size-sort", "--reverse-sort", "--radix=d", elf)
	if err != nil {
		return nil, fmt.Errorf("gcc-nm %s: %w", elf, err)
	}

	lines := DropBSS(NonEmptyLines(raw))
	if n >= 0 && len(lines) > n {
		lines = lines[:n]
	}

	if len(lines) == 0 {
		return nil, nil
	}

	out, err := a.cmd.Run(ctx, Invocation{
		Name:  a.platform.Tool("c++filt"),
		Stdin: strings.NewReader(strings.Join(lines, "\n") + "\n"),
	})
	if err != nil {
		// Mangled names are still useful
		return lines, nil
	}

	return NonEmptyLines(out.Stdout), nil
}

func (a *ToolAnalyzer) Symbols(ctx context.Context, elf string) ([]string, error) {
	raw, err := a.run(ctx, "nm", "--demangle", elf)
	if err != nil {
		return nil, fmt.Errorf("nm %s: %w", elf, err)
	}

	return NonEmptyLines(raw), nil
}
