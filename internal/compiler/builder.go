package compiler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Norgate-AV/footprint/internal/catalog"
	"github.com/Norgate-AV/footprint/internal/logging"
)

// EmbeddedFlags are passed to every compile and link. They strip exception
// handling, RTTI and unwind tables and put each function and object in its
// own section so the linker can collect unused code.
var EmbeddedFlags = []string{
	"-fno-exceptions",
	"-fno-rtti",
	"-ffunction-sections",
	"-fdata-sections",
	"-DNDEBUG",
	"-fno-unwind-tables",
	"-fno-asynchronous-unwind-tables",
}

// CommandBuilder handles building cross-compiler commands
type CommandBuilder struct {
	cmd    Commander
	logger *slog.Logger
}

// NewCommandBuilder creates a new command builder. A nil commander runs real
// processes.
func NewCommandBuilder(cmd Commander, logger *slog.Logger) *CommandBuilder {
	if cmd == nil {
		cmd = ExecCommander{}
	}

	if logger == nil {
		logger = logging.Discard()
	}

	return &CommandBuilder{cmd: cmd, logger: logger}
}

// CompileArgs builds the argument list for compiling src into obj
func (cb *CommandBuilder) CompileArgs(p catalog.Platform, cfg catalog.BuildConfig, includes []string, src, obj string) []string {
	args := make([]string, 0, 16+len(includes)*2)
	if p.Std != "" {
		args = append(args, "-std="+p.Std)
	}

	args = append(args, p.Flags...)
	args = append(args, EmbeddedFlags...)
	args = append(args, cfg.Flags...)

	for _, dir := range includes {
		if dir != "" {
			args = append(args, "-I"+dir)
		}
	}

	args = append(args, "-c", src, "-o", obj)

	return args
}

// LinkArgs builds the argument list for linking obj into elf and writing the
// linker map to mapFile
func (cb *CommandBuilder) LinkArgs(p catalog.Platform, cfg catalog.BuildConfig, obj, elf, mapFile string) []string {
	args := make([]string, 0, 16)
	args = append(args, p.Flags...)
	args = append(args, EmbeddedFlags...)
	args = append(args, cfg.Flags...)
	args = append(args, "-Wl,--gc-sections", "-Wl,-Map="+mapFile, obj, "-o", elf)
	args = append(args, p.Specs...)

	return args
}

// Compile runs the platform compiler. On a non-zero exit the returned
// output carries the diagnostics.
func (cb *CommandBuilder) Compile(ctx context.Context, p catalog.Platform, cfg catalog.BuildConfig, includes []string, src, obj string) (Output, error) {
	inv := Invocation{Name: p.Tool("g++"), Args: cb.CompileArgs(p, cfg, includes, src, obj)}
	cb.logger.Debug("compile", "platform", p.ID, "config", cfg.Name, "command", inv.String())

	out, err := cb.cmd.Run(ctx, inv)
	if err != nil {
		return out, fmt.Errorf("compile %s: %w", src, err)
	}

	return out, nil
}

// Link runs the platform linker and returns the stderr lines that survive
// the benign-warning filter
func (cb *CommandBuilder) Link(ctx context.Context, p catalog.Platform, cfg catalog.BuildConfig, obj, elf, mapFile string) ([]string, error) {
	inv := Invocation{Name: p.Tool("g++"), Args: cb.LinkArgs(p, cfg, obj, elf, mapFile)}
	cb.logger.Debug("link", "platform", p.ID, "config", cfg.Name, "command", inv.String())

	out, err := cb.cmd.Run(ctx, inv)
	warnings := FilterLinkerWarnings(out.Stderr)
	if err != nil {
		return warnings, fmt.Errorf("link %s: %w", elf, err)
	}

	return warnings, nil
}
