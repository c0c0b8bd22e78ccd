package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Norgate-AV/footprint/internal/report"
	"github.com/Norgate-AV/footprint/internal/version"
)

// ExitInterrupted is the exit status after SIGINT or SIGTERM
const ExitInterrupted = 130

// NewRootCmd builds the footprint command tree
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "footprint",
		Short: "Embedded JSON library code size benchmark",
		Long: `Cross-compile a fixed parsing workload against several JSON libraries,
measure the .text size of every executable and compare each library
against a reference.`,
		RunE:          runBench,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		Version:       version.String(),
	}

	rootCmd.PersistentFlags().StringP("platform", "p", "", "Target platform (arm, esp32, avr)")
	rootCmd.PersistentFlags().Bool("no-clean", false, "Keep build artifacts from earlier runs")
	rootCmd.PersistentFlags().Bool("clean-only", false, "Remove build artifacts and exit")
	rootCmd.PersistentFlags().Bool("verify", false, "Show the largest symbols and inspect every executable")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().String("config", "", "Config file (default: nearest .footprint.{yml,yaml,json,toml})")
	rootCmd.PersistentFlags().String("color", "", "Colour output: auto, on or off")
	rootCmd.PersistentFlags().StringP("work-dir", "C", "", "Directory relative paths are resolved against")
	rootCmd.PersistentFlags().String("reference", "", "Library every other library is compared against")
	rootCmd.PersistentFlags().Bool("no-history", false, "Do not record or compare against earlier runs")

	rootCmd.AddCommand(
		newBenchCmd(),
		newCleanCmd(),
		newReadmeCmd(),
		newHistoryCmd(),
		newPlatformsCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

// Execute runs the CLI and exits with its status
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, NewRootCmd(), os.Args[1:])
	stop()

	os.Exit(code)
}

// execute runs cmd with args and maps the outcome to an exit status
func execute(ctx context.Context, cmd *cobra.Command, args []string) int {
	viper.Reset()
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	console := report.NewConsole(cmd.OutOrStdout(), false)
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		console.Interrupted()
		return ExitInterrupted
	}

	console.Error(err)

	return 1
}

// applyColor sets the global colour mode. auto leaves the terminal
// detection of fatih/color in charge unless out is not a terminal.
func applyColor(mode string, out io.Writer) {
	switch mode {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	default:
		color.NoColor = !isTerminal(out)
	}
}

func printf(cmd *cobra.Command, format string, a ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, a...)
}
