package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Norgate-AV/footprint/internal/bench"
)

func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "clean",
		Short:        "Remove build artifacts",
		Long:         `Delete the .o, .elf and .map files in the build directory. Fetched dependencies are kept.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}

			_, err = bench.NewRunner(a.cfg, a.catalog, a.console, bench.WithLogger(a.logger)).Clean()

			return err
		},
	}
}
