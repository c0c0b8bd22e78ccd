package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Norgate-AV/footprint/internal/bench"
	"github.com/Norgate-AV/footprint/internal/cache"
)

func newBenchCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "bench",
		Aliases:      []string{"run"},
		Short:        "Build and measure every library for a platform",
		Long:         `Fetch dependencies, build every library in every config of the selected platform, compare sizes against the reference and export the results.`,
		RunE:         runBench,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
	}
}

func runBench(cmd *cobra.Command, _ []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}

	opts := []bench.Option{
		bench.WithCommander(newCommander()),
		bench.WithLogger(a.logger),
	}

	if !a.cfg.NoHistory && !a.cfg.CleanOnly {
		history, err := cache.New(a.cfg.HistoryDB)
		if err != nil {
			a.logger.Warn("run history disabled", "error", err)
			a.console.Warn("run history disabled: " + err.Error())
		} else {
			defer history.Close()
			opts = append(opts, bench.WithHistory(history))
		}
	}

	exporters, closeExporters := bench.Exporters(a.cfg)
	defer closeExporters()

	opts = append(opts, bench.WithExporters(exporters...))

	runner := bench.NewRunner(a.cfg, a.catalog, a.console, opts...)

	if a.cfg.CleanOnly {
		_, err := runner.Clean()
		return err
	}

	_, err = runner.Run(cmd.Context())

	return err
}
