package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Norgate-AV/footprint/internal/cache"
	"github.com/Norgate-AV/footprint/internal/report"
)

func newHistoryCmd() *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect or clear the recorded size history",
	}

	listCmd := &cobra.Command{
		Use:          "list",
		Short:        "List recorded size series",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE:         runHistoryList,
	}
	listCmd.Flags().Bool("all", false, "List every platform instead of the selected one")

	clearCmd := &cobra.Command{
		Use:          "clear",
		Short:        "Delete every recorded size",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE:         runHistoryClear,
	}

	historyCmd.AddCommand(listCmd, clearCmd)

	return historyCmd
}

func openHistory(cmd *cobra.Command) (*app, *cache.Cache, error) {
	a, err := setup(cmd)
	if err != nil {
		return nil, nil, err
	}

	history, err := cache.New(a.cfg.HistoryDB)
	if err != nil {
		return nil, nil, err
	}

	return a, history, nil
}

func runHistoryList(cmd *cobra.Command, _ []string) error {
	a, history, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer history.Close()

	platform := a.cfg.Platform
	if all, _ := cmd.Flags().GetBool("all"); all {
		platform = ""
	}

	series, err := history.List(platform)
	if err != nil {
		return err
	}

	if len(series) == 0 {
		printf(cmd, "No recorded sizes in %s\n", history.Path())
		return nil
	}

	printf(cmd, "%s\n", report.HistoryTable(series))

	return nil
}

func runHistoryClear(cmd *cobra.Command, _ []string) error {
	a, history, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer history.Close()

	seriesCount, entryCount, err := history.Stats()
	if err != nil {
		return err
	}

	if err := history.Clear(); err != nil {
		return err
	}

	a.logger.Debug("history cleared", "path", history.Path(), "series", seriesCount, "entries", entryCount)
	printf(cmd, "✓ Cleared %d entries from %d series\n", entryCount, seriesCount)

	return nil
}
