package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Norgate-AV/footprint/internal/readme"
)

func newReadmeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync-readme",
		Short: "Update the README size tables from saved results",
		Long: `Rewrite the per-platform size tables in the README from the
results_<platform>.json files. Tables without results are left untouched.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE:         runSyncReadme,
	}

	cmd.Flags().String("readme", "", "Markdown document to update (default README.md)")

	return cmd
}

func runSyncReadme(cmd *cobra.Command, _ []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}

	a.console.Section("Updating " + a.cfg.Readme)

	syncer := readme.NewSyncer(a.cfg.ResultsDir, a.reference(), a.logger)
	checkTables(a, syncer.Tables)

	outcomes, err := syncer.SyncFile(a.cfg.Readme)
	if err != nil {
		return err
	}

	updated := 0
	for _, o := range outcomes {
		if o.Warning != "" {
			a.console.Warn(fmt.Sprintf("%s: %s", o.PlatformID, o.Warning))
			continue
		}

		updated++
		printf(cmd, "✓ Updated %s table\n", o.PlatformID)
	}

	a.logger.Debug("readme synced", "path", a.cfg.Readme, "updated", updated, "tables", len(outcomes))
	a.console.Done()

	return nil
}

// checkTables warns about README columns naming configs the catalog lacks
func checkTables(a *app, tables []readme.Table) {
	for _, t := range tables {
		p, err := a.catalog.Platform(t.PlatformID)
		if err != nil {
			a.console.Warn(fmt.Sprintf("%s: table has no catalog platform", t.PlatformID))
			continue
		}

		for _, col := range t.Columns {
			if _, ok := p.Config(col.Config); !ok {
				a.console.Warn(fmt.Sprintf("%s: column %q names unknown config %q", t.PlatformID, col.Header, col.Config))
			}
		}
	}
}
