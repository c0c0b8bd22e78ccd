package cmd

import (
	"strings"

	"github.com/spf13/cobra"
)

func newPlatformsCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "platforms",
		Short:        "List the supported platforms and what runs on them",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}

			for _, p := range a.catalog.Platforms {
				configs := make([]string, 0, len(p.Configs))
				for _, c := range p.Configs {
					configs = append(configs, c.Name)
				}

				libs := make([]string, 0, len(a.catalog.Libraries))
				for _, l := range a.catalog.ApplicableLibraries(p) {
					libs = append(libs, l.Name)
				}

				printf(cmd, "%-6s %s (%s)\n", p.ID, p.Name, strings.TrimSuffix(p.Prefix, "-"))
				printf(cmd, "       configs:   %s\n", strings.Join(configs, ", "))
				printf(cmd, "       libraries: %s\n", strings.Join(libs, ", "))
			}

			printf(cmd, "\nReference: %s\n", a.reference())

			return nil
		},
	}
}
