package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Norgate-AV/footprint/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			printf(cmd, "footprint %s\n", version.String())
		},
	}
}
