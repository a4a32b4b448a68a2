package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clipmarker/clipmarker-agent/internal/config"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "clipmarker %s (commit %s, built %s)\n",
			config.Version, config.GitCommit, config.BuildTime)
	},
}
