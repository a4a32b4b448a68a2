// Package cli defines the clipmarker command tree. With no subcommand the
// agent runs in the foreground.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/clipmarker/clipmarker-agent/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "clipmarker",
	Short: "Mark clip ranges in a running video player",
	Long: `ClipMarker captures start and end positions from the video player the
backend controls, keeps the session's clip list, and exports it for cutting.
Commands arrive from global hotkeys, the tray menu and the local API.`,
	Version:       config.Version,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          runAgent,
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(clipsCmd)
	rootCmd.AddCommand(commandsCmd)
	rootCmd.AddCommand(versionCmd)
}
