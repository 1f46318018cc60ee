package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/veridose/boxscan/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		ver, commit, date := version.Info()
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "boxscan %s\ncommit: %s\nbuilt:  %s\n", ver, commit, date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
