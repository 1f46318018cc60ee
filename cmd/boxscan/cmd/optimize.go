package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Merge near-duplicate visual index entries",
	Long: `Compact the visual feature index by merging near-duplicate records
of the same drug. Usage counts of merged records are folded together.

Examples:
  boxscan optimize
  boxscan optimize --config boxscan.yaml`,
	SilenceUsage: true,
	RunE:         runOptimize,
}

func init() {
	rootCmd.AddCommand(optimizeCmd)
}

func runOptimize(cmd *cobra.Command, _ []string) error {
	cfg := GetConfig()

	stack := &scanStack{}
	visual, err := buildVisualStore(cfg, stack)
	if err != nil {
		return err
	}
	defer stack.Close()
	if visual == nil {
		return fmt.Errorf("no visual index configured")
	}

	removed, err := visual.Optimize(cmd.Context())
	if err != nil {
		return fmt.Errorf("optimizing visual index: %w", err)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "optimized visual index, removed %d record(s)\n", removed)
	return nil
}
