package cmd

import (
	"github.com/spf13/cobra"
	"github.com/veridose/boxscan/internal/batch"
)

var batchCmd = &cobra.Command{
	Use:   "batch [path...]",
	Short: "Scan many images or directories",
	Long: `Scan a set of images or directories with a shared worker pool and
collect per-file results.

Examples:
  boxscan batch ./photos
  boxscan batch ./photos --recursive --format csv --output results.csv
  boxscan batch a.jpg b.jpg --include "*.jpg" --workers 4`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().BoolP("recursive", "r", false, "descend into subdirectories")
	batchCmd.Flags().StringSlice("include", nil, "glob patterns a file name must match")
	batchCmd.Flags().StringSlice("exclude", nil, "glob patterns that skip a file")
	batchCmd.Flags().IntP("workers", "w", 0, "number of images scanned at once")
	batchCmd.Flags().StringP("format", "f", "json", "output format (json, csv, text)")
	batchCmd.Flags().StringP("output", "o", "", "output file (default stdout)")
	batchCmd.Flags().BoolP("quiet", "q", false, "suppress progress and statistics")
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	bcfg := batch.DefaultConfig()
	bcfg.Recursive, _ = cmd.Flags().GetBool("recursive")
	bcfg.IncludePatterns, _ = cmd.Flags().GetStringSlice("include")
	bcfg.ExcludePatterns, _ = cmd.Flags().GetStringSlice("exclude")
	bcfg.Format, _ = cmd.Flags().GetString("format")
	bcfg.OutputFile, _ = cmd.Flags().GetString("output")
	bcfg.Quiet, _ = cmd.Flags().GetBool("quiet")

	if workers, _ := cmd.Flags().GetInt("workers"); workers > 0 {
		bcfg.Workers = workers
	} else if cfg.Batch.Workers > 0 {
		bcfg.Workers = cfg.Batch.Workers
	}

	stack, err := buildScanStack(cfg, "batch")
	if err != nil {
		return err
	}
	defer stack.Close()

	result, err := batch.ProcessBatch(cmd.Context(), stack.pipeline, args, bcfg)
	if err != nil {
		return err
	}

	if err := result.SaveResults(bcfg.Format, bcfg.OutputFile, bcfg.Quiet); err != nil {
		return err
	}
	result.PrintStats(bcfg.Quiet)
	return nil
}
