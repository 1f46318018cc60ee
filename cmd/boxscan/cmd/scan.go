package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/veridose/boxscan/internal/pipeline"
	"github.com/veridose/boxscan/internal/utils"
)

const (
	formatJSON = "json"
	formatText = "text"
)

var scanCmd = &cobra.Command{
	Use:   "scan [image...]",
	Short: "Scan photographs for medication boxes",
	Long: `Scan one or more photographs, detect every medication box in them,
and match each box against the drug catalog.

Examples:
  boxscan scan shelf.jpg
  boxscan scan *.jpg --format text
  boxscan scan photo.png --output results.json`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringP("format", "f", formatJSON, "output format (json, text)")
	scanCmd.Flags().StringP("output", "o", "", "output file (default stdout)")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	format, _ := cmd.Flags().GetString("format")
	if !cmd.Flags().Changed("format") && cfg.Output.Format != "" {
		format = cfg.Output.Format
	}
	if format != formatJSON && format != formatText {
		return fmt.Errorf("unsupported output format: %s", format)
	}

	outputFile, _ := cmd.Flags().GetString("output")
	if !cmd.Flags().Changed("output") && cfg.Output.File != "" {
		outputFile = cfg.Output.File
	}

	stack, err := buildScanStack(cfg, "cli")
	if err != nil {
		return err
	}
	defer stack.Close()

	session := pipeline.NewSession()
	var out strings.Builder

	for _, path := range args {
		img, meta, err := utils.LoadImage(path)
		if err != nil {
			return fmt.Errorf("loading %s: %w", path, err)
		}
		slog.Debug("scanning image", "path", path, "width", meta.Width, "height", meta.Height)

		result, err := stack.pipeline.Process(cmd.Context(), img, session)
		if err != nil {
			return fmt.Errorf("scanning %s: %w", path, err)
		}

		formatted, err := formatScanResult(result, path, format)
		if err != nil {
			return err
		}
		out.WriteString(formatted)
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(out.String()), 0o600); err != nil {
			return fmt.Errorf("writing output file: %w", err)
		}
		slog.Info("results saved", "file", outputFile)
		return nil
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), out.String())
	return err
}

func formatScanResult(result *pipeline.MultiDrugResult, path, format string) (string, error) {
	switch format {
	case formatJSON:
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encoding result: %w", err)
		}
		return string(data) + "\n", nil
	case formatText:
		return formatScanText(result, path), nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}

func formatScanText(result *pipeline.MultiDrugResult, path string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d region(s), %d drug(s), confidence %.1f\n",
		path, len(result.Regions), len(result.Drugs), result.AggregateConfidence)
	for _, d := range result.Drugs {
		fmt.Fprintf(&b, "  %s (%.1f, %s)\n", d.Name, d.Confidence, d.Action)
	}
	for _, r := range result.Regions {
		if r.Failure != pipeline.FailureNone {
			fmt.Fprintf(&b, "  region %s: %s -> %s\n", r.RegionID, r.Failure, r.Action)
		}
	}
	return b.String()
}
