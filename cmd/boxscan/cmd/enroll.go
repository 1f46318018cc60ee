package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/veridose/boxscan/internal/feature"
	"github.com/veridose/boxscan/internal/utils"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll [image...]",
	Short: "Register confirmed drug images with the visual index",
	Long: `Extract visual fingerprints from confirmed drug box images and add
them to the visual index so later scans can cross-reference them. Like
optimize, this is a maintenance operation run outside live scanning.

Examples:
  boxscan enroll box.jpg --drug-id drug-17 --name Ibuprofen
  boxscan enroll front.png back.png --drug-id drug-17 --name Ibuprofen`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().String("drug-id", "", "catalog id of the drug shown in the images")
	enrollCmd.Flags().String("name", "", "drug name for display in visual matches")
	_ = enrollCmd.MarkFlagRequired("drug-id")
	_ = enrollCmd.MarkFlagRequired("name")
}

func runEnroll(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	drugID, _ := cmd.Flags().GetString("drug-id")
	drugName, _ := cmd.Flags().GetString("name")

	stack := &scanStack{}
	visual, err := buildVisualStore(cfg, stack)
	if err != nil {
		return err
	}
	defer stack.Close()
	if visual == nil {
		return fmt.Errorf("no visual index configured")
	}

	for _, path := range args {
		img, _, err := utils.LoadImage(path)
		if err != nil {
			return fmt.Errorf("loading %s: %w", path, err)
		}
		vec, err := feature.Extract(img)
		if err != nil {
			return fmt.Errorf("fingerprinting %s: %w", path, err)
		}
		id, err := visual.Add(cmd.Context(), feature.Record{
			DrugID:   drugID,
			DrugName: drugName,
			Vector:   vec,
		})
		if err != nil {
			return fmt.Errorf("enrolling %s: %w", path, err)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: enrolled as %s\n", path, id)
	}
	return nil
}
