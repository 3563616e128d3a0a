package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var planOutFile string

var planCmd = &cobra.Command{
	Use:   "plan [config]",
	Short: "Generate an execution plan",
	Long: `Generates an execution plan showing what actions fabrik will take to
reach the desired state, as ordered stages of create/update/delete
operations. The plan document can be written to a file for review.`,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVarP(&planOutFile, "out", "o", "", "Write the plan document (JSON) to a file")
}

func runPlan(cmd *cobra.Command, args []string) error {
	eng, store, resources, err := setup(args)
	if err != nil {
		return err
	}
	defer store.Close()

	plan, err := eng.Plan(cmd.Context(), resources, nil)
	if err != nil {
		return fmt.Errorf("plan generation failed: %w", err)
	}

	printPlan(plan)

	if planOutFile != "" {
		data, err := json.MarshalIndent(plan, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to serialize plan: %w", err)
		}
		if err := os.WriteFile(planOutFile, data, 0644); err != nil {
			return fmt.Errorf("failed to write plan: %w", err)
		}
		fmt.Printf("\nPlan written to %s\n", planOutFile)
	}
	return nil
}
