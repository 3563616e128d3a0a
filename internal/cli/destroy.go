package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fabrik-io/fabrik/internal/engine"
)

var destroyCmd = &cobra.Command{
	Use:   "destroy [config]",
	Short: "Destroy every recorded resource",
	Long: `Plans and applies the deletion of every resource in the state, in
reverse dependency order.`,
	RunE: runDestroy,
}

func init() {
	destroyCmd.Flags().BoolVar(&autoApprove, "auto-approve", false, "Skip interactive approval")
}

func runDestroy(cmd *cobra.Command, args []string) error {
	eng, store, _, err := setup(args)
	if err != nil {
		return err
	}
	defer store.Close()

	plan, err := eng.Plan(cmd.Context(), nil, &engine.PlanOptions{Destroy: true})
	if err != nil {
		return fmt.Errorf("destroy plan failed: %w", err)
	}
	printPlan(plan)

	if plan.Empty() {
		return nil
	}
	if !autoApprove && !confirm() {
		fmt.Println("Destroy cancelled.")
		return nil
	}

	report, applyErr := eng.ApplyWithCallback(cmd.Context(), plan, progress)
	printReport(report)
	return applyErr
}
