package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fabrik-io/fabrik/internal/engine"
	"github.com/fabrik-io/fabrik/internal/ir"
)

var autoApprove bool

var applyCmd = &cobra.Command{
	Use:   "apply [config]",
	Short: "Apply the changes required to reach the desired state",
	RunE:  runApply,
}

func init() {
	applyCmd.Flags().BoolVar(&autoApprove, "auto-approve", false, "Skip interactive approval")
}

func runApply(cmd *cobra.Command, args []string) error {
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

	if plan.Empty() {
		return nil
	}
	if !autoApprove && !confirm() {
		fmt.Println("Apply cancelled.")
		return nil
	}

	report, applyErr := eng.ApplyWithCallback(cmd.Context(), plan, progress)
	printReport(report)
	return applyErr
}

func confirm() bool {
	fmt.Print("\nDo you want to perform these actions? Only 'yes' will be accepted: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	return strings.TrimSpace(line) == "yes"
}

func progress(event engine.ApplyEvent) {
	switch event.Status {
	case "started":
		fmt.Printf("%s: %s...\n", event.Address, strings.ToLower(string(event.Action)))
	case "completed":
		fmt.Printf("%s: done (%s)\n", event.Address, event.Duration.Round(time.Millisecond))
	case "failed":
		fmt.Printf("%s: FAILED: %v\n", event.Address, event.Error)
	}
}

func printReport(report *ir.ApplyReport) {
	fmt.Printf("\nApply complete: %d succeeded, %d failed, %d skipped.\n",
		report.Count(ir.StatusSucceeded),
		report.Count(ir.StatusFailed),
		report.Count(ir.StatusSkipped))
}
