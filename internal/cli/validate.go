package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fabrik-io/fabrik/internal/validate"
)

var validateCmd = &cobra.Command{
	Use:   "validate [config]",
	Short: "Check the configuration against registered invariants",
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	eng, store, resources, err := setup(args)
	if err != nil {
		return err
	}
	defer store.Close()

	violations, err := eng.Validate(resources)
	if err != nil {
		return err
	}
	if len(violations) == 0 {
		fmt.Println("Configuration is valid.")
		return nil
	}

	for _, v := range violations {
		fmt.Printf("%s: %s: %s\n", v.Severity, v.Address, v.Message)
	}
	if validate.HasFatal(violations) {
		return fmt.Errorf("validation failed")
	}
	return nil
}
