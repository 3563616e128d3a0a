package cli

import (
	"fmt"
	"path/filepath"

	"github.com/fabrik-io/fabrik/internal/config"
	"github.com/fabrik-io/fabrik/internal/engine"
	"github.com/fabrik-io/fabrik/internal/ir"
	"github.com/fabrik-io/fabrik/internal/provider"
	"github.com/fabrik-io/fabrik/internal/state"
	"github.com/fabrik-io/fabrik/internal/validate"
	"github.com/fabrik-io/fabrik/providers/null"
	"github.com/fabrik-io/fabrik/providers/sim"
)

const defaultConfig = "fabrik.yaml"

// configPath resolves the desired-state document from the command args.
func configPath(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return defaultConfig
}

// setup loads the configuration and wires a fully configured engine over
// the file state store next to the config.
func setup(args []string) (*engine.Engine, state.Store, []*ir.Resource, error) {
	path := configPath(args)
	resources, err := config.Load(path)
	if err != nil {
		return nil, nil, nil, err
	}

	statePath := filepath.Join(filepath.Dir(path), ".fabrik", "state.json")
	store, err := state.OpenFileStore(statePath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open state: %w", err)
	}

	registry := provider.NewRegistry()
	registry.Register("null", null.New())
	registry.Register("sim", sim.New())

	validators := validate.NewRegistry()
	sim.RegisterInvariants(validators)

	eng := engine.New(registry, store)
	eng.Validators = validators
	return eng, store, resources, nil
}

func actionSymbol(action ir.Action) string {
	switch action {
	case ir.ActionCreate:
		return "+"
	case ir.ActionDelete:
		return "-"
	case ir.ActionUpdate:
		return "~"
	default:
		return " "
	}
}

func printPlan(plan *ir.Plan) {
	fmt.Println("Plan Summary:")
	fmt.Printf("  Create:  %d\n", plan.Summary.Create)
	fmt.Printf("  Update:  %d\n", plan.Summary.Update)
	fmt.Printf("  Delete:  %d\n", plan.Summary.Delete)
	fmt.Printf("  Replace: %d\n", plan.Summary.Replace)
	fmt.Printf("  NoOp:    %d\n", plan.Summary.NoOp)

	if plan.Empty() {
		fmt.Println("\nNo changes. Infrastructure is up-to-date.")
		return
	}

	for i, stage := range plan.Stages {
		fmt.Printf("\nStage %d:\n", i+1)
		for _, entry := range stage.Entries {
			fmt.Printf("  %s %s (%s)\n", actionSymbol(entry.Action), entry.Address, entry.Action)
			for _, d := range entry.Diffs {
				switch d.Op {
				case "create":
					fmt.Printf("      %s = %v\n", d.Path, d.After)
				case "delete":
					fmt.Printf("      %s: %v -> (removed)\n", d.Path, d.Before)
				default:
					fmt.Printf("      %s: %v -> %v\n", d.Path, d.Before, d.After)
				}
			}
		}
	}
}
