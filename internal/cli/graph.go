package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fabrik-io/fabrik/internal/config"
	"github.com/fabrik-io/fabrik/internal/engine"
)

var graphCmd = &cobra.Command{
	Use:   "graph [config]",
	Short: "Print the dependency graph in DOT format",
	RunE:  runGraph,
}

func runGraph(cmd *cobra.Command, args []string) error {
	resources, err := config.Load(configPath(args))
	if err != nil {
		return err
	}

	g, err := engine.BuildGraph(resources)
	if err != nil {
		return err
	}

	fmt.Println("digraph fabrik {")
	for _, res := range g.Resources() {
		addr := res.Address()
		fmt.Printf("  %q;\n", addr)
		for _, dep := range g.Dependencies(addr) {
			fmt.Printf("  %q -> %q;\n", addr, dep)
		}
	}
	fmt.Println("}")
	return nil
}
