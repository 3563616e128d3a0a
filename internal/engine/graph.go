package engine

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dominikbraun/graph"

	"github.com/fabrik-io/fabrik/internal/ir"
)

// Graph is the resolved dependency graph of a resource set. Edges point
// from a resource to the resources it depends on: from must be created
// after to, and destroyed before it. The edge maps are indexed once at
// construction; the graph is immutable afterwards.
type Graph struct {
	resources  map[string]*ir.Resource
	order      []string            // addresses, sorted, for deterministic iteration
	deps       map[string][]string // address -> direct dependencies, sorted
	dependents map[string][]string // address -> direct dependents, sorted
}

// BuildGraph constructs the dependency graph for a resource set by
// resolving every Ref in resource attributes plus explicit dependsOn
// entries. The input is not mutated. Fails with UnresolvedReferenceError
// for a reference to a resource not in the set, DuplicateAddressError for
// a repeated (kind, name), and CyclicDependencyError when the edges do not
// form a DAG.
func BuildGraph(resources []*ir.Resource) (*Graph, error) {
	g := graph.New(func(r *ir.Resource) string { return r.Address() }, graph.Directed())
	rg := &Graph{
		resources: make(map[string]*ir.Resource, len(resources)),
	}

	for _, res := range resources {
		addr := res.Address()
		if err := g.AddVertex(res); err != nil {
			if errors.Is(err, graph.ErrVertexAlreadyExists) {
				return nil, &DuplicateAddressError{Address: addr}
			}
			return nil, fmt.Errorf("failed to add resource %s: %w", addr, err)
		}
		rg.resources[addr] = res
		rg.order = append(rg.order, addr)
	}
	sort.Strings(rg.order)

	for _, res := range resources {
		addr := res.Address()
		for _, target := range dependencyTargets(res) {
			if _, ok := rg.resources[target]; !ok {
				return nil, &UnresolvedReferenceError{Address: addr, Target: target}
			}
			if target == addr {
				return nil, &CyclicDependencyError{Cycle: []string{addr, addr}}
			}
			err := g.AddEdge(addr, target)
			if err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
				return nil, fmt.Errorf("failed to add edge %s -> %s: %w", addr, target, err)
			}
		}
	}

	adjacency, err := g.AdjacencyMap()
	if err != nil {
		return nil, fmt.Errorf("failed to index dependencies: %w", err)
	}
	predecessors, err := g.PredecessorMap()
	if err != nil {
		return nil, fmt.Errorf("failed to index dependents: %w", err)
	}
	rg.deps = make(map[string][]string, len(rg.order))
	rg.dependents = make(map[string][]string, len(rg.order))
	for _, addr := range rg.order {
		rg.deps[addr] = sortedKeys(adjacency[addr])
		rg.dependents[addr] = sortedKeys(predecessors[addr])
	}

	if cycle := rg.findCycle(); cycle != nil {
		return nil, &CyclicDependencyError{Cycle: cycle}
	}
	return rg, nil
}

// dependencyTargets returns the addresses a resource depends on: every Ref
// in its attributes plus explicit dependsOn entries, deduplicated.
func dependencyTargets(res *ir.Resource) []string {
	seen := make(map[string]bool)
	var targets []string
	add := func(addr string) {
		if !seen[addr] {
			seen[addr] = true
			targets = append(targets, addr)
		}
	}
	for _, dep := range res.DependsOn {
		add(dep)
	}
	for _, ref := range ir.ExtractRefs(res.Attributes) {
		add(ref.Address())
	}
	sort.Strings(targets)
	return targets
}

// Resources returns every resource sorted by address.
func (rg *Graph) Resources() []*ir.Resource {
	out := make([]*ir.Resource, 0, len(rg.order))
	for _, addr := range rg.order {
		out = append(out, rg.resources[addr])
	}
	return out
}

// Resource returns the resource at an address, if present.
func (rg *Graph) Resource(address string) (*ir.Resource, bool) {
	res, ok := rg.resources[address]
	return res, ok
}

// Dependencies returns the addresses a resource directly depends on.
func (rg *Graph) Dependencies(address string) []string {
	return rg.deps[address]
}

// Dependents returns the addresses that directly depend on a resource.
func (rg *Graph) Dependents(address string) []string {
	return rg.dependents[address]
}

// DepViewOf returns a validate.DepView scoped to one resource's direct
// dependencies.
func (rg *Graph) DepViewOf(res *ir.Resource) *depView {
	deps := make(map[string]*ir.Resource)
	for _, addr := range rg.Dependencies(res.Address()) {
		deps[addr] = rg.resources[addr]
	}
	return &depView{deps: deps}
}

type depView struct {
	deps map[string]*ir.Resource
}

func (v *depView) Dependency(address string) (*ir.Resource, bool) {
	res, ok := v.deps[address]
	return res, ok
}

// findCycle runs a DFS with recursion-stack marking and returns the
// members of the first cycle found in encounter order, or nil.
func (rg *Graph) findCycle() []string {
	const (
		unvisited = iota
		inStack
		done
	)
	marks := make(map[string]int, len(rg.order))
	var stack []string
	var cycle []string

	var visit func(addr string) bool
	visit = func(addr string) bool {
		marks[addr] = inStack
		stack = append(stack, addr)

		for _, next := range rg.deps[addr] {
			switch marks[next] {
			case inStack:
				// Slice the stack from the first occurrence of next to
				// report members in encounter order.
				for i, member := range stack {
					if member == next {
						cycle = append(append([]string{}, stack[i:]...), next)
						return true
					}
				}
			case unvisited:
				if visit(next) {
					return true
				}
			}
		}

		stack = stack[:len(stack)-1]
		marks[addr] = done
		return false
	}

	for _, addr := range rg.order {
		if marks[addr] == unvisited && visit(addr) {
			return cycle
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
