// Package engine implements the provisioning core: dependency graph
// construction, desired-vs-recorded diffing, stage planning, and ordered
// concurrent apply.
package engine

import (
	"context"
	"time"

	"github.com/fabrik-io/fabrik/internal/ir"
	"github.com/fabrik-io/fabrik/internal/logging"
	"github.com/fabrik-io/fabrik/internal/provider"
	"github.com/fabrik-io/fabrik/internal/state"
	"github.com/fabrik-io/fabrik/internal/validate"
)

const (
	// DefaultParallelism bounds the per-stage worker pool.
	DefaultParallelism = 10

	// DefaultOpTimeout is the default per-operation deadline passed to
	// provider.Execute.
	DefaultOpTimeout = 30 * time.Minute
)

// Engine orchestrates the lifecycle of resources against a state store.
// The store is injected, never global, so concurrent runs against
// different backends are possible.
type Engine struct {
	registry *provider.Registry
	store    state.Store

	// Validators holds the pluggable invariant registry; nil disables
	// validation.
	Validators *validate.Registry

	// Parallelism bounds concurrent operations within a stage.
	Parallelism int

	// OpTimeout is the per-operation deadline.
	OpTimeout time.Duration

	// Retry controls backoff for transient provider errors.
	Retry *RetryPolicy
}

func New(registry *provider.Registry, store state.Store) *Engine {
	return &Engine{
		registry:    registry,
		store:       store,
		Parallelism: DefaultParallelism,
		OpTimeout:   DefaultOpTimeout,
		Retry:       DefaultRetryPolicy(),
	}
}

// PlanOptions alter how a plan is computed.
type PlanOptions struct {
	// Destroy plans the deletion of every recorded resource, ignoring
	// the desired set.
	Destroy bool

	// Targets restricts the plan to the named addresses plus their
	// transitive dependencies. Empty means everything.
	Targets []string
}

// Plan computes an execution plan for the desired resource set. Graph,
// validation, and planning errors are returned before any provider side
// effect occurs: nothing mutates if planning fails.
func (e *Engine) Plan(ctx context.Context, resources []*ir.Resource, opts *PlanOptions) (*ir.Plan, error) {
	if opts == nil {
		opts = &PlanOptions{}
	}

	if opts.Destroy {
		diffs, err := e.destroyDiffs()
		if err != nil {
			return nil, err
		}
		return buildPlan(diffs)
	}

	g, err := BuildGraph(resources)
	if err != nil {
		return nil, err
	}

	violations := e.runValidators(g)
	for _, v := range violations {
		if v.Severity == validate.Warning {
			logging.Warn("validation warning", "address", v.Address, "message", v.Message)
		}
	}
	if validate.HasFatal(violations) {
		return nil, &ViolationError{Violations: violations}
	}

	diffs, err := e.diff(g)
	if err != nil {
		return nil, err
	}
	if len(opts.Targets) > 0 {
		diffs = filterTargets(diffs, g, opts.Targets)
	}

	logging.Debug("planning", "resources", len(resources), "changes", len(diffs))
	return buildPlan(diffs)
}

// Validate builds the graph and runs every registered invariant, returning
// all violations found in one pass.
func (e *Engine) Validate(resources []*ir.Resource) ([]validate.Violation, error) {
	g, err := BuildGraph(resources)
	if err != nil {
		return nil, err
	}
	return e.runValidators(g), nil
}

func (e *Engine) runValidators(g *Graph) []validate.Violation {
	if e.Validators == nil {
		return nil
	}
	var out []validate.Violation
	for _, res := range g.Resources() {
		out = append(out, e.Validators.Validate(res, g.DepViewOf(res))...)
	}
	return out
}

// filterTargets keeps entries for the targeted addresses and their
// transitive dependencies; everything else is downgraded to NoOp.
func filterTargets(diffs []*ir.DiffEntry, g *Graph, targets []string) []*ir.DiffEntry {
	keep := make(map[string]bool)
	for _, target := range targets {
		keep[target] = true
		for _, dep := range g.TransitiveDependencies(target) {
			keep[dep] = true
		}
	}

	out := make([]*ir.DiffEntry, 0, len(diffs))
	for _, entry := range diffs {
		if keep[entry.Address] || entry.Action == ir.ActionNoOp {
			out = append(out, entry)
			continue
		}
		out = append(out, &ir.DiffEntry{
			Address: entry.Address,
			Action:  ir.ActionNoOp,
			Desired: entry.Desired,
			Prior:   entry.Prior,
		})
	}
	return out
}

// TransitiveDependencies returns every address reachable through
// dependency edges from the given address.
func (rg *Graph) TransitiveDependencies(address string) []string {
	seen := make(map[string]bool)
	var out []string
	var walk func(addr string)
	walk = func(addr string) {
		for _, dep := range rg.Dependencies(addr) {
			if !seen[dep] {
				seen[dep] = true
				out = append(out, dep)
				walk(dep)
			}
		}
	}
	walk(address)
	return out
}
