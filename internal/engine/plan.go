package engine

import (
	"sort"
	"time"

	"github.com/fabrik-io/fabrik/internal/ir"
)

// opKey identifies one operation in the restricted plan graph. A replace
// contributes two ops for the same address.
type opKey struct {
	action  ir.Action
	address string
}

// buildPlan orders non-NoOp entries into topological stages. Create and
// update operations wait for their dependencies; deletes are levelled
// against the reversed edges: a resource is deleted only after everything
// depending on it is deleted (or updated away from it). The create half of
// a replace waits for its delete half.
func buildPlan(diffs []*ir.DiffEntry) (*ir.Plan, error) {
	plan := &ir.Plan{
		Metadata: &ir.PlanMetadata{Timestamp: time.Now().UTC().Format(time.RFC3339)},
		Summary:  &ir.PlanSummary{},
	}

	changes := make(map[opKey]*ir.DiffEntry)
	deletes := make(map[string]*ir.DiffEntry)
	upserts := make(map[string]*ir.DiffEntry)
	// dependents[addr] lists entries whose Dependencies include addr.
	dependents := make(map[string][]*ir.DiffEntry)

	for _, entry := range diffs {
		switch entry.Action {
		case ir.ActionNoOp:
			plan.Summary.NoOp++
			continue
		case ir.ActionCreate:
			plan.Summary.Create++
			if entry.Replace {
				plan.Summary.Replace++
				plan.Summary.Create--
				plan.Summary.Delete--
			}
			upserts[entry.Address] = entry
		case ir.ActionUpdate:
			plan.Summary.Update++
			upserts[entry.Address] = entry
		case ir.ActionDelete:
			plan.Summary.Delete++
			deletes[entry.Address] = entry
		}
		changes[keyOf(entry)] = entry
		for _, dep := range entry.Dependencies {
			dependents[dep] = append(dependents[dep], entry)
		}
	}

	// deps[op] is the set of ops that must land in an earlier stage.
	deps := make(map[opKey]map[opKey]bool, len(changes))
	addDep := func(from *ir.DiffEntry, to *ir.DiffEntry) {
		k := keyOf(from)
		if deps[k] == nil {
			deps[k] = make(map[opKey]bool)
		}
		deps[k][keyOf(to)] = true
	}

	for _, entry := range changes {
		switch entry.Action {
		case ir.ActionCreate, ir.ActionUpdate:
			for _, dep := range entry.Dependencies {
				if upstream, ok := upserts[dep]; ok {
					addDep(entry, upstream)
				}
			}
			// Replace: destroy the old instance before creating the new.
			if del, ok := deletes[entry.Address]; ok {
				addDep(entry, del)
			}
		case ir.ActionDelete:
			for _, dependent := range dependents[entry.Address] {
				if dependent.Address == entry.Address {
					continue
				}
				if dependent.Action == ir.ActionDelete {
					addDep(entry, dependent)
				} else if _, replacing := upserts[entry.Address]; !replacing {
					// A pure removal also waits for dependents to be
					// updated away from it.
					addDep(entry, dependent)
				}
			}
		}
	}

	// Kahn levelling: each round schedules every op whose dependencies
	// are already placed; a stuck round means a residual cycle.
	placed := make(map[opKey]bool, len(changes))
	for len(placed) < len(changes) {
		var ready []*ir.DiffEntry
		for k, entry := range changes {
			if placed[k] {
				continue
			}
			ok := true
			for dep := range deps[k] {
				if !placed[dep] {
					ok = false
					break
				}
			}
			if ok {
				ready = append(ready, entry)
			}
		}
		if len(ready) == 0 {
			var remaining []string
			for k := range changes {
				if !placed[k] {
					remaining = append(remaining, k.address)
				}
			}
			sort.Strings(remaining)
			return nil, &PlanningError{Remaining: remaining}
		}

		sort.Slice(ready, func(i, j int) bool {
			if ready[i].Address != ready[j].Address {
				return ready[i].Address < ready[j].Address
			}
			return ready[i].Action == ir.ActionDelete
		})
		for _, entry := range ready {
			placed[keyOf(entry)] = true
		}
		plan.Stages = append(plan.Stages, &ir.Stage{Entries: ready})
	}

	return plan, nil
}

func keyOf(entry *ir.DiffEntry) opKey {
	return opKey{action: actionClass(entry.Action), address: entry.Address}
}

// actionClass folds CREATE and UPDATE together so an address has at most
// one upsert op and one delete op.
func actionClass(a ir.Action) ir.Action {
	if a == ir.ActionDelete {
		return ir.ActionDelete
	}
	return ir.ActionCreate
}
