package engine

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	rdiff "github.com/r3labs/diff"

	"github.com/fabrik-io/fabrik/internal/ir"
	"github.com/fabrik-io/fabrik/internal/state"
)

// diff classifies every resource in the graph against the state store.
// Absent record: CREATE. Present and deep-equal after reference
// resolution: NOOP. Otherwise UPDATE with attribute-level diffs, or a
// DELETE+CREATE pair when a changed path requires replacement. Records
// with no desired resource become DELETE entries.
func (e *Engine) diff(g *Graph) ([]*ir.DiffEntry, error) {
	var entries []*ir.DiffEntry

	for _, res := range g.Resources() {
		addr := res.Address()
		deps := g.Dependencies(addr)

		rec, err := e.store.Get(addr)
		if errors.Is(err, state.ErrNotFound) {
			entries = append(entries, &ir.DiffEntry{
				Address:      addr,
				Action:       ir.ActionCreate,
				Desired:      res,
				Diffs:        createDiffs(res.Attributes),
				Dependencies: deps,
			})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read state for %s: %w", addr, err)
		}

		desired := resolveAttributes(res.Attributes, e.store)
		changes := dropIgnoredChanges(res, diffAttributes(rec.Attributes, desired))

		if len(changes) == 0 {
			entries = append(entries, &ir.DiffEntry{
				Address: addr,
				Action:  ir.ActionNoOp,
				Desired: res,
				Prior:   rec,
			})
			continue
		}

		prov, err := e.registry.Lookup(res.Kind)
		if err != nil {
			return nil, err
		}
		replace := false
		for _, change := range changes {
			if prov.RequiresReplace(res.Kind, change.Path) {
				replace = true
				break
			}
		}

		if replace {
			if res.Lifecycle != nil && res.Lifecycle.PreventDestroy {
				return nil, &PreventDestroyError{Address: addr, Action: ir.ActionDelete}
			}
			entries = append(entries,
				&ir.DiffEntry{
					Address:      addr,
					Action:       ir.ActionDelete,
					Prior:        rec,
					Diffs:        deleteDiffs(rec.Attributes),
					Replace:      true,
					Dependencies: rec.Dependencies,
				},
				&ir.DiffEntry{
					Address:      addr,
					Action:       ir.ActionCreate,
					Desired:      res,
					Prior:        rec,
					Diffs:        changes,
					Replace:      true,
					Dependencies: deps,
				})
			continue
		}

		entries = append(entries, &ir.DiffEntry{
			Address:      addr,
			Action:       ir.ActionUpdate,
			Desired:      res,
			Prior:        rec,
			Diffs:        changes,
			Dependencies: deps,
		})
	}

	orphans, err := e.orphanedRecords(g)
	if err != nil {
		return nil, err
	}
	entries = append(entries, orphans...)
	return entries, nil
}

// orphanedRecords returns DELETE entries for records whose resource is no
// longer in the desired set.
func (e *Engine) orphanedRecords(g *Graph) ([]*ir.DiffEntry, error) {
	records, err := e.store.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list state: %w", err)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Address() < records[j].Address()
	})

	var entries []*ir.DiffEntry
	for _, rec := range records {
		if _, ok := g.Resource(rec.Address()); ok {
			continue
		}
		entries = append(entries, &ir.DiffEntry{
			Address:      rec.Address(),
			Action:       ir.ActionDelete,
			Prior:        rec,
			Diffs:        deleteDiffs(rec.Attributes),
			Dependencies: rec.Dependencies,
		})
	}
	return entries, nil
}

// destroyDiffs plans the deletion of every recorded resource.
func (e *Engine) destroyDiffs() ([]*ir.DiffEntry, error) {
	records, err := e.store.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list state: %w", err)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Address() < records[j].Address()
	})

	entries := make([]*ir.DiffEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, &ir.DiffEntry{
			Address:      rec.Address(),
			Action:       ir.ActionDelete,
			Prior:        rec,
			Diffs:        deleteDiffs(rec.Attributes),
			Dependencies: rec.Dependencies,
		})
	}
	return entries, nil
}

// diffAttributes computes attribute-level changes between recorded and
// desired attribute maps. Comparison is structural, value-based, and
// per attribute: a value whose Go kind changed (size: 2 -> "large", or a
// reference that could not be resolved against a handle that was) is a
// whole-value update, never an error.
func diffAttributes(prior, desired map[string]any) []*ir.AttributeDiff {
	keys := make(map[string]bool, len(prior)+len(desired))
	for k := range prior {
		keys[k] = true
	}
	for k := range desired {
		keys[k] = true
	}

	var out []*ir.AttributeDiff
	for _, key := range sortedKeys(keys) {
		pv, pok := prior[key]
		dv, dok := desired[key]
		switch {
		case !pok:
			out = append(out, &ir.AttributeDiff{Path: key, Op: "create", After: dv})
		case !dok:
			out = append(out, &ir.AttributeDiff{Path: key, Op: "delete", Before: pv})
		case reflect.DeepEqual(pv, dv):
			continue
		default:
			changelog, err := rdiff.Diff(pv, dv)
			if err != nil || len(changelog) == 0 {
				out = append(out, &ir.AttributeDiff{Path: key, Op: "update", Before: pv, After: dv})
				continue
			}
			for _, change := range changelog {
				out = append(out, &ir.AttributeDiff{
					Path:   strings.Join(append([]string{key}, change.Path...), "."),
					Op:     change.Type,
					Before: change.From,
					After:  change.To,
				})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// dropIgnoredChanges removes changes covered by lifecycle ignoreChanges.
func dropIgnoredChanges(res *ir.Resource, changes []*ir.AttributeDiff) []*ir.AttributeDiff {
	if res.Lifecycle == nil || len(res.Lifecycle.IgnoreChanges) == 0 {
		return changes
	}
	out := changes[:0]
	for _, change := range changes {
		if !res.IgnoresChange(change.Path) {
			out = append(out, change)
		}
	}
	return out
}

func createDiffs(attrs map[string]any) []*ir.AttributeDiff {
	out := make([]*ir.AttributeDiff, 0, len(attrs))
	for _, key := range sortedKeys(attrs) {
		out = append(out, &ir.AttributeDiff{Path: key, Op: "create", After: attrs[key]})
	}
	return out
}

func deleteDiffs(attrs map[string]any) []*ir.AttributeDiff {
	out := make([]*ir.AttributeDiff, 0, len(attrs))
	for _, key := range sortedKeys(attrs) {
		out = append(out, &ir.AttributeDiff{Path: key, Op: "delete", Before: attrs[key]})
	}
	return out
}

// resolveAttributes resolves references in a whole attribute map.
func resolveAttributes(attrs map[string]any, store state.Store) map[string]any {
	if attrs == nil {
		return nil
	}
	return resolveValue(attrs, store).(map[string]any)
}

// resolveValue replaces each Ref with the referenced attribute from the
// state store, preferring provider-computed values. Unresolvable refs stay
// in place; the resource they point at is usually being created in the
// same run.
func resolveValue(v any, store state.Store) any {
	switch val := v.(type) {
	case ir.Ref:
		rec, err := store.Get(val.Address())
		if err != nil {
			return val
		}
		if attr, ok := rec.Attribute(val.Attribute); ok {
			return attr
		}
		return val
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = resolveValue(item, store)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = resolveValue(item, store)
		}
		return out
	default:
		return val
	}
}
