package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alitto/pond"

	"github.com/fabrik-io/fabrik/internal/ir"
	"github.com/fabrik-io/fabrik/internal/logging"
	"github.com/fabrik-io/fabrik/internal/provider"
)

// ApplyEvent represents a progress event during apply.
type ApplyEvent struct {
	Address  string
	Action   ir.Action
	Status   string // "started", "completed", "failed"
	Duration time.Duration
	Error    error
}

// ApplyCallback is called for each apply event if set. Callbacks may run
// concurrently for entries of the same stage.
type ApplyCallback func(event ApplyEvent)

// Apply executes a plan stage by stage. Entries within a stage run
// concurrently on a bounded worker pool; a barrier separates stages. When
// any entry of a stage fails (after retries), in-flight work of that stage
// completes but no later stage starts, and its entries are reported as
// skipped. Succeeded resources stay applied and recorded; there is no
// rollback.
func (e *Engine) Apply(ctx context.Context, plan *ir.Plan) (*ir.ApplyReport, error) {
	return e.ApplyWithCallback(ctx, plan, nil)
}

// ApplyWithCallback executes a plan with progress event callbacks.
func (e *Engine) ApplyWithCallback(ctx context.Context, plan *ir.Plan, callback ApplyCallback) (*ir.ApplyReport, error) {
	emit := func(event ApplyEvent) {
		if callback != nil {
			callback(event)
		}
	}

	total := len(plan.Entries())
	if total == 0 {
		return &ir.ApplyReport{}, nil
	}

	workers := e.Parallelism
	if workers <= 0 {
		workers = DefaultParallelism
	}
	pool := pond.New(workers, total)
	defer pool.StopAndWait()

	report := &ir.ApplyReport{}
	halted := false

	for _, stage := range plan.Stages {
		// Cancellation is checked between stages only; in-flight
		// operations are allowed to finish.
		if halted || ctx.Err() != nil {
			for _, entry := range stage.Entries {
				report.Results = append(report.Results, &ir.ResourceResult{
					Address: entry.Address,
					Action:  entry.Action,
					Status:  ir.StatusSkipped,
				})
			}
			continue
		}

		results := make([]*ir.ResourceResult, len(stage.Entries))
		group := pool.Group()
		for i, entry := range stage.Entries {
			i, entry := i, entry
			group.Submit(func() {
				results[i] = e.executeEntry(ctx, entry, emit)
			})
		}
		group.Wait()

		for _, result := range results {
			report.Results = append(report.Results, result)
			if result.Status == ir.StatusFailed {
				halted = true
			}
		}
	}

	if report.Failed() {
		var errs []error
		for _, result := range report.Results {
			if result.Status == ir.StatusFailed {
				errs = append(errs, fmt.Errorf("%s: %s", result.Address, result.Error))
			}
		}
		return report, fmt.Errorf("%d resource(s) failed: %w", len(errs), errors.Join(errs...))
	}
	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("apply cancelled: %w", err)
	}
	return report, nil
}

// executeEntry runs one operation: resolve references against the live
// store, call the provider with retry and a per-operation deadline, and on
// success record the new state immediately so a resumed run re-diffs
// against accurate partial progress.
func (e *Engine) executeEntry(ctx context.Context, entry *ir.DiffEntry, emit ApplyCallback) *ir.ResourceResult {
	start := time.Now()
	result := &ir.ResourceResult{Address: entry.Address, Action: entry.Action}
	emit(ApplyEvent{Address: entry.Address, Action: entry.Action, Status: "started"})

	fail := func(err error) *ir.ResourceResult {
		result.Status = ir.StatusFailed
		result.Error = err.Error()
		result.Duration = time.Since(start)
		emit(ApplyEvent{Address: entry.Address, Action: entry.Action, Status: "failed", Duration: result.Duration, Error: err})
		return result
	}

	kind, name := entry.Kind(), entry.Name()
	prov, err := e.registry.Lookup(kind)
	if err != nil {
		return fail(err)
	}

	req := &provider.Request{
		Action: entry.Action,
		Kind:   kind,
		Name:   name,
		Prior:  entry.Prior,
	}
	if entry.Desired != nil {
		req.Attributes = resolveAttributes(entry.Desired.Attributes, e.store)
	}
	logging.Debug("applying change", "address", entry.Address, "action", entry.Action)

	var res *provider.Result
	err = RetryWithBackoff(ctx, e.Retry, func() error {
		opCtx, cancel := context.WithTimeout(ctx, e.OpTimeout)
		defer cancel()
		var execErr error
		res, execErr = prov.Execute(opCtx, req)
		return execErr
	}, func(err error) bool {
		return prov.Classify(err) == provider.Transient
	})
	if err != nil {
		return fail(fmt.Errorf("%s failed for %s: %w", entry.Action, entry.Address, err))
	}

	switch entry.Action {
	case ir.ActionCreate, ir.ActionUpdate:
		record := &ir.Record{
			Kind:         kind,
			Name:         name,
			Attributes:   req.Attributes,
			Handle:       res.Handle,
			Dependencies: entry.Dependencies,
		}
		if res.Attributes != nil {
			record.Computed = res.Attributes
		}
		if err := e.store.Put(record); err != nil {
			return fail(fmt.Errorf("failed to record state for %s: %w", entry.Address, err))
		}
	case ir.ActionDelete:
		if err := e.store.Delete(entry.Address); err != nil {
			return fail(fmt.Errorf("failed to remove state for %s: %w", entry.Address, err))
		}
	}

	result.Status = ir.StatusSucceeded
	result.Duration = time.Since(start)
	emit(ApplyEvent{Address: entry.Address, Action: entry.Action, Status: "completed", Duration: result.Duration})
	return result
}
