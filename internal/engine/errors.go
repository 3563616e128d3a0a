package engine

import (
	"fmt"
	"strings"

	"github.com/fabrik-io/fabrik/internal/ir"
	"github.com/fabrik-io/fabrik/internal/validate"
)

// UnresolvedReferenceError is returned by graph construction when a
// resource references a (kind, name) that is not in the input set. Fatal,
// not retryable; no provider call is made.
type UnresolvedReferenceError struct {
	Address string // referencing resource
	Target  string // missing address
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("resource %s references unknown resource %s", e.Address, e.Target)
}

// CyclicDependencyError is returned by graph construction when the edge set
// is not a DAG. Cycle lists the members in encounter order.
type CyclicDependencyError struct {
	Cycle []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// DuplicateAddressError is returned when two resources share (kind, name).
type DuplicateAddressError struct {
	Address string
}

func (e *DuplicateAddressError) Error() string {
	return fmt.Sprintf("duplicate resource address %s", e.Address)
}

// ViolationError blocks planning when any invariant violation is fatal.
// It carries every violation found in the pass, warnings included.
type ViolationError struct {
	Violations []validate.Violation
}

func (e *ViolationError) Error() string {
	fatal := 0
	for _, v := range e.Violations {
		if v.Severity == validate.Fatal {
			fatal++
		}
	}
	return fmt.Sprintf("validation failed with %d fatal violation(s)", fatal)
}

// PlanningError means the operation graph could not be fully staged: a
// residual cycle survived diffing. Delete reversal can reintroduce one when
// recorded dependencies are inconsistent with reference direction.
type PlanningError struct {
	Remaining []string
}

func (e *PlanningError) Error() string {
	return fmt.Sprintf("cannot order operations, cycle among: %s", strings.Join(e.Remaining, ", "))
}

// PreventDestroyError is returned when a plan requires destroying a
// resource whose lifecycle forbids it.
type PreventDestroyError struct {
	Address string
	Action  ir.Action
}

func (e *PreventDestroyError) Error() string {
	return fmt.Sprintf("resource %s has preventDestroy set but plan requires destruction", e.Address)
}
