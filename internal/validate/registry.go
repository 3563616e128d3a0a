// Package validate runs pluggable per-kind invariant checks before
// planning. The engine only defines the registration and execution
// contract; the rules themselves ship with providers.
package validate

import "github.com/fabrik-io/fabrik/internal/ir"

// Severity of a violation. Fatal violations block planning; warnings are
// surfaced but non-blocking.
type Severity string

const (
	Fatal   Severity = "FATAL"
	Warning Severity = "WARNING"
)

// Violation is one invariant failure found on a resource.
type Violation struct {
	Address  string   `json:"address"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// DepView gives an invariant read-only access to the resolved dependencies
// of the resource under validation.
type DepView interface {
	// Dependency returns a dependency of the current resource by its
	// address (kind.name).
	Dependency(address string) (*ir.Resource, bool)
}

// InvariantFn checks one resource. Violations are collected, not
// short-circuited, so a single pass reports every problem.
type InvariantFn func(res *ir.Resource, deps DepView) []Violation

// Registry holds invariant functions keyed by resource kind.
type Registry struct {
	rules map[string][]InvariantFn
}

func NewRegistry() *Registry {
	return &Registry{rules: make(map[string][]InvariantFn)}
}

// Register adds an invariant for a resource kind.
func (r *Registry) Register(kind string, fn InvariantFn) {
	r.rules[kind] = append(r.rules[kind], fn)
}

// Validate runs every invariant registered for the resource's kind.
func (r *Registry) Validate(res *ir.Resource, deps DepView) []Violation {
	var out []Violation
	for _, fn := range r.rules[res.Kind] {
		out = append(out, fn(res, deps)...)
	}
	return out
}

// HasFatal reports whether any violation is fatal.
func HasFatal(violations []Violation) bool {
	for _, v := range violations {
		if v.Severity == Fatal {
			return true
		}
	}
	return false
}
