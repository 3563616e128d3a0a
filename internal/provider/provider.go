// Package provider defines the callback contract between the engine and
// the code that performs actual side effects. The engine never talks to a
// cloud API directly; it dispatches to one Provider per resource kind
// family through a registry.
package provider

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/fabrik-io/fabrik/internal/ir"
)

// ErrorClass tells the executor whether a failed operation may be retried.
type ErrorClass int

const (
	// Fatal errors mark the resource failed immediately.
	Fatal ErrorClass = iota
	// Transient errors (throttling, flaky transport) are retried with
	// backoff.
	Transient
)

// Request describes one operation the executor wants performed.
type Request struct {
	Action ir.Action
	Kind   string
	Name   string
	// Attributes are the desired attributes with references already
	// resolved. Nil for deletes.
	Attributes map[string]any
	// Prior is the current state record, nil for creates.
	Prior *ir.Record
}

// Result is what a provider returns from a successful create or update.
type Result struct {
	// Attributes are provider-computed values (beyond the inputs).
	Attributes map[string]any
	// Handle is the opaque provider-assigned identifier.
	Handle string
}

// Provider performs operations for every kind in one family.
type Provider interface {
	// Execute performs the requested operation. The context carries the
	// per-operation deadline.
	Execute(ctx context.Context, req *Request) (*Result, error)

	// Classify reports whether an error from Execute is retryable.
	Classify(err error) ErrorClass

	// RequiresReplace reports whether a change to the given attribute
	// path of the given kind cannot be applied in place.
	RequiresReplace(kind, path string) bool
}

// Registry maps kind families to providers.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register installs a provider for a kind family ("sim", "null", ...).
func (r *Registry) Register(family string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[family] = p
}

// Lookup returns the provider responsible for a kind, resolved by the
// kind's family segment.
func (r *Registry) Lookup(kind string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[ir.KindFamily(kind)]
	if !ok {
		return nil, fmt.Errorf("no provider registered for kind %q", kind)
	}
	return p, nil
}

// Families returns the registered family names, sorted.
func (r *Registry) Families() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.providers))
	for name := range r.providers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
