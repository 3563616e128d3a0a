package ir

import (
	"fmt"
	"strings"
)

// Resource represents a single declaratively managed unit.
type Resource struct {
	Kind       string         `yaml:"kind" json:"kind"` // e.g., "sim.vpc"
	Name       string         `yaml:"name" json:"name"`
	DependsOn  []string       `yaml:"dependsOn,omitempty" json:"dependsOn,omitempty"`
	Lifecycle  *Lifecycle     `yaml:"lifecycle,omitempty" json:"lifecycle,omitempty"`
	Attributes map[string]any `yaml:"attributes,omitempty" json:"attributes,omitempty"`
}

type Lifecycle struct {
	PreventDestroy bool     `yaml:"preventDestroy,omitempty" json:"preventDestroy,omitempty"`
	IgnoreChanges  []string `yaml:"ignoreChanges,omitempty" json:"ignoreChanges,omitempty"`
}

// Address returns the identity of a resource (kind.name), unique within a
// resource set.
func (r *Resource) Address() string {
	return fmt.Sprintf("%s.%s", r.Kind, r.Name)
}

// Family returns the provider family of a resource kind, the segment before
// the first dot ("sim.vpc" -> "sim").
func (r *Resource) Family() string {
	return KindFamily(r.Kind)
}

// IgnoresChange reports whether the given attribute path (or a prefix of it)
// is listed in the resource's lifecycle ignoreChanges.
func (r *Resource) IgnoresChange(path string) bool {
	if r.Lifecycle == nil {
		return false
	}
	for _, ignored := range r.Lifecycle.IgnoreChanges {
		if path == ignored || strings.HasPrefix(path, ignored+".") {
			return true
		}
	}
	return false
}

// KindFamily returns the segment of a kind before the first dot.
func KindFamily(kind string) string {
	if i := strings.IndexByte(kind, '.'); i >= 0 {
		return kind[:i]
	}
	return kind
}
