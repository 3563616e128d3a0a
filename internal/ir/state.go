package ir

import "fmt"

// Record is the last applied state of a single resource: the attributes the
// engine applied, the attributes the provider computed, and the opaque
// provider-assigned handle (e.g. an ARN or instance id).
type Record struct {
	Kind         string         `json:"kind"`
	Name         string         `json:"name"`
	Attributes   map[string]any `json:"attributes,omitempty"` // applied inputs, post reference-resolution
	Computed     map[string]any `json:"computed,omitempty"`   // provider returned
	Handle       string         `json:"handle,omitempty"`
	Dependencies []string       `json:"dependencies,omitempty"`
}

// Address returns the identity of the recorded resource (kind.name).
func (r *Record) Address() string {
	return fmt.Sprintf("%s.%s", r.Kind, r.Name)
}

// Attribute resolves an attribute by name, preferring provider-computed
// values over applied inputs. The handle is exposed as "id".
func (r *Record) Attribute(name string) (any, bool) {
	if name == "id" && r.Handle != "" {
		return r.Handle, true
	}
	if v, ok := r.Computed[name]; ok {
		return v, true
	}
	if v, ok := r.Attributes[name]; ok {
		return v, true
	}
	return nil, false
}

// Copy returns a deep copy of the record so stores can hand out records
// without aliasing their internal maps.
func (r *Record) Copy() *Record {
	if r == nil {
		return nil
	}
	out := &Record{
		Kind:       r.Kind,
		Name:       r.Name,
		Attributes: CopyAttributes(r.Attributes),
		Computed:   CopyAttributes(r.Computed),
		Handle:     r.Handle,
	}
	out.Dependencies = append(out.Dependencies, r.Dependencies...)
	return out
}
