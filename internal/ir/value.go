package ir

import (
	"fmt"
	"strings"
)

// RefScheme prefixes the textual form of a reference to another resource's
// attribute, e.g. "ref://sim.vpc/main/id".
const RefScheme = "ref://"

// Ref is an unresolved reference to an attribute of another resource. It
// appears as a value inside Resource.Attributes and is replaced with the
// target's recorded attribute during reference resolution.
type Ref struct {
	Kind      string
	Name      string
	Attribute string
}

// Address returns the identity of the referenced resource (kind.name).
func (r Ref) Address() string {
	return fmt.Sprintf("%s.%s", r.Kind, r.Name)
}

func (r Ref) String() string {
	return fmt.Sprintf("%s%s/%s/%s", RefScheme, r.Kind, r.Name, r.Attribute)
}

// MarshalJSON serializes a Ref in its textual ref:// form so plans and state
// files round-trip through plain JSON.
func (r Ref) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", r.String())), nil
}

// ParseRef parses the textual ref://kind/name/attribute form.
func ParseRef(s string) (Ref, bool) {
	if !strings.HasPrefix(s, RefScheme) {
		return Ref{}, false
	}
	parts := strings.Split(s[len(RefScheme):], "/")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return Ref{}, false
	}
	return Ref{Kind: parts[0], Name: parts[1], Attribute: parts[2]}, true
}

// ExtractRefs walks an attribute value and collects every Ref found in it.
func ExtractRefs(v any) []Ref {
	var refs []Ref
	switch val := v.(type) {
	case Ref:
		refs = append(refs, val)
	case string:
		if ref, ok := ParseRef(val); ok {
			refs = append(refs, ref)
		}
	case map[string]any:
		for _, item := range val {
			refs = append(refs, ExtractRefs(item)...)
		}
	case []any:
		for _, item := range val {
			refs = append(refs, ExtractRefs(item)...)
		}
	}
	return refs
}

// NormalizeRefs returns a copy of an attribute value with every ref://
// string replaced by a Ref and every numeric scalar widened to float64.
// Used when loading configuration documents and state files, so values
// compare equal regardless of whether they arrived via YAML or JSON.
func NormalizeRefs(v any) any {
	switch val := v.(type) {
	case string:
		if ref, ok := ParseRef(val); ok {
			return ref
		}
		return val
	case int:
		return float64(val)
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	case uint:
		return float64(val)
	case uint64:
		return float64(val)
	case float32:
		return float64(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = NormalizeRefs(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = NormalizeRefs(item)
		}
		return out
	default:
		return val
	}
}

// NormalizeAttributes applies NormalizeRefs to a whole attribute map.
func NormalizeAttributes(attrs map[string]any) map[string]any {
	if attrs == nil {
		return nil
	}
	return NormalizeRefs(attrs).(map[string]any)
}

// CopyValue deep-copies an attribute value. Scalars and Refs are immutable
// and returned as-is.
func CopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = CopyValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = CopyValue(item)
		}
		return out
	default:
		return val
	}
}

// CopyAttributes deep-copies an attribute map.
func CopyAttributes(attrs map[string]any) map[string]any {
	if attrs == nil {
		return nil
	}
	return CopyValue(attrs).(map[string]any)
}
