package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fabrik-io/fabrik/internal/ir"
)

type mapDeps map[string]*ir.Resource

func (m mapDeps) Dependency(address string) (*ir.Resource, bool) {
	res, ok := m[address]
	return res, ok
}

func TestRegistry_ValidateRunsRulesForKind(t *testing.T) {
	reg := NewRegistry()
	reg.Register("sim.vpc", func(res *ir.Resource, _ DepView) []Violation {
		return []Violation{{Address: res.Address(), Severity: Fatal, Message: "first"}}
	})
	reg.Register("sim.vpc", func(res *ir.Resource, _ DepView) []Violation {
		return []Violation{{Address: res.Address(), Severity: Warning, Message: "second"}}
	})
	reg.Register("sim.subnet", func(res *ir.Resource, _ DepView) []Violation {
		return []Violation{{Address: res.Address(), Severity: Fatal, Message: "wrong kind"}}
	})

	violations := reg.Validate(&ir.Resource{Kind: "sim.vpc", Name: "main"}, mapDeps{})
	assert.Len(t, violations, 2)
	assert.Equal(t, "first", violations[0].Message)
	assert.Equal(t, "second", violations[1].Message)
}

func TestRegistry_UnknownKindHasNoViolations(t *testing.T) {
	reg := NewRegistry()
	violations := reg.Validate(&ir.Resource{Kind: "sim.gateway", Name: "igw"}, mapDeps{})
	assert.Empty(t, violations)
}

func TestRegistry_RulesSeeDependencies(t *testing.T) {
	reg := NewRegistry()
	reg.Register("sim.subnet", func(res *ir.Resource, deps DepView) []Violation {
		parent, ok := deps.Dependency("sim.vpc.main")
		if !ok || parent.Attributes["cidr"] != "10.0.0.0/16" {
			return []Violation{{Address: res.Address(), Severity: Fatal, Message: "parent not visible"}}
		}
		return nil
	})

	deps := mapDeps{"sim.vpc.main": {
		Kind:       "sim.vpc",
		Name:       "main",
		Attributes: map[string]any{"cidr": "10.0.0.0/16"},
	}}
	violations := reg.Validate(&ir.Resource{Kind: "sim.subnet", Name: "a"}, deps)
	assert.Empty(t, violations)
}

func TestHasFatal(t *testing.T) {
	assert.False(t, HasFatal(nil))
	assert.False(t, HasFatal([]Violation{{Severity: Warning}}))
	assert.True(t, HasFatal([]Violation{{Severity: Warning}, {Severity: Fatal}}))
}
