package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabrik-io/fabrik/internal/ir"
)

const sampleDoc = `
resources:
  - kind: sim.vpc
    name: main
    attributes:
      cidr: 10.0.0.0/16
  - kind: sim.subnet
    name: a
    dependsOn:
      - sim.vpc.main
    attributes:
      vpc: ref://sim.vpc/main/id
      cidr: 10.0.1.0/24
  - kind: sim.instance
    name: web
    lifecycle:
      preventDestroy: true
      ignoreChanges:
        - size
    attributes:
      subnet: ref://sim.subnet/a/id
      size: 4
`

func TestParse_Document(t *testing.T) {
	resources, err := Parse([]byte(sampleDoc))
	require.NoError(t, err)
	require.Len(t, resources, 3)

	vpc := resources[0]
	assert.Equal(t, "sim.vpc.main", vpc.Address())
	assert.Equal(t, "10.0.0.0/16", vpc.Attributes["cidr"])

	subnet := resources[1]
	assert.Equal(t, []string{"sim.vpc.main"}, subnet.DependsOn)
	assert.Equal(t, ir.Ref{Kind: "sim.vpc", Name: "main", Attribute: "id"}, subnet.Attributes["vpc"])

	instance := resources[2]
	require.NotNil(t, instance.Lifecycle)
	assert.True(t, instance.Lifecycle.PreventDestroy)
	assert.Equal(t, []string{"size"}, instance.Lifecycle.IgnoreChanges)
	// YAML integers widen to float64 so they diff cleanly against
	// JSON-loaded state.
	assert.Equal(t, float64(4), instance.Attributes["size"])
}

func TestParse_MissingKind(t *testing.T) {
	_, err := Parse([]byte("resources:\n  - name: main\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing kind")
}

func TestParse_MissingName(t *testing.T) {
	_, err := Parse([]byte("resources:\n  - kind: sim.vpc\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing name")
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("resources: [unterminated"))
	require.Error(t, err)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fabrik.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleDoc), 0644))

	resources, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, resources, 3)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config")
}
