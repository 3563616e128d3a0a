package sim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabrik-io/fabrik/internal/ir"
	"github.com/fabrik-io/fabrik/internal/provider"
	"github.com/fabrik-io/fabrik/internal/validate"
)

func TestProvider_CreateUpdateDelete(t *testing.T) {
	p := New()
	ctx := context.Background()

	created, err := p.Execute(ctx, &provider.Request{
		Action:     ir.ActionCreate,
		Kind:       KindVPC,
		Name:       "main",
		Attributes: map[string]any{"cidr": "10.0.0.0/16"},
	})
	require.NoError(t, err)
	assert.Contains(t, created.Handle, "vpc-")
	assert.Contains(t, created.Attributes["arn"], created.Handle)
	assert.Equal(t, 1, p.ObjectCount())

	updated, err := p.Execute(ctx, &provider.Request{
		Action:     ir.ActionUpdate,
		Kind:       KindVPC,
		Name:       "main",
		Attributes: map[string]any{"cidr": "10.0.0.0/16"},
		Prior:      &ir.Record{Kind: KindVPC, Name: "main", Handle: created.Handle},
	})
	require.NoError(t, err)
	assert.Equal(t, created.Handle, updated.Handle)
	assert.Equal(t, 1, p.ObjectCount())

	_, err = p.Execute(ctx, &provider.Request{
		Action: ir.ActionDelete,
		Kind:   KindVPC,
		Name:   "main",
		Prior:  &ir.Record{Kind: KindVPC, Name: "main", Handle: created.Handle},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, p.ObjectCount())
}

func TestProvider_UpdateWithoutPriorFails(t *testing.T) {
	p := New()
	_, err := p.Execute(context.Background(), &provider.Request{
		Action:     ir.ActionUpdate,
		Kind:       KindVPC,
		Name:       "main",
		Attributes: map[string]any{"cidr": "10.0.0.0/16"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without prior handle")
}

func TestProvider_UnknownKind(t *testing.T) {
	p := New()
	_, err := p.Execute(context.Background(), &provider.Request{
		Action: ir.ActionCreate,
		Kind:   "sim.volcano",
		Name:   "x",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown kind")
}

func TestProvider_UnresolvedReferenceFailsDecoding(t *testing.T) {
	p := New()
	_, err := p.Execute(context.Background(), &provider.Request{
		Action: ir.ActionCreate,
		Kind:   KindSubnet,
		Name:   "a",
		Attributes: map[string]any{
			"vpc":  ir.Ref{Kind: KindVPC, Name: "main", Attribute: "id"},
			"cidr": "10.0.1.0/24",
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid attributes")
}

func TestProvider_TransientFailureInjection(t *testing.T) {
	p := New()
	req := &provider.Request{
		Action: ir.ActionCreate,
		Kind:   KindVPC,
		Name:   "flaky",
		Attributes: map[string]any{
			"cidr":              "10.0.0.0/16",
			"transientFailures": float64(2),
		},
	}

	_, err := p.Execute(context.Background(), req)
	assert.ErrorIs(t, err, ErrThrottled)
	assert.Equal(t, provider.Transient, p.Classify(err))

	_, err = p.Execute(context.Background(), req)
	assert.ErrorIs(t, err, ErrThrottled)

	res, err := p.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Handle)
}

func TestProvider_FatalFailureInjection(t *testing.T) {
	p := New()
	_, err := p.Execute(context.Background(), &provider.Request{
		Action: ir.ActionCreate,
		Kind:   KindVPC,
		Name:   "broken",
		Attributes: map[string]any{
			"cidr":     "10.0.0.0/16",
			"failWith": "capacity exhausted",
		},
	})
	require.EqualError(t, err, "capacity exhausted")
	assert.Equal(t, provider.Fatal, p.Classify(err))
}

func TestProvider_RequiresReplace(t *testing.T) {
	p := New()
	assert.True(t, p.RequiresReplace(KindVPC, "cidr"))
	assert.True(t, p.RequiresReplace(KindSubnet, "vpc"))
	assert.True(t, p.RequiresReplace(KindInstance, "subnet"))
	assert.False(t, p.RequiresReplace(KindInstance, "size"))
	assert.False(t, p.RequiresReplace(KindGateway, "tags"))
}

type staticDeps map[string]*ir.Resource

func (m staticDeps) Dependency(address string) (*ir.Resource, bool) {
	res, ok := m[address]
	return res, ok
}

func TestInvariants_VPCCIDR(t *testing.T) {
	reg := validate.NewRegistry()
	RegisterInvariants(reg)

	bad := &ir.Resource{Kind: KindVPC, Name: "main", Attributes: map[string]any{"cidr": "not-a-cidr"}}
	violations := reg.Validate(bad, staticDeps{})
	require.Len(t, violations, 1)
	assert.Equal(t, validate.Fatal, violations[0].Severity)

	good := &ir.Resource{Kind: KindVPC, Name: "main", Attributes: map[string]any{"cidr": "10.0.0.0/16"}}
	assert.Empty(t, reg.Validate(good, staticDeps{}))
}

func TestInvariants_SubnetContainment(t *testing.T) {
	reg := validate.NewRegistry()
	RegisterInvariants(reg)

	vpc := &ir.Resource{Kind: KindVPC, Name: "main", Attributes: map[string]any{"cidr": "10.0.0.0/16"}}
	deps := staticDeps{"sim.vpc.main": vpc}
	ref := ir.Ref{Kind: KindVPC, Name: "main", Attribute: "id"}

	inside := &ir.Resource{
		Kind: KindSubnet, Name: "a",
		Attributes: map[string]any{"vpc": ref, "cidr": "10.0.1.0/24"},
	}
	assert.Empty(t, reg.Validate(inside, deps))

	outside := &ir.Resource{
		Kind: KindSubnet, Name: "b",
		Attributes: map[string]any{"vpc": ref, "cidr": "192.168.0.0/24"},
	}
	violations := reg.Validate(outside, deps)
	require.Len(t, violations, 1)
	assert.Equal(t, validate.Fatal, violations[0].Severity)
	assert.Contains(t, violations[0].Message, "not contained")
}

func TestInvariants_InstanceSizeWarning(t *testing.T) {
	reg := validate.NewRegistry()
	RegisterInvariants(reg)

	huge := &ir.Resource{Kind: KindInstance, Name: "web", Attributes: map[string]any{"size": float64(128)}}
	violations := reg.Validate(huge, staticDeps{})
	require.Len(t, violations, 1)
	assert.Equal(t, validate.Warning, violations[0].Severity)

	normal := &ir.Resource{Kind: KindInstance, Name: "web", Attributes: map[string]any{"size": float64(4)}}
	assert.Empty(t, reg.Validate(normal, staticDeps{}))
}
