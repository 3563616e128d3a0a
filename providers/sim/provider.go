// Package sim implements an in-memory cloud simulator: networks, subnets,
// gateways, and instances with realistic dependency shapes but no external
// side effects. It is the fixture provider for end-to-end tests and the
// default provider wired into the CLI.
package sim

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"

	"github.com/fabrik-io/fabrik/internal/ir"
	"github.com/fabrik-io/fabrik/internal/provider"
)

const (
	KindVPC      = "sim.vpc"
	KindSubnet   = "sim.subnet"
	KindGateway  = "sim.gateway"
	KindInstance = "sim.instance"
)

// ErrThrottled is the transient failure the simulator injects; the
// classifier marks it retryable.
var ErrThrottled = errors.New("sim: request throttled")

type vpcArgs struct {
	CIDR string `mapstructure:"cidr"`
}

type subnetArgs struct {
	VPC  string `mapstructure:"vpc"`
	CIDR string `mapstructure:"cidr"`
}

type gatewayArgs struct {
	VPC string `mapstructure:"vpc"`
}

type instanceArgs struct {
	Subnet string  `mapstructure:"subnet"`
	Size   float64 `mapstructure:"size"`
}

// Provider simulates a cloud control plane. Objects live in a map keyed by
// handle; failure injection is driven by reserved attributes:
//
//	failWith: "msg"        every Execute fails fatally with msg
//	transientFailures: n   the first n Executes fail with ErrThrottled
type Provider struct {
	mu        sync.Mutex
	objects   map[string]map[string]any // handle -> attributes
	remaining map[string]int            // address -> transient failures left
}

func New() *Provider {
	return &Provider{
		objects:   make(map[string]map[string]any),
		remaining: make(map[string]int),
	}
}

func (p *Provider) Execute(ctx context.Context, req *provider.Request) (*provider.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := p.injectFailure(req); err != nil {
		return nil, err
	}

	switch req.Action {
	case ir.ActionCreate:
		return p.create(req)
	case ir.ActionUpdate:
		return p.update(req)
	case ir.ActionDelete:
		return p.delete(req)
	default:
		return nil, fmt.Errorf("sim: unsupported action %s", req.Action)
	}
}

func (p *Provider) create(req *provider.Request) (*provider.Result, error) {
	attrs, err := p.decode(req)
	if err != nil {
		return nil, err
	}

	handle := fmt.Sprintf("%s-%s", strings.TrimPrefix(req.Kind, "sim."), uuid.NewString()[:8])
	p.mu.Lock()
	p.objects[handle] = attrs
	p.mu.Unlock()

	return &provider.Result{
		Handle:     handle,
		Attributes: map[string]any{"arn": fmt.Sprintf("arn:sim:%s:%s", req.Kind, handle)},
	}, nil
}

func (p *Provider) update(req *provider.Request) (*provider.Result, error) {
	attrs, err := p.decode(req)
	if err != nil {
		return nil, err
	}
	if req.Prior == nil || req.Prior.Handle == "" {
		return nil, fmt.Errorf("sim: update of %s.%s without prior handle", req.Kind, req.Name)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.objects[req.Prior.Handle]; !ok {
		return nil, fmt.Errorf("sim: object %s not found", req.Prior.Handle)
	}
	p.objects[req.Prior.Handle] = attrs

	return &provider.Result{
		Handle:     req.Prior.Handle,
		Attributes: map[string]any{"arn": fmt.Sprintf("arn:sim:%s:%s", req.Kind, req.Prior.Handle)},
	}, nil
}

func (p *Provider) delete(req *provider.Request) (*provider.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if req.Prior != nil {
		delete(p.objects, req.Prior.Handle)
	}
	return &provider.Result{}, nil
}

// decode validates the request attributes against the kind's schema. An
// attribute that is still an unresolved reference fails decoding, which is
// the correct outcome: the dependency was never created.
func (p *Provider) decode(req *provider.Request) (map[string]any, error) {
	var target any
	switch req.Kind {
	case KindVPC:
		target = &vpcArgs{}
	case KindSubnet:
		target = &subnetArgs{}
	case KindGateway:
		target = &gatewayArgs{}
	case KindInstance:
		target = &instanceArgs{}
	default:
		return nil, fmt.Errorf("sim: unknown kind %s", req.Kind)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{Result: target})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(req.Attributes); err != nil {
		return nil, fmt.Errorf("sim: invalid attributes for %s.%s: %w", req.Kind, req.Name, err)
	}
	return req.Attributes, nil
}

func (p *Provider) injectFailure(req *provider.Request) error {
	if req.Attributes == nil {
		return nil
	}
	if msg, ok := req.Attributes["failWith"].(string); ok && msg != "" {
		return errors.New(msg)
	}
	if n, ok := req.Attributes["transientFailures"].(float64); ok && n > 0 {
		address := fmt.Sprintf("%s.%s", req.Kind, req.Name)
		p.mu.Lock()
		defer p.mu.Unlock()
		left, seen := p.remaining[address]
		if !seen {
			left = int(n)
		}
		if left > 0 {
			p.remaining[address] = left - 1
			return ErrThrottled
		}
		return nil
	}
	return nil
}

func (p *Provider) Classify(err error) provider.ErrorClass {
	if errors.Is(err, ErrThrottled) {
		return provider.Transient
	}
	return provider.Fatal
}

// RequiresReplace marks the attribute changes the simulated control plane
// cannot apply in place.
func (p *Provider) RequiresReplace(kind, path string) bool {
	switch kind {
	case KindVPC:
		return path == "cidr"
	case KindSubnet:
		return path == "cidr" || path == "vpc"
	case KindGateway:
		return path == "vpc"
	case KindInstance:
		return path == "subnet"
	}
	return false
}

// ObjectCount reports how many simulated objects currently exist.
func (p *Provider) ObjectCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.objects)
}
