package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fabrik-io/fabrik/internal/ir"
	"github.com/fabrik-io/fabrik/internal/provider"
	"github.com/fabrik-io/fabrik/internal/state"
)

var errFakeThrottled = errors.New("throttled")

// fakeProvider records every Execute call and fails on demand, keyed by
// resource address.
type fakeProvider struct {
	mu           sync.Mutex
	executed     []string
	failWith     map[string]error
	transient    map[string]int
	replacePaths map[string]bool          // "kind:path"
	delay        map[string]time.Duration // stalls Execute to skew completion order
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		failWith:     make(map[string]error),
		transient:    make(map[string]int),
		replacePaths: make(map[string]bool),
		delay:        make(map[string]time.Duration),
	}
}

func (p *fakeProvider) Execute(ctx context.Context, req *provider.Request) (*provider.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	address := fmt.Sprintf("%s.%s", req.Kind, req.Name)
	if d := p.delay[address]; d > 0 {
		time.Sleep(d)
	}

	p.mu.Lock()
	p.executed = append(p.executed, address)
	if left := p.transient[address]; left > 0 {
		p.transient[address] = left - 1
		p.mu.Unlock()
		return nil, errFakeThrottled
	}
	err := p.failWith[address]
	p.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if req.Action == ir.ActionDelete {
		return &provider.Result{}, nil
	}
	return &provider.Result{Handle: "handle-" + req.Name}, nil
}

func (p *fakeProvider) Classify(err error) provider.ErrorClass {
	if errors.Is(err, errFakeThrottled) {
		return provider.Transient
	}
	return provider.Fatal
}

func (p *fakeProvider) RequiresReplace(kind, path string) bool {
	return p.replacePaths[kind+":"+path]
}

func (p *fakeProvider) calls(address string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, a := range p.executed {
		if a == address {
			n++
		}
	}
	return n
}

// newTestEngine wires an engine over a memory store with the fake
// provider serving both the sim and null families, and a fast retry
// policy.
func newTestEngine(t *testing.T) (*Engine, *fakeProvider, *state.MemoryStore) {
	t.Helper()
	fp := newFakeProvider()
	registry := provider.NewRegistry()
	registry.Register("sim", fp)
	registry.Register("null", fp)

	store := state.NewMemoryStore()
	eng := New(registry, store)
	eng.Retry = &RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
	eng.OpTimeout = 5 * time.Second
	return eng, fp, store
}
