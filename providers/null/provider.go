// Package null implements a provider with no side effects, useful for
// wiring tests and as a target for dependency ordering experiments. Its
// single kind, null.resource, carries an arbitrary "triggers" map; any
// trigger change forces replacement.
package null

import (
	"context"
	"fmt"
	"strings"

	"github.com/fabrik-io/fabrik/internal/ir"
	"github.com/fabrik-io/fabrik/internal/provider"
)

const KindResource = "null.resource"

type Provider struct{}

func New() *Provider {
	return &Provider{}
}

func (p *Provider) Execute(ctx context.Context, req *provider.Request) (*provider.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Kind != KindResource {
		return nil, fmt.Errorf("unknown kind: %s", req.Kind)
	}

	switch req.Action {
	case ir.ActionCreate, ir.ActionUpdate:
		return &provider.Result{
			Handle: fmt.Sprintf("null-%s", req.Name),
		}, nil
	case ir.ActionDelete:
		return &provider.Result{}, nil
	default:
		return nil, fmt.Errorf("unsupported action: %s", req.Action)
	}
}

func (p *Provider) Classify(err error) provider.ErrorClass {
	return provider.Fatal
}

func (p *Provider) RequiresReplace(kind, path string) bool {
	return kind == KindResource && (path == "triggers" || strings.HasPrefix(path, "triggers."))
}
