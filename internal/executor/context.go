package executor

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/mohae/deepcopy"
	"github.com/specialistvlad/taskgraph/internal/binding"
	"github.com/specialistvlad/taskgraph/internal/builder"
	"github.com/specialistvlad/taskgraph/internal/dag"
	"github.com/specialistvlad/taskgraph/internal/nodestore"
	"github.com/specialistvlad/taskgraph/internal/registry"
	"github.com/specialistvlad/taskgraph/internal/taskerr"
	"github.com/specialistvlad/taskgraph/internal/types"
)

// ErrOutputUnavailable is returned when a reference names an output that is
// not in the Runtime Output Store.
var ErrOutputUnavailable = errors.New("output not available")

// ExecutionContext carries everything a job run needs: the validated graph
// with its registries, the plan, the callables, the entrypoint parameter
// values and the Runtime Output Store. Nothing is read from global state.
type ExecutionContext struct {
	Graph    *builder.Graph
	Plan     *dag.Plan
	Handlers *registry.Handlers
	Store    nodestore.Store

	params map[string]any
}

// NewExecutionContext binds the entrypoint parameters of a job. values holds
// the supplied overrides; a declared parameter without an override takes its
// default. Every value is checked against the parameter's declared type.
func NewExecutionContext(g *builder.Graph, plan *dag.Plan, h *registry.Handlers, store nodestore.Store, values map[string]any) (*ExecutionContext, error) {
	params, err := bindParameters(g, values)
	if err != nil {
		return nil, err
	}
	return &ExecutionContext{
		Graph:    g,
		Plan:     plan,
		Handlers: h,
		Store:    store,
		params:   params,
	}, nil
}

func bindParameters(g *builder.Graph, values map[string]any) (map[string]any, error) {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, ok := g.Parameter(name); !ok {
			return nil, taskerr.Invalidf(taskerr.ErrUndeclaredParameter, "value supplied for undeclared parameter %q", name)
		}
	}

	out := make(map[string]any, len(g.Parameters))
	for _, p := range g.Parameters {
		v, ok := values[p.Name]
		if !ok {
			if !p.HasDefault {
				return nil, taskerr.Invalidf(taskerr.ErrMissingParameterValue, "parameter %q has no default and no value was supplied", p.Name)
			}
			v = p.Default
		}
		if err := types.CheckValue(v, p.Type); err != nil {
			return nil, &taskerr.ValidationError{
				Kind:     taskerr.ErrTypeMismatch,
				Binding:  p.Name,
				Expected: p.Type.String(),
				Actual:   types.Infer(v).String(),
				Msg:      fmt.Sprintf("parameter value: %v", err),
			}
		}
		out[p.Name] = v
	}
	return out, nil
}

// Params returns a copy of the bound entrypoint parameter values.
func (ec *ExecutionContext) Params() map[string]any {
	return deepcopy.Copy(ec.params).(map[string]any)
}

// Resolver returns a binding.Resolver reading parameters and the Runtime
// Output Store.
func (ec *ExecutionContext) Resolver(ctx context.Context) binding.Resolver {
	return &resolver{ctx: ctx, ec: ec}
}

// OutputKey returns the store key a reference to step/output reads. A step
// with a single declared output stores it under the step name alone, so both
// $step and $step.output address the same key.
func (ec *ExecutionContext) OutputKey(step, output string) nodestore.Key {
	if s, ok := ec.Graph.Step(step); ok && len(s.Task.Outputs) <= 1 {
		return nodestore.Key{Step: step}
	}
	return nodestore.Key{Step: step, Output: output}
}

type resolver struct {
	ctx context.Context
	ec  *ExecutionContext
}

func (r *resolver) Parameter(name string) (any, error) {
	v, ok := r.ec.params[name]
	if !ok {
		return nil, taskerr.Invalidf(taskerr.ErrUndeclaredParameter, "parameter %q is not bound", name)
	}
	return deepcopy.Copy(v), nil
}

func (r *resolver) Output(step, output string) (any, error) {
	key := r.ec.OutputKey(step, output)
	v, ok := r.ec.Store.Get(r.ctx, key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOutputUnavailable, key)
	}
	// Consumers get their own copy so the stored value stays frozen.
	return deepcopy.Copy(v), nil
}
