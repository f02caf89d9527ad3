package executor

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/mohae/deepcopy"
	"github.com/specialistvlad/taskgraph/internal/builder"
	"github.com/specialistvlad/taskgraph/internal/ctxlog"
	"github.com/specialistvlad/taskgraph/internal/node"
	"github.com/specialistvlad/taskgraph/internal/registry"
	"github.com/specialistvlad/taskgraph/internal/taskerr"
	"github.com/specialistvlad/taskgraph/internal/tracking"
	"github.com/specialistvlad/taskgraph/internal/types"
)

// runStep executes a single step. Any failure is returned as a
// *taskerr.ExecutionError carrying the inputs the step was invoked with.
func (e *Executor) runStep(ctx context.Context, n *node.Node, workerID int) error {
	step, _ := e.ec.Graph.Step(n.Name)
	ctx = ctxlog.With(ctx, "step", n.Name, "task", step.Task.Name, "workerID", workerID)
	logger := ctxlog.FromContext(ctx)
	ctx = tracking.WithStep(ctx, n.Name)

	if err := n.Transition(node.Ready, node.Running); err != nil {
		return e.stepError(step, nil, err)
	}
	logger.Info("▶️ Starting step")

	inputs, err := ResolveInputs(ctx, e.ec, step)
	if err != nil {
		return e.stepError(step, inputs, err)
	}
	snapshot := deepcopy.Copy(inputs).(map[string]any)
	logger.Debug("Step inputs resolved.", "data", formatValueForLogs(snapshot))

	fn, ok := e.ec.Handlers.Task(step.Task.Plugin)
	if !ok {
		return e.stepError(step, snapshot, fmt.Errorf("no callable registered for plugin %q", step.Task.Plugin))
	}

	out, err := invoke(ctx, fn, inputs)
	if err != nil {
		return e.stepError(step, snapshot, err)
	}
	if err := e.storeOutputs(ctx, step, out); err != nil {
		return e.stepError(step, snapshot, err)
	}

	logger.Info("✅ Finished step")
	return nil
}

func (e *Executor) stepError(step *builder.Step, inputs map[string]any, err error) error {
	return &taskerr.ExecutionError{
		Kind:   taskerr.ErrStepExecution,
		Step:   step.Name,
		Task:   step.Task.Name,
		Inputs: inputs,
		Err:    err,
	}
}

// ResolveInputs computes the concrete inputs of step in declaration order.
// Optional inputs without a binding are left out. Each value is checked
// against its declared type, which catches values that flowed through an
// untyped (any) output.
func ResolveInputs(ctx context.Context, ec *ExecutionContext, step *builder.Step) (map[string]any, error) {
	r := ec.Resolver(ctx)
	inputs := make(map[string]any, len(step.Inputs))
	for _, in := range step.Task.Inputs {
		b, ok := step.Inputs[in.Name]
		if !ok {
			continue
		}
		v, err := b.Resolve(r)
		if err != nil {
			return inputs, fmt.Errorf("resolving input %q: %w", in.Name, err)
		}
		if err := types.CheckValue(v, in.Type); err != nil {
			return inputs, fmt.Errorf("input %q: %w: %w", in.Name, taskerr.ErrTypeMismatch, err)
		}
		inputs[in.Name] = v
	}
	return inputs, nil
}

// invoke calls fn, turning a panic into an error.
func invoke(ctx context.Context, fn registry.TaskFunc, inputs map[string]any) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			ctxlog.FromContext(ctx).Debug("Task panicked.", "stack", string(debug.Stack()))
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return fn(ctx, inputs)
}

// storeOutputs checks the value returned by a task against the declared
// outputs and writes each one to the Runtime Output Store.
func (e *Executor) storeOutputs(ctx context.Context, step *builder.Step, out any) error {
	values, err := splitOutputs(step.Task, out)
	if err != nil {
		return err
	}
	for _, o := range step.Task.Outputs {
		v := values[o.Name]
		if err := types.CheckValue(v, o.Type); err != nil {
			return fmt.Errorf("output %q: %w: %w", o.Name, taskerr.ErrTypeMismatch, err)
		}
	}
	for _, o := range step.Task.Outputs {
		key := e.ec.OutputKey(step.Name, o.Name)
		if err := e.ec.Store.Put(ctx, key, values[o.Name]); err != nil {
			return err
		}
	}
	return nil
}

// splitOutputs maps a task's return value onto its declared outputs. A task
// with one output returns the value itself; a task with several returns a
// map keyed by output name or a slice in declaration order.
func splitOutputs(sig *registry.Signature, out any) (map[string]any, error) {
	switch len(sig.Outputs) {
	case 0:
		return nil, nil
	case 1:
		return map[string]any{sig.Outputs[0].Name: out}, nil
	}

	values := make(map[string]any, len(sig.Outputs))
	switch v := out.(type) {
	case map[string]any:
		for key := range v {
			if _, ok := sig.Output(key); !ok {
				return nil, fmt.Errorf("task returned undeclared output %q", key)
			}
		}
		for _, o := range sig.Outputs {
			val, ok := v[o.Name]
			if !ok {
				return nil, fmt.Errorf("task did not return output %q", o.Name)
			}
			values[o.Name] = val
		}
	case []any:
		if len(v) != len(sig.Outputs) {
			return nil, fmt.Errorf("task returned %d values for %d declared outputs", len(v), len(sig.Outputs))
		}
		for i, o := range sig.Outputs {
			values[o.Name] = v[i]
		}
	default:
		return nil, fmt.Errorf("task declares outputs %v but returned %T", sig.OutputNames(), out)
	}
	return values, nil
}
