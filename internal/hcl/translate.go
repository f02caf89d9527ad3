package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/taskgraph/internal/config"
	"github.com/specialistvlad/taskgraph/internal/ctxlog"
	"github.com/specialistvlad/taskgraph/internal/types"
	"github.com/zclconf/go-cty/cty"
)

// translateRoot converts the decoded blocks of one file into the agnostic model.
func translateRoot(ctx context.Context, root *fileRoot) (*config.Model, error) {
	m := &config.Model{}

	for _, b := range root.Types {
		expr, err := types.FromHCL(b.Type)
		if err != nil {
			return nil, fmt.Errorf("type %q: %w", b.Name, err)
		}
		m.Types = append(m.Types, types.Definition{Name: b.Name, Expr: expr})
	}

	for _, b := range root.Parameters {
		p, err := translateParameter(ctx, b)
		if err != nil {
			return nil, err
		}
		m.Parameters = append(m.Parameters, p)
	}

	for _, b := range root.Tasks {
		def, err := translateTask(b)
		if err != nil {
			return nil, err
		}
		m.Tasks = append(m.Tasks, def)
	}
	for _, b := range root.ArtifactTasks {
		def, err := translateTask(b)
		if err != nil {
			return nil, err
		}
		m.ArtifactTasks = append(m.ArtifactTasks, def)
	}

	for _, b := range root.Steps {
		s, err := translateStep(b)
		if err != nil {
			return nil, fmt.Errorf("step %q: %w", b.Name, err)
		}
		m.Steps = append(m.Steps, s)
	}
	for _, b := range root.Artifacts {
		s, err := translateStep(b)
		if err != nil {
			return nil, fmt.Errorf("artifact %q: %w", b.Name, err)
		}
		m.Artifacts = append(m.Artifacts, s)
	}
	return m, nil
}

func translateParameter(ctx context.Context, b *parameterBlock) (*config.Parameter, error) {
	typ, err := types.FromHCL(b.Type)
	if err != nil {
		return nil, fmt.Errorf("parameter %q: %w", b.Name, err)
	}
	p := &config.Parameter{Name: b.Name, Type: typ}

	if isExprDefined(ctx, b.Default, "default") {
		val, diags := b.Default.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("parameter %q: default must be a literal value: %w", b.Name, diags)
		}
		p.Default, err = ctyToGo(val)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", b.Name, err)
		}
		p.HasDefault = true
	}
	return p, nil
}

func translateTask(b *taskBlock) (*config.TaskDefinition, error) {
	def := &config.TaskDefinition{
		Name:        b.Name,
		Plugin:      b.Plugin,
		Description: b.Description,
	}
	for _, in := range b.Inputs {
		typ, err := types.FromHCL(in.Type)
		if err != nil {
			return nil, fmt.Errorf("task %q, input %q: %w", b.Name, in.Name, err)
		}
		required := true
		if in.Required != nil {
			required = *in.Required
		}
		def.Inputs = append(def.Inputs, &config.InputDefinition{Name: in.Name, Type: typ, Required: required})
	}
	for _, out := range b.Outputs {
		typ, err := types.FromHCL(out.Type)
		if err != nil {
			return nil, fmt.Errorf("task %q, output %q: %w", b.Name, out.Name, err)
		}
		def.Outputs = append(def.Outputs, &config.OutputDefinition{Name: out.Name, Type: typ})
	}
	return def, nil
}

func translateStep(b *stepBlock) (*config.Step, error) {
	s := &config.Step{
		Name:         b.Name,
		Task:         b.Task,
		Dependencies: b.Dependencies,
	}

	if b.Args != nil {
		val, diags := b.Args.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("args must be a list of literal values or \"$name\" references: %w", diags)
		}
		if !val.IsNull() {
			if !val.Type().IsTupleType() && !val.Type().IsListType() {
				return nil, fmt.Errorf("args must be a list, got %s", val.Type().FriendlyName())
			}
			raw, err := ctyToGo(val)
			if err != nil {
				return nil, err
			}
			s.Args = raw.([]any)
		}
	}

	if b.Arguments != nil {
		attrs, diags := b.Arguments.Body.JustAttributes()
		if diags.HasErrors() {
			return nil, fmt.Errorf("invalid arguments block: %w", diags)
		}
		s.Kwargs = make(map[string]any, len(attrs))
		for name, attr := range attrs {
			v, err := literal(attr.Expr)
			if err != nil {
				return nil, fmt.Errorf("argument %q: %w", name, err)
			}
			s.Kwargs[name] = v
		}
	}
	return s, nil
}

func literal(expr hcl.Expression) (any, error) {
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("bindings must be literal values or \"$name\" references: %w", diags)
	}
	return ctyToGo(val)
}

// isExprDefined checks if an HCL expression was actually present in the
// source. The decoder populates omitted optional attributes with zero-width
// placeholder expressions, so a nil check is not enough.
func isExprDefined(ctx context.Context, expr hcl.Expression, attrName string) bool {
	if expr == nil {
		return false
	}
	r := expr.Range()
	isDefined := r.End.Byte > r.Start.Byte
	ctxlog.FromContext(ctx).Debug("Checking if HCL attribute was explicitly defined.",
		"attribute", attrName,
		"hcl_range", r.String(),
		"is_defined", isDefined,
	)
	return isDefined
}

// ctyToGo converts a cty value into plain Go values: nil, bool, int64 for
// integral numbers, float64, string, []any and map[string]any.
func ctyToGo(val cty.Value) (any, error) {
	if !val.IsKnown() {
		return nil, fmt.Errorf("value is not known at load time")
	}
	if val.IsNull() {
		return nil, nil
	}

	ty := val.Type()
	if ty.IsPrimitiveType() {
		switch ty {
		case cty.String:
			return val.AsString(), nil
		case cty.Number:
			bf := val.AsBigFloat()
			if bf.IsInt() {
				if i, acc := bf.Int64(); acc == 0 {
					return i, nil
				}
			}
			f, _ := bf.Float64()
			return f, nil
		case cty.Bool:
			return val.True(), nil
		default:
			return nil, fmt.Errorf("unsupported primitive type: %s", ty.FriendlyName())
		}
	}

	if ty.IsObjectType() || ty.IsMapType() {
		out := make(map[string]any, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			k, v := it.Element()
			gv, err := ctyToGo(v)
			if err != nil {
				return nil, err
			}
			out[k.AsString()] = gv
		}
		return out, nil
	}

	if ty.IsTupleType() || ty.IsListType() || ty.IsSetType() {
		out := make([]any, 0, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			_, v := it.Element()
			gv, err := ctyToGo(v)
			if err != nil {
				return nil, err
			}
			out = append(out, gv)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported value type: %s", ty.FriendlyName())
}
