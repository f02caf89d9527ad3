package builder

import (
	"context"
	"fmt"
	"slices"

	"github.com/specialistvlad/taskgraph/internal/binding"
	"github.com/specialistvlad/taskgraph/internal/config"
	"github.com/specialistvlad/taskgraph/internal/ctxlog"
	"github.com/specialistvlad/taskgraph/internal/registry"
	"github.com/specialistvlad/taskgraph/internal/taskerr"
	"github.com/specialistvlad/taskgraph/internal/types"
)

// Options controls optional validation phases.
type Options struct {
	// HasTask reports whether a compiled callable exists for a task plugin.
	// When nil, the parity check is skipped.
	HasTask func(plugin string) bool
	// HasSerializer is the artifact-task equivalent of HasTask.
	HasSerializer func(plugin string) bool
}

// Build validates a model and constructs the step graph. It is pure: the
// same model always yields an equivalent graph or the same error.
func Build(ctx context.Context, model *config.Model, opts Options) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: Starting graph validation.")

	g := &Graph{
		Types:  types.NewRegistry(),
		Tasks:  registry.New(),
		params: make(map[string]*Parameter),
		steps:  make(map[string]*Step),
	}

	if err := g.Types.RegisterAll(model.Types); err != nil {
		return nil, err
	}
	logger.Debug("Build: Types registered.", "types", g.Types.Names())

	if err := g.buildParameters(model.Parameters); err != nil {
		return nil, err
	}
	logger.Debug("Build: Parameters resolved.", "count", len(g.Parameters))

	if err := buildSignatures(g.Types, g.Tasks, model.Tasks); err != nil {
		return nil, err
	}
	if opts.HasTask != nil {
		if err := g.Tasks.CheckCallables(ctx, opts.HasTask); err != nil {
			return nil, err
		}
	}
	logger.Debug("Build: Task signatures registered.", "count", len(model.Tasks))

	// First pass: index every step so that bindings may refer forward.
	sigs := make(map[string]*registry.Signature, len(model.Steps))
	for i, cfg := range model.Steps {
		if !binding.ValidName(cfg.Name) {
			return nil, &taskerr.ValidationError{Kind: taskerr.ErrInvalidName, Step: cfg.Name, Msg: "step names must be identifiers"}
		}
		if _, dup := sigs[cfg.Name]; dup {
			return nil, &taskerr.ValidationError{Kind: taskerr.ErrDuplicateIdentifier, Step: cfg.Name, Msg: "step is declared more than once"}
		}
		if _, clash := g.params[cfg.Name]; clash {
			return nil, &taskerr.ValidationError{Kind: taskerr.ErrDuplicateIdentifier, Step: cfg.Name, Msg: "name is used by both a parameter and a step"}
		}
		sig, err := g.Tasks.Lookup(cfg.Task)
		if err != nil {
			return nil, taskerr.AtStep(err, cfg.Name, cfg.Task, "")
		}
		sigs[cfg.Name] = sig
		g.Steps = append(g.Steps, &Step{Name: cfg.Name, Index: i, Task: sig})
	}
	for _, s := range g.Steps {
		g.steps[s.Name] = s
	}

	// Second pass: bindings.
	sc := &scope{params: g.params, steps: sigs}
	for i, cfg := range model.Steps {
		if err := sc.bindStep(g.Steps[i], cfg); err != nil {
			return nil, err
		}
	}

	logger.Info("Build: Graph validation successful.", "steps", len(g.Steps))
	return g, nil
}

func (g *Graph) buildParameters(defs []*config.Parameter) error {
	for _, def := range defs {
		if !binding.ValidName(def.Name) {
			return &taskerr.ValidationError{Kind: taskerr.ErrInvalidName, Binding: def.Name, Msg: "parameter names must be identifiers"}
		}
		if _, dup := g.params[def.Name]; dup {
			return &taskerr.ValidationError{Kind: taskerr.ErrDuplicateIdentifier, Binding: def.Name, Msg: "parameter is declared more than once"}
		}

		p := &Parameter{Name: def.Name, Default: def.Default, HasDefault: def.HasDefault}
		switch {
		case def.Type != nil:
			typ, err := g.Types.ResolveExpr(def.Type)
			if err != nil {
				return taskerr.AtStep(err, "", "", def.Name)
			}
			p.Type = typ
		case def.HasDefault:
			p.Type = inferParameterType(def.Default)
		default:
			p.Type = types.Any
		}

		if p.HasDefault {
			if actual := types.Infer(p.Default); !types.IsAssignable(actual, p.Type) {
				return &taskerr.ValidationError{
					Kind:     taskerr.ErrTypeMismatch,
					Binding:  def.Name,
					Expected: p.Type.String(),
					Actual:   actual.String(),
					Msg:      "parameter default does not match its declared type",
				}
			}
		}
		g.params[p.Name] = p
		g.Parameters = append(g.Parameters, p)
	}
	return nil
}

// inferParameterType derives a parameter type from a scalar default. Other
// defaults leave the parameter untyped.
func inferParameterType(v any) *types.Descriptor {
	d := types.Infer(v)
	if d.Kind == types.KindPrimitive {
		return d
	}
	return types.Any
}

func buildSignatures(typeReg *types.Registry, reg *registry.Registry, defs []*config.TaskDefinition) error {
	for _, def := range defs {
		sig := &registry.Signature{Plugin: def.Plugin}
		for i, in := range def.Inputs {
			if !binding.ValidName(in.Name) {
				return &taskerr.ValidationError{Kind: taskerr.ErrInvalidName, Task: def.Name, Binding: in.Name, Msg: "input names must be identifiers"}
			}
			if _, dup := sig.Input(in.Name); dup {
				return &taskerr.ValidationError{Kind: taskerr.ErrDuplicateIdentifier, Task: def.Name, Binding: in.Name, Msg: "input is declared more than once"}
			}
			typ, err := typeReg.ResolveExpr(in.Type)
			if err != nil {
				return taskerr.AtStep(err, "", def.Name, in.Name)
			}
			sig.Inputs = append(sig.Inputs, &registry.Param{Name: in.Name, Type: typ, Required: in.Required, Position: i})
		}
		for _, out := range def.Outputs {
			if !binding.ValidName(out.Name) {
				return &taskerr.ValidationError{Kind: taskerr.ErrInvalidName, Task: def.Name, Binding: out.Name, Msg: "output names must be identifiers"}
			}
			if _, dup := sig.Output(out.Name); dup {
				return &taskerr.ValidationError{Kind: taskerr.ErrDuplicateIdentifier, Task: def.Name, Binding: out.Name, Msg: "output is declared more than once"}
			}
			typ, err := typeReg.ResolveExpr(out.Type)
			if err != nil {
				return taskerr.AtStep(err, "", def.Name, out.Name)
			}
			sig.Outputs = append(sig.Outputs, &registry.Output{Name: out.Name, Type: typ})
		}
		if err := reg.Register(def.Name, sig); err != nil {
			return err
		}
	}
	return nil
}

// scope resolves reference roots for a set of steps.
type scope struct {
	params map[string]*Parameter
	steps  map[string]*registry.Signature
}

func (s *scope) IsParameter(name string) bool {
	_, ok := s.params[name]
	return ok
}

func (s *scope) IsStep(name string) bool {
	_, ok := s.steps[name]
	return ok
}

// bindStep matches a step's arguments to its task's inputs and validates them.
func (s *scope) bindStep(st *Step, cfg *config.Step) error {
	sig := st.Task
	st.Inputs = make(map[string]*binding.Binding, len(sig.Inputs))
	fail := func(err error, input string) error {
		return taskerr.AtStep(err, st.Name, sig.Name, input)
	}

	for i, raw := range cfg.Args {
		if i >= len(sig.Inputs) {
			return fail(taskerr.Invalidf(taskerr.ErrUnknownInputParameter,
				"positional argument %d exceeds the %d declared inputs", i+1, len(sig.Inputs)), "")
		}
		p := sig.Inputs[i]
		b, err := binding.Classify(raw, s)
		if err != nil {
			return fail(err, p.Name)
		}
		st.Inputs[p.Name] = b
	}

	for _, name := range kwargOrder(cfg.Kwargs, sig) {
		if _, ok := sig.Input(name); !ok {
			return fail(taskerr.Invalidf(taskerr.ErrUnknownInputParameter, "task declares no input named %q", name), name)
		}
		if _, dup := st.Inputs[name]; dup {
			return fail(taskerr.Invalidf(taskerr.ErrDuplicateBinding, "input is bound both positionally and by name"), name)
		}
		b, err := binding.Classify(cfg.Kwargs[name], s)
		if err != nil {
			return fail(err, name)
		}
		st.Inputs[name] = b
	}

	for _, p := range sig.Inputs {
		b, ok := st.Inputs[p.Name]
		if !ok {
			continue
		}
		if err := s.checkOutputs(b); err != nil {
			return fail(err, p.Name)
		}
		actual := s.staticType(b)
		if !types.IsAssignable(actual, p.Type) {
			return &taskerr.ValidationError{
				Kind:     taskerr.ErrTypeMismatch,
				Step:     st.Name,
				Task:     sig.Name,
				Binding:  p.Name,
				Expected: p.Type.String(),
				Actual:   actual.String(),
				Msg:      fmt.Sprintf("cannot bind %s", b),
			}
		}
	}

	for _, p := range sig.Inputs {
		if _, ok := st.Inputs[p.Name]; p.Required && !ok {
			return fail(taskerr.Invalidf(taskerr.ErrMissingRequiredInput, "required input has no binding"), p.Name)
		}
	}

	for _, dep := range cfg.Dependencies {
		if !s.IsStep(dep) {
			return fail(taskerr.Invalidf(taskerr.ErrInvalidReference, "dependency %q is not a declared step", dep), "")
		}
		if !slices.Contains(st.Dependencies, dep) {
			st.Dependencies = append(st.Dependencies, dep)
		}
	}
	return nil
}

// checkOutputs verifies that every step reference names an output the
// referenced step actually produces.
func (s *scope) checkOutputs(b *binding.Binding) error {
	for _, ref := range b.StepRefs() {
		sig := s.steps[ref.Name]
		if ref.Output == "" {
			if len(sig.Outputs) == 1 {
				continue
			}
			if len(sig.Outputs) == 0 {
				return taskerr.Invalidf(taskerr.ErrUnknownStepOutput, "step %q produces no outputs", ref.Name)
			}
			return taskerr.Invalidf(taskerr.ErrUnknownStepOutput,
				"step %q has outputs %v; reference one as $%s.<output>", ref.Name, sig.OutputNames(), ref.Name)
		}
		if _, ok := sig.Output(ref.Output); !ok {
			return taskerr.Invalidf(taskerr.ErrUnknownStepOutput,
				"step %q has no output %q", ref.Name, ref.Output)
		}
	}
	return nil
}

// staticType computes the type a binding is known to produce before any
// task runs.
func (s *scope) staticType(b *binding.Binding) *types.Descriptor {
	switch b.Kind {
	case binding.ParamRef:
		return s.params[b.Name].Type
	case binding.StepRef:
		sig := s.steps[b.Name]
		if b.Output == "" {
			out, _ := sig.SoleOutput()
			return out.Type
		}
		out, _ := sig.Output(b.Output)
		return out.Type
	case binding.List:
		items := make([]*types.Descriptor, len(b.Items))
		for i, item := range b.Items {
			items[i] = s.staticType(item)
		}
		return types.TupleOf(items...)
	case binding.Map:
		var values []*types.Descriptor
		for _, k := range sortedKeys(b.Entries) {
			values = appendDistinct(values, s.staticType(b.Entries[k]))
		}
		switch len(values) {
		case 0:
			return types.MappingOf(types.StringType, types.Any)
		case 1:
			return types.MappingOf(types.StringType, values[0])
		}
		return types.MappingOf(types.StringType, types.UnionOf(values...))
	}
	return types.Infer(b.Value)
}
