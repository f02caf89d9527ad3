package builder

import (
	"slices"

	"github.com/specialistvlad/taskgraph/internal/binding"
	"github.com/specialistvlad/taskgraph/internal/registry"
	"github.com/specialistvlad/taskgraph/internal/types"
)

// Parameter is a validated job input.
type Parameter struct {
	Name       string
	Type       *types.Descriptor
	Default    any
	HasDefault bool
}

// Step is a validated task invocation.
type Step struct {
	Name string
	// Index is the step's position in declaration order.
	Index int
	Task  *registry.Signature
	// Inputs maps declared input names to their bindings.
	Inputs map[string]*binding.Binding
	// Dependencies lists extra ordering constraints, beyond references.
	Dependencies []string
}

// Upstream returns the names of the steps this step must wait for: every
// step it references, in input declaration order, followed by its explicit
// dependencies. Names are de-duplicated.
func (s *Step) Upstream() []string {
	var out []string
	add := func(name string) {
		if !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	for _, in := range s.Task.Inputs {
		b, ok := s.Inputs[in.Name]
		if !ok {
			continue
		}
		for _, ref := range b.StepRefs() {
			add(ref.Name)
		}
	}
	for _, d := range s.Dependencies {
		add(d)
	}
	return out
}

// Graph is a validated task graph.
type Graph struct {
	Types      *types.Registry
	Tasks      *registry.Registry
	Parameters []*Parameter
	Steps      []*Step

	params map[string]*Parameter
	steps  map[string]*Step
}

// Step returns the step with the given name.
func (g *Graph) Step(name string) (*Step, bool) {
	s, ok := g.steps[name]
	return s, ok
}

// Parameter returns the parameter with the given name.
func (g *Graph) Parameter(name string) (*Parameter, bool) {
	p, ok := g.params[name]
	return p, ok
}

// StepNames returns step names in declaration order.
func (g *Graph) StepNames() []string {
	names := make([]string, len(g.Steps))
	for i, s := range g.Steps {
		names[i] = s.Name
	}
	return names
}

// Upstream returns the upstream step names of the named step.
func (g *Graph) Upstream(name string) []string {
	s, ok := g.steps[name]
	if !ok {
		return nil
	}
	return s.Upstream()
}

// ArtifactGraph holds validated artifact invocations. Artifacts read from the
// step graph's outputs and never from each other.
type ArtifactGraph struct {
	Tasks *registry.Registry
	Steps []*Step
}
