package registry

import (
	"github.com/specialistvlad/taskgraph/internal/types"
)

// Param is a declared input of a task.
type Param struct {
	Name     string
	Type     *types.Descriptor
	Required bool
	// Position is the zero-based ordinal used to match positional bindings.
	Position int
}

// Output is a declared output of a task.
type Output struct {
	Name string
	Type *types.Descriptor
}

// Signature describes a task: the plugin implementing it and its ordered
// inputs and outputs.
type Signature struct {
	Name    string
	Plugin  string
	Inputs  []*Param
	Outputs []*Output
}

// Input returns the declared input with the given name.
func (s *Signature) Input(name string) (*Param, bool) {
	for _, p := range s.Inputs {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// Output returns the declared output with the given name.
func (s *Signature) Output(name string) (*Output, bool) {
	for _, o := range s.Outputs {
		if o.Name == name {
			return o, true
		}
	}
	return nil, false
}

// SoleOutput returns the output of a task that declares exactly one.
func (s *Signature) SoleOutput() (*Output, bool) {
	if len(s.Outputs) != 1 {
		return nil, false
	}
	return s.Outputs[0], true
}

// OutputNames returns the declared output names in order.
func (s *Signature) OutputNames() []string {
	names := make([]string, len(s.Outputs))
	for i, o := range s.Outputs {
		names[i] = o.Name
	}
	return names
}
