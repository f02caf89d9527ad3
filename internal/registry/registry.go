package registry

import (
	"fmt"
	"slices"

	"github.com/specialistvlad/taskgraph/internal/taskerr"
)

// Registry holds the task signatures of a single job. It is populated while
// the graph is validated and is read-only afterwards.
type Registry struct {
	signatures map[string]*Signature
	order      []string
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{signatures: make(map[string]*Signature)}
}

// Register adds a signature under name. The plugin defaults to the task name.
func (r *Registry) Register(name string, sig *Signature) error {
	if _, exists := r.signatures[name]; exists {
		return &taskerr.ValidationError{
			Kind: taskerr.ErrDuplicateTask,
			Task: name,
			Msg:  "task is declared more than once",
		}
	}
	sig.Name = name
	if sig.Plugin == "" {
		sig.Plugin = name
	}
	r.signatures[name] = sig
	r.order = append(r.order, name)
	return nil
}

// Lookup returns the signature registered under name.
func (r *Registry) Lookup(name string) (*Signature, error) {
	sig, ok := r.signatures[name]
	if !ok {
		return nil, &taskerr.ValidationError{
			Kind: taskerr.ErrUnknownTask,
			Task: name,
			Msg:  fmt.Sprintf("no task named %q is declared", name),
		}
	}
	return sig, nil
}

// Names returns registered task names in registration order.
func (r *Registry) Names() []string {
	return slices.Clone(r.order)
}
