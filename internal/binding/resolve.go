package binding

import (
	"github.com/mohae/deepcopy"
)

// Resolver supplies the concrete values references point to.
type Resolver interface {
	Parameter(name string) (any, error)
	Output(step, output string) (any, error)
}

// Resolve computes the concrete value of a binding. Composite literals are
// deep-copied so that a task mutating its input cannot affect another step.
func (b *Binding) Resolve(r Resolver) (any, error) {
	switch b.Kind {
	case ParamRef:
		return r.Parameter(b.Name)
	case StepRef:
		return r.Output(b.Name, b.Output)
	case List:
		out := make([]any, len(b.Items))
		for i, item := range b.Items {
			v, err := item.Resolve(r)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case Map:
		out := make(map[string]any, len(b.Entries))
		for k, e := range b.Entries {
			v, err := e.Resolve(r)
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	}
	switch b.Value.(type) {
	case []any, map[string]any:
		return deepcopy.Copy(b.Value), nil
	}
	return b.Value, nil
}
