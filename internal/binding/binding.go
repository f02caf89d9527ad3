package binding

import (
	"fmt"
	"sort"
	"strings"

	"github.com/specialistvlad/taskgraph/internal/taskerr"
)

// Kind classifies a Binding.
type Kind int

const (
	Literal Kind = iota
	ParamRef
	StepRef
	List
	Map
)

func (k Kind) String() string {
	switch k {
	case Literal:
		return "literal"
	case ParamRef:
		return "parameter reference"
	case StepRef:
		return "step reference"
	case List:
		return "list"
	case Map:
		return "mapping"
	default:
		return "unknown"
	}
}

// Binding is a classified argument value.
type Binding struct {
	Kind Kind

	// Value holds a literal.
	Value any
	// Name is the referenced parameter or step.
	Name string
	// Output is the referenced step output; empty means the step's sole output.
	Output string
	// Items holds the elements of a list binding.
	Items []*Binding
	// Entries holds the elements of a mapping binding.
	Entries map[string]*Binding
}

// Scope answers what a reference root names.
type Scope interface {
	IsParameter(name string) bool
	IsStep(name string) bool
}

// Classify turns a raw argument value into a Binding.
//
// "$x" must name a parameter or a step, otherwise it is an undeclared
// parameter. "$x.y" must name a step; if x is a parameter the reference is
// invalid, and if x is unknown it is an unknown step output. Whether the
// output exists on the step is checked later, against its signature.
func Classify(raw any, scope Scope) (*Binding, error) {
	switch v := raw.(type) {
	case string:
		ref, literal, isRef, err := ParseRef(v)
		if err != nil {
			return nil, err
		}
		if !isRef {
			return &Binding{Kind: Literal, Value: literal}, nil
		}
		return classifyRef(ref, scope)

	case []any:
		b := &Binding{Kind: List, Items: make([]*Binding, len(v))}
		for i, item := range v {
			child, err := Classify(item, scope)
			if err != nil {
				return nil, err
			}
			b.Items[i] = child
		}
		return b.collapse(), nil

	case map[string]any:
		b := &Binding{Kind: Map, Entries: make(map[string]*Binding, len(v))}
		for _, k := range sortedKeys(v) {
			child, err := Classify(v[k], scope)
			if err != nil {
				return nil, err
			}
			b.Entries[k] = child
		}
		return b.collapse(), nil
	}
	return &Binding{Kind: Literal, Value: raw}, nil
}

func classifyRef(ref Ref, scope Scope) (*Binding, error) {
	isParam := scope.IsParameter(ref.Root)
	isStep := scope.IsStep(ref.Root)

	if ref.Field == "" {
		switch {
		case isParam:
			return &Binding{Kind: ParamRef, Name: ref.Root}, nil
		case isStep:
			return &Binding{Kind: StepRef, Name: ref.Root}, nil
		}
		return nil, &taskerr.ValidationError{
			Kind: taskerr.ErrUndeclaredParameter,
			Msg:  fmt.Sprintf("%s does not name a declared parameter or step", ref),
		}
	}

	switch {
	case isStep:
		return &Binding{Kind: StepRef, Name: ref.Root, Output: ref.Field}, nil
	case isParam:
		return nil, &taskerr.ValidationError{
			Kind: taskerr.ErrInvalidReference,
			Msg:  fmt.Sprintf("%s: parameters have no fields", ref),
		}
	}
	return nil, &taskerr.ValidationError{
		Kind: taskerr.ErrUnknownStepOutput,
		Msg:  fmt.Sprintf("%s: no step named %q is declared", ref, ref.Root),
	}
}

// collapse folds a composite binding with no references back into a literal.
func (b *Binding) collapse() *Binding {
	if b.HasRefs() {
		return b
	}
	return &Binding{Kind: Literal, Value: b.literalValue()}
}

func (b *Binding) literalValue() any {
	switch b.Kind {
	case List:
		out := make([]any, len(b.Items))
		for i, item := range b.Items {
			out[i] = item.literalValue()
		}
		return out
	case Map:
		out := make(map[string]any, len(b.Entries))
		for k, e := range b.Entries {
			out[k] = e.literalValue()
		}
		return out
	}
	return b.Value
}

// HasRefs reports whether the binding contains any reference.
func (b *Binding) HasRefs() bool {
	switch b.Kind {
	case ParamRef, StepRef:
		return true
	case List:
		for _, item := range b.Items {
			if item.HasRefs() {
				return true
			}
		}
	case Map:
		for _, e := range b.Entries {
			if e.HasRefs() {
				return true
			}
		}
	}
	return false
}

// StepRefs returns every step reference in the binding, in a stable order.
func (b *Binding) StepRefs() []*Binding {
	var out []*Binding
	b.walk(func(n *Binding) {
		if n.Kind == StepRef {
			out = append(out, n)
		}
	})
	return out
}

func (b *Binding) walk(fn func(*Binding)) {
	fn(b)
	switch b.Kind {
	case List:
		for _, item := range b.Items {
			item.walk(fn)
		}
	case Map:
		for _, k := range sortedKeys(b.Entries) {
			b.Entries[k].walk(fn)
		}
	}
}

func (b *Binding) String() string {
	switch b.Kind {
	case ParamRef:
		return "$" + b.Name
	case StepRef:
		if b.Output == "" {
			return "$" + b.Name
		}
		return "$" + b.Name + "." + b.Output
	case List:
		parts := make([]string, len(b.Items))
		for i, item := range b.Items {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case Map:
		keys := sortedKeys(b.Entries)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + b.Entries[k].String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return fmt.Sprintf("%v", b.Value)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
