package types

import (
	"fmt"
	"slices"

	"github.com/specialistvlad/taskgraph/internal/taskerr"
)

// builtinAliases maps accepted spellings to the canonical builtin descriptors.
var builtinAliases = map[string]*Descriptor{
	"any":     Any,
	"null":    Null,
	"string":  StringType,
	"str":     StringType,
	"integer": IntegerType,
	"int":     IntegerType,
	"number":  NumberType,
	"float":   NumberType,
	"boolean": BooleanType,
	"bool":    BooleanType,
}

// Definition is a named type declaration. A nil Expr declares a nominal type;
// otherwise the name is a structural alias for the expression.
type Definition struct {
	Name string
	Expr *Expr
}

// Registry maps type names to descriptors. Builtins are always present. A
// Registry is built once per job and is read-only afterwards.
type Registry struct {
	types map[string]*Descriptor
	order []string
}

// NewRegistry returns a registry holding only the builtin types.
func NewRegistry() *Registry {
	r := &Registry{types: make(map[string]*Descriptor, len(builtinAliases))}
	for name, d := range builtinAliases {
		r.types[name] = d
	}
	return r
}

// Register adds a user type. A name that is already registered, builtins
// included, fails with a duplicate type error. Every name the expression
// refers to must already be registered.
func (r *Registry) Register(name string, expr *Expr) (*Descriptor, error) {
	if _, exists := r.types[name]; exists {
		return nil, &taskerr.ValidationError{
			Kind: taskerr.ErrDuplicateType,
			Msg:  fmt.Sprintf("type %q is already registered", name),
		}
	}

	var d *Descriptor
	if expr == nil {
		d = Nominal(name)
	} else {
		built, err := r.build(expr)
		if err != nil {
			return nil, err
		}
		d = built.named(name)
	}
	r.types[name] = d
	r.order = append(r.order, name)
	return d, nil
}

// RegisterAll registers a set of definitions whose components may refer to
// each other in any order. Definitions are retried until no further progress
// is made; whatever is left is either undeclared or recursive.
func (r *Registry) RegisterAll(defs []Definition) error {
	seen := make(map[string]bool, len(defs))
	for _, def := range defs {
		if _, builtin := r.types[def.Name]; builtin || seen[def.Name] {
			return &taskerr.ValidationError{
				Kind: taskerr.ErrDuplicateType,
				Msg:  fmt.Sprintf("type %q is declared more than once", def.Name),
			}
		}
		seen[def.Name] = true
	}

	pending := slices.Clone(defs)
	for len(pending) > 0 {
		var next []Definition
		for _, def := range pending {
			if !r.resolvable(def.Expr) {
				next = append(next, def)
				continue
			}
			if _, err := r.Register(def.Name, def.Expr); err != nil {
				return err
			}
		}
		if len(next) == len(pending) {
			return r.stuck(next)
		}
		pending = next
	}
	return nil
}

// stuck explains why the first remaining definition could not be registered.
func (r *Registry) stuck(remaining []Definition) error {
	waiting := make(map[string]bool, len(remaining))
	for _, def := range remaining {
		waiting[def.Name] = true
	}
	def := remaining[0]
	for _, ref := range def.Expr.Refs() {
		if _, ok := r.types[ref]; ok {
			continue
		}
		if waiting[ref] {
			return &taskerr.ValidationError{
				Kind: taskerr.ErrUnknownComponentType,
				Msg:  fmt.Sprintf("type %q is defined recursively through %q", def.Name, ref),
			}
		}
		return &taskerr.ValidationError{
			Kind: taskerr.ErrUnknownComponentType,
			Msg:  fmt.Sprintf("type %q refers to undeclared type %q", def.Name, ref),
		}
	}
	return &taskerr.ValidationError{
		Kind: taskerr.ErrUnknownComponentType,
		Msg:  fmt.Sprintf("type %q could not be resolved", def.Name),
	}
}

func (r *Registry) resolvable(expr *Expr) bool {
	for _, ref := range expr.Refs() {
		if _, ok := r.types[ref]; !ok {
			return false
		}
	}
	return true
}

// Resolve looks up a registered type by name.
func (r *Registry) Resolve(name string) (*Descriptor, error) {
	d, ok := r.types[name]
	if !ok {
		return nil, &taskerr.ValidationError{
			Kind: taskerr.ErrUnknownType,
			Msg:  fmt.Sprintf("type %q is not registered", name),
		}
	}
	return d, nil
}

// ResolveExpr resolves an inline type expression, as used in task signatures
// and parameter declarations. A nil expression resolves to any.
func (r *Registry) ResolveExpr(expr *Expr) (*Descriptor, error) {
	if expr == nil {
		return Any, nil
	}
	if !expr.Call {
		return r.Resolve(expr.Name)
	}
	return r.build(expr)
}

// Names returns the user-registered type names in registration order.
func (r *Registry) Names() []string {
	return slices.Clone(r.order)
}

// build resolves expr structurally. Names reached here are components of a
// larger definition, so a missing one is an unknown component.
func (r *Registry) build(expr *Expr) (*Descriptor, error) {
	if !expr.Call {
		d, ok := r.types[expr.Name]
		if !ok {
			return nil, &taskerr.ValidationError{
				Kind: taskerr.ErrUnknownComponentType,
				Msg:  fmt.Sprintf("type %q is not registered", expr.Name),
			}
		}
		return d, nil
	}

	if err := expr.checkArity(); err != nil {
		return nil, &taskerr.ValidationError{Kind: taskerr.ErrUnknownType, Msg: err.Error()}
	}
	elems := make([]*Descriptor, len(expr.Args))
	for i, a := range expr.Args {
		d, err := r.build(a)
		if err != nil {
			return nil, err
		}
		elems[i] = d
	}

	switch expr.Name {
	case ctorList:
		return ListOf(elems[0]), nil
	case ctorTuple:
		return TupleOf(elems...), nil
	case ctorMapping, ctorMap:
		return MappingOf(elems[0], elems[1]), nil
	case ctorUnion:
		return UnionOf(elems...), nil
	case ctorOptional:
		return Optional(elems[0]), nil
	}
	return nil, &taskerr.ValidationError{
		Kind: taskerr.ErrUnknownType,
		Msg:  fmt.Sprintf("unknown type constructor %q", expr.Name),
	}
}
