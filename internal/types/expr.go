package types

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// Constructor names accepted in type expressions.
const (
	ctorList     = "list"
	ctorTuple    = "tuple"
	ctorMapping  = "mapping"
	ctorMap      = "map"
	ctorUnion    = "union"
	ctorOptional = "optional"
)

// Expr is an unresolved type expression: either a bare name (Args == nil and
// Call == false) or a constructor call such as list(integer).
type Expr struct {
	Name string
	Call bool
	Args []*Expr
}

// Ref returns an expression naming a type.
func Ref(name string) *Expr { return &Expr{Name: name} }

// Call returns a constructor expression.
func Call(ctor string, args ...*Expr) *Expr {
	return &Expr{Name: ctor, Call: true, Args: args}
}

func (e *Expr) String() string {
	if e == nil {
		return "any"
	}
	if !e.Call {
		return e.Name
	}
	parts := make([]string, len(e.Args))
	for i, a := range e.Args {
		parts[i] = a.String()
	}
	return e.Name + "(" + strings.Join(parts, ", ") + ")"
}

// Refs returns every type name the expression refers to, in order of
// appearance.
func (e *Expr) Refs() []string {
	if e == nil {
		return nil
	}
	if !e.Call {
		return []string{e.Name}
	}
	var out []string
	for _, a := range e.Args {
		out = append(out, a.Refs()...)
	}
	return out
}

// ParseExpr parses a type expression written in function-call syntax, for
// example "mapping(string, list(number))".
func ParseExpr(src string) (*Expr, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, fmt.Errorf("empty type expression")
	}
	expr, diags := hclsyntax.ParseExpression([]byte(src), "<type>", hcl.InitialPos)
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid type expression %q: %s", src, diags.Error())
	}
	out, err := FromHCL(expr)
	if err == nil && out == nil {
		out = Ref("null")
	}
	return out, err
}

// FromHCL converts an HCL expression into a type expression. A nil or null
// expression yields a nil *Expr, which callers treat as "no type given".
func FromHCL(expr hcl.Expression) (*Expr, error) {
	if expr == nil {
		return nil, nil
	}

	switch v := expr.(type) {
	case *hclsyntax.FunctionCallExpr:
		if !isConstructor(v.Name) {
			return nil, fmt.Errorf("unknown type constructor %q", v.Name)
		}
		args := make([]*Expr, 0, len(v.Args))
		for _, a := range v.Args {
			arg, err := FromHCL(a)
			if err != nil {
				return nil, err
			}
			if arg == nil {
				arg = Ref("null")
			}
			args = append(args, arg)
		}
		out := Call(v.Name, args...)
		if err := out.checkArity(); err != nil {
			return nil, err
		}
		return out, nil

	case *hclsyntax.ScopeTraversalExpr:
		if len(v.Traversal) != 1 {
			return nil, fmt.Errorf("invalid type name: traversal path is not a single identifier")
		}
		return Ref(v.Traversal.RootName()), nil

	case *hclsyntax.TemplateWrapExpr:
		return FromHCL(v.Wrapped)
	}

	// Literal values: null means "no type", a quoted string is parsed as a
	// type expression of its own.
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("unsupported expression for type definition: %T", expr)
	}
	if val.IsNull() {
		return nil, nil
	}
	if val.Type() == cty.String && val.IsKnown() {
		return ParseExpr(val.AsString())
	}
	return nil, fmt.Errorf("unsupported value for type definition: %s", val.Type().FriendlyName())
}

func isConstructor(name string) bool {
	switch name {
	case ctorList, ctorTuple, ctorMapping, ctorMap, ctorUnion, ctorOptional:
		return true
	}
	return false
}

func (e *Expr) checkArity() error {
	n := len(e.Args)
	switch e.Name {
	case ctorList, ctorOptional:
		if n != 1 {
			return fmt.Errorf("%s() takes exactly one type argument, got %d", e.Name, n)
		}
	case ctorMapping, ctorMap:
		if n != 2 {
			return fmt.Errorf("%s() takes a key and a value type, got %d arguments", e.Name, n)
		}
	case ctorUnion:
		if n == 0 {
			return fmt.Errorf("union() needs at least one member type")
		}
	}
	return nil
}
