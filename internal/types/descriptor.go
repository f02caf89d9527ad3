// Package types implements the Type Registry: named type descriptors, the
// parser for type expressions, and the assignability relation used to check
// that a value flowing into an input parameter is compatible with it.
package types

import "strings"

// Kind classifies a Descriptor.
type Kind int

const (
	KindAny Kind = iota
	KindNull
	KindPrimitive
	KindNominal
	KindList
	KindTuple
	KindMapping
	KindUnion
)

func (k Kind) String() string {
	switch k {
	case KindAny:
		return "any"
	case KindNull:
		return "null"
	case KindPrimitive:
		return "primitive"
	case KindNominal:
		return "nominal"
	case KindList:
		return "list"
	case KindTuple:
		return "tuple"
	case KindMapping:
		return "mapping"
	case KindUnion:
		return "union"
	default:
		return "unknown"
	}
}

// Primitive type names.
const (
	String  = "string"
	Integer = "integer"
	Number  = "number"
	Boolean = "boolean"
)

// Descriptor describes a type known to a Registry.
//
// Elems holds the component types of structured kinds: the element type of a
// list, the item types of a tuple, the key and value types of a mapping, and
// the members of a union.
type Descriptor struct {
	Name  string
	Kind  Kind
	Elems []*Descriptor

	// base identifies primitives by their canonical name and nominal types by
	// their declared name, so aliases of a primitive keep its identity.
	base string
}

var (
	Any  = &Descriptor{Name: "any", Kind: KindAny}
	Null = &Descriptor{Name: "null", Kind: KindNull}

	StringType  = primitive(String)
	IntegerType = primitive(Integer)
	NumberType  = primitive(Number)
	BooleanType = primitive(Boolean)
)

func primitive(name string) *Descriptor {
	return &Descriptor{Name: name, Kind: KindPrimitive, base: name}
}

// ListOf returns an anonymous list descriptor.
func ListOf(elem *Descriptor) *Descriptor {
	return &Descriptor{Kind: KindList, Elems: []*Descriptor{elem}}
}

// TupleOf returns an anonymous tuple descriptor.
func TupleOf(items ...*Descriptor) *Descriptor {
	return &Descriptor{Kind: KindTuple, Elems: items}
}

// MappingOf returns an anonymous mapping descriptor.
func MappingOf(key, value *Descriptor) *Descriptor {
	return &Descriptor{Kind: KindMapping, Elems: []*Descriptor{key, value}}
}

// UnionOf returns an anonymous union descriptor.
func UnionOf(members ...*Descriptor) *Descriptor {
	return &Descriptor{Kind: KindUnion, Elems: members}
}

// Optional is shorthand for union(elem, null).
func Optional(elem *Descriptor) *Descriptor {
	return UnionOf(elem, Null)
}

// Nominal returns an opaque named type. Two nominal types are compatible only
// when they share a name.
func Nominal(name string) *Descriptor {
	return &Descriptor{Name: name, Kind: KindNominal, base: name}
}

// named returns a copy of d registered under name. Structure and identity are
// preserved.
func (d *Descriptor) named(name string) *Descriptor {
	c := *d
	c.Name = name
	return &c
}

// Expression renders the structural form of d, ignoring its registered name.
func (d *Descriptor) Expression() string {
	if d == nil {
		return "<nil>"
	}
	switch d.Kind {
	case KindAny, KindNull:
		return d.Kind.String()
	case KindPrimitive, KindNominal:
		return d.base
	case KindList:
		return "list(" + d.Elems[0].String() + ")"
	case KindMapping:
		return "mapping(" + d.Elems[0].String() + ", " + d.Elems[1].String() + ")"
	case KindTuple, KindUnion:
		parts := make([]string, len(d.Elems))
		for i, e := range d.Elems {
			parts[i] = e.String()
		}
		return d.Kind.String() + "(" + strings.Join(parts, ", ") + ")"
	}
	return d.Name
}

// String returns the registered name of d, or its expression when anonymous.
func (d *Descriptor) String() string {
	if d == nil {
		return "<nil>"
	}
	if d.Name != "" {
		return d.Name
	}
	return d.Expression()
}

// Nullable reports whether null is assignable to d.
func (d *Descriptor) Nullable() bool {
	return IsAssignable(Null, d)
}
