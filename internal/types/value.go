package types

import (
	"fmt"
	"reflect"
	"sort"
)

// Infer returns the descriptor of a literal value. Scalars map to their
// primitive type; composite values are described element by element.
func Infer(v any) *Descriptor {
	if v == nil {
		return Null
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return BooleanType
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return IntegerType
	case reflect.Float32, reflect.Float64:
		return NumberType
	case reflect.String:
		return StringType
	case reflect.Slice, reflect.Array:
		items := make([]*Descriptor, rv.Len())
		for i := range items {
			items[i] = Infer(rv.Index(i).Interface())
		}
		return TupleOf(items...)
	case reflect.Map:
		keys, values := []*Descriptor{}, []*Descriptor{}
		iter := rv.MapRange()
		for iter.Next() {
			keys = appendUnique(keys, Infer(iter.Key().Interface()))
			values = appendUnique(values, Infer(iter.Value().Interface()))
		}
		return MappingOf(collapse(keys), collapse(values))
	}
	return Any
}

func appendUnique(ds []*Descriptor, d *Descriptor) []*Descriptor {
	for _, existing := range ds {
		if existing.Expression() == d.Expression() {
			return ds
		}
	}
	return append(ds, d)
}

func collapse(ds []*Descriptor) *Descriptor {
	switch len(ds) {
	case 0:
		return Any
	case 1:
		return ds[0]
	}
	sort.Slice(ds, func(i, j int) bool { return ds[i].Expression() < ds[j].Expression() })
	return UnionOf(ds...)
}

// CheckValue verifies that a concrete value conforms to declared. It returns
// nil on success and a description of the first mismatch otherwise.
//
// Nominal types are opaque to the engine, so any non-null value satisfies
// them.
func CheckValue(v any, declared *Descriptor) error {
	if declared == nil || declared.Kind == KindAny {
		return nil
	}

	if declared.Kind == KindUnion {
		for _, m := range declared.Elems {
			if CheckValue(v, m) == nil {
				return nil
			}
		}
		return mismatch(v, declared)
	}

	if v == nil {
		if declared.Kind == KindNull {
			return nil
		}
		return mismatch(v, declared)
	}

	rv := reflect.ValueOf(v)
	switch declared.Kind {
	case KindNull:
		return mismatch(v, declared)

	case KindNominal:
		return nil

	case KindPrimitive:
		if primitiveMatches(rv, declared.base) {
			return nil
		}
		return mismatch(v, declared)

	case KindList:
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return mismatch(v, declared)
		}
		for i := 0; i < rv.Len(); i++ {
			if err := CheckValue(rv.Index(i).Interface(), declared.Elems[0]); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
		return nil

	case KindTuple:
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return mismatch(v, declared)
		}
		if rv.Len() != len(declared.Elems) {
			return fmt.Errorf("expected %s with %d items, got %d", declared, len(declared.Elems), rv.Len())
		}
		for i, item := range declared.Elems {
			if err := CheckValue(rv.Index(i).Interface(), item); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
		}
		return nil

	case KindMapping:
		if rv.Kind() != reflect.Map {
			return mismatch(v, declared)
		}
		iter := rv.MapRange()
		for iter.Next() {
			k := iter.Key().Interface()
			if err := CheckValue(k, declared.Elems[0]); err != nil {
				return fmt.Errorf("key %v: %w", k, err)
			}
			if err := CheckValue(iter.Value().Interface(), declared.Elems[1]); err != nil {
				return fmt.Errorf("value at %v: %w", k, err)
			}
		}
		return nil
	}
	return mismatch(v, declared)
}

func primitiveMatches(rv reflect.Value, base string) bool {
	switch base {
	case String:
		return rv.Kind() == reflect.String
	case Boolean:
		return rv.Kind() == reflect.Bool
	case Integer:
		return isInteger(rv)
	case Number:
		if isInteger(rv) {
			return true
		}
		return rv.Kind() == reflect.Float32 || rv.Kind() == reflect.Float64
	}
	return false
}

func isInteger(rv reflect.Value) bool {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func mismatch(v any, declared *Descriptor) error {
	return fmt.Errorf("expected %s, got %s", declared, Infer(v))
}
