package types

// IsAssignable reports whether a value statically typed as value may be bound
// to a slot declared as declared.
//
// The relation is reflexive. Every type is assignable to and from any. A union
// value is assignable when each of its members is; a union slot accepts a
// value assignable to one of its members. Integers widen to numbers. Lists,
// tuples and mappings are compared element-wise, and a tuple whose items all
// fit a list's element type is assignable to that list. Nominal types match
// only by name.
func IsAssignable(value, declared *Descriptor) bool {
	if value == nil || declared == nil {
		return false
	}
	if value == declared {
		return true
	}
	if value.Kind == KindAny || declared.Kind == KindAny {
		return true
	}

	if value.Kind == KindUnion {
		for _, m := range value.Elems {
			if !IsAssignable(m, declared) {
				return false
			}
		}
		return true
	}
	if declared.Kind == KindUnion {
		for _, m := range declared.Elems {
			if IsAssignable(value, m) {
				return true
			}
		}
		return false
	}

	switch declared.Kind {
	case KindNull:
		return value.Kind == KindNull

	case KindPrimitive:
		if value.Kind != KindPrimitive {
			return false
		}
		return value.base == declared.base ||
			(value.base == Integer && declared.base == Number)

	case KindNominal:
		return value.Kind == KindNominal && value.base == declared.base

	case KindList:
		switch value.Kind {
		case KindList:
			return IsAssignable(value.Elems[0], declared.Elems[0])
		case KindTuple:
			for _, item := range value.Elems {
				if !IsAssignable(item, declared.Elems[0]) {
					return false
				}
			}
			return true
		}
		return false

	case KindTuple:
		if value.Kind != KindTuple || len(value.Elems) != len(declared.Elems) {
			return false
		}
		for i := range value.Elems {
			if !IsAssignable(value.Elems[i], declared.Elems[i]) {
				return false
			}
		}
		return true

	case KindMapping:
		return value.Kind == KindMapping &&
			IsAssignable(value.Elems[0], declared.Elems[0]) &&
			IsAssignable(value.Elems[1], declared.Elems[1])
	}
	return false
}
