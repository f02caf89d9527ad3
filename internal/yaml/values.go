package yaml

import (
	"fmt"

	yamlv3 "gopkg.in/yaml.v3"
)

// decodeValue decodes a node into plain Go values: nil, bool, int64, float64,
// string, []any and map[string]any.
func decodeValue(n *yamlv3.Node) (any, error) {
	var v any
	if err := n.Decode(&v); err != nil {
		return nil, fmt.Errorf("line %d: %w", n.Line, err)
	}
	return Normalize(v), nil
}

// Normalize converts values produced by yaml.v3 into the engine's value
// model. Integers become int64 and mapping keys become strings.
func Normalize(v any) any {
	switch t := v.(type) {
	case int:
		return int64(t)
	case uint64:
		return int64(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = Normalize(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = Normalize(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[fmt.Sprint(k)] = Normalize(item)
		}
		return out
	}
	return v
}

// ParseScalar interprets a command-line value the way a YAML document would:
// "3" is an integer, "true" a boolean, "[1, 2]" a list, anything else a string.
func ParseScalar(s string) any {
	var v any
	if err := yamlv3.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	if v == nil && s != "null" && s != "~" {
		return s
	}
	return Normalize(v)
}
