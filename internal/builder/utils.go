package builder

import (
	"sort"

	"github.com/specialistvlad/taskgraph/internal/registry"
	"github.com/specialistvlad/taskgraph/internal/types"
)

// kwargOrder returns named arguments ordered by the declared position of the
// input they bind, with undeclared names last in lexical order.
func kwargOrder(kwargs map[string]any, sig *registry.Signature) []string {
	names := sortedKeys(kwargs)
	pos := func(name string) int {
		if p, ok := sig.Input(name); ok {
			return p.Position
		}
		return len(sig.Inputs)
	}
	sort.SliceStable(names, func(i, j int) bool { return pos(names[i]) < pos(names[j]) })
	return names
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func appendDistinct(ds []*types.Descriptor, d *types.Descriptor) []*types.Descriptor {
	for _, existing := range ds {
		if existing.Expression() == d.Expression() {
			return ds
		}
	}
	return append(ds, d)
}
