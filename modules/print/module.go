package print

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/specialistvlad/taskgraph/internal/ctxlog"
	"github.com/specialistvlad/taskgraph/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	// Out receives the printed lines. Defaults to os.Stdout.
	Out io.Writer
}

// Register registers the "print" task with the handler table.
func (m *Module) Register(h *registry.Handlers) {
	out := m.Out
	if out == nil {
		out = os.Stdout
	}
	h.RegisterTask("print", func(ctx context.Context, inputs map[string]any) (any, error) {
		return nil, Print(ctx, out, inputs)
	})
}

// Print writes every input as a "name = value" line, sorted by name.
func Print(ctx context.Context, w io.Writer, inputs map[string]any) error {
	ctxlog.FromContext(ctx).Info("Printing input", "count", len(inputs))

	if len(inputs) == 0 {
		_, err := fmt.Fprintln(w, "      (null)")
		return err
	}

	keys := make([]string, 0, len(inputs))
	for k := range inputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if _, err := fmt.Fprintf(w, "      %s = %s\n", k, format(inputs[k])); err != nil {
			return fmt.Errorf("failed to print input %q: %w", k, err)
		}
	}
	return nil
}

func format(v any) string {
	switch x := v.(type) {
	case nil:
		return "(null)"
	case string:
		return fmt.Sprintf("%q", x)
	default:
		return fmt.Sprintf("%v", x)
	}
}
