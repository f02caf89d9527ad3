package env_vars

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/specialistvlad/taskgraph/internal/ctxlog"
	"github.com/specialistvlad/taskgraph/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	// Environ lists the variables to read. Defaults to os.Environ.
	Environ func() []string
}

// Register registers the "env_vars" task with the handler table.
func (m *Module) Register(h *registry.Handlers) {
	environ := m.Environ
	if environ == nil {
		environ = os.Environ
	}
	h.RegisterTask("env_vars", func(ctx context.Context, inputs map[string]any) (any, error) {
		return Collect(ctx, environ(), inputs)
	})
}

// Collect turns KEY=VALUE pairs into a mapping. The optional "prefix" input
// keeps only matching variables; "strip_prefix" removes the prefix from the
// returned keys.
func Collect(ctx context.Context, environ []string, inputs map[string]any) (map[string]any, error) {
	prefix, err := stringInput(inputs, "prefix")
	if err != nil {
		return nil, err
	}
	strip := false
	if v, ok := inputs["strip_prefix"]; ok && v != nil {
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("input 'strip_prefix' must be a boolean, got %T", v)
		}
		strip = b
	}

	out := make(map[string]any)
	for _, e := range environ {
		key, value, ok := strings.Cut(e, "=")
		if !ok || !strings.HasPrefix(key, prefix) {
			continue
		}
		if strip {
			key = strings.TrimPrefix(key, prefix)
		}
		out[key] = value
	}

	ctxlog.FromContext(ctx).Debug("Collected environment variables", "prefix", prefix, "count", len(out))
	return out, nil
}

func stringInput(inputs map[string]any, name string) (string, error) {
	v, ok := inputs[name]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("input '%s' must be a string, got %T", name, v)
	}
	return s, nil
}
