package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
)

// Module is the interface that all core modules must implement to be registered.
type Module interface {
	Register(h *Handlers)
}

// TaskFunc is the compiled implementation of a task. Inputs are keyed by
// declared input name; optional inputs without a binding are absent.
//
// A task with one declared output returns its value directly. A task with
// several returns either a map keyed by output name or a slice in declaration
// order.
type TaskFunc func(ctx context.Context, inputs map[string]any) (any, error)

// ArtifactWriter persists serialized artifact bytes and reports where they
// were written.
type ArtifactWriter interface {
	Write(ctx context.Context, name string, data []byte) (location string, err error)
}

// SerializeFunc is the compiled implementation of an artifact task. name is
// the artifact step's name, which serializers use to derive a default file
// name.
type SerializeFunc func(ctx context.Context, w ArtifactWriter, name string, inputs map[string]any) (location string, err error)

// Handlers maps plugin names to compiled callables.
type Handlers struct {
	tasks       map[string]TaskFunc
	serializers map[string]SerializeFunc
}

// NewHandlers creates an empty handler table.
func NewHandlers() *Handlers {
	return &Handlers{
		tasks:       make(map[string]TaskFunc),
		serializers: make(map[string]SerializeFunc),
	}
}

// RegisterTask registers a Go function for a task plugin.
func (h *Handlers) RegisterTask(plugin string, fn TaskFunc) {
	if _, exists := h.tasks[plugin]; exists {
		panic(fmt.Sprintf("task handler with name '%s' already registered", plugin))
	}
	slog.Debug("Registering task handler.", "plugin", plugin)
	h.tasks[plugin] = fn
}

// RegisterSerializer registers a Go function for an artifact task plugin.
func (h *Handlers) RegisterSerializer(plugin string, fn SerializeFunc) {
	if _, exists := h.serializers[plugin]; exists {
		panic(fmt.Sprintf("serializer handler with name '%s' already registered", plugin))
	}
	slog.Debug("Registering serializer handler.", "plugin", plugin)
	h.serializers[plugin] = fn
}

// Task returns the callable registered for plugin.
func (h *Handlers) Task(plugin string) (TaskFunc, bool) {
	fn, ok := h.tasks[plugin]
	return fn, ok
}

// Serializer returns the serializer registered for plugin.
func (h *Handlers) Serializer(plugin string) (SerializeFunc, bool) {
	fn, ok := h.serializers[plugin]
	return fn, ok
}

// HasTask reports whether a task callable is registered for plugin.
func (h *Handlers) HasTask(plugin string) bool {
	_, ok := h.tasks[plugin]
	return ok
}

// HasSerializer reports whether a serializer is registered for plugin.
func (h *Handlers) HasSerializer(plugin string) bool {
	_, ok := h.serializers[plugin]
	return ok
}

// TaskPlugins returns the registered task plugin names, sorted.
func (h *Handlers) TaskPlugins() []string {
	out := make([]string, 0, len(h.tasks))
	for name := range h.tasks {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
