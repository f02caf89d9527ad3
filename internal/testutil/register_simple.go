package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/specialistvlad/taskgraph/internal/registry"
)

// SimpleModule is a test helper for creating a module that registers a fixed
// set of task callables and serializers.
type SimpleModule struct {
	Tasks       map[string]registry.TaskFunc
	Serializers map[string]registry.SerializeFunc
}

// Register implements the registry.Module interface.
func (m *SimpleModule) Register(h *registry.Handlers) {
	for name, fn := range m.Tasks {
		h.RegisterTask(name, fn)
	}
	for name, fn := range m.Serializers {
		h.RegisterSerializer(name, fn)
	}
}

// Handlers builds a handler table from a module.
func Handlers(m registry.Module) *registry.Handlers {
	h := registry.NewHandlers()
	m.Register(h)
	return h
}

// Const returns a task that ignores its inputs and returns v.
func Const(v any) registry.TaskFunc {
	return func(context.Context, map[string]any) (any, error) { return v, nil }
}

// Fail returns a task that always fails with msg.
func Fail(msg string) registry.TaskFunc {
	return func(context.Context, map[string]any) (any, error) { return nil, errors.New(msg) }
}

// Recorder wraps task callables and remembers the order they were invoked in
// and the inputs they saw.
type Recorder struct {
	mu     sync.Mutex
	calls  []string
	inputs map[string]map[string]any
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{inputs: make(map[string]map[string]any)}
}

// Wrap returns fn instrumented to record each call under label.
func (r *Recorder) Wrap(label string, fn registry.TaskFunc) registry.TaskFunc {
	return func(ctx context.Context, inputs map[string]any) (any, error) {
		r.mu.Lock()
		r.calls = append(r.calls, label)
		r.inputs[label] = inputs
		r.mu.Unlock()
		return fn(ctx, inputs)
	}
}

// Calls returns the recorded call order.
func (r *Recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// Inputs returns the inputs of the last call recorded under label.
func (r *Recorder) Inputs(label string) map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inputs[label]
}
