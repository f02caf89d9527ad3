package artifacts

import (
	"context"
	"errors"
	"fmt"

	"github.com/mohae/deepcopy"
	"github.com/specialistvlad/taskgraph/internal/builder"
	"github.com/specialistvlad/taskgraph/internal/ctxlog"
	"github.com/specialistvlad/taskgraph/internal/executor"
	"github.com/specialistvlad/taskgraph/internal/metrics"
	"github.com/specialistvlad/taskgraph/internal/registry"
	"github.com/specialistvlad/taskgraph/internal/taskerr"
	"github.com/specialistvlad/taskgraph/internal/tracking"
)

// Resolver runs the artifact graph of a job.
type Resolver struct {
	ec       *executor.ExecutionContext
	graph    *builder.ArtifactGraph
	handlers *registry.Handlers
	writer   registry.ArtifactWriter
	metrics  *metrics.Metrics
}

// NewResolver creates a resolver reading outputs through ec. m may be nil.
func NewResolver(ec *executor.ExecutionContext, ag *builder.ArtifactGraph, h *registry.Handlers, w registry.ArtifactWriter, m *metrics.Metrics) *Resolver {
	return &Resolver{ec: ec, graph: ag, handlers: h, writer: w, metrics: m}
}

// Run serializes every artifact in declaration order and returns the
// locations written, keyed by artifact name. Artifacts that fail are left
// out; their errors are joined into the returned error.
func (r *Resolver) Run(ctx context.Context) (map[string]string, error) {
	logger := ctxlog.FromContext(ctx)
	locations := make(map[string]string)
	var errs []error

	for _, a := range r.graph.Steps {
		location, err := r.runOne(ctx, a)
		if err != nil {
			logger.Error("Artifact failed.", "artifact", a.Name, "error", err)
			r.metrics.ObserveArtifact(a.Task.Name, "failed")
			errs = append(errs, err)
			continue
		}
		locations[a.Name] = location
		r.metrics.ObserveArtifact(a.Task.Name, "succeeded")
		if err := tracking.FromContext(ctx).LogArtifact(ctx, a.Name, location); err != nil {
			logger.Warn("Could not track artifact location.", "artifact", a.Name, "error", err)
		}
	}
	return locations, errors.Join(errs...)
}

func (r *Resolver) runOne(ctx context.Context, a *builder.Step) (string, error) {
	logger := ctxlog.FromContext(ctx).With("artifact", a.Name, "task", a.Task.Name)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Info("📦 Writing artifact")

	if source, ok := r.missingSource(ctx, a); ok {
		return "", &taskerr.ExecutionError{
			Kind: taskerr.ErrMissingArtifactSource,
			Step: a.Name,
			Task: a.Task.Name,
			Err:  fmt.Errorf("step %q has no output; it failed or never ran", source),
		}
	}

	inputs, err := executor.ResolveInputs(ctx, r.ec, a)
	if err != nil {
		return "", r.fail(a, taskerr.ErrStepExecution, inputs, err)
	}
	snapshot := deepcopy.Copy(inputs).(map[string]any)

	fn, ok := r.handlers.Serializer(a.Task.Plugin)
	if !ok {
		return "", r.fail(a, taskerr.ErrStepExecution, snapshot, fmt.Errorf("no serializer registered for plugin %q", a.Task.Plugin))
	}
	location, err := fn(ctx, r.writer, a.Name, inputs)
	if err != nil {
		kind := taskerr.ErrStepExecution
		if errors.Is(err, taskerr.ErrDuplicateArtifactDestination) {
			kind = taskerr.ErrDuplicateArtifactDestination
		}
		return "", r.fail(a, kind, snapshot, err)
	}

	logger.Info("✅ Artifact written", "location", location)
	return location, nil
}

// missingSource returns the first referenced step whose output is absent.
func (r *Resolver) missingSource(ctx context.Context, a *builder.Step) (string, bool) {
	for _, in := range a.Task.Inputs {
		b, ok := a.Inputs[in.Name]
		if !ok {
			continue
		}
		for _, ref := range b.StepRefs() {
			if _, ok := r.ec.Store.Get(ctx, r.ec.OutputKey(ref.Name, ref.Output)); !ok {
				return ref.Name, true
			}
		}
	}
	return "", false
}

func (r *Resolver) fail(a *builder.Step, kind error, inputs map[string]any, err error) error {
	return &taskerr.ExecutionError{Kind: kind, Step: a.Name, Task: a.Task.Name, Inputs: inputs, Err: err}
}
