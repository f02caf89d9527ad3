package tracking

import (
	"context"
	"time"
)

// Kind distinguishes the three record shapes.
type Kind string

const (
	KindParam    Kind = "param"
	KindMetric   Kind = "metric"
	KindArtifact Kind = "artifact"
)

// Record is one tracked fact. For params Key/Value hold the parameter; for
// metrics Key is the metric name and Step the reporting step; for artifacts
// Key is the artifact name and Value its storage location.
type Record struct {
	Kind  Kind      `json:"kind"`
	Job   string    `json:"job,omitempty"`
	Key   string    `json:"key"`
	Value any       `json:"value"`
	Step  string    `json:"step,omitempty"`
	Time  time.Time `json:"time"`
}

// Tracker is the tracking/storage collaborator.
type Tracker interface {
	LogParam(ctx context.Context, key string, value any) error
	LogMetric(ctx context.Context, name string, value float64, step string) error
	LogArtifact(ctx context.Context, name, location string) error
}

// sink adapts a record writer to the Tracker interface.
type sink struct {
	emit func(ctx context.Context, r Record) error
}

func (s sink) LogParam(ctx context.Context, key string, value any) error {
	return s.emit(ctx, newRecord(ctx, KindParam, key, value, ""))
}

func (s sink) LogMetric(ctx context.Context, name string, value float64, step string) error {
	if step == "" {
		step = StepFromContext(ctx)
	}
	return s.emit(ctx, newRecord(ctx, KindMetric, name, value, step))
}

func (s sink) LogArtifact(ctx context.Context, name, location string) error {
	return s.emit(ctx, newRecord(ctx, KindArtifact, name, location, ""))
}

func newRecord(ctx context.Context, kind Kind, key string, value any, step string) Record {
	return Record{
		Kind:  kind,
		Job:   JobFromContext(ctx),
		Key:   key,
		Value: value,
		Step:  step,
		Time:  time.Now().UTC(),
	}
}

// Nop discards every record.
type Nop struct{}

func (Nop) LogParam(context.Context, string, any) error              { return nil }
func (Nop) LogMetric(context.Context, string, float64, string) error { return nil }
func (Nop) LogArtifact(context.Context, string, string) error        { return nil }

type (
	trackerKey struct{}
	jobKey     struct{}
	stepKey    struct{}
)

// WithTracker returns a new context carrying t.
func WithTracker(ctx context.Context, t Tracker) context.Context {
	return context.WithValue(ctx, trackerKey{}, t)
}

// FromContext returns the tracker carried by ctx, or Nop.
func FromContext(ctx context.Context) Tracker {
	if t, ok := ctx.Value(trackerKey{}).(Tracker); ok && t != nil {
		return t
	}
	return Nop{}
}

// WithJob tags records created under ctx with a job ID.
func WithJob(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, jobKey{}, id)
}

// JobFromContext returns the job ID set by WithJob.
func JobFromContext(ctx context.Context) string {
	id, _ := ctx.Value(jobKey{}).(string)
	return id
}

// WithStep tags metrics reported under ctx with the running step.
func WithStep(ctx context.Context, step string) context.Context {
	return context.WithValue(ctx, stepKey{}, step)
}

// StepFromContext returns the step set by WithStep.
func StepFromContext(ctx context.Context) string {
	step, _ := ctx.Value(stepKey{}).(string)
	return step
}
