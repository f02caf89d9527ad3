// Package metrics holds the Prometheus collectors for job, step and artifact
// outcomes. A nil *Metrics is valid and records nothing.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors registered for one process.
type Metrics struct {
	jobCounter      *prometheus.CounterVec
	jobDuration     prometheus.Histogram
	stepCounter     *prometheus.CounterVec
	stepDuration    *prometheus.HistogramVec
	artifactCounter *prometheus.CounterVec
	activeWorkers   prometheus.Gauge
}

// New creates the collectors and registers them with reg. Collectors that are
// already registered are reused, so New may be called for every job.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		jobCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "taskgraph_job_runs_total", Help: "Total number of job runs by final status."},
			[]string{"status"},
		),
		jobDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{Name: "taskgraph_job_run_duration_seconds", Help: "Duration of job runs in seconds.", Buckets: prometheus.DefBuckets},
		),
		stepCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "taskgraph_step_runs_total", Help: "Total number of step executions by final status."},
			[]string{"task", "status"},
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Name: "taskgraph_step_run_duration_seconds", Help: "Duration of individual step executions in seconds.", Buckets: prometheus.DefBuckets},
			[]string{"task"},
		),
		artifactCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "taskgraph_artifacts_total", Help: "Total number of artifacts serialized by final status."},
			[]string{"task", "status"},
		),
		activeWorkers: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "taskgraph_active_workers", Help: "Number of workers currently running a step."},
		),
	}

	var err error
	if m.jobCounter, err = register(reg, m.jobCounter); err != nil {
		return nil, err
	}
	if m.jobDuration, err = register(reg, m.jobDuration); err != nil {
		return nil, err
	}
	if m.stepCounter, err = register(reg, m.stepCounter); err != nil {
		return nil, err
	}
	if m.stepDuration, err = register(reg, m.stepDuration); err != nil {
		return nil, err
	}
	if m.artifactCounter, err = register(reg, m.artifactCounter); err != nil {
		return nil, err
	}
	if m.activeWorkers, err = register(reg, m.activeWorkers); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// ObserveStep records a finished step.
func (m *Metrics) ObserveStep(task, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.stepCounter.WithLabelValues(task, status).Inc()
	m.stepDuration.WithLabelValues(task).Observe(d.Seconds())
}

// ObserveJob records a finished job.
func (m *Metrics) ObserveJob(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.jobCounter.WithLabelValues(status).Inc()
	m.jobDuration.Observe(d.Seconds())
}

// ObserveArtifact records a serialized or failed artifact.
func (m *Metrics) ObserveArtifact(task, status string) {
	if m == nil {
		return
	}
	m.artifactCounter.WithLabelValues(task, status).Inc()
}

// WorkerBusy adjusts the active worker gauge by delta.
func (m *Metrics) WorkerBusy(delta int) {
	if m == nil {
		return
	}
	m.activeWorkers.Add(float64(delta))
}
