package tracking

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus exposes task metrics as gauges and counts tracked artifacts.
// Parameters are not exported.
type Prometheus struct {
	sink
	metrics   *prometheus.GaugeVec
	artifacts prometheus.Counter
}

// NewPrometheus creates the collectors and registers them with reg.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	p := &Prometheus{
		metrics: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "taskgraph_tracked_metric", Help: "Last value of a metric reported by a task."},
			[]string{"name", "step"},
		),
		artifacts: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "taskgraph_tracked_artifacts_total", Help: "Total number of artifact locations tracked."},
		),
	}
	for _, c := range []prometheus.Collector{p.metrics, p.artifacts} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	p.sink = sink{emit: p.observe}
	return p, nil
}

func (p *Prometheus) observe(_ context.Context, r Record) error {
	switch r.Kind {
	case KindMetric:
		v, _ := r.Value.(float64)
		p.metrics.WithLabelValues(r.Key, r.Step).Set(v)
	case KindArtifact:
		p.artifacts.Inc()
	}
	return nil
}
