package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.ObserveStep("fit", "succeeded", time.Second)
	m.ObserveStep("fit", "succeeded", time.Second)
	m.ObserveStep("fit", "failed", time.Second)
	m.ObserveJob("failed", time.Minute)
	m.ObserveArtifact("json_file", "succeeded")
	m.WorkerBusy(1)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.stepCounter.WithLabelValues("fit", "succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stepCounter.WithLabelValues("fit", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobCounter.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.artifactCounter.WithLabelValues("json_file", "succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.activeWorkers))
}

func TestMetrics_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := New(reg)
	require.NoError(t, err)
	second, err := New(reg)
	require.NoError(t, err)

	first.ObserveJob("succeeded", time.Second)
	second.ObserveJob("succeeded", time.Second)
	assert.Equal(t, 2.0, testutil.ToFloat64(second.jobCounter.WithLabelValues("succeeded")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveStep("t", "succeeded", time.Second)
		m.ObserveJob("succeeded", time.Second)
		m.ObserveArtifact("t", "failed")
		m.WorkerBusy(-1)
	})
}
