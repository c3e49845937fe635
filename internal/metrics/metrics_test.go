package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveStage(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := MustNewMetrics(reg)

	m.ObserveStage("images_uploaded", 3*time.Second, 2)
	m.ObserveStage("images_uploaded", time.Second, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.stageRetries.WithLabelValues("images_uploaded")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.stageDuration))
}

func TestRunLifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := MustNewMetrics(reg)

	done := m.RunStarted()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsActive))

	done("failed", "video_ready")
	assert.Equal(t, 0.0, testutil.ToFloat64(m.runsActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("failed", "video_ready")))
}

func TestMustNewMetricsReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := MustNewMetrics(reg)
	second := MustNewMetrics(reg)

	second.RunStarted()
	assert.Equal(t, 1.0, testutil.ToFloat64(first.runsActive))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveStage("x", time.Second, 1)
	m.RunStarted()("completed", "")
}
