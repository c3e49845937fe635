// Package metrics описывает Prometheus-коллекторы конвейера.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "flow_agent"

type Metrics struct {
	stageDuration *prometheus.HistogramVec
	stageRetries  *prometheus.CounterVec
	runs          *prometheus.CounterVec
	runsActive    prometheus.Gauge
}

// MustNewMetrics регистрирует коллекторы в reg. Повторная регистрация
// переиспользует существующие коллекторы, остальные ошибки - паника.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Время, проведенное запуском в стадии.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}, []string{"stage"}),
		stageRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_retries_total",
			Help:      "Повторные попытки внутри стадии.",
		}, []string{"stage"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Завершенные запуски по исходу и стадии отказа.",
		}, []string{"outcome", "stage"}),
		runsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_active",
			Help:      "Запуски, выполняющиеся прямо сейчас.",
		}),
	}

	m.stageDuration = register(reg, m.stageDuration)
	m.stageRetries = register(reg, m.stageRetries)
	m.runs = register(reg, m.runs)
	m.runsActive = register(reg, m.runsActive)
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// ObserveStage учитывает уход из стадии stage.
func (m *Metrics) ObserveStage(stage string, elapsed time.Duration, retries int) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
	if retries > 0 {
		m.stageRetries.WithLabelValues(stage).Add(float64(retries))
	}
}

// RunStarted возвращает функцию, которую нужно вызвать по завершении запуска.
func (m *Metrics) RunStarted() func(outcome, stage string) {
	if m == nil {
		return func(string, string) {}
	}
	m.runsActive.Inc()
	return func(outcome, stage string) {
		m.runsActive.Dec()
		m.runs.WithLabelValues(outcome, stage).Inc()
	}
}
