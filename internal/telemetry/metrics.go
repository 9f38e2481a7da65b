// Package telemetry — метрики prometheus для синхронизации и отрисовки.
// Методы безопасны для nil *Metrics: без endpoint метрики просто не пишутся.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics — все метрики ringclock.
type Metrics struct {
	SyncAttempts *prometheus.CounterVec
	SyncDuration prometheus.Histogram
	TimeKnown    prometheus.Gauge
	AnchorAge    prometheus.Gauge
	CounterDrift prometheus.Gauge

	Frames      *prometheus.CounterVec
	RenderPhase prometheus.Histogram
	SinkErrors  prometheus.Counter
}

// InitMetrics регистрирует метрики в registry (nil — prometheus.DefaultRegisterer).
func InitMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	// Фаза кадра относительно границы секунды: 1 мс … 1 с
	phaseBuckets := []float64{0.001, 0.002, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1}

	return &Metrics{
		SyncAttempts: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ringclock_sync_attempts_total",
				Help: "Clock synchronisation attempts by result",
			},
			[]string{"result"},
		),
		SyncDuration: promauto.With(registry).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ringclock_sync_duration_seconds",
				Help:    "Wall time spent in one synchronisation attempt (query plus confirmation loop)",
				Buckets: []float64{0.01, 0.05, 0.1, 0.2, 0.5, 1, 2, 5},
			},
		),
		TimeKnown: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "ringclock_time_known",
				Help: "1 once the clock has been synchronised at least once",
			},
		),
		AnchorAge: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "ringclock_anchor_age_seconds",
				Help: "Time since the last successful synchronisation",
			},
		),
		CounterDrift: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "ringclock_counter_drift_ppm",
				Help: "Estimated drift of the monotonic counter against the time source",
			},
		),
		Frames: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ringclock_frames_total",
				Help: "Rendered frames by trigger",
			},
			[]string{"trigger"},
		),
		RenderPhase: promauto.With(registry).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ringclock_render_phase_seconds",
				Help:    "Delay of a frame after the second boundary it represents",
				Buckets: phaseBuckets,
			},
		),
		SinkErrors: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "ringclock_sink_errors_total",
				Help: "Failed strip flushes",
			},
		),
	}
}

// ObserveSync записывает исход попытки синхронизации.
func (m *Metrics) ObserveSync(result string, took time.Duration) {
	if m == nil {
		return
	}
	m.SyncAttempts.WithLabelValues(result).Inc()
	if result != "cooldown" {
		m.SyncDuration.Observe(took.Seconds())
	}
}

// ObserveClock обновляет состояние часов.
func (m *Metrics) ObserveClock(known bool, anchorAge time.Duration) {
	if m == nil {
		return
	}
	if known {
		m.TimeKnown.Set(1)
	} else {
		m.TimeKnown.Set(0)
	}
	m.AnchorAge.Set(anchorAge.Seconds())
}

// ObserveDrift записывает оценку ухода счётчика.
func (m *Metrics) ObserveDrift(ppm float64) {
	if m == nil {
		return
	}
	m.CounterDrift.Set(ppm)
}

// ObserveFrame записывает кадр, его причину и фазу относительно границы секунды.
func (m *Metrics) ObserveFrame(trigger string, phase time.Duration, err error) {
	if m == nil {
		return
	}
	m.Frames.WithLabelValues(trigger).Inc()
	m.RenderPhase.Observe(phase.Seconds())
	if err != nil {
		m.SinkErrors.Inc()
	}
}
