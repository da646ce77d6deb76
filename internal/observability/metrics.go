// Package observability exposes Prometheus instruments for session progress.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"emovox/internal/ser"
)

// Metrics groups the instruments of one process. Each Metrics owns its
// registry, so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	Stages        *prometheus.CounterVec
	DegradedTotal *prometheus.CounterVec
	Fallbacks     prometheus.Counter
	Emotions      *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec
}

func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		Stages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stages_total",
			Help:      "Script stages started, by stage.",
		}, []string{"stage"}),
		DegradedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degraded_total",
			Help:      "Degraded results by service boundary.",
		}, []string{"boundary"}),
		Fallbacks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stt_fallback_total",
			Help:      "Transcriptions retried on the fallback model.",
		}),
		Emotions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emotions_total",
			Help:      "Classified user turns, by emotion label.",
		}, []string{"label"}),
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of one speak and listen stage.",
			Buckets:   []float64{1, 2, 5, 8, 10, 15, 20, 30, 60},
		}, []string{"stage"}),
	}
}

func (m *Metrics) StageStarted(_, stage string) {
	m.Stages.WithLabelValues(stage).Inc()
}

func (m *Metrics) Listened(_, _, _ string, emotion ser.Emotion) {
	m.Emotions.WithLabelValues(emotion.Label).Inc()
}

func (m *Metrics) StageFinished(_, stage string, d time.Duration) {
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) Degraded(boundary string, _ error) {
	m.DegradedTotal.WithLabelValues(boundary).Inc()
}

// Fallback counts one fallback transcription; it matches the speech
// transcriber's OnFallback hook.
func (m *Metrics) Fallback(error) {
	m.Fallbacks.Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
