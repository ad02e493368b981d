// Package metrics keeps per-run counters on a private Prometheus registry
// and writes them as a node-exporter textfile when the run ends.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is nil-safe: every method is a no-op on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	scenes   *prometheus.CounterVec
	topics   *prometheus.CounterVec
	inFlight prometheus.Gauge
	sceneSec prometheus.Histogram
	batches  prometheus.Counter
}

// New registers the pipeline collectors on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		scenes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leetvid",
			Name:      "scenes_total",
			Help:      "Scenes processed, by outcome reason.",
		}, []string{"outcome"}),
		topics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leetvid",
			Name:      "topics_total",
			Help:      "Topics processed, by outcome.",
		}, []string{"outcome"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "leetvid",
			Name:      "scenes_in_flight",
			Help:      "Scene units of work currently running.",
		}),
		sceneSec: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "leetvid",
			Name:      "scene_processing_seconds",
			Help:      "Wall time of render, audio and assembly for one scene.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		}),
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "leetvid",
			Name:      "scene_batches_total",
			Help:      "Scene batches executed.",
		}),
	}
	m.registry.MustRegister(m.scenes, m.topics, m.inFlight, m.sceneSec, m.batches)
	return m
}

// Registry exposes the underlying gatherer
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// SceneStarted marks one scene in flight
func (m *Metrics) SceneStarted() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

// SceneFinished records the outcome and wall time of one scene
func (m *Metrics) SceneFinished(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.inFlight.Dec()
	m.scenes.WithLabelValues(outcome).Inc()
	m.sceneSec.Observe(seconds)
}

// SceneSkipped records a scene that was never attempted
func (m *Metrics) SceneSkipped(outcome string) {
	if m == nil {
		return
	}
	m.scenes.WithLabelValues(outcome).Inc()
}

// BatchStarted counts one scene batch
func (m *Metrics) BatchStarted() {
	if m == nil {
		return
	}
	m.batches.Inc()
}

// TopicFinished records a topic outcome: "success", "failed" or "skipped"
func (m *Metrics) TopicFinished(outcome string) {
	if m == nil {
		return
	}
	m.topics.WithLabelValues(outcome).Inc()
}

// WriteFile writes the registry in text exposition format to path
func (m *Metrics) WriteFile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
