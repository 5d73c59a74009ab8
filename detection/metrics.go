package detection

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"phishing-detector/reputation"
)

// Metrics are the Prometheus collectors of the detection pipeline. A nil
// *Metrics records nothing.
type Metrics struct {
	detections *prometheus.CounterVec
	lookups    *prometheus.CounterVec
	duration   prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		detections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "phishing",
			Name:      "detections_total",
			Help:      "Completed detections by final verdict.",
		}, []string{"verdict"}),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "phishing",
			Name:      "reputation_lookups_total",
			Help:      "Threat-feed lookups by source and outcome.",
		}, []string{"source", "outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "phishing",
			Name:      "detection_duration_seconds",
			Help:      "Time spent producing a verdict.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20},
		}),
	}
	reg.MustRegister(m.detections, m.lookups, m.duration)
	return m
}

// ObserveDetection counts a finished detection.
func (m *Metrics) ObserveDetection(v Verdict, took time.Duration) {
	if m == nil {
		return
	}
	m.detections.WithLabelValues(v.String()).Inc()
	m.duration.Observe(took.Seconds())
}

// ObserveLookup implements reputation.Observer.
func (m *Metrics) ObserveLookup(source string, outcome reputation.Outcome) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(source, outcome.String()).Inc()
}
