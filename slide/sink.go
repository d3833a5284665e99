package slide

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

// Sink receives failed hydrations. It is write only.
type Sink interface {
	DiagramFailed(diagramID, message string)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(diagramID, message string)

func (f SinkFunc) DiagramFailed(diagramID, message string) {
	f(diagramID, message)
}

// LogSink logs failures as warnings.
type LogSink struct {
	Log logrus.FieldLogger
}

func (s LogSink) DiagramFailed(diagramID, message string) {
	s.Log.WithFields(logrus.Fields{
		"diagram": diagramID,
		"error":   message,
	}).Warn("diagram hydration failed")
}

// MultiSink fans a failure out to every sink.
type MultiSink []Sink

func (m MultiSink) DiagramFailed(diagramID, message string) {
	for _, s := range m {
		s.DiagramFailed(diagramID, message)
	}
}

// Metrics counts hydration outcomes per view.
type Metrics struct {
	failures *prometheus.CounterVec
	rendered *prometheus.CounterVec
}

// NewMetrics registers the hydration counters with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "showandtell",
			Name:      "diagram_failures_total",
			Help:      "Total number of diagrams that failed to hydrate",
		}, []string{"view"}),
		rendered: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "showandtell",
			Name:      "diagrams_rendered_total",
			Help:      "Total number of diagrams hydrated into graphics",
		}, []string{"view"}),
	}
}

// Sink returns a sink counting failures of the named view.
func (m *Metrics) Sink(view string) Sink {
	c := m.failures.WithLabelValues(view)
	return SinkFunc(func(string, string) {
		c.Inc()
	})
}

// Observe records a finished hydration pass.
func (m *Metrics) Observe(view string, r Report) {
	m.rendered.WithLabelValues(view).Add(float64(r.Rendered))
}
