package analysis

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Alain-L/lognorm/severity"
)

const metricsNamespace = "lognorm"

// Registry builds a private Prometheus registry holding the run metrics.
func (m AggregatedMetrics) Registry() (*prometheus.Registry, error) {
	registry := prometheus.NewRegistry()

	records := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "records_total",
		Help:      "Classified records by parser and severity.",
	}, []string{"parser", "severity"})
	continuations := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "continuation_records_total",
		Help:      "Records produced inside multi-line blocks.",
	})
	span := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "timestamp_seconds",
		Help:      "Oldest and newest record timestamps.",
	}, []string{"bound"})

	for _, c := range []prometheus.Collector{records, continuations, span} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}

	for k, n := range m.Counts {
		records.WithLabelValues(k.Parser, severity.Name(k.Severity)).Add(float64(n))
	}
	continuations.Add(float64(m.Global.Continuations))
	if !m.Global.MinTimestamp.IsZero() {
		span.WithLabelValues("first").Set(float64(m.Global.MinTimestamp.Unix()))
		span.WithLabelValues("last").Set(float64(m.Global.MaxTimestamp.Unix()))
	}
	return registry, nil
}

// WriteMetrics writes the run metrics to path in the Prometheus text format,
// ready for the node exporter textfile collector.
func WriteMetrics(path string, m AggregatedMetrics) error {
	registry, err := m.Registry()
	if err != nil {
		return err
	}
	if err := prometheus.WriteToTextfile(path, registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
