package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for a report run. The tool is a
// one-shot batch job: metrics live on a private registry and are flushed to
// a textfile at the end of the run rather than scraped over HTTP.
type Metrics struct {
	registry *prometheus.Registry

	// APIRequests counts requests to the OpenAlex API, labeled by endpoint.
	APIRequests *prometheus.CounterVec

	// APIRequestsFailed counts failed OpenAlex requests, labeled by endpoint.
	APIRequestsFailed *prometheus.CounterVec

	// APIRequestDuration observes OpenAlex request duration in seconds, labeled by endpoint.
	APIRequestDuration *prometheus.HistogramVec

	// StepsCompleted counts pipeline steps that finished successfully, labeled by step.
	StepsCompleted *prometheus.CounterVec

	// StepsFailed counts pipeline steps that failed, labeled by step.
	StepsFailed *prometheus.CounterVec

	// RecordsWritten counts JSON documents written to the data directory.
	RecordsWritten prometheus.Counter

	// ChartsRendered counts PNG charts written to the charts directory.
	ChartsRendered prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered on
// a private registry. The namespace is used as a prefix for metric names.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		APIRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Total number of OpenAlex API requests",
		}, []string{"endpoint"}),
		APIRequestsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_failed_total",
			Help:      "Total number of failed OpenAlex API requests",
		}, []string{"endpoint"}),
		APIRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "OpenAlex API request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),

		StepsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_completed_total",
			Help:      "Total number of pipeline steps completed successfully",
		}, []string{"step"}),
		StepsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_failed_total",
			Help:      "Total number of pipeline steps that failed",
		}, []string{"step"}),

		RecordsWritten: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_written_total",
			Help:      "Total number of JSON documents written",
		}),
		ChartsRendered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "charts_rendered_total",
			Help:      "Total number of PNG charts rendered",
		}),
	}
}

// Registry returns the private registry holding all run metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the current metric values to the given path in the
// Prometheus text exposition format, for pickup by the node-exporter
// textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
