package client

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PromSink exports client instrumentation as Prometheus metrics.
type PromSink struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	errors   *prometheus.CounterVec
}

// NewPromSink creates a sink and registers its collectors on reg.
func NewPromSink(reg prometheus.Registerer) *PromSink {
	s := &PromSink{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "logship_requests_total",
			Help: "Backend requests by operation, status code and outcome.",
		}, []string{"operation", "status", "success"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "logship_request_duration_seconds",
			Help:    "Backend request latency, including retries.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "logship_errors_total",
			Help: "Typed errors surfaced to callers by type and operation.",
		}, []string{"type", "operation"}),
	}
	reg.MustRegister(s.requests, s.duration, s.errors)
	return s
}

// RecordRequest implements MetricsSink.
func (s *PromSink) RecordRequest(success bool, duration time.Duration, status int, tags map[string]string) {
	op := tags["operation"]
	s.requests.WithLabelValues(op, strconv.Itoa(status), strconv.FormatBool(success)).Inc()
	s.duration.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordError implements MetricsSink.
func (s *PromSink) RecordError(errType, msg string, tags map[string]string) {
	s.errors.WithLabelValues(errType, tags["operation"]).Inc()
}
