package client

import "time"

// MetricsSink receives per-request and per-error instrumentation from the
// client. Implementations must be safe for concurrent use.
type MetricsSink interface {
	// RecordRequest is called once per logical operation, after retries.
	RecordRequest(success bool, duration time.Duration, status int, tags map[string]string)

	// RecordError is called for every operation that surfaces an error.
	RecordError(errType, msg string, tags map[string]string)
}

// NoopSink discards all instrumentation.
type NoopSink struct{}

// RecordRequest discards the sample.
func (NoopSink) RecordRequest(bool, time.Duration, int, map[string]string) {}

// RecordError discards the sample.
func (NoopSink) RecordError(string, string, map[string]string) {}
