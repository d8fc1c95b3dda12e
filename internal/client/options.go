package client

import (
	"github.com/bft-labs/logship/pkg/log"
	"github.com/bft-labs/logship/pkg/oberr"
	"github.com/bft-labs/logship/pkg/query"
	"github.com/bft-labs/logship/pkg/transport"
)

// Option configures optional behavior of a Client.
type Option func(*options)

// options holds the optional collaborators for a Client.
type options struct {
	httpClient transport.HTTPClient
	logger     log.Logger
	sink       MetricsSink
	stats      *oberr.Stats
	whitelist  query.FieldWhitelist
	onDropped  DroppedBatchHandler
}

func defaultOptions() options {
	return options{
		logger: log.NewNoopLogger(),
		sink:   NoopSink{},
	}
}

// WithHTTPClient sets a custom HTTP client for API communication.
// If not provided, a default client with the configured timeout is used.
func WithHTTPClient(hc transport.HTTPClient) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used.
func WithLogger(l log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetricsSink sets the instrumentation sink.
func WithMetricsSink(s MetricsSink) Option {
	return func(o *options) { o.sink = s }
}

// WithStats injects the error counter store shared with the classifier.
// If not provided, the client constructs its own isolated store.
func WithStats(s *oberr.Stats) Option {
	return func(o *options) { o.stats = s }
}

// WithFieldWhitelist sets the per-stream field whitelist consulted by
// correlation queries. If not provided, every field is allowed.
func WithFieldWhitelist(wl query.FieldWhitelist) Option {
	return func(o *options) { o.whitelist = wl }
}

// WithDroppedBatchHandler registers the callback invoked when a batch is
// dropped after exhausted retries.
func WithDroppedBatchHandler(h DroppedBatchHandler) Option {
	return func(o *options) { o.onDropped = h }
}
