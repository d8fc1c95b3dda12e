// Package logship is a resilient client for SQL-over-HTTP observability
// backends. It validates queries before they leave the process, batches and
// compresses ingestion, retries transient failures with exponential backoff
// and classifies every error into a stable taxonomy.
//
// Example usage:
//
//	cfg := logship.Config{
//	    BaseURL: "https://obs.example.com",
//	    Org:     "default",
//	    Token:   "your-api-token",
//	}
//	c, err := logship.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close(context.Background())
//
//	res, err := c.Query(ctx, []string{"app"}, `SELECT * FROM "app"`, logship.QueryOptions{
//	    Start: "now-1h",
//	    Limit: 50,
//	})
package logship

import (
	"github.com/bft-labs/logship/internal/client"
	"github.com/bft-labs/logship/pkg/query"
)

// Client is the facade over the backend API. All methods are safe for
// concurrent use.
type Client = client.Client

// Config holds the client configuration. Zero values fall back to defaults
// in New.
type Config = client.Config

// Option configures optional behavior of a Client.
type Option = client.Option

// QueryOptions bound a query in time and size.
type QueryOptions = client.QueryOptions

// QueryResult is a normalized hit set.
type QueryResult = client.QueryResult

// IngestResult reports what happened to an Ingest call.
type IngestResult = client.IngestResult

// HealthStatus is the normalized backend health document.
type HealthStatus = client.HealthStatus

// BackendStats is the normalized backend statistics document.
type BackendStats = client.BackendStats

// StreamStat is per-stream backend statistics.
type StreamStat = client.StreamStat

// CleanupResult is the normalized retention cleanup response.
type CleanupResult = client.CleanupResult

// Window is the time window for correlation queries.
type Window = query.Window

// MetricsSink receives per-request and per-error instrumentation.
type MetricsSink = client.MetricsSink

// DroppedBatchHandler receives batches dropped after exhausted retries.
type DroppedBatchHandler = client.DroppedBatchHandler

// Lifecycle errors, checkable with errors.Is.
var (
	ErrClosed        = client.ErrClosed
	ErrInvalidConfig = client.ErrInvalidConfig
)

// New creates a Client. The configuration is validated up front.
func New(cfg Config, opts ...Option) (*Client, error) {
	return client.New(cfg, opts...)
}

// WithHTTPClient sets a custom HTTP client for API communication.
var WithHTTPClient = client.WithHTTPClient

// WithLogger sets a custom logger for structured logging.
var WithLogger = client.WithLogger

// WithMetricsSink sets the instrumentation sink.
var WithMetricsSink = client.WithMetricsSink

// WithFieldWhitelist sets the per-stream field whitelist consulted by
// correlation queries.
var WithFieldWhitelist = client.WithFieldWhitelist

// WithDroppedBatchHandler registers the callback invoked when a batch is
// dropped after exhausted retries.
var WithDroppedBatchHandler = client.WithDroppedBatchHandler

// NewPromSink returns a MetricsSink backed by Prometheus collectors.
var NewPromSink = client.NewPromSink

// DefaultOrg is the organization used when Config.Org is empty.
const DefaultOrg = client.DefaultOrg
