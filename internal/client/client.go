// Package client implements the backend client facade: query, ingest,
// health, stats, cleanup and correlate operations composed from the query
// builder, batch writer, retry executor and error classifier.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/logship/pkg/batch"
	"github.com/bft-labs/logship/pkg/log"
	"github.com/bft-labs/logship/pkg/oberr"
	"github.com/bft-labs/logship/pkg/query"
	"github.com/bft-labs/logship/pkg/retry"
	"github.com/bft-labs/logship/pkg/transport"
)

// Lifecycle errors, checkable with errors.Is.
var (
	// ErrClosed is returned by operations on a closed client.
	ErrClosed = errors.New("logship: client closed")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("logship: invalid configuration")
)

// DroppedBatchHandler receives batches dropped after exhausted retries.
type DroppedBatchHandler = batch.FailureHandler

// Client is the facade over the backend API. All methods are safe for
// concurrent use.
type Client struct {
	cfg        Config
	opts       options
	sender     *transport.Sender
	builder    *query.Builder
	exec       *retry.Executor
	writer     *batch.Writer
	classifier *oberr.Classifier
	stats      *oberr.Stats
	logger     log.Logger

	closed atomic.Bool
}

// New creates a Client. The configuration is validated up front; every
// remote operation afterwards surfaces failures as typed errors rather than
// tearing anything down.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	stats := o.stats
	if stats == nil {
		stats = oberr.NewStats()
	}
	classifier := oberr.NewClassifier(stats)

	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	c := &Client{
		cfg:     cfg,
		opts:    o,
		builder: query.NewBuilder(o.whitelist, cfg.MaxLimit),
		exec:    retry.New(classifier, cfg.Retry, o.logger),
		sender: transport.NewSender(httpClient, transport.Metadata{
			BaseURL: cfg.BaseURL,
			Org:     cfg.Org,
			Credentials: transport.Credentials{
				Token:    cfg.Token,
				Username: cfg.Username,
				Password: cfg.Password,
			},
		}, o.logger),
		classifier: classifier,
		stats:      stats,
		logger:     o.logger,
	}

	var compressor batch.Compressor = batch.Gzip{}
	if cfg.DisableCompression {
		compressor = nil
	}
	c.writer = batch.NewWriter(submitter{c}, cfg.Batch,
		batch.WithCompressor(compressor),
		batch.WithFailureHandler(o.onDropped),
		batch.WithLogger(o.logger),
	)

	return c, nil
}

// submitter routes batch flushes through the client's retry executor and
// instrumentation.
type submitter struct{ c *Client }

func (s submitter) Submit(ctx context.Context, stream string, payload []byte, gzipped bool, requestID string) error {
	return s.c.run(ctx, "ingest", requestID, func(ctx context.Context) error {
		return s.c.sender.Ingest(ctx, stream, payload, gzipped, requestID)
	})
}

// ErrorStats exposes the error counter store for inspection and test reset.
func (c *Client) ErrorStats() *oberr.Stats { return c.stats }

// QueryOptions bound a query in time and size. Zero values mean "no bound"
// and "default limit".
type QueryOptions struct {
	Start string
	End   string
	Limit int
}

// QueryResult is a normalized hit set.
type QueryResult struct {
	Hits      []map[string]any
	Total     int64
	Took      int64
	RequestID string
}

// Query runs a SQL query against the given streams. Caller input is
// validated before any network activity.
func (c *Client) Query(ctx context.Context, streams []string, sql string, opts QueryOptions) (*QueryResult, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	requestID := uuid.NewString()

	plan, err := c.builder.Plan(streams, sql, opts.Start, opts.End, opts.Limit)
	if err != nil {
		return nil, c.rejected(err, requestID)
	}
	return c.search(ctx, plan, requestID)
}

// Correlate joins a primary stream with one or more secondary streams on a
// whitelisted shared field within a time window. It reuses the query
// execution path; errors surfacing from it are re-attributed to this
// operation with the inner operation preserved in the chain.
func (c *Client) Correlate(ctx context.Context, primary string, secondaries []string, field string, window query.Window) (*QueryResult, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	requestID := uuid.NewString()

	plan, err := c.builder.Correlation(primary, secondaries, field, window)
	if err != nil {
		return nil, c.rejected(err, requestID)
	}

	res, err := c.search(ctx, plan, requestID)
	if err != nil {
		typed, _ := oberr.As(err)
		return nil, typed.Rewrap("correlate")
	}
	return res, nil
}

func (c *Client) search(ctx context.Context, plan *query.Plan, requestID string) (*QueryResult, error) {
	var resp *transport.SearchResponse
	err := c.run(ctx, "query", requestID, func(ctx context.Context) error {
		r, err := c.sender.Search(ctx, plan, requestID)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	hits := resp.Hits
	if hits == nil {
		hits = []map[string]any{}
	}
	return &QueryResult{Hits: hits, Total: resp.Total, Took: resp.Took, RequestID: requestID}, nil
}

// IngestResult reports what happened to an Ingest call.
type IngestResult struct {
	Success        bool
	Queued         int
	Flushed        bool
	FlushedRecords int
	RequestID      string
}

// Ingest appends records to a stream. With batching enabled (the default)
// records are queued and flushed on the size/age thresholds; otherwise the
// payload is sent synchronously. Either way the transmission is retried and
// compressed with transparent fallback.
func (c *Client) Ingest(ctx context.Context, stream string, records []map[string]any) (*IngestResult, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	requestID := uuid.NewString()

	if !query.ValidIdentifier(stream) {
		return nil, c.reject("ingest", requestID, "invalid stream name %q", stream)
	}
	if len(records) == 0 {
		return nil, c.reject("ingest", requestID, "no records given")
	}

	if !c.cfg.DisableBatching {
		res, err := c.writer.Add(ctx, stream, records)
		if err != nil {
			typed, _ := oberr.As(err)
			return nil, typed
		}
		return &IngestResult{
			Success:        true,
			Queued:         res.Queued,
			Flushed:        res.Flushed,
			FlushedRecords: res.FlushedRecords,
			RequestID:      requestID,
		}, nil
	}

	payload, err := json.Marshal(records)
	if err != nil {
		return nil, c.reject("ingest", requestID, "records not serializable: %v", err)
	}
	var compressor batch.Compressor = batch.Gzip{}
	if c.cfg.DisableCompression {
		compressor = nil
	}
	body, gzipped := batch.CompressOrRaw(compressor, payload)

	err = c.run(ctx, "ingest", requestID, func(ctx context.Context) error {
		return c.sender.Ingest(ctx, stream, body, gzipped, requestID)
	})
	if err != nil {
		return nil, err
	}
	return &IngestResult{
		Success:        true,
		Queued:         len(records),
		Flushed:        true,
		FlushedRecords: len(records),
		RequestID:      requestID,
	}, nil
}

// Flush forces out all pending batches without closing the client.
func (c *Client) Flush(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}
	return c.writer.FlushAll(ctx)
}

// Health fetches and normalizes the backend health document.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	requestID := uuid.NewString()

	var doc map[string]any
	err := c.run(ctx, "health", requestID, func(ctx context.Context) error {
		d, err := c.sender.Health(ctx, requestID)
		if err != nil {
			return err
		}
		doc = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return normalizeHealth(doc, requestID), nil
}

// Stats fetches backend statistics, optionally scoped to streams, and
// normalizes the mixed-convention field names into one shape.
func (c *Client) Stats(ctx context.Context, streams ...string) (*BackendStats, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	requestID := uuid.NewString()

	for _, s := range streams {
		if !query.ValidIdentifier(s) {
			return nil, c.reject("stats", requestID, "invalid stream name %q", s)
		}
	}

	var doc map[string]any
	err := c.run(ctx, "stats", requestID, func(ctx context.Context) error {
		d, err := c.sender.Stats(ctx, streams, requestID)
		if err != nil {
			return err
		}
		doc = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return normalizeStats(doc, requestID), nil
}

// MaxRetentionDays bounds Cleanup's retention argument.
const MaxRetentionDays = 3650

// Cleanup drops records in stream older than retentionDays days.
func (c *Client) Cleanup(ctx context.Context, stream string, retentionDays int) (*CleanupResult, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	requestID := uuid.NewString()

	if !query.ValidIdentifier(stream) {
		return nil, c.reject("cleanup", requestID, "invalid stream name %q", stream)
	}
	if retentionDays < 1 || retentionDays > MaxRetentionDays {
		return nil, c.reject("cleanup", requestID, "retention days %d outside [1, %d]", retentionDays, MaxRetentionDays)
	}

	var doc map[string]any
	err := c.run(ctx, "cleanup", requestID, func(ctx context.Context) error {
		d, err := c.sender.Cleanup(ctx, stream, retentionDays, requestID)
		if err != nil {
			return err
		}
		doc = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return normalizeCleanup(doc, requestID), nil
}

// Close flushes all pending batches and marks the client closed. Further
// operations return ErrClosed.
func (c *Client) Close(ctx context.Context) error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	return c.writer.FlushAll(ctx)
}

// run executes fn under the retry policy and feeds the metrics sink with
// the final outcome.
func (c *Client) run(ctx context.Context, op, requestID string, fn func(ctx context.Context) error) error {
	start := time.Now()
	err := c.exec.Do(ctx, op, requestID, fn)
	tags := map[string]string{"operation": op}

	if err != nil {
		typed, ok := oberr.As(err)
		if !ok {
			typed = c.classifier.Classify(err, op, requestID)
		}
		c.opts.sink.RecordRequest(false, time.Since(start), typed.HTTPStatus, tags)
		c.opts.sink.RecordError(string(typed.Code), typed.Message, tags)
		return typed
	}
	c.opts.sink.RecordRequest(true, time.Since(start), http.StatusOK, tags)
	return nil
}

// reject builds, counts and reports a caller-side validation error. Zero
// network calls happen on this path.
func (c *Client) reject(op, requestID, format string, args ...any) *oberr.Error {
	e := oberr.Validation(op, requestID, format, args...)
	return c.rejected(e, requestID)
}

// rejected attributes a validation error to this call's request id and
// records it.
func (c *Client) rejected(err error, requestID string) *oberr.Error {
	typed, ok := oberr.As(err)
	if !ok {
		typed = oberr.Validation("", requestID, "%s", err)
	}
	typed = typed.WithRequestID(requestID)
	c.classifier.CountValidation(typed)
	c.opts.sink.RecordError(string(typed.Code), typed.Message,
		map[string]string{"operation": typed.Context.Operation})
	return typed
}
