package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/logship/pkg/log"
	"github.com/bft-labs/logship/pkg/oberr"
)

// Default queue thresholds.
const (
	DefaultFlushBytes = 1 << 20 // 1MB serialized records per flush
	DefaultLinger     = 5 * time.Second
	DefaultHardFactor = 4 // hard cap = HardFactor * FlushBytes
)

// Submitter delivers one flush payload. Implementations are expected to
// retry transient failures internally and return a typed error once
// exhausted.
type Submitter interface {
	Submit(ctx context.Context, stream string, payload []byte, gzipped bool, requestID string) error
}

// FailureHandler receives a dropped batch after the submitter gave up.
type FailureHandler func(stream string, records []json.RawMessage, err *oberr.Error)

// Config tunes queue thresholds.
type Config struct {
	// FlushBytes flushes a queue once its serialized size reaches it.
	FlushBytes int

	// HardCapBytes forces a flush before a queue may exceed it. Zero
	// derives DefaultHardFactor * FlushBytes.
	HardCapBytes int

	// Linger flushes a queue once its oldest record is this old.
	Linger time.Duration
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		FlushBytes: DefaultFlushBytes,
		Linger:     DefaultLinger,
	}
}

func (c *Config) setDefaults() {
	if c.FlushBytes <= 0 {
		c.FlushBytes = DefaultFlushBytes
	}
	if c.HardCapBytes <= 0 {
		c.HardCapBytes = DefaultHardFactor * c.FlushBytes
	}
	if c.Linger <= 0 {
		c.Linger = DefaultLinger
	}
}

// queue holds pending records for one stream. mu guards only the slice and
// counters; flushMu serializes flushes so batches leave in enqueue order.
type queue struct {
	mu      sync.Mutex
	records []json.RawMessage
	bytes   int
	oldest  time.Time

	flushMu sync.Mutex
}

// swap takes the current contents and resets the live queue, so enqueues
// proceed while the snapshot is in flight.
func (q *queue) swap() ([]json.RawMessage, int, time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	records, size, oldest := q.records, q.bytes, q.oldest
	q.records = nil
	q.bytes = 0
	q.oldest = time.Time{}
	return records, size, oldest
}

// requeue puts an unsent snapshot back at the head of the live queue,
// preserving record order ahead of anything enqueued meanwhile.
func (q *queue) requeue(records []json.RawMessage, size int, oldest time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.records = append(append([]json.RawMessage(nil), records...), q.records...)
	q.bytes += size
	if q.oldest.IsZero() || (!oldest.IsZero() && oldest.Before(q.oldest)) {
		q.oldest = oldest
	}
}

// AddResult reports what one Add call did.
type AddResult struct {
	// Queued is the number of records accepted into the queue.
	Queued int

	// Flushed is true when the call triggered a flush.
	Flushed bool

	// FlushedRecords is the number of records delivered by that flush.
	FlushedRecords int
}

// Writer batches records per stream and flushes them through a Submitter.
type Writer struct {
	cfg        Config
	submit     Submitter
	compressor Compressor
	onFailure  FailureHandler
	logger     log.Logger
	newID      func() string

	mu     sync.Mutex
	queues map[string]*queue
}

// Option configures optional Writer behavior.
type Option func(*Writer)

// WithCompressor sets the payload compressor. nil disables compression.
func WithCompressor(c Compressor) Option {
	return func(w *Writer) { w.compressor = c }
}

// WithFailureHandler registers the callback invoked when a batch is dropped
// after exhausted retries.
func WithFailureHandler(h FailureHandler) Option {
	return func(w *Writer) { w.onFailure = h }
}

// WithLogger sets the writer's logger.
func WithLogger(l log.Logger) Option {
	return func(w *Writer) { w.logger = l }
}

// WithIDGenerator overrides request-id generation. Used in tests.
func WithIDGenerator(fn func() string) Option {
	return func(w *Writer) { w.newID = fn }
}

// NewWriter creates a Writer delivering through submit.
func NewWriter(submit Submitter, cfg Config, opts ...Option) *Writer {
	cfg.setDefaults()
	w := &Writer{
		cfg:        cfg,
		submit:     submit,
		compressor: Gzip{},
		logger:     log.NewNoopLogger(),
		newID:      uuid.NewString,
		queues:     make(map[string]*queue),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Writer) queueFor(stream string) *queue {
	w.mu.Lock()
	defer w.mu.Unlock()
	q, ok := w.queues[stream]
	if !ok {
		q = &queue{}
		w.queues[stream] = q
	}
	return q
}

// Add enqueues records for stream and runs the flush check: the queue is
// flushed when its size crosses the threshold, its oldest record outlived
// the linger duration, or the hard cap would otherwise be exceeded.
//
// A flush failure is returned, but the records from this Add stay pending.
// Only post-retry failures reach the failure handler; a canceled context
// re-queues the snapshot instead of dropping it.
func (w *Writer) Add(ctx context.Context, stream string, records []map[string]any) (AddResult, error) {
	if len(records) == 0 {
		return AddResult{}, nil
	}

	encoded := make([]json.RawMessage, 0, len(records))
	size := 0
	for i, rec := range records {
		raw, err := json.Marshal(rec)
		if err != nil {
			return AddResult{}, oberr.Validation("ingest", "", "record %d not serializable: %v", i, err)
		}
		encoded = append(encoded, raw)
		size += len(raw)
	}

	q := w.queueFor(stream)

	q.mu.Lock()
	// Force out the pending batch rather than letting the queue blow
	// through the hard cap.
	overCap := q.bytes > 0 && q.bytes+size > w.cfg.HardCapBytes
	if !overCap {
		if len(q.records) == 0 {
			q.oldest = time.Now()
		}
		q.records = append(q.records, encoded...)
		q.bytes += size
	}
	due := q.bytes >= w.cfg.FlushBytes ||
		(!q.oldest.IsZero() && time.Since(q.oldest) >= w.cfg.Linger)
	q.mu.Unlock()

	res := AddResult{Queued: len(encoded)}

	if overCap {
		_, flushErr := w.flushQueue(ctx, stream, q)
		q.mu.Lock()
		if len(q.records) == 0 {
			q.oldest = time.Now()
		}
		q.records = append(q.records, encoded...)
		q.bytes += size
		due = flushErr == nil && q.bytes >= w.cfg.FlushBytes
		q.mu.Unlock()
		if flushErr != nil {
			return res, flushErr
		}
	}

	if due {
		n, err := w.flushQueue(ctx, stream, q)
		res.Flushed = err == nil
		res.FlushedRecords = n
		if err != nil {
			return res, err
		}
	}
	return res, nil
}

// Flush forces out whatever is pending for stream. A drained or unknown
// stream is a no-op.
func (w *Writer) Flush(ctx context.Context, stream string) (int, error) {
	w.mu.Lock()
	q, ok := w.queues[stream]
	w.mu.Unlock()
	if !ok {
		return 0, nil
	}
	return w.flushQueue(ctx, stream, q)
}

// FlushAll drains every queue. Used on shutdown.
func (w *Writer) FlushAll(ctx context.Context) error {
	w.mu.Lock()
	streams := make([]string, 0, len(w.queues))
	for s := range w.queues {
		streams = append(streams, s)
	}
	w.mu.Unlock()

	var errs []error
	for _, s := range streams {
		if _, err := w.Flush(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Pending returns the queued record count and byte size for stream.
func (w *Writer) Pending(stream string) (int, int) {
	w.mu.Lock()
	q, ok := w.queues[stream]
	w.mu.Unlock()
	if !ok {
		return 0, 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.records), q.bytes
}

// flushQueue drains q once. The snapshot swap happens under the queue lock;
// serialization, compression and submission do not, so new Adds land in the
// fresh live queue meanwhile. A canceled context aborts only this attempt:
// the snapshot goes back to the head of the live queue for a later flush.
// On a final (post-retry) failure the snapshot is dropped and handed to the
// failure handler; the submitter already exhausted transient-failure
// handling.
func (w *Writer) flushQueue(ctx context.Context, stream string, q *queue) (int, error) {
	q.flushMu.Lock()
	defer q.flushMu.Unlock()

	records, size, oldest := q.swap()
	if len(records) == 0 {
		return 0, nil
	}

	payload := joinRecords(records)
	body, gzipped := CompressOrRaw(w.compressor, payload)
	requestID := w.newID()

	w.logger.Debug("flushing batch",
		log.String("stream", stream),
		log.Int("records", len(records)),
		log.Int("bytes", size),
		log.Bool("gzip", gzipped),
		log.String("request_id", requestID),
	)

	if err := w.submit.Submit(ctx, stream, body, gzipped, requestID); err != nil {
		typed, ok := oberr.As(err)
		if !ok {
			typed = oberr.New(oberr.CodeNetwork, "ingest", requestID, err.Error())
		}
		if ctx.Err() != nil {
			q.requeue(records, size, oldest)
			w.logger.Warn("flush aborted, batch re-queued",
				log.String("stream", stream),
				log.Int("records", len(records)),
				log.String("request_id", requestID),
				log.Err(typed),
			)
			return 0, typed
		}
		w.logger.Error("batch dropped after exhausted retries",
			log.String("stream", stream),
			log.Int("records", len(records)),
			log.String("request_id", requestID),
			log.Err(typed),
		)
		if w.onFailure != nil {
			w.onFailure(stream, records, typed)
		}
		return 0, typed
	}
	return len(records), nil
}

// joinRecords renders the records as one JSON array without re-parsing.
func joinRecords(records []json.RawMessage) []byte {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, r := range records {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(r)
	}
	buf.WriteByte(']')
	return buf.Bytes()
}
