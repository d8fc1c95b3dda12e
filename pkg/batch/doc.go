// Package batch accumulates outbound records per destination stream and
// flushes them in bulk.
//
// Each stream owns one queue. A queue flushes when its serialized size
// crosses the byte threshold or its oldest record outlives the linger
// duration; both checks run on every Add, so no dedicated timer goroutine
// is needed. A hard cap forces a flush before the queue can silently grow
// past it.
//
// Flushing swaps the queue contents into a snapshot under the queue lock
// and performs all compression and network I/O outside it, so concurrent
// Adds never wait on an in-flight request. Compression failures fall back
// to the uncompressed payload; they never fail a flush.
//
// # Usage
//
//	w := batch.NewWriter(submitter, batch.DefaultConfig(),
//	    batch.WithFailureHandler(func(stream string, records []json.RawMessage, err *oberr.Error) {
//	        // batch dropped after exhausted retries
//	    }))
//
//	w.Add(ctx, "web_logs", records)
//	defer w.Close(ctx)
package batch
