// Package retry executes remote operations under a bounded exponential
// backoff policy.
//
// The executor consults the error classifier's retryability verdict after
// every failed attempt: permanent failures surface immediately, transient
// ones are retried until the policy's attempt budget runs out. Backoff
// waits respect the caller's context, so a deadline aborts the wait instead
// of retrying past it.
//
// # Usage
//
//	exec := retry.New(classifier, retry.DefaultPolicy(), logger)
//
//	err := exec.Do(ctx, "ingest", reqID, func(ctx context.Context) error {
//	    return transport.Send(ctx, payload)
//	})
//
// Attempts for one logical call are strictly sequential; the executor never
// fires concurrent attempts.
package retry
