package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/bft-labs/logship/pkg/log"
	"github.com/bft-labs/logship/pkg/oberr"
)

// Executor runs operations under a retry policy, classifying every failure
// through the shared classifier.
type Executor struct {
	classifier *oberr.Classifier
	policy     Policy
	logger     log.Logger
}

// New creates an Executor. A nil logger is replaced with a noop one.
func New(classifier *oberr.Classifier, policy Policy, logger log.Logger) *Executor {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Executor{classifier: classifier, policy: policy, logger: logger}
}

// Policy returns the executor's policy.
func (e *Executor) Policy() Policy { return e.policy }

// Do invokes fn until it succeeds, fails permanently, or the attempt budget
// is exhausted. The returned error is always a typed *oberr.Error. Backoff
// waits are interrupted by ctx; an expired context surfaces as a timeout
// error immediately instead of burning remaining attempts.
func (e *Executor) Do(ctx context.Context, op, requestID string, fn func(ctx context.Context) error) error {
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			if s := e.classifier.Stats(); s != nil {
				s.ResetTransient(op)
			}
			return nil
		}

		typed := e.classifier.Classify(err, op, requestID)
		if !typed.Retryable || attempt == e.policy.MaxAttempts {
			return typed
		}

		delay := e.policy.delay(attempt)
		e.logger.Warn("retrying after transient failure",
			log.String("operation", op),
			log.String("request_id", requestID),
			log.Int("attempt", attempt),
			log.Duration("delay", delay),
			log.String("code", string(typed.Code)),
		)

		if err := e.wait(ctx, delay); err != nil {
			return e.classifier.Classify(fmt.Errorf("aborted while waiting to retry: %w", err), op, requestID)
		}
	}
}

// wait sleeps for d or until ctx is done, whichever comes first. No locks
// are held while waiting.
func (e *Executor) wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// DoValue is Do for operations that produce a result.
func DoValue[T any](ctx context.Context, e *Executor, op, requestID string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := e.Do(ctx, op, requestID, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
