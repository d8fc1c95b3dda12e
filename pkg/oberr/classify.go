package oberr

import (
	"context"
	"errors"
	"net"
	"net/http"
)

// Classifier turns raw transport failures into typed errors and feeds the
// error counters. A nil stats store disables counting.
type Classifier struct {
	stats *Stats
}

// NewClassifier creates a classifier backed by the given counter store.
func NewClassifier(stats *Stats) *Classifier {
	return &Classifier{stats: stats}
}

// Stats returns the classifier's counter store.
func (c *Classifier) Stats() *Stats { return c.stats }

// Classify maps a transport-level failure (no HTTP response received) to a
// typed error. Already-typed errors pass through unchanged and are not
// counted again.
//
// Deadline and cancellation failures become TIMEOUT_ERROR with a synthesized
// 408 status; everything else without a response is NETWORK_ERROR. Both are
// retryable.
func (c *Classifier) Classify(err error, op, requestID string) *Error {
	if typed, ok := As(err); ok {
		return typed
	}

	// Transport-layer status errors expose their HTTP status; route them
	// through status classification.
	var statusErr interface {
		HTTPStatusCode() int
		ResponseBody() string
	}
	if errors.As(err, &statusErr) {
		return c.ClassifyStatus(statusErr.HTTPStatusCode(), statusErr.ResponseBody(), op, requestID)
	}

	var code Code
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		code = CodeTimeout
	default:
		var nerr net.Error
		if errors.As(err, &nerr) && nerr.Timeout() {
			code = CodeTimeout
		} else {
			code = CodeNetwork
		}
	}

	e := New(code, op, requestID, err.Error())
	e.cause = err
	if code == CodeTimeout {
		e.HTTPStatus = http.StatusRequestTimeout
	}
	c.count(e)
	return e
}

// ClassifyStatus maps an HTTP response status outside 2xx to a typed error:
// 4xx is VALIDATION_ERROR (not retryable), 5xx is SERVER_ERROR (retryable).
func (c *Classifier) ClassifyStatus(status int, body, op, requestID string) *Error {
	code := CodeServer
	if status >= 400 && status < 500 {
		code = CodeValidation
	}
	msg := http.StatusText(status)
	if body != "" {
		msg = body
	}
	e := New(code, op, requestID, msg)
	e.HTTPStatus = status
	c.count(e)
	return e
}

// CountValidation records a caller-side validation error that never reached
// the transport.
func (c *Classifier) CountValidation(e *Error) *Error {
	c.count(e)
	return e
}

func (c *Classifier) count(e *Error) {
	if c.stats == nil {
		return
	}
	c.stats.inc(e.Code, e.Context.Operation)
	if e.Retryable {
		c.stats.IncTransient(e.Context.Operation)
	}
}
