package oberr

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Code classifies a backend operation failure.
type Code string

// Failure codes. Retryability follows the code: network, timeout and server
// failures are transient; validation failures are permanent.
const (
	CodeNetwork    Code = "NETWORK_ERROR"
	CodeTimeout    Code = "TIMEOUT_ERROR"
	CodeValidation Code = "VALIDATION_ERROR"
	CodeServer     Code = "SERVER_ERROR"
)

// DefaultRetryable returns the default retryability verdict for a code.
func DefaultRetryable(c Code) bool {
	return c != CodeValidation
}

// Context identifies the logical operation an error belongs to. When an
// error crosses an operation boundary (an outer operation rethrows an inner
// one), OriginalOperation and OperationChain record the full path.
type Context struct {
	Operation         string   `json:"operation"`
	OriginalOperation string   `json:"original_operation,omitempty"`
	OperationChain    []string `json:"operation_chain,omitempty"`
}

// Error is a classified backend operation failure. Instances are immutable
// once constructed; Rewrap builds a new instance rather than mutating.
type Error struct {
	Code       Code
	HTTPStatus int // 0 when no response was received
	Message    string
	RequestID  string
	Retryable  bool
	Context    Context

	cause error
}

// New builds a typed error for the given operation. The request id is
// synthesized when empty so every Error carries one.
func New(code Code, op, requestID, msg string) *Error {
	if requestID == "" {
		requestID = uuid.NewString()
	}
	return &Error{
		Code:      code,
		Message:   msg,
		RequestID: requestID,
		Retryable: DefaultRetryable(code),
		Context:   Context{Operation: op},
	}
}

// Validation builds a caller-input validation error.
func Validation(op, requestID, format string, args ...any) *Error {
	e := New(CodeValidation, op, requestID, fmt.Sprintf(format, args...))
	e.HTTPStatus = 400
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.HTTPStatus > 0 {
		return fmt.Sprintf("%s: %s (op=%s status=%d request_id=%s)",
			e.Code, e.Message, e.Context.Operation, e.HTTPStatus, e.RequestID)
	}
	return fmt.Sprintf("%s: %s (op=%s request_id=%s)",
		e.Code, e.Message, e.Context.Operation, e.RequestID)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error { return e.cause }

// Rewrap returns a copy attributed to the outer operation op. The inner
// operation is preserved as OriginalOperation and appended to the chain, so
// a caller can see [inner, ..., outer] in order. All other fields carry over.
func (e *Error) Rewrap(op string) *Error {
	out := *e
	inner := e.Context.Operation
	if out.Context.OriginalOperation == "" {
		out.Context.OriginalOperation = inner
	}
	chain := e.Context.OperationChain
	if len(chain) == 0 {
		chain = []string{inner}
	}
	out.Context.OperationChain = append(append([]string(nil), chain...), op)
	out.Context.Operation = op
	return &out
}

// WithRequestID returns a copy carrying the given request id. Used when a
// caller attributes an error raised below it to its own request.
func (e *Error) WithRequestID(id string) *Error {
	if id == "" || id == e.RequestID {
		return e
	}
	out := *e
	out.RequestID = id
	return &out
}

// As extracts a typed error from an error chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
