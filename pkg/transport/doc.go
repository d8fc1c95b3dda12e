// Package transport speaks the backend's HTTP API.
//
// It owns request construction (JSON bodies, optional gzip content encoding,
// bearer or basic authorization) and response decoding. It performs no
// retries and no error classification; failed calls return either the raw
// transport error or a [*StatusError] carrying the HTTP status, and the
// layers above turn those into typed errors.
//
// # Custom Clients
//
// The [HTTPClient] interface abstracts request execution; the standard
// *http.Client satisfies it, and tests substitute recording fakes.
package transport
