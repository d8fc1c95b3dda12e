package transport

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/bft-labs/logship/pkg/log"
	"github.com/bft-labs/logship/pkg/query"
)

// HTTPClient abstracts HTTP request execution for testing and custom
// transports. The standard *http.Client satisfies this interface.
type HTTPClient interface {
	// Do sends an HTTP request and returns an HTTP response.
	Do(req *http.Request) (*http.Response, error)
}

// Credentials authenticate requests. A non-empty Token wins; otherwise
// Username/Password are sent as basic auth.
type Credentials struct {
	Token    string
	Username string
	Password string
}

func (c Credentials) header() string {
	if c.Token != "" {
		return "Bearer " + c.Token
	}
	if c.Username != "" {
		raw := c.Username + ":" + c.Password
		return "Basic " + base64.StdEncoding.EncodeToString([]byte(raw))
	}
	return ""
}

// Metadata provides connection context for every request.
type Metadata struct {
	// BaseURL is the backend root, e.g. "https://obs.example.com".
	BaseURL string

	// Org is the organization/namespace segment of API paths.
	Org string

	// Credentials authenticate each request.
	Credentials Credentials
}

// StatusError is a non-2xx backend response. The classifier maps it onto
// the error taxonomy by status code.
type StatusError struct {
	Status int
	Body   string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Body)
}

// HTTPStatusCode returns the response status.
func (e *StatusError) HTTPStatusCode() int { return e.Status }

// ResponseBody returns the (truncated) response body text.
func (e *StatusError) ResponseBody() string { return e.Body }

// SearchResponse is the backend's query result shape.
type SearchResponse struct {
	Hits  []map[string]any `json:"hits"`
	Total int64            `json:"total"`
	Took  int64            `json:"took"`
}

// Sender executes backend API calls over HTTP.
type Sender struct {
	client HTTPClient
	meta   Metadata
	logger log.Logger
}

// NewSender creates a Sender. A nil logger is replaced with a noop one.
func NewSender(client HTTPClient, meta Metadata, logger log.Logger) *Sender {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Sender{client: client, meta: meta, logger: logger}
}

// searchBody is the wire shape of a search request.
type searchBody struct {
	Query   searchQuery `json:"query"`
	Streams []string    `json:"streams,omitempty"`
}

type searchQuery struct {
	SQL       string `json:"sql"`
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`
	Size      int    `json:"size"`
	Params    []any  `json:"params,omitempty"`
}

// Search runs a validated query plan and decodes the hit set.
func (s *Sender) Search(ctx context.Context, plan *query.Plan, requestID string) (*SearchResponse, error) {
	body, err := json.Marshal(searchBody{
		Query: searchQuery{
			SQL:       plan.SQL,
			StartTime: plan.Start,
			EndTime:   plan.End,
			Size:      plan.Limit,
			Params:    plan.Params,
		},
		Streams: plan.Streams,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	raw, err := s.do(ctx, http.MethodPost, s.orgPath("_search"), body, false, requestID)
	if err != nil {
		return nil, err
	}
	var out SearchResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return &out, nil
}

// Ingest appends a serialized record payload to a stream. Set gzipped when
// the payload is already gzip-compressed.
func (s *Sender) Ingest(ctx context.Context, stream string, payload []byte, gzipped bool, requestID string) error {
	_, err := s.do(ctx, http.MethodPost, s.orgPath(stream, "_json"), payload, gzipped, requestID)
	return err
}

// Health fetches the backend health document.
func (s *Sender) Health(ctx context.Context, requestID string) (map[string]any, error) {
	raw, err := s.do(ctx, http.MethodGet, "/healthz", nil, false, requestID)
	if err != nil {
		return nil, err
	}
	return decodeDoc(raw, "health")
}

// Stats fetches backend statistics, optionally scoped to streams.
func (s *Sender) Stats(ctx context.Context, streams []string, requestID string) (map[string]any, error) {
	path := s.orgPath("_stats")
	if len(streams) > 0 {
		path += "?streams=" + url.QueryEscape(strings.Join(streams, ","))
	}
	raw, err := s.do(ctx, http.MethodGet, path, nil, false, requestID)
	if err != nil {
		return nil, err
	}
	return decodeDoc(raw, "stats")
}

// Cleanup asks the backend to drop records in stream older than the
// retention window.
func (s *Sender) Cleanup(ctx context.Context, stream string, retentionDays int, requestID string) (map[string]any, error) {
	path := s.orgPath(stream, "_retention") + "?days=" + strconv.Itoa(retentionDays)
	raw, err := s.do(ctx, http.MethodDelete, path, nil, false, requestID)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, nil
	}
	return decodeDoc(raw, "cleanup")
}

func (s *Sender) orgPath(parts ...string) string {
	return "/api/" + s.meta.Org + "/" + strings.Join(parts, "/")
}

// do builds and executes one request. Non-2xx responses come back as a
// *StatusError with a truncated body; transport failures are returned raw
// for the classifier.
func (s *Sender) do(ctx context.Context, method, path string, body []byte, gzipped bool, requestID string) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.meta.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if gzipped {
		req.Header.Set("Content-Encoding", "gzip")
	}
	if auth := s.meta.Credentials.header(); auth != "" {
		req.Header.Set("Authorization", auth)
	}
	req.Header.Set("X-Request-Id", requestID)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		// Only the leading part of an error body is kept for the message.
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		s.logger.Debug("backend rejected request",
			log.String("path", path),
			log.Int("status", resp.StatusCode),
			log.String("request_id", requestID),
		)
		return nil, &StatusError{Status: resp.StatusCode, Body: truncate(raw, 512)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return raw, nil
}

func decodeDoc(raw []byte, what string) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", what, err)
	}
	return doc, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
