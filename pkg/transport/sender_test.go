package transport

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bft-labs/logship/pkg/query"
)

func testSender(t *testing.T, handler http.HandlerFunc) (*Sender, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	meta := Metadata{
		BaseURL:     ts.URL,
		Org:         "default",
		Credentials: Credentials{Token: "secret"},
	}
	return NewSender(ts.Client(), meta, nil), ts
}

func TestSearch(t *testing.T) {
	s, _ := testSender(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/default/_search" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("X-Request-Id"); got != "req-1" {
			t.Errorf("X-Request-Id = %q", got)
		}

		var body struct {
			Query struct {
				SQL       string `json:"sql"`
				StartTime string `json:"start_time"`
				EndTime   string `json:"end_time"`
				Size      int    `json:"size"`
			} `json:"query"`
			Streams []string `json:"streams"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.Query.SQL != "SELECT * FROM logs" || body.Query.Size != 50 {
			t.Errorf("query = %+v", body.Query)
		}
		if body.Query.StartTime != "now-1h" || body.Query.EndTime != "now" {
			t.Errorf("window = %s..%s", body.Query.StartTime, body.Query.EndTime)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"hits":  []map[string]any{{"msg": "a"}, {"msg": "b"}},
			"total": 2,
			"took":  7,
		})
	})

	plan := &query.Plan{
		Streams: []string{"logs"},
		SQL:     "SELECT * FROM logs",
		Start:   "now-1h",
		End:     "now",
		Limit:   50,
	}
	resp, err := s.Search(context.Background(), plan, "req-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Hits) != 2 || resp.Total != 2 || resp.Took != 7 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestIngestGzipped(t *testing.T) {
	var gotBody []byte
	s, _ := testSender(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/default/logs/_json" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Content-Encoding") != "gzip" {
			t.Errorf("Content-Encoding = %q", r.Header.Get("Content-Encoding"))
		}
		zr, err := gzip.NewReader(r.Body)
		if err != nil {
			t.Fatalf("gzip reader: %v", err)
		}
		gotBody, _ = io.ReadAll(zr)
		w.WriteHeader(http.StatusOK)
	})

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	zw.Write([]byte(`[{"a":1}]`))
	zw.Close()

	if err := s.Ingest(context.Background(), "logs", buf.Bytes(), true, "req-2"); err != nil {
		t.Fatal(err)
	}
	if string(gotBody) != `[{"a":1}]` {
		t.Errorf("body = %s", gotBody)
	}
}

func TestStatusError(t *testing.T) {
	s, _ := testSender(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "stream quota exceeded", http.StatusTooManyRequests)
	})

	err := s.Ingest(context.Background(), "logs", []byte(`[]`), false, "req-3")
	if err == nil {
		t.Fatal("expected error")
	}
	se, ok := err.(*StatusError)
	if !ok {
		t.Fatalf("err %T, want *StatusError", err)
	}
	if se.Status != http.StatusTooManyRequests {
		t.Errorf("Status = %d", se.Status)
	}
	if se.Body == "" {
		t.Error("Body empty, want server message")
	}
}

func TestSearchLargeResponseNotTruncated(t *testing.T) {
	big := strings.Repeat("x", 2<<20)
	s, _ := testSender(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"hits":  []map[string]any{{"msg": big}},
			"total": 1,
		})
	})

	plan := &query.Plan{Streams: []string{"logs"}, SQL: "SELECT 1", Limit: 1}
	resp, err := s.Search(context.Background(), plan, "req-7")
	if err != nil {
		t.Fatalf("Search = %v, want a decoded multi-megabyte response", err)
	}
	if len(resp.Hits) != 1 || resp.Hits[0]["msg"] != big {
		t.Error("large hit body mangled")
	}
}

func TestBasicAuth(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "root" || pass != "hunter2" {
			t.Errorf("basic auth = %q/%q ok=%v", user, pass, ok)
		}
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer ts.Close()

	meta := Metadata{
		BaseURL:     ts.URL,
		Org:         "default",
		Credentials: Credentials{Username: "root", Password: "hunter2"},
	}
	s := NewSender(ts.Client(), meta, nil)
	doc, err := s.Health(context.Background(), "req-4")
	if err != nil {
		t.Fatal(err)
	}
	if doc["status"] != "ok" {
		t.Errorf("doc = %v", doc)
	}
}

func TestStatsQueryString(t *testing.T) {
	s, _ := testSender(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/default/_stats" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("streams"); got != "a,b" {
			t.Errorf("streams = %q", got)
		}
		w.Write([]byte(`{"total_records": 10}`))
	})

	doc, err := s.Stats(context.Background(), []string{"a", "b"}, "req-5")
	if err != nil {
		t.Fatal(err)
	}
	if doc["total_records"].(float64) != 10 {
		t.Errorf("doc = %v", doc)
	}
}

func TestCleanupEmptyBody(t *testing.T) {
	s, _ := testSender(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %s", r.Method)
		}
		if r.URL.Path != "/api/default/old_logs/_retention" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("days"); got != "30" {
			t.Errorf("days = %q", got)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	doc, err := s.Cleanup(context.Background(), "old_logs", 30, "req-6")
	if err != nil {
		t.Fatal(err)
	}
	if doc == nil {
		t.Error("doc = nil, want empty map")
	}
}
