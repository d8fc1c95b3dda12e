package query

import (
	"reflect"
	"testing"

	"github.com/bft-labs/logship/pkg/oberr"
)

func testWhitelist() MapWhitelist {
	return NewMapWhitelist(map[string][]string{
		"web_logs": {"trace_id", "status", "host"},
		"app_logs": {"trace_id", "level"},
		"db_logs":  {"trace_id", "query_time"},
	})
}

func wantValidation(t *testing.T, err error) *oberr.Error {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	e, ok := oberr.As(err)
	if !ok {
		t.Fatalf("error %v is not typed", err)
	}
	if e.Code != oberr.CodeValidation {
		t.Fatalf("Code = %v, want VALIDATION_ERROR", e.Code)
	}
	if e.RequestID == "" {
		t.Fatal("validation error missing request id")
	}
	return e
}

func TestCorrelationGolden(t *testing.T) {
	b := NewBuilder(testWhitelist(), 0)

	plan, err := b.Correlation("web_logs", []string{"app_logs", "db_logs"}, "trace_id",
		Window{Start: "now-1h", End: "now"})
	if err != nil {
		t.Fatal(err)
	}

	const want = `SELECT * FROM "web_logs" AS p` +
		` JOIN "app_logs" AS s0 ON p."trace_id" = s0."trace_id"` +
		` JOIN "db_logs" AS s1 ON p."trace_id" = s1."trace_id"` +
		` WHERE p._timestamp >= 'now-1h' AND p._timestamp <= 'now'` +
		` ORDER BY p._timestamp DESC`
	if plan.SQL != want {
		t.Errorf("SQL =\n%s\nwant\n%s", plan.SQL, want)
	}
	if want := []string{"web_logs", "app_logs", "db_logs"}; !reflect.DeepEqual(plan.Streams, want) {
		t.Errorf("Streams = %v, want %v", plan.Streams, want)
	}

	// Determinism: same inputs, same text.
	again, err := b.Correlation("web_logs", []string{"app_logs", "db_logs"}, "trace_id",
		Window{Start: "now-1h", End: "now"})
	if err != nil {
		t.Fatal(err)
	}
	if again.SQL != plan.SQL {
		t.Errorf("non-deterministic SQL:\n%s\nvs\n%s", again.SQL, plan.SQL)
	}
}

func TestCorrelationNoWindow(t *testing.T) {
	b := NewBuilder(testWhitelist(), 0)
	plan, err := b.Correlation("web_logs", []string{"app_logs"}, "trace_id", Window{})
	if err != nil {
		t.Fatal(err)
	}
	const want = `SELECT * FROM "web_logs" AS p` +
		` JOIN "app_logs" AS s0 ON p."trace_id" = s0."trace_id"` +
		` ORDER BY p._timestamp DESC`
	if plan.SQL != want {
		t.Errorf("SQL = %s, want %s", plan.SQL, want)
	}
}

func TestCorrelationValidation(t *testing.T) {
	b := NewBuilder(testWhitelist(), 0)

	tests := []struct {
		name        string
		primary     string
		secondaries []string
		field       string
		window      Window
	}{
		{"empty primary", "", []string{"app_logs"}, "trace_id", Window{}},
		{"no secondaries", "web_logs", nil, "trace_id", Window{}},
		{"field not whitelisted anywhere", "web_logs", []string{"app_logs"}, "password", Window{}},
		{"field missing on secondary", "web_logs", []string{"app_logs"}, "status", Window{}},
		{"unknown stream", "web_logs", []string{"ghost"}, "trace_id", Window{}},
		{"injected field", "web_logs", []string{"app_logs"}, `trace_id"; DROP TABLE x; --`, Window{}},
		{"injected stream", `web_logs" AS x --`, []string{"app_logs"}, "trace_id", Window{}},
		{"bad window", "web_logs", []string{"app_logs"}, "trace_id", Window{Start: "whenever"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Correlation(tt.primary, tt.secondaries, tt.field, tt.window)
			wantValidation(t, err)
		})
	}
}

func TestPlanValidation(t *testing.T) {
	b := NewBuilder(nil, 1000)

	if _, err := b.Plan(nil, "SELECT 1", "", "", 0); err == nil {
		t.Error("empty stream list accepted")
	}
	if _, err := b.Plan([]string{"logs"}, "   ", "", "", 0); err == nil {
		t.Error("blank query text accepted")
	}
	if _, err := b.Plan([]string{"logs"}, "SELECT 1", "", "", -5); err == nil {
		t.Error("negative limit accepted")
	}
	if _, err := b.Plan([]string{"logs"}, "SELECT 1", "", "", 5000); err == nil {
		t.Error("limit above max accepted")
	}
	if _, err := b.Plan([]string{`logs"; --`}, "SELECT 1", "", "", 0); err == nil {
		t.Error("injected stream name accepted")
	}

	plan, err := b.Plan([]string{"logs"}, "SELECT 1", "now-1h", "now", 0)
	if err != nil {
		t.Fatal(err)
	}
	if plan.Limit != DefaultLimit {
		t.Errorf("Limit = %d, want default %d", plan.Limit, DefaultLimit)
	}
}

func TestClampLimit(t *testing.T) {
	b := NewBuilder(nil, 500)

	tests := []struct {
		in      int
		want    int
		wantErr bool
	}{
		{0, DefaultLimit, false},
		{1, 1, false},
		{500, 500, false},
		{501, 0, true},
		{-1, 0, true},
	}
	for _, tt := range tests {
		got, err := b.ClampLimit(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ClampLimit(%d) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ClampLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestMapWhitelist(t *testing.T) {
	wl := testWhitelist()
	if !wl.IsFieldAllowed("web_logs", "status") {
		t.Error("status should be allowed on web_logs")
	}
	if wl.IsFieldAllowed("web_logs", "level") {
		t.Error("level should not be allowed on web_logs")
	}
	if wl.IsFieldAllowed("nope", "trace_id") {
		t.Error("unknown stream should deny everything")
	}
}
