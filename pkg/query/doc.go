// Package query builds backend search queries without string-injecting
// untrusted caller content.
//
// Stream and field names are validated as identifiers and checked against a
// per-stream field whitelist before they are substituted into query text.
// Time bounds only admit a small token grammar (relative offsets, RFC3339
// timestamps, epoch microseconds). Literal values never appear in the query
// text; they ride along as bound parameters on the [Plan].
//
// # Usage
//
// Build a correlation query joining streams on a shared field:
//
//	wl := query.NewMapWhitelist(map[string][]string{
//	    "web_logs": {"trace_id", "status"},
//	    "app_logs": {"trace_id", "level"},
//	})
//	b := query.NewBuilder(wl, query.DefaultMaxLimit)
//
//	plan, err := b.Correlation("web_logs", []string{"app_logs"}, "trace_id",
//	    query.Window{Start: "now-1h", End: "now"})
//
// Output is deterministic: identical inputs always render identical query
// text, so plans can be asserted against golden strings in tests.
package query
