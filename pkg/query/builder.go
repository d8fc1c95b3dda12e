package query

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bft-labs/logship/pkg/oberr"
)

// Limit defaults. Caller-supplied limits are clamped into [1, maxLimit].
const (
	DefaultLimit    = 100
	DefaultMaxLimit = 10000
)

// identifier is the only shape a stream or field name may take. Names are
// substituted into query text as identifiers, never as string literals, and
// only after matching this pattern.
var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)

// ValidIdentifier reports whether name is a safe stream or field identifier.
func ValidIdentifier(name string) bool {
	return identifier.MatchString(name)
}

// Window bounds a correlation query in time using time-grammar tokens.
type Window struct {
	Start string
	End   string
}

// Plan is a validated query ready for the transport layer. SQL contains only
// whitelisted identifiers and grammar-checked time tokens; any literal
// values are carried in Params for server-side binding.
type Plan struct {
	Streams []string
	SQL     string
	Params  []any
	Start   string
	End     string
	Limit   int
}

// Builder composes query plans against a field whitelist.
type Builder struct {
	whitelist FieldWhitelist
	maxLimit  int
}

// NewBuilder creates a Builder. maxLimit caps result limits; zero or
// negative means DefaultMaxLimit.
func NewBuilder(wl FieldWhitelist, maxLimit int) *Builder {
	if maxLimit <= 0 {
		maxLimit = DefaultMaxLimit
	}
	if wl == nil {
		wl = AllowAll{}
	}
	return &Builder{whitelist: wl, maxLimit: maxLimit}
}

// ClampLimit folds a caller-supplied limit into [1, maxLimit]. Zero means
// "use the default"; negatives and overshoots are invalid.
func (b *Builder) ClampLimit(limit int) (int, error) {
	switch {
	case limit == 0:
		return DefaultLimit, nil
	case limit < 0:
		return 0, fmt.Errorf("limit %d is negative", limit)
	case limit > b.maxLimit:
		return 0, fmt.Errorf("limit %d exceeds maximum %d", limit, b.maxLimit)
	default:
		return limit, nil
	}
}

// Plan validates a caller-written query against the given streams and time
// bounds. The SQL text itself is opaque to the client; streams, bounds and
// limit are the injectable surface and are checked here.
func (b *Builder) Plan(streams []string, sql, start, end string, limit int) (*Plan, error) {
	const op = "query"

	if len(streams) == 0 {
		return nil, oberr.Validation(op, "", "no streams given")
	}
	for _, s := range streams {
		if !ValidIdentifier(s) {
			return nil, oberr.Validation(op, "", "invalid stream name %q", s)
		}
	}
	if strings.TrimSpace(sql) == "" {
		return nil, oberr.Validation(op, "", "empty query text")
	}
	if _, err := TimeRangeFilter(start, end); err != nil {
		return nil, oberr.Validation(op, "", "%s", err)
	}
	clamped, err := b.ClampLimit(limit)
	if err != nil {
		return nil, oberr.Validation(op, "", "%s", err)
	}

	return &Plan{
		Streams: append([]string(nil), streams...),
		SQL:     sql,
		Start:   start,
		End:     end,
		Limit:   clamped,
	}, nil
}

// Correlation builds a join of primary with one or more secondary streams on
// a shared field inside a time window. The field must be whitelisted for
// every involved stream; all validation happens before any network activity.
func (b *Builder) Correlation(primary string, secondaries []string, field string, window Window) (*Plan, error) {
	const op = "correlate"

	if primary == "" || !ValidIdentifier(primary) {
		return nil, oberr.Validation(op, "", "invalid primary stream %q", primary)
	}
	if len(secondaries) == 0 {
		return nil, oberr.Validation(op, "", "no secondary streams given")
	}
	for _, s := range secondaries {
		if !ValidIdentifier(s) {
			return nil, oberr.Validation(op, "", "invalid secondary stream %q", s)
		}
	}
	if !ValidIdentifier(field) {
		return nil, oberr.Validation(op, "", "invalid correlation field %q", field)
	}
	for _, s := range append([]string{primary}, secondaries...) {
		if !b.whitelist.IsFieldAllowed(s, field) {
			return nil, oberr.Validation(op, "", "field %q not allowed on stream %q", field, s)
		}
	}
	for _, tok := range []string{window.Start, window.End} {
		if tok != "" && !ValidTimeToken(tok) {
			return nil, oberr.Validation(op, "", "invalid time token %q", tok)
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `SELECT * FROM "%s" AS p`, primary)
	for i, s := range secondaries {
		fmt.Fprintf(&sb, ` JOIN "%s" AS s%d ON p."%s" = s%d."%s"`, s, i, field, i, field)
	}
	if clause, _ := TimeRangeFilter(window.Start, window.End); clause != "" {
		fmt.Fprintf(&sb, " WHERE %s", strings.ReplaceAll(clause, TimestampField, "p."+TimestampField))
	}
	fmt.Fprintf(&sb, " ORDER BY p.%s DESC", TimestampField)

	return &Plan{
		Streams: append([]string{primary}, secondaries...),
		SQL:     sb.String(),
		Start:   window.Start,
		End:     window.End,
		Limit:   DefaultLimit,
	}, nil
}
