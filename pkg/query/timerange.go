package query

import (
	"fmt"
	"regexp"
	"time"
)

// TimestampField is the backend's reserved event-time column.
const TimestampField = "_timestamp"

// relativeToken matches "now" and offsets like "now-15m" or "now-7d".
var relativeToken = regexp.MustCompile(`^now(-[1-9][0-9]*[smhdw])?$`)

// epochToken matches unix epoch timestamps in seconds through microseconds.
var epochToken = regexp.MustCompile(`^[1-9][0-9]{9,15}$`)

// ValidTimeToken reports whether tok conforms to the accepted time grammar:
// a relative offset from now, an epoch timestamp, or an RFC3339 timestamp.
// Anything else is rejected so raw caller text never reaches query output.
func ValidTimeToken(tok string) bool {
	if relativeToken.MatchString(tok) || epochToken.MatchString(tok) {
		return true
	}
	_, err := time.Parse(time.RFC3339, tok)
	return err == nil
}

// TimeRangeFilter renders a SQL clause bounding the timestamp column with
// the given tokens. Both empty yields the empty string; a single provided
// token bounds that end only. Tokens outside the grammar are an error.
func TimeRangeFilter(start, end string) (string, error) {
	if start == "" && end == "" {
		return "", nil
	}
	for _, tok := range []string{start, end} {
		if tok != "" && !ValidTimeToken(tok) {
			return "", fmt.Errorf("invalid time token %q", tok)
		}
	}
	switch {
	case end == "":
		return fmt.Sprintf("%s >= '%s'", TimestampField, start), nil
	case start == "":
		return fmt.Sprintf("%s <= '%s'", TimestampField, end), nil
	default:
		return fmt.Sprintf("%s >= '%s' AND %s <= '%s'", TimestampField, start, TimestampField, end), nil
	}
}
