package sanitize

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	// DefaultLogLines is used when a log query omits lines.
	DefaultLogLines = 100

	// MaxLogLines caps how many log lines a single query may request.
	MaxLogLines = 10000

	// DefaultLogSince is used when a log query omits since.
	DefaultLogSince = "1h"
)

var (
	sincePattern     = regexp.MustCompile(`^\d+[smhd]$`)
	leadingIntPrefix = regexp.MustCompile(`^[+-]?\d+`)
)

// LogQuery is a validated application log request.
type LogQuery struct {
	Lines int
	Since string
}

// ValidateLogOptions coerces and bounds-checks the raw lines and since values of
// a log request. Nil values take the defaults. lines accepts a JSON number or a
// string with a leading integer, truncated toward zero ("10.5" and "10abc" are
// both 10); since must look like "30s", "5m", "2h" or "1d".
func ValidateLogOptions(lines, since any) (LogQuery, error) {
	q := LogQuery{Lines: DefaultLogLines, Since: DefaultLogSince}

	if lines != nil {
		n, err := coerceInt(lines)
		if err != nil {
			return LogQuery{}, fmt.Errorf("%w: lines must be an integer", ErrValidation)
		}
		if n < 1 || n > MaxLogLines {
			return LogQuery{}, fmt.Errorf("%w: lines must be between 1 and %d", ErrValidation, MaxLogLines)
		}
		q.Lines = n
	}

	if since != nil {
		s, ok := since.(string)
		if !ok || !sincePattern.MatchString(s) {
			return LogQuery{}, fmt.Errorf("%w: since must be a duration like 30s, 5m, 2h or 1d", ErrValidation)
		}
		q.Since = s
	}

	return q, nil
}

// coerceInt converts a decoded JSON value to an int, truncating fractions.
// Values too large for an int32 saturate so the caller's bounds check
// rejects them.
func coerceInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return clampInt32(float64(n)), nil
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, fmt.Errorf("not a finite number")
		}
		return clampInt32(math.Trunc(n)), nil
	case json.Number:
		return leadingInt(n.String())
	case string:
		return leadingInt(n)
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}

// leadingInt parses the integer prefix of s, ignoring whatever follows it.
func leadingInt(s string) (int, error) {
	digits := leadingIntPrefix.FindString(strings.TrimSpace(s))
	if digits == "" {
		return 0, fmt.Errorf("no leading integer")
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		if strings.HasPrefix(digits, "-") {
			return math.MinInt32, nil
		}
		return math.MaxInt32, nil
	}
	return clampInt32(float64(n)), nil
}

func clampInt32(f float64) int {
	switch {
	case f > math.MaxInt32:
		return math.MaxInt32
	case f < math.MinInt32:
		return math.MinInt32
	default:
		return int(f)
	}
}
