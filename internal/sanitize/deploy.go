package sanitize

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValidateForceRebuild coerces the optional force_rebuild argument of a deploy
// request. Absent means false; numbers are true when non-zero and strings are
// parsed with strconv.ParseBool.
func ValidateForceRebuild(v any) (bool, error) {
	switch b := v.(type) {
	case nil:
		return false, nil
	case bool:
		return b, nil
	case float64:
		if math.IsNaN(b) {
			return false, fmt.Errorf("%w: force_rebuild must be a boolean", ErrValidation)
		}
		return b != 0, nil
	case int:
		return b != 0, nil
	case json.Number:
		f, err := b.Float64()
		if err != nil {
			return false, fmt.Errorf("%w: force_rebuild must be a boolean", ErrValidation)
		}
		return f != 0, nil
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return false, fmt.Errorf("%w: force_rebuild must be a boolean", ErrValidation)
		}
		return parsed, nil
	default:
		return false, fmt.Errorf("%w: force_rebuild must be a boolean", ErrValidation)
	}
}
