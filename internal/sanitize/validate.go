// Package sanitize provides validation for every untrusted input that can reach
// the Coolify API: resource identifiers, log queries, webhook payloads, endpoint
// paths and the bearer credential.
//
// All validators are pure and side-effect free. Error messages describe the
// violated rule but never echo the offending input.
package sanitize

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Validation error classes. Callers match them with errors.Is.
var (
	// ErrValidation indicates caller input failed a shape, format or bounds check.
	ErrValidation = errors.New("validation error")

	// ErrConfig indicates an unrecoverable startup configuration problem.
	ErrConfig = errors.New("configuration error")

	// ErrAuthConfig indicates the credential itself is malformed.
	ErrAuthConfig = errors.New("authentication configuration error")
)

// uuidPathChars are characters that must never appear in a resource identifier.
const uuidPathChars = `/\.%`

// canonicalUUIDLen is the length of the 8-4-4-4-12 hex text form.
const canonicalUUIDLen = 36

// coolifyIDPattern matches Coolify's own alphanumeric resource ids.
var coolifyIDPattern = regexp.MustCompile(`^[a-zA-Z0-9]{20,28}$`)

// ValidateUUID checks that id is either a canonical UUID v4 or a Coolify
// alphanumeric id. The identifier is returned unchanged on success.
func ValidateUUID(id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("%w: uuid is required", ErrValidation)
	}

	if strings.ContainsAny(id, uuidPathChars) {
		return "", fmt.Errorf("%w: uuid contains path characters", ErrValidation)
	}

	if isCanonicalUUIDv4(id) || coolifyIDPattern.MatchString(id) {
		return id, nil
	}

	return "", fmt.Errorf("%w: uuid must be a UUID v4 or a 20-28 character alphanumeric id", ErrValidation)
}

// isCanonicalUUIDv4 reports whether id is the hyphenated text form of a
// version 4, RFC 4122 variant UUID. uuid.Parse alone also accepts braces,
// urn prefixes and the undashed form, so the length is pinned first.
func isCanonicalUUIDv4(id string) bool {
	if len(id) != canonicalUUIDLen {
		return false
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return false
	}
	return parsed.Version() == 4 && parsed.Variant() == uuid.RFC4122
}

// ValidateEndpoint checks an API path before it is joined to the base URL.
func ValidateEndpoint(endpoint string) error {
	if endpoint == "" || !strings.HasPrefix(endpoint, "/") {
		return fmt.Errorf("%w: endpoint must be an absolute path", ErrValidation)
	}
	if strings.Contains(endpoint, "..") || strings.Contains(endpoint, "//") {
		return fmt.Errorf("%w: endpoint contains traversal sequence", ErrValidation)
	}
	return nil
}
