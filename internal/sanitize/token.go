package sanitize

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	// MinTokenLength is the shortest bearer token accepted.
	MinTokenLength = 20

	// MaxTokenLength is the longest bearer token accepted.
	MaxTokenLength = 500
)

// tokenForbiddenChars are markup and control characters that never appear in a
// Coolify API token. Their presence usually means the wrong file was read.
const tokenForbiddenChars = "<>\"'&\r\n\t"

// ValidateToken checks the shape of a bearer token.
func ValidateToken(token string) error {
	if len(token) < MinTokenLength || len(token) > MaxTokenLength {
		return fmt.Errorf("%w: token length must be between %d and %d characters",
			ErrAuthConfig, MinTokenLength, MaxTokenLength)
	}
	if strings.ContainsAny(token, tokenForbiddenChars) {
		return fmt.Errorf("%w: token contains invalid characters", ErrAuthConfig)
	}
	return nil
}

// ValidateTokenPath resolves path to an absolute location and checks that it
// lies inside one of allowedDirs. Symlinks are followed when the target exists
// so a link cannot point outside the allow-list.
//
// Returns the resolved absolute path.
func ValidateTokenPath(path string, allowedDirs []string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: token path is empty", ErrConfig)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: cannot resolve token path", ErrConfig)
	}

	resolved, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		// Missing files are reported by the reader; validate the lexical path.
		resolved = absPath
	}

	for _, dir := range allowedDirs {
		if isWithin(resolved, dir) {
			return resolved, nil
		}
	}

	return "", fmt.Errorf("%w: token path is outside the allowed directories", ErrConfig)
}

// isWithin reports whether path is dir itself or nested below it.
func isWithin(path, dir string) bool {
	if dir == "" {
		return false
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	if resolvedDir, err := filepath.EvalSymlinks(absDir); err == nil {
		absDir = resolvedDir
	}

	rel, err := filepath.Rel(absDir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
