package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/fyrsmithlabs/coolify-mcp/internal/sanitize"
)

// maxCredentialFileSize caps how much of the token file is read. Tokens are
// at most sanitize.MaxTokenLength bytes; the slack allows a trailing newline.
const maxCredentialFileSize = 4 * 1024

// DefaultTokenDirs returns the directories a token file may live in.
func DefaultTokenDirs() []string {
	return []string{
		SystemConfigDir,
		"/run/secrets",
		UserConfigDir(),
	}
}

// DefaultTokenPath returns ~/.config/coolify-mcp/token.
func DefaultTokenPath() string {
	return filepath.Join(UserConfigDir(), "token")
}

// LoadCredential reads the bearer token from path.
//
// The path must resolve inside one of allowedDirs, the file must be a regular
// file that is not readable by group or others, and the trimmed contents must
// pass sanitize.ValidateToken. Errors never include the file contents.
func LoadCredential(path string, allowedDirs []string) (Secret, error) {
	resolved, err := sanitize.ValidateTokenPath(path, allowedDirs)
	if err != nil {
		return "", err
	}

	f, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: token file not found", sanitize.ErrConfig)
		}
		return "", fmt.Errorf("%w: token file cannot be opened", sanitize.ErrConfig)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("%w: token file cannot be inspected", sanitize.ErrConfig)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: token path is not a regular file", sanitize.ErrConfig)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm()&0o077 != 0 {
		return "", fmt.Errorf("%w: token file permissions too open: %v (expected 0600 or 0400)",
			sanitize.ErrConfig, info.Mode().Perm())
	}
	if info.Size() > maxCredentialFileSize {
		return "", fmt.Errorf("%w: token file too large", sanitize.ErrConfig)
	}

	raw, err := io.ReadAll(io.LimitReader(f, maxCredentialFileSize+1))
	if err != nil {
		return "", fmt.Errorf("%w: token file cannot be read", sanitize.ErrConfig)
	}

	token := strings.TrimSpace(string(raw))
	if err := sanitize.ValidateToken(token); err != nil {
		return "", err
	}
	return Secret(token), nil
}
