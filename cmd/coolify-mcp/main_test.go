package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "3|abcdefghijklmnopqrstuvwxyz0123456789"

// setupEnv points HOME at a temp dir, clears inherited settings and writes a
// token file. It returns the token path.
func setupEnv(t *testing.T, token string) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{
		"COOLIFY_URL", "COOLIFY_TOKEN_PATH", "COOLIFY_TIMEOUT", "PLATFORM_IP",
		"COOLIFY_RATE_LIMIT", "COOLIFY_RATE_BURST",
		"NODE_ENV", "LOG_LEVEL", "LOG_FORMAT", "SCRUB_ENABLED",
		"TELEMETRY_ENABLED", "TELEMETRY_ENDPOINT", "TELEMETRY_PROTOCOL", "TELEMETRY_INSECURE",
		"TELEMETRY_SAMPLE_RATE", "TELEMETRY_METRICS", "TELEMETRY_EXPORT_INTERVAL",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	t.Setenv("LOG_LEVEL", "error")

	dir := filepath.Join(home, ".config", "coolify-mcp")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	path := filepath.Join(dir, "token")
	require.NoError(t, os.WriteFile(path, []byte(token+"\n"), 0o600))
	t.Setenv("COOLIFY_TOKEN_PATH", path)
	return path
}

func execute(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(strings.NewReader(stdin), &out, &errOut)
	cmd.SetArgs(args)
	err = cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestToolsCommand(t *testing.T) {
	stdout, _, err := execute(t, "", "tools")
	require.NoError(t, err)

	var catalog struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &catalog))
	require.Len(t, catalog.Tools, 11)
	assert.Equal(t, "coolify_list_applications", catalog.Tools[0].Name)
	assert.Equal(t, "coolify_get_server_info", catalog.Tools[10].Name)
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Version:    dev")
}

func TestServe_LineTransport(t *testing.T) {
	auth := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case auth <- r.Header.Get("Authorization"):
		default:
		}
		_, _ = w.Write([]byte(`[{"uuid":"a"},{"uuid":"b"}]`))
	}))
	defer srv.Close()

	setupEnv(t, testToken)
	t.Setenv("COOLIFY_URL", srv.URL)

	input := `{"method":"tools/list","params":{}}` + "\n" +
		`{"method":"tools/call","params":{"name":"coolify_list_applications","arguments":{}}}` + "\n"

	stdout, _, err := execute(t, input, "serve")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"tools"`)

	var res struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &res))
	require.Len(t, res.Content, 1)
	assert.JSONEq(t, `{"success":true,"count":2,"applications":[{"uuid":"a"},{"uuid":"b"}]}`, res.Content[0].Text)
	assert.Equal(t, "Bearer "+testToken, <-auth)
}

func TestServe_DefaultCommandIsServe(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	setupEnv(t, testToken)
	t.Setenv("COOLIFY_URL", srv.URL)

	stdout, _, err := execute(t, `{"method":"tools/list"}`+"\n", "--transport", "line")
	require.NoError(t, err)
	assert.Contains(t, stdout, "coolify_create_webhook")
}

func TestServe_StartupFailuresAreGeneric(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T)
		want  error
	}{
		{
			name: "missing base url",
			setup: func(t *testing.T) {
				setupEnv(t, testToken)
			},
			want: errStartupConfig,
		},
		{
			name: "production requires https",
			setup: func(t *testing.T) {
				setupEnv(t, testToken)
				t.Setenv("COOLIFY_URL", "http://coolify.internal:8000")
				t.Setenv("NODE_ENV", "production")
			},
			want: errStartupConfig,
		},
		{
			name: "plaintext telemetry to remote collector",
			setup: func(t *testing.T) {
				setupEnv(t, testToken)
				t.Setenv("COOLIFY_URL", "https://coolify.example.com")
				t.Setenv("TELEMETRY_ENABLED", "true")
				t.Setenv("TELEMETRY_ENDPOINT", "otel.example.com:4317")
			},
			want: errStartupConfig,
		},
		{
			name: "token too short",
			setup: func(t *testing.T) {
				setupEnv(t, "short")
				t.Setenv("COOLIFY_URL", "https://coolify.example.com")
			},
			want: errStartupCredential,
		},
		{
			name: "token readable by others",
			setup: func(t *testing.T) {
				path := setupEnv(t, testToken)
				require.NoError(t, os.Chmod(path, 0o644))
				t.Setenv("COOLIFY_URL", "https://coolify.example.com")
			},
			want: errStartupCredential,
		},
		{
			name: "token outside allowed directories",
			setup: func(t *testing.T) {
				setupEnv(t, testToken)
				outside := filepath.Join(t.TempDir(), "token")
				require.NoError(t, os.WriteFile(outside, []byte(testToken), 0o600))
				t.Setenv("COOLIFY_TOKEN_PATH", outside)
				t.Setenv("COOLIFY_URL", "https://coolify.example.com")
			},
			want: errStartupCredential,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup(t)
			stdout, stderr, err := execute(t, "", "serve")
			require.ErrorIs(t, err, tt.want)
			assert.Empty(t, stdout)
			assert.NotContains(t, stderr, testToken)
			assert.NotContains(t, err.Error(), "coolify.internal")
		})
	}
}

func TestServe_UnknownTransport(t *testing.T) {
	_, _, err := execute(t, "", "serve", "--transport", "grpc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown transport")
}
