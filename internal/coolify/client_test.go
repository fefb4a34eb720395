package coolify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/fyrsmithlabs/coolify-mcp/internal/config"
	"github.com/fyrsmithlabs/coolify-mcp/internal/logging"
	"github.com/fyrsmithlabs/coolify-mcp/internal/sanitize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

const testToken = config.Secret("1|abcdefghijklmnopqrstuvwxyz0123")

func newTestClient(t *testing.T, baseURL string, timeout time.Duration) *Client {
	t.Helper()
	c, err := NewClient(baseURL, testToken, timeout, WithUserAgent("coolify-mcp/test"))
	require.NoError(t, err)
	return c
}

func TestNewClient(t *testing.T) {
	c, err := NewClient("https://coolify.example.com/", testToken, 0)
	require.NoError(t, err)
	assert.Equal(t, "https://coolify.example.com", c.baseURL)
	assert.Equal(t, config.DefaultTimeout, c.httpClient.Timeout)
	assert.NotNil(t, c.httpClient.CheckRedirect)

	_, err = NewClient("https://coolify.example.com", "", time.Second)
	assert.ErrorIs(t, err, sanitize.ErrAuthConfig)

	for _, bad := range []string{"", "coolify.example.com", "ftp://coolify.example.com"} {
		_, err = NewClient(bad, testToken, time.Second)
		assert.ErrorIs(t, err, sanitize.ErrConfig, bad)
	}
}

func TestClient_Do_RequestShape(t *testing.T) {
	type captured struct {
		req  *http.Request
		body []byte
	}
	reqs := make(chan captured, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		reqs <- captured{req: r.Clone(context.Background()), body: body}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, time.Second)
	raw, err := c.Do(context.Background(), http.MethodPost, "/applications/abc/deploy",
		url.Values{"lines": {"5"}}, map[string]bool{"force_rebuild": true})
	require.NoError(t, err)

	assert.JSONEq(t, `{"ok":true}`, string(raw))
	c2 := <-reqs
	got, gotBody := c2.req, c2.body
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/api/v1/applications/abc/deploy", got.URL.Path)
	assert.Equal(t, "lines=5", got.URL.RawQuery)
	assert.Equal(t, "Bearer "+testToken.Value(), got.Header.Get("Authorization"))
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
	assert.Equal(t, "application/json", got.Header.Get("Accept"))
	assert.Equal(t, "coolify-mcp/test", got.Header.Get("User-Agent"))
	assert.JSONEq(t, `{"force_rebuild":true}`, string(gotBody))
}

func TestClient_Do_StatusMapping(t *testing.T) {
	tests := []struct {
		status  int
		kind    Kind
		message string
	}{
		{http.StatusUnauthorized, KindAuthenticationFailed, "Authentication failed"},
		{http.StatusForbidden, KindAccessDenied, "Access denied"},
		{http.StatusNotFound, KindNotFound, "Resource not found"},
		{http.StatusInternalServerError, KindUpstreamServerError, "Coolify server error"},
		{http.StatusBadGateway, KindUpstreamServerError, "Coolify server error"},
		{http.StatusUnprocessableEntity, KindRequestFailed, "Request failed with status 422"},
		{http.StatusFound, KindRequestFailed, "Request failed with status 302"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.status == http.StatusFound {
					w.Header().Set("Location", "/login")
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"message":"upstream detail that must not leak"}`))
			}))
			defer srv.Close()

			c := newTestClient(t, srv.URL, time.Second)
			_, err := c.Do(context.Background(), http.MethodGet, "/applications", nil, nil)
			require.Error(t, err)

			kind, ok := KindOf(err)
			require.True(t, ok)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.message, err.Error())
			assert.NotContains(t, err.Error(), "upstream detail")
		})
	}
}

func TestClient_Do_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	c := newTestClient(t, srv.URL, 50*time.Millisecond)
	_, err := c.Do(context.Background(), http.MethodGet, "/applications", nil, nil)

	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindRequestTimeout, kind)
	assert.Equal(t, "Request timeout", err.Error())
}

func TestClient_Do_RateLimit(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, testToken, time.Second, WithRateLimit(0.1, 1))
	require.NoError(t, err)

	_, err = c.Do(context.Background(), http.MethodGet, "/applications", nil, nil)
	require.NoError(t, err)

	// The next token is ten seconds away; the deadline is not.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.Do(ctx, http.MethodGet, "/applications", nil, nil)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindRequestTimeout, kind)
	assert.Equal(t, int32(1), hits.Load())
}

func TestClient_Do_RateLimitWaitBoundedByTimeout(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, testToken, 50*time.Millisecond, WithRateLimit(0.1, 1))
	require.NoError(t, err)

	_, err = c.Do(context.Background(), http.MethodGet, "/applications", nil, nil)
	require.NoError(t, err)

	start := time.Now()
	_, err = c.Do(context.Background(), http.MethodGet, "/applications", nil, nil)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindRequestTimeout, kind)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, int32(1), hits.Load())
}

func TestWithRateLimit_Disabled(t *testing.T) {
	c, err := NewClient("https://coolify.example.com", testToken, time.Second, WithRateLimit(0, 10))
	require.NoError(t, err)
	assert.Nil(t, c.limiter)

	c, err = NewClient("https://coolify.example.com", testToken, time.Second, WithRateLimit(2, 0))
	require.NoError(t, err)
	require.NotNil(t, c.limiter)
	assert.Equal(t, 1, c.limiter.Burst())
}

func TestClient_Do_LogsWithoutCredential(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	closed := httptest.NewServer(http.NotFoundHandler())
	closed.Close()
	defer srv.Close()

	tl := logging.NewTestLogger()
	for _, base := range []string{srv.URL, closed.URL} {
		c, err := NewClient(base, testToken, time.Second, WithLogger(tl.Logger))
		require.NoError(t, err)
		_, err = c.Do(context.Background(), http.MethodGet, "/applications", nil, nil)
		require.Error(t, err)
	}

	tl.AssertLogged(t, zapcore.DebugLevel, "coolify request completed")
	tl.AssertLogged(t, zapcore.WarnLevel, "coolify request failed")
	tl.AssertNoSecrets(t)
	tl.AssertNotContains(t, testToken.Value())
}

func TestClient_Do_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := newTestClient(t, base, time.Second)
	_, err := c.Do(context.Background(), http.MethodGet, "/applications", nil, nil)

	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindServiceUnavailable, kind)
	assert.Equal(t, "Coolify service unavailable", err.Error())
}

func TestClient_Do_InvalidEndpoint(t *testing.T) {
	var called atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called.Store(true)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, time.Second)
	for _, ep := range []string{"/applications/../servers", "//evil.example.com", "applications", ""} {
		_, err := c.Do(context.Background(), http.MethodGet, ep, nil, nil)
		kind, ok := KindOf(err)
		require.True(t, ok, ep)
		assert.Equal(t, KindInvalidEndpoint, kind, ep)
	}
	assert.False(t, called.Load())
}

func TestClient_Do_ResponseBodies(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{name: "object", body: `{"a":1}`, want: `{"a":1}`},
		{name: "array", body: ` [1,2] `, want: `[1,2]`},
		{name: "empty", body: ``, want: `null`},
		{name: "html", body: `<html>login</html>`, wantErr: true},
		{name: "truncated", body: `{"a":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := newTestClient(t, srv.URL, time.Second)
			raw, err := c.Do(context.Background(), http.MethodGet, "/applications", nil, nil)
			if tt.wantErr {
				kind, ok := KindOf(err)
				require.True(t, ok)
				assert.Equal(t, KindInvalidResponse, kind)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(raw))
		})
	}
}

func TestTransportErrorClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"deadline", context.DeadlineExceeded, KindRequestTimeout},
		{"dns", &url.Error{Op: "Get", URL: "x", Err: &net.DNSError{Err: "no such host", Name: "coolify.invalid"}}, KindServiceUnavailable},
		{"dns timeout", &net.DNSError{Err: "timeout", Name: "c", IsTimeout: true}, KindRequestTimeout},
		{"refused", &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}, KindServiceUnavailable},
		{"reset", &net.OpError{Op: "read", Err: syscall.ECONNRESET}, KindNetworkError},
		{"other", errors.New("boom"), KindNetworkError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cerr := transportError(tt.err)
			assert.Equal(t, tt.want, cerr.Kind)
			assert.ErrorIs(t, cerr, tt.err)
		})
	}
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "authentication_failed", KindAuthenticationFailed.String())
	assert.Equal(t, "request_timeout", KindRequestTimeout.String())
	assert.Equal(t, "unknown", Kind(99).String())

	_, ok := KindOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestResult_MarshalJSON(t *testing.T) {
	ok := Ok(
		Field{Key: "count", Value: 2},
		Field{Key: "applications", Value: json.RawMessage(`[{"z":1,"a":2},{}]`)},
	)
	b, err := json.Marshal(ok)
	require.NoError(t, err)
	assert.Equal(t, `{"success":true,"count":2,"applications":[{"z":1,"a":2},{}]}`, string(b))

	again, err := json.Marshal(ok)
	require.NoError(t, err)
	assert.Equal(t, b, again)

	fail := Fail(&Error{Kind: KindNotFound})
	b, err = json.Marshal(fail)
	require.NoError(t, err)
	assert.Equal(t, `{"success":false,"error":"Resource not found"}`, string(b))
}

func TestResult_Text(t *testing.T) {
	text, err := Ok(Field{Key: "message", Value: "Application stopped"}).Text()
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"success\": true,\n  \"message\": \"Application stopped\"\n}", text)
}

func TestFail_MessageSafety(t *testing.T) {
	v := Fail(fmt.Errorf("%w: uuid is required", sanitize.ErrValidation))
	assert.Equal(t, "validation error: uuid is required", v.Message)

	internal := Fail(errors.New("open /secret/path: permission denied"))
	assert.Equal(t, "Internal error", internal.Message)

	wrapped := Fail(fmt.Errorf("calling: %w", &Error{Kind: KindRequestTimeout, Err: context.DeadlineExceeded}))
	assert.Equal(t, "Request timeout", wrapped.Message)
}
