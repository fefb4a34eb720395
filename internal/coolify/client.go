package coolify

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fyrsmithlabs/coolify-mcp/internal/config"
	"github.com/fyrsmithlabs/coolify-mcp/internal/logging"
	"github.com/fyrsmithlabs/coolify-mcp/internal/sanitize"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	apiPrefix = "/api/v1"

	// maxResponseSize caps how much of an upstream body is read.
	maxResponseSize = 10 * 1024 * 1024
)

// Client performs authenticated calls against the Coolify REST API.
// It is safe for concurrent use; its fields are not modified after NewClient.
type Client struct {
	baseURL    string
	token      config.Secret
	userAgent  string
	timeout    time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Redirect and TLS
// policy are then the caller's responsibility.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *logging.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithRateLimit throttles outbound requests to rps per second with the given
// burst. A non-positive rps leaves requests unthrottled.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient creates a client for baseURL (scheme and host, no /api/v1).
func NewClient(baseURL string, token config.Secret, timeout time.Duration, opts ...Option) (*Client, error) {
	if !token.IsSet() {
		return nil, fmt.Errorf("%w: token is required", sanitize.ErrAuthConfig)
	}
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, fmt.Errorf("%w: invalid Coolify base URL", sanitize.ErrConfig)
	}
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		userAgent:  "coolify-mcp",
		timeout:    timeout,
		httpClient: newHTTPClient(timeout),
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
		CheckRedirect: func(_ *http.Request, _ []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// Do sends one request to {baseURL}/api/v1{endpoint} and returns the JSON body.
//
// body, when non-nil, is JSON-encoded. Every failure is an *Error; an empty
// 2xx body is returned as JSON null. The client timeout bounds the whole call,
// including time spent waiting on the rate limiter.
func (c *Client) Do(ctx context.Context, method, endpoint string, query url.Values, body any) (json.RawMessage, error) {
	if err := sanitize.ValidateEndpoint(endpoint); err != nil {
		return nil, &Error{Kind: KindInvalidEndpoint, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := c.baseURL + apiPrefix + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, &Error{Kind: KindNetworkError, Err: fmt.Errorf("encoding request: %w", err)}
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, &Error{Kind: KindNetworkError, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Authorization", c.token.Bearer())
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			c.logger.Warn(ctx, "coolify request throttled",
				zap.String("method", method),
				zap.String("endpoint", endpoint),
				zap.Error(err),
			)
			return nil, &Error{Kind: KindRequestTimeout, Err: fmt.Errorf("rate limiter: %w", err)}
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		cerr := transportError(err)
		c.logger.Warn(ctx, "coolify request failed",
			zap.String("method", method),
			zap.String("endpoint", endpoint),
			zap.Stringer("kind", cerr.Kind),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return nil, cerr
	}
	defer resp.Body.Close()

	c.logger.Debug(ctx, "coolify request completed",
		zap.String("method", method),
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a bounded amount so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return nil, statusError(resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return nil, transportError(err)
	}
	if len(raw) > maxResponseSize {
		return nil, &Error{Kind: KindInvalidResponse, Err: fmt.Errorf("response exceeds %d bytes", maxResponseSize)}
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(raw) {
		return nil, &Error{Kind: KindInvalidResponse, Err: fmt.Errorf("response is not JSON")}
	}
	return json.RawMessage(raw), nil
}
