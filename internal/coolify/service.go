package coolify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/fyrsmithlabs/coolify-mcp/internal/logging"
	"github.com/fyrsmithlabs/coolify-mcp/internal/sanitize"
	"github.com/fyrsmithlabs/coolify-mcp/internal/secrets"
	"go.uber.org/zap"
)

// ErrWebhooksGlobalScope is returned by ListWebhooks. The Coolify API has no
// global webhook listing; webhooks are created per application.
var ErrWebhooksGlobalScope = errors.New(
	"listing webhooks is not supported at global scope; create webhooks per application with coolify_create_webhook")

// Doer issues one upstream API call. *Client implements it.
type Doer interface {
	Do(ctx context.Context, method, endpoint string, query url.Values, body any) (json.RawMessage, error)
}

// Service implements the Coolify operations exposed as tools. Every method
// validates its input, issues at most one upstream call and returns a Result;
// none of them return an error.
type Service struct {
	client   Doer
	scrubber secrets.Scrubber
	logger   *logging.Logger
}

// NewService creates a Service. A nil scrubber disables scrubbing and a nil
// logger discards diagnostics.
func NewService(client Doer, scrubber secrets.Scrubber, logger *logging.Logger) *Service {
	if scrubber == nil {
		scrubber = secrets.NoopScrubber{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{client: client, scrubber: scrubber, logger: logger}
}

type deployRequest struct {
	ForceRebuild bool `json:"force_rebuild"`
}

// ListApplications returns every application visible to the token.
func (s *Service) ListApplications(ctx context.Context) Result {
	raw, err := s.call(ctx, http.MethodGet, "/applications", nil, nil)
	if err != nil {
		return s.fail(ctx, err)
	}
	apps, err := decodeList(raw)
	if err != nil {
		return s.fail(ctx, err)
	}
	return Ok(
		Field{Key: "count", Value: len(apps)},
		Field{Key: "applications", Value: apps},
	)
}

// GetApplication returns one application.
func (s *Service) GetApplication(ctx context.Context, uuid string) Result {
	return s.get(ctx, uuid, "", "application")
}

// DeployApplication triggers a deployment. forceRebuild is the raw argument.
func (s *Service) DeployApplication(ctx context.Context, uuid string, forceRebuild any) Result {
	id, err := sanitize.ValidateUUID(uuid)
	if err != nil {
		return s.fail(ctx, err)
	}
	force, err := sanitize.ValidateForceRebuild(forceRebuild)
	if err != nil {
		return s.fail(ctx, err)
	}

	raw, err := s.call(ctx, http.MethodPost, "/applications/"+id+"/deploy", nil, deployRequest{ForceRebuild: force})
	if err != nil {
		return s.fail(ctx, err)
	}
	return Ok(
		Field{Key: "message", Value: "Deployment triggered"},
		Field{Key: "deployment", Value: raw},
	)
}

// GetDeploymentStatus returns the current status of an application.
func (s *Service) GetDeploymentStatus(ctx context.Context, uuid string) Result {
	return s.get(ctx, uuid, "/status", "status")
}

// ListDeployments returns the deployment history of an application.
func (s *Service) ListDeployments(ctx context.Context, uuid string) Result {
	return s.get(ctx, uuid, "/deployments", "deployments")
}

// StopApplication stops a running application.
func (s *Service) StopApplication(ctx context.Context, uuid string) Result {
	return s.action(ctx, uuid, "/stop", "Application stopped")
}

// RestartApplication restarts an application.
func (s *Service) RestartApplication(ctx context.Context, uuid string) Result {
	return s.action(ctx, uuid, "/restart", "Application restarted")
}

// GetApplicationLogs returns recent log output. lines and since are the raw
// arguments; absent values take the defaults.
func (s *Service) GetApplicationLogs(ctx context.Context, uuid string, lines, since any) Result {
	id, err := sanitize.ValidateUUID(uuid)
	if err != nil {
		return s.fail(ctx, err)
	}
	q, err := sanitize.ValidateLogOptions(lines, since)
	if err != nil {
		return s.fail(ctx, err)
	}

	query := url.Values{}
	query.Set("lines", strconv.Itoa(q.Lines))
	query.Set("since", q.Since)

	raw, err := s.call(ctx, http.MethodGet, "/applications/"+id+"/logs", query, nil)
	if err != nil {
		return s.fail(ctx, err)
	}
	return Ok(Field{Key: "logs", Value: raw})
}

// ListWebhooks always fails with ErrWebhooksGlobalScope.
func (s *Service) ListWebhooks(ctx context.Context) Result {
	return s.fail(ctx, ErrWebhooksGlobalScope)
}

// CreateWebhook registers a webhook on an application. name, webhookURL and
// secret are the raw arguments.
func (s *Service) CreateWebhook(ctx context.Context, uuid string, name, webhookURL, secret any) Result {
	id, err := sanitize.ValidateUUID(uuid)
	if err != nil {
		return s.fail(ctx, err)
	}
	hook, err := sanitize.ValidateWebhookPayload(name, webhookURL, secret)
	if err != nil {
		return s.fail(ctx, err)
	}

	raw, err := s.call(ctx, http.MethodPost, "/applications/"+id+"/webhooks", nil, hook)
	if err != nil {
		return s.fail(ctx, err)
	}
	return Ok(Field{Key: "webhook", Value: raw})
}

// GetServerInfo returns the servers managed by the Coolify instance.
func (s *Service) GetServerInfo(ctx context.Context) Result {
	raw, err := s.call(ctx, http.MethodGet, "/servers", nil, nil)
	if err != nil {
		return s.fail(ctx, err)
	}
	count := 1
	if isArray(raw) {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return s.fail(ctx, &Error{Kind: KindInvalidResponse, Err: err})
		}
		count = len(items)
	}
	return Ok(
		Field{Key: "count", Value: count},
		Field{Key: "servers", Value: raw},
	)
}

// get fetches /applications/{uuid}{suffix} and returns it under key.
func (s *Service) get(ctx context.Context, uuid, suffix, key string) Result {
	id, err := sanitize.ValidateUUID(uuid)
	if err != nil {
		return s.fail(ctx, err)
	}
	raw, err := s.call(ctx, http.MethodGet, "/applications/"+id+suffix, nil, nil)
	if err != nil {
		return s.fail(ctx, err)
	}
	return Ok(Field{Key: key, Value: raw})
}

// action posts to /applications/{uuid}{suffix} with no body.
func (s *Service) action(ctx context.Context, uuid, suffix, message string) Result {
	id, err := sanitize.ValidateUUID(uuid)
	if err != nil {
		return s.fail(ctx, err)
	}
	raw, err := s.call(ctx, http.MethodPost, "/applications/"+id+suffix, nil, nil)
	if err != nil {
		return s.fail(ctx, err)
	}
	return Ok(
		Field{Key: "message", Value: message},
		Field{Key: "result", Value: raw},
	)
}

// call performs the upstream request and scrubs the payload.
func (s *Service) call(ctx context.Context, method, endpoint string, query url.Values, body any) (json.RawMessage, error) {
	raw, err := s.client.Do(ctx, method, endpoint, query, body)
	if err != nil {
		return nil, err
	}
	return s.scrub(ctx, raw)
}

// scrub redacts secrets from raw. A scrubbed payload that is no longer valid
// JSON is dropped rather than returned.
func (s *Service) scrub(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
	res := s.scrubber.Scrub(string(raw))
	if !res.HasFindings() {
		return raw, nil
	}

	s.logger.Info(ctx, "redacted secrets from response",
		zap.Int("findings", len(res.Findings)),
		zap.Strings("rules", res.RuleIDs()),
	)

	scrubbed := []byte(res.Scrubbed)
	if !json.Valid(scrubbed) {
		return nil, &Error{Kind: KindInvalidResponse, Err: fmt.Errorf("scrubbed payload is not valid JSON")}
	}
	return json.RawMessage(scrubbed), nil
}

func (s *Service) fail(ctx context.Context, err error) Result {
	if _, ok := KindOf(err); ok {
		s.logger.Warn(ctx, "operation failed", zap.Error(err))
	} else {
		s.logger.Debug(ctx, "operation rejected", zap.Error(err))
	}
	return Fail(err)
}

// decodeList accepts {"data":[...]} first, then a bare array.
func decodeList(raw json.RawMessage) ([]json.RawMessage, error) {
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err == nil && isArray(env.Data) {
		raw = env.Data
	} else if !isArray(raw) {
		return nil, &Error{Kind: KindInvalidResponse, Err: fmt.Errorf("expected an array or {\"data\": [...]}")}
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, &Error{Kind: KindInvalidResponse, Err: err}
	}
	return items, nil
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}
