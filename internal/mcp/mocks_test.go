package mcp

import (
	"context"
	"sync"

	"github.com/fyrsmithlabs/coolify-mcp/internal/coolify"
)

// call records one operation invocation on mockOps.
type call struct {
	Op   string
	UUID string
	Args []any
}

// mockOps is an in-memory Operations that records calls and answers with
// result, or with a per-operation override.
type mockOps struct {
	mu       sync.Mutex
	calls    []call
	result   coolify.Result
	override map[string]coolify.Result
}

func newMockOps() *mockOps {
	return &mockOps{
		result:   coolify.Ok(coolify.Field{Key: "message", Value: "ok"}),
		override: map[string]coolify.Result{},
	}
}

func (m *mockOps) record(op, uuid string, args ...any) coolify.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call{Op: op, UUID: uuid, Args: args})
	if r, ok := m.override[op]; ok {
		return r
	}
	return m.result
}

func (m *mockOps) Calls() []call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]call(nil), m.calls...)
}

func (m *mockOps) ListApplications(ctx context.Context) coolify.Result {
	return m.record("ListApplications", "")
}

func (m *mockOps) GetApplication(ctx context.Context, uuid string) coolify.Result {
	return m.record("GetApplication", uuid)
}

func (m *mockOps) DeployApplication(ctx context.Context, uuid string, forceRebuild any) coolify.Result {
	return m.record("DeployApplication", uuid, forceRebuild)
}

func (m *mockOps) GetDeploymentStatus(ctx context.Context, uuid string) coolify.Result {
	return m.record("GetDeploymentStatus", uuid)
}

func (m *mockOps) ListDeployments(ctx context.Context, uuid string) coolify.Result {
	return m.record("ListDeployments", uuid)
}

func (m *mockOps) StopApplication(ctx context.Context, uuid string) coolify.Result {
	return m.record("StopApplication", uuid)
}

func (m *mockOps) RestartApplication(ctx context.Context, uuid string) coolify.Result {
	return m.record("RestartApplication", uuid)
}

func (m *mockOps) GetApplicationLogs(ctx context.Context, uuid string, lines, since any) coolify.Result {
	return m.record("GetApplicationLogs", uuid, lines, since)
}

func (m *mockOps) ListWebhooks(ctx context.Context) coolify.Result {
	return m.record("ListWebhooks", "")
}

func (m *mockOps) CreateWebhook(ctx context.Context, uuid string, name, webhookURL, secret any) coolify.Result {
	return m.record("CreateWebhook", uuid, name, webhookURL, secret)
}

func (m *mockOps) GetServerInfo(ctx context.Context) coolify.Result {
	return m.record("GetServerInfo", "")
}
