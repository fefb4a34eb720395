package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/fyrsmithlabs/coolify-mcp/internal/coolify"
	"github.com/fyrsmithlabs/coolify-mcp/internal/sanitize"
)

// ToolName identifies one of the registered tools.
type ToolName string

// The closed set of tools, in catalog order.
const (
	ToolListApplications    ToolName = "coolify_list_applications"
	ToolGetApplication      ToolName = "coolify_get_application"
	ToolDeployApplication   ToolName = "coolify_deploy_application"
	ToolGetDeploymentStatus ToolName = "coolify_get_deployment_status"
	ToolListDeployments     ToolName = "coolify_list_deployments"
	ToolStopApplication     ToolName = "coolify_stop_application"
	ToolRestartApplication  ToolName = "coolify_restart_application"
	ToolGetApplicationLogs  ToolName = "coolify_get_application_logs"
	ToolListWebhooks        ToolName = "coolify_list_webhooks"
	ToolCreateWebhook       ToolName = "coolify_create_webhook"
	ToolGetServerInfo       ToolName = "coolify_get_server_info"
)

// Operations is the set of Coolify operations the tools are bound to.
// *coolify.Service implements it.
type Operations interface {
	ListApplications(ctx context.Context) coolify.Result
	GetApplication(ctx context.Context, uuid string) coolify.Result
	DeployApplication(ctx context.Context, uuid string, forceRebuild any) coolify.Result
	GetDeploymentStatus(ctx context.Context, uuid string) coolify.Result
	ListDeployments(ctx context.Context, uuid string) coolify.Result
	StopApplication(ctx context.Context, uuid string) coolify.Result
	RestartApplication(ctx context.Context, uuid string) coolify.Result
	GetApplicationLogs(ctx context.Context, uuid string, lines, since any) coolify.Result
	ListWebhooks(ctx context.Context) coolify.Result
	CreateWebhook(ctx context.Context, uuid string, name, webhookURL, secret any) coolify.Result
	GetServerInfo(ctx context.Context) coolify.Result
}

var _ Operations = (*coolify.Service)(nil)

// Tool is one catalog entry as returned by tools/list.
type Tool struct {
	Name        ToolName    `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"inputSchema"`
}

// InputSchema is the JSON schema of a tool's arguments object.
type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required"`
}

// Property describes one argument.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Minimum     *int   `json:"minimum,omitempty"`
	Maximum     *int   `json:"maximum,omitempty"`
	Pattern     string `json:"pattern,omitempty"`
	Default     any    `json:"default,omitempty"`
}

// Argument contracts. Values stay untyped so the operations can coerce and
// reject them with their own validation messages. Fields without omitempty
// are required.

// NoArgs is the argument contract of tools that take no input.
type NoArgs struct{}

// UUIDArgs addresses a single application.
type UUIDArgs struct {
	UUID any `json:"uuid" jsonschema:"Application UUID"`
}

// DeployArgs are the arguments of coolify_deploy_application.
type DeployArgs struct {
	UUID         any `json:"uuid" jsonschema:"Application UUID"`
	ForceRebuild any `json:"force_rebuild,omitempty" jsonschema:"Rebuild without cache (default false)"`
}

// LogsArgs are the arguments of coolify_get_application_logs.
type LogsArgs struct {
	UUID  any `json:"uuid" jsonschema:"Application UUID"`
	Lines any `json:"lines,omitempty" jsonschema:"Number of log lines, 1-10000 (default 100)"`
	Since any `json:"since,omitempty" jsonschema:"Time window such as 30s, 5m, 2h or 1d (default 1h)"`
}

// WebhookArgs are the arguments of coolify_create_webhook.
type WebhookArgs struct {
	UUID   any `json:"uuid" jsonschema:"Application UUID"`
	Name   any `json:"name" jsonschema:"Webhook name"`
	URL    any `json:"url" jsonschema:"Absolute http or https URL to notify"`
	Secret any `json:"secret,omitempty" jsonschema:"Optional signing secret"`
}

// invoker decodes raw arguments and runs the bound operation.
type invoker func(ctx context.Context, ops Operations, raw json.RawMessage) coolify.Result

type entry struct {
	tool   Tool
	invoke invoker
	// args is the zero value of the argument contract, used by the SDK
	// transport and by tests.
	args any
}

// Registry is the static tool catalog. It is immutable after construction.
type Registry struct {
	entries []entry
	byName  map[ToolName]int
}

// NewRegistry returns the catalog of all tools.
func NewRegistry() *Registry {
	r := &Registry{byName: make(map[ToolName]int)}
	for _, e := range catalog() {
		r.byName[e.tool.Name] = len(r.entries)
		r.entries = append(r.entries, e)
	}
	return r
}

// Tools returns the catalog in its fixed order.
func (r *Registry) Tools() []Tool {
	tools := make([]Tool, len(r.entries))
	for i, e := range r.entries {
		tools[i] = e.tool
	}
	return tools
}

// Lookup reports whether name is a registered tool.
func (r *Registry) Lookup(name ToolName) (Tool, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Tool{}, false
	}
	return r.entries[i].tool, true
}

// Invoke runs the operation bound to name. It returns ErrUnknownTool when
// name is not registered.
func (r *Registry) Invoke(ctx context.Context, ops Operations, name ToolName, args json.RawMessage) (coolify.Result, error) {
	i, ok := r.byName[name]
	if !ok {
		return coolify.Result{}, fmt.Errorf("%w: %q", ErrUnknownTool, truncate(string(name), 64))
	}
	return r.entries[i].invoke(ctx, ops, args), nil
}

func catalog() []entry {
	uuidProp := Property{Type: "string", Description: "Application UUID (UUID v4 or Coolify id)"}

	return []entry{
		{
			tool: Tool{
				Name:        ToolListApplications,
				Description: "List all applications in Coolify",
				InputSchema: schema(nil),
			},
			args: NoArgs{},
			invoke: bind(func(ctx context.Context, ops Operations, _ *NoArgs) coolify.Result {
				return ops.ListApplications(ctx)
			}),
		},
		{
			tool: Tool{
				Name:        ToolGetApplication,
				Description: "Get details of a specific application",
				InputSchema: schema(map[string]Property{"uuid": uuidProp}, "uuid"),
			},
			args: UUIDArgs{},
			invoke: bindUUID(func(ctx context.Context, ops Operations, id string, _ *UUIDArgs) coolify.Result {
				return ops.GetApplication(ctx, id)
			}),
		},
		{
			tool: Tool{
				Name:        ToolDeployApplication,
				Description: "Trigger a deployment for an application",
				InputSchema: schema(map[string]Property{
					"uuid":          uuidProp,
					"force_rebuild": {Type: "boolean", Description: "Rebuild without cache", Default: false},
				}, "uuid"),
			},
			args: DeployArgs{},
			invoke: bindUUID(func(ctx context.Context, ops Operations, id string, a *DeployArgs) coolify.Result {
				return ops.DeployApplication(ctx, id, a.ForceRebuild)
			}),
		},
		{
			tool: Tool{
				Name:        ToolGetDeploymentStatus,
				Description: "Get the current deployment status of an application",
				InputSchema: schema(map[string]Property{"uuid": uuidProp}, "uuid"),
			},
			args: UUIDArgs{},
			invoke: bindUUID(func(ctx context.Context, ops Operations, id string, _ *UUIDArgs) coolify.Result {
				return ops.GetDeploymentStatus(ctx, id)
			}),
		},
		{
			tool: Tool{
				Name:        ToolListDeployments,
				Description: "List the deployment history of an application",
				InputSchema: schema(map[string]Property{"uuid": uuidProp}, "uuid"),
			},
			args: UUIDArgs{},
			invoke: bindUUID(func(ctx context.Context, ops Operations, id string, _ *UUIDArgs) coolify.Result {
				return ops.ListDeployments(ctx, id)
			}),
		},
		{
			tool: Tool{
				Name:        ToolStopApplication,
				Description: "Stop a running application",
				InputSchema: schema(map[string]Property{"uuid": uuidProp}, "uuid"),
			},
			args: UUIDArgs{},
			invoke: bindUUID(func(ctx context.Context, ops Operations, id string, _ *UUIDArgs) coolify.Result {
				return ops.StopApplication(ctx, id)
			}),
		},
		{
			tool: Tool{
				Name:        ToolRestartApplication,
				Description: "Restart an application",
				InputSchema: schema(map[string]Property{"uuid": uuidProp}, "uuid"),
			},
			args: UUIDArgs{},
			invoke: bindUUID(func(ctx context.Context, ops Operations, id string, _ *UUIDArgs) coolify.Result {
				return ops.RestartApplication(ctx, id)
			}),
		},
		{
			tool: Tool{
				Name:        ToolGetApplicationLogs,
				Description: "Get recent log output of an application",
				InputSchema: schema(map[string]Property{
					"uuid": uuidProp,
					"lines": {
						Type:        "number",
						Description: "Number of log lines to return",
						Minimum:     intPtr(1),
						Maximum:     intPtr(sanitize.MaxLogLines),
						Default:     sanitize.DefaultLogLines,
					},
					"since": {
						Type:        "string",
						Description: "Time window such as 30s, 5m, 2h or 1d",
						Pattern:     `^\d+[smhd]$`,
						Default:     sanitize.DefaultLogSince,
					},
				}, "uuid"),
			},
			args: LogsArgs{},
			invoke: bindUUID(func(ctx context.Context, ops Operations, id string, a *LogsArgs) coolify.Result {
				return ops.GetApplicationLogs(ctx, id, a.Lines, a.Since)
			}),
		},
		{
			tool: Tool{
				Name:        ToolListWebhooks,
				Description: "List webhooks (not supported at global scope; use coolify_create_webhook per application)",
				InputSchema: schema(nil),
			},
			args: NoArgs{},
			invoke: bind(func(ctx context.Context, ops Operations, _ *NoArgs) coolify.Result {
				return ops.ListWebhooks(ctx)
			}),
		},
		{
			tool: Tool{
				Name:        ToolCreateWebhook,
				Description: "Create a webhook for an application",
				InputSchema: schema(map[string]Property{
					"uuid":   uuidProp,
					"name":   {Type: "string", Description: "Webhook name (letters, digits, spaces, '-' and '_')"},
					"url":    {Type: "string", Description: "Absolute http or https URL to notify"},
					"secret": {Type: "string", Description: "Optional signing secret"},
				}, "uuid", "name", "url"),
			},
			args: WebhookArgs{},
			invoke: bindUUID(func(ctx context.Context, ops Operations, id string, a *WebhookArgs) coolify.Result {
				return ops.CreateWebhook(ctx, id, a.Name, a.URL, a.Secret)
			}),
		},
		{
			tool: Tool{
				Name:        ToolGetServerInfo,
				Description: "Get information about the servers managed by Coolify",
				InputSchema: schema(nil),
			},
			args: NoArgs{},
			invoke: bind(func(ctx context.Context, ops Operations, _ *NoArgs) coolify.Result {
				return ops.GetServerInfo(ctx)
			}),
		},
	}
}

func schema(props map[string]Property, required ...string) InputSchema {
	if props == nil {
		props = map[string]Property{}
	}
	if required == nil {
		required = []string{}
	}
	return InputSchema{Type: "object", Properties: props, Required: required}
}

func intPtr(n int) *int { return &n }

var jsonNull = []byte("null")

// bind decodes the arguments object into A before calling run. A missing or
// null arguments value decodes as the zero A.
func bind[A any](run func(context.Context, Operations, *A) coolify.Result) invoker {
	return func(ctx context.Context, ops Operations, raw json.RawMessage) coolify.Result {
		args := new(A)
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) > 0 && !bytes.Equal(trimmed, jsonNull) {
			if err := json.Unmarshal(trimmed, args); err != nil {
				return coolify.Fail(fmt.Errorf("%w: arguments must be a JSON object", sanitize.ErrValidation))
			}
		}
		return run(ctx, ops, args)
	}
}

// uuidCarrier is implemented by argument contracts that address an
// application.
type uuidCarrier interface {
	uuidArg() any
}

func (a *UUIDArgs) uuidArg() any    { return a.UUID }
func (a *DeployArgs) uuidArg() any  { return a.UUID }
func (a *LogsArgs) uuidArg() any    { return a.UUID }
func (a *WebhookArgs) uuidArg() any { return a.UUID }

// bindUUID is bind plus extraction of the uuid argument. An absent uuid is
// passed on as "" so the operation reports it as required.
func bindUUID[A any, P interface {
	*A
	uuidCarrier
}](run func(context.Context, Operations, string, P) coolify.Result) invoker {
	return bind(func(ctx context.Context, ops Operations, args *A) coolify.Result {
		p := P(args)
		id, err := uuidString(p.uuidArg())
		if err != nil {
			return coolify.Fail(err)
		}
		return run(ctx, ops, id, p)
	})
}

func uuidString(v any) (string, error) {
	switch id := v.(type) {
	case nil:
		return "", nil
	case string:
		return id, nil
	default:
		return "", fmt.Errorf("%w: uuid must be a string", sanitize.ErrValidation)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
