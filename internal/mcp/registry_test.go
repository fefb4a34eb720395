package mcp

import (
	"context"
	"encoding/json"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Catalog(t *testing.T) {
	r := NewRegistry()
	tools := r.Tools()

	want := []ToolName{
		ToolListApplications,
		ToolGetApplication,
		ToolDeployApplication,
		ToolGetDeploymentStatus,
		ToolListDeployments,
		ToolStopApplication,
		ToolRestartApplication,
		ToolGetApplicationLogs,
		ToolListWebhooks,
		ToolCreateWebhook,
		ToolGetServerInfo,
	}
	require.Len(t, tools, len(want))
	for i, tool := range tools {
		assert.Equal(t, want[i], tool.Name)
		assert.NotEmpty(t, tool.Description, tool.Name)
		assert.Equal(t, "object", tool.InputSchema.Type, tool.Name)
		assert.NotNil(t, tool.InputSchema.Required, tool.Name)
	}
}

// requiredFields lists the json names of fields without omitempty.
func requiredFields(args any) []string {
	fields := []string{}
	rt := reflect.TypeOf(args)
	for i := 0; i < rt.NumField(); i++ {
		tag := rt.Field(i).Tag.Get("json")
		name, opts, _ := strings.Cut(tag, ",")
		if !strings.Contains(opts, "omitempty") {
			fields = append(fields, name)
		}
	}
	sort.Strings(fields)
	return fields
}

func allFields(args any) []string {
	fields := []string{}
	rt := reflect.TypeOf(args)
	for i := 0; i < rt.NumField(); i++ {
		name, _, _ := strings.Cut(rt.Field(i).Tag.Get("json"), ",")
		fields = append(fields, name)
	}
	sort.Strings(fields)
	return fields
}

func TestRegistry_SchemaMatchesArgumentContract(t *testing.T) {
	r := NewRegistry()
	for _, e := range r.entries {
		t.Run(string(e.tool.Name), func(t *testing.T) {
			assert.ElementsMatch(t, requiredFields(e.args), e.tool.InputSchema.Required)

			props := make([]string, 0, len(e.tool.InputSchema.Properties))
			for name := range e.tool.InputSchema.Properties {
				props = append(props, name)
			}
			sort.Strings(props)
			assert.Equal(t, allFields(e.args), props)
		})
	}
}

func TestRegistry_RequiredSets(t *testing.T) {
	r := NewRegistry()
	tests := map[ToolName][]string{
		ToolListApplications:   {},
		ToolGetApplication:     {"uuid"},
		ToolDeployApplication:  {"uuid"},
		ToolGetApplicationLogs: {"uuid"},
		ToolListWebhooks:       {},
		ToolCreateWebhook:      {"uuid", "name", "url"},
		ToolGetServerInfo:      {},
	}
	for name, want := range tests {
		tool, ok := r.Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, want, tool.InputSchema.Required, name)
	}
}

func TestRegistry_Invoke(t *testing.T) {
	const id = "550e8400-e29b-41d4-a716-446655440000"

	tests := []struct {
		name string
		tool ToolName
		args string
		want call
	}{
		{
			name: "no arguments",
			tool: ToolListApplications,
			want: call{Op: "ListApplications"},
		},
		{
			name: "uuid",
			tool: ToolStopApplication,
			args: `{"uuid":"` + id + `"}`,
			want: call{Op: "StopApplication", UUID: id},
		},
		{
			name: "deploy passes raw force_rebuild",
			tool: ToolDeployApplication,
			args: `{"uuid":"` + id + `","force_rebuild":"true"}`,
			want: call{Op: "DeployApplication", UUID: id, Args: []any{"true"}},
		},
		{
			name: "logs defaults stay absent",
			tool: ToolGetApplicationLogs,
			args: `{"uuid":"` + id + `"}`,
			want: call{Op: "GetApplicationLogs", UUID: id, Args: []any{nil, nil}},
		},
		{
			name: "logs values",
			tool: ToolGetApplicationLogs,
			args: `{"uuid":"` + id + `","lines":50,"since":"5m"}`,
			want: call{Op: "GetApplicationLogs", UUID: id, Args: []any{float64(50), "5m"}},
		},
		{
			name: "webhook",
			tool: ToolCreateWebhook,
			args: `{"uuid":"` + id + `","name":"hook","url":"https://example.com"}`,
			want: call{Op: "CreateWebhook", UUID: id, Args: []any{"hook", "https://example.com", nil}},
		},
		{
			name: "missing uuid is passed as empty",
			tool: ToolGetApplication,
			args: `{}`,
			want: call{Op: "GetApplication"},
		},
		{
			name: "null arguments",
			tool: ToolGetServerInfo,
			args: `null`,
			want: call{Op: "GetServerInfo"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ops := newMockOps()
			res, err := NewRegistry().Invoke(context.Background(), ops, tt.tool, json.RawMessage(tt.args))
			require.NoError(t, err)
			assert.True(t, res.Success)

			calls := ops.Calls()
			require.Len(t, calls, 1)
			assert.Equal(t, tt.want.Op, calls[0].Op)
			assert.Equal(t, tt.want.UUID, calls[0].UUID)
			if len(tt.want.Args) > 0 {
				assert.Equal(t, tt.want.Args, calls[0].Args)
			}
		})
	}
}

func TestRegistry_InvokeRejectsBadArguments(t *testing.T) {
	tests := []struct {
		name string
		tool ToolName
		args string
		msg  string
	}{
		{"uuid not a string", ToolGetApplication, `{"uuid":42}`, "validation error: uuid must be a string"},
		{"arguments not an object", ToolGetApplication, `[1,2]`, "validation error: arguments must be a JSON object"},
		{"arguments scalar", ToolListApplications, `"x"`, "validation error: arguments must be a JSON object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ops := newMockOps()
			res, err := NewRegistry().Invoke(context.Background(), ops, tt.tool, json.RawMessage(tt.args))
			require.NoError(t, err)
			assert.False(t, res.Success)
			assert.Equal(t, tt.msg, res.Message)
			assert.Empty(t, ops.Calls())
		})
	}
}

func TestRegistry_InvokeUnknownTool(t *testing.T) {
	ops := newMockOps()
	_, err := NewRegistry().Invoke(context.Background(), ops, "coolify_delete_everything", nil)
	assert.ErrorIs(t, err, ErrUnknownTool)
	assert.Empty(t, ops.Calls())
}
