package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// SDKServer exposes the registry through the official MCP SDK, for clients
// that speak JSON-RPC 2.0 with an initialize handshake. Every call is routed
// through the same Dispatcher as the line protocol.
type SDKServer struct {
	server     *mcpsdk.Server
	dispatcher *Dispatcher
}

// NewSDKServer creates an SDK server named name at version.
func NewSDKServer(d *Dispatcher, name, version string) *SDKServer {
	s := &SDKServer{
		server: mcpsdk.NewServer(&mcpsdk.Implementation{
			Name:    name,
			Version: version,
		}, nil),
		dispatcher: d,
	}
	s.registerTools()
	return s
}

// Run serves on stdin/stdout until the client disconnects or ctx is done.
func (s *SDKServer) Run(ctx context.Context) error {
	return s.Serve(ctx, &mcpsdk.StdioTransport{})
}

// Serve runs the server on transport.
func (s *SDKServer) Serve(ctx context.Context, transport mcpsdk.Transport) error {
	if err := s.server.Run(ctx, transport); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}

// Connect starts a single session on transport without blocking.
func (s *SDKServer) Connect(ctx context.Context, transport mcpsdk.Transport) (*mcpsdk.ServerSession, error) {
	return s.server.Connect(ctx, transport, nil)
}

// registerTools publishes every registry tool with its declared input
// schema. Arguments reach the dispatcher untouched, so the SDK transport
// validates and reports errors exactly like the line protocol.
func (s *SDKServer) registerTools() {
	for _, tool := range s.dispatcher.Registry().Tools() {
		name := tool.Name
		s.server.AddTool(&mcpsdk.Tool{
			Name:        string(name),
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		}, func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
			return s.dispatcher.Call(ctx, name, req.Params.Arguments)
		})
	}
}
