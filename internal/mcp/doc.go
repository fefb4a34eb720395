// Package mcp exposes the Coolify operations as MCP tools.
//
// Two transports share one Dispatcher:
//
//   - Session reads newline-delimited requests ({"method": ..., "params": ...})
//     and writes one JSON line per handled request. Per-line failures go to
//     the error stream as {"error":{"code":-1,"message":...}} and the session
//     continues.
//   - SDKServer serves the same tools through the official MCP SDK over
//     stdio for JSON-RPC 2.0 clients.
//
// The tool set is closed: every ToolName is bound to one operation and one
// argument contract in the Registry.
package mcp
