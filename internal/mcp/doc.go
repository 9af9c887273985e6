// Package mcp implements the Model Context Protocol server for Lawmatics access.
//
// # Overview
//
// MCP (Model Context Protocol) is a standard for AI tool integration. This
// package provides an MCP-compatible HTTP server that exposes Lawmatics
// tools, prompts, and resources to external AI clients (like Claude Desktop,
// other LLMs, or custom applications).
//
// # Protocol
//
// The server implements the Streamable HTTP transport (2025-11-25): JSON-RPC
// 2.0 requests are POSTed to a single endpoint and sessions are tracked via
// the Mcp-Session-Id header.
//
//   - POST /mcp   - JSON-RPC requests (initialize, tools/*, prompts/*, resources/*)
//   - DELETE /mcp - session termination
//
// Server-initiated SSE streams are not supported.
//
// # Authentication
//
// When a token verifier is configured, the initialize handshake requires a
// JWT bearer token:
//
//	Authorization: Bearer <token>
//
// Without a verifier the endpoint is open, which is the expected setup for
// local single-user deployments.
//
// # Methods
//
// tools/list and tools/call are served from the tool registry. prompts/list
// and prompts/get render the embedded workflow catalog. resources/templates/list
// and resources/read serve Lawmatics records under lawmatics:// URIs:
//
//	lawmatics://contacts/{contact_id}
//	lawmatics://matters/{matter_id}
//	lawmatics://tasks/{task_id}
//	lawmatics://companies/{company_id}
//
// Tool execution failures are reported in-band as isError results so the
// calling model can react; protocol-level failures (unknown tool, malformed
// params) use JSON-RPC error responses.
package mcp
