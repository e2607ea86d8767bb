// Package mcp provides a Model Context Protocol front end for sockgate.
//
// The mcp package implements a thin client that proxies MCP tool calls to
// the REST API, so operators and agents can inspect the connection registry
// without speaking HTTP directly.
//
// MCP Tools:
//   - list_connections: List registered tickets with live socket counts
//   - get_connection: Get one ticket's entry
//   - authorize_ticket: Run the authorizer against a ticket
//   - notify_ticket: Push a text frame to a ticket's live sockets
//   - evict_connection: Remove a ticket from the registry
//   - stats: Registry and socket totals
//
// Transport Modes:
//   - Stdio: the mcp command serves the tools over stdin/stdout
//   - HTTP: the serve command mounts POST /mcp
package mcp
