// Package api provides the HTTP surface of sockgate.
//
// The api package implements:
//   - The websocket endpoint where tickets are admitted
//   - Read-only inspection of the connection registry
//   - Administrative eviction and server push
//   - Health and Prometheus metrics endpoints
//
// Endpoints:
//
// WebSocket:
//   - GET /ws - Upgrade; issues or recognizes the ticket cookie
//
// Connections:
//   - GET /api/connections - List registered tickets
//   - GET /api/connections/{ticket} - Get one ticket
//   - DELETE /api/connections/{ticket} - Evict a ticket from the registry
//   - POST /api/connections/{ticket}/notify - Push text to the ticket's sockets
//   - POST /api/authorize - Check a ticket against the authorizer
//   - GET /api/stats - Registry and socket counts
//
// Operations:
//   - GET /healthz - Liveness
//   - GET /metrics - Prometheus metrics
//
// Errors are returned as {"error": "..."} with 400 for malformed tickets and
// 404 for tickets the registry does not hold.
package api
