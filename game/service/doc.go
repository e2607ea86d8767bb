// Package service provides the business-logic seam between the transports
// and the connection registry.
//
// The service package implements:
//   - Dispatcher, the hand-off point where authorized actions leave the
//     admission layer for the game
//   - ConnectionService, the registry operations exposed over REST and MCP
//
// Core Types:
//
// Dispatcher receives an authorized action together with the registry entry
// of the ticket that sent it and returns the text to reply with. Acknowledger
// is the default dispatcher and echoes the action back.
//
// ConnectionService wraps a session.Registry, an auth.Authorizer and a
// Notifier (the websocket hub) so that HTTP handlers never touch the
// registry directly.
//
// Usage:
//
//	svc := service.NewConnectionService(registry, authorizer, hub)
//	infos, err := svc.ListConnections(ctx)
//
// Error Handling:
//
// Lookups of unknown tickets return session.ErrConnectionNotFound wrapped
// with context; callers use errors.Is to map it to a 404.
package service
