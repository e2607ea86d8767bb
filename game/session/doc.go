// Package session provides the connection registry for sockgate.
//
// The session package implements:
//   - Thread-safe ticket → Connection storage
//   - Atomic admission (check-then-insert) of upgrade requests
//   - Presence lookups for message authorization
//   - Optional pruning of entries with no live socket
//
// Core Types:
//
// Registry is the single shared map from identity ticket to Connection. One
// Registry is created at server start and handed to every socket handler.
// Connection is an immutable value pairing a ticket with the game Player that
// was created when the ticket was first admitted.
//
// Admission:
//
// Admit holds the write lock across the membership check and the insert, so
// two sockets presenting the same unseen ticket at the same moment still end
// up with exactly one entry. The second caller takes the reconnect path.
//
// Usage:
//
//	registry := session.NewRegistry()
//
//	adm := registry.Admit(ticket, model.NewAnonymousPlayer)
//	if !adm.Reconnect {
//		codec.Attach(ticket, header)
//	}
//
//	if registry.Contains(claimed) {
//		// dispatch
//	}
//
// Cleanup:
//
// Closing a socket does not remove its entry; a client may reconnect with the
// same ticket at any time. Prune removes old entries that the caller reports
// as no longer live.
package session
