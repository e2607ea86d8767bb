// Package websocket provides the websocket transport and per-socket session
// handling for sockgate.
//
// The websocket package implements:
//   - Ticket admission on the HTTP upgrade
//   - One Handler per socket driving the Unopened → Open → Closed lifecycle
//   - The inbound pipeline: parse envelope, authorize ticket, dispatch action
//   - A Hub tracking which sockets are open under which ticket
//
// Architecture:
//
// Gateway holds everything shared between sockets: the connection registry,
// the authorizer, the envelope parser, the dispatcher and the Hub. For every
// upgrade request it creates a Client (the outbound sender) and a Handler (the
// event state machine), admits the ticket, upgrades, then starts a read pump
// and a write pump goroutine for the socket.
//
// Message Protocol:
//
// Inbound frames carry an action and the ticket the client claims, by default
// as JSON:
//   - {"action": "move-north", "ticket": "<uuid>"}
//   - ["move-north", "<uuid>"]
//
// Outbound frames are plain text: an acknowledgment such as
// "gotcha, you want to move-north", or an error description such as
// "unknown ticket <uuid>". A failed message never closes the socket.
//
// Usage:
//
//	hub := websocket.NewHub(logger, m)
//	go hub.Run(ctx)
//
//	gw := websocket.NewGateway(registry, hub,
//		websocket.WithCodec(codec),
//		websocket.WithLogger(logger),
//	)
//	http.Handle("/ws", gw)
//
// Connection Lifecycle:
//
// 1. Client upgrades, presenting its ticket cookie or none
// 2. Ticket admitted (new or reconnect); new tickets get a Set-Cookie
// 3. Socket registered with the hub under its ticket
// 4. Client sends actions, receives acks or error text
// 5. Close or error moves the handler to Closed; the registry entry stays
//
// Concurrency:
//
// Events for one socket are delivered in order by its read pump. Sockets run
// concurrently with each other; the registry and the hub are the only shared
// state and both are guarded internally.
package websocket
