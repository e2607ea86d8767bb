package service

import (
	"time"

	"github.com/wricardo/sockgate/game/model"
)

// ConnectionInfo provides information about a registered ticket
type ConnectionInfo struct {
	Ticket      string       `json:"ticket"`
	Player      model.Player `json:"player"`
	AdmittedAt  time.Time    `json:"admitted_at"`
	LiveSockets int          `json:"live_sockets"`
}

// AuthorizeResult is the outcome of an authorization probe
type AuthorizeResult struct {
	Ticket     string `json:"ticket"`
	Authorized bool   `json:"authorized"`
	Reason     string `json:"reason,omitempty"`
}

// NotifyResult reports how many sockets received a pushed message
type NotifyResult struct {
	Ticket    string `json:"ticket"`
	Delivered int    `json:"delivered"`
}

// Stats summarizes the registry and the hub
type Stats struct {
	Connections int `json:"connections"`
	LiveSockets int `json:"live_sockets"`
}
