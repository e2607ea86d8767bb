package model

import (
	"errors"
	"strings"
)

// ErrEmptyAction is returned by ParseAction for blank input.
var ErrEmptyAction = errors.New("action is empty")

// Action is an opaque request from a client, e.g. "move-north".
type Action string

// String returns the action verbatim.
func (a Action) String() string {
	return string(a)
}

// ParseAction trims the raw token and rejects empty actions.
func ParseAction(raw string) (Action, error) {
	action := strings.TrimSpace(raw)
	if action == "" {
		return "", ErrEmptyAction
	}
	return Action(action), nil
}

// Item represents a single inventory entry
type Item struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// Player represents the game-side state of one client
type Player struct {
	Name      string `json:"name"`
	Anonymous bool   `json:"anonymous"`
	Items     []Item `json:"items,omitempty"`
}

// NewAnonymousPlayer returns the default Player for a newly admitted ticket.
func NewAnonymousPlayer() Player {
	return Player{
		Name:      "anonymous",
		Anonymous: true,
	}
}
