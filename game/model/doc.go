// Package model holds the game-domain values that the admission layer carries
// around without interpreting.
//
// Core Types:
//
// Player is the per-client game state attached to a registry entry when a
// ticket is first admitted. Action is the verb a client asks the game to
// perform, taken verbatim from the first token of an inbound message. Item is
// an inventory entry owned by a Player.
//
// The websocket layer never branches on the contents of these values. It only
// creates an anonymous Player on admission and hands parsed Actions to the
// game dispatcher.
package model
