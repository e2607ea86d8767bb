package envelope

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyFrame = errors.New("empty frame")
)

// Decoder splits a raw frame into ordered tokens
type Decoder interface {
	Decode(raw []byte) ([]string, error)
}

// JSONDecoder accepts either an object or an array of strings:
//
//	{"action": "move-north", "ticket": "<uuid>"}
//	["move-north", "<uuid>"]
//
// Object keys that are absent are left out of the token list, so a missing
// ticket surfaces as an arity mismatch rather than a decode failure.
type JSONDecoder struct{}

type jsonEnvelope struct {
	Action *string `json:"action"`
	Ticket *string `json:"ticket"`
}

// Decode implements Decoder.
func (JSONDecoder) Decode(raw []byte) ([]string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, ErrEmptyFrame
	}

	switch trimmed[0] {
	case '[':
		var tokens []string
		if err := json.Unmarshal(trimmed, &tokens); err != nil {
			return nil, fmt.Errorf("invalid json array: %w", err)
		}
		return tokens, nil

	case '{':
		var env jsonEnvelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("invalid json object: %w", err)
		}
		tokens := make([]string, 0, Arity)
		if env.Action != nil {
			tokens = append(tokens, *env.Action)
		}
		if env.Ticket != nil {
			tokens = append(tokens, *env.Ticket)
		}
		return tokens, nil

	default:
		return nil, fmt.Errorf("expected json object or array, got %q", trimmed[0])
	}
}

// TextDecoder splits a frame on whitespace: "move-north <uuid>".
type TextDecoder struct{}

// Decode implements Decoder.
func (TextDecoder) Decode(raw []byte) ([]string, error) {
	tokens := strings.Fields(string(raw))
	if len(tokens) == 0 {
		return nil, ErrEmptyFrame
	}
	return tokens, nil
}

// DecoderByName maps a configured wire format to its Decoder.
func DecoderByName(name string) (Decoder, error) {
	switch strings.ToLower(name) {
	case "", "json":
		return JSONDecoder{}, nil
	case "text":
		return TextDecoder{}, nil
	default:
		return nil, fmt.Errorf("unknown wire format %q", name)
	}
}
