// Package envelope decodes inbound websocket text frames into an action and
// the ticket the client claims to hold.
//
// Decoding is split in two. A Decoder turns the raw frame into ordered string
// tokens and knows nothing about their meaning. The Parser checks there are
// exactly two tokens, reads the first as a model.Action and the second as a
// UUID ticket. Every failure is a *ParseError whose Kind tells the three
// failure modes apart; its Error text is what the client receives.
package envelope

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/wricardo/sockgate/game/model"
)

// Arity is the number of tokens in a well-formed envelope.
const Arity = 2

// Kind classifies a parse failure
type Kind int

const (
	KindParseFailed Kind = iota + 1
	KindArityMismatch
	KindTicketMalformed
)

func (k Kind) String() string {
	switch k {
	case KindParseFailed:
		return "parse_failed"
	case KindArityMismatch:
		return "arity_mismatch"
	case KindTicketMalformed:
		return "ticket_malformed"
	default:
		return "unknown"
	}
}

// ParseError describes why a frame could not be parsed
type ParseError struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err, or zero if err is not a *ParseError.
func KindOf(err error) Kind {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return 0
}

// Envelope is a decoded inbound message
type Envelope struct {
	Action model.Action
	Ticket uuid.UUID
}

// Parser turns raw frames into envelopes
type Parser struct {
	decoder Decoder
}

// NewParser returns a Parser using decoder, or JSONDecoder when nil.
func NewParser(decoder Decoder) *Parser {
	if decoder == nil {
		decoder = JSONDecoder{}
	}
	return &Parser{decoder: decoder}
}

// Parse decodes raw into an Envelope.
func (p *Parser) Parse(raw []byte) (Envelope, error) {
	tokens, err := p.decoder.Decode(raw)
	if err != nil {
		return Envelope{}, &ParseError{Kind: KindParseFailed, Msg: "malformed message", Err: err}
	}

	if len(tokens) != Arity {
		return Envelope{}, &ParseError{
			Kind: KindArityMismatch,
			Msg:  fmt.Sprintf("expected %d tokens (action, ticket), got %d", Arity, len(tokens)),
		}
	}

	action, err := model.ParseAction(tokens[0])
	if err != nil {
		return Envelope{}, &ParseError{Kind: KindParseFailed, Msg: "malformed action", Err: err}
	}

	ticket, err := uuid.Parse(tokens[1])
	if err != nil {
		return Envelope{}, &ParseError{
			Kind: KindTicketMalformed,
			Msg:  fmt.Sprintf("malformed ticket %q", tokens[1]),
			Err:  err,
		}
	}

	return Envelope{Action: action, Ticket: ticket}, nil
}
