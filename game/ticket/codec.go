// Package ticket reads and writes the anonymous identity cookie carried on
// websocket upgrade requests.
//
// A ticket is a UUID issued by the server the first time a client connects.
// Browsers send it back on every later upgrade, which is how reconnects are
// recognized. A missing cookie and an unparsable cookie are treated the same:
// the caller issues a new ticket.
package ticket

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultCookieName is the cookie used when no name is configured.
	DefaultCookieName = "anon_session_ticket"

	// DefaultMaxAge keeps the identity across browser restarts.
	DefaultMaxAge = 365 * 24 * time.Hour
)

// Codec extracts and attaches the identity cookie
type Codec struct {
	Name     string
	Path     string
	MaxAge   time.Duration // zero issues a session cookie
	Secure   bool
	HTTPOnly bool
}

// NewCodec returns a Codec with the default cookie attributes.
func NewCodec(name string) Codec {
	if name == "" {
		name = DefaultCookieName
	}
	return Codec{
		Name:   name,
		Path:   "/",
		MaxAge: DefaultMaxAge,
	}
}

// Extract returns the ticket presented on the request, if any.
func (c Codec) Extract(r *http.Request) (uuid.UUID, bool) {
	cookie, err := r.Cookie(c.name())
	if err != nil {
		return uuid.Nil, false
	}

	t, err := uuid.Parse(cookie.Value)
	if err != nil {
		return uuid.Nil, false
	}
	return t, true
}

// Presented reports whether the request carried the cookie at all,
// regardless of whether its value parses.
func (c Codec) Presented(r *http.Request) bool {
	_, err := r.Cookie(c.name())
	return err == nil
}

// Attach adds a Set-Cookie header carrying the ticket to the response headers.
func (c Codec) Attach(t uuid.UUID, header http.Header) {
	header.Add("Set-Cookie", c.Cookie(t).String())
}

// Cookie builds the identity cookie for a ticket.
func (c Codec) Cookie(t uuid.UUID) *http.Cookie {
	path := c.Path
	if path == "" {
		path = "/"
	}
	return &http.Cookie{
		Name:     c.name(),
		Value:    t.String(),
		Path:     path,
		MaxAge:   int(c.MaxAge.Seconds()),
		Secure:   c.Secure,
		HttpOnly: c.HTTPOnly,
		SameSite: http.SameSiteLaxMode,
	}
}

func (c Codec) name() string {
	if c.Name == "" {
		return DefaultCookieName
	}
	return c.Name
}
