// Command probe dials a sockgate /ws endpoint, sends one or more actions with
// the ticket the server issued (or a ticket passed in), and prints each reply.
// It is handy for checking cookie issuance and reconnect behavior by hand:
//
//	probe --action move-north
//	probe --ticket 9b2d... --action look --count 3
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/sockgate/game/ticket"
)

// Options controls a single probe run
type Options struct {
	URL        string
	CookieName string
	Ticket     string
	Action     string
	Format     string
	Count      int
	Timeout    time.Duration
}

// Result summarizes what the server did with the probe
type Result struct {
	Ticket  uuid.UUID
	Issued  bool
	Replies []string
}

var errNoTicket = errors.New("server issued no ticket and none was given")

func main() {
	cmd := &cli.Command{
		Name:  "probe",
		Usage: "send actions to a sockgate websocket endpoint",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "ws://localhost:8080/ws", Usage: "websocket endpoint"},
			&cli.StringFlag{Name: "cookie-name", Value: ticket.DefaultCookieName, Usage: "ticket cookie name"},
			&cli.StringFlag{Name: "ticket", Usage: "reuse this ticket instead of asking for a new one"},
			&cli.StringFlag{Name: "action", Value: "move-north", Usage: "action to send"},
			&cli.StringFlag{Name: "format", Value: "json", Usage: "frame format (json or text)"},
			&cli.IntFlag{Name: "count", Value: 1, Usage: "number of frames to send"},
			&cli.DurationFlag{Name: "timeout", Value: 5 * time.Second, Usage: "per-reply read timeout"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			opts := Options{
				URL:        cmd.String("url"),
				CookieName: cmd.String("cookie-name"),
				Ticket:     cmd.String("ticket"),
				Action:     cmd.String("action"),
				Format:     cmd.String("format"),
				Count:      int(cmd.Int("count")),
				Timeout:    cmd.Duration("timeout"),
			}
			res, err := Probe(ctx, opts)
			if err != nil {
				return err
			}
			printResult(os.Stdout, res)
			return nil
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Probe opens one socket, sends opts.Count frames and collects the replies
func Probe(ctx context.Context, opts Options) (*Result, error) {
	header := http.Header{}
	if opts.Ticket != "" {
		header.Add("Cookie", (&http.Cookie{Name: opts.CookieName, Value: opts.Ticket}).String())
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, opts.URL, header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", opts.URL, err)
	}
	defer conn.Close()

	res := &Result{}
	for _, c := range resp.Cookies() {
		if c.Name != opts.CookieName {
			continue
		}
		if id, err := uuid.Parse(c.Value); err == nil {
			res.Ticket = id
			res.Issued = true
		}
	}
	if !res.Issued {
		id, err := uuid.Parse(opts.Ticket)
		if err != nil {
			return nil, errNoTicket
		}
		res.Ticket = id
	}

	for i := 0; i < opts.Count; i++ {
		frame, err := Frame(opts.Format, opts.Action, res.Ticket.String())
		if err != nil {
			return nil, err
		}
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			return nil, fmt.Errorf("write: %w", err)
		}

		conn.SetReadDeadline(time.Now().Add(opts.Timeout))
		_, reply, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}
		res.Replies = append(res.Replies, string(reply))
	}

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return res, nil
}

// Frame encodes an action and ticket in the given wire format
func Frame(format, action, ticketStr string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", "json":
		return json.Marshal(map[string]string{"action": action, "ticket": ticketStr})
	case "text":
		return []byte(action + " " + ticketStr), nil
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

func printResult(w io.Writer, res *Result) {
	if res.Issued {
		fmt.Fprintf(w, "Ticket: %s (issued)\n", res.Ticket)
	} else {
		fmt.Fprintf(w, "Ticket: %s (reconnected)\n", res.Ticket)
	}
	for i, reply := range res.Replies {
		fmt.Fprintf(w, "Reply %d: %s\n", i+1, reply)
	}
}
