package service

import (
	"context"
	"fmt"

	"github.com/wricardo/sockgate/game/model"
	"github.com/wricardo/sockgate/game/session"
)

// Dispatcher hands an authorized action to the game layer
type Dispatcher interface {
	Dispatch(ctx context.Context, conn session.Connection, action model.Action) (string, error)
}

// DispatcherFunc adapts a function to the Dispatcher interface
type DispatcherFunc func(ctx context.Context, conn session.Connection, action model.Action) (string, error)

// Dispatch calls f.
func (f DispatcherFunc) Dispatch(ctx context.Context, conn session.Connection, action model.Action) (string, error) {
	return f(ctx, conn, action)
}

// Acknowledger replies to every action with an acknowledgment that echoes it.
type Acknowledger struct{}

// Dispatch implements Dispatcher.
func (Acknowledger) Dispatch(_ context.Context, _ session.Connection, action model.Action) (string, error) {
	return fmt.Sprintf("gotcha, you want to %s", action), nil
}
