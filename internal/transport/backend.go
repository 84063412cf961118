// Package transport declares the boundary every linewire backend satisfies and the
// caller-owned handles applications hold instead of a process-wide instance.
package transport

import (
	"context"
	"errors"
)

var ErrNotInitialized = errors.New("transport: backend not initialized")

// MessageBuilder yields complete messages in arrival order.
type MessageBuilder interface {
	HasMore() bool
	Next() []string
}

// Peer is the server's view of one verified client.
type Peer interface {
	ID() string
	RemoteAddr() string
	Send(lines ...string) error
	Messages() MessageBuilder
}

// Client is the client side of a backend.
type Client interface {
	Send(lines ...string) error
	MessageBuilder() MessageBuilder
	SetConnectionTimeout(ms int)
	Connect(ctx context.Context, host string, port int, passcode string) (bool, error)
	Close() error
}

// Server is the server side of a backend.
type Server interface {
	Address() Address
	Clients() []Peer
	EnablePasscode(code string) string
	EnableRandomPasscode(length int) string
	DisablePasscode()
	EnableNewConnections()
	DisableNewConnections()
	EnableAllConnections()
	DisableAllConnections()
	CloseAllConnections()
	Close() error
}
