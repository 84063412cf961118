package transport

import (
	"context"
	"reflect"
	"sync"
)

// ServerHandle holds one Server for an application. The zero value is ready to use and
// reports ErrNotInitialized until Init succeeds.
type ServerHandle struct {
	mu   sync.RWMutex
	impl Server
}

// Init replaces the held server with the factory's result. It returns false, leaving
// the handle unchanged, when the factory is nil or yields no server. Closing the
// previous server is left to the caller.
func (h *ServerHandle) Init(factory func() (Server, error)) bool {
	if factory == nil {
		return false
	}
	s, err := factory()
	if err != nil || isNil(s) {
		return false
	}
	h.mu.Lock()
	h.impl = s
	h.mu.Unlock()
	return true
}

func (h *ServerHandle) Exists() bool { return h.get() != nil }

func (h *ServerHandle) get() Server {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.impl
}

func (h *ServerHandle) with(fn func(Server)) error {
	s := h.get()
	if s == nil {
		return ErrNotInitialized
	}
	fn(s)
	return nil
}

func (h *ServerHandle) Address() (Address, error) {
	var a Address
	err := h.with(func(s Server) { a = s.Address() })
	return a, err
}

func (h *ServerHandle) Clients() ([]Peer, error) {
	var peers []Peer
	err := h.with(func(s Server) { peers = s.Clients() })
	return peers, err
}

func (h *ServerHandle) EnablePasscode(code string) (string, error) {
	var out string
	err := h.with(func(s Server) { out = s.EnablePasscode(code) })
	return out, err
}

func (h *ServerHandle) EnableRandomPasscode(length int) (string, error) {
	var out string
	err := h.with(func(s Server) { out = s.EnableRandomPasscode(length) })
	return out, err
}

func (h *ServerHandle) DisablePasscode() error {
	return h.with(func(s Server) { s.DisablePasscode() })
}

func (h *ServerHandle) EnableNewConnections() error {
	return h.with(func(s Server) { s.EnableNewConnections() })
}

func (h *ServerHandle) DisableNewConnections() error {
	return h.with(func(s Server) { s.DisableNewConnections() })
}

func (h *ServerHandle) EnableAllConnections() error {
	return h.with(func(s Server) { s.EnableAllConnections() })
}

func (h *ServerHandle) DisableAllConnections() error {
	return h.with(func(s Server) { s.DisableAllConnections() })
}

func (h *ServerHandle) CloseAllConnections() error {
	return h.with(func(s Server) { s.CloseAllConnections() })
}

func (h *ServerHandle) Close() error {
	s := h.get()
	if s == nil {
		return ErrNotInitialized
	}
	return s.Close()
}

// ClientHandle is the client-side counterpart of ServerHandle.
type ClientHandle struct {
	mu   sync.RWMutex
	impl Client
}

func (h *ClientHandle) Init(factory func() (Client, error)) bool {
	if factory == nil {
		return false
	}
	c, err := factory()
	if err != nil || isNil(c) {
		return false
	}
	h.mu.Lock()
	h.impl = c
	h.mu.Unlock()
	return true
}

func (h *ClientHandle) Exists() bool { return h.get() != nil }

func (h *ClientHandle) get() Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.impl
}

func (h *ClientHandle) Send(lines ...string) error {
	c := h.get()
	if c == nil {
		return ErrNotInitialized
	}
	return c.Send(lines...)
}

func (h *ClientHandle) MessageBuilder() (MessageBuilder, error) {
	c := h.get()
	if c == nil {
		return nil, ErrNotInitialized
	}
	return c.MessageBuilder(), nil
}

func (h *ClientHandle) SetConnectionTimeout(ms int) error {
	c := h.get()
	if c == nil {
		return ErrNotInitialized
	}
	c.SetConnectionTimeout(ms)
	return nil
}

func (h *ClientHandle) Connect(ctx context.Context, host string, port int, passcode string) (bool, error) {
	c := h.get()
	if c == nil {
		return false, ErrNotInitialized
	}
	return c.Connect(ctx, host, port, passcode)
}

func (h *ClientHandle) Close() error {
	c := h.get()
	if c == nil {
		return ErrNotInitialized
	}
	return c.Close()
}

// isNil also catches a nil pointer wrapped in a non-nil interface.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
