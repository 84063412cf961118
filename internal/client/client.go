// Package client is the client side of linewire. A Client dials a server, presents a
// passcode and, once confirmed, frames everything the server sends into messages.
//
// Like the server, the client runs a verifier and a poller in the background; Connect
// kicks the verifier so confirmation is not held back to the next tick.
package client

import (
	"context"
	"crypto/tls"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/matst80/linewire/internal/obs"
	"github.com/matst80/linewire/internal/proto"
	"github.com/matst80/linewire/internal/transport"
	"golang.org/x/sync/errgroup"
)

// attempt is one Connect waiting for CONNECTION CONFIRMED.
type attempt struct {
	conn   *proto.Conn
	cycles int
	limit  int
	result chan bool
}

type Client struct {
	opts Options

	connectMu sync.Mutex // one Connect at a time

	mu      sync.Mutex
	state   State
	conn    *proto.Conn
	builder *proto.Builder
	pending *attempt
	idle    int
	timeout time.Duration

	kick      chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
	group     *errgroup.Group
	closeOnce sync.Once
}

var _ transport.Client = (*Client)(nil)

// New returns a disconnected client with its background tasks running.
func New(opts Options) *Client {
	c := &Client{
		opts:    opts.withDefaults(),
		timeout: DefaultConnectionTimeout,
		kick:    make(chan struct{}, 1),
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(c.ctx)
	g.Go(func() error { return c.runVerifier(ctx) })
	g.Go(func() error { return c.runPoller(ctx) })
	c.group = g
	return c
}

// SetConnectionTimeout sets how long Connect waits for confirmation, in milliseconds.
// Zero or negative restores the 5 minute default.
func (c *Client) SetConnectionTimeout(ms int) {
	d := time.Duration(ms) * time.Millisecond
	if ms <= 0 {
		d = DefaultConnectionTimeout
	}
	c.mu.Lock()
	c.timeout = d
	c.mu.Unlock()
}

// cyclesFor converts a timeout into a number of verifier cycles, rounding up.
func cyclesFor(timeout, interval time.Duration) int {
	n := int((timeout + interval - 1) / interval)
	return max(n, 1)
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ConnectAddr is Connect with a "host:port" address.
func (c *Client) ConnectAddr(ctx context.Context, addr, passcode string) (bool, error) {
	host, port, err := transport.ParseHostPort(addr)
	if err != nil {
		return false, &ConnectError{Addr: addr, Err: err}
	}
	return c.Connect(ctx, host, port, passcode)
}

// Connect dials the server, sends passcode and waits until the server confirms or the
// connection timeout runs out. A rejected or timed out attempt returns (false, nil);
// errors are reserved for dial failures, cancellation and a closed client. Any previous
// connection is closed first.
func (c *Client) Connect(ctx context.Context, host string, port int, passcode string) (bool, error) {
	c.connectMu.Lock()
	defer c.connectMu.Unlock()

	c.mu.Lock()
	if c.state == Closed || c.ctx.Err() != nil {
		c.mu.Unlock()
		return false, ErrClientClosed
	}
	if c.conn != nil {
		c.conn.Notify(proto.ConnectionClosed)
		c.conn.ForceClose()
		c.conn = nil
	}
	c.state = Connecting
	limit := cyclesFor(c.timeout, c.opts.PollInterval)
	c.mu.Unlock()

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := c.dial(ctx, addr)
	if err == nil {
		if err = conn.WriteLines(passcode); err != nil {
			conn.ForceClose()
		}
	}
	if err != nil {
		if c.ctx.Err() != nil {
			return false, ErrClientClosed
		}
		c.setState(Disconnected)
		obs.Warn("client.connect", obs.Fields{"addr": addr, "err": err.Error()})
		return false, &ConnectError{Addr: addr, Err: err}
	}

	a := &attempt{conn: conn, limit: limit, result: make(chan bool, 1)}
	c.mu.Lock()
	if c.state == Closed || c.ctx.Err() != nil {
		c.mu.Unlock()
		conn.ForceClose()
		return false, ErrClientClosed
	}
	c.pending = a
	c.state = AwaitingConfirmation
	c.mu.Unlock()
	select {
	case c.kick <- struct{}{}:
	default:
	}

	select {
	case ok := <-a.result:
		return c.resolved(addr, ok)
	case <-ctx.Done():
		if c.abandon(a) {
			return false, ctx.Err()
		}
		select {
		case ok := <-a.result:
			return c.resolved(addr, ok)
		case <-c.ctx.Done():
			return false, ErrClientClosed
		}
	case <-c.ctx.Done():
		return false, ErrClientClosed
	}
}

// resolved reports a finished attempt. An attempt failed by Close is ErrClientClosed.
func (c *Client) resolved(addr string, ok bool) (bool, error) {
	if !ok && c.ctx.Err() != nil {
		return false, ErrClientClosed
	}
	obs.Info("client.connect", obs.Fields{"addr": addr, "confirmed": ok})
	return ok, nil
}

// dial connects to addr. Closing the client aborts a dial or TLS handshake in flight.
func (c *Client) dial(ctx context.Context, addr string) (*proto.Conn, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(c.ctx, cancel)
	defer stop()

	d := &net.Dialer{Timeout: c.opts.DialTimeout}
	var (
		raw net.Conn
		err error
	)
	if c.opts.TLSConfig != nil {
		td := &tls.Dialer{NetDialer: d, Config: c.opts.TLSConfig}
		raw, err = td.DialContext(ctx, "tcp", addr)
	} else {
		raw, err = d.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, err
	}
	return proto.NewConn(raw, c.opts.WriteTimeout), nil
}

// abandon drops a still-unresolved attempt. It reports false if the verifier already
// resolved it, in which case the result is waiting on the attempt's channel.
func (c *Client) abandon(a *attempt) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending != a {
		return false
	}
	c.pending = nil
	c.state = Disconnected
	a.conn.ForceClose()
	return true
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	if c.state != Closed {
		c.state = s
	}
	c.mu.Unlock()
}

// Send writes lines to the server in order.
func (c *Client) Send(lines ...string) error {
	c.mu.Lock()
	conn, state := c.conn, c.state
	c.mu.Unlock()
	switch {
	case state == Closed:
		return ErrClientClosed
	case state != Connected || conn == nil:
		return ErrNotConnected
	}
	return conn.WriteLines(lines...)
}

// MessageBuilder returns the framer of the current or most recent connection, or nil
// before the first successful Connect.
func (c *Client) MessageBuilder() transport.MessageBuilder {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.builder == nil {
		return nil
	}
	return c.builder
}

// Close stops the background tasks, tells the server goodbye and closes the socket.
// The client cannot be reused.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()
		_ = c.group.Wait()
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.pending != nil {
			c.pending.conn.ForceClose()
			c.pending.result <- false
			c.pending = nil
		}
		if c.conn != nil {
			c.conn.Notify(proto.ConnectionClosed)
			c.conn.ForceClose()
			c.conn = nil
		}
		c.state = Closed
		obs.Debug("client.closed", nil)
	})
	return nil
}
