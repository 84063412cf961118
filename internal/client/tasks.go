package client

import (
	"context"
	"time"

	"github.com/matst80/linewire/internal/obs"
	"github.com/matst80/linewire/internal/proto"
)

func (c *Client) runVerifier(ctx context.Context) error {
	t := time.NewTicker(c.opts.PollInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		case <-c.kick:
		}
		c.verifyOnce()
	}
}

// verifyOnce reads at most one line for the pending attempt. A closure sentinel from
// the server ends the attempt at once; otherwise it fails after its cycle limit.
func (c *Client) verifyOnce() {
	c.mu.Lock()
	a := c.pending
	c.mu.Unlock()
	if a == nil {
		return
	}
	line, err := a.conn.ReadLine(c.opts.ReadTimeout)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending != a {
		return
	}
	kind := proto.None
	if err == nil {
		kind = proto.Classify(line)
	}
	if kind == proto.ConnectionConfirmed {
		c.pending = nil
		c.conn = a.conn
		c.builder = proto.NewBuilder()
		c.idle = 0
		c.state = Connected
		a.result <- true
		return
	}
	a.cycles++
	if kind.IsClosure() || a.cycles >= a.limit {
		c.pending = nil
		c.state = Disconnected
		a.conn.ForceClose()
		obs.Info("client.abandon", obs.Fields{"cycles": a.cycles, "closed_by_server": kind.IsClosure()})
		a.result <- false
	}
}

func (c *Client) runPoller(ctx context.Context) error {
	t := time.NewTicker(c.opts.PollInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
		c.pollOnce()
	}
}

// pollOnce drains the connected socket into the current Builder. The socket is read
// without holding the client lock so Send is never stalled behind a read deadline.
func (c *Client) pollOnce() {
	c.mu.Lock()
	conn, b, idle := c.conn, c.builder, c.idle
	c.mu.Unlock()
	if conn == nil {
		return
	}

	closed := false
	for {
		line, err := conn.ReadLine(c.opts.ReadTimeout)
		if err != nil {
			idle++
			break
		}
		idle = 0
		kind := b.Add(line)
		if kind.IsClosure() {
			closed = true
			break
		}
		if kind == proto.EndMessage {
			obs.MessagesTotal.Inc()
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != conn {
		return
	}
	c.idle = idle
	if !closed && idle <= c.opts.MaxIdle {
		return
	}
	if !closed {
		conn.Notify(proto.ConnectionClosed)
	}
	conn.ForceClose()
	c.conn = nil
	c.state = Disconnected
	obs.Info("client.disconnect", obs.Fields{"closed_by_server": closed, "idle": idle})
}
