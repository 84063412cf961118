package server

import (
	"crypto/tls"
	"time"

	"github.com/matst80/linewire/internal/presence"
	"github.com/matst80/linewire/internal/ratelimit"
)

// Options tunes a Server. Zero values select the defaults noted per field.
type Options struct {
	PollInterval     time.Duration // verifier and poller period, 1s
	AcceptTimeout    time.Duration // accept deadline per acceptor iteration, 1s
	ReadTimeout      time.Duration // per-read deadline on client sockets, 100ms
	WriteTimeout     time.Duration // per-write deadline on client sockets, 10s
	HandshakeTimeout time.Duration // TLS handshake deadline, 5s
	MaxFailures      int           // verifier cycles before a pending connection is dropped, 300
	MaxIdle          int           // poll cycles of silence before a verified peer is evicted, 300

	TLSConfig *tls.Config        // nil serves plain TCP
	Limiter   *ratelimit.Limiter // nil admits every connection
	Presence  presence.Store     // nil uses an in-memory store
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = time.Second
	}
	if o.AcceptTimeout <= 0 {
		o.AcceptTimeout = time.Second
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = 100 * time.Millisecond
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = 5 * time.Second
	}
	if o.MaxFailures <= 0 {
		o.MaxFailures = 300
	}
	if o.MaxIdle <= 0 {
		o.MaxIdle = 300
	}
	if o.Presence == nil {
		o.Presence = presence.NewMemoryStore()
	}
	return o
}
