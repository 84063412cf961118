package client

import (
	"crypto/tls"
	"time"
)

// DefaultConnectionTimeout bounds how long Connect waits for CONNECTION CONFIRMED.
const DefaultConnectionTimeout = 5 * time.Minute

// Options tunes a Client. Zero values select the defaults noted per field.
type Options struct {
	PollInterval time.Duration // verifier and poller period, 1s
	ReadTimeout  time.Duration // per-read deadline, 100ms
	WriteTimeout time.Duration // per-write deadline, 10s
	DialTimeout  time.Duration // 10s
	MaxIdle      int           // poll cycles of silence before disconnecting, 300

	TLSConfig *tls.Config // nil dials plain TCP
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = time.Second
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = 100 * time.Millisecond
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = 10 * time.Second
	}
	if o.MaxIdle <= 0 {
		o.MaxIdle = 300
	}
	return o
}
