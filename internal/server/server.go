// Package server implements the server side of linewire: an acceptor that collects raw
// connections, a verifier that admits them against an optional passcode, and a poller
// that frames input from verified peers and evicts the idle or departed ones.
//
// All three run as goroutines from New until Close. Admission starts disabled; call
// EnableAllConnections to begin accepting.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/matst80/linewire/internal/obs"
	"github.com/matst80/linewire/internal/proto"
	"github.com/matst80/linewire/internal/transport"
	"golang.org/x/sync/errgroup"
)

var ErrServerClosed = errors.New("server: closed")

type Server struct {
	opts Options
	tcp  *net.TCPListener
	ln   net.Listener // tcp, or tcp wrapped in TLS
	addr transport.Address
	reg  *registry

	passcode  atomic.Pointer[string]
	acceptNew *gate
	acceptAny *gate

	ctx       context.Context
	cancel    context.CancelFunc
	group     *errgroup.Group
	closed    atomic.Bool
	closeOnce sync.Once
}

var _ transport.Server = (*Server)(nil)

// New listens on addr (":0" picks a free port) and starts the background tasks. The
// tasks stop when ctx is cancelled or Close is called.
func New(ctx context.Context, addr string, opts Options) (*Server, error) {
	s, err := listen(ctx, addr, opts)
	if err != nil {
		return nil, err
	}
	s.start()
	obs.Info("server.start", obs.Fields{"addr": s.addr.String(), "tls": opts.TLSConfig != nil})
	return s, nil
}

func listen(ctx context.Context, addr string, opts Options) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	tcp, ok := ln.(*net.TCPListener)
	if !ok {
		_ = ln.Close()
		return nil, fmt.Errorf("listen %s: not a TCP listener", addr)
	}
	a, err := transport.AddressOf(tcp.Addr())
	if err != nil {
		_ = tcp.Close()
		return nil, err
	}
	s := &Server{
		opts:      opts.withDefaults(),
		tcp:       tcp,
		ln:        tcp,
		addr:      a,
		reg:       newRegistry(),
		acceptNew: newGate(),
		acceptAny: newGate(),
	}
	if opts.TLSConfig != nil {
		s.ln = tls.NewListener(tcp, opts.TLSConfig)
	}
	empty := ""
	s.passcode.Store(&empty)
	s.ctx, s.cancel = context.WithCancel(ctx)
	return s, nil
}

func (s *Server) start() {
	g, ctx := errgroup.WithContext(s.ctx)
	g.Go(func() error { return s.runAcceptor(ctx) })
	g.Go(func() error { return s.runVerifier(ctx) })
	g.Go(func() error { return s.runPoller(ctx) })
	s.group = g
}

// Address is where the server listens.
func (s *Server) Address() transport.Address { return s.addr }

// Clients returns a snapshot of the verified peers.
func (s *Server) Clients() []transport.Peer {
	peers := s.reg.snapshot()
	out := make([]transport.Peer, len(peers))
	for i, p := range peers {
		out[i] = p
	}
	return out
}

// Peers is Clients with the concrete type.
func (s *Server) Peers() []*Peer { return s.reg.snapshot() }

// Passcode returns the current passcode; empty means admission is open.
func (s *Server) Passcode() string { return *s.passcode.Load() }

// EnablePasscode sets the passcode and returns it. An empty code opens admission.
func (s *Server) EnablePasscode(code string) string {
	if s.closed.Load() {
		return s.Passcode()
	}
	s.passcode.Store(&code)
	obs.Info("server.passcode", obs.Fields{"enabled": code != ""})
	return code
}

// EnableRandomPasscode sets a fresh alphanumeric passcode of the given length
// (6 when length <= 0) and returns it.
func (s *Server) EnableRandomPasscode(length int) string {
	if length <= 0 {
		length = defaultPasscodeLen
	}
	return s.EnablePasscode(randomPasscode(length))
}

func (s *Server) DisablePasscode() { s.EnablePasscode("") }

// EnableNewConnections reopens the acceptor. It has no effect unless all connections
// are enabled.
func (s *Server) EnableNewConnections() {
	if s.closed.Load() || !s.acceptAny.isOpen() {
		return
	}
	s.acceptNew.set(true)
}

func (s *Server) DisableNewConnections() { s.acceptNew.set(false) }

// EnableAllConnections resumes both the verifier and the acceptor.
func (s *Server) EnableAllConnections() {
	if s.closed.Load() {
		return
	}
	s.acceptAny.set(true)
	s.EnableNewConnections()
	obs.Info("server.gates", obs.Fields{"accept_any": true, "accept_new": true})
}

// DisableAllConnections pauses the verifier and the acceptor. Verified peers keep
// being polled.
func (s *Server) DisableAllConnections() {
	s.acceptAny.set(false)
	s.DisableNewConnections()
	obs.Info("server.gates", obs.Fields{"accept_any": false, "accept_new": false})
}

// AcceptingNew reports the acceptor gate.
func (s *Server) AcceptingNew() bool { return s.acceptNew.isOpen() }

// AcceptingAny reports the verifier gate.
func (s *Server) AcceptingAny() bool { return s.acceptAny.isOpen() }

// CloseAllConnections notifies and closes every pending and verified connection. The
// background tasks keep running.
func (s *Server) CloseAllConnections() {
	s.closeAll(proto.ConnectionClosed)
}

// Close sends SERVER CLOSED to every connection, stops the background tasks and
// closes the listener. The server cannot be reused.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.acceptNew.set(false)
		s.acceptAny.set(false)
		s.cancel()
		if cerr := s.ln.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			err = cerr
		}
		if s.group != nil {
			_ = s.group.Wait()
		}
		s.closeAll(proto.ServerClosed)
		obs.Info("server.closed", obs.Fields{"addr": s.addr.String()})
	})
	return err
}

// Closed reports whether Close has been called.
func (s *Server) Closed() bool { return s.closed.Load() }

func (s *Server) closeAll(reason proto.Kind) {
	s.reg.pendingMu.Lock()
	pending := len(s.reg.pending)
	for c := range s.reg.pending {
		c.Notify(reason)
		c.ForceClose()
	}
	clear(s.reg.pending)
	s.reg.pendingMu.Unlock()

	s.reg.verifiedMu.Lock()
	peers := make([]*Peer, 0, len(s.reg.verified))
	for p := range s.reg.verified {
		p.conn.Notify(reason)
		p.conn.ForceClose()
		peers = append(peers, p)
	}
	clear(s.reg.verified)
	s.reg.verifiedMu.Unlock()

	obs.PendingConnections.Set(0)
	obs.VerifiedConnections.Set(0)
	for _, p := range peers {
		s.forget(p, "bulk")
	}
	obs.Info("server.close_all", obs.Fields{"reason": reason.Name(), "pending": pending, "verified": len(peers)})
}

// track publishes an admitted peer to the presence store. Registration runs outside
// the registry locks, so a peer evicted in the meantime has already been forgotten;
// its entry is withdrawn again here.
func (s *Server) track(p *Peer) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.opts.Presence.Register(ctx, p.entry()); err != nil {
		obs.Error("presence.register", obs.Fields{"id": p.id, "err": err.Error()})
		obs.ErrorsTotal.WithLabelValues("presence").Inc()
	}
	if _, ok := s.reg.idle(p); ok {
		return
	}
	if err := s.opts.Presence.Unregister(ctx, p.id); err != nil {
		obs.Error("presence.unregister", obs.Fields{"id": p.id, "err": err.Error()})
		obs.ErrorsTotal.WithLabelValues("presence").Inc()
	}
}

// forget records an evicted peer outside the registry locks.
func (s *Server) forget(p *Peer, reason string) {
	obs.EvictedTotal.WithLabelValues(reason).Inc()
	obs.PeerLifetimeSeconds.Observe(time.Since(p.connectedAt).Seconds())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.opts.Presence.Unregister(ctx, p.id); err != nil {
		obs.Error("presence.unregister", obs.Fields{"id": p.id, "err": err.Error()})
		obs.ErrorsTotal.WithLabelValues("presence").Inc()
	}
}

// Stats is a point-in-time view used by dashboards.
type Stats struct {
	Address      string `json:"address"`
	Pending      int    `json:"pending"`
	Verified     int    `json:"verified"`
	Passcode     bool   `json:"passcode"`
	AcceptingNew bool   `json:"accepting_new"`
	AcceptingAny bool   `json:"accepting_any"`
	Closed       bool   `json:"closed"`
}

func (s *Server) Stats() Stats {
	return Stats{
		Address:      s.addr.String(),
		Pending:      s.reg.pendingCount(),
		Verified:     s.reg.verifiedCount(),
		Passcode:     s.Passcode() != "",
		AcceptingNew: s.AcceptingNew(),
		AcceptingAny: s.AcceptingAny(),
		Closed:       s.Closed(),
	}
}
