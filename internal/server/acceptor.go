package server

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"time"

	"github.com/matst80/linewire/internal/obs"
	"github.com/matst80/linewire/internal/proto"
)

// runAcceptor moves raw connections into the pending map while the acceptNew gate is
// open.
func (s *Server) runAcceptor(ctx context.Context) error {
	for {
		if !s.acceptNew.wait(ctx) {
			return nil
		}
		err := s.acceptOnce(ctx)
		if err == nil {
			continue
		}
		if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
			return nil
		}
		obs.Error("accept.error", obs.Fields{"err": err.Error()})
		obs.ErrorsTotal.WithLabelValues("accept").Inc()
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.opts.AcceptTimeout / 10):
		}
	}
}

// acceptOnce waits up to AcceptTimeout for one connection. A timeout is not an error.
func (s *Server) acceptOnce(ctx context.Context) error {
	if err := s.tcp.SetDeadline(time.Now().Add(s.opts.AcceptTimeout)); err != nil {
		return err
	}
	raw, err := s.ln.Accept()
	if err != nil {
		if proto.IsTimeout(err) {
			return nil
		}
		return err
	}
	if tc, ok := raw.(*tls.Conn); ok {
		hctx, cancel := context.WithTimeout(ctx, s.opts.HandshakeTimeout)
		err := tc.HandshakeContext(hctx)
		cancel()
		if err != nil {
			obs.Error("accept.tls", obs.Fields{"remote": raw.RemoteAddr().String(), "err": err.Error()})
			obs.ErrorsTotal.WithLabelValues("tls_handshake").Inc()
			_ = raw.Close()
			return nil
		}
	}
	c := proto.NewConn(raw, s.opts.WriteTimeout)
	obs.AcceptedTotal.Inc()
	if !s.opts.Limiter.Allow(c.RemoteHost()) {
		obs.RateLimitedTotal.Inc()
		obs.Debug("accept.rate_limited", obs.Fields{"remote": c.RemoteHost()})
		c.ForceClose()
		return nil
	}
	n := s.reg.addPending(c)
	obs.PendingConnections.Set(float64(n))
	obs.Debug("accept.pending", obs.Fields{"remote": raw.RemoteAddr().String(), "pending": n})
	return nil
}
