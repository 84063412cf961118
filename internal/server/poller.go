package server

import (
	"context"
	"math"
	"time"

	"github.com/matst80/linewire/internal/obs"
	"github.com/matst80/linewire/internal/proto"
)

// idleClosed forces eviction on the cycle a peer announces CONNECTION CLOSED.
const idleClosed = math.MaxInt

// runPoller drains verified peers once per PollInterval. It is not gated.
func (s *Server) runPoller(ctx context.Context) error {
	t := time.NewTicker(s.opts.PollInterval)
	defer t.Stop()
	for {
		s.pollVerified()
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

type eviction struct {
	peer   *Peer
	reason string
}

// pollVerified runs one liveness cycle over every verified peer.
func (s *Server) pollVerified() {
	var evicted []eviction

	s.reg.verifiedMu.Lock()
	for p, idle := range s.reg.verified {
		idle = s.drain(p, idle)
		if idle <= s.opts.MaxIdle {
			s.reg.verified[p] = idle
			continue
		}
		delete(s.reg.verified, p)
		p.conn.Notify(proto.ConnectionClosed)
		p.conn.ForceClose()
		reason := "idle"
		if idle == idleClosed {
			reason = "closed"
		}
		evicted = append(evicted, eviction{peer: p, reason: reason})
	}
	obs.VerifiedConnections.Set(float64(len(s.reg.verified)))
	s.reg.verifiedMu.Unlock()

	for _, e := range evicted {
		obs.Info("poll.evict", obs.Fields{"id": e.peer.id, "remote": e.peer.RemoteAddr(), "reason": e.reason})
		s.forget(e.peer, e.reason)
	}
	s.opts.Limiter.Prune(time.Minute)
}

// drain feeds every line currently readable into the peer's Builder and returns the
// new idle count: 0 after any line, +1 once reading stops on a timeout or error, and
// idleClosed if the peer said CONNECTION CLOSED.
func (s *Server) drain(p *Peer, idle int) int {
	for {
		line, err := p.conn.ReadLine(s.opts.ReadTimeout)
		if err != nil {
			if !proto.IsTimeout(err) {
				obs.Debug("poll.read", obs.Fields{"id": p.id, "err": err.Error()})
			}
			return idle + 1
		}
		switch p.builder.Add(line) {
		case proto.ConnectionClosed:
			return idleClosed
		case proto.EndMessage:
			obs.MessagesTotal.Inc()
		}
		idle = 0
	}
}
