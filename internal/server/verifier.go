package server

import (
	"context"
	"strings"
	"time"

	"github.com/matst80/linewire/internal/obs"
	"github.com/matst80/linewire/internal/proto"
)

// runVerifier checks pending connections once per PollInterval while the acceptAny
// gate is open. Failure counters only advance on cycles that actually run.
func (s *Server) runVerifier(ctx context.Context) error {
	t := time.NewTicker(s.opts.PollInterval)
	defer t.Stop()
	for {
		if !s.acceptAny.wait(ctx) {
			return nil
		}
		s.verifyPending()
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

// verifyPending runs one verifier cycle over every pending connection.
func (s *Server) verifyPending() {
	passcode := s.Passcode()
	var admitted []*Peer
	abandoned := 0

	s.reg.pendingMu.Lock()
	for c, fails := range s.reg.pending {
		line, err := c.ReadLine(s.opts.ReadTimeout)
		closing := err == nil && proto.Classify(line) == proto.ConnectionClosed
		if !closing && (passcode == "" || (err == nil && strings.EqualFold(line, passcode))) {
			delete(s.reg.pending, c)
			p := newPeer(c)
			s.reg.verifiedMu.Lock()
			s.reg.verified[p] = 0
			obs.VerifiedConnections.Set(float64(len(s.reg.verified)))
			s.reg.verifiedMu.Unlock()
			if werr := c.WriteLines(proto.ConnectionConfirmed.String()); werr != nil {
				obs.Error("verify.confirm", obs.Fields{"id": p.id, "err": werr.Error()})
				obs.ErrorsTotal.WithLabelValues("confirm_write").Inc()
			}
			admitted = append(admitted, p)
			continue
		}
		fails++
		if fails >= s.opts.MaxFailures || closing {
			delete(s.reg.pending, c)
			c.ForceClose()
			abandoned++
			obs.Info("verify.abandon", obs.Fields{"remote": c.RemoteAddr().String(), "failures": fails, "closed_by_peer": closing})
			continue
		}
		s.reg.pending[c] = fails
	}
	obs.PendingConnections.Set(float64(len(s.reg.pending)))
	s.reg.pendingMu.Unlock()

	obs.AbandonedTotal.Add(float64(abandoned))
	for _, p := range admitted {
		obs.AdmittedTotal.Inc()
		obs.Info("verify.admit", obs.Fields{"id": p.id, "remote": p.RemoteAddr()})
		s.track(p)
	}
}
