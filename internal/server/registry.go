package server

import (
	"sync"

	"github.com/matst80/linewire/internal/proto"
)

// registry holds the two connection maps. A connection lives in exactly one of them.
// Each map has its own lock; when both are needed the pending lock is taken first.
// sync.Mutex hands the lock over in FIFO order once a waiter starves, which is the
// fairness the scans rely on.
type registry struct {
	pendingMu sync.Mutex
	pending   map[*proto.Conn]int // failure count

	verifiedMu sync.Mutex
	verified   map[*Peer]int // idle count
}

func newRegistry() *registry {
	return &registry{
		pending:  make(map[*proto.Conn]int),
		verified: make(map[*Peer]int),
	}
}

func (r *registry) addPending(c *proto.Conn) int {
	r.pendingMu.Lock()
	defer r.pendingMu.Unlock()
	r.pending[c] = 0
	return len(r.pending)
}

// snapshot copies the verified set; later registry changes are not reflected.
func (r *registry) snapshot() []*Peer {
	r.verifiedMu.Lock()
	defer r.verifiedMu.Unlock()
	out := make([]*Peer, 0, len(r.verified))
	for p := range r.verified {
		out = append(out, p)
	}
	return out
}

func (r *registry) pendingCount() int {
	r.pendingMu.Lock()
	defer r.pendingMu.Unlock()
	return len(r.pending)
}

func (r *registry) verifiedCount() int {
	r.verifiedMu.Lock()
	defer r.verifiedMu.Unlock()
	return len(r.verified)
}

func (r *registry) failures(c *proto.Conn) (int, bool) {
	r.pendingMu.Lock()
	defer r.pendingMu.Unlock()
	n, ok := r.pending[c]
	return n, ok
}

func (r *registry) idle(p *Peer) (int, bool) {
	r.verifiedMu.Lock()
	defer r.verifiedMu.Unlock()
	n, ok := r.verified[p]
	return n, ok
}
