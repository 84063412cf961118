package server

import (
	"time"

	"github.com/google/uuid"
	"github.com/matst80/linewire/internal/presence"
	"github.com/matst80/linewire/internal/proto"
	"github.com/matst80/linewire/internal/transport"
)

// Peer is a verified connection paired with the Builder that frames its input.
type Peer struct {
	id          string
	conn        *proto.Conn
	builder     *proto.Builder
	connectedAt time.Time
}

func newPeer(c *proto.Conn) *Peer {
	return &Peer{id: uuid.NewString(), conn: c, builder: proto.NewBuilder(), connectedAt: time.Now()}
}

var _ transport.Peer = (*Peer)(nil)

func (p *Peer) ID() string             { return p.id }
func (p *Peer) RemoteAddr() string     { return p.conn.RemoteAddr().String() }
func (p *Peer) ConnectedAt() time.Time { return p.connectedAt }

// Send writes lines to the peer in order.
func (p *Peer) Send(lines ...string) error { return p.conn.WriteLines(lines...) }

// Messages returns the peer's framed input.
func (p *Peer) Messages() transport.MessageBuilder { return p.builder }

func (p *Peer) entry() presence.Entry {
	return presence.Entry{ID: p.id, Remote: p.RemoteAddr(), ConnectedAt: p.connectedAt}
}
