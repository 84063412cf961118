package main

import (
	"testing"

	"github.com/matst80/linewire/internal/proto"
	"github.com/matst80/linewire/internal/transport"
	"github.com/stretchr/testify/assert"
)

type recordingPeer struct {
	b    *proto.Builder
	sent [][]string
}

func (p *recordingPeer) ID() string                         { return "peer-1" }
func (p *recordingPeer) RemoteAddr() string                 { return "127.0.0.1:1" }
func (p *recordingPeer) Messages() transport.MessageBuilder { return p.b }

func (p *recordingPeer) Send(lines ...string) error {
	p.sent = append(p.sent, lines)
	return nil
}

func TestDrainPeerEcho(t *testing.T) {
	p := &recordingPeer{b: proto.NewBuilder()}
	for _, l := range []string{"a", "MESSAGE COMPLETE", "b", "MESSAGE COMPLETE"} {
		p.b.Add(l)
	}

	assert.Equal(t, 2, drainPeer(p, true))
	assert.Equal(t, [][]string{{"a", "MESSAGE COMPLETE"}, {"b", "MESSAGE COMPLETE"}}, p.sent)
	assert.Equal(t, 0, drainPeer(p, true))
}

func TestDrainPeerNoEcho(t *testing.T) {
	p := &recordingPeer{b: proto.NewBuilder()}
	p.b.Add("x")
	p.b.Add("CONNECTION CLOSED")

	assert.Equal(t, 1, drainPeer(p, false))
	assert.Empty(t, p.sent)
}
