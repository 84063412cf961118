package server

import (
	"context"
	"sync"
)

// gate blocks a background task while closed. Opening it wakes every waiter at once by
// closing the current wake channel.
type gate struct {
	mu   sync.Mutex
	open bool
	wake chan struct{}
}

func newGate() *gate { return &gate{wake: make(chan struct{})} }

func (g *gate) isOpen() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.open
}

func (g *gate) set(open bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if open && !g.open {
		close(g.wake)
		g.wake = make(chan struct{})
	}
	g.open = open
}

// wait returns true once the gate is open, or false if ctx ends first.
func (g *gate) wait(ctx context.Context) bool {
	for {
		g.mu.Lock()
		if g.open {
			g.mu.Unlock()
			return true
		}
		wake := g.wake
		g.mu.Unlock()
		select {
		case <-ctx.Done():
			return false
		case <-wake:
		}
	}
}
