package main

import (
	"context"
	"time"

	"github.com/matst80/linewire/internal/obs"
	"github.com/matst80/linewire/internal/presence"
	"github.com/matst80/linewire/internal/server"
)

// Stats represents current server stats for dashboards & API.
type Stats struct {
	server.Stats
	Peers []presence.Entry `json:"peers"`
	Now   string           `json:"now"`
}

func collectStats(ctx context.Context, srv *server.Server, store presence.Store) Stats {
	st := Stats{Stats: srv.Stats(), Now: time.Now().UTC().Format(time.RFC3339)}
	peers, err := store.List(ctx)
	if err != nil {
		obs.Error("stats.presence", obs.Fields{"err": err.Error()})
	}
	st.Peers = peers
	return st
}

// ToTemplateMap returns a map suited for html/template rendering with expected capitalized keys.
func (s Stats) ToTemplateMap() map[string]any {
	return map[string]any{
		"Address":      s.Address,
		"Passcode":     s.Passcode,
		"AcceptingAny": s.AcceptingAny,
		"AcceptingNew": s.AcceptingNew,
		"Pending":      s.Pending,
		"Verified":     s.Verified,
		"Peers":        s.Peers,
	}
}
