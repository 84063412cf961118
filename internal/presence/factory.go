package presence

import (
	"context"

	"github.com/matst80/linewire/internal/obs"
)

// NewStore creates either an in-memory or Redis-backed store based on configuration.
// The Redis heartbeat runs until ctx is cancelled.
func NewStore(ctx context.Context, opts RedisOptions) (Store, error) {
	if opts.Addr == "" {
		obs.Info("presence.backend", obs.Fields{"type": "in-memory"})
		return NewMemoryStore(), nil
	}
	obs.Info("presence.backend", obs.Fields{"type": "redis", "addr": opts.Addr})
	s, err := NewRedisStore(ctx, opts)
	if err != nil {
		return nil, err
	}
	go s.Run(ctx)
	return s, nil
}
