package presence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/matst80/linewire/internal/obs"
	"github.com/redis/go-redis/v9"
)

// RedisStore mirrors entries into Redis. Every peer key carries a TTL that the owning
// instance refreshes from Run; keys of a crashed instance expire on their own.
type RedisStore struct {
	client     *redis.Client
	prefix     string
	instanceID string
	keyTTL     time.Duration
	heartbeat  time.Duration

	mu    sync.Mutex
	local map[string]Entry // entries registered by this instance
}

// RedisOptions configures a RedisStore. Zero values select defaults.
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	Prefix    string        // key prefix, default "linewire"
	KeyTTL    time.Duration // default 2m
	Heartbeat time.Duration // default 30s
}

func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{Addr: opts.Addr, Password: opts.Password, DB: opts.DB})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	s := &RedisStore{
		client:     rdb,
		prefix:     opts.Prefix,
		instanceID: "linewire-" + uuid.NewString(),
		keyTTL:     opts.KeyTTL,
		heartbeat:  opts.Heartbeat,
		local:      make(map[string]Entry),
	}
	if s.prefix == "" {
		s.prefix = "linewire"
	}
	if s.keyTTL <= 0 {
		s.keyTTL = 2 * time.Minute
	}
	if s.heartbeat <= 0 {
		s.heartbeat = 30 * time.Second
	}
	return s, nil
}

var _ Store = (*RedisStore)(nil)

func (r *RedisStore) peerKey(id string) string { return r.prefix + ":peer:" + id }
func (r *RedisStore) indexKey() string         { return r.prefix + ":peers" }

// InstanceID identifies this process in stored entries.
func (r *RedisStore) InstanceID() string { return r.instanceID }

func (r *RedisStore) Register(ctx context.Context, e Entry) error {
	e.Instance = r.instanceID
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal presence entry: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.peerKey(e.ID), data, r.keyTTL)
	pipe.SAdd(ctx, r.indexKey(), e.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis register failed: %w", err)
	}
	r.mu.Lock()
	r.local[e.ID] = e
	r.mu.Unlock()
	return nil
}

func (r *RedisStore) Unregister(ctx context.Context, id string) error {
	r.mu.Lock()
	delete(r.local, id)
	r.mu.Unlock()
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.peerKey(id))
	pipe.SRem(ctx, r.indexKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis unregister failed: %w", err)
	}
	return nil
}

// List returns every live entry across instances, dropping index members whose key
// has expired.
func (r *RedisStore) List(ctx context.Context) ([]Entry, error) {
	ids, err := r.client.SMembers(ctx, r.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list failed: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.peerKey(id)
	}
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget failed: %w", err)
	}
	out := make([]Entry, 0, len(vals))
	var stale []any
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(s), &e); err != nil {
			obs.Error("presence.redis.unmarshal", obs.Fields{"err": err.Error(), "id": ids[i]})
			continue
		}
		out = append(out, e)
	}
	if len(stale) > 0 {
		if err := r.client.SRem(ctx, r.indexKey(), stale...).Err(); err != nil {
			obs.Warn("presence.redis.prune", obs.Fields{"err": err.Error()})
		}
	}
	sortEntries(out)
	return out, nil
}

// Run refreshes TTLs of locally registered entries until ctx is done.
func (r *RedisStore) Run(ctx context.Context) {
	ticker := time.NewTicker(r.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

func (r *RedisStore) refresh(ctx context.Context) {
	r.mu.Lock()
	ids := make([]string, 0, len(r.local))
	for id := range r.local {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	for _, id := range ids {
		if err := r.client.Expire(ctx, r.peerKey(id), r.keyTTL).Err(); err != nil && !errors.Is(err, context.Canceled) {
			obs.Error("presence.redis.heartbeat", obs.Fields{"err": err.Error(), "id": id})
		}
	}
}

// Close removes this instance's entries and closes the client.
func (r *RedisStore) Close() error {
	r.mu.Lock()
	ids := make([]string, 0, len(r.local))
	for id := range r.local {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, id := range ids {
		if err := r.Unregister(ctx, id); err != nil {
			obs.Warn("presence.redis.close", obs.Fields{"err": err.Error(), "id": id})
		}
	}
	return r.client.Close()
}
