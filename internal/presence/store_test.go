package presence

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exercise(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	a := Entry{ID: uuid.NewString(), Remote: "127.0.0.1:1000", ConnectedAt: now}
	b := Entry{ID: uuid.NewString(), Remote: "127.0.0.1:1001", ConnectedAt: now.Add(time.Second)}

	require.NoError(t, s.Register(ctx, b))
	require.NoError(t, s.Register(ctx, a))

	got, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, a.ID, got[0].ID)
	assert.Equal(t, b.ID, got[1].ID)

	require.NoError(t, s.Unregister(ctx, a.ID))
	got, err = s.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, b.Remote, got[0].Remote)

	require.NoError(t, s.Unregister(ctx, b.ID))
	got, err = s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryStore(t *testing.T) {
	exercise(t, NewMemoryStore())
}

func TestFactoryDefaultsToMemory(t *testing.T) {
	s, err := NewStore(context.Background(), RedisOptions{})
	require.NoError(t, err)
	_, ok := s.(*MemoryStore)
	assert.True(t, ok)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("LINEWIRE_TEST_REDIS")
	if addr == "" {
		t.Skip("LINEWIRE_TEST_REDIS not set")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s, err := NewRedisStore(ctx, RedisOptions{Addr: addr, Prefix: "linewire-test-" + uuid.NewString()[:8]})
	require.NoError(t, err)
	defer s.Close()
	exercise(t, s)
}
