package cache_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"memoria/internal/cache"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newMemory(t *testing.T) (*cache.Memory, *clock) {
	t.Helper()

	c := &clock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	m := &cache.Memory{Logger: slog.New(slog.DiscardHandler), Clock: c.Now}
	require.NoError(t, m.Init(context.Background()))

	return m, c
}

func TestMemory(t *testing.T) {
	t.Parallel()

	t.Run("miss", func(t *testing.T) {
		t.Parallel()
		m, _ := newMemory(t)

		v, ok, err := m.Get(context.Background(), "nope")
		require.NoError(t, err)
		require.False(t, ok)
		require.Nil(t, v)
	})

	t.Run("hit until expiry", func(t *testing.T) {
		t.Parallel()
		m, c := newMemory(t)
		ctx := context.Background()

		require.NoError(t, m.Put(ctx, "k", []byte("v"), time.Minute))

		v, ok, err := m.Get(ctx, "k")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, []byte("v"), v)

		c.Advance(time.Minute)

		_, ok, err = m.Get(ctx, "k")
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("stored value is a copy", func(t *testing.T) {
		t.Parallel()
		m, _ := newMemory(t)
		ctx := context.Background()

		buf := []byte("abc")
		require.NoError(t, m.Put(ctx, "k", buf, time.Minute))
		buf[0] = 'x'

		v, _, err := m.Get(ctx, "k")
		require.NoError(t, err)
		require.Equal(t, []byte("abc"), v)
	})

	t.Run("sweep", func(t *testing.T) {
		t.Parallel()
		m, c := newMemory(t)
		ctx := context.Background()

		require.NoError(t, m.Put(ctx, "short", []byte("1"), time.Second))
		require.NoError(t, m.Put(ctx, "long", []byte("2"), time.Hour))

		c.Advance(time.Minute)
		require.Equal(t, 1, m.Sweep())
		require.Equal(t, 0, m.Sweep())

		_, ok, err := m.Get(ctx, "long")
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("run stops with context", func(t *testing.T) {
		t.Parallel()
		m, _ := newMemory(t)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error)
		go func() { done <- m.Run(ctx) }()

		cancel()
		require.NoError(t, <-done)
	})
}
