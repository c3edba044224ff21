package scorecache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"gitea.kood.tech/petrkubec/match-me/matchradar/logger"
	"gitea.kood.tech/petrkubec/match-me/matchradar/scoring"
)

var (
	pair  = Key{Viewer: "viewer-1", Candidate: "cand-9"}
	entry = Entry{
		Breakdown: scoring.Breakdown{BusinessSynergy: 70, SolutionMatch: 80, BusinessTrends: 60,
			GrowthPhaseMatch: 50, UrgencyAlignment: 40, ResourceComplement: 64},
		Score: 64,
	}
)

func TestKeyString(t *testing.T) {
	assert.Equal(t, "match:score:viewer-1:cand-9", pair.String())
}

func TestMemory(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	newMemory := func() (*Memory, *time.Time) {
		now := base
		m := NewMemory(30*time.Minute, logger.NewTestLogger(t))
		m.now = func() time.Time { return now }
		return m, &now
	}

	t.Run("put then get", func(t *testing.T) {
		m, _ := newMemory()
		require.NoError(t, m.Put(ctx, pair, entry))

		got, ok, err := m.Get(ctx, pair)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, entry.Breakdown, got.Breakdown)
		assert.Equal(t, base, got.ComputedAt)

		_, ok, _ = m.Get(ctx, Key{Viewer: "cand-9", Candidate: "viewer-1"})
		assert.False(t, ok, "pairs are ordered")
	})

	t.Run("stale entries hidden then swept", func(t *testing.T) {
		m, now := newMemory()
		require.NoError(t, m.Put(ctx, pair, entry))
		other := Key{Viewer: "viewer-1", Candidate: "cand-2"}

		*now = base.Add(20 * time.Minute)
		require.NoError(t, m.Put(ctx, other, entry))

		*now = base.Add(31 * time.Minute)
		_, ok, _ := m.Get(ctx, pair)
		assert.False(t, ok)
		_, ok, _ = m.Get(ctx, other)
		assert.True(t, ok)

		assert.Equal(t, 1, m.Sweep(*now))
		assert.Equal(t, 1, m.Len())
	})

	t.Run("delete", func(t *testing.T) {
		m, _ := newMemory()
		require.NoError(t, m.Put(ctx, pair, entry))
		require.NoError(t, m.Delete(ctx, pair))
		assert.Equal(t, 0, m.Len())
	})
}

func TestMemoryRunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	m := NewMemory(time.Millisecond, nil)
	require.NoError(t, m.Put(context.Background(), pair, entry))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, 2*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, 2*time.Millisecond)
	cancel()
	<-done
}

func TestMemoryRunRejectsZeroInterval(t *testing.T) {
	m := NewMemory(time.Minute, nil)
	assert.NotPanics(t, func() { m.Run(context.Background(), 0) })
}

func TestRedis(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cache := NewRedis(client, 30*time.Minute)
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	require.NoError(t, cache.Ping(ctx))

	t.Run("miss", func(t *testing.T) {
		_, ok, err := cache.Get(ctx, Key{Viewer: "x", Candidate: "y"})
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("round trip with ttl", func(t *testing.T) {
		require.NoError(t, cache.Put(ctx, pair, entry))
		assert.True(t, mr.Exists(pair.String()))
		assert.Equal(t, 30*time.Minute, mr.TTL(pair.String()))

		got, ok, err := cache.Get(ctx, pair)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, entry.Score, got.Score)
		assert.Equal(t, entry.Breakdown, got.Breakdown)
		assert.True(t, now.Equal(got.ComputedAt))
	})

	t.Run("stale entry ignored", func(t *testing.T) {
		old := entry
		old.ComputedAt = now.Add(-time.Hour)
		require.NoError(t, cache.Put(ctx, pair, old))
		_, ok, err := cache.Get(ctx, pair)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("expired by ttl", func(t *testing.T) {
		require.NoError(t, cache.Put(ctx, pair, entry))
		mr.FastForward(31 * time.Minute)
		_, ok, err := cache.Get(ctx, pair)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("corrupt value is an error", func(t *testing.T) {
		require.NoError(t, mr.Set(pair.String(), "{not json"))
		_, _, err := cache.Get(ctx, pair)
		assert.Error(t, err)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, cache.Put(ctx, pair, entry))
		require.NoError(t, cache.Delete(ctx, pair))
		assert.False(t, mr.Exists(pair.String()))
	})

	t.Run("server down", func(t *testing.T) {
		mr.Close()
		_, _, err := cache.Get(ctx, pair)
		assert.Error(t, err)
		assert.Error(t, cache.Put(ctx, pair, entry))
	})
}
