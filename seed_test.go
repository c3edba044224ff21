package main

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitea.kood.tech/petrkubec/match-me/matchradar/logger"
	"gitea.kood.tech/petrkubec/match-me/matchradar/store"
)

func TestGenerateProfilesDeterministic(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	a, err := generateProfiles(rand.New(rand.NewSource(7)), 20, now)
	require.NoError(t, err)
	b, err := generateProfiles(rand.New(rand.NewSource(7)), 20, now)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := generateProfiles(rand.New(rand.NewSource(8)), 20, now)
	require.NoError(t, err)
	assert.NotEqual(t, a[5].ID, c[5].ID)

	assert.Equal(t, staticProfiles[0].Name, a[0].Name)
	assert.Equal(t, staticProfiles[1].Name, a[1].Name)
	require.NotNil(t, a[0].LastActiveAt)
	assert.True(t, now.Equal(*a[0].LastActiveAt))

	ids := map[string]bool{}
	for _, p := range a {
		assert.False(t, ids[p.ID], "duplicate id %s", p.ID)
		ids[p.ID] = true
		assert.NotEmpty(t, p.Name)
		assert.NotEmpty(t, p.Skills)
	}
}

func TestSeedProfiles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := env.now
	log := logger.NewTestLogger(t)

	n, err := seedProfiles(ctx, env.srv.store, seedOptions{Count: 6, Seed: 1, DismissRate: 1}, now, log)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	profiles, err := generateProfiles(rand.New(rand.NewSource(1)), 6, now)
	require.NoError(t, err)

	listed, err := env.srv.store.ListProfiles(ctx, profiles[0].ID, store.Filter{})
	require.NoError(t, err)
	assert.Len(t, listed, 4, "viewer and one dismissed member are excluded")

	t.Run("Rerun with truncate is idempotent", func(t *testing.T) {
		_, err := seedProfiles(ctx, env.srv.store, seedOptions{Count: 6, Seed: 1, Truncate: true}, now, log)
		require.NoError(t, err)
		listed, err := env.srv.store.ListProfiles(ctx, profiles[0].ID, store.Filter{})
		require.NoError(t, err)
		assert.Len(t, listed, 5)
	})

	t.Run("Invalid options", func(t *testing.T) {
		_, err := seedProfiles(ctx, env.srv.store, seedOptions{Count: 0}, now, log)
		assert.Error(t, err)
		_, err = seedProfiles(ctx, env.srv.store, seedOptions{Count: 1, DismissRate: 2}, now, log)
		assert.Error(t, err)
	})
}
