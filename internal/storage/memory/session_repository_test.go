package memory

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront-cart/internal/cart"
	"github.com/vladislavdragonenkov/storefront-cart/internal/domain"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newStore() *cart.Store { return cart.NewStore() }

func newRepoWithClock(options ...SessionOption) (*SessionRepository, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)}
	repo := NewSessionRepository(options...)
	repo.now = clock.now
	return repo, clock
}

func TestSessionRepository_GetOrCreate(t *testing.T) {
	repo := NewSessionRepository()
	calls := 0
	factory := func() *cart.Store {
		calls++
		return cart.NewStore()
	}

	first, created := repo.GetOrCreate("s-1", factory)
	require.True(t, created)
	second, created := repo.GetOrCreate(" s-1 ", factory)
	require.False(t, created)

	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, repo.Len())
}

func TestSessionRepository_Get(t *testing.T) {
	repo := NewSessionRepository()

	_, err := repo.Get("missing")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)

	store, _ := repo.GetOrCreate("s-1", newStore)
	got, err := repo.Get("s-1")
	require.NoError(t, err)
	assert.Same(t, store, got)
}

func TestSessionRepository_MaxSessionsEvictsLeastRecentlySeen(t *testing.T) {
	repo, clock := newRepoWithClock(WithMaxSessions(2))

	repo.GetOrCreate("s-1", newStore)
	clock.t = clock.t.Add(time.Second)
	repo.GetOrCreate("s-2", newStore)
	clock.t = clock.t.Add(time.Second)
	_, err := repo.Get("s-1")
	require.NoError(t, err)
	clock.t = clock.t.Add(time.Second)

	_, created := repo.GetOrCreate("s-3", newStore)
	require.True(t, created)

	assert.Equal(t, 2, repo.Len())
	assert.Equal(t, 1, repo.Evicted())
	_, err = repo.Get("s-2")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = repo.Get("s-1")
	require.NoError(t, err)
}

func TestSessionRepository_MaxSessionsBoundsGrowth(t *testing.T) {
	repo := NewSessionRepository(WithMaxSessions(100))

	for i := 0; i < 5000; i++ {
		repo.GetOrCreate(fmt.Sprintf("s-%d", i), newStore)
	}

	assert.Equal(t, 100, repo.Len())
	assert.Equal(t, 4900, repo.Evicted())
}

func TestSessionRepository_ExistingSessionNotEvicted(t *testing.T) {
	repo := NewSessionRepository(WithMaxSessions(1))

	first, _ := repo.GetOrCreate("s-1", newStore)
	again, created := repo.GetOrCreate("s-1", newStore)

	assert.False(t, created)
	assert.Same(t, first, again)
	assert.Zero(t, repo.Evicted())
}

func TestSessionRepository_DeleteExpired(t *testing.T) {
	repo, clock := newRepoWithClock()

	repo.GetOrCreate("old-1", newStore)
	repo.GetOrCreate("old-2", newStore)
	clock.t = clock.t.Add(time.Hour)
	repo.GetOrCreate("fresh", newStore)

	cutoff := clock.t.Add(-30 * time.Minute)

	deleted, err := repo.DeleteExpired(cutoff, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	deleted, err = repo.DeleteExpired(cutoff, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	assert.Equal(t, 1, repo.Len())
	_, err = repo.Get("fresh")
	require.NoError(t, err)
}

func TestSessionRepository_TouchExtendsLifetime(t *testing.T) {
	repo, clock := newRepoWithClock()

	repo.GetOrCreate("s-1", newStore)
	clock.t = clock.t.Add(time.Hour)
	_, err := repo.Get("s-1")
	require.NoError(t, err)

	deleted, err := repo.DeleteExpired(clock.t.Add(-time.Minute), 0)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}
