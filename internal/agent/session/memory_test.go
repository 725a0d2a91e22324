package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lepestok-ai/server/internal/agent/model"
	errx "github.com/lepestok-ai/server/internal/core/error"
)

// newTestStore returns a store with a controllable clock and a sweep that
// never fires on its own.
func newTestStore(t *testing.T, ttl time.Duration) (*MemoryStore, *time.Time) {
	t.Helper()
	current := time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore(ttl, time.Hour)
	s.now = func() time.Time { return current }
	t.Cleanup(func() { _ = s.Close() })
	return s, &current
}

func TestMemoryGetOrCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("empty id generates a fresh one", func(t *testing.T) {
		s, _ := newTestStore(t, time.Hour)
		sess, err := s.GetOrCreate(ctx, "")
		require.NoError(t, err)
		assert.NotEmpty(t, sess.ID)
	})

	t.Run("supplied id is preserved", func(t *testing.T) {
		s, _ := newTestStore(t, time.Hour)
		sess, err := s.GetOrCreate(ctx, "chat-42")
		require.NoError(t, err)
		assert.Equal(t, "chat-42", sess.ID)
	})

	t.Run("second call returns the live session", func(t *testing.T) {
		s, _ := newTestStore(t, time.Hour)
		_, err := s.GetOrCreate(ctx, "chat-42")
		require.NoError(t, err)
		_, err = s.Update(ctx, "chat-42", func(m *model.Session) {
			m.AppendTurn(model.RoleUser, "привет", s.now())
		})
		require.NoError(t, err)

		again, err := s.GetOrCreate(ctx, "chat-42")
		require.NoError(t, err)
		assert.Len(t, again.Turns, 1)
	})

	t.Run("expired id yields a fresh session under the same id", func(t *testing.T) {
		s, clock := newTestStore(t, time.Hour)
		first, err := s.GetOrCreate(ctx, "chat-42")
		require.NoError(t, err)

		*clock = clock.Add(2 * time.Hour)
		again, err := s.GetOrCreate(ctx, "chat-42")
		require.NoError(t, err)
		assert.Equal(t, "chat-42", again.ID)
		assert.True(t, again.CreatedAt.After(first.CreatedAt))
		assert.Empty(t, again.Turns)
	})
}

func TestMemoryGet(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown id is not found", func(t *testing.T) {
		s, _ := newTestStore(t, time.Hour)
		_, err := s.Get(ctx, "nope")
		require.ErrorIs(t, err, errx.ErrNotFound)
	})

	t.Run("expired session reads as not found before the sweep runs", func(t *testing.T) {
		s, clock := newTestStore(t, time.Hour)
		_, err := s.GetOrCreate(ctx, "chat-42")
		require.NoError(t, err)

		*clock = clock.Add(61 * time.Minute)
		_, err = s.Get(ctx, "chat-42")
		require.ErrorIs(t, err, errx.ErrNotFound)
	})

	t.Run("read at the boundary is still live", func(t *testing.T) {
		s, clock := newTestStore(t, time.Hour)
		_, err := s.GetOrCreate(ctx, "chat-42")
		require.NoError(t, err)

		*clock = clock.Add(59 * time.Minute)
		_, err = s.Get(ctx, "chat-42")
		require.NoError(t, err)
	})
}

func TestMemoryUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("mutation persists and the deadline slides", func(t *testing.T) {
		s, clock := newTestStore(t, time.Hour)
		created, err := s.GetOrCreate(ctx, "chat-42")
		require.NoError(t, err)

		*clock = clock.Add(30 * time.Minute)
		updated, err := s.Update(ctx, "chat-42", func(m *model.Session) {
			m.Recipient = model.RecipientMom
		})
		require.NoError(t, err)
		assert.Equal(t, model.RecipientMom, updated.Recipient)
		assert.True(t, updated.ExpiresAt.After(created.ExpiresAt))

		got, err := s.Get(ctx, "chat-42")
		require.NoError(t, err)
		assert.Equal(t, model.RecipientMom, got.Recipient)
	})

	t.Run("unknown or expired id fails", func(t *testing.T) {
		s, clock := newTestStore(t, time.Hour)
		_, err := s.Update(ctx, "nope", func(*model.Session) {})
		require.ErrorIs(t, err, errx.ErrNotFound)

		_, err = s.GetOrCreate(ctx, "chat-42")
		require.NoError(t, err)
		*clock = clock.Add(2 * time.Hour)
		_, err = s.Update(ctx, "chat-42", func(*model.Session) {})
		require.ErrorIs(t, err, errx.ErrNotFound)
	})
}

func TestMemoryDelete(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, time.Hour)

	_, err := s.GetOrCreate(ctx, "chat-42")
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, "chat-42"))
	_, err = s.Get(ctx, "chat-42")
	require.ErrorIs(t, err, errx.ErrNotFound)

	// deleting again is fine
	require.NoError(t, s.Delete(ctx, "chat-42"))
}

func TestMemoryStatsAndSweep(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t, time.Hour)

	_, err := s.GetOrCreate(ctx, "old")
	require.NoError(t, err)
	*clock = clock.Add(45 * time.Minute)
	_, err = s.GetOrCreate(ctx, "fresh")
	require.NoError(t, err)

	*clock = clock.Add(30 * time.Minute) // "old" is now past its deadline

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Live: 1, Expired: 1}, stats)

	s.sweep()

	stats, err = s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Live: 1, Expired: 0}, stats)
}

func TestMemoryCloneIsolation(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, time.Hour)

	_, err := s.GetOrCreate(ctx, "chat-42")
	require.NoError(t, err)
	got, err := s.Get(ctx, "chat-42")
	require.NoError(t, err)

	got.AppendTurn(model.RoleUser, "mutated copy", s.now())
	got.Cart.Items = append(got.Cart.Items, model.CartItem{ProductID: "p1"})

	stored, err := s.Get(ctx, "chat-42")
	require.NoError(t, err)
	assert.Empty(t, stored.Turns)
	assert.Empty(t, stored.Cart.Items)
}

func TestNewStore(t *testing.T) {
	t.Run("redis driver requires a client", func(t *testing.T) {
		_, err := NewStore(StoreTypeRedis)
		require.ErrorIs(t, err, errx.ErrInvalidConfig)
	})

	t.Run("unknown driver is rejected", func(t *testing.T) {
		_, err := NewStore(StoreType("cassandra"))
		require.ErrorIs(t, err, errx.ErrInvalidConfig)
	})

	t.Run("memory driver builds", func(t *testing.T) {
		s, err := NewStore(StoreTypeMemory, WithTTL(time.Minute), WithSweepInterval(time.Minute))
		require.NoError(t, err)
		require.NoError(t, s.Close())
	})
}
