// Package storetest checks that a session.Store honours the shared contract.
package storetest

import (
	"context"
	"testing"

	"github.com/jrsteele09/evcharge-client/session"
	"github.com/jrsteele09/evcharge-client/users"
	"github.com/stretchr/testify/require"
)

// Identity is the identity record used by the contract tests.
var Identity = users.Identity{
	Role:      users.RoleHost,
	Email:     "host@example.com",
	FirstName: "Hana",
	LastName:  "Host",
	Phone:     "0400000000",
	CreatedAt: "2025-01-02T03:04:05",
}

// Run exercises newStore against the Store contract. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) session.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("empty store", func(t *testing.T) {
		s := newStore(t)
		token, err := s.Token(ctx)
		require.NoError(t, err)
		require.Empty(t, token)

		_, err = s.Load(ctx)
		require.ErrorIs(t, err, session.ErrNoSession)
	})

	t.Run("save and load", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Save(ctx, session.Session{Token: "tok-1", Identity: Identity}))

		token, err := s.Token(ctx)
		require.NoError(t, err)
		require.Equal(t, "tok-1", token)

		got, err := s.Load(ctx)
		require.NoError(t, err)
		require.Equal(t, "tok-1", got.Token)
		require.Equal(t, Identity, got.Identity)
	})

	t.Run("save replaces previous session", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Save(ctx, session.Session{Token: "tok-1", Identity: Identity}))

		admin := users.Identity{Role: users.RoleAdmin, Email: "admin@example.com"}
		require.NoError(t, s.Save(ctx, session.Session{Token: "tok-2", Identity: admin}))

		got, err := s.Load(ctx)
		require.NoError(t, err)
		require.Equal(t, "tok-2", got.Token)
		require.Equal(t, users.RoleAdmin, got.Identity.Role)
	})

	t.Run("partial session is rejected", func(t *testing.T) {
		s := newStore(t)
		require.Error(t, s.Save(ctx, session.Session{Token: "tok-1"}))
		require.Error(t, s.Save(ctx, session.Session{Identity: Identity}))

		token, err := s.Token(ctx)
		require.NoError(t, err)
		require.Empty(t, token)
	})

	t.Run("token only is not a session", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.SetToken(ctx, "orphan"))

		_, err := s.Load(ctx)
		require.ErrorIs(t, err, session.ErrNoSession)
	})

	t.Run("set token keeps identity", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Save(ctx, session.Session{Token: "stale", Identity: Identity}))
		require.NoError(t, s.SetToken(ctx, "fresh"))

		got, err := s.Load(ctx)
		require.NoError(t, err)
		require.Equal(t, "fresh", got.Token)
		require.Equal(t, Identity, got.Identity)
	})

	t.Run("replace token swaps a matching credential", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Save(ctx, session.Session{Token: "stale", Identity: Identity}))

		ok, err := s.ReplaceToken(ctx, "stale", "fresh")
		require.NoError(t, err)
		require.True(t, ok)

		got, err := s.Load(ctx)
		require.NoError(t, err)
		require.Equal(t, "fresh", got.Token)
		require.Equal(t, Identity, got.Identity)
	})

	t.Run("replace token refuses a different credential", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Save(ctx, session.Session{Token: "newer", Identity: Identity}))

		ok, err := s.ReplaceToken(ctx, "stale", "fresh")
		require.NoError(t, err)
		require.False(t, ok)

		token, err := s.Token(ctx)
		require.NoError(t, err)
		require.Equal(t, "newer", token)
	})

	t.Run("replace token after clear stays logged out", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Save(ctx, session.Session{Token: "stale", Identity: Identity}))
		require.NoError(t, s.Clear(ctx))

		ok, err := s.ReplaceToken(ctx, "stale", "fresh")
		require.NoError(t, err)
		require.False(t, ok)

		token, err := s.Token(ctx)
		require.NoError(t, err)
		require.Empty(t, token)
	})

	t.Run("replace token needs an identity", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.SetToken(ctx, "stale"))

		ok, err := s.ReplaceToken(ctx, "stale", "fresh")
		require.NoError(t, err)
		require.False(t, ok)

		token, err := s.Token(ctx)
		require.NoError(t, err)
		require.Equal(t, "stale", token)
	})

	t.Run("clear removes both entries", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Save(ctx, session.Session{Token: "tok-1", Identity: Identity}))
		require.NoError(t, s.Clear(ctx))

		token, err := s.Token(ctx)
		require.NoError(t, err)
		require.Empty(t, token)

		_, err = s.Load(ctx)
		require.ErrorIs(t, err, session.ErrNoSession)

		require.NoError(t, s.Clear(ctx))
	})
}
