package users_test

import (
	"testing"

	"github.com/jrsteele09/evcharge-client/users"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	t.Run("known roles", func(t *testing.T) {
		for in, want := range map[string]users.Role{
			"USER":         users.RoleUser,
			"host":         users.RoleHost,
			" Admin ":      users.RoleAdmin,
			"PENDING_HOST": users.RolePendingHost,
		} {
			got, err := users.ParseRole(in)
			require.NoError(t, err)
			require.Equal(t, want, got)
		}
	})

	t.Run("unknown role", func(t *testing.T) {
		_, err := users.ParseRole("SUPERUSER")
		require.Error(t, err)
	})
}

func TestRole_Registrable(t *testing.T) {
	require.True(t, users.RoleUser.Registrable())
	require.True(t, users.RoleHost.Registrable())
	require.False(t, users.RoleAdmin.Registrable())
	require.False(t, users.RolePendingHost.Registrable())
}

func TestIdentity_FullNameAndCreated(t *testing.T) {
	id := users.Identity{Email: "a@b.com", CreatedAt: "2025-03-01T10:15:30"}
	require.Equal(t, "a@b.com", id.FullName())

	created, ok := id.Created()
	require.True(t, ok)
	require.Equal(t, 2025, created.Year())

	id.FirstName, id.LastName = "Ada", "Lovelace"
	require.Equal(t, "Ada Lovelace", id.FullName())

	_, ok = users.Identity{CreatedAt: "yesterday"}.Created()
	require.False(t, ok)
}
