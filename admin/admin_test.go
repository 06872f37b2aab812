package admin_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/evcharge-client/admin"
	"github.com/jrsteele09/evcharge-client/apiclient"
	"github.com/jrsteele09/evcharge-client/internal/apitest"
	"github.com/jrsteele09/evcharge-client/internal/errors"
	"github.com/jrsteele09/evcharge-client/session"
	"github.com/jrsteele09/evcharge-client/session/memstore"
	"github.com/jrsteele09/evcharge-client/users"
)

func serviceFor(t *testing.T, srv *apitest.Server, role users.Role) *admin.Service {
	t.Helper()
	id := srv.AddAccount(apitest.Account{Email: string(role) + "@example.com", Password: "pw", Role: role})
	store := memstore.New()
	require.NoError(t, store.Save(context.Background(), session.Session{
		Token:    srv.IssueToken(id),
		Identity: users.Identity{Role: role},
	}))
	return admin.NewService(apiclient.New(srv.BaseURL(), store))
}

func TestHostApproval(t *testing.T) {
	ctx := context.Background()
	srv := apitest.New(t)
	svc := serviceFor(t, srv, users.RoleAdmin)

	first := srv.AddAccount(apitest.Account{Email: "one@host.com", Password: "pw", FirstName: "One", Phone: "1", Role: users.RolePendingHost})
	second := srv.AddAccount(apitest.Account{Email: "two@host.com", Password: "pw", FirstName: "Two", Phone: "2", Role: users.RolePendingHost})

	pending, err := svc.PendingHosts(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, first, pending[0].UserID)
	require.Equal(t, "one@host.com", pending[0].Email)

	t.Run("approve", func(t *testing.T) {
		msg, err := svc.ApproveHost(ctx, first)
		require.NoError(t, err)
		require.Equal(t, "Host approved successfully", msg)
		require.Equal(t, users.RoleHost, srv.AccountRole(first))
	})

	t.Run("reject", func(t *testing.T) {
		msg, err := svc.RejectHost(ctx, second)
		require.NoError(t, err)
		require.Equal(t, "Host rejected and removed", msg)
		require.Empty(t, srv.AccountRole(second))
	})

	t.Run("nothing left pending", func(t *testing.T) {
		pending, err := svc.PendingHosts(ctx)
		require.NoError(t, err)
		require.Empty(t, pending)
	})

	t.Run("approving twice is not found", func(t *testing.T) {
		_, err := svc.ApproveHost(ctx, first)
		require.ErrorIs(t, err, errors.ErrNotFound)
		require.Equal(t, "Pending host not found", apiclient.ServerMessage(err))
	})
}

func TestHostApproval_RequiresAdmin(t *testing.T) {
	ctx := context.Background()
	srv := apitest.New(t)
	svc := serviceFor(t, srv, users.RoleHost)

	_, err := svc.PendingHosts(ctx)
	require.ErrorIs(t, err, apiclient.ErrValidation)
	require.Equal(t, "Access denied", apiclient.ServerMessage(err))
	require.Zero(t, srv.RefreshCount())
}
