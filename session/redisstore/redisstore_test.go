package redisstore_test

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/jrsteele09/evcharge-client/session"
	"github.com/jrsteele09/evcharge-client/session/redisstore"
	"github.com/jrsteele09/evcharge-client/session/storetest"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := redisstore.Connect(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) session.Store {
		client, _ := newClient(t)
		return redisstore.New(client, "evcharge:session:")
	})
}

func TestStore_KeyLayout(t *testing.T) {
	ctx := context.Background()
	client, mr := newClient(t)
	s := redisstore.New(client, "test:")

	require.NoError(t, s.Save(ctx, session.Session{Token: "tok-1", Identity: storetest.Identity}))

	token, err := mr.Get("test:token")
	require.NoError(t, err)
	require.Equal(t, "tok-1", token)

	user, err := mr.Get("test:user")
	require.NoError(t, err)
	require.Contains(t, user, `"role":"HOST"`)

	require.NoError(t, s.Clear(ctx))
	require.False(t, mr.Exists("test:token"))
	require.False(t, mr.Exists("test:user"))
}

func TestConnect_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := redisstore.Connect(context.Background(), addr, "", 0)
	require.Error(t, err)
}
