package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/evcharge-client/admin"
	"github.com/jrsteele09/evcharge-client/apiclient"
	"github.com/jrsteele09/evcharge-client/auth"
	"github.com/jrsteele09/evcharge-client/chargers"
	"github.com/jrsteele09/evcharge-client/internal/config"
	"github.com/jrsteele09/evcharge-client/routes"
	"github.com/jrsteele09/evcharge-client/session"
	"github.com/jrsteele09/evcharge-client/session/filestore"
	"github.com/jrsteele09/evcharge-client/session/memstore"
	"github.com/jrsteele09/evcharge-client/session/redisstore"
)

// app is everything a command needs, built once per invocation.
type app struct {
	cfg    config.Config
	logger zerolog.Logger
	out    io.Writer

	store    session.Store
	client   *apiclient.Client
	auth     *auth.Service
	chargers *chargers.Service
	admin    *admin.Service
	guard    *routes.Guard

	redirectedTo string
	redis        *redis.Client
}

func newApp(ctx context.Context, cfg config.Config, logger zerolog.Logger, out io.Writer) (*app, error) {
	a := &app{cfg: cfg, logger: logger, out: out}

	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	a.store = store

	a.client = apiclient.NewFromConfig(cfg, store,
		apiclient.WithLogger(logger.With().Str("component", "apiclient").Logger()),
		apiclient.WithRedirector(apiclient.RedirectFunc(a.redirect)),
	)
	a.auth = auth.NewService(a.client, store, auth.WithLogger(logger))
	a.chargers = chargers.NewService(a.client, chargers.WithLogger(logger))
	a.admin = admin.NewService(a.client, admin.WithLogger(logger))
	a.guard = routes.NewGuard(store, routes.WithLogger(logger))
	return a, nil
}

func (a *app) openStore(ctx context.Context) (session.Store, error) {
	switch backend := strings.ToLower(a.cfg.GetSessionBackend()); backend {
	case config.BackendFile:
		return filestore.New(a.cfg.GetSessionFile()), nil
	case config.BackendMemory:
		return memstore.New(), nil
	case config.BackendRedis:
		client, err := redisstore.Connect(ctx, a.cfg.GetRedisAddr(), a.cfg.GetRedisPassword(), a.cfg.GetRedisDB())
		if err != nil {
			return nil, err
		}
		a.redis = client
		return redisstore.New(client, a.cfg.GetRedisKeyPrefix()), nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", backend)
	}
}

// redirect is the unauthenticated transition: the session is already cleared.
func (a *app) redirect(_ context.Context, path string) {
	a.redirectedTo = path
	fmt.Fprintf(a.out, "Session expired. Please log in again (%s).\n", path)
}

func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("closing redis")
		}
	}
}
