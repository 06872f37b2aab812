package routes

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/jrsteele09/evcharge-client/internal/errors"
	"github.com/jrsteele09/evcharge-client/session"
	"github.com/jrsteele09/evcharge-client/users"
)

// Decision is the outcome of a guard check. When Allowed is false Redirect
// holds the path the user is sent to instead.
type Decision struct {
	Allowed  bool
	Path     string
	Redirect string
	Session  session.Session
}

// Target is where the user ends up.
func (d Decision) Target() string {
	if d.Allowed {
		return d.Path
	}
	return d.Redirect
}

type Guard struct {
	store  session.Store
	logger zerolog.Logger
}

type GuardOption func(*Guard)

func WithLogger(l zerolog.Logger) GuardOption {
	return func(g *Guard) {
		g.logger = l
	}
}

func NewGuard(store session.Store, opts ...GuardOption) *Guard {
	g := &Guard{store: store, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Check admits the stored session when its role is one of allowed. Without a
// session the user is sent to the login page; with the wrong role to their own
// dashboard. Only storage failures are returned as errors.
func (g *Guard) Check(ctx context.Context, allowed ...users.Role) (Decision, error) {
	s, err := g.store.Load(ctx)
	switch {
	case errors.Is(err, errors.ErrNoSession), errors.Is(err, errors.ErrInvalidSession):
		g.logger.Debug().Err(err).Msg("no usable session")
		return Decision{Redirect: PathLogin}, nil
	case err != nil:
		return Decision{}, errors.Wrapf(err, "load session")
	}

	for _, role := range allowed {
		if role == s.Identity.Role {
			return Decision{Allowed: true, Session: s}, nil
		}
	}
	return Decision{Redirect: DefaultPath(s.Identity.Role), Session: s}, nil
}

// Navigate applies the route table to path. Unknown paths fall back to the
// login page and public pages need no session.
func (g *Guard) Navigate(ctx context.Context, path string) (Decision, error) {
	p := Clean(path)
	route, ok := Resolve(p)
	if !ok {
		g.logger.Debug().Str("path", p).Msg("unknown route")
		return Decision{Redirect: PathLogin}, nil
	}
	if route.Public {
		return Decision{Allowed: true, Path: p}, nil
	}

	d, err := g.Check(ctx, route.Roles...)
	if err != nil {
		return Decision{}, err
	}
	if d.Allowed {
		d.Path = p
	}
	return d, nil
}
