// Package auth implements login, registration and logout on top of the
// session HTTP client.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jrsteele09/evcharge-client/apiclient"
	"github.com/jrsteele09/evcharge-client/internal/errors"
	"github.com/jrsteele09/evcharge-client/routes"
	"github.com/jrsteele09/evcharge-client/session"
	"github.com/jrsteele09/evcharge-client/users"
)

const (
	loginPath    = "/auth/login"
	registerPath = "/auth/register"
	profilePath  = "/auth/profile"
)

type Service struct {
	client    *apiclient.Client
	store     session.Store
	validator *Validator
	logger    zerolog.Logger
}

type ServiceOption func(*Service)

func WithLogger(l zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = l
	}
}

// NewService uses store for the session the client reads its credential from.
func NewService(client *apiclient.Client, store session.Store, opts ...ServiceOption) *Service {
	s := &Service{
		client:    client,
		store:     store,
		validator: NewValidator(),
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login posts the credentials and saves the session on success. A 401 here is
// a wrong password, so the call never triggers the refresh path. Pending hosts
// get a LoginPending result and nothing is written.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	if err := s.validator.ValidateUserCredentials(email, password); err != nil {
		return LoginResult{}, err
	}

	var lr loginResponse
	err := s.client.PostJSON(ctx, loginPath, loginRequest{Email: strings.TrimSpace(email), Password: password}, &lr, apiclient.WithoutRefresh())
	if err != nil {
		var httpErr *apiclient.HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusForbidden {
			s.logger.Info().Str("email", email).Msg("login refused, host pending")
			return LoginResult{Status: LoginPending, Message: messageOr(httpErr.Message, DefaultForbiddenMessage)}, nil
		}
		return LoginResult{}, err
	}

	if lr.Role == users.RolePendingHost {
		s.logger.Info().Str("email", email).Msg("login refused, host pending")
		return LoginResult{Status: LoginPending, Message: messageOr(lr.Message, DefaultPendingMessage)}, nil
	}
	if lr.Token == "" {
		return LoginResult{}, errors.Wrapf(errors.ErrNoToken, "login failed")
	}

	id := lr.identity()
	if err := s.store.Save(ctx, session.Session{Token: lr.Token, Identity: id}); err != nil {
		return LoginResult{}, errors.Wrapf(err, "save session")
	}
	s.logger.Info().Str("email", id.Email).Str("role", id.Role.String()).Msg("logged in")

	return LoginResult{
		Status:   LoginOK,
		Identity: id,
		Message:  lr.Message,
		Redirect: routes.DefaultPath(id.Role),
	}, nil
}

// Register creates an account. Host registrations come back pending.
func (s *Service) Register(ctx context.Context, reg Registration) (RegisterResult, error) {
	reg.Email = strings.TrimSpace(reg.Email)
	if err := s.validator.ValidateRegistration(&reg); err != nil {
		return RegisterResult{}, err
	}

	var rr registerResponse
	if err := s.client.PostJSON(ctx, registerPath, reg, &rr, apiclient.WithoutRefresh()); err != nil {
		return RegisterResult{}, err
	}

	if rr.Role == users.RolePendingHost {
		return RegisterResult{Role: rr.Role, Pending: true, Message: messageOr(rr.Message, DefaultRegisterPending)}, nil
	}
	return RegisterResult{Role: rr.Role, Message: messageOr(rr.Message, DefaultRegistered)}, nil
}

// Profile fetches the signed in account from the server.
func (s *Service) Profile(ctx context.Context) (users.Profile, error) {
	var p users.Profile
	if err := s.client.GetJSON(ctx, profilePath, &p); err != nil {
		return users.Profile{}, err
	}
	return p, nil
}

// Logout drops the stored session and returns the login path.
func (s *Service) Logout(ctx context.Context) (string, error) {
	if err := s.store.Clear(ctx); err != nil {
		return "", errors.Wrapf(err, "clear session")
	}
	s.logger.Info().Msg("logged out")
	return routes.PathLogin, nil
}

// Current returns the stored session or session.ErrNoSession.
func (s *Service) Current(ctx context.Context) (session.Session, error) {
	return s.store.Load(ctx)
}

func messageOr(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}
