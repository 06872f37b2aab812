package apitest

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strings"

	"github.com/jrsteele09/evcharge-client/users"
)

type contextKey string

const contextKeyAccount contextKey = "account"

func ChainMiddleware(routeFunction http.HandlerFunc, mw ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	chainedHandler := routeFunction
	// Apply middleware in reverse order
	for i := len(mw) - 1; i >= 0; i-- {
		chainedHandler = mw[i](chainedHandler)
	}
	return chainedHandler
}

// APIMiddleware is applied to every route.
func (s *Server) APIMiddleware(mw ...func(http.HandlerFunc) http.HandlerFunc) []func(http.HandlerFunc) http.HandlerFunc {
	return append([]func(http.HandlerFunc) http.HandlerFunc{s.RecordMiddleware, s.LoggingMiddleware}, mw...)
}

func (s *Server) RecordMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.record(r)
		next(w, r)
	}
}

func (s *Server) LoggingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug().Str("method", r.Method).Str("path", r.URL.Path).Msg("request")
		next(w, r)
	}
}

// RequireAuth validates the bearer credential and loads its account.
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeMessage(w, http.StatusUnauthorized, "Missing or malformed Authorization header")
				return
			}

			claims, err := s.tokens.Verify(token)
			if err != nil {
				writeMessage(w, http.StatusUnauthorized, "Token expired or invalid")
				return
			}

			acct, err := s.accounts.GetByID(claims.UserID)
			if err != nil {
				writeMessage(w, http.StatusUnauthorized, "Unknown user")
				return
			}

			ctx := context.WithValue(r.Context(), contextKeyAccount, acct)
			next(w, r.WithContext(ctx))
		}
	}
}

// RequireRole must follow RequireAuth.
func (s *Server) RequireRole(roles ...users.Role) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			acct := accountFrom(r)
			if acct == nil || !slices.Contains(roles, acct.Role) {
				writeMessage(w, http.StatusForbidden, "Access denied")
				return
			}
			next(w, r)
		}
	}
}

func accountFrom(r *http.Request) *account {
	acct, _ := r.Context().Value(contextKeyAccount).(*account)
	return acct
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
