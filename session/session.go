// Package session holds the client-side login state: an opaque bearer
// credential plus the identity record returned at login. Both live in a Store
// injected into the API client and the route guard.
package session

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/jrsteele09/evcharge-client/internal/errors"
	"github.com/jrsteele09/evcharge-client/users"
)

// Entry names shared by every Store backend
const (
	TokenKey = "token"
	UserKey  = "user"
)

// ErrNoSession is returned by Load when either entry is missing.
var ErrNoSession = errors.ErrNoSession

// Session pairs the credential with the identity record. A session exists only
// when both are present.
type Session struct {
	Token    string
	Identity users.Identity
}

// Valid reports whether both halves of the session are present.
func (s Session) Valid() bool {
	return strings.TrimSpace(s.Token) != "" && s.Identity.Role != ""
}

// Store persists a single active session. Token and identity are written and
// cleared together; only SetToken and ReplaceToken touch one entry, for
// in-place refresh.
type Store interface {
	// Token returns the stored credential, or "" when none is stored.
	Token(ctx context.Context) (string, error)

	// Load returns the session, or ErrNoSession when either entry is absent.
	Load(ctx context.Context) (Session, error)

	// Save replaces any stored session with s.
	Save(ctx context.Context, s Session) error

	// SetToken overwrites the credential after a refresh.
	SetToken(ctx context.Context, token string) error

	// ReplaceToken swaps stale for fresh in one step. It writes nothing and
	// reports false unless the stored credential is still stale and the
	// identity entry is present, so a logout racing a refresh stays logged out.
	ReplaceToken(ctx context.Context, stale, fresh string) (bool, error)

	// Clear removes both entries.
	Clear(ctx context.Context) error
}

// EncodeIdentity serializes the identity for the "user" entry.
func EncodeIdentity(id users.Identity) (string, error) {
	b, err := json.Marshal(id)
	if err != nil {
		return "", errors.Wrapf(err, "encode identity")
	}
	return string(b), nil
}

// DecodeIdentity parses the "user" entry.
func DecodeIdentity(raw string) (users.Identity, error) {
	var id users.Identity
	if err := json.Unmarshal([]byte(raw), &id); err != nil {
		return users.Identity{}, errors.Wrapf(errors.ErrInvalidSession, "decode identity: %v", err)
	}
	return id, nil
}

// FromEntries rebuilds a session from the raw token and user entries.
func FromEntries(token, user string) (Session, error) {
	if token == "" || user == "" {
		return Session{}, ErrNoSession
	}
	id, err := DecodeIdentity(user)
	if err != nil {
		return Session{}, err
	}
	s := Session{Token: token, Identity: id}
	if !s.Valid() {
		return Session{}, ErrNoSession
	}
	return s, nil
}

// CheckSave rejects partial sessions before a backend writes anything.
func CheckSave(s Session) error {
	if !s.Valid() {
		return errors.Wrapf(errors.ErrInvalidSession, "session requires both token and identity")
	}
	return nil
}
