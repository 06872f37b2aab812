package memstore

import (
	"context"
	"sync"

	"github.com/jrsteele09/evcharge-client/session"
)

var _ session.Store = (*Store)(nil)

// Store keeps the session in process memory.
type Store struct {
	mu    sync.RWMutex
	token string
	user  string
}

func New() *Store {
	return &Store{}
}

func (s *Store) Token(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, nil
}

func (s *Store) Load(_ context.Context) (session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return session.FromEntries(s.token, s.user)
}

func (s *Store) Save(_ context.Context, sess session.Session) error {
	if err := session.CheckSave(sess); err != nil {
		return err
	}
	user, err := session.EncodeIdentity(sess.Identity)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = sess.Token
	s.user = user
	return nil
}

func (s *Store) SetToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *Store) ReplaceToken(_ context.Context, stale, fresh string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != stale || s.user == "" {
		return false, nil
	}
	s.token = fresh
	return true, nil
}

func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.user = ""
	return nil
}
