package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/jrsteele09/evcharge-client/session"
)

var _ session.Store = (*Store)(nil)

// replaceToken sets KEYS[1] to ARGV[2] only while it still holds ARGV[1] and
// the identity key KEYS[2] exists.
var replaceToken = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] and redis.call("EXISTS", KEYS[2]) == 1 then
	redis.call("SET", KEYS[1], ARGV[2])
	return 1
end
return 0
`)

// Store keeps the two session entries as redis strings under a common prefix.
// Save and Clear touch both keys in one transaction.
type Store struct {
	client *redis.Client
	prefix string
}

func New(client *redis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

// Connect opens a client and pings it before handing it back.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func (s *Store) tokenKey() string { return s.prefix + session.TokenKey }
func (s *Store) userKey() string  { return s.prefix + session.UserKey }

func (s *Store) Token(ctx context.Context) (string, error) {
	token, err := s.client.Get(ctx, s.tokenKey()).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get token: %w", err)
	}
	return token, nil
}

func (s *Store) Load(ctx context.Context) (session.Session, error) {
	values, err := s.client.MGet(ctx, s.tokenKey(), s.userKey()).Result()
	if err != nil {
		return session.Session{}, fmt.Errorf("redis load session: %w", err)
	}
	token, _ := values[0].(string)
	user, _ := values[1].(string)
	return session.FromEntries(token, user)
}

func (s *Store) Save(ctx context.Context, sess session.Session) error {
	if err := session.CheckSave(sess); err != nil {
		return err
	}
	user, err := session.EncodeIdentity(sess.Identity)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, s.tokenKey(), sess.Token, 0)
		p.Set(ctx, s.userKey(), user, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save session: %w", err)
	}
	return nil
}

func (s *Store) SetToken(ctx context.Context, token string) error {
	if err := s.client.Set(ctx, s.tokenKey(), token, 0).Err(); err != nil {
		return fmt.Errorf("redis set token: %w", err)
	}
	return nil
}

func (s *Store) ReplaceToken(ctx context.Context, stale, fresh string) (bool, error) {
	n, err := replaceToken.Run(ctx, s.client, []string{s.tokenKey(), s.userKey()}, stale, fresh).Int()
	if err != nil {
		return false, fmt.Errorf("redis replace token: %w", err)
	}
	return n == 1, nil
}

func (s *Store) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.tokenKey(), s.userKey()).Err(); err != nil {
		return fmt.Errorf("redis clear session: %w", err)
	}
	return nil
}
