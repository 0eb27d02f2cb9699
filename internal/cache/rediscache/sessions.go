package rediscache

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Sessions keeps token -> userID mappings in Redis with a TTL.
type Sessions struct {
	c   *redis.Client
	ttl time.Duration
}

func NewSessions(addr string, ttl time.Duration) *Sessions {
	return &Sessions{
		c:   redis.NewClient(&redis.Options{Addr: addr}),
		ttl: ttl,
	}
}

func (s *Sessions) Create(ctx context.Context, userID string) (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "session token")
	}
	token := hex.EncodeToString(buf)
	if err := s.c.Set(ctx, sessionKey(token), userID, s.ttl).Err(); err != nil {
		return "", errors.Wrap(err, "redis session set")
	}
	return token, nil
}

func (s *Sessions) Get(ctx context.Context, token string) (string, bool, error) {
	val, err := s.c.Get(ctx, sessionKey(token)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "redis session get")
	}
	return val, true, nil
}

func (s *Sessions) Delete(ctx context.Context, token string) error {
	if err := s.c.Del(ctx, sessionKey(token)).Err(); err != nil && err != redis.Nil {
		return errors.Wrap(err, "redis session del")
	}
	return nil
}

func sessionKey(token string) string {
	return "session:" + token
}
