package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "session:"

// RedisSessions keeps a random session ID in the cookie and the identity
// claim in Redis, so logging out revokes the session server-side.
type RedisSessions struct {
	rdb        *redis.Client
	cookieName string
	ttl        time.Duration
}

func NewRedisSessions(rdb *redis.Client, cookieName string, ttl time.Duration) *RedisSessions {
	return &RedisSessions{
		rdb:        rdb,
		cookieName: cookieName,
		ttl:        ttl,
	}
}

func (s *RedisSessions) Save(ctx context.Context, response http.ResponseWriter, userID string) error {
	id, err := newSessionID()
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, sessionKeyPrefix+id, userID, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	http.SetCookie(response, sessionCookie(s.cookieName, id, s.ttl))

	return nil
}

func (s *RedisSessions) UserID(ctx context.Context, request *http.Request) (string, error) {
	cookie, err := request.Cookie(s.cookieName)
	if err != nil || cookie.Value == "" {
		return "", nil
	}

	userID, err := s.rdb.Get(ctx, sessionKeyPrefix+cookie.Value).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get: %w", err)
	}

	return userID, nil
}

func (s *RedisSessions) Clear(ctx context.Context, response http.ResponseWriter, request *http.Request) error {
	http.SetCookie(response, expiredCookie(s.cookieName))

	cookie, err := request.Cookie(s.cookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	if err := s.rdb.Del(ctx, sessionKeyPrefix+cookie.Value).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}

	return nil
}

func newSessionID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("rand: %w", err)
	}

	return hex.EncodeToString(b), nil
}
