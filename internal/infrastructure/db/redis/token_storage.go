package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hirelane/portal/internal/core/ports"
)

const defaultSessionTTL = 24 * time.Hour

// TokenStorage keeps one bearer token per tab under a fixed key.
// Key format: portal:tab:<tab_id>:access_token
//
// Every read slides the expiry forward, so a slot lives for ttl after the
// tab was last used.
type TokenStorage struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTokenStorage creates a TokenStorage. A non-positive ttl falls back to
// 24 hours.
func NewTokenStorage(client *redis.Client, ttl time.Duration) *TokenStorage {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &TokenStorage{client: client, ttl: ttl}
}

// Slot returns the slot owned by tabID.
func (s *TokenStorage) Slot(tabID string) ports.TokenStorage {
	return &tokenSlot{client: s.client, ttl: s.ttl, key: tokenKey(tabID)}
}

func tokenKey(tabID string) string {
	return fmt.Sprintf("portal:tab:%s:access_token", tabID)
}

type tokenSlot struct {
	client *redis.Client
	ttl    time.Duration
	key    string
}

func (s *tokenSlot) Load(ctx context.Context) (string, error) {
	token, err := s.client.GetEx(ctx, s.key, s.ttl).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load token: %w", err)
	}
	return token, nil
}

func (s *tokenSlot) Save(ctx context.Context, token string) error {
	if err := s.client.Set(ctx, s.key, token, s.ttl).Err(); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

func (s *tokenSlot) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}
