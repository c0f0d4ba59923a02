package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultResetWindow = 10 * time.Minute

// ResetThrottle remembers recent password-reset requests per address.
// Key format: portal:reset:<lowercased_email>
type ResetThrottle struct {
	client *redis.Client
	window time.Duration
}

// NewResetThrottle creates a ResetThrottle wrapping the given Redis client.
func NewResetThrottle(client *redis.Client, window time.Duration) *ResetThrottle {
	if window <= 0 {
		window = defaultResetWindow
	}
	return &ResetThrottle{client: client, window: window}
}

// Reserve claims email for the window with SET NX. It returns false when a
// reset for the address is already in flight or was sent inside the window.
func (t *ResetThrottle) Reserve(ctx context.Context, email string) (bool, error) {
	ok, err := t.client.SetNX(ctx, t.key(email), "1", t.window).Result()
	if err != nil {
		return false, fmt.Errorf("reset throttle reserve: %w", err)
	}
	return ok, nil
}

// Release drops a reservation so the address can retry at once.
func (t *ResetThrottle) Release(ctx context.Context, email string) error {
	if err := t.client.Del(ctx, t.key(email)).Err(); err != nil {
		return fmt.Errorf("reset throttle release: %w", err)
	}
	return nil
}

func (t *ResetThrottle) key(email string) string {
	return "portal:reset:" + strings.ToLower(strings.TrimSpace(email))
}
