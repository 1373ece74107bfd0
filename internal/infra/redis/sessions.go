package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/fencer/internal/core/domain"
)

func sessionKey(id string) string {
	return fmt.Sprintf("session:%s", id)
}

// CacheSession stores a session with a TTL matching its expiry. A
// cache write failure is the caller's signal to fall back to the
// database; it never invalidates the session itself.
func (c *Client) CacheSession(ctx context.Context, s *domain.Session, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := c.rdb.Set(ctx, sessionKey(s.ID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache session: %w", err)
	}
	return nil
}

// GetSession looks up a cached session. A miss returns (nil, nil).
func (c *Client) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	raw, err := c.rdb.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached session: %w", err)
	}

	var s domain.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached session: %w", err)
	}
	return &s, nil
}

// DropSession removes a session from the cache (logout/revocation).
func (c *Client) DropSession(ctx context.Context, id string) error {
	if err := c.rdb.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to drop cached session: %w", err)
	}
	return nil
}
