package personnel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/citypd/platform/internal/auth"
	"github.com/citypd/platform/internal/shared/types"
)

const principalKeyPrefix = "principal:"

// PrincipalCache keeps resolved principals in Redis so the auth middleware
// does not hit the database on every request
type PrincipalCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewPrincipalCache creates a cache. A nil client disables caching.
func NewPrincipalCache(client *redis.Client, ttl time.Duration) *PrincipalCache {
	return &PrincipalCache{redis: client, ttl: ttl}
}

// IsEnabled returns whether caching is active
func (c *PrincipalCache) IsEnabled() bool {
	return c != nil && c.redis != nil && c.ttl > 0
}

func principalKey(id types.ID) string {
	return principalKeyPrefix + id.String()
}

// Get returns a cached principal. ok is false on a miss.
func (c *PrincipalCache) Get(ctx context.Context, id types.ID) (auth.Principal, bool, error) {
	if !c.IsEnabled() {
		return auth.Principal{}, false, nil
	}

	data, err := c.redis.Get(ctx, principalKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return auth.Principal{}, false, nil
	}
	if err != nil {
		return auth.Principal{}, false, fmt.Errorf("failed to get principal: %w", err)
	}

	var p auth.Principal
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return auth.Principal{}, false, fmt.Errorf("failed to unmarshal principal: %w", err)
	}
	return p, true, nil
}

// Set caches a principal for the configured TTL
func (c *PrincipalCache) Set(ctx context.Context, p auth.Principal) error {
	if !c.IsEnabled() {
		return nil
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal principal: %w", err)
	}
	if err := c.redis.Set(ctx, principalKey(p.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set principal: %w", err)
	}
	return nil
}

// Invalidate drops a cached principal
func (c *PrincipalCache) Invalidate(ctx context.Context, id types.ID) error {
	if !c.IsEnabled() {
		return nil
	}
	if err := c.redis.Del(ctx, principalKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate principal: %w", err)
	}
	return nil
}
