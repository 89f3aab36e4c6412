package provision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Cache stores computed recommendations in Redis for a short TTL. The
// recommendation is a pure aggregation over receivables, so staleness is
// bounded and acceptable for dashboard use.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper. A nil client disables caching.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func cacheKey(tenantID uuid.UUID) string {
	return fmt.Sprintf("provision:recommendation:%s", tenantID)
}

// Get loads a cached recommendation; the second return reports a hit.
func (c *Cache) Get(ctx context.Context, tenantID uuid.UUID) (Recommendation, bool, error) {
	if c == nil || c.client == nil {
		return Recommendation{}, false, nil
	}
	raw, err := c.client.Get(ctx, cacheKey(tenantID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Recommendation{}, false, nil
	}
	if err != nil {
		return Recommendation{}, false, err
	}
	var rec Recommendation
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Recommendation{}, false, err
	}
	return rec, true, nil
}

// Set stores a recommendation.
func (c *Cache) Set(ctx context.Context, tenantID uuid.UUID, rec Recommendation) error {
	if c == nil || c.client == nil {
		return nil
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKey(tenantID), raw, c.ttl).Err()
}

// Invalidate drops the cached recommendation, called after provision or
// write-off postings change the picture.
func (c *Cache) Invalidate(ctx context.Context, tenantID uuid.UUID) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, cacheKey(tenantID)).Err()
}
