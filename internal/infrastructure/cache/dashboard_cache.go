// Package cache stores computed read models in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const dashboardKeyPrefix = "invoicely:dashboard:"

// DashboardCache keeps one JSON dashboard snapshot per tenant.
type DashboardCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDashboardCache returns a cache that is a no-op when client is nil.
func NewDashboardCache(client *redis.Client, ttl time.Duration) *DashboardCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &DashboardCache{client: client, ttl: ttl}
}

func dashboardKey(tenantID uuid.UUID) string {
	return dashboardKeyPrefix + tenantID.String()
}

// Get decodes the cached snapshot into dst and reports whether it existed.
func (c *DashboardCache) Get(ctx context.Context, tenantID uuid.UUID, dst any) (bool, error) {
	if c == nil || c.client == nil {
		return false, nil
	}
	data, err := c.client.Get(ctx, dashboardKey(tenantID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// Set stores v with the configured TTL.
func (c *DashboardCache) Set(ctx context.Context, tenantID uuid.UUID, v any) error {
	if c == nil || c.client == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, dashboardKey(tenantID), data, c.ttl).Err()
}

// Invalidate drops the tenant snapshot after an invoice write.
func (c *DashboardCache) Invalidate(ctx context.Context, tenantID uuid.UUID) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, dashboardKey(tenantID)).Err()
}

// NewRedisClient connects and pings the server.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
