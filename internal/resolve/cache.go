package resolve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Snapshot is the cached view of a record for resolution. Status is part
// of the snapshot so an inactive code never redirects from cache either.
type Snapshot struct {
	QRCodeID       string `json:"qr_code_id"`
	Status         string `json:"status"`
	DestinationURL string `json:"destination_url"`
}

// Cache stores short-lived snapshots keyed by short code. A miss is
// (nil, nil). The TTL bounds how stale a status flip can be served.
type Cache interface {
	GetSnapshot(ctx context.Context, shortCode string) (*Snapshot, error)
	SetSnapshot(ctx context.Context, shortCode string, snap Snapshot) error
}

type redisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) Cache {
	return &redisCache{rdb: rdb, ttl: ttl}
}

func cacheKey(shortCode string) string {
	return "qr:" + shortCode
}

func (c *redisCache) GetSnapshot(ctx context.Context, shortCode string) (*Snapshot, error) {
	raw, err := c.rdb.Get(ctx, cacheKey(shortCode)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read snapshot cache: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, fmt.Errorf("failed to decode cached snapshot: %w", err)
	}
	return &snap, nil
}

func (c *redisCache) SetSnapshot(ctx context.Context, shortCode string, snap Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := c.rdb.Set(ctx, cacheKey(shortCode), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write snapshot cache: %w", err)
	}
	return nil
}
