package rbac

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const cacheVersionKey = "rbac:assignments:version"

// CachedStore wraps an AssignmentStore with a short-TTL Redis snapshot of
// raw assignment rows. Resolved results are never cached; every read still
// recomputes from the rows, so correctness only depends on the snapshot
// being recent, which the TTL and mutation-time Bump guarantee.
type CachedStore struct {
	inner  AssignmentStore
	client *redis.Client
	ttl    time.Duration
}

// NewCachedStore builds the caching decorator. With a nil client it degrades
// to a pass-through.
func NewCachedStore(inner AssignmentStore, client *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{inner: inner, client: client, ttl: ttl}
}

// FindByUserID serves the assignment list from Redis when present,
// populating it from the inner store otherwise.
func (c *CachedStore) FindByUserID(ctx context.Context, userID uuid.UUID) ([]RoleAssignment, error) {
	if c.client == nil {
		return c.inner.FindByUserID(ctx, userID)
	}
	key, err := c.buildKey(ctx, userID)
	if err != nil {
		return c.inner.FindByUserID(ctx, userID)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var assignments []RoleAssignment
		if err := json.Unmarshal(payload, &assignments); err == nil {
			return assignments, nil
		}
	} else if err != redis.Nil {
		return nil, err
	}
	assignments, err := c.inner.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(assignments); err == nil {
		_ = c.client.Set(ctx, key, raw, c.ttl).Err()
	}
	return assignments, nil
}

// Bump invalidates every cached snapshot by moving the global version.
func (c *CachedStore) Bump(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, cacheVersionKey).Err()
}

func (c *CachedStore) buildKey(ctx context.Context, userID uuid.UUID) (string, error) {
	ver, err := c.version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("rbac:assignments:%s:%d", userID, ver), nil
}

func (c *CachedStore) version(ctx context.Context) (int64, error) {
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if err == redis.Nil {
		if err := c.client.Set(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}
