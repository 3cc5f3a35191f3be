// Package cache holds resolved permission sets in Redis. Keys embed a global version
// counter; any role, permission or assignment write bumps it, which orphans every
// previously cached set until its TTL reclaims it.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	apperrors "github.com/allisson/accessgate/internal/errors"
	"github.com/allisson/accessgate/internal/rbac/domain"
)

const versionKey = "accessgate:perms:version"

type cachedEntry struct {
	Resource string `json:"resource"`
	Action   string `json:"action"`
	Granted  bool   `json:"granted"`
	Source   string `json:"source"`
	Role     string `json:"role,omitempty"`
}

// RedisPermissionCache stores effective permission sets keyed by principal.
type RedisPermissionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// Get returns the cached set for userID. The boolean is false on a miss.
func (c *RedisPermissionCache) Get(ctx context.Context, userID uuid.UUID) (domain.PermissionSet, bool, error) {
	key, err := c.key(ctx, userID)
	if err != nil {
		return nil, false, err
	}

	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperrors.Wrap(err, "failed to read cached permissions")
	}

	var entries []cachedEntry
	if err := json.Unmarshal(payload, &entries); err != nil {
		return nil, false, apperrors.Wrap(err, "failed to decode cached permissions")
	}

	set := make(domain.PermissionSet, len(entries))
	for _, e := range entries {
		set[domain.PermissionKey{Resource: e.Resource, Action: e.Action}] = domain.PermissionEntry{
			Granted: e.Granted,
			Source:  e.Source,
			Role:    e.Role,
		}
	}
	return set, true, nil
}

// Set stores the set for userID under the current version.
func (c *RedisPermissionCache) Set(ctx context.Context, userID uuid.UUID, set domain.PermissionSet) error {
	key, err := c.key(ctx, userID)
	if err != nil {
		return err
	}

	entries := make([]cachedEntry, 0, len(set))
	for _, k := range set.Keys() {
		entry := set[k]
		entries = append(entries, cachedEntry{
			Resource: k.Resource,
			Action:   k.Action,
			Granted:  entry.Granted,
			Source:   entry.Source,
			Role:     entry.Role,
		})
	}

	payload, err := json.Marshal(entries)
	if err != nil {
		return apperrors.Wrap(err, "failed to encode permissions")
	}

	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return apperrors.Wrap(err, "failed to cache permissions")
	}
	return nil
}

// Invalidate bumps the version, orphaning every cached set.
func (c *RedisPermissionCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, versionKey).Err(); err != nil {
		return apperrors.Wrap(err, "failed to invalidate permission cache")
	}
	return nil
}

func (c *RedisPermissionCache) key(ctx context.Context, userID uuid.UUID) (string, error) {
	version, err := c.client.Get(ctx, versionKey).Int64()
	if errors.Is(err, redis.Nil) {
		version = 0
	} else if err != nil {
		return "", apperrors.Wrap(err, "failed to read permission cache version")
	}
	return fmt.Sprintf("accessgate:perms:%d:%s", version, userID), nil
}

// NewRedisPermissionCache creates a Redis-backed permission cache.
func NewRedisPermissionCache(client *redis.Client, ttl time.Duration) *RedisPermissionCache {
	return &RedisPermissionCache{client: client, ttl: ttl}
}

// NoopPermissionCache never stores anything. Used when no Redis URL is configured.
type NoopPermissionCache struct{}

// Get always misses.
func (NoopPermissionCache) Get(context.Context, uuid.UUID) (domain.PermissionSet, bool, error) {
	return nil, false, nil
}

// Set discards the set.
func (NoopPermissionCache) Set(context.Context, uuid.UUID, domain.PermissionSet) error {
	return nil
}

// Invalidate does nothing.
func (NoopPermissionCache) Invalidate(context.Context) error {
	return nil
}

// NewRedisClient parses url and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to parse redis url")
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, apperrors.Wrap(err, "failed to ping redis")
	}

	return client, nil
}
