package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"clinic-portal/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const profileCacheKeyPrefix = "profile:"

// CachedProfile is a profile snapshot with the time it was read from the database.
type CachedProfile struct {
	Profile  entity.Profile `json:"profile"`
	CachedAt time.Time      `json:"cached_at"`
}

// IsFresh reports whether the snapshot is younger than ttl.
func (c *CachedProfile) IsFresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(c.CachedAt) < ttl
}

// ProfileCache keeps the last known profile per user. Entries outlive their
// freshness window so they can serve as a fallback when the database is unreachable.
type ProfileCache interface {
	// Get returns nil, nil on a miss.
	Get(ctx context.Context, userID uuid.UUID) (*CachedProfile, error)
	Set(ctx context.Context, profile *entity.Profile) error
	Invalidate(ctx context.Context, userID uuid.UUID) error
}

type redisProfileCache struct {
	client *redis.Client
	retain time.Duration
	now    func() time.Time
}

// NewProfileCache creates a Redis backed cache; retain bounds how long a stale
// entry may still be served as a fallback.
func NewProfileCache(client *redis.Client, retain time.Duration) ProfileCache {
	return &redisProfileCache{client: client, retain: retain, now: time.Now}
}

func profileCacheKey(userID uuid.UUID) string {
	return profileCacheKeyPrefix + userID.String()
}

func (c *redisProfileCache) Get(ctx context.Context, userID uuid.UUID) (*CachedProfile, error) {
	raw, err := c.client.Get(ctx, profileCacheKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var cached CachedProfile
	if err := json.Unmarshal(raw, &cached); err != nil {
		// Unreadable entries are treated as a miss and dropped.
		c.client.Del(ctx, profileCacheKey(userID))
		return nil, nil
	}
	return &cached, nil
}

func (c *redisProfileCache) Set(ctx context.Context, profile *entity.Profile) error {
	raw, err := json.Marshal(CachedProfile{Profile: *profile, CachedAt: c.now().UTC()})
	if err != nil {
		return err
	}
	return c.client.Set(ctx, profileCacheKey(profile.ID), raw, c.retain).Err()
}

func (c *redisProfileCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	return c.client.Del(ctx, profileCacheKey(userID)).Err()
}
