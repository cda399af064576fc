package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/models"
)

const redisProfileKeyPrefix = "vidtube:channel-profile:"

// RedisClient is the subset of the go-redis client used by RedisProfileCache.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisProfileCache shares cached channel profiles between API replicas.
type RedisProfileCache struct {
	client RedisClient
	ttl    time.Duration
}

// NewRedisProfileCache wraps client with the provided TTL.
func NewRedisProfileCache(client RedisClient, ttl time.Duration) *RedisProfileCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisProfileCache{client: client, ttl: ttl}
}

func (c *RedisProfileCache) Get(ctx context.Context, username string) (models.ChannelProfile, bool) {
	raw, err := c.client.Get(ctx, redisProfileKeyPrefix+cacheKey(username)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logging.FromContext(ctx).Warn("profile cache get failed", "username", username, "error", err)
		}
		return models.ChannelProfile{}, false
	}

	var profile models.ChannelProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		logging.FromContext(ctx).Warn("profile cache entry corrupt", "username", username, "error", err)
		return models.ChannelProfile{}, false
	}
	return profile, true
}

func (c *RedisProfileCache) Set(ctx context.Context, profile models.ChannelProfile) {
	profile.IsSubscribed = false

	raw, err := json.Marshal(profile)
	if err != nil {
		logging.FromContext(ctx).Warn("profile cache encode failed", "username", profile.Username, "error", err)
		return
	}
	if err := c.client.Set(ctx, redisProfileKeyPrefix+cacheKey(profile.Username), raw, c.ttl).Err(); err != nil {
		logging.FromContext(ctx).Warn("profile cache set failed", "username", profile.Username, "error", err)
	}
}

func (c *RedisProfileCache) Delete(ctx context.Context, usernames ...string) {
	if len(usernames) == 0 {
		return
	}
	keys := make([]string, 0, len(usernames))
	for _, username := range usernames {
		keys = append(keys, redisProfileKeyPrefix+cacheKey(username))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		logging.FromContext(ctx).Warn("profile cache delete failed", "usernames", usernames, "error", err)
	}
}
