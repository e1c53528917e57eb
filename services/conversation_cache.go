package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/kendall-kelly/repair-hub-api/models"
	"github.com/redis/go-redis/v9"
)

// ConversationCache stores per-user conversation summaries between writes.
// Get reports the user's cache version, and Set only stores summaries computed
// at that version, so a read racing a write never caches stale data.
type ConversationCache interface {
	Get(ctx context.Context, userID uint) ([]models.ConversationSummary, int64, bool)
	Set(ctx context.Context, userID uint, version int64, summaries []models.ConversationSummary)
	Invalidate(ctx context.Context, userIDs ...uint)
}

var conversationCacheInstance ConversationCache = NoopConversationCache{}

// InitConversationCache uses Redis when a client is available and a no-op cache otherwise
func InitConversationCache(client *redis.Client, ttl time.Duration) ConversationCache {
	if client == nil {
		conversationCacheInstance = NoopConversationCache{}
	} else {
		conversationCacheInstance = NewRedisConversationCache(client, ttl)
	}
	return conversationCacheInstance
}

// GetConversationCache returns the shared conversation cache
func GetConversationCache() ConversationCache {
	return conversationCacheInstance
}

// SetConversationCache sets the shared conversation cache (primarily for testing)
func SetConversationCache(cache ConversationCache) {
	conversationCacheInstance = cache
}

// ConversationCacheKey is the Redis key holding a user's summaries
func ConversationCacheKey(userID uint) string {
	return fmt.Sprintf("conversations:user:%d", userID)
}

// ConversationVersionKey is the Redis counter bumped on every invalidation
func ConversationVersionKey(userID uint) string {
	return fmt.Sprintf("conversations:user:%d:version", userID)
}

// RedisConversationCache keeps summaries as JSON values with a short TTL.
// Cache failures are logged and treated as misses.
type RedisConversationCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisConversationCache creates a Redis-backed conversation cache
func NewRedisConversationCache(client *redis.Client, ttl time.Duration) *RedisConversationCache {
	return &RedisConversationCache{client: client, ttl: ttl}
}

func (c *RedisConversationCache) Get(ctx context.Context, userID uint) ([]models.ConversationSummary, int64, bool) {
	values, err := c.client.MGet(ctx, ConversationCacheKey(userID), ConversationVersionKey(userID)).Result()
	if err != nil {
		slog.WarnContext(ctx, "conversation cache read failed", "user_id", userID, "error", err)
		return nil, -1, false
	}

	version, ok := parseVersion(values[1])
	if !ok {
		return nil, -1, false
	}
	data, ok := values[0].(string)
	if !ok {
		return nil, version, false
	}

	var summaries []models.ConversationSummary
	if err := json.Unmarshal([]byte(data), &summaries); err != nil {
		slog.WarnContext(ctx, "conversation cache entry unreadable", "user_id", userID, "error", err)
		return nil, version, false
	}
	return summaries, version, true
}

func (c *RedisConversationCache) Set(ctx context.Context, userID uint, version int64, summaries []models.ConversationSummary) {
	if version < 0 {
		return
	}
	data, err := json.Marshal(summaries)
	if err != nil {
		slog.WarnContext(ctx, "conversation cache marshal failed", "user_id", userID, "error", err)
		return
	}

	versionKey := ConversationVersionKey(userID)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, versionKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, ConversationCacheKey(userID), data, c.ttl)
			return nil
		})
		return err
	}, versionKey)
	if err != nil && !errors.Is(err, redis.TxFailedErr) {
		slog.WarnContext(ctx, "conversation cache write failed", "user_id", userID, "error", err)
	}
}

func (c *RedisConversationCache) Invalidate(ctx context.Context, userIDs ...uint) {
	var keys []string
	_, err := c.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range userIDs {
			if id == 0 {
				continue
			}
			keys = append(keys, ConversationCacheKey(id))
			pipe.Incr(ctx, ConversationVersionKey(id))
			pipe.Del(ctx, ConversationCacheKey(id))
		}
		return nil
	})
	if err != nil {
		slog.WarnContext(ctx, "conversation cache invalidation failed", "keys", keys, "error", err)
	}
}

// parseVersion reads a version counter; a missing counter is version 0
func parseVersion(v interface{}) (int64, bool) {
	if v == nil {
		return 0, true
	}
	str, ok := v.(string)
	if !ok {
		return 0, false
	}
	version, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return 0, false
	}
	return version, true
}

// NoopConversationCache never caches
type NoopConversationCache struct{}

func (NoopConversationCache) Get(context.Context, uint) ([]models.ConversationSummary, int64, bool) {
	return nil, 0, false
}

func (NoopConversationCache) Set(context.Context, uint, int64, []models.ConversationSummary) {}

func (NoopConversationCache) Invalidate(context.Context, ...uint) {}
