package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"adaptive-learning-platform/internal/logger"
	"adaptive-learning-platform/models"
	"adaptive-learning-platform/utils"
)

// RedisRetrievalCache caches reranked retrieval results in Redis, keyed
// by the hash of the normalized query. Cache failures degrade to a miss;
// retrieval never depends on Redis being up.
type RedisRetrievalCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisRetrievalCache(client *redis.Client, ttl time.Duration) *RedisRetrievalCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisRetrievalCache{client: client, ttl: ttl}
}

func (c *RedisRetrievalCache) key(query string) string {
	return "retrieval:" + utils.HashText(query)
}

func (c *RedisRetrievalCache) Get(ctx context.Context, query string) (*models.RetrievalResult, bool) {
	data, err := c.client.Get(ctx, c.key(query)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warn("Retrieval cache read failed", "error", err)
		}
		return nil, false
	}

	var result models.RetrievalResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, false
	}
	return &result, true
}

func (c *RedisRetrievalCache) Set(ctx context.Context, query string, result *models.RetrievalResult) {
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.key(query), data, c.ttl).Err(); err != nil {
		logger.Warn("Retrieval cache write failed", "error", err)
	}
}

// Invalidate drops all cached retrieval entries. Called after a reindex
// run changes the underlying chunks.
func (c *RedisRetrievalCache) Invalidate(ctx context.Context) {
	iter := c.client.Scan(ctx, 0, "retrieval:*", 100).Iterator()
	for iter.Next(ctx) {
		c.client.Del(ctx, iter.Val())
	}
	if err := iter.Err(); err != nil {
		logger.Warn("Retrieval cache invalidation failed", "error", err)
	}
}
