package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"vrlearn.app/beacon/internal/model"
)

// Cache is a best-effort result cache backed by Redis. A nil *Cache is a
// valid, disabled cache: Get always misses and Set is a no-op, so callers
// never branch on whether caching is configured.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache connects to Redis at redisURL. It pings once so a misconfigured
// URL fails at startup rather than on the first request.
func NewCache(ctx context.Context, redisURL string, ttl time.Duration) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Cache{client: client, ttl: ttl}, nil
}

func (c *Cache) Get(ctx context.Context, query string, topK int) *model.RecommendationResult {
	if c == nil {
		return nil
	}
	raw, err := c.client.Get(ctx, cacheKey(query, topK)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.WarnContext(ctx, "cache read failed", "error", err)
		}
		return nil
	}
	var result model.RecommendationResult
	if err := json.Unmarshal(raw, &result); err != nil {
		slog.WarnContext(ctx, "cache entry corrupt, ignoring", "error", err)
		return nil
	}
	return &result
}

func (c *Cache) Set(ctx context.Context, query string, topK int, result *model.RecommendationResult) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(result)
	if err != nil {
		slog.WarnContext(ctx, "cache encode failed", "error", err)
		return
	}
	if err := c.client.Set(ctx, cacheKey(query, topK), raw, c.ttl).Err(); err != nil {
		slog.WarnContext(ctx, "cache write failed", "error", err)
	}
}

func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

func cacheKey(query string, topK int) string {
	return fmt.Sprintf("beacon:rec:%d:%s", topK, strings.ToLower(strings.TrimSpace(query)))
}
