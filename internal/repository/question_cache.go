package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/speaking-backend/internal/config"
	"github.com/stemsi/speaking-backend/internal/model"
)

// QuestionPage is the cached form of one page of generated questions.
type QuestionPage struct {
	Questions []model.GeneratedQuestion `json:"questions"`
	Total     int                       `json:"total"`
}

// QuestionCache caches question pages in Redis.
//
// Every page key embeds a version counter. Invalidate bumps the counter, which
// orphans all cached pages at once; orphans expire through their TTL.
type QuestionCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewQuestionCache creates a new QuestionCache.
func NewQuestionCache(rdb *redis.Client, ttl time.Duration) *QuestionCache {
	return &QuestionCache{rdb: rdb, ttl: ttl}
}

func (c *QuestionCache) version(ctx context.Context) (int64, error) {
	v, err := c.rdb.Get(ctx, config.CacheKey.QuestionListVersionKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// GetPage returns the cached page, or ok=false on a miss.
func (c *QuestionCache) GetPage(ctx context.Context, page, perPage int) (*QuestionPage, bool, error) {
	v, err := c.version(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("read version: %w", err)
	}

	raw, err := c.rdb.Get(ctx, config.CacheKey.QuestionPageKey(v, page, perPage)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get page: %w", err)
	}

	var p QuestionPage
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, false, fmt.Errorf("decode page: %w", err)
	}
	return &p, true, nil
}

// SetPage stores a page under the current version.
func (c *QuestionCache) SetPage(ctx context.Context, page, perPage int, p *QuestionPage) error {
	v, err := c.version(ctx)
	if err != nil {
		return fmt.Errorf("read version: %w", err)
	}

	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode page: %w", err)
	}
	return c.rdb.Set(ctx, config.CacheKey.QuestionPageKey(v, page, perPage), raw, c.ttl).Err()
}

// Invalidate bumps the version so every previously cached page is skipped.
func (c *QuestionCache) Invalidate(ctx context.Context) error {
	return c.rdb.Incr(ctx, config.CacheKey.QuestionListVersionKey()).Err()
}
