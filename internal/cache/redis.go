package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"moneymanager/internal/core"
	"moneymanager/internal/log"
)

const redisKeyPrefix = "moneymanager:summary"

// RedisSummaryCache shares summaries between API instances. Each user has a
// generation counter that is part of every key; Invalidate bumps it, so stale
// entries become unreachable and expire on their TTL.
type RedisSummaryCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

var _ SummaryCache = (*RedisSummaryCache)(nil)

// NewRedisClient parses url (with or without the redis:// scheme) and checks
// the server answers.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	if !strings.Contains(url, "://") {
		url = "redis://" + url
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

func NewRedisSummaryCache(client *redis.Client, ttl time.Duration, logger *log.Logger) *RedisSummaryCache {
	if logger == nil {
		logger = log.Discard()
	}
	return &RedisSummaryCache{
		client: client,
		ttl:    ttl,
		logger: logger.WithComponent(log.ComponentCache),
	}
}

func generationKey(userID string) string {
	return fmt.Sprintf("%s:gen:%s", redisKeyPrefix, userID)
}

func summaryKey(userID string, gen int64, key SummaryKey) string {
	return fmt.Sprintf("%s:%s:%d:%s", redisKeyPrefix, userID, gen, key)
}

func (c *RedisSummaryCache) generation(ctx context.Context, userID string) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *RedisSummaryCache) Get(ctx context.Context, userID string, key SummaryKey) (core.Summary, Generation, bool) {
	gen, err := c.generation(ctx, userID)
	if err != nil {
		c.logger.WarnContext(ctx, "Summary cache generation lookup failed", log.FieldUserID, userID, log.FieldError, err.Error())
		return core.Summary{}, noGeneration, false
	}

	var s core.Summary
	err = c.client.Get(ctx, summaryKey(userID, gen, key)).Scan(&s)
	if errors.Is(err, redis.Nil) {
		return core.Summary{}, Generation(gen), false
	}
	if err != nil {
		c.logger.WarnContext(ctx, "Summary cache read failed", log.FieldUserID, userID, log.FieldError, err.Error())
		return core.Summary{}, Generation(gen), false
	}
	return s, Generation(gen), true
}

// Set writes under the generation returned by Get. If a write bumped the
// generation in between, the entry lands on a key no reader will ask for.
func (c *RedisSummaryCache) Set(ctx context.Context, userID string, key SummaryKey, gen Generation, s core.Summary) {
	if gen == noGeneration {
		return
	}
	if err := c.client.Set(ctx, summaryKey(userID, int64(gen), key), s, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "Summary cache write failed", log.FieldUserID, userID, log.FieldError, err.Error())
	}
}

func (c *RedisSummaryCache) Invalidate(ctx context.Context, userID string) {
	if err := c.client.Incr(ctx, generationKey(userID)).Err(); err != nil {
		c.logger.WarnContext(ctx, "Summary cache invalidation failed", log.FieldUserID, userID, log.FieldError, err.Error())
	}
}
