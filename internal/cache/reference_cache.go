package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/opsdesk/ticket-service/internal/domain"
)

const (
	slaKeyPrefix      = "ref:sla:"
	categoryKeyPrefix = "ref:category:"
	defaultTTL        = 10 * time.Minute
)

// ReferenceCache is a redis-backed read-through cache for SLA rules and issue
// categories. Cache misses and redis failures are both treated as misses; the
// caller falls back to the repository. The admin CRUD surface invalidates
// entries on update and delete.
type ReferenceCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewReferenceCache builds the cache. A nil client disables caching (every
// lookup is a miss).
func NewReferenceCache(client *redis.Client, logger *zap.Logger) *ReferenceCache {
	return &ReferenceCache{client: client, ttl: defaultTTL, logger: logger}
}

// GetSLA returns the cached rule, or false on a miss.
func (c *ReferenceCache) GetSLA(ctx context.Context, id string) (*domain.SLARule, bool) {
	var rule domain.SLARule
	if !c.get(ctx, slaKeyPrefix+id, &rule) {
		return nil, false
	}
	return &rule, true
}

// SetSLA stores the rule.
func (c *ReferenceCache) SetSLA(ctx context.Context, rule *domain.SLARule) {
	c.set(ctx, slaKeyPrefix+rule.ID, rule)
}

// InvalidateSLA drops the rule from the cache.
func (c *ReferenceCache) InvalidateSLA(ctx context.Context, id string) {
	c.invalidate(ctx, slaKeyPrefix+id)
}

// GetCategory returns the cached category, or false on a miss.
func (c *ReferenceCache) GetCategory(ctx context.Context, id string) (*domain.IssueCategory, bool) {
	var category domain.IssueCategory
	if !c.get(ctx, categoryKeyPrefix+id, &category) {
		return nil, false
	}
	return &category, true
}

// SetCategory stores the category.
func (c *ReferenceCache) SetCategory(ctx context.Context, category *domain.IssueCategory) {
	c.set(ctx, categoryKeyPrefix+category.ID, category)
}

// InvalidateCategory drops the category from the cache.
func (c *ReferenceCache) InvalidateCategory(ctx context.Context, id string) {
	c.invalidate(ctx, categoryKeyPrefix+id)
}

func (c *ReferenceCache) get(ctx context.Context, key string, dest any) bool {
	if c == nil || c.client == nil {
		return false
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug("cache get failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		c.logger.Warn("cache entry corrupt", zap.String("key", key), zap.Error(err))
		c.invalidate(ctx, key)
		return false
	}
	return true
}

func (c *ReferenceCache) set(ctx context.Context, key string, value any) {
	if c == nil || c.client == nil {
		return
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Debug("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *ReferenceCache) invalidate(ctx context.Context, key string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Debug("cache invalidate failed", zap.String("key", key), zap.Error(err))
	}
}
