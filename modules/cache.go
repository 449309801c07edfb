package modules

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CachedState remembers positive installation answers in Redis for ttl.
// Only "installed" is cached: a module that is set up after a negative
// answer is seen on the next check, and failures are never remembered.
// A nil client disables the cache.
type CachedState struct {
	next   InstallationState
	redis  *redis.Client
	ttl    time.Duration
	prefix string
	log    *zap.Logger
}

// NewCachedState wraps next.
func NewCachedState(next InstallationState, client *redis.Client, ttl time.Duration, prefix string, log *zap.Logger) *CachedState {
	if prefix == "" {
		prefix = "rbac:"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedState{next: next, redis: client, ttl: ttl, prefix: prefix, log: log}
}

func (c *CachedState) cacheKey(moduleKey string) string {
	return fmt.Sprintf("%smodule:%s:installed", c.prefix, moduleKey)
}

// IsInstalled implements InstallationState.
func (c *CachedState) IsInstalled(ctx context.Context, moduleKey string) (bool, error) {
	if c.redis == nil || c.ttl <= 0 {
		return c.next.IsInstalled(ctx, moduleKey)
	}

	key := c.cacheKey(moduleKey)
	val, err := c.redis.Get(ctx, key).Result()
	switch {
	case err == nil && val == "1":
		return true, nil
	case err != nil && err != redis.Nil:
		c.log.Debug("module cache read failed", zap.String("module", moduleKey), zap.Error(err))
	}

	installed, err := c.next.IsInstalled(ctx, moduleKey)
	if err != nil || !installed {
		return installed, err
	}
	if err := c.redis.Set(ctx, key, "1", c.ttl).Err(); err != nil {
		c.log.Debug("module cache write failed", zap.String("module", moduleKey), zap.Error(err))
	}
	return true, nil
}

// Invalidate forgets the cached answer for the given modules, e.g. after an
// uninstall.
func (c *CachedState) Invalidate(ctx context.Context, moduleKeys ...string) error {
	if c.redis == nil || len(moduleKeys) == 0 {
		return nil
	}
	keys := make([]string, 0, len(moduleKeys))
	for _, k := range moduleKeys {
		keys = append(keys, c.cacheKey(k))
	}
	return c.redis.Del(ctx, keys...).Err()
}
