package cache

import (
	"context"
	"encoding/json"
	"time"

	"tasktrack/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	keyTaskList = "q:tasks:"
	keyUserList = "q:users:"
)

// QueryCache caches list results in Redis, keyed by the canonical plan
// key. Every write invalidates both entity prefixes: a task write mutates
// user documents and vice versa, so the two result spaces go stale
// together.
type QueryCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New returns a new QueryCache.
func New(rdb *redis.Client, ttl time.Duration) *QueryCache {
	return &QueryCache{rdb: rdb, ttl: ttl}
}

// GetTasks returns the cached task list for planKey, or nil if miss.
func (c *QueryCache) GetTasks(ctx context.Context, planKey string) ([]domain.Task, error) {
	b, err := c.rdb.Get(ctx, keyTaskList+planKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var list []domain.Task
	if err := json.Unmarshal(b, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// SetTasks stores a task list result. A nil list is stored as an empty
// one so that an empty result reads back as a hit, not a miss.
func (c *QueryCache) SetTasks(ctx context.Context, planKey string, list []domain.Task) error {
	if list == nil {
		list = []domain.Task{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, keyTaskList+planKey, b, c.ttl).Err()
}

// GetUsers returns the cached user list for planKey, or nil if miss.
func (c *QueryCache) GetUsers(ctx context.Context, planKey string) ([]domain.User, error) {
	b, err := c.rdb.Get(ctx, keyUserList+planKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var list []domain.User
	if err := json.Unmarshal(b, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// SetUsers stores a user list result. Nil normalizes to empty, same as
// SetTasks.
func (c *QueryCache) SetUsers(ctx context.Context, planKey string, list []domain.User) error {
	if list == nil {
		list = []domain.User{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, keyUserList+planKey, b, c.ttl).Err()
}

// InvalidateAll removes every cached list result (cache invalidation on write).
func (c *QueryCache) InvalidateAll(ctx context.Context) error {
	iter := c.rdb.Scan(ctx, 0, "q:*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
