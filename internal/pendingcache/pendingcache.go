// Package pendingcache keeps freshly appended records readable while the
// log's indexing catches up. The log is eventually consistent: a lookup
// right after publish may miss, which callers surface as "not found yet".
// The cache closes that window for the gateway's own writes.
package pendingcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const ttl = 15 * time.Minute

type Cache struct {
	client *redis.Client
}

// New wraps a redis client. A nil client disables the cache; every lookup
// then reports a miss.
func New(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Put(ctx context.Context, kind, id string, v any) error {
	if c.client == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key(kind, id), b, ttl).Err()
}

func (c *Cache) Get(ctx context.Context, kind, id string, dst any) (bool, error) {
	if c.client == nil {
		return false, nil
	}
	v, err := c.client.Get(ctx, key(kind, id)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(v), dst); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Cache) Delete(ctx context.Context, kind, id string) error {
	if c.client == nil {
		return nil
	}
	return c.client.Del(ctx, key(kind, id)).Err()
}

func key(kind, id string) string {
	return fmt.Sprintf("pending:%s:%s", kind, id)
}
