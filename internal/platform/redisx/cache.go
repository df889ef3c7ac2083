package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// JSONCache is a small read-through cache for derived, recomputable values.
type JSONCache struct {
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
	group  singleflight.Group

	mu    sync.Mutex
	local map[string]localEntry
	now   func() time.Time
}

type localEntry struct {
	raw     []byte
	expires time.Time
}

func NewJSONCache(rdb *goredis.Client, prefix string, ttl time.Duration) *JSONCache {
	return &JSONCache{
		rdb:    rdb,
		prefix: prefix,
		ttl:    ttl,
		local:  map[string]localEntry{},
		now:    time.Now,
	}
}

// GetOrFill decodes the cached value for key into out, calling fill on a miss.
// Concurrent misses for the same key share one fill call.
func (c *JSONCache) GetOrFill(ctx context.Context, key string, out any, fill func(ctx context.Context) (any, error)) error {
	if raw, ok := c.get(ctx, key); ok {
		if err := json.Unmarshal(raw, out); err == nil {
			return nil
		}
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		val, err := fill(ctx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		c.set(ctx, key, raw)
		return raw, nil
	})
	if err != nil {
		return err
	}
	raw, ok := v.([]byte)
	if !ok {
		return errors.New("cache: unexpected fill result")
	}
	return json.Unmarshal(raw, out)
}

func (c *JSONCache) Invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if c.rdb != nil {
		full := make([]string, 0, len(keys))
		for _, k := range keys {
			full = append(full, c.prefix+k)
		}
		_ = c.rdb.Del(ctx, full...).Err()
		return
	}
	c.mu.Lock()
	for _, k := range keys {
		delete(c.local, k)
	}
	c.mu.Unlock()
}

func (c *JSONCache) get(ctx context.Context, key string) ([]byte, bool) {
	if c.rdb != nil {
		raw, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
		if err != nil {
			return nil, false
		}
		return raw, true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.local[key]
	if !ok || c.now().After(e.expires) {
		delete(c.local, key)
		return nil, false
	}
	return e.raw, true
}

func (c *JSONCache) set(ctx context.Context, key string, raw []byte) {
	if c.rdb != nil {
		_ = c.rdb.Set(ctx, c.prefix+key, raw, c.ttl).Err()
		return
	}
	c.mu.Lock()
	c.local[key] = localEntry{raw: raw, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
}
