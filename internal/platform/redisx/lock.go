package redisx

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

var ErrLockHeld = errors.New("lock held by another request")

// Locker serialises writers on a key across API replicas.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// releaseScript deletes the key only when it still carries our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisLocker struct {
	rdb     *goredis.Client
	prefix  string
	retries int
	backoff time.Duration
}

// NewLocker returns a redis backed locker, or an in-process one when rdb is nil.
func NewLocker(rdb *goredis.Client, prefix string) Locker {
	if rdb == nil {
		return NewLocalLocker()
	}
	return &redisLocker{rdb: rdb, prefix: prefix, retries: 20, backoff: 50 * time.Millisecond}
}

// NewTryLocker is like NewLocker but never waits: Acquire returns
// ErrLockHeld at once when someone else owns the key.
func NewTryLocker(rdb *goredis.Client, prefix string) Locker {
	if rdb == nil {
		return &localLocker{locks: map[string]chan struct{}{}, try: true}
	}
	return &redisLocker{rdb: rdb, prefix: prefix}
}

func (l *redisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	full := l.prefix + key
	token := uuid.NewString()
	for attempt := 0; ; attempt++ {
		ok, err := l.rdb.SetNX(ctx, full, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis lock %s: %w", full, err)
		}
		if ok {
			return func() {
				// Released with a fresh context so a cancelled request still frees the key.
				rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = releaseScript.Run(rctx, l.rdb, []string{full}, token).Err()
			}, nil
		}
		if attempt >= l.retries {
			return nil, ErrLockHeld
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.backoff):
		}
	}
}

type localLocker struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
	try   bool
}

func NewLocalLocker() Locker {
	return &localLocker{locks: map[string]chan struct{}{}}
}

func (l *localLocker) Acquire(ctx context.Context, key string, _ time.Duration) (func(), error) {
	for {
		l.mu.Lock()
		ch, held := l.locks[key]
		if !held {
			ch = make(chan struct{})
			l.locks[key] = ch
			l.mu.Unlock()
			var once sync.Once
			return func() {
				once.Do(func() {
					l.mu.Lock()
					delete(l.locks, key)
					l.mu.Unlock()
					close(ch)
				})
			}, nil
		}
		l.mu.Unlock()
		if l.try {
			return nil, ErrLockHeld
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ch:
		}
	}
}
