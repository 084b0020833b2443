package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/huguadventures/travel-assistant-go/internal/redis"
	"github.com/huguadventures/travel-assistant-go/internal/util"
)

// Locker provides sender-scoped mutual exclusion. The returned func releases
// the lock and is safe to call once.
type Locker interface {
	Lock(ctx context.Context, sender string) (func(), error)
}

var errLockHeld = errors.New("lock held")

type memoryLock struct {
	sem  chan struct{}
	refs int
}

// MemoryLocker serializes senders within one process. Idle entries are
// dropped once no caller holds or waits on them.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*memoryLock
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]*memoryLock)}
}

func (l *MemoryLocker) Lock(ctx context.Context, sender string) (func(), error) {
	l.mu.Lock()
	lk, ok := l.locks[sender]
	if !ok {
		lk = &memoryLock{sem: make(chan struct{}, 1)}
		l.locks[sender] = lk
	}
	lk.refs++
	l.mu.Unlock()

	select {
	case lk.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(sender, lk)
		return nil, fmt.Errorf("lock %s: %w", sender, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-lk.sem
			l.release(sender, lk)
		})
	}, nil
}

func (l *MemoryLocker) release(sender string, lk *memoryLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lk.refs--
	if lk.refs == 0 {
		delete(l.locks, sender)
	}
}

// unlockScript deletes the lock only if it still holds our token.
var unlockScript = goredis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisLocker is a single-key Redis lock with an expiry, so a crashed holder
// cannot block a sender forever.
type RedisLocker struct {
	client goredis.UniversalClient
	ttl    time.Duration
	wait   time.Duration
}

func NewRedisLocker(client goredis.UniversalClient, ttl, wait time.Duration) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl, wait: wait}
}

func (l *RedisLocker) Lock(ctx context.Context, sender string) (func(), error) {
	token, err := util.GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("lock token: %w", err)
	}
	key := redis.LockKey(sender)

	ctx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 25 * time.Millisecond
	b.MaxInterval = 500 * time.Millisecond
	b.MaxElapsedTime = 0

	op := func() error {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return backoff.Permanent(err)
		}
		if !ok {
			return errLockHeld
		}
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return nil, fmt.Errorf("lock %s: %w", sender, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := unlockScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil {
				log.Warn().Err(err).Str("sender", sender).Msg("session lock release failed")
			}
		})
	}, nil
}
