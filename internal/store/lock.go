package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const pairLockKeyPrefix = "social:lock:edge:"

// ErrLockTimeout is returned when a pair lock could not be acquired before
// the context ended.
var ErrLockTimeout = errors.New("timed out waiting for follow edge lock")

// PairLocker serializes writers of one directed edge (follower → followee).
type PairLocker interface {
	Lock(ctx context.Context, followerID, followeeID string) (unlock func(), err error)
}

func pairKey(followerID, followeeID string) string {
	return followerID + ">" + followeeID
}

// RedisPairLocker is a single-instance Redis lock (SET NX PX with a random
// token, compare-and-delete on release). The TTL bounds how long a crashed
// holder blocks the pair.
type RedisPairLocker struct {
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
}

// NewRedisPairLocker creates a Redis-backed pair locker.
func NewRedisPairLocker(client *redis.Client, ttl, retry time.Duration) *RedisPairLocker {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	if retry <= 0 {
		retry = 20 * time.Millisecond
	}
	return &RedisPairLocker{client: client, ttl: ttl, retry: retry}
}

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock blocks until the lock is held or ctx ends.
func (l *RedisPairLocker) Lock(ctx context.Context, followerID, followeeID string) (func(), error) {
	key := pairLockKeyPrefix + pairKey(followerID, followeeID)
	token := uuid.NewString()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %v", ErrLockTimeout, ctx.Err())
			}
			return nil, fmt.Errorf("redis acquire lock: %w", err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrLockTimeout, ctx.Err())
		case <-ticker.C:
		}
	}

	return func() {
		// Release even if the request context is already cancelled.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err()
	}, nil
}

// LocalPairLocker serializes writers within one process. Used when Redis is
// disabled (single replica) and in tests.
type LocalPairLocker struct {
	mu    sync.Mutex
	locks map[string]*localLock
}

type localLock struct {
	ch   chan struct{}
	refs int
}

// NewLocalPairLocker creates an in-process pair locker.
func NewLocalPairLocker() *LocalPairLocker {
	return &LocalPairLocker{locks: make(map[string]*localLock)}
}

// Lock blocks until the lock is held or ctx ends.
func (l *LocalPairLocker) Lock(ctx context.Context, followerID, followeeID string) (func(), error) {
	key := pairKey(followerID, followeeID)

	l.mu.Lock()
	lk, ok := l.locks[key]
	if !ok {
		lk = &localLock{ch: make(chan struct{}, 1)}
		l.locks[key] = lk
	}
	lk.refs++
	l.mu.Unlock()

	select {
	case lk.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, lk)
		return nil, fmt.Errorf("%w: %v", ErrLockTimeout, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-lk.ch
			l.release(key, lk)
		})
	}, nil
}

func (l *LocalPairLocker) release(key string, lk *localLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lk.refs--
	if lk.refs == 0 {
		delete(l.locks, key)
	}
}

// Ensure interfaces are satisfied at compile time.
var (
	_ PairLocker = (*RedisPairLocker)(nil)
	_ PairLocker = (*LocalPairLocker)(nil)
)
