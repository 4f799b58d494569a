package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/weiawesome/wes-io-live/follow-graph-service/internal/domain"
)

const (
	countersKeyPrefix = "social:counters:"
	hotKeyScoresKey   = "social:hotkey:scores"

	fieldFollowers = "followers"
	fieldFollowing = "following"
)

// CounterCache caches the authoritative counters for profile reads and
// tracks which users are read most (hot keys).
type CounterCache interface {
	GetCounters(ctx context.Context, userID string) (domain.Counters, bool, error)
	SetCounters(ctx context.Context, userID string, c domain.Counters) error
	DeleteCounters(ctx context.Context, userID string) error
	RecordAccess(ctx context.Context, userID string) error
	GetTopHotKeys(ctx context.Context, n int64) ([]string, error)
	ResetHotKeyScores(ctx context.Context) error
}

// RedisCounterCache implements CounterCache backed by Redis hashes.
type RedisCounterCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(address, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// NewRedisCounterCache creates a Redis-backed counter cache. A ttl of zero
// keeps entries until they are overwritten or deleted.
func NewRedisCounterCache(client *redis.Client, ttl time.Duration) *RedisCounterCache {
	return &RedisCounterCache{client: client, ttl: ttl}
}

func countersKey(userID string) string {
	return countersKeyPrefix + userID
}

// GetCounters returns the cached counters for a user.
// Returns (counters, true, nil) on hit, (zero, false, nil) on miss.
func (s *RedisCounterCache) GetCounters(ctx context.Context, userID string) (domain.Counters, bool, error) {
	vals, err := s.client.HMGet(ctx, countersKey(userID), fieldFollowers, fieldFollowing).Result()
	if err != nil {
		return domain.Counters{}, false, fmt.Errorf("redis get counters: %w", err)
	}

	followers, ok1, err := parseCount(vals[0])
	if err != nil {
		return domain.Counters{}, false, err
	}
	following, ok2, err := parseCount(vals[1])
	if err != nil {
		return domain.Counters{}, false, err
	}
	if !ok1 || !ok2 {
		return domain.Counters{}, false, nil
	}

	return domain.Counters{Followers: followers, Following: following}, true, nil
}

func parseCount(v interface{}) (int64, bool, error) {
	if v == nil {
		return 0, false, nil
	}
	str, ok := v.(string)
	if !ok {
		return 0, false, fmt.Errorf("unexpected counter type %T", v)
	}
	n, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse counter: %w", err)
	}
	return n, true, nil
}

// SetCounters stores both counters atomically.
func (s *RedisCounterCache) SetCounters(ctx context.Context, userID string, c domain.Counters) error {
	key := countersKey(userID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fieldFollowers, c.Followers, fieldFollowing, c.Following)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set counters: %w", err)
	}
	return nil
}

// DeleteCounters drops the cached counters so the next read goes to the database.
func (s *RedisCounterCache) DeleteCounters(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, countersKey(userID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis delete counters: %w", err)
	}
	return nil
}

// RecordAccess increments the access score for a user in the hot key sorted set.
func (s *RedisCounterCache) RecordAccess(ctx context.Context, userID string) error {
	err := s.client.ZIncrBy(ctx, hotKeyScoresKey, 1, userID).Err()
	if err != nil {
		return fmt.Errorf("redis record access: %w", err)
	}
	return nil
}

// GetTopHotKeys returns the top-n most accessed user IDs.
func (s *RedisCounterCache) GetTopHotKeys(ctx context.Context, n int64) ([]string, error) {
	keys, err := s.client.ZRevRange(ctx, hotKeyScoresKey, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get top hot keys: %w", err)
	}
	return keys, nil
}

// ResetHotKeyScores deletes the hot key scores sorted set.
func (s *RedisCounterCache) ResetHotKeyScores(ctx context.Context) error {
	err := s.client.Del(ctx, hotKeyScoresKey).Err()
	if err != nil {
		return fmt.Errorf("redis reset hot key scores: %w", err)
	}
	return nil
}

// Ensure interface is satisfied at compile time.
var _ CounterCache = (*RedisCounterCache)(nil)
