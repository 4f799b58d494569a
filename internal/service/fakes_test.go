package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/weiawesome/wes-io-live/follow-graph-service/internal/domain"
	"github.com/weiawesome/wes-io-live/follow-graph-service/internal/repository"
	"github.com/weiawesome/wes-io-live/follow-graph-service/pkg/pubsub"
)

type fakeCache struct {
	mu         sync.Mutex
	counters   map[string]domain.Counters
	access     map[string]float64
	failDelete bool

	// When gate is set, GetCounters signals entered and blocks until gate
	// closes or its context ends.
	gate    chan struct{}
	entered chan struct{}
	reads   int
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		counters: make(map[string]domain.Counters),
		access:   make(map[string]float64),
	}
}

func (c *fakeCache) GetCounters(ctx context.Context, userID string) (domain.Counters, bool, error) {
	c.mu.Lock()
	c.reads++
	gate, entered := c.gate, c.entered
	c.mu.Unlock()

	if gate != nil {
		select {
		case entered <- struct{}{}:
		default:
		}
		select {
		case <-gate:
		case <-ctx.Done():
			return domain.Counters{}, false, ctx.Err()
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.counters[userID]
	return v, ok, nil
}

func (c *fakeCache) SetCounters(_ context.Context, userID string, v domain.Counters) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[userID] = v
	return nil
}

func (c *fakeCache) DeleteCounters(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failDelete {
		return errors.New("cache unavailable")
	}
	delete(c.counters, userID)
	return nil
}

func (c *fakeCache) RecordAccess(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.access[userID]++
	return nil
}

func (c *fakeCache) GetTopHotKeys(_ context.Context, n int64) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.access))
	for k := range c.access {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return c.access[keys[i]] > c.access[keys[j]] })
	if int64(len(keys)) > n {
		keys = keys[:n]
	}
	return keys, nil
}

func (c *fakeCache) ResetHotKeyScores(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.access = make(map[string]float64)
	return nil
}

func (c *fakeCache) cached(userID string) (domain.Counters, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.counters[userID]
	return v, ok
}

func (c *fakeCache) accesses(userID string) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.access[userID]
}

func (c *fakeCache) counterReads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

type publishedEvent struct {
	channel string
	event   *pubsub.Event
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, channel string, event *pubsub.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{channel: channel, event: event})
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.event.Type)
	}
	return out
}

// faultyRepo fails counter updates for one user inside transactions.
type faultyRepo struct {
	repository.GraphRepository
	failFor string
}

func (r *faultyRepo) WithTx(ctx context.Context, fn func(s repository.Stores) error) error {
	return r.GraphRepository.WithTx(ctx, func(s repository.Stores) error {
		s.Counters = &failingCounters{CounterSync: s.Counters, failFor: r.failFor}
		return fn(s)
	})
}

var errCounterWrite = errors.New("counter write failed")

type failingCounters struct {
	repository.CounterSync
	failFor string
}

func (c *failingCounters) ApplyDelta(ctx context.Context, userID string, field domain.EdgeKind, delta int64) error {
	if userID == c.failFor {
		return errCounterWrite
	}
	return c.CounterSync.ApplyDelta(ctx, userID, field, delta)
}

// stepClock returns strictly increasing times.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}
