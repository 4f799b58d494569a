package reconciler

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"

	"github.com/weiawesome/wes-io-live/follow-graph-service/internal/config"
	"github.com/weiawesome/wes-io-live/follow-graph-service/internal/domain"
	"github.com/weiawesome/wes-io-live/follow-graph-service/internal/repository"
	"github.com/weiawesome/wes-io-live/follow-graph-service/internal/testutil"
	pkglog "github.com/weiawesome/wes-io-live/follow-graph-service/pkg/log"
)

// memCache is a minimal in-memory CounterCache.
type memCache struct {
	mu       sync.Mutex
	counters map[string]domain.Counters
	hot      []string
}

func (c *memCache) GetCounters(_ context.Context, id string) (domain.Counters, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.counters[id]
	return v, ok, nil
}

func (c *memCache) SetCounters(_ context.Context, id string, v domain.Counters) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[id] = v
	return nil
}

func (c *memCache) DeleteCounters(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.counters, id)
	return nil
}

func (c *memCache) RecordAccess(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hot = append(c.hot, id)
	return nil
}

func (c *memCache) GetTopHotKeys(context.Context, int64) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.hot...), nil
}

func (c *memCache) ResetHotKeyScores(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hot = nil
	return nil
}

// followDuringCount lands follow(follower -> target) inside the reconciler's
// transaction right after it has counted target's followers.
type followDuringCount struct {
	repository.GraphRepository
	follower, target string
	fired            bool
}

func (r *followDuringCount) WithTx(ctx context.Context, fn func(s repository.Stores) error) error {
	return r.GraphRepository.WithTx(ctx, func(s repository.Stores) error {
		s.Edges = &countHook{EdgeStore: s.Edges, repo: r, tx: s}
		return fn(s)
	})
}

type countHook struct {
	repository.EdgeStore
	repo *followDuringCount
	tx   repository.Stores
}

func (h *countHook) Count(ctx context.Context, ownerID string, kind domain.EdgeKind) (int64, error) {
	n, err := h.EdgeStore.Count(ctx, ownerID, kind)
	if err != nil || h.repo.fired || ownerID != h.repo.target || kind != domain.EdgeFollowers {
		return n, err
	}
	h.repo.fired = true

	at := time.Now().UTC()
	if err := h.EdgeStore.Put(ctx, h.repo.follower, domain.EdgeFollowing, h.repo.target, at); err != nil {
		return 0, err
	}
	if err := h.EdgeStore.Put(ctx, h.repo.target, domain.EdgeFollowers, h.repo.follower, at); err != nil {
		return 0, err
	}
	if err := h.tx.Counters.ApplyDelta(ctx, h.repo.follower, domain.EdgeFollowing, 1); err != nil {
		return 0, err
	}
	if err := h.tx.Counters.ApplyDelta(ctx, h.repo.target, domain.EdgeFollowers, 1); err != nil {
		return 0, err
	}
	return n, nil
}

type ReconcilerSuite struct {
	suite.Suite
	ctx   context.Context
	logs  *bytes.Buffer
	repo  *repository.GormGraphRepository
	st    repository.Stores
	cache *memCache
}

func TestReconcilerSuite(t *testing.T) {
	suite.Run(t, new(ReconcilerSuite))
}

func (s *ReconcilerSuite) SetupTest() {
	db := testutil.NewDB(s.T())
	testutil.SeedUser(s.T(), db, "alice", domain.AccountPublic)
	testutil.SeedUser(s.T(), db, "bob", domain.AccountPrivate)
	testutil.SeedUser(s.T(), db, "carol", domain.AccountPublic)

	s.logs = &bytes.Buffer{}
	s.ctx = pkglog.WithLogger(context.Background(), zerolog.New(s.logs))
	s.repo = repository.NewGormGraphRepository(db)
	s.st = s.repo.Stores()
	s.cache = &memCache{counters: make(map[string]domain.Counters)}
}

func (s *ReconcilerSuite) newReconciler(repair bool) *Reconciler {
	return New(s.repo, s.cache, config.ReconcilerConfig{Interval: time.Hour, TopN: 10, BatchSize: 2, Repair: repair})
}

func (s *ReconcilerSuite) counters(id string) domain.Counters {
	c, err := s.st.Counters.Get(s.ctx, id)
	s.Require().NoError(err)
	return c
}

func (s *ReconcilerSuite) TestRepairsCounterDrift() {
	s.Require().NoError(s.st.Counters.Set(s.ctx, "alice", domain.EdgeFollowers, 5))
	s.Require().NoError(s.cache.SetCounters(s.ctx, "alice", domain.Counters{Followers: 5}))

	report, err := s.newReconciler(true).RunOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, report.Drifted)
	s.Equal(1, report.RepairedCounters)
	s.Equal(domain.Counters{}, s.counters("alice"))

	_, cached, _ := s.cache.GetCounters(s.ctx, "alice")
	s.False(cached)

	s.Contains(s.logs.String(), `"log_type":"consistency"`)
	s.Contains(s.logs.String(), `"scope":"counter"`)
}

func (s *ReconcilerSuite) TestRepairKeepsFollowLandingMidCheck() {
	s.Require().NoError(s.st.Counters.Set(s.ctx, "alice", domain.EdgeFollowers, 5))

	repo := &followDuringCount{GraphRepository: s.repo, follower: "carol", target: "alice"}
	r := New(repo, s.cache, config.ReconcilerConfig{Interval: time.Hour, TopN: 10, BatchSize: 2, Repair: true})

	report, err := r.RunOnce(s.ctx)
	s.Require().NoError(err)
	s.True(repo.fired)
	s.Equal(1, report.Drifted)
	s.Equal(1, report.RepairedCounters)

	edges, err := s.st.Edges.Count(s.ctx, "alice", domain.EdgeFollowers)
	s.Require().NoError(err)
	s.Equal(int64(1), edges)
	s.Equal(edges, s.counters("alice").Followers)
	s.Equal(int64(1), s.counters("carol").Following)
	s.Contains(s.logs.String(), "followers 5 -> 1")
}

func (s *ReconcilerSuite) TestReportOnlyLeavesDrift() {
	s.Require().NoError(s.st.Counters.Set(s.ctx, "bob", domain.EdgeFollowing, 3))

	report, err := s.newReconciler(false).RunOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, report.Drifted)
	s.Zero(report.RepairedCounters)
	s.Equal(int64(3), s.counters("bob").Following)
}

func (s *ReconcilerSuite) TestRestoresMissingMirror() {
	at := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	s.Require().NoError(s.st.Edges.Put(s.ctx, "carol", domain.EdgeFollowing, "alice", at))
	s.Require().NoError(s.st.Counters.Set(s.ctx, "carol", domain.EdgeFollowing, 1))

	report, err := s.newReconciler(true).RunOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, report.Orphans)
	s.Equal(1, report.RepairedOrphans)
	s.Zero(report.Drifted)

	ok, err := s.st.Edges.Exists(s.ctx, "alice", domain.EdgeFollowers, "carol")
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(int64(1), s.counters("alice").Followers)

	page, err := s.st.Edges.List(s.ctx, "alice", domain.EdgeFollowers, repository.Cursor{}, 10)
	s.Require().NoError(err)
	s.Require().Len(page, 1)
	s.True(at.Equal(page[0].FollowedAt))

	s.Contains(s.logs.String(), `"scope":"reflection"`)
}

func (s *ReconcilerSuite) TestRemovesDanglingReflection() {
	s.Require().NoError(s.st.Edges.Put(s.ctx, "alice", domain.EdgeFollowing, "ghost", time.Now().UTC()))
	s.Require().NoError(s.st.Counters.Set(s.ctx, "alice", domain.EdgeFollowing, 1))

	report, err := s.newReconciler(true).RunOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, report.RepairedOrphans)

	ok, err := s.st.Edges.Exists(s.ctx, "alice", domain.EdgeFollowing, "ghost")
	s.Require().NoError(err)
	s.False(ok)
	s.Equal(int64(0), s.counters("alice").Following)
}

func (s *ReconcilerSuite) TestRefreshesHotKeys() {
	s.Require().NoError(s.st.Counters.Set(s.ctx, "carol", domain.EdgeFollowers, 0))
	s.Require().NoError(s.cache.SetCounters(s.ctx, "carol", domain.Counters{Followers: 99}))
	s.Require().NoError(s.cache.RecordAccess(s.ctx, "carol"))
	s.Require().NoError(s.cache.RecordAccess(s.ctx, "ghost"))

	report, err := s.newReconciler(true).RunOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, report.HotKeys)

	c, ok, _ := s.cache.GetCounters(s.ctx, "carol")
	s.True(ok)
	s.Equal(domain.Counters{}, c)

	keys, _ := s.cache.GetTopHotKeys(s.ctx, 10)
	s.Empty(keys)
}

func (s *ReconcilerSuite) TestStartStop() {
	r := New(s.repo, s.cache, config.ReconcilerConfig{Interval: 5 * time.Millisecond, Repair: true})
	s.Require().NoError(s.st.Counters.Set(s.ctx, "alice", domain.EdgeFollowers, 2))

	r.Start(s.ctx)
	s.Eventually(func() bool {
		c, err := s.st.Counters.Get(s.ctx, "alice")
		return err == nil && c.Followers == 0
	}, time.Second, 10*time.Millisecond)

	r.Stop()
	select {
	case <-r.Done():
	case <-time.After(time.Second):
		s.Fail("reconciler did not stop")
	}
}
