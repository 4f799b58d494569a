package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/weiawesome/wes-io-live/follow-graph-service/internal/domain"
	"github.com/weiawesome/wes-io-live/follow-graph-service/internal/testutil"
)

type GraphRepositorySuite struct {
	suite.Suite
	ctx  context.Context
	repo *GormGraphRepository
	s    Stores
}

func (s *GraphRepositorySuite) SetupTest() {
	db := testutil.NewDB(s.T())
	testutil.SeedUser(s.T(), db, "alice", domain.AccountPublic)
	testutil.SeedUser(s.T(), db, "bob", domain.AccountPrivate)
	testutil.SeedUser(s.T(), db, "carol", domain.AccountPublic)

	s.ctx = context.Background()
	s.repo = NewGormGraphRepository(db)
	s.s = s.repo.Stores()
}

func TestGraphRepositorySuite(t *testing.T) {
	suite.Run(t, new(GraphRepositorySuite))
}

func (s *GraphRepositorySuite) TestEdgePutExistsDelete() {
	at := time.Now().UTC().Truncate(time.Microsecond)

	s.Require().NoError(s.s.Edges.Put(s.ctx, "alice", domain.EdgeFollowing, "bob", at))

	ok, err := s.s.Edges.Exists(s.ctx, "alice", domain.EdgeFollowing, "bob")
	s.Require().NoError(err)
	s.True(ok)

	// Same reflection twice hits the unique index.
	err = s.s.Edges.Put(s.ctx, "alice", domain.EdgeFollowing, "bob", at)
	s.ErrorIs(err, ErrEdgeExists)

	// The mirror kind is a different row.
	ok, err = s.s.Edges.Exists(s.ctx, "alice", domain.EdgeFollowers, "bob")
	s.Require().NoError(err)
	s.False(ok)

	deleted, err := s.s.Edges.Delete(s.ctx, "alice", domain.EdgeFollowing, "bob")
	s.Require().NoError(err)
	s.True(deleted)

	deleted, err = s.s.Edges.Delete(s.ctx, "alice", domain.EdgeFollowing, "bob")
	s.Require().NoError(err)
	s.False(deleted)
}

func (s *GraphRepositorySuite) TestEdgeListPagination() {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i, other := range []string{"bob", "carol", "dave", "erin"} {
		s.Require().NoError(s.s.Edges.Put(s.ctx, "alice", domain.EdgeFollowing, other, base.Add(time.Duration(i)*time.Minute)))
	}

	page1, err := s.s.Edges.List(s.ctx, "alice", domain.EdgeFollowing, Cursor{}, 3)
	s.Require().NoError(err)
	s.Require().Len(page1, 3)
	s.Equal("erin", page1[0].UserID)
	s.Equal("dave", page1[1].UserID)
	s.Equal("carol", page1[2].UserID)
	s.Equal("User CAROL", page1[2].DisplayName)

	last := page1[len(page1)-1]
	page2, err := s.s.Edges.List(s.ctx, "alice", domain.EdgeFollowing, Cursor{At: last.FollowedAt, ID: last.UserID}, 3)
	s.Require().NoError(err)
	s.Require().Len(page2, 1)
	s.Equal("bob", page2[0].UserID)

	count, err := s.s.Edges.Count(s.ctx, "alice", domain.EdgeFollowing)
	s.Require().NoError(err)
	s.Equal(int64(4), count)
}

func (s *GraphRepositorySuite) TestEdgeExistsMany() {
	now := time.Now().UTC()
	s.Require().NoError(s.s.Edges.Put(s.ctx, "alice", domain.EdgeFollowing, "bob", now))

	got, err := s.s.Edges.ExistsMany(s.ctx, "alice", domain.EdgeFollowing, []string{"bob", "carol"})
	s.Require().NoError(err)
	s.Equal(map[string]bool{"bob": true, "carol": false}, got)

	got, err = s.s.Edges.ExistsMany(s.ctx, "alice", domain.EdgeFollowing, nil)
	s.Require().NoError(err)
	s.Empty(got)
}

func (s *GraphRepositorySuite) TestListOrphans() {
	now := time.Now().UTC()
	// Complete edge alice→bob.
	s.Require().NoError(s.s.Edges.Put(s.ctx, "alice", domain.EdgeFollowing, "bob", now))
	s.Require().NoError(s.s.Edges.Put(s.ctx, "bob", domain.EdgeFollowers, "alice", now))
	// Half edge carol→alice: only the following reflection.
	s.Require().NoError(s.s.Edges.Put(s.ctx, "carol", domain.EdgeFollowing, "alice", now))

	orphans, err := s.s.Edges.ListOrphans(s.ctx, 0, 10)
	s.Require().NoError(err)
	s.Require().Len(orphans, 1)
	s.Equal("carol", orphans[0].OwnerID)
	s.Equal(string(domain.EdgeFollowing), orphans[0].Kind)
	s.Equal("alice", orphans[0].OtherID)
}

func (s *GraphRepositorySuite) TestRequestUpsertIsIdempotent() {
	first := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)

	s.Require().NoError(s.s.Requests.Upsert(s.ctx, "bob", "alice", domain.RequesterSnapshot{DisplayName: "Alice", RequestedAt: first}))
	s.Require().NoError(s.s.Requests.Upsert(s.ctx, "bob", "alice", domain.RequesterSnapshot{DisplayName: "Alice B.", PhotoURL: "p.png", RequestedAt: second}))

	reqs, err := s.s.Requests.List(s.ctx, "bob", Cursor{}, 10)
	s.Require().NoError(err)
	s.Require().Len(reqs, 1)
	s.Equal("Alice B.", reqs[0].RequesterName)
	s.Equal("p.png", reqs[0].RequesterPhoto)
	s.True(second.Equal(reqs[0].RequestedAt))

	ok, err := s.s.Requests.Exists(s.ctx, "bob", "alice")
	s.Require().NoError(err)
	s.True(ok)

	deleted, err := s.s.Requests.Delete(s.ctx, "bob", "alice")
	s.Require().NoError(err)
	s.True(deleted)

	_, err = s.s.Requests.Get(s.ctx, "bob", "alice")
	s.ErrorIs(err, ErrRequestNotFound)
}

func (s *GraphRepositorySuite) TestCounterApplyDeltaFloorsAtZero() {
	s.Require().NoError(s.s.Counters.ApplyDelta(s.ctx, "alice", domain.EdgeFollowers, 2))
	s.Require().NoError(s.s.Counters.ApplyDelta(s.ctx, "alice", domain.EdgeFollowers, -1))
	s.Require().NoError(s.s.Counters.ApplyDelta(s.ctx, "alice", domain.EdgeFollowers, -1))
	s.Require().NoError(s.s.Counters.ApplyDelta(s.ctx, "alice", domain.EdgeFollowers, -1))

	c, err := s.s.Counters.Get(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(int64(0), c.Followers)
	s.Equal(int64(0), c.Following)

	err = s.s.Counters.ApplyDelta(s.ctx, "ghost", domain.EdgeFollowers, 1)
	s.ErrorIs(err, ErrUserNotFound)
}

func (s *GraphRepositorySuite) TestWithTxRollsBackEverything() {
	boom := errors.New("boom")
	err := s.repo.WithTx(s.ctx, func(tx Stores) error {
		s.Require().NoError(tx.Edges.Put(s.ctx, "alice", domain.EdgeFollowing, "carol", time.Now().UTC()))
		s.Require().NoError(tx.Counters.ApplyDelta(s.ctx, "alice", domain.EdgeFollowing, 1))
		return boom
	})
	s.ErrorIs(err, boom)

	ok, err := s.s.Edges.Exists(s.ctx, "alice", domain.EdgeFollowing, "carol")
	s.Require().NoError(err)
	s.False(ok)

	c, err := s.s.Counters.Get(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(int64(0), c.Following)
}

func (s *GraphRepositorySuite) TestUsers() {
	// Ensure creates a missing user and never blanks stored fields.
	s.Require().NoError(s.s.Users.Ensure(s.ctx, domain.Identity{UserID: "zed", DisplayName: "Zed"}))
	s.Require().NoError(s.s.Users.Ensure(s.ctx, domain.Identity{UserID: "zed"}))

	u, err := s.s.Users.Get(s.ctx, "zed")
	s.Require().NoError(err)
	s.Equal("Zed", u.DisplayName)
	s.Equal(domain.AccountPublic, u.AccountType)

	s.Require().NoError(s.s.Users.SetAccountType(s.ctx, "zed", domain.AccountPrivate))
	u, err = s.s.Users.Get(s.ctx, "zed")
	s.Require().NoError(err)
	s.Equal(domain.AccountPrivate, u.AccountType)

	s.ErrorIs(s.s.Users.SetAccountType(s.ctx, "ghost", domain.AccountPrivate), ErrUserNotFound)

	s.Require().NoError(s.s.Users.UpsertProfile(s.ctx, "zed", "Zed Z.", "z.png", ""))
	u, err = s.s.Users.Get(s.ctx, "zed")
	s.Require().NoError(err)
	s.Equal("Zed Z.", u.DisplayName)
	s.Equal(domain.AccountPrivate, u.AccountType)

	ids, err := s.s.Users.ListIDs(s.ctx, "bob", 10)
	s.Require().NoError(err)
	s.Equal([]string{"carol", "zed"}, ids)

	_, err = s.s.Users.Get(s.ctx, "ghost")
	s.ErrorIs(err, ErrUserNotFound)
}

func (s *GraphRepositorySuite) TestUpsertProfileKeepsLocalAccountType() {
	// Synced users follow user-service until they change privacy here.
	s.Require().NoError(s.s.Users.UpsertProfile(s.ctx, "yan", "Yan", "", domain.AccountPrivate))
	u, err := s.s.Users.Get(s.ctx, "yan")
	s.Require().NoError(err)
	s.Equal(domain.AccountPrivate, u.AccountType)

	s.Require().NoError(s.s.Users.UpsertProfile(s.ctx, "yan", "Yan", "", domain.AccountPublic))
	u, err = s.s.Users.Get(s.ctx, "yan")
	s.Require().NoError(err)
	s.Equal(domain.AccountPublic, u.AccountType)

	s.Require().NoError(s.s.Users.SetAccountType(s.ctx, "yan", domain.AccountPrivate))
	s.Require().NoError(s.s.Users.UpsertProfile(s.ctx, "yan", "Yan Y.", "y.png", domain.AccountPublic))
	u, err = s.s.Users.Get(s.ctx, "yan")
	s.Require().NoError(err)
	s.Equal("Yan Y.", u.DisplayName)
	s.Equal(domain.AccountPrivate, u.AccountType)
}

func (s *GraphRepositorySuite) TestCounterRecountUsesListSize() {
	at := time.Now().UTC()
	s.Require().NoError(s.s.Edges.Put(s.ctx, "alice", domain.EdgeFollowers, "bob", at))
	s.Require().NoError(s.s.Edges.Put(s.ctx, "alice", domain.EdgeFollowers, "carol", at))
	s.Require().NoError(s.s.Counters.Set(s.ctx, "alice", domain.EdgeFollowers, 7))

	err := s.repo.WithTx(s.ctx, func(tx Stores) error {
		c, err := tx.Counters.GetForUpdate(s.ctx, "alice")
		s.Require().NoError(err)
		s.Equal(int64(7), c.Followers)

		n, err := tx.Counters.Recount(s.ctx, "alice", domain.EdgeFollowers)
		s.Require().NoError(err)
		s.Equal(int64(2), n)
		return nil
	})
	s.Require().NoError(err)

	c, err := s.s.Counters.Get(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(int64(2), c.Followers)
	s.Equal(int64(0), c.Following)

	_, err = s.s.Counters.Recount(s.ctx, "ghost", domain.EdgeFollowers)
	s.ErrorIs(err, ErrUserNotFound)
	_, err = s.s.Counters.GetForUpdate(s.ctx, "ghost")
	s.ErrorIs(err, ErrUserNotFound)
}

func TestCursorRoundTrip(t *testing.T) {
	c := Cursor{At: time.Date(2026, 3, 4, 5, 6, 7, 8000, time.UTC), ID: "user|with|pipes"}
	decoded, err := DecodeCursor(c.Encode())
	require.NoError(t, err)
	assert.True(t, c.At.Equal(decoded.At))
	assert.Equal(t, c.ID, decoded.ID)

	zero, err := DecodeCursor("")
	require.NoError(t, err)
	assert.True(t, zero.IsZero())
	assert.Equal(t, "", Cursor{}.Encode())

	_, err = DecodeCursor("%%%")
	assert.ErrorIs(t, err, ErrInvalidCursor)
}
