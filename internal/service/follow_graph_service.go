package service

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/weiawesome/wes-io-live/follow-graph-service/internal/audit"
	"github.com/weiawesome/wes-io-live/follow-graph-service/internal/domain"
	"github.com/weiawesome/wes-io-live/follow-graph-service/internal/repository"
	"github.com/weiawesome/wes-io-live/follow-graph-service/internal/store"
	pkglog "github.com/weiawesome/wes-io-live/follow-graph-service/pkg/log"
	"github.com/weiawesome/wes-io-live/follow-graph-service/pkg/pubsub"
)

// followGraphService implements FollowGraphService.
type followGraphService struct {
	repo      repository.GraphRepository
	cache     store.CounterCache
	locker    store.PairLocker
	publisher pubsub.Publisher
	profiles  singleflight.Group
	now       func() time.Time
}

// NewFollowGraphService creates a new FollowGraphService instance.
func NewFollowGraphService(
	repo repository.GraphRepository,
	cache store.CounterCache,
	locker store.PairLocker,
	publisher pubsub.Publisher,
) FollowGraphService {
	return &followGraphService{
		repo:      repo,
		cache:     cache,
		locker:    locker,
		publisher: publisher,
		now: func() time.Time {
			return time.Now().UTC().Truncate(time.Microsecond)
		},
	}
}

func checkPair(actor domain.Identity, targetID string) error {
	if !actor.Authenticated() {
		return ErrUnauthenticated
	}
	if targetID == "" {
		return ErrUserNotFound
	}
	if actor.UserID == targetID {
		return ErrSelfFollow
	}
	return nil
}

// Follow creates the edge actor→target.
func (s *followGraphService) Follow(ctx context.Context, actor domain.Identity, targetID string) (*domain.Relation, error) {
	if err := checkPair(actor, targetID); err != nil {
		return nil, err
	}

	rel, err := s.mutate(ctx, actor, actor.UserID, targetID, func(tx repository.Stores) (bool, error) {
		return s.addEdge(ctx, tx, actor.UserID, targetID)
	})
	if errors.Is(err, repository.ErrEdgeExists) {
		// Another replica committed the same edge first.
		rel, err = loadRelation(ctx, s.repo.Stores(), actor.UserID, targetID)
	}
	if err != nil {
		return nil, s.fail(ctx, "follow", err)
	}

	if rel.Changed {
		s.invalidateCounters(ctx, rel)
		s.publish(ctx, targetID, pubsub.EventFollowCreated, followPayload(rel))
		audit.Log(ctx, audit.ActionFollow, actor.UserID, targetID, "user followed")
	}
	return rel, nil
}

// Unfollow removes the edge actor→target.
func (s *followGraphService) Unfollow(ctx context.Context, actor domain.Identity, targetID string) (*domain.Relation, error) {
	if err := checkPair(actor, targetID); err != nil {
		return nil, err
	}

	rel, err := s.mutate(ctx, actor, actor.UserID, targetID, func(tx repository.Stores) (bool, error) {
		return removeEdge(ctx, tx, actor.UserID, targetID)
	})
	if err != nil {
		return nil, s.fail(ctx, "unfollow", err)
	}

	if rel.Changed {
		s.invalidateCounters(ctx, rel)
		s.publish(ctx, targetID, pubsub.EventFollowRemoved, followPayload(rel))
		audit.Log(ctx, audit.ActionUnfollow, actor.UserID, targetID, "user unfollowed")
	}
	return rel, nil
}

// SendFollowRequest stores a pending request from actor to target. Sending
// again refreshes the snapshot and timestamp. Nothing is stored when actor
// already follows target.
func (s *followGraphService) SendFollowRequest(ctx context.Context, actor domain.Identity, targetID string) (*domain.Relation, error) {
	if err := checkPair(actor, targetID); err != nil {
		return nil, err
	}

	var snap domain.RequesterSnapshot
	rel, err := s.mutate(ctx, actor, actor.UserID, targetID, func(tx repository.Stores) (bool, error) {
		if _, err := tx.Users.Get(ctx, targetID); err != nil {
			return false, err
		}
		following, err := tx.Edges.Exists(ctx, actor.UserID, domain.EdgeFollowing, targetID)
		if err != nil || following {
			return false, err
		}
		pending, err := tx.Requests.Exists(ctx, targetID, actor.UserID)
		if err != nil {
			return false, err
		}

		me, err := tx.Users.Get(ctx, actor.UserID)
		if err != nil {
			return false, err
		}
		snap = domain.RequesterSnapshot{
			DisplayName: me.DisplayName,
			PhotoURL:    me.PhotoURL,
			RequestedAt: s.now(),
		}
		if err := tx.Requests.Upsert(ctx, targetID, actor.UserID, snap); err != nil {
			return false, err
		}
		return !pending, nil
	})
	if err != nil {
		return nil, s.fail(ctx, "send_follow_request", err)
	}

	if rel.Changed {
		s.publish(ctx, targetID, pubsub.EventFollowRequestCreated, pubsub.FollowRequestPayload{
			RequesterID:    actor.UserID,
			TargetID:       targetID,
			RequesterName:  snap.DisplayName,
			RequesterPhoto: snap.PhotoURL,
		})
		audit.Log(ctx, audit.ActionRequestFollow, actor.UserID, targetID, "follow request sent")
	}
	return rel, nil
}

// CheckFollowRequestStatus reports whether actor has a pending request to target.
func (s *followGraphService) CheckFollowRequestStatus(ctx context.Context, actor domain.Identity, targetID string) (bool, error) {
	if err := checkPair(actor, targetID); err != nil {
		return false, err
	}

	pending, err := s.repo.Stores().Requests.Exists(ctx, targetID, actor.UserID)
	if err != nil {
		return false, s.fail(ctx, "check_follow_request", err)
	}
	return pending, nil
}

// RequestOrFollow dispatches on the target's account type.
func (s *followGraphService) RequestOrFollow(ctx context.Context, actor domain.Identity, targetID string) (*domain.Relation, error) {
	if err := checkPair(actor, targetID); err != nil {
		return nil, err
	}

	target, err := s.repo.Stores().Users.Get(ctx, targetID)
	if err != nil {
		return nil, s.fail(ctx, "request_or_follow", err)
	}
	if target.AccountType == domain.AccountPrivate {
		return s.SendFollowRequest(ctx, actor, targetID)
	}
	return s.Follow(ctx, actor, targetID)
}

// AcceptFollowRequest turns the pending request requester→owner into an edge.
func (s *followGraphService) AcceptFollowRequest(ctx context.Context, owner domain.Identity, requesterID string) (*domain.Relation, error) {
	if err := checkPair(owner, requesterID); err != nil {
		return nil, err
	}

	rel, err := s.mutate(ctx, owner, requesterID, owner.UserID, func(tx repository.Stores) (bool, error) {
		removed, err := tx.Requests.Delete(ctx, owner.UserID, requesterID)
		if err != nil {
			return false, err
		}
		if !removed {
			return false, repository.ErrRequestNotFound
		}
		if _, err := s.addEdge(ctx, tx, requesterID, owner.UserID); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return nil, s.fail(ctx, "accept_follow_request", err)
	}

	s.invalidateCounters(ctx, rel)
	s.publish(ctx, owner.UserID, pubsub.EventFollowRequestAccepted, pubsub.FollowRequestPayload{
		RequesterID: requesterID,
		TargetID:    owner.UserID,
	})
	s.publish(ctx, owner.UserID, pubsub.EventFollowCreated, followPayload(rel))
	audit.Log(ctx, audit.ActionAcceptRequest, owner.UserID, requesterID, "follow request accepted")
	return rel, nil
}

// RejectFollowRequest drops the pending request requester→owner.
func (s *followGraphService) RejectFollowRequest(ctx context.Context, owner domain.Identity, requesterID string) (*domain.Relation, error) {
	if err := checkPair(owner, requesterID); err != nil {
		return nil, err
	}

	rel, err := s.mutate(ctx, owner, requesterID, owner.UserID, func(tx repository.Stores) (bool, error) {
		removed, err := tx.Requests.Delete(ctx, owner.UserID, requesterID)
		if err != nil {
			return false, err
		}
		if !removed {
			return false, repository.ErrRequestNotFound
		}
		return true, nil
	})
	if err != nil {
		return nil, s.fail(ctx, "reject_follow_request", err)
	}

	s.publish(ctx, owner.UserID, pubsub.EventFollowRequestRejected, pubsub.FollowRequestPayload{
		RequesterID: requesterID,
		TargetID:    owner.UserID,
	})
	audit.Log(ctx, audit.ActionRejectRequest, owner.UserID, requesterID, "follow request rejected")
	return rel, nil
}

// CancelFollowRequest withdraws actor's pending request to target, if any.
func (s *followGraphService) CancelFollowRequest(ctx context.Context, actor domain.Identity, targetID string) (*domain.Relation, error) {
	if err := checkPair(actor, targetID); err != nil {
		return nil, err
	}

	rel, err := s.mutate(ctx, actor, actor.UserID, targetID, func(tx repository.Stores) (bool, error) {
		return tx.Requests.Delete(ctx, targetID, actor.UserID)
	})
	if err != nil {
		return nil, s.fail(ctx, "cancel_follow_request", err)
	}

	if rel.Changed {
		s.publish(ctx, targetID, pubsub.EventFollowRequestCancelled, pubsub.FollowRequestPayload{
			RequesterID: actor.UserID,
			TargetID:    targetID,
		})
		audit.Log(ctx, audit.ActionCancelRequest, actor.UserID, targetID, "follow request cancelled")
	}
	return rel, nil
}

// RelationStatus returns the current relation of actor to target.
func (s *followGraphService) RelationStatus(ctx context.Context, actor domain.Identity, targetID string) (*domain.Relation, error) {
	if err := checkPair(actor, targetID); err != nil {
		return nil, err
	}

	rel, err := loadRelation(ctx, s.repo.Stores(), actor.UserID, targetID)
	if err != nil {
		return nil, s.fail(ctx, "relation_status", err)
	}
	return rel, nil
}

// SetAccountType changes the caller's own privacy setting. Pending requests
// are kept when an account turns public.
func (s *followGraphService) SetAccountType(ctx context.Context, actor domain.Identity, accountType domain.AccountType) (*domain.User, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthenticated
	}
	if !accountType.Valid() {
		return nil, ErrInvalidAccountType
	}

	var user *domain.User
	err := s.repo.WithTx(ctx, func(tx repository.Stores) error {
		if err := tx.Users.Ensure(ctx, actor); err != nil {
			return err
		}
		if err := tx.Users.SetAccountType(ctx, actor.UserID, accountType); err != nil {
			return err
		}
		var err error
		user, err = tx.Users.Get(ctx, actor.UserID)
		return err
	})
	if err != nil {
		return nil, s.fail(ctx, "set_account_type", err)
	}

	audit.LogWithDetail(ctx, audit.ActionUpdatePrivacy, actor.UserID, string(accountType), "account type updated")
	return user, nil
}

// GetProfile returns userID's profile as seen by viewer. Viewer may be anonymous.
func (s *followGraphService) GetProfile(ctx context.Context, viewer domain.Identity, userID string) (*domain.Profile, error) {
	l := pkglog.Ctx(ctx)

	if userID == "" {
		return nil, ErrUserNotFound
	}

	// Callers share one load per user. It runs detached from any single
	// caller so a disconnect does not fail the others waiting on it.
	ch := s.profiles.DoChan(userID, func() (any, error) {
		return s.loadUser(context.WithoutCancel(ctx), userID)
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.Err != nil {
		return nil, s.fail(ctx, "get_profile", res.Err)
	}

	// Hot key tracking is best-effort and only for users that exist.
	if err := s.cache.RecordAccess(ctx, userID); err != nil {
		l.Warn().Err(err).Str(pkglog.FieldTargetID, userID).Msg("failed to record hot key access")
	}

	profile := &domain.Profile{
		User:     *res.Val.(*domain.User),
		IsOwner:  viewer.Authenticated() && viewer.UserID == userID,
		Relation: domain.RelationNone,
	}
	if viewer.Authenticated() && !profile.IsOwner {
		state, err := relationState(ctx, s.repo.Stores(), viewer.UserID, userID)
		if err != nil {
			return nil, s.fail(ctx, "get_profile", err)
		}
		profile.Relation = state
	}
	profile.CanView = domain.CanView(profile.IsOwner, profile.User.AccountType, profile.Relation == domain.RelationFollowing)
	return profile, nil
}

// loadUser reads the user record and its counters in parallel. Counters come
// from the cache when present.
func (s *followGraphService) loadUser(ctx context.Context, userID string) (*domain.User, error) {
	st := s.repo.Stores()

	var (
		user     *domain.User
		counters domain.Counters
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := st.Users.Get(gctx, userID)
		user = u
		return err
	})
	g.Go(func() error {
		c, err := s.counters(gctx, st, userID)
		counters = c
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	user.Stats = counters
	return user, nil
}

// counters checks the cache first; on miss it reads the database and
// populates the cache.
func (s *followGraphService) counters(ctx context.Context, st repository.Stores, userID string) (domain.Counters, error) {
	l := pkglog.Ctx(ctx)

	c, found, err := s.cache.GetCounters(ctx, userID)
	if err != nil {
		l.Warn().Err(err).Str(pkglog.FieldTargetID, userID).Msg("redis get counters failed, falling back to db")
	}
	if found {
		return c, nil
	}

	c, err = st.Counters.Get(ctx, userID)
	if err != nil {
		return domain.Counters{}, err
	}

	if err := s.cache.SetCounters(ctx, userID, c); err != nil {
		l.Warn().Err(err).Str(pkglog.FieldTargetID, userID).Msg("failed to set counters in redis")
	}
	return c, nil
}

// ListFollowers returns one page of the users following userID.
func (s *followGraphService) ListFollowers(ctx context.Context, viewer domain.Identity, userID, cursor string, limit int) (*ConnectionPage, error) {
	return s.listConnections(ctx, "list_followers", viewer, userID, domain.EdgeFollowers, cursor, limit)
}

// ListFollowing returns one page of the users userID follows.
func (s *followGraphService) ListFollowing(ctx context.Context, viewer domain.Identity, userID, cursor string, limit int) (*ConnectionPage, error) {
	return s.listConnections(ctx, "list_following", viewer, userID, domain.EdgeFollowing, cursor, limit)
}

func (s *followGraphService) listConnections(ctx context.Context, op string, viewer domain.Identity, userID string, kind domain.EdgeKind, cursor string, limit int) (*ConnectionPage, error) {
	if userID == "" {
		return nil, ErrUserNotFound
	}
	cur, err := repository.DecodeCursor(cursor)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	st := s.repo.Stores()
	user, err := st.Users.Get(ctx, userID)
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}

	isOwner := viewer.Authenticated() && viewer.UserID == userID
	isFollowing := false
	if viewer.Authenticated() && !isOwner && user.AccountType == domain.AccountPrivate {
		isFollowing, err = st.Edges.Exists(ctx, viewer.UserID, domain.EdgeFollowing, userID)
		if err != nil {
			return nil, s.fail(ctx, op, err)
		}
	}
	if !domain.CanView(isOwner, user.AccountType, isFollowing) {
		return nil, ErrForbidden
	}

	limit = clampLimit(limit)
	conns, err := st.Edges.List(ctx, userID, kind, cur, limit+1)
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}

	page := &ConnectionPage{Items: conns}
	if len(conns) > limit {
		page.Items = conns[:limit]
		last := page.Items[limit-1]
		page.NextCursor = repository.Cursor{At: last.FollowedAt, ID: last.UserID}.Encode()
	}
	if page.Items == nil {
		page.Items = []domain.Connection{}
	}
	return page, nil
}

// ListFollowRequests returns one page of owner's pending incoming requests.
func (s *followGraphService) ListFollowRequests(ctx context.Context, owner domain.Identity, cursor string, limit int) (*RequestPage, error) {
	if !owner.Authenticated() {
		return nil, ErrUnauthenticated
	}
	cur, err := repository.DecodeCursor(cursor)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	limit = clampLimit(limit)
	reqs, err := s.repo.Stores().Requests.List(ctx, owner.UserID, cur, limit+1)
	if err != nil {
		return nil, s.fail(ctx, "list_follow_requests", err)
	}

	page := &RequestPage{Items: reqs}
	if len(reqs) > limit {
		page.Items = reqs[:limit]
		last := page.Items[limit-1]
		page.NextCursor = repository.Cursor{At: last.RequestedAt, ID: last.RequesterID}.Encode()
	}
	if page.Items == nil {
		page.Items = []domain.FollowRequest{}
	}
	return page, nil
}

// BatchIsFollowing checks whether actor follows each of the given targetIDs.
func (s *followGraphService) BatchIsFollowing(ctx context.Context, actor domain.Identity, targetIDs []string) (map[string]bool, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthenticated
	}
	if len(targetIDs) > MaxBatchTargets {
		return nil, ErrTooManyTargets
	}

	result, err := s.repo.Stores().Edges.ExistsMany(ctx, actor.UserID, domain.EdgeFollowing, targetIDs)
	if err != nil {
		return nil, s.fail(ctx, "batch_is_following", err)
	}
	return result, nil
}

// mutate runs fn under the lock of follower→followee in one transaction and
// returns the committed relation of that pair. The caller's user row is
// created or refreshed in the same transaction.
func (s *followGraphService) mutate(
	ctx context.Context,
	caller domain.Identity,
	followerID, followeeID string,
	fn func(tx repository.Stores) (bool, error),
) (*domain.Relation, error) {
	unlock, err := s.locker.Lock(ctx, followerID, followeeID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var rel *domain.Relation
	err = s.repo.WithTx(ctx, func(tx repository.Stores) error {
		if err := tx.Users.Ensure(ctx, caller); err != nil {
			return err
		}
		changed, err := fn(tx)
		if err != nil {
			return err
		}
		rel, err = loadRelation(ctx, tx, followerID, followeeID)
		if err != nil {
			return err
		}
		rel.Changed = changed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rel, nil
}

// addEdge writes whichever reflections of follower→followee are missing,
// counts each one, and clears a stale request for the pair.
func (s *followGraphService) addEdge(ctx context.Context, tx repository.Stores, followerID, followeeID string) (bool, error) {
	hasFollowing, err := tx.Edges.Exists(ctx, followerID, domain.EdgeFollowing, followeeID)
	if err != nil {
		return false, err
	}
	hasFollowers, err := tx.Edges.Exists(ctx, followeeID, domain.EdgeFollowers, followerID)
	if err != nil {
		return false, err
	}
	if hasFollowing && hasFollowers {
		return false, nil
	}

	if _, err := tx.Users.Get(ctx, followeeID); err != nil {
		return false, err
	}

	at := s.now()
	if !hasFollowing {
		if err := tx.Edges.Put(ctx, followerID, domain.EdgeFollowing, followeeID, at); err != nil {
			return false, err
		}
		if err := tx.Counters.ApplyDelta(ctx, followerID, domain.EdgeFollowing, 1); err != nil {
			return false, err
		}
	}
	if !hasFollowers {
		if err := tx.Edges.Put(ctx, followeeID, domain.EdgeFollowers, followerID, at); err != nil {
			return false, err
		}
		if err := tx.Counters.ApplyDelta(ctx, followeeID, domain.EdgeFollowers, 1); err != nil {
			return false, err
		}
	}

	if _, err := tx.Requests.Delete(ctx, followeeID, followerID); err != nil {
		return false, err
	}
	return true, nil
}

// removeEdge deletes both reflections of follower→followee and decrements
// the counter of each reflection that existed.
func removeEdge(ctx context.Context, tx repository.Stores, followerID, followeeID string) (bool, error) {
	removedFollowing, err := tx.Edges.Delete(ctx, followerID, domain.EdgeFollowing, followeeID)
	if err != nil {
		return false, err
	}
	removedFollowers, err := tx.Edges.Delete(ctx, followeeID, domain.EdgeFollowers, followerID)
	if err != nil {
		return false, err
	}

	if removedFollowing {
		if err := tx.Counters.ApplyDelta(ctx, followerID, domain.EdgeFollowing, -1); err != nil {
			return false, err
		}
	}
	if removedFollowers {
		if err := tx.Counters.ApplyDelta(ctx, followeeID, domain.EdgeFollowers, -1); err != nil {
			return false, err
		}
	}
	return removedFollowing || removedFollowers, nil
}

// loadRelation reads the relation of actor to target. A missing actor row
// reads as zero counters; a missing target is ErrUserNotFound.
func loadRelation(ctx context.Context, st repository.Stores, actorID, targetID string) (*domain.Relation, error) {
	targetCounters, err := st.Counters.Get(ctx, targetID)
	if err != nil {
		return nil, err
	}
	actorCounters, err := st.Counters.Get(ctx, actorID)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	state, err := relationState(ctx, st, actorID, targetID)
	if err != nil {
		return nil, err
	}

	return &domain.Relation{
		ActorID:  actorID,
		TargetID: targetID,
		State:    state,
		Actor:    actorCounters,
		Target:   targetCounters,
	}, nil
}

func relationState(ctx context.Context, st repository.Stores, actorID, targetID string) (domain.RelationState, error) {
	following, err := st.Edges.Exists(ctx, actorID, domain.EdgeFollowing, targetID)
	if err != nil {
		return "", err
	}
	if following {
		return domain.RelationFollowing, nil
	}

	requested, err := st.Requests.Exists(ctx, targetID, actorID)
	if err != nil {
		return "", err
	}
	if requested {
		return domain.RelationRequested, nil
	}
	return domain.RelationNone, nil
}

// invalidateCounters drops both users' cached counters after a committed
// change. A failed drop leaves the cache ahead of or behind the database
// until the reconciler refreshes it.
func (s *followGraphService) invalidateCounters(ctx context.Context, rel *domain.Relation) {
	s.invalidate(ctx, rel.ActorID, rel.Actor)
	s.invalidate(ctx, rel.TargetID, rel.Target)
}

func (s *followGraphService) invalidate(ctx context.Context, userID string, actual domain.Counters) {
	err := s.cache.DeleteCounters(ctx, userID)
	if err == nil {
		return
	}
	LogConsistency(ctx, &PartialConsistencyError{
		UserID: userID, Scope: ScopeCache, Field: string(domain.EdgeFollowers),
		Stored: -1, Actual: actual.Followers, Err: err,
	})
	LogConsistency(ctx, &PartialConsistencyError{
		UserID: userID, Scope: ScopeCache, Field: string(domain.EdgeFollowing),
		Stored: -1, Actual: actual.Following, Err: err,
	})
}

func (s *followGraphService) publish(ctx context.Context, userID, eventType string, payload any) {
	l := pkglog.Ctx(ctx)

	event, err := pubsub.NewEvent(eventType, userID, payload)
	if err != nil {
		l.Error().Err(err).Str("event_type", eventType).Msg("failed to build graph event")
		return
	}
	if err := s.publisher.Publish(ctx, pubsub.UserGraphChannel(userID), event); err != nil {
		l.Warn().Err(err).Str("event_type", eventType).Str(pkglog.FieldTargetID, userID).Msg("failed to publish graph event")
	}
}

func followPayload(rel *domain.Relation) pubsub.FollowPayload {
	return pubsub.FollowPayload{
		FollowerID: rel.ActorID,
		FolloweeID: rel.TargetID,
		Followers:  rel.Target.Followers,
		Following:  rel.Actor.Following,
	}
}

// fail translates repository errors into service errors. Anything else is
// a StoreError.
func (s *followGraphService) fail(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		return ErrUserNotFound
	case errors.Is(err, repository.ErrRequestNotFound):
		return ErrRequestNotFound
	}

	l := pkglog.Ctx(ctx)
	l.Error().Err(err).Str("op", op).Msg("graph store failure")
	return &StoreError{Op: op, Err: err}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	if limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}

// Ensure interface is satisfied at compile time.
var _ FollowGraphService = (*followGraphService)(nil)
