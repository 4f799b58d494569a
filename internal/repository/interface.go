package repository

import (
	"context"
	"errors"
	"time"

	"github.com/weiawesome/wes-io-live/follow-graph-service/internal/domain"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrRequestNotFound = errors.New("follow request not found")
	ErrEdgeExists      = errors.New("edge reflection already exists")
	ErrInvalidCursor   = errors.New("invalid cursor")
)

// EdgeStore persists edge reflections: the followers and following
// adjacency lists of every user.
type EdgeStore interface {
	Put(ctx context.Context, ownerID string, kind domain.EdgeKind, otherID string, at time.Time) error
	Delete(ctx context.Context, ownerID string, kind domain.EdgeKind, otherID string) (bool, error)
	Exists(ctx context.Context, ownerID string, kind domain.EdgeKind, otherID string) (bool, error)
	ExistsMany(ctx context.Context, ownerID string, kind domain.EdgeKind, otherIDs []string) (map[string]bool, error)
	Count(ctx context.Context, ownerID string, kind domain.EdgeKind) (int64, error)
	List(ctx context.Context, ownerID string, kind domain.EdgeKind, cursor Cursor, limit int) ([]domain.Connection, error)
	// ListOrphans returns reflections whose mirror is missing, ordered by id.
	ListOrphans(ctx context.Context, afterID uint, limit int) ([]domain.FollowEdgeModel, error)
}

// RequestStore persists pending follow requests keyed by (target, requester).
type RequestStore interface {
	Upsert(ctx context.Context, targetID, requesterID string, snap domain.RequesterSnapshot) error
	Get(ctx context.Context, targetID, requesterID string) (*domain.FollowRequest, error)
	Exists(ctx context.Context, targetID, requesterID string) (bool, error)
	Delete(ctx context.Context, targetID, requesterID string) (bool, error)
	List(ctx context.Context, targetID string, cursor Cursor, limit int) ([]domain.FollowRequest, error)
}

// CounterSync maintains the denormalized follower/following counters.
// Grouping calls into one all-or-nothing unit is done with GraphRepository.WithTx.
type CounterSync interface {
	// ApplyDelta adds delta to the field; the result is floored at zero.
	ApplyDelta(ctx context.Context, userID string, field domain.EdgeKind, delta int64) error
	Set(ctx context.Context, userID string, field domain.EdgeKind, value int64) error
	Get(ctx context.Context, userID string) (domain.Counters, error)
	// GetForUpdate is Get plus a row lock held until the transaction ends.
	GetForUpdate(ctx context.Context, userID string) (domain.Counters, error)
	// Recount rewrites the field from the adjacency list size in one statement.
	Recount(ctx context.Context, userID string, field domain.EdgeKind) (int64, error)
}

// UserRepository persists the graph's copy of user records.
type UserRepository interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	// Ensure creates the user if missing and refreshes non-empty display fields.
	Ensure(ctx context.Context, id domain.Identity) error
	// UpsertProfile applies a profile change from user-service. It never
	// overrides an account type set locally through SetAccountType.
	UpsertProfile(ctx context.Context, userID, displayName, photoURL string, accountType domain.AccountType) error
	SetAccountType(ctx context.Context, userID string, accountType domain.AccountType) error
	// ListIDs pages through all user ids in ascending order.
	ListIDs(ctx context.Context, afterID string, limit int) ([]string, error)
}

// Stores groups the stores bound to one database handle or transaction.
type Stores struct {
	Edges    EdgeStore
	Requests RequestStore
	Counters CounterSync
	Users    UserRepository
}

// GraphRepository hands out stores and runs units of work atomically.
type GraphRepository interface {
	Stores() Stores
	// WithTx runs fn inside one database transaction. Any error returned
	// by fn rolls back every write made through the given stores.
	WithTx(ctx context.Context, fn func(s Stores) error) error
}
