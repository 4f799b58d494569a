package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/weiawesome/wes-io-live/follow-graph-service/internal/domain"
)

var (
	ErrUnauthenticated    = errors.New("authentication required")
	ErrSelfFollow         = errors.New("cannot follow yourself")
	ErrUserNotFound       = errors.New("user not found")
	ErrRequestNotFound    = errors.New("follow request not found")
	ErrForbidden          = errors.New("this account is private")
	ErrInvalidAccountType = errors.New("invalid account type")
	ErrInvalidCursor      = errors.New("invalid cursor")
	ErrTooManyTargets     = errors.New("too many target users")
)

// StoreError wraps a persistence failure. Nothing was committed.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: store failure: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Consistency scopes.
const (
	ScopeCache      = "cache"      // cached counters differ from the database
	ScopeCounter    = "counter"    // stored counter differs from the adjacency list size
	ScopeReflection = "reflection" // one reflection of an edge has no mirror
)

// PartialConsistencyError reports a counter or reflection that diverged from
// the source of truth. Stored is -1 when the diverging value is unknown.
type PartialConsistencyError struct {
	UserID  string
	OtherID string
	Scope   string
	Field   string
	Stored  int64
	Actual  int64
	Err     error
}

func (e *PartialConsistencyError) Error() string {
	msg := fmt.Sprintf("partial consistency (%s) user=%s field=%s stored=%d actual=%d", e.Scope, e.UserID, e.Field, e.Stored, e.Actual)
	if e.OtherID != "" {
		msg += " other=" + e.OtherID
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PartialConsistencyError) Unwrap() error { return e.Err }

// Page limits for list operations.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	MaxBatchTargets = 100
)

// ConnectionPage is one page of a followers or following list.
type ConnectionPage struct {
	Items      []domain.Connection
	NextCursor string
}

// RequestPage is one page of pending follow requests.
type RequestPage struct {
	Items      []domain.FollowRequest
	NextCursor string
}

// FollowGraphService defines the business logic for the follow graph.
// Mutating operations return the relation of the acting pair as committed.
type FollowGraphService interface {
	Follow(ctx context.Context, actor domain.Identity, targetID string) (*domain.Relation, error)
	Unfollow(ctx context.Context, actor domain.Identity, targetID string) (*domain.Relation, error)
	SendFollowRequest(ctx context.Context, actor domain.Identity, targetID string) (*domain.Relation, error)
	CheckFollowRequestStatus(ctx context.Context, actor domain.Identity, targetID string) (bool, error)
	// RequestOrFollow follows public accounts and requests private ones.
	RequestOrFollow(ctx context.Context, actor domain.Identity, targetID string) (*domain.Relation, error)
	AcceptFollowRequest(ctx context.Context, owner domain.Identity, requesterID string) (*domain.Relation, error)
	RejectFollowRequest(ctx context.Context, owner domain.Identity, requesterID string) (*domain.Relation, error)
	CancelFollowRequest(ctx context.Context, actor domain.Identity, targetID string) (*domain.Relation, error)
	RelationStatus(ctx context.Context, actor domain.Identity, targetID string) (*domain.Relation, error)
	SetAccountType(ctx context.Context, actor domain.Identity, accountType domain.AccountType) (*domain.User, error)

	GetProfile(ctx context.Context, viewer domain.Identity, userID string) (*domain.Profile, error)
	ListFollowers(ctx context.Context, viewer domain.Identity, userID, cursor string, limit int) (*ConnectionPage, error)
	ListFollowing(ctx context.Context, viewer domain.Identity, userID, cursor string, limit int) (*ConnectionPage, error)
	ListFollowRequests(ctx context.Context, owner domain.Identity, cursor string, limit int) (*RequestPage, error)
	BatchIsFollowing(ctx context.Context, actor domain.Identity, targetIDs []string) (map[string]bool, error)
}
