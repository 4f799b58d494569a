package domain

import (
	"time"
)

// AccountType controls who may see a profile's content.
type AccountType string

const (
	AccountPublic  AccountType = "public"
	AccountPrivate AccountType = "private"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	return t == AccountPublic || t == AccountPrivate
}

// EdgeKind names one of a user's two adjacency lists.
type EdgeKind string

const (
	EdgeFollowers EdgeKind = "followers"
	EdgeFollowing EdgeKind = "following"
)

// Mirror returns the kind holding the other reflection of the same edge.
func (k EdgeKind) Mirror() EdgeKind {
	if k == EdgeFollowers {
		return EdgeFollowing
	}
	return EdgeFollowers
}

// RelationState is the state of an ordered (actor, target) pair.
type RelationState string

const (
	RelationNone      RelationState = "none"
	RelationRequested RelationState = "requested"
	RelationFollowing RelationState = "following"
)

// Identity is the authenticated caller. An empty UserID means anonymous.
type Identity struct {
	UserID      string
	DisplayName string
	PhotoURL    string
}

// Authenticated reports whether the identity carries a user.
func (i Identity) Authenticated() bool {
	return i.UserID != ""
}

// Counters are a user's denormalized follower/following counts.
type Counters struct {
	Followers int64 `json:"followers"`
	Following int64 `json:"following"`
}

// User is the graph's view of a user.
type User struct {
	ID          string      `json:"id"`
	DisplayName string      `json:"display_name,omitempty"`
	PhotoURL    string      `json:"photo_url,omitempty"`
	AccountType AccountType `json:"account_type"`
	Stats       Counters    `json:"stats"`
	CreatedAt   time.Time   `json:"created_at"`
}

// FollowRequest is a pending request to follow a private account.
type FollowRequest struct {
	RequesterID    string    `json:"requester_id"`
	TargetID       string    `json:"target_id"`
	RequesterName  string    `json:"requester_name,omitempty"`
	RequesterPhoto string    `json:"requester_photo,omitempty"`
	RequestedAt    time.Time `json:"requested_at"`
}

// RequesterSnapshot is the requester's display data copied into a request.
type RequesterSnapshot struct {
	DisplayName string
	PhotoURL    string
	RequestedAt time.Time
}

// Edge is one entry of an adjacency list.
type Edge struct {
	UserID     string    `json:"user_id"`
	FollowedAt time.Time `json:"followed_at"`
}

// Connection is an adjacency entry joined with the other user's display data.
type Connection struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name,omitempty"`
	PhotoURL    string    `json:"photo_url,omitempty"`
	FollowedAt  time.Time `json:"followed_at"`
}

// Relation is the authoritative state of (actor, target) after an operation.
// Changed is false when the pair was already in the resulting state.
type Relation struct {
	ActorID  string        `json:"actor_id"`
	TargetID string        `json:"target_id"`
	State    RelationState `json:"state"`
	Changed  bool          `json:"changed"`
	Actor    Counters      `json:"actor_stats"`
	Target   Counters      `json:"target_stats"`
}

// Profile is what a viewer gets when opening a user's page.
type Profile struct {
	User     User          `json:"user"`
	IsOwner  bool          `json:"is_owner"`
	Relation RelationState `json:"relation"`
	CanView  bool          `json:"can_view"`
}
