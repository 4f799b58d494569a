package pubsub

import "fmt"

// Channel naming conventions for social graph events. Events are keyed by
// the user whose graph changed from the receiving side (the followee or the
// request target), so a consumer sees one user's history in order.
const (
	ChannelUserGraphEvents = "graph:user:%s:events"
)

// Event types published by follow-graph-service.
const (
	EventFollowCreated          = "follow.created"
	EventFollowRemoved          = "follow.removed"
	EventFollowRequestCreated   = "follow_request.created"
	EventFollowRequestAccepted  = "follow_request.accepted"
	EventFollowRequestRejected  = "follow_request.rejected"
	EventFollowRequestCancelled = "follow_request.cancelled"
)

// UserGraphChannel returns the channel name for graph events about userID.
func UserGraphChannel(userID string) string {
	return fmt.Sprintf(ChannelUserGraphEvents, userID)
}

// FollowPayload describes an edge change.
type FollowPayload struct {
	FollowerID string `json:"follower_id"`
	FolloweeID string `json:"followee_id"`
	Followers  int64  `json:"followers"` // followee's follower count after the change
	Following  int64  `json:"following"` // follower's following count after the change
}

// FollowRequestPayload describes a follow request change.
type FollowRequestPayload struct {
	RequesterID    string `json:"requester_id"`
	TargetID       string `json:"target_id"`
	RequesterName  string `json:"requester_name,omitempty"`
	RequesterPhoto string `json:"requester_photo,omitempty"`
}
