package domain

import (
	"time"
)

// UserModel is the GORM model for the users table. Counters are
// denormalized and must equal the size of the user's adjacency lists.
// AccountTypeLocked is set once the user changes privacy here; from then on
// profile sync no longer touches AccountType.
type UserModel struct {
	ID                string    `gorm:"column:id;type:varchar(36);primaryKey"`
	DisplayName       string    `gorm:"column:display_name;type:varchar(100)"`
	PhotoURL          string    `gorm:"column:photo_url;type:varchar(512)"`
	AccountType       string    `gorm:"column:account_type;type:varchar(16);not null;default:public"`
	AccountTypeLocked bool      `gorm:"column:account_type_locked;not null;default:false"`
	FollowersCount    int64     `gorm:"column:followers_count;not null;default:0"`
	FollowingCount    int64     `gorm:"column:following_count;not null;default:0"`
	CreatedAt         time.Time `gorm:"autoCreateTime"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime"`
}

func (UserModel) TableName() string { return "users" }

// ToDomain converts UserModel to domain User.
func (m *UserModel) ToDomain() *User {
	return &User{
		ID:          m.ID,
		DisplayName: m.DisplayName,
		PhotoURL:    m.PhotoURL,
		AccountType: AccountType(m.AccountType),
		Stats: Counters{
			Followers: m.FollowersCount,
			Following: m.FollowingCount,
		},
		CreatedAt: m.CreatedAt,
	}
}

// FollowEdgeModel is one reflection of a follow edge. The edge A→B is stored
// twice: (owner=A, kind=following, other=B) and (owner=B, kind=followers, other=A).
type FollowEdgeModel struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	OwnerID    string    `gorm:"column:owner_id;type:varchar(36);not null;uniqueIndex:uidx_edge_reflection,priority:1;index:idx_edge_owner_kind_at,priority:1"`
	Kind       string    `gorm:"column:kind;type:varchar(16);not null;uniqueIndex:uidx_edge_reflection,priority:2;index:idx_edge_owner_kind_at,priority:2"`
	OtherID    string    `gorm:"column:other_id;type:varchar(36);not null;uniqueIndex:uidx_edge_reflection,priority:3"`
	FollowedAt time.Time `gorm:"column:followed_at;not null;index:idx_edge_owner_kind_at,priority:3"`
}

func (FollowEdgeModel) TableName() string { return "follow_edges" }

// FollowRequestModel is a pending follow request, keyed by (target, requester).
type FollowRequestModel struct {
	TargetID       string    `gorm:"column:target_id;type:varchar(36);primaryKey"`
	RequesterID    string    `gorm:"column:requester_id;type:varchar(36);primaryKey"`
	RequesterName  string    `gorm:"column:requester_name;type:varchar(100)"`
	RequesterPhoto string    `gorm:"column:requester_photo;type:varchar(512)"`
	RequestedAt    time.Time `gorm:"column:requested_at;not null;index"`
}

func (FollowRequestModel) TableName() string { return "follow_requests" }

// ToDomain converts FollowRequestModel to domain FollowRequest.
func (m *FollowRequestModel) ToDomain() FollowRequest {
	return FollowRequest{
		RequesterID:    m.RequesterID,
		TargetID:       m.TargetID,
		RequesterName:  m.RequesterName,
		RequesterPhoto: m.RequesterPhoto,
		RequestedAt:    m.RequestedAt,
	}
}

// Models lists every table owned by the service, in migration order.
func Models() []interface{} {
	return []interface{}{&UserModel{}, &FollowEdgeModel{}, &FollowRequestModel{}}
}
