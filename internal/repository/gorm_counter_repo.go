package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/weiawesome/wes-io-live/follow-graph-service/internal/domain"
)

// GormCounterStore implements CounterSync on the users table.
type GormCounterStore struct {
	db *gorm.DB
}

// NewGormCounterStore creates a new GORM-backed counter store.
func NewGormCounterStore(db *gorm.DB) *GormCounterStore {
	return &GormCounterStore{db: db}
}

// ApplyDelta adds delta to the counter, never letting it drop below zero.
func (r *GormCounterStore) ApplyDelta(ctx context.Context, userID string, field domain.EdgeKind, delta int64) error {
	col, err := counterColumn(field)
	if err != nil {
		return err
	}

	expr := gorm.Expr("CASE WHEN "+col+" + ? < 0 THEN 0 ELSE "+col+" + ? END", delta, delta)
	result := r.db.WithContext(ctx).Model(&domain.UserModel{}).
		Where("id = ?", userID).
		UpdateColumn(col, expr)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// MySQL reports 0 rows when the value did not change (floored at 0).
		return userMustExist(ctx, r.db, userID)
	}
	return nil
}

// Set overwrites the counter with an absolute value.
func (r *GormCounterStore) Set(ctx context.Context, userID string, field domain.EdgeKind, value int64) error {
	col, err := counterColumn(field)
	if err != nil {
		return err
	}
	if value < 0 {
		value = 0
	}

	result := r.db.WithContext(ctx).Model(&domain.UserModel{}).
		Where("id = ?", userID).
		UpdateColumn(col, value)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return userMustExist(ctx, r.db, userID)
	}
	return nil
}

// Get returns both counters of a user.
func (r *GormCounterStore) Get(ctx context.Context, userID string) (domain.Counters, error) {
	var model domain.UserModel
	err := r.db.WithContext(ctx).
		Select("followers_count", "following_count").
		Where("id = ?", userID).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Counters{}, ErrUserNotFound
		}
		return domain.Counters{}, err
	}
	return domain.Counters{Followers: model.FollowersCount, Following: model.FollowingCount}, nil
}

// GetForUpdate reads both counters and holds the user row lock until the
// surrounding transaction ends, so no follow or unfollow can move them
// meanwhile. SQLite has no row locks and ignores the clause.
func (r *GormCounterStore) GetForUpdate(ctx context.Context, userID string) (domain.Counters, error) {
	var model domain.UserModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("followers_count", "following_count").
		Where("id = ?", userID).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Counters{}, ErrUserNotFound
		}
		return domain.Counters{}, err
	}
	return domain.Counters{Followers: model.FollowersCount, Following: model.FollowingCount}, nil
}

// Recount sets the counter to the size of its adjacency list in a single
// statement and returns the new value.
func (r *GormCounterStore) Recount(ctx context.Context, userID string, field domain.EdgeKind) (int64, error) {
	col, err := counterColumn(field)
	if err != nil {
		return 0, err
	}

	size := r.db.Model(&domain.FollowEdgeModel{}).
		Select("COUNT(*)").
		Where("owner_id = ? AND kind = ?", userID, string(field))
	result := r.db.WithContext(ctx).Model(&domain.UserModel{}).
		Where("id = ?", userID).
		UpdateColumn(col, size)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		if err := userMustExist(ctx, r.db, userID); err != nil {
			return 0, err
		}
	}

	c, err := r.Get(ctx, userID)
	if err != nil {
		return 0, err
	}
	if field == domain.EdgeFollowing {
		return c.Following, nil
	}
	return c.Followers, nil
}

func counterColumn(field domain.EdgeKind) (string, error) {
	switch field {
	case domain.EdgeFollowers:
		return "followers_count", nil
	case domain.EdgeFollowing:
		return "following_count", nil
	default:
		return "", fmt.Errorf("unknown counter field %q", field)
	}
}

// Ensure interface is satisfied at compile time.
var _ CounterSync = (*GormCounterStore)(nil)
