package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/weiawesome/wes-io-live/follow-graph-service/internal/domain"
)

// GormRequestStore implements RequestStore using GORM.
type GormRequestStore struct {
	db *gorm.DB
}

// NewGormRequestStore creates a new GORM-backed request store.
func NewGormRequestStore(db *gorm.DB) *GormRequestStore {
	return &GormRequestStore{db: db}
}

// Upsert stores the request, overwriting the snapshot and timestamp of an
// earlier request for the same pair.
func (r *GormRequestStore) Upsert(ctx context.Context, targetID, requesterID string, snap domain.RequesterSnapshot) error {
	model := domain.FollowRequestModel{
		TargetID:       targetID,
		RequesterID:    requesterID,
		RequesterName:  snap.DisplayName,
		RequesterPhoto: snap.PhotoURL,
		RequestedAt:    snap.RequestedAt,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "target_id"}, {Name: "requester_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"requester_name", "requester_photo", "requested_at"}),
		}).
		Create(&model).Error
}

// Get returns the pending request or ErrRequestNotFound.
func (r *GormRequestStore) Get(ctx context.Context, targetID, requesterID string) (*domain.FollowRequest, error) {
	var model domain.FollowRequestModel
	err := r.db.WithContext(ctx).
		Where("target_id = ? AND requester_id = ?", targetID, requesterID).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	req := model.ToDomain()
	return &req, nil
}

// Exists checks whether a request is pending.
func (r *GormRequestStore) Exists(ctx context.Context, targetID, requesterID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.FollowRequestModel{}).
		Where("target_id = ? AND requester_id = ?", targetID, requesterID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Delete removes the request and reports whether it existed.
func (r *GormRequestStore) Delete(ctx context.Context, targetID, requesterID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("target_id = ? AND requester_id = ?", targetID, requesterID).
		Delete(&domain.FollowRequestModel{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// List returns one page of the target's pending requests, newest first.
func (r *GormRequestStore) List(ctx context.Context, targetID string, cursor Cursor, limit int) ([]domain.FollowRequest, error) {
	q := r.db.WithContext(ctx).Where("target_id = ?", targetID)
	if !cursor.IsZero() {
		q = q.Where("(requested_at < ?) OR (requested_at = ? AND requester_id < ?)", cursor.At, cursor.At, cursor.ID)
	}

	var models []domain.FollowRequestModel
	err := q.Order("requested_at DESC").Order("requester_id DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	reqs := make([]domain.FollowRequest, 0, len(models))
	for i := range models {
		reqs = append(reqs, models[i].ToDomain())
	}
	return reqs, nil
}

// Ensure interface is satisfied at compile time.
var _ RequestStore = (*GormRequestStore)(nil)
