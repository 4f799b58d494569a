package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/weiawesome/wes-io-live/follow-graph-service/internal/domain"
)

// isUniqueViolation reports whether err is a unique-constraint violation.
// Requires gorm.Config.TranslateError (see pkg/database).
func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// GormEdgeStore implements EdgeStore using GORM.
type GormEdgeStore struct {
	db *gorm.DB
}

// NewGormEdgeStore creates a new GORM-backed edge store.
func NewGormEdgeStore(db *gorm.DB) *GormEdgeStore {
	return &GormEdgeStore{db: db}
}

// Put writes one reflection. Returns ErrEdgeExists if it is already stored.
func (r *GormEdgeStore) Put(ctx context.Context, ownerID string, kind domain.EdgeKind, otherID string, at time.Time) error {
	model := domain.FollowEdgeModel{
		OwnerID:    ownerID,
		Kind:       string(kind),
		OtherID:    otherID,
		FollowedAt: at,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrEdgeExists
		}
		return err
	}
	return nil
}

// Delete removes one reflection and reports whether it existed.
func (r *GormEdgeStore) Delete(ctx context.Context, ownerID string, kind domain.EdgeKind, otherID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("owner_id = ? AND kind = ? AND other_id = ?", ownerID, string(kind), otherID).
		Delete(&domain.FollowEdgeModel{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Exists checks whether one reflection is stored.
func (r *GormEdgeStore) Exists(ctx context.Context, ownerID string, kind domain.EdgeKind, otherID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.FollowEdgeModel{}).
		Where("owner_id = ? AND kind = ? AND other_id = ?", ownerID, string(kind), otherID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ExistsMany checks one reflection per otherID.
func (r *GormEdgeStore) ExistsMany(ctx context.Context, ownerID string, kind domain.EdgeKind, otherIDs []string) (map[string]bool, error) {
	result := make(map[string]bool, len(otherIDs))
	for _, id := range otherIDs {
		result[id] = false
	}

	if len(otherIDs) == 0 {
		return result, nil
	}

	var found []string
	err := r.db.WithContext(ctx).Model(&domain.FollowEdgeModel{}).
		Where("owner_id = ? AND kind = ? AND other_id IN ?", ownerID, string(kind), otherIDs).
		Pluck("other_id", &found).Error
	if err != nil {
		return nil, err
	}

	for _, id := range found {
		result[id] = true
	}
	return result, nil
}

// Count returns the size of one adjacency list.
func (r *GormEdgeStore) Count(ctx context.Context, ownerID string, kind domain.EdgeKind) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.FollowEdgeModel{}).
		Where("owner_id = ? AND kind = ?", ownerID, string(kind)).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// List returns one page of an adjacency list, newest first, joined with the
// other user's display data.
func (r *GormEdgeStore) List(ctx context.Context, ownerID string, kind domain.EdgeKind, cursor Cursor, limit int) ([]domain.Connection, error) {
	q := r.db.WithContext(ctx).
		Table("follow_edges AS e").
		Select("e.other_id AS user_id, COALESCE(u.display_name, '') AS display_name, COALESCE(u.photo_url, '') AS photo_url, e.followed_at AS followed_at").
		Joins("LEFT JOIN users u ON u.id = e.other_id").
		Where("e.owner_id = ? AND e.kind = ?", ownerID, string(kind))

	if !cursor.IsZero() {
		q = q.Where("(e.followed_at < ?) OR (e.followed_at = ? AND e.other_id < ?)", cursor.At, cursor.At, cursor.ID)
	}

	var conns []domain.Connection
	err := q.Order("e.followed_at DESC").Order("e.other_id DESC").
		Limit(limit).
		Scan(&conns).Error
	if err != nil {
		return nil, err
	}
	return conns, nil
}

// ListOrphans returns reflections whose mirror is missing.
func (r *GormEdgeStore) ListOrphans(ctx context.Context, afterID uint, limit int) ([]domain.FollowEdgeModel, error) {
	var orphans []domain.FollowEdgeModel
	err := r.db.WithContext(ctx).
		Table("follow_edges AS e").
		Select("e.*").
		Joins("LEFT JOIN follow_edges m ON m.owner_id = e.other_id AND m.other_id = e.owner_id AND m.kind <> e.kind").
		Where("m.id IS NULL AND e.id > ?", afterID).
		Order("e.id").
		Limit(limit).
		Scan(&orphans).Error
	if err != nil {
		return nil, err
	}
	return orphans, nil
}

// Ensure interface is satisfied at compile time.
var _ EdgeStore = (*GormEdgeStore)(nil)
