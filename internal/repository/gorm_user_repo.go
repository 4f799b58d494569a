package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/weiawesome/wes-io-live/follow-graph-service/internal/domain"
)

// GormUserRepository implements UserRepository using GORM.
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GORM-backed user repository.
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// Get returns the user or ErrUserNotFound.
func (r *GormUserRepository) Get(ctx context.Context, userID string) (*domain.User, error) {
	var model domain.UserModel
	if err := r.db.WithContext(ctx).Where("id = ?", userID).Take(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Ensure creates the user if missing. Non-empty display fields of the
// identity overwrite the stored ones; empty ones never erase them.
func (r *GormUserRepository) Ensure(ctx context.Context, id domain.Identity) error {
	model := domain.UserModel{
		ID:          id.UserID,
		DisplayName: id.DisplayName,
		PhotoURL:    id.PhotoURL,
		AccountType: string(domain.AccountPublic),
	}

	var updates []string
	if id.DisplayName != "" {
		updates = append(updates, "display_name")
	}
	if id.PhotoURL != "" {
		updates = append(updates, "photo_url")
	}

	onConflict := clause.OnConflict{Columns: []clause.Column{{Name: "id"}}}
	if len(updates) > 0 {
		onConflict.DoUpdates = clause.AssignmentColumns(updates)
	} else {
		onConflict.DoNothing = true
	}

	return r.db.WithContext(ctx).Clauses(onConflict).Create(&model).Error
}

// UpsertProfile applies a profile change from user-service. An empty
// accountType keeps the stored one, and so does a user who has changed
// privacy through SetAccountType.
func (r *GormUserRepository) UpsertProfile(ctx context.Context, userID, displayName, photoURL string, accountType domain.AccountType) error {
	model := domain.UserModel{
		ID:          userID,
		DisplayName: displayName,
		PhotoURL:    photoURL,
		AccountType: string(domain.AccountPublic),
	}
	if accountType != "" {
		model.AccountType = string(accountType)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"display_name", "photo_url"}),
		}).Create(&model).Error
		if err != nil || accountType == "" {
			return err
		}
		return tx.Model(&domain.UserModel{}).
			Where("id = ? AND account_type_locked = ?", userID, false).
			Update("account_type", string(accountType)).Error
	})
}

// SetAccountType changes the user's privacy setting and takes ownership of
// it away from profile sync.
func (r *GormUserRepository) SetAccountType(ctx context.Context, userID string, accountType domain.AccountType) error {
	result := r.db.WithContext(ctx).Model(&domain.UserModel{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"account_type":        string(accountType),
			"account_type_locked": true,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return userMustExist(ctx, r.db, userID)
	}
	return nil
}

// ListIDs pages through user ids in ascending order.
func (r *GormUserRepository) ListIDs(ctx context.Context, afterID string, limit int) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&domain.UserModel{}).
		Where("id > ?", afterID).
		Order("id").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func userMustExist(ctx context.Context, db *gorm.DB, userID string) error {
	var count int64
	if err := db.WithContext(ctx).Model(&domain.UserModel{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Ensure interface is satisfied at compile time.
var _ UserRepository = (*GormUserRepository)(nil)
