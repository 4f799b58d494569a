package repository

import (
	"context"

	"gorm.io/gorm"
)

// GormGraphRepository implements GraphRepository using GORM.
type GormGraphRepository struct {
	db *gorm.DB
}

// NewGormGraphRepository creates a new GORM-backed graph repository.
func NewGormGraphRepository(db *gorm.DB) *GormGraphRepository {
	return &GormGraphRepository{db: db}
}

func storesFor(db *gorm.DB) Stores {
	return Stores{
		Edges:    NewGormEdgeStore(db),
		Requests: NewGormRequestStore(db),
		Counters: NewGormCounterStore(db),
		Users:    NewGormUserRepository(db),
	}
}

// Stores returns stores bound to the connection pool, outside any transaction.
func (r *GormGraphRepository) Stores() Stores {
	return storesFor(r.db)
}

// WithTx runs fn inside one database transaction.
func (r *GormGraphRepository) WithTx(ctx context.Context, fn func(s Stores) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(storesFor(tx))
	})
}

// Ensure interface is satisfied at compile time.
var _ GraphRepository = (*GormGraphRepository)(nil)
