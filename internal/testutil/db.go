// Package testutil provides shared test helpers for follow-graph-service
// packages: an in-memory SQLite database with the service schema, and user
// seeding. Helpers call t.Fatalf on failure.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"gorm.io/gorm"

	"github.com/weiawesome/wes-io-live/follow-graph-service/internal/domain"
	"github.com/weiawesome/wes-io-live/follow-graph-service/pkg/database"
)

var dbSeq atomic.Int64

// NewDB opens a fresh in-memory SQLite database with every table migrated.
// A single connection is used so transactions serialize the way row locks
// would on a server database.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.New(&database.Config{
		Driver:       "sqlite",
		FilePath:     fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, dbSeq.Add(1)),
		MaxOpenConns: 1,
		LogLevel:     "silent",
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	if err := database.AutoMigrate(db, domain.Models()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	return db
}

// SeedUser inserts a user with the given account type and zero counters.
func SeedUser(t testing.TB, db *gorm.DB, id string, accountType domain.AccountType) {
	t.Helper()

	model := domain.UserModel{
		ID:          id,
		DisplayName: "User " + strings.ToUpper(id),
		PhotoURL:    "https://cdn.example.com/" + id + ".png",
		AccountType: string(accountType),
	}
	if err := db.WithContext(context.Background()).Create(&model).Error; err != nil {
		t.Fatalf("seed user %s: %v", id, err)
	}
}
