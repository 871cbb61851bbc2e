// Package testutil provides an in-memory database for package tests.
package testutil

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/C4T-BuT-S4D/taskpay/internal/models"
	"github.com/C4T-BuT-S4D/taskpay/internal/storage"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewStorage returns migrated storage backed by a private in-memory SQLite database.
// SQLite ignores row locks, so the pool is limited to one connection to keep
// transactions serialized.
func NewStorage(t *testing.T) *storage.Storage {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	st := storage.New(db)
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

// CreateUser stores a user whose identity fields are all derived from name.
func CreateUser(t *testing.T, st *storage.Storage, name string) *models.User {
	t.Helper()

	user := &models.User{
		Email:        name + "@example.com",
		Phone:        "+91" + name,
		Username:     name,
		ReferralCode: strings.ToUpper(name),
	}
	require.NoError(t, st.CreateUser(context.Background(), user))
	return user
}

func CreateTask(t *testing.T, st *storage.Storage, title string, price int64) *models.Task {
	t.Helper()

	task := &models.Task{
		Title:   title,
		Price:   price,
		Enabled: true,
	}
	require.NoError(t, st.CreateTask(context.Background(), task))
	return task
}

// Balance reloads the stored balance of the user.
func Balance(t *testing.T, st *storage.Storage, userID string) int64 {
	t.Helper()

	user, err := st.GetUser(context.Background(), userID)
	require.NoError(t, err)
	return user.Balance
}
