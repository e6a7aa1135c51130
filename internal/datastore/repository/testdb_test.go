package repository

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"

	"github.com/agroalert/agroalert/internal/datastore/entities"
)

// setupTestDB creates an in-memory SQLite database for repository tests.
// Uses shared-cache mode with a single connection to ensure all operations
// see the same in-memory database.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_foreign_keys=ON"), &gorm.Config{
		Logger: gorm_logger.Default.LogMode(gorm_logger.Silent),
	})
	require.NoError(t, err, "failed to open in-memory database")

	sqlDB, err := db.DB()
	require.NoError(t, err, "failed to get sql.DB")
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	err = db.AutoMigrate(
		&entities.User{},
		&entities.Culture{},
		&entities.Alert{},
		&entities.AlertRule{},
		&entities.UserAlertPreference{},
		&entities.CropProfile{},
	)
	require.NoError(t, err, "failed to migrate tables")
	return db
}

// createTestUser creates an active user.
func createTestUser(t *testing.T, db *gorm.DB, email string) *entities.User {
	t.Helper()
	user := &entities.User{
		Email:    email,
		Name:     "Maria Santos",
		IsActive: true,
	}
	require.NoError(t, NewUserRepository(db).Create(t.Context(), user))
	return user
}
