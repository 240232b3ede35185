package database

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/saiakshat556/farm-data-bridge/internal/models"
	"github.com/saiakshat556/farm-data-bridge/pkg/crypto"
)

func TestOpenSQLiteMemory(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Exec("SELECT 1").Error)
	require.NoError(t, Ping(db))
}

func TestOpenSQLiteMemoryIsIsolated(t *testing.T) {
	first := openTestDB(t)
	second := openTestDB(t)

	require.NoError(t, AutoMigrate(first))
	require.True(t, first.Migrator().HasTable(&models.User{}))
	require.False(t, second.Migrator().HasTable(&models.User{}))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.ErrorContains(t, err, "unsupported database driver")
}

func TestAutoMigrateCreatesTables(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))

	migrator := db.Migrator()
	for _, table := range []interface{}{&models.User{}, &models.Session{}, &models.Submission{}, &models.Notification{}} {
		require.True(t, migrator.HasTable(table), "expected table for %T to exist", table)
	}
}

func TestSeedDataInstallsDemoUsersOnce(t *testing.T) {
	db := openTestDB(t)
	seed := SeedOptions{DemoUsers: true, PasswordCost: bcrypt.MinCost}

	require.NoError(t, AutoMigrateAndSeed(db, seed))
	require.NoError(t, AutoMigrateAndSeed(db, seed))

	var users []models.User
	require.NoError(t, db.Order("email").Find(&users).Error)
	require.Len(t, users, len(DemoUsers))

	byEmail := make(map[string]models.User, len(users))
	for _, user := range users {
		byEmail[user.Email] = user
	}
	for _, demo := range DemoUsers {
		user, ok := byEmail[demo.Email]
		require.True(t, ok, demo.Email)
		require.Equal(t, demo.Role, user.Role)
		require.NotEqual(t, DefaultDemoPassword, user.Password)
		require.True(t, crypto.VerifyPassword(user.Password, DefaultDemoPassword))
	}
}

func TestSeedDataDisabled(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrateAndSeed(db, SeedOptions{}))

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	require.Zero(t, count)
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := Open(Config{Driver: "sqlite"})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}
