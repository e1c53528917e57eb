package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/kendall-kelly/repair-hub-api/config"
	"github.com/kendall-kelly/repair-hub-api/models"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "test-secret-do-not-use"

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to connect to test database")

	// every connection to :memory: is a separate database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, models.AutoMigrate(db), "Failed to migrate test database")
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		GoEnv:        "test",
		JWTSecret:    testSecret,
		JWTExpiresIn: time.Hour,
	}
}

// createUser inserts a user whose password is "password123"
func createUser(t *testing.T, db *gorm.DB, username, role string) models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	user := models.User{
		Username:     username,
		Email:        fmt.Sprintf("%s@example.com", username),
		PasswordHash: string(hash),
		Role:         role,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func createRepair(t *testing.T, db *gorm.DB, owner models.User, title string, technician *models.User, status string) models.Repair {
	t.Helper()

	repair := models.Repair{
		Title:       title,
		Description: title + " description",
		Status:      status,
		UserID:      owner.ID,
	}
	if technician != nil {
		id := technician.ID
		repair.TechnicianID = &id
	}
	require.NoError(t, db.Create(&repair).Error)
	return repair
}

func identityOf(u models.User) *Identity {
	return &Identity{UserID: u.ID, Role: u.Role, Email: u.Email}
}

func ptr[T any](v T) *T {
	return &v
}

// afterFirstRead runs fn once, right after the first query on table has
// returned its rows, to interleave a concurrent write with a read-then-write
func afterFirstRead(t *testing.T, db *gorm.DB, table string, fn func()) {
	t.Helper()
	fired := false
	err := db.Callback().Query().After("gorm:query").Register("test:after_first_read_"+table, func(tx *gorm.DB) {
		if fired || tx.Statement.Table != table {
			return
		}
		fired = true
		fn()
	})
	require.NoError(t, err)
}
