package testutil

import (
	"io"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/repair-hub-api/config"
	"github.com/kendall-kelly/repair-hub-api/models"
	"github.com/kendall-kelly/repair-hub-api/routes"
	"github.com/kendall-kelly/repair-hub-api/services"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestSecret signs the session tokens of test applications
const TestSecret = "integration-test-secret"

// RequireTestEnvironment ensures that tests are running in the test environment.
// This prevents accidental execution of tests against production or development databases.
// It will fail the test immediately if GO_ENV is not set to "test".
func RequireTestEnvironment(t *testing.T) {
	t.Helper()

	env := os.Getenv("GO_ENV")
	if env != "test" {
		t.Fatalf("SAFETY CHECK FAILED: Tests must run with GO_ENV=test to prevent data loss. Current GO_ENV=%q. Set GO_ENV=test before running tests.", env)
	}
}

// MustSetTestEnvironment sets GO_ENV to test and fails if it cannot be set.
// Use this in TestMain or suite setup functions.
func MustSetTestEnvironment(t *testing.T) {
	t.Helper()

	if err := os.Setenv("GO_ENV", "test"); err != nil {
		t.Fatalf("Failed to set GO_ENV=test: %v", err)
	}
	RequireTestEnvironment(t)
}

// Config returns the configuration test applications run with
func Config() *config.Config {
	return &config.Config{
		GoEnv:                "test",
		Port:                 "0",
		LogLevel:             "error",
		JWTSecret:            TestSecret,
		JWTExpiresIn:         time.Hour,
		AllowedOrigins:       []string{"http://localhost:8080"},
		ConversationCacheTTL: 30 * time.Second,
		ImageProvider:        config.ImageProviderNone,
	}
}

// NewDB opens a migrated in-memory SQLite database
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to connect to test database")

	// every connection to :memory: is a separate database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, models.AutoMigrate(db), "Failed to migrate test database")
	return db
}

// App is the whole application wired against test doubles
type App struct {
	Router *gin.Engine
	DB     *gorm.DB
	Config *config.Config
	Auth   *services.Authenticator
	Images *services.MockImageService
}

// NewApp installs a fresh database, a mock image service and the shared
// authenticator, then builds the production router on top of them.
// The returned app is valid until the test's cleanup runs.
func NewApp(t *testing.T) *App {
	t.Helper()
	MustSetTestEnvironment(t)
	gin.SetMode(gin.TestMode)

	cfg := Config()
	db := NewDB(t)
	images := services.NewMockImageService()
	auth := services.NewAuthenticator(cfg)

	config.SetConfig(cfg)
	config.SetDB(db)
	services.SetAuthenticator(auth)
	images.SetAsMockForTesting()
	services.SetConversationCache(services.NoopConversationCache{})

	router := gin.New()
	require.NoError(t, routes.Setup(router, cfg, auth, config.NewLogger(io.Discard, cfg.LogLevel)))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
		config.SetDB(nil)
		config.SetConfig(nil)
		services.SetAuthenticator(nil)
		services.SetImageService(services.NoopImageService{})
	})

	return &App{Router: router, DB: db, Config: cfg, Auth: auth, Images: images}
}
