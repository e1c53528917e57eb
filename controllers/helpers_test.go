package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/repair-hub-api/config"
	"github.com/kendall-kelly/repair-hub-api/middleware"
	"github.com/kendall-kelly/repair-hub-api/models"
	"github.com/kendall-kelly/repair-hub-api/services"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "controller-test-secret"

func testConfig() *config.Config {
	return &config.Config{
		GoEnv:        "test",
		JWTSecret:    testSecret,
		JWTExpiresIn: time.Hour,
	}
}

// setupTestDB installs a fresh in-memory database and test globals
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to connect to test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, models.AutoMigrate(db), "Failed to migrate test database")

	cfg := testConfig()
	config.SetDB(db)
	config.SetConfig(cfg)
	services.SetAuthenticator(services.NewAuthenticator(cfg))
	services.SetImageService(services.NoopImageService{})
	services.SetConversationCache(services.NoopConversationCache{})

	t.Cleanup(func() {
		sqlDB.Close()
		config.SetDB(nil)
		config.SetConfig(nil)
		services.SetAuthenticator(nil)
	})
	return db
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

// mockAuthMiddleware authenticates every request as user; a nil user leaves the request anonymous
func mockAuthMiddleware(user *models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user != nil {
			middleware.SetIdentity(c, &services.Identity{UserID: user.ID, Role: user.Role, Email: user.Email})
		}
		c.Next()
	}
}

// setupTestRouter mounts the API handlers behind the mock auth middleware
func setupTestRouter(user *models.User) *gin.Engine {
	router := gin.New()
	router.Use(mockAuthMiddleware(user))

	api := router.Group("/api")
	{
		api.GET("/health", HealthCheck)
		api.GET("/database/status", DatabaseStatus)
		api.GET("/avatar", RandomAvatar)

		api.POST("/auth/register", Register)
		api.POST("/auth/login", Login)
		api.POST("/auth/logout", Logout)
		api.GET("/auth/me", Me)
		api.GET("/auth/profile", GetProfile)
		api.PUT("/auth/profile", UpdateProfile)
		api.POST("/auth/avatar", UploadAvatar)

		api.GET("/repairs", ListRepairs)
		api.POST("/repairs", CreateRepair)
		api.GET("/repairs/available", ListAvailableRepairs)
		api.GET("/repairs/:id", GetRepair)
		api.PUT("/repairs/:id", UpdateRepair)
		api.DELETE("/repairs/:id", DeleteRepair)
		api.POST("/repairs/:id/claim", ClaimRepair)

		api.GET("/messages", ListMessages)
		api.POST("/messages", SendMessage)
	}
	router.GET("/uploads/:filename", GetUploadedImage)
	router.GET("/avatars/:filename", GetLibraryAvatar)

	return router
}

// performJSON sends body (nil for none) as JSON and returns the recorder
func performJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeObject(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "Response should be a JSON object: %s", w.Body.String())
	return out
}

func decodeArray(t *testing.T, w *httptest.ResponseRecorder) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "Response should be a JSON array: %s", w.Body.String())
	return out
}

func ptr[T any](v T) *T {
	return &v
}
