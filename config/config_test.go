package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTTL(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    time.Duration
		wantErr bool
	}{
		{"day suffix", "7d", 7 * 24 * time.Hour, false},
		{"go duration", "90m", 90 * time.Minute, false},
		{"seconds", "30s", 30 * time.Second, false},
		{"zero days", "0d", 0, true},
		{"negative duration", "-5m", 0, true},
		{"garbage", "soon", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTTL(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GO_ENV", "test")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("JWT_EXPIRES_IN", "")
	t.Setenv("IMAGE_PROVIDER", "")
	t.Setenv("ALLOWED_ORIGINS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 7*24*time.Hour, cfg.JWTExpiresIn)
	assert.Equal(t, 30*time.Second, cfg.ConversationCacheTTL)
	assert.Equal(t, ImageProviderNone, cfg.ImageProvider)
	assert.Equal(t, []string{"http://localhost:8080"}, cfg.AllowedOrigins)
	assert.Equal(t, uint(1), cfg.DevUserID)
	assert.Equal(t, "admin", cfg.DevUserRole)
	assert.True(t, cfg.IsTest())
	assert.Same(t, cfg, GetConfig())
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("GO_ENV", "test")

	t.Run("bad token expiry", func(t *testing.T) {
		t.Setenv("JWT_EXPIRES_IN", "forever")
		_, err := Load()
		assert.ErrorContains(t, err, "JWT_EXPIRES_IN")
	})

	t.Run("bad dev user id", func(t *testing.T) {
		t.Setenv("DEV_USER_ID", "abc")
		_, err := Load()
		assert.ErrorContains(t, err, "DEV_USER_ID")
	})

	t.Run("unknown image provider", func(t *testing.T) {
		t.Setenv("IMAGE_PROVIDER", "ftp")
		_, err := Load()
		assert.ErrorContains(t, err, "IMAGE_PROVIDER")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name:    "production requires database url",
			cfg:     Config{GoEnv: "production", JWTSecret: "s", ImageProvider: ImageProviderNone},
			wantErr: "DATABASE_URL",
		},
		{
			name:    "production requires jwt secret",
			cfg:     Config{GoEnv: "production", DatabaseURL: "postgres://x", ImageProvider: ImageProviderNone},
			wantErr: "JWT_SECRET",
		},
		{
			name:    "s3 requires bucket",
			cfg:     Config{GoEnv: "test", ImageProvider: ImageProviderS3},
			wantErr: "AWS_S3_BUCKET",
		},
		{
			name:    "cloudinary requires credentials",
			cfg:     Config{GoEnv: "test", ImageProvider: ImageProviderCloudinary, CloudinaryCloudName: "demo"},
			wantErr: "CLOUDINARY",
		},
		{
			name: "complete production config",
			cfg:  Config{GoEnv: "production", DatabaseURL: "postgres://x", JWTSecret: "s", ImageProvider: ImageProviderNone},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestDevBypassEnabled(t *testing.T) {
	assert.True(t, (&Config{GoEnv: "development", DevBypassToken: "dev-token"}).DevBypassEnabled())
	assert.False(t, (&Config{GoEnv: "development"}).DevBypassEnabled(), "empty token never enables the bypass")
	assert.False(t, (&Config{GoEnv: "production", DevBypassToken: "dev-token"}).DevBypassEnabled())
	assert.False(t, (&Config{GoEnv: "test", DevBypassToken: "dev-token"}).DevBypassEnabled())
}

func TestAllowsAllOrigins(t *testing.T) {
	assert.True(t, (&Config{AllowedOrigins: []string{"*"}}).AllowsAllOrigins())
	assert.False(t, (&Config{AllowedOrigins: []string{"https://fix.example.com"}}).AllowsAllOrigins())
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLogLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLogLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLogLevel(""))
}
