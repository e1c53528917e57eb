package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Image provider names accepted in IMAGE_PROVIDER
const (
	ImageProviderNone       = "none"
	ImageProviderLocal      = "local"
	ImageProviderS3         = "s3"
	ImageProviderCloudinary = "cloudinary"
)

// Config holds all application configuration
type Config struct {
	DatabaseURL string
	Port        string
	GoEnv       string
	LogLevel    string

	JWTSecret    string
	JWTExpiresIn time.Duration

	// DevBypassToken is only honored when GoEnv is "development"
	DevBypassToken string
	DevUserID      uint
	DevUserRole    string

	AllowedOrigins []string

	RedisURL             string
	ConversationCacheTTL time.Duration

	ImageProvider string
	UploadDir     string

	AWSRegion          string
	AWSS3Bucket        string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSAvatarPrefix    string

	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
}

var current *Config

// Load loads the configuration from environment variables
// It automatically determines which .env file to load based on GO_ENV
func Load() (*Config, error) {
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}

	// Try to load environment-specific file first
	envFile := fmt.Sprintf(".env.%s", env)
	if err := godotenv.Load(envFile); err != nil {
		if err := godotenv.Load(); err != nil {
			// In production, environment variables are set directly
			log.Printf("No .env file found, using system environment variables")
		}
	} else {
		log.Printf("Loaded configuration from %s", envFile)
	}

	jwtTTL, err := ParseTTL(getEnv("JWT_EXPIRES_IN", "7d"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRES_IN: %w", err)
	}

	cacheTTL, err := ParseTTL(getEnv("CONVERSATION_CACHE_TTL", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid CONVERSATION_CACHE_TTL: %w", err)
	}

	devUserID, err := strconv.ParseUint(getEnv("DEV_USER_ID", "1"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid DEV_USER_ID: %w", err)
	}

	config := &Config{
		DatabaseURL:            getEnv("DATABASE_URL", ""),
		Port:                   getEnv("PORT", "8080"),
		GoEnv:                  getEnv("GO_ENV", "development"),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		JWTSecret:              getEnv("JWT_SECRET", ""),
		JWTExpiresIn:           jwtTTL,
		DevBypassToken:         getEnv("DEV_BYPASS_TOKEN", ""),
		DevUserID:              uint(devUserID),
		DevUserRole:            getEnv("DEV_USER_ROLE", "admin"),
		AllowedOrigins:         splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:8080")),
		RedisURL:               getEnv("REDIS_URL", ""),
		ConversationCacheTTL:   cacheTTL,
		ImageProvider:          strings.ToLower(getEnv("IMAGE_PROVIDER", ImageProviderNone)),
		UploadDir:              getEnv("UPLOAD_DIR", "./uploads"),
		AWSRegion:              getEnv("AWS_REGION", "us-east-1"),
		AWSS3Bucket:            getEnv("AWS_S3_BUCKET", ""),
		AWSAccessKeyID:         getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:     getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSAvatarPrefix:        getEnv("AWS_AVATAR_PREFIX", "avatars/"),
		CloudinaryCloudName:    getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:       getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret:    getEnv("CLOUDINARY_API_SECRET", ""),
		CloudinaryUploadFolder: getEnv("CLOUDINARY_UPLOAD_FOLDER", "avatars"),
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	current = config
	return config, nil
}

// Validate checks that all required configuration values are set
func (c *Config) Validate() error {
	if c.DatabaseURL == "" && !c.IsTest() {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.JWTSecret == "" && !c.IsTest() {
		return fmt.Errorf("JWT_SECRET is required")
	}

	switch c.ImageProvider {
	case ImageProviderNone, ImageProviderLocal:
	case ImageProviderS3:
		if c.AWSS3Bucket == "" {
			return fmt.Errorf("AWS_S3_BUCKET is required when IMAGE_PROVIDER=s3")
		}
	case ImageProviderCloudinary:
		if c.CloudinaryCloudName == "" || c.CloudinaryAPIKey == "" || c.CloudinaryAPISecret == "" {
			return fmt.Errorf("CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY and CLOUDINARY_API_SECRET are required when IMAGE_PROVIDER=cloudinary")
		}
	default:
		return fmt.Errorf("unknown IMAGE_PROVIDER %q", c.ImageProvider)
	}

	return nil
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GoEnv == "production"
}

// IsTest returns true if the application is running in test mode
func (c *Config) IsTest() bool {
	return c.GoEnv == "test"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GoEnv == "development"
}

// DevBypassEnabled reports whether the development bypass token may be accepted
func (c *Config) DevBypassEnabled() bool {
	return c.IsDevelopment() && c.DevBypassToken != ""
}

// AllowsAllOrigins reports whether CORS is open to any origin
func (c *Config) AllowsAllOrigins() bool {
	for _, origin := range c.AllowedOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// GetConfig returns the configuration loaded by Load (or set with SetConfig)
func GetConfig() *Config {
	return current
}

// SetConfig sets the configuration instance (primarily for testing)
func SetConfig(cfg *Config) {
	current = cfg
}

// ParseTTL parses a Go duration, additionally accepting a whole-day suffix such as "7d"
func ParseTTL(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if days, ok := strings.CutSuffix(value, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid day count %q", value)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive: %q", value)
	}
	return d, nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
