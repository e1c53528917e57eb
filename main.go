package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/repair-hub-api/config"
	"github.com/kendall-kelly/repair-hub-api/models"
	"github.com/kendall-kelly/repair-hub-api/routes"
	"github.com/kendall-kelly/repair-hub-api/services"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := config.NewLogger(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("Starting RepairHub API server", "environment", cfg.GoEnv)

	// Connect to database
	if err := config.ConnectDatabase(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	db := config.GetDB()
	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	logger.Info("Database migration completed successfully")

	// Conversation cache is optional; without Redis every read aggregates
	redisClient, err := config.ConnectRedis(cfg.RedisURL)
	if err != nil {
		logger.Warn("Redis unavailable, conversation cache disabled", "error", err)
		redisClient = nil
	}
	services.InitConversationCache(redisClient, cfg.ConversationCacheTTL)

	ctx := context.Background()
	if _, err := services.InitImageService(ctx, cfg); err != nil {
		log.Fatalf("Failed to initialize image service: %v", err)
	}
	logger.Info("Image service initialized", "provider", cfg.ImageProvider)

	auth := services.InitAuthenticator(cfg)

	router, err := setupRouter(cfg, auth, logger)
	if err != nil {
		log.Fatalf("Failed to set up router: %v", err)
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server is running", "addr", "http://localhost:"+cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}

	logger.Info("Server exited")
}

// setupRouter builds the engine serving pages, uploads and the JSON API
func setupRouter(cfg *config.Config, auth *services.Authenticator, logger *slog.Logger) (*gin.Engine, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	if err := routes.Setup(router, cfg, auth, logger); err != nil {
		return nil, err
	}
	return router, nil
}
