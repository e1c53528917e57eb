package controllers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/repair-hub-api/config"
	"github.com/kendall-kelly/repair-hub-api/middleware"
	"github.com/kendall-kelly/repair-hub-api/services"
	"github.com/kendall-kelly/repair-hub-api/utils"
)

// respondError writes the {"error": message} envelope. Server errors are
// logged with their cause and reported with a fixed message.
func respondError(c *gin.Context, err error) {
	status := utils.StatusFor(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "request failed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"request_id", c.GetString("request_id"),
			"error", err,
		)
	}
	c.JSON(status, gin.H{"error": utils.PublicMessage(err)})
}

// requireIdentity returns the caller or writes a 401
func requireIdentity(c *gin.Context) (*services.Identity, bool) {
	id, err := middleware.GetIdentity(c)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return id, true
}

// bindJSON decodes the request body, writing a 400 on failure
func bindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.FormatValidationError(err)})
		return false
	}
	return true
}

// parseRepairID reads the :id path parameter
func parseRepairID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid repair ID"})
		return 0, false
	}
	return uint(id), true
}

func isProduction() bool {
	cfg := config.GetConfig()
	return cfg != nil && cfg.IsProduction()
}

func newAuthService() *services.AuthService {
	var tokens *services.TokenService
	if auth := services.GetAuthenticator(); auth != nil {
		tokens = auth.Tokens()
	}
	return services.NewAuthService(config.GetDB(), tokens, services.GetImageService())
}

func newRepairService() *services.RepairService {
	return services.NewRepairService(config.GetDB(), services.GetConversationCache(), services.GetImageService())
}

func newMessageService() *services.MessageService {
	return services.NewMessageService(config.GetDB(), services.GetConversationCache(), services.GetImageService())
}
