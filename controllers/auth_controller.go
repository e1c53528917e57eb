package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/repair-hub-api/middleware"
	"github.com/kendall-kelly/repair-hub-api/services"
	"github.com/kendall-kelly/repair-hub-api/utils"
)

// avatarUploadLimit bounds the multipart body a little above the file limit
const avatarUploadLimit = utils.MaxFileSize + 1<<20

// setTokenCookie stores the session token in an http-only cookie for the token's lifetime
func setTokenCookie(c *gin.Context, result *services.AuthResult) {
	maxAge := int(time.Until(result.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(services.TokenCookieName, result.Token, maxAge, "/", "", isProduction(), true)
}

// Register handles POST /api/auth/register
func Register(c *gin.Context) {
	var req services.RegisterInput
	if !bindJSON(c, &req) {
		return
	}

	result, err := newAuthService().Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	setTokenCookie(c, result)
	c.JSON(http.StatusCreated, gin.H{
		"token":   result.Token,
		"user":    result.User,
		"message": "User created successfully",
	})
}

// Login handles POST /api/auth/login
func Login(c *gin.Context) {
	var req services.LoginInput
	if !bindJSON(c, &req) {
		return
	}

	result, err := newAuthService().Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	setTokenCookie(c, result)
	c.JSON(http.StatusOK, gin.H{
		"token": result.Token,
		"user":  result.User,
	})
}

// Logout handles POST /api/auth/logout
func Logout(c *gin.Context) {
	middleware.ClearTokenCookie(c, isProduction())
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// Me handles GET /api/auth/me
func Me(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}

	user, err := newAuthService().GetUser(c.Request.Context(), id.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    user,
	})
}

// GetProfile handles GET /api/auth/profile
func GetProfile(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}

	user, err := newAuthService().GetUser(c.Request.Context(), id.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UpdateProfile handles PUT /api/auth/profile
func UpdateProfile(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req services.ProfileInput
	if !bindJSON(c, &req) {
		return
	}

	user, err := newAuthService().UpdateProfile(c.Request.Context(), id.UserID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    user,
		"message": "Profile updated successfully",
	})
}

// UploadAvatar handles POST /api/auth/avatar (multipart field "avatar")
func UploadAvatar(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, avatarUploadLimit)
	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("File size exceeds maximum allowed size of %d MB", utils.MaxFileSize/(1024*1024)),
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Avatar file is required"})
		return
	}

	user, err := newAuthService().UpdateAvatar(c.Request.Context(), id.UserID, fileHeader)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"user":      user,
		"avatarUrl": user.AvatarURL,
	})
}

// RandomAvatar handles GET /api/avatar
func RandomAvatar(c *gin.Context) {
	name := c.DefaultQuery("name", "User")
	c.JSON(http.StatusOK, gin.H{
		"avatarUrl": newAuthService().RandomAvatarURL(c.Request.Context(), name),
	})
}
