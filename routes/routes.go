package routes

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/repair-hub-api/config"
	"github.com/kendall-kelly/repair-hub-api/controllers"
	"github.com/kendall-kelly/repair-hub-api/middleware"
	"github.com/kendall-kelly/repair-hub-api/services"
	"github.com/kendall-kelly/repair-hub-api/web"
)

// Setup installs the middleware chain, the pages and the JSON API on router
func Setup(router *gin.Engine, cfg *config.Config, auth *services.Authenticator, logger *slog.Logger) error {
	tmpl, err := web.Templates()
	if err != nil {
		return fmt.Errorf("failed to parse templates: %w", err)
	}
	router.SetHTMLTemplate(tmpl)

	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg),
		middleware.Gate(auth, cfg),
	)

	router.StaticFS("/static", http.FS(web.Static()))
	router.GET("/uploads/:filename", controllers.GetUploadedImage)
	router.GET("/avatars/:filename", controllers.GetLibraryAvatar)

	// Pages
	router.GET("/", controllers.Page("home.html", "Home"))
	router.GET("/login", controllers.Page("login.html", "Log in"))
	router.GET("/register", controllers.Page("register.html", "Sign up"))
	router.GET("/dashboard", controllers.Page("dashboard.html", "My repairs"))
	router.GET("/dashboard/messages", controllers.Page("messages.html", "Messages"))
	router.GET("/dashboard/profile", controllers.Page("profile.html", "Profile"))
	router.GET("/technician", controllers.Page("technician.html", "Assigned jobs"))
	router.GET("/technician/available", controllers.Page("available.html", "Available requests"))
	router.GET("/technician/messages", controllers.Page("messages.html", "Messages"))
	router.GET("/technician/profile", controllers.Page("profile.html", "Profile"))

	api := router.Group("/api")
	{
		api.GET("/health", controllers.HealthCheck)
		api.GET("/database/status", controllers.DatabaseStatus)
		api.GET("/avatar", controllers.RandomAvatar)

		auth := api.Group("/auth")
		{
			auth.POST("/register", controllers.Register)
			auth.POST("/login", controllers.Login)
			auth.POST("/logout", controllers.Logout)
			auth.GET("/me", controllers.Me)
			auth.GET("/profile", controllers.GetProfile)
			auth.PUT("/profile", controllers.UpdateProfile)
			auth.POST("/avatar", controllers.UploadAvatar)
		}

		repairs := api.Group("/repairs", middleware.NoStore())
		{
			repairs.GET("", controllers.ListRepairs)
			repairs.POST("", controllers.CreateRepair)
			repairs.GET("/available", controllers.ListAvailableRepairs)
			repairs.GET("/:id", controllers.GetRepair)
			repairs.PUT("/:id", controllers.UpdateRepair)
			repairs.DELETE("/:id", controllers.DeleteRepair)
			repairs.POST("/:id/claim", controllers.ClaimRepair)
		}

		messages := api.Group("/messages", middleware.NoStore())
		{
			messages.GET("", controllers.ListMessages)
			messages.POST("", controllers.SendMessage)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		if middleware.IsAPIPath(c.Request.URL.Path) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}
		c.String(http.StatusNotFound, "Page not found")
	})

	return nil
}
