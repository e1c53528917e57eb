package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/repair-hub-api/middleware"
	"github.com/kendall-kelly/repair-hub-api/services"
)

// pageData is passed to every page template
type pageData struct {
	Title    string
	Page     string
	Identity *services.Identity
	Redirect string
}

// Page renders a server-side page. The router must have the web templates loaded.
func Page(template, title string) gin.HandlerFunc {
	page := strings.TrimSuffix(template, ".html")

	return func(c *gin.Context) {
		data := pageData{Title: title, Page: page}
		if id, err := middleware.GetIdentity(c); err == nil {
			data.Identity = id
		}
		if page == "login" {
			data.Redirect = safeRedirect(c.Query("redirect"))
		}
		c.HTML(http.StatusOK, template, data)
	}
}

// safeRedirect only allows local paths as post-login targets
func safeRedirect(target string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return ""
	}
	return target
}
