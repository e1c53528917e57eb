package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/repair-hub-api/config"
	"github.com/kendall-kelly/repair-hub-api/models"
	"github.com/kendall-kelly/repair-hub-api/services"
)

// Landing pages per side of the marketplace
const (
	LoginPath             = "/login"
	CustomerLandingPath   = "/dashboard"
	TechnicianLandingPath = "/technician"
)

var (
	staticPrefixes   = []string{"/static/", "/images/", "/uploads/", "/avatars/"}
	technicianOnly   = []string{TechnicianLandingPath, "/api/repairs/available"}
	customerOnly     = []string{CustomerLandingPath}
	untrustedHeaders = []string{"X-User-Id", "X-User-Role", "X-User-Email"}

	publicPaths = map[string]bool{
		"/":                  true,
		"/login":             true,
		"/register":          true,
		"/api/auth/login":    true,
		"/api/auth/register": true,
		"/api/health":        true,
	}
)

// Gate authenticates every non-static request and enforces role based path
// access. API requests are rejected with JSON, page requests are redirected.
func Gate(auth *services.Authenticator, cfg *config.Config) gin.HandlerFunc {
	secureCookie := cfg != nil && cfg.IsProduction()

	return func(c *gin.Context) {
		for _, h := range untrustedHeaders {
			c.Request.Header.Del(h)
		}

		path := c.Request.URL.Path

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		if isStaticPath(path) {
			c.Next()
			return
		}

		if publicPaths[path] {
			if path == LoginPath || path == "/register" {
				// already signed in
				if id, err := auth.ResolveRequest(c.Request); err == nil {
					c.Redirect(http.StatusFound, LandingPath(id.Role))
					c.Abort()
					return
				}
			}
			c.Next()
			return
		}

		passed := false
		checker := jwtmiddleware.New(
			auth.ValidateToken,
			jwtmiddleware.WithTokenExtractor(auth.Extractor()),
			jwtmiddleware.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
				missing := errors.Is(err, jwtmiddleware.ErrJWTMissing)
				if !missing {
					slog.InfoContext(r.Context(), "rejected session token", "path", path, "error", err)
				}
				rejectUnauthenticated(c, path, !missing, secureCookie)
			}),
		)

		var next http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
			id, ok := r.Context().Value(jwtmiddleware.ContextKey{}).(*services.Identity)
			if !ok || id == nil {
				rejectUnauthenticated(c, path, true, secureCookie)
				return
			}

			c.Request = r
			SetIdentity(c, id)
			if !authorizePath(c, path, id) {
				return
			}

			passed = true
			c.Next()
		}

		checker.CheckJWT(next).ServeHTTP(c.Writer, c.Request)
		if !passed {
			c.Abort()
		}
	}
}

// LandingPath is the home page for a role
func LandingPath(role string) string {
	if models.IsTechnicianRole(role) {
		return TechnicianLandingPath
	}
	return CustomerLandingPath
}

// IsAPIPath reports whether path belongs to the JSON API
func IsAPIPath(path string) bool {
	return path == "/api" || strings.HasPrefix(path, "/api/")
}

func isStaticPath(path string) bool {
	if path == "/favicon.ico" {
		return true
	}
	for _, prefix := range staticPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return !IsAPIPath(path) && strings.Contains(path, ".")
}

func matchesPrefix(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

func authorizePath(c *gin.Context, path string, id *services.Identity) bool {
	if matchesPrefix(path, technicianOnly) && !id.CanWorkRepairs() {
		if IsAPIPath(path) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden - Technician access required"})
		} else {
			c.Redirect(http.StatusFound, CustomerLandingPath)
			c.Abort()
		}
		return false
	}

	if matchesPrefix(path, customerOnly) && id.CanWorkRepairs() {
		c.Redirect(http.StatusFound, TechnicianLandingPath)
		c.Abort()
		return false
	}

	return true
}

func rejectUnauthenticated(c *gin.Context, path string, clearCookie, secure bool) {
	if IsAPIPath(path) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if clearCookie {
		ClearTokenCookie(c, secure)
	}
	c.Redirect(http.StatusFound, LoginPath+"?redirect="+url.QueryEscape(path))
	c.Abort()
}

// ClearTokenCookie expires the session cookie
func ClearTokenCookie(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(services.TokenCookieName, "", -1, "/", "", secure, true)
}
