package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/repair-hub-api/services"
	"github.com/kendall-kelly/repair-hub-api/utils"
)

// identityKey is the gin context key holding the caller's *services.Identity
const identityKey = "identity"

// SetIdentity attaches id to both the gin context and the request context
func SetIdentity(c *gin.Context, id *services.Identity) {
	c.Set(identityKey, id)
	c.Request = c.Request.WithContext(services.WithIdentity(c.Request.Context(), id))
}

// GetIdentity returns the authenticated caller. When the gate did not run
// for this request the token is resolved again through the shared
// authenticator. Client supplied identity headers are never consulted.
func GetIdentity(c *gin.Context) (*services.Identity, error) {
	if value, exists := c.Get(identityKey); exists {
		if id, ok := value.(*services.Identity); ok && id != nil {
			return id, nil
		}
	}

	if id, ok := services.IdentityFromContext(c.Request.Context()); ok {
		return id, nil
	}

	auth := services.GetAuthenticator()
	if auth == nil {
		return nil, utils.Unauthorized("Unauthorized")
	}

	id, err := auth.ResolveRequest(c.Request)
	if err != nil {
		return nil, utils.NewAppError(http.StatusUnauthorized, "Unauthorized", err)
	}

	SetIdentity(c, id)
	return id, nil
}
