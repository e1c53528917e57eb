package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/kendall-kelly/repair-hub-api/config"
	"github.com/kendall-kelly/repair-hub-api/models"
)

// TokenCookieName is the cookie carrying the session token
const TokenCookieName = "token"

// ErrNoToken means the request carried no credentials at all
var ErrNoToken = errors.New("no token provided")

// Identity is the authenticated caller of a single request
type Identity struct {
	UserID uint
	Role   string
	Email  string
	Bypass bool
}

// IsAdmin reports whether the caller is an administrator
func (i *Identity) IsAdmin() bool {
	return i.Role == models.RoleAdmin
}

// CanWorkRepairs reports whether the caller may see and claim the job board
func (i *Identity) CanWorkRepairs() bool {
	return models.IsTechnicianRole(i.Role)
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity stored by WithIdentity
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok && id != nil
}

// Authenticator turns raw tokens into identities. The request gate and
// the handlers share one instance so they always agree on who is calling.
type Authenticator struct {
	tokens      *TokenService
	bypassToken string
	devIdentity Identity
	extractor   jwtmiddleware.TokenExtractor
}

var authenticatorInstance *Authenticator

// NewAuthenticator builds an authenticator from configuration
func NewAuthenticator(cfg *config.Config) *Authenticator {
	a := &Authenticator{
		tokens: NewTokenService(cfg.JWTSecret, cfg.JWTExpiresIn),
		extractor: jwtmiddleware.MultiTokenExtractor(
			cookieTokenExtractor,
			jwtmiddleware.AuthHeaderTokenExtractor,
		),
	}
	if cfg.DevBypassEnabled() {
		a.bypassToken = cfg.DevBypassToken
		a.devIdentity = Identity{
			UserID: cfg.DevUserID,
			Role:   models.NormalizeRole(cfg.DevUserRole),
			Email:  "dev@localhost",
			Bypass: true,
		}
	}
	return a
}

// InitAuthenticator creates the shared authenticator instance
func InitAuthenticator(cfg *config.Config) *Authenticator {
	authenticatorInstance = NewAuthenticator(cfg)
	return authenticatorInstance
}

// GetAuthenticator returns the shared authenticator instance
func GetAuthenticator() *Authenticator {
	return authenticatorInstance
}

// SetAuthenticator sets the shared authenticator (primarily for testing)
func SetAuthenticator(a *Authenticator) {
	authenticatorInstance = a
}

// Tokens exposes the codec used to issue session tokens
func (a *Authenticator) Tokens() *TokenService {
	return a.tokens
}

// Extractor returns the token extractor: the token cookie first, then a bearer header
func (a *Authenticator) Extractor() jwtmiddleware.TokenExtractor {
	return a.extractor
}

// cookieTokenExtractor treats a missing cookie as "no token" so the bearer header is tried next
func cookieTokenExtractor(r *http.Request) (string, error) {
	if _, err := r.Cookie(TokenCookieName); errors.Is(err, http.ErrNoCookie) {
		return "", nil
	}
	return jwtmiddleware.CookieTokenExtractor(TokenCookieName)(r)
}

// Resolve verifies token and returns the identity it represents
func (a *Authenticator) Resolve(token string) (*Identity, error) {
	if token == "" {
		return nil, ErrNoToken
	}

	if a.bypassToken != "" && token == a.bypassToken {
		slog.Warn("development bypass token accepted",
			"user_id", a.devIdentity.UserID,
			"role", a.devIdentity.Role,
		)
		id := a.devIdentity
		return &id, nil
	}

	claims, err := a.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	userID, err := claims.SubjectID()
	if err != nil {
		return nil, err
	}

	return &Identity{
		UserID: userID,
		Role:   claims.Role,
		Email:  claims.Email,
	}, nil
}

// ValidateToken adapts Resolve to the jwtmiddleware validator signature
func (a *Authenticator) ValidateToken(_ context.Context, token string) (interface{}, error) {
	return a.Resolve(token)
}

// ResolveRequest extracts and verifies the token carried by r
func (a *Authenticator) ResolveRequest(r *http.Request) (*Identity, error) {
	token, err := a.extractor(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return a.Resolve(token)
}
