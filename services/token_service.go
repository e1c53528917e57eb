package services

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kendall-kelly/repair-hub-api/models"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrMissingKey   = errors.New("token signing secret is not configured")
)

// Claims is the session payload carried by every issued token.
// UserID and ID only exist on tokens minted by older clients.
type Claims struct {
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
	UserID any    `json:"userId,omitempty"`
	ID     any    `json:"id,omitempty"`
	jwt.RegisteredClaims
}

// SubjectID returns the numeric user id, preferring sub over the legacy claims
func (c *Claims) SubjectID() (uint, error) {
	for _, candidate := range []any{c.Subject, c.UserID, c.ID} {
		id, ok := parseUserID(candidate)
		if ok {
			return id, nil
		}
	}
	return 0, fmt.Errorf("%w: no user id claim", ErrInvalidToken)
}

func parseUserID(v any) (uint, bool) {
	switch val := v.(type) {
	case string:
		if val == "" {
			return 0, false
		}
		n, err := strconv.ParseUint(val, 10, 64)
		if err != nil || n == 0 {
			return 0, false
		}
		return uint(n), true
	case float64:
		if val <= 0 || val != float64(uint64(val)) {
			return 0, false
		}
		return uint(val), true
	default:
		return 0, false
	}
}

// TokenService issues and verifies HS256 session tokens
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a token service signing with secret; tokens live for ttl
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL returns how long issued tokens stay valid
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for user and returns it with its expiry
func (s *TokenService) Issue(user *models.User) (string, time.Time, error) {
	if len(s.secret) == 0 {
		return "", time.Time{}, ErrMissingKey
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := Claims{
		Email: user.Email,
		Role:  models.NormalizeRole(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse verifies tokenString and returns its claims
func (s *TokenService) Parse(tokenString string) (*Claims, error) {
	if len(s.secret) == 0 {
		return nil, ErrMissingKey
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	claims.Role = models.NormalizeRole(claims.Role)
	return claims, nil
}
