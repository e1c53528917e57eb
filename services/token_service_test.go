package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kendall-kelly/repair-hub-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenService_IssueAndParse(t *testing.T) {
	tokens := NewTokenService(testSecret, 2*time.Hour)
	user := &models.User{ID: 42, Email: "tech@example.com", Role: models.RoleTechnician}

	token, expiresAt, err := tokens.Issue(user)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(2*time.Hour), expiresAt, 5*time.Second)

	claims, err := tokens.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "tech@example.com", claims.Email)
	assert.Equal(t, models.RoleTechnician, claims.Role)

	id, err := claims.SubjectID()
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)
}

func TestTokenService_RejectsBadTokens(t *testing.T) {
	tokens := NewTokenService(testSecret, time.Hour)
	user := &models.User{ID: 1, Email: "a@example.com", Role: models.RoleCustomer}

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenService("another-secret", time.Hour)
		token, _, err := other.Issue(user)
		require.NoError(t, err)

		_, err = tokens.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		past := NewTokenService(testSecret, time.Hour)
		past.now = func() time.Time { return time.Now().Add(-3 * time.Hour) }
		token, _, err := past.Issue(user)
		require.NoError(t, err)

		_, err = tokens.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unsigned", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
			"sub": "1",
			"exp": time.Now().Add(time.Hour).Unix(),
		}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = tokens.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := tokens.Parse("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestTokenService_LegacyClaims(t *testing.T) {
	tokens := NewTokenService(testSecret, time.Hour)

	sign := func(claims jwt.MapClaims) string {
		claims["exp"] = time.Now().Add(time.Hour).Unix()
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		return token
	}

	t.Run("userId string", func(t *testing.T) {
		claims, err := tokens.Parse(sign(jwt.MapClaims{"userId": "17", "role": "technician"}))
		require.NoError(t, err)
		id, err := claims.SubjectID()
		require.NoError(t, err)
		assert.Equal(t, uint(17), id)
		assert.Equal(t, models.RoleTechnician, claims.Role)
	})

	t.Run("numeric id", func(t *testing.T) {
		claims, err := tokens.Parse(sign(jwt.MapClaims{"id": 7}))
		require.NoError(t, err)
		id, err := claims.SubjectID()
		require.NoError(t, err)
		assert.Equal(t, uint(7), id)
	})

	t.Run("role defaults to customer", func(t *testing.T) {
		claims, err := tokens.Parse(sign(jwt.MapClaims{"sub": "3", "role": "user"}))
		require.NoError(t, err)
		assert.Equal(t, models.RoleCustomer, claims.Role)
	})

	t.Run("no id at all", func(t *testing.T) {
		claims, err := tokens.Parse(sign(jwt.MapClaims{"email": "x@example.com"}))
		require.NoError(t, err)
		_, err = claims.SubjectID()
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestTokenService_MissingSecret(t *testing.T) {
	tokens := NewTokenService("", time.Hour)

	_, _, err := tokens.Issue(&models.User{ID: 1})
	assert.ErrorIs(t, err, ErrMissingKey)

	_, err = tokens.Parse("anything")
	assert.ErrorIs(t, err, ErrMissingKey)
}
