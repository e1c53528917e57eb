package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/kendall-kelly/repair-hub-api/models"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// Password is the password of every user created by CreateUser
const Password = "password123"

// CreateUser inserts a user directly, bypassing registration
func (a *App) CreateUser(t *testing.T, username, role string) models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	require.NoError(t, err)

	user := models.User{
		Username:     username,
		Email:        fmt.Sprintf("%s@example.com", username),
		PasswordHash: string(hash),
		Role:         role,
	}
	require.NoError(t, a.DB.Create(&user).Error)
	return user
}

// TokenFor issues a session token for user
func (a *App) TokenFor(t *testing.T, user models.User) string {
	t.Helper()

	token, _, err := a.Auth.Tokens().Issue(&user)
	require.NoError(t, err)
	return token
}

// Request sends a request through the router. A non-empty token is sent as a
// bearer token and a non-nil body is encoded as JSON.
func (a *App) Request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)
	return w
}

// Decode unmarshals the recorded JSON body into out
func Decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), "invalid JSON body: %s", w.Body.String())
}

// ErrorMessage returns the "error" field of a JSON error response
func ErrorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	Decode(t, w, &body)
	return body.Error
}
