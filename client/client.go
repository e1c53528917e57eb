// Package client is a typed HTTP client for the RepairHub JSON API.
//
// A Client keeps the session both as a cookie (through its cookie jar) and as
// a bearer token, so it works against the API from anywhere a browser would.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kendall-kelly/repair-hub-api/models"
	"github.com/kendall-kelly/repair-hub-api/services"
)

// DefaultTimeout bounds every request made with the default HTTP client
const DefaultTimeout = 30 * time.Second

// APIError is returned for every non-2xx response
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("repairhub: %d %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is an APIError with the given status code
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// AuthResponse is returned by Register and Login
type AuthResponse struct {
	Token   string       `json:"token"`
	User    *models.User `json:"user"`
	Message string       `json:"message,omitempty"`
}

// Client talks to one RepairHub server
type Client struct {
	baseURL *url.URL
	http    *http.Client

	mu    sync.RWMutex
	token string
}

// New creates a client for baseURL. A nil httpClient gets a default client
// with a cookie jar and DefaultTimeout.
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.ParseRequestURI(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}

	if httpClient == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		httpClient = &http.Client{Timeout: DefaultTimeout, Jar: jar}
	}

	return &Client{baseURL: u, http: httpClient}, nil
}

// Token returns the bearer token sent with each request
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken replaces the bearer token; an empty token sends none
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Close releases idle connections held by the underlying transport
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// Health calls GET /api/health
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/health", nil, nil)
}

// Register creates an account and keeps its session
func (c *Client) Register(ctx context.Context, in services.RegisterInput) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", in, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	return &out, nil
}

// Login signs in and keeps the session
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	in := services.LoginInput{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", in, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	return &out, nil
}

// Logout ends the session on the server and forgets the local token
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
	c.SetToken("")
	return err
}

// Me returns the signed-in user
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var out struct {
		User *models.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// Profile returns the signed-in user's profile
func (c *Client) Profile(ctx context.Context) (*models.User, error) {
	var out struct {
		User *models.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/profile", nil, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// UpdateProfile applies a partial profile update
func (c *Client) UpdateProfile(ctx context.Context, in services.ProfileInput) (*models.User, error) {
	var out struct {
		User *models.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPut, "/api/auth/profile", in, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// UploadAvatar uploads an avatar image read from r and returns the updated user
func (c *Client) UploadAvatar(ctx context.Context, filename string, r io.Reader) (*models.User, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("avatar", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("failed to read avatar: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/auth/avatar", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var out struct {
		User *models.User `json:"user"`
	}
	if err := c.send(req, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// RandomAvatar returns a random avatar URL for name
func (c *Client) RandomAvatar(ctx context.Context, name string) (string, error) {
	var out struct {
		AvatarURL string `json:"avatarUrl"`
	}
	path := "/api/avatar"
	if name != "" {
		path += "?name=" + url.QueryEscape(name)
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return "", err
	}
	return out.AvatarURL, nil
}

// ListRepairs returns the caller's repairs, newest first
func (c *Client) ListRepairs(ctx context.Context) ([]models.Repair, error) {
	var out []models.Repair
	if err := c.do(ctx, http.MethodGet, "/api/repairs", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AvailableRepairs returns the technician job board
func (c *Client) AvailableRepairs(ctx context.Context) ([]models.Repair, error) {
	var out []models.Repair
	if err := c.do(ctx, http.MethodGet, "/api/repairs/available", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateRepair opens a new repair request
func (c *Client) CreateRepair(ctx context.Context, title, description string) (*models.Repair, error) {
	var out models.Repair
	in := services.CreateRepairInput{Title: title, Description: description}
	if err := c.do(ctx, http.MethodPost, "/api/repairs", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetRepair returns one repair
func (c *Client) GetRepair(ctx context.Context, id uint) (*models.Repair, error) {
	var out models.Repair
	if err := c.do(ctx, http.MethodGet, repairPath(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateRepair applies a partial update, a status change or a rating
func (c *Client) UpdateRepair(ctx context.Context, id uint, in services.UpdateRepairInput) (*models.Repair, error) {
	var out models.Repair
	if err := c.do(ctx, http.MethodPut, repairPath(id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteRepair removes a repair
func (c *Client) DeleteRepair(ctx context.Context, id uint) error {
	return c.do(ctx, http.MethodDelete, repairPath(id), nil, nil)
}

// ClaimRepair assigns an open repair to the signed-in technician
func (c *Client) ClaimRepair(ctx context.Context, id uint) (*models.Repair, error) {
	var out models.Repair
	if err := c.do(ctx, http.MethodPost, repairPath(id)+"/claim", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Conversations returns the caller's conversation summaries
func (c *Client) Conversations(ctx context.Context) ([]models.ConversationSummary, error) {
	var out []models.ConversationSummary
	if err := c.do(ctx, http.MethodGet, "/api/messages", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Thread returns a repair's messages and marks the inbound ones read
func (c *Client) Thread(ctx context.Context, repairID uint) ([]models.Message, error) {
	var out []models.Message
	path := "/api/messages?repairId=" + strconv.FormatUint(uint64(repairID), 10)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SendMessage posts a message on a repair
func (c *Client) SendMessage(ctx context.Context, repairID uint, content string) (*models.Message, error) {
	var out models.Message
	in := services.SendMessageInput{RepairID: repairID, Content: content}
	if err := c.do(ctx, http.MethodPost, "/api/messages", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func repairPath(id uint) string {
	return "/api/repairs/" + strconv.FormatUint(uint64(id), 10)
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.ResolveReference(ref).String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) send(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var envelope struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &envelope) == nil && envelope.Error != "" {
			apiErr.Message = envelope.Error
		} else {
			apiErr.Message = strings.TrimSpace(http.StatusText(resp.StatusCode))
		}
		return apiErr
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
