// Package client is a typed HTTP client for the fencer API. Its error
// messages use fixed wording so the recovery controller can classify
// failures by substring.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/vietddude/fencer/internal/core/domain"
)

// Stats is a snapshot of the client's request bookkeeping.
type Stats struct {
	SuccessCount int
	FailureCount int
	ErrorRate    float64
	AvgLatency   time.Duration
	LastSuccess  time.Time
	LastFailure  time.Time
}

// Client talks to a fencer API server. It holds the token pair and
// transparently refreshes the access token once per request.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	totalLatency time.Duration
	successCount int
	failureCount int
	lastSuccess  time.Time
	lastFailure  time.Time
}

// New creates a client for the given base URL (scheme://host:port).
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// SetTokens seeds the token pair, e.g. from a saved session.
func (c *Client) SetTokens(access, refresh string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = access
	c.refreshToken = refresh
}

// Tokens returns the current token pair.
func (c *Client) Tokens() (access, refresh string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken, c.refreshToken
}

// Stats returns the request bookkeeping snapshot.
func (c *Client) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := Stats{
		SuccessCount: c.successCount,
		FailureCount: c.failureCount,
		LastSuccess:  c.lastSuccess,
		LastFailure:  c.lastFailure,
	}
	if total := c.successCount + c.failureCount; total > 0 {
		s.ErrorRate = float64(c.failureCount) / float64(total)
	}
	if c.successCount > 0 {
		s.AvgLatency = c.totalLatency / time.Duration(c.successCount)
	}
	return s
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// =============================================================================
// API operations
// =============================================================================

type tokenPair struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         *domain.User `json:"user,omitempty"`
}

// Login authenticates and stores the issued token pair.
func (c *Client) Login(ctx context.Context, email, password string) (*domain.User, error) {
	var resp tokenPair
	err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &resp, false)
	if err != nil {
		return nil, err
	}
	c.SetTokens(resp.AccessToken, resp.RefreshToken)
	return resp.User, nil
}

// Logout revokes the current session and clears the token pair.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil, true)
	c.SetTokens("", "")
	return err
}

// ListFences returns the fences the authenticated user is a member of.
func (c *Client) ListFences(ctx context.Context) ([]*domain.Geofence, error) {
	var resp struct {
		Fences []*domain.Geofence `json:"fences"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/fences", nil, &resp, true); err != nil {
		return nil, err
	}
	return resp.Fences, nil
}

// FenceSpec is the write payload for creating or updating a fence.
type FenceSpec struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	RadiusM     float64 `json:"radius_m"`
	HysteresisM float64 `json:"hysteresis_m"`
}

// CreateFence creates a fence owned by the authenticated user.
func (c *Client) CreateFence(ctx context.Context, spec FenceSpec) (*domain.Geofence, error) {
	var fence domain.Geofence
	if err := c.do(ctx, http.MethodPost, "/api/fences", spec, &fence, true); err != nil {
		return nil, err
	}
	return &fence, nil
}

// DeleteFence soft-deletes a fence.
func (c *Client) DeleteFence(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/fences/"+id, nil, nil, true)
}

// Register creates a new account.
func (c *Client) Register(ctx context.Context, email, password, displayName string) (*domain.User, error) {
	var user domain.User
	err := c.do(ctx, http.MethodPost, "/api/auth/register", map[string]string{
		"email":        email,
		"password":     password,
		"display_name": displayName,
	}, &user, false)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetFence returns a single fence by ID.
func (c *Client) GetFence(ctx context.Context, id string) (*domain.Geofence, error) {
	var fence domain.Geofence
	if err := c.do(ctx, http.MethodGet, "/api/fences/"+id, nil, &fence, true); err != nil {
		return nil, err
	}
	return &fence, nil
}

// ListMembers returns the members of a fence.
func (c *Client) ListMembers(ctx context.Context, fenceID string) ([]*domain.Member, error) {
	var resp struct {
		Members []*domain.Member `json:"members"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/fences/"+fenceID+"/members", nil, &resp, true); err != nil {
		return nil, err
	}
	return resp.Members, nil
}

// refresh exchanges the refresh token for a new pair. A rejected
// refresh surfaces the server's "token refresh failed" message.
func (c *Client) refresh(ctx context.Context) error {
	c.mu.RLock()
	refresh := c.refreshToken
	c.mu.RUnlock()
	if refresh == "" {
		return errors.New("token refresh failed: no refresh token")
	}

	var resp tokenPair
	err := c.do(ctx, http.MethodPost, "/api/auth/refresh", map[string]string{
		"refresh_token": refresh,
	}, &resp, false)
	if err != nil {
		return err
	}
	c.SetTokens(resp.AccessToken, resp.RefreshToken)
	return nil
}

// =============================================================================
// Transport
// =============================================================================

// do performs one request. Authenticated requests that come back with
// an expired session are retried once after a token refresh.
func (c *Client) do(ctx context.Context, method, path string, body, out any, authed bool) error {
	err := c.doOnce(ctx, method, path, body, out, authed)
	if authed && err != nil && strings.Contains(err.Error(), domain.ErrSessionExpired.Error()) {
		if refreshErr := c.refresh(ctx); refreshErr != nil {
			return refreshErr
		}
		err = c.doOnce(ctx, method, path, body, out, authed)
	}
	return err
}

func (c *Client) doOnce(ctx context.Context, method, path string, body, out any, authed bool) error {
	start := time.Now()

	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if authed {
		c.mu.RLock()
		token := c.accessToken
		c.mu.RUnlock()
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordFailure()
		return transportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("network error: read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		c.recordFailure()
		return statusError(resp.StatusCode, raw)
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}

	c.recordSuccess(time.Since(start))
	return nil
}

// transportError maps a failed round trip onto the classifier's
// keyword vocabulary.
func transportError(err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("timeout: %w", err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("timeout: %w", err)
	case errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.ECONNRESET):
		return fmt.Errorf("connection failed: %w", err)
	default:
		return fmt.Errorf("network error: %w", err)
	}
}

// statusError turns an error response into a classifiable message.
// 401 bodies carry server wording the classifier matches verbatim.
func statusError(status int, body []byte) error {
	var resp struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &resp); err == nil && resp.Error != "" {
		msg = resp.Error
	}

	switch status {
	case http.StatusServiceUnavailable:
		return fmt.Errorf("service unavailable: http 503")
	case http.StatusUnauthorized:
		return errors.New(msg)
	default:
		return fmt.Errorf("http %d: %s", status, msg)
	}
}

func (c *Client) recordSuccess(latency time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.successCount++
	c.totalLatency += latency
	c.lastSuccess = time.Now()
}

func (c *Client) recordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failureCount++
	c.lastFailure = time.Now()
}
