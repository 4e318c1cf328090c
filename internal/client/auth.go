package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrUnauthorized means the LMS rejected the session.
var ErrUnauthorized = errors.New("unauthorized")

type AuthConfig struct {
	Address string
	Timeout time.Duration
}

// AuthClient delegates session checks to the upstream LMS. This service
// never validates credentials itself; it only requires that requests
// come from a logged-in LMS user.
type AuthClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewAuthClient(cfg AuthConfig) *AuthClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &AuthClient{
		baseURL:    cfg.Address,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Authorize checks an Authorization header against the LMS session
// endpoint and returns the authenticated user id.
func (c *AuthClient) Authorize(ctx context.Context, authHeader string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/sessions/current", nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", authHeader)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("auth request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return "", ErrUnauthorized
	default:
		return "", fmt.Errorf("auth request failed with status %d", resp.StatusCode)
	}

	var session struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return "", fmt.Errorf("failed to decode session: %w", err)
	}
	if session.UserID == "" {
		return "", ErrUnauthorized
	}

	return session.UserID, nil
}
