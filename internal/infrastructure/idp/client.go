package idp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/solace-api/internal/config"
	"github.com/solace-api/internal/domain"
)

// Adapter is the coordination contract against the new identity provider.
// Failures here are non-fatal to legacy-path operations: callers log and
// continue.
type Adapter interface {
	// ConfirmEmail marks the mirrored account's email as verified.
	ConfirmEmail(ctx context.Context, providerUserID string) error
	// Authorize exchanges credentials for a provider access token.
	Authorize(ctx context.Context, email, password string) (accessToken string, err error)
}

type client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient builds the HTTP adapter, or returns nil when no base URL is
// configured — callers treat a nil adapter as "provider not available".
func NewClient(cfg *config.Config) Adapter {
	if cfg.IDPBaseURL == "" {
		return nil
	}
	return &client{
		baseURL: cfg.IDPBaseURL,
		apiKey:  cfg.IDPAPIKey,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *client) ConfirmEmail(ctx context.Context, providerUserID string) error {
	body := map[string]string{"user_id": providerUserID}
	var out struct {
		OK bool `json:"ok"`
	}
	if err := c.post(ctx, "/v1/users/confirm-email", body, &out); err != nil {
		return err
	}
	if !out.OK {
		return fmt.Errorf("provider rejected email confirmation for %s", providerUserID)
	}
	return nil
}

func (c *client) Authorize(ctx context.Context, email, password string) (string, error) {
	body := map[string]string{"email": email, "password": password}
	var out struct {
		AccessToken string `json:"access_token"`
		Error       string `json:"error"`
	}
	if err := c.post(ctx, "/v1/oauth/token", body, &out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("provider authorization failed: %s: %w", out.Error, domain.ErrUnauthorized)
	}
	return out.AccessToken, nil
}

func (c *client) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("provider request %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("provider request %s: status %d: %w", path, resp.StatusCode, domain.ErrUnauthorized)
	}
	if resp.StatusCode >= 500 {
		return fmt.Errorf("provider request %s: status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
