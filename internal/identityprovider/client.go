// Package identityprovider is the boundary to the external verification
// service that owns the magic-code flow. The service never sees codes in
// transit to the user; it only asks the provider to send one and to check
// one.
package identityprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/frahmantamala/workspace-management/internal"
)

// Identity is what a successful verification yields: the provider's stable
// subject identifier plus profile basics.
type Identity struct {
	ExternalID string `json:"external_id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
}

type Provider interface {
	RequestCode(ctx context.Context, email string) error
	Verify(ctx context.Context, email, code string) (*Identity, error)
}

type Config struct {
	BaseURL        string
	APIKey         string
	RequestTimeout time.Duration
	MaxRetries     int
}

// Client talks to the provider over HTTP. Transient failures are retried
// with a short backoff; 4xx responses are not.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	maxRetries int
	logger     *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 2
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
		logger:     logger,
	}
}

func (c *Client) RequestCode(ctx context.Context, email string) error {
	payload := map[string]string{"email": email}
	resp, err := c.post(ctx, "/v1/verification/request", payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		c.logger.Error("verification request rejected", "status", resp.StatusCode, "email", email)
		return internal.NewUnavailableError("verification provider rejected the request", nil)
	}
	return nil
}

func (c *Client) Verify(ctx context.Context, email, code string) (*Identity, error) {
	payload := map[string]string{"email": email, "code": code}
	resp, err := c.post(ctx, "/v1/verification/verify", payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var identity Identity
		if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
			return nil, internal.NewUnavailableError("could not decode provider response", err)
		}
		if identity.ExternalID == "" {
			return nil, internal.NewUnavailableError("provider returned no subject id", nil)
		}
		return &identity, nil
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusUnprocessableEntity:
		return nil, internal.ErrInvalidCode
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.logger.Error("verification failed", "status", resp.StatusCode, "body", string(body))
		return nil, internal.NewUnavailableError("verification provider is unavailable", nil)
	}
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, internal.NewInternalError("could not encode provider request", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * 200 * time.Millisecond):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, internal.NewInternalError("could not build provider request", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("X-API-Key", c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			c.logger.Warn("provider request failed", "path", path, "attempt", attempt, "error", err)
			continue
		}
		if resp.StatusCode >= http.StatusInternalServerError && attempt < c.maxRetries {
			resp.Body.Close()
			lastErr = fmt.Errorf("provider returned %d", resp.StatusCode)
			continue
		}
		return resp, nil
	}
	return nil, internal.NewUnavailableError("verification provider is unreachable", lastErr)
}
