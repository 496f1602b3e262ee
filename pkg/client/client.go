// Package client provides an HTTP client for the access ticket API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/lauto554/arca-soap/pkg/models"
)

// Client is the access ticket API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Config holds client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// New creates a new API client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// AccessResult is the outcome of an access request.
type AccessResult struct {
	Ticket               *models.Ticket `json:"ticket,omitempty"`
	Reused               bool           `json:"reused"`
	AlreadyAuthenticated bool           `json:"already_authenticated"`
	Message              string         `json:"message,omitempty"`
}

// envelope mirrors the server's JSON response envelope.
type envelope struct {
	Status  string          `json:"status"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Access requests an access ticket for a tenant in the given environment.
// An empty serviceID lets the server apply its configured default.
func (c *Client) Access(ctx context.Context, tenantID string, env models.Environment, serviceID string) (*AccessResult, error) {
	path := fmt.Sprintf("/api/v1/access/%s/%s", tenantID, env)
	query := url.Values{}
	if serviceID != "" {
		query.Set("service", serviceID)
	}

	resp, err := c.request(ctx, path, query)
	if err != nil {
		return nil, err
	}

	if resp.Code == http.StatusNoContent {
		return &AccessResult{AlreadyAuthenticated: true, Message: resp.Message}, nil
	}

	var result AccessResult
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &result, nil
}

// Health checks the server's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	u, err := url.JoinPath(c.baseURL, "/health")
	if err != nil {
		return fmt.Errorf("build URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed (%d)", resp.StatusCode)
	}
	return nil
}

// request makes a GET request and decodes the response envelope.
func (c *Client) request(ctx context.Context, path string, query url.Values) (*envelope, error) {
	u, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return nil, fmt.Errorf("build URL: %w", err)
	}
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if resp.StatusCode >= 400 || env.Status == "error" {
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, env.Message)
	}
	return &env, nil
}
