// Package clash implements the player source on the Clash of Clans API.
package clash

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	rolesyncservice "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/application"
	"golang.org/x/oauth2"
)

const (
	DefaultBaseURL     = "https://api.clashofclans.com/v1"
	defaultTimeout     = 10 * time.Second
	defaultConcurrency = 8
)

// Config configures the API client.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	// Concurrency bounds parallel player lookups.
	Concurrency int
}

// Client reads players and wars from the game API.
type Client struct {
	http        *http.Client
	baseURL     string
	concurrency int
	logger      *slog.Logger
}

var _ rolesyncservice.PlayerSource = (*Client)(nil)

// NewClient creates a client sending the API token as a bearer token.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: "Bearer"})
	return &Client{
		http: &http.Client{
			Timeout:   timeout,
			Transport: &oauth2.Transport{Source: src, Base: http.DefaultTransport},
		},
		baseURL:     baseURL,
		concurrency: concurrency,
		logger:      logger,
	}
}

// apiError is the error body the game API returns.
type apiError struct {
	status int
	Reason string `json:"reason"`
	Msg    string `json:"message"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("status %d: %s %s", e.status, e.Reason, e.Msg)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w: %w", path, rolesyncservice.ErrUpstream, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("GET %s: %w", path, rolesyncservice.ErrNotFound)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("GET %s: %w", path, &rolesyncservice.RateLimitedError{RetryAfter: retryAfter(resp)})
	case resp.StatusCode >= 500:
		return fmt.Errorf("GET %s: status %d: %w", path, resp.StatusCode, rolesyncservice.ErrUpstream)
	}

	apiErr := &apiError{status: resp.StatusCode}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(apiErr)
	return fmt.Errorf("GET %s: %w", path, apiErr)
}

func retryAfter(resp *http.Response) time.Duration {
	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return time.Second
}

// escapeTag encodes a tag for use as a path segment; "#" must become %23.
func escapeTag(tag string) string {
	return url.PathEscape(tag)
}
