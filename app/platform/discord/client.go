// Package discord implements the member directory on the Discord REST API.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	rolesyncservice "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/application"
	"golang.org/x/oauth2"
)

const (
	DefaultBaseURL = "https://discord.com/api/v10"
	defaultTimeout = 15 * time.Second
	// memberPageSize is the largest page the list members endpoint returns.
	memberPageSize = 1000
)

// Config configures the REST client.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client talks to the Discord REST API as a bot user.
type Client struct {
	http    *http.Client
	baseURL string
	logger  *slog.Logger

	mu    sync.Mutex
	botID string
}

var _ rolesyncservice.MemberDirectory = (*Client)(nil)

// NewClient creates a client authenticating every request with the bot token.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: "Bot"})
	return &Client{
		http: &http.Client{
			Timeout:   timeout,
			Transport: &oauth2.Transport{Source: src, Base: http.DefaultTransport},
		},
		baseURL: baseURL,
		logger:  logger,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "DiscordBot (clan-sync-bot, 1.0)")
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %w", method, path, rolesyncservice.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if err := checkResponse(resp); err != nil {
		c.logger.DebugContext(ctx, "Discord request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
		)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// checkResponse maps error statuses onto the directory error semantics.
func checkResponse(resp *http.Response) error {
	if resp.StatusCode < 300 {
		return nil
	}
	switch {
	case resp.StatusCode == http.StatusForbidden:
		return rolesyncservice.ErrForbidden
	case resp.StatusCode == http.StatusNotFound:
		return rolesyncservice.ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return &rolesyncservice.RateLimitedError{RetryAfter: retryAfter(resp)}
	case resp.StatusCode >= 500:
		return fmt.Errorf("status %d: %w", resp.StatusCode, rolesyncservice.ErrUpstream)
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
}

func retryAfter(resp *http.Response) time.Duration {
	var body struct {
		RetryAfter float64 `json:"retry_after"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1024)).Decode(&body); err == nil && body.RetryAfter > 0 {
		return time.Duration(body.RetryAfter * float64(time.Second))
	}
	if secs, err := strconv.ParseFloat(resp.Header.Get("Retry-After"), 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return time.Second
}

// currentBotID resolves the bot's own user id and caches it on success.
func (c *Client) currentBotID(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.botID != "" {
		return c.botID, nil
	}
	var me apiUser
	if err := c.do(ctx, http.MethodGet, "/users/@me", nil, &me); err != nil {
		return "", err
	}
	c.botID = me.ID
	return c.botID, nil
}
