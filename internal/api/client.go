// Package api is a thin client for the todo REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/schema"
)

// schemaEncoder turns tagged structs into query strings and form bodies.
var schemaEncoder = schema.NewEncoder()

// Client talks to one API base URL. The bearer token is per client; a new
// session gets a new client.
type Client struct {
	base   string
	http   *http.Client
	logger *slog.Logger

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

func WithLogger(l *slog.Logger) Option { return func(c *Client) { c.logger = l } }

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base:   strings.TrimRight(baseURL, "/"),
		http:   &http.Client{Timeout: 15 * time.Second},
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string { return c.base }

// SetAuthToken sets the bearer token sent with every later request.
// An empty token removes the header.
func (c *Client) SetAuthToken(token string) {
	c.mu.Lock()
	c.token = strings.TrimSpace(token)
	c.mu.Unlock()
}

// AuthToken returns the token currently attached to requests.
func (c *Client) AuthToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	var contentType string
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal: %w", err)
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, query, body, contentType, out)
}

func (c *Client) doForm(ctx context.Context, path string, form any, out any) error {
	vals := url.Values{}
	if err := schemaEncoder.Encode(form, vals); err != nil {
		return fmt.Errorf("encode form: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, nil, strings.NewReader(vals.Encode()),
		"application/x-www-form-urlencoded", out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string, out any) error {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if tok := c.AuthToken(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.ErrorContext(ctx, "request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.Duration("duration", time.Since(start)),
			slog.Any("error", err),
		)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "request completed",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
