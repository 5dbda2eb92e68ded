// Package api wraps the backend REST API: base URL, token header and
// verb-specific JSON helpers.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	u "github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/enlite/internal/repository"
)

// Client is safe for concurrent use. The token is shared by all requests
// issued after SetToken returns.
type Client struct {
	base    string
	hc      *http.Client
	timeout time.Duration
	store   repository.KV // persistent
	scoped  repository.KV // session-scoped, wiped on logout
	log     *zap.Logger

	mu    sync.RWMutex
	token string
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.hc = hc } }

// WithTimeout bounds every request. Zero (the default) means no timeout.
func WithTimeout(d time.Duration) Option { return func(c *Client) { c.timeout = d } }

// New configures a client for baseURL and reattaches any token already
// persisted in store, so a restart keeps the session header.
func New(ctx context.Context, baseURL string, store, scoped repository.KV, log *zap.Logger, opts ...Option) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Client{
		base:   strings.TrimRight(baseURL, "/"),
		hc:     &http.Client{},
		store:  store,
		scoped: scoped,
		log:    log,
	}
	for _, o := range opts {
		o(c)
	}
	tok, ok, err := store.Get(ctx, repository.KeyToken)
	if err != nil {
		return nil, fmt.Errorf("api.New: load token: %w", err)
	}
	if ok && tok != "" {
		c.token = tok
		log.Debug("reattached persisted token")
	}
	return c, nil
}

// BaseURL returns the configured base.
func (c *Client) BaseURL() string { return c.base }

// Token returns the token currently attached to requests.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken attaches token to all subsequent requests and persists it.
// An empty token is the same as ClearToken.
func (c *Client) SetToken(ctx context.Context, token string) error {
	if token == "" {
		return c.ClearToken(ctx)
	}
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
	if exp, ok := TokenExpiry(token); ok {
		c.log.Debug("token attached", zap.Time("expires_at", exp))
	}
	return c.store.Set(ctx, repository.KeyToken, token)
}

// ClearToken drops the header, removes every session key and wipes the
// session-scoped store.
func (c *Client) ClearToken(ctx context.Context) error {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
	for _, k := range repository.SessionKeys {
		if err := c.store.Remove(ctx, k); err != nil {
			return fmt.Errorf("api.ClearToken: %w", err)
		}
	}
	if c.scoped != nil {
		if err := c.scoped.Clear(ctx); err != nil {
			return fmt.Errorf("api.ClearToken: %w", err)
		}
	}
	return nil
}

// Get issues GET base+path and decodes the response into out (may be nil).
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, out)
}

// Post issues a JSON POST.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.doJSON(ctx, http.MethodPost, path, body, out)
}

// Put issues a JSON PUT.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.doJSON(ctx, http.MethodPut, path, body, out)
}

// Delete issues DELETE base+path.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.doJSON(ctx, http.MethodDelete, path, nil, out)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: encode %s %s: %w", method, path, err)
		}
		r = bytes.NewReader(b)
	}
	return c.do(ctx, method, path, "application/json", r, out)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("api: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if rid, err := u.NewV4(); err == nil {
		req.Header.Set("X-Request-ID", rid.String())
	}
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Token "+tok)
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		c.log.Warn("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Duration("dur", time.Since(start)),
			zap.Error(err),
		)
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.log.Debug("request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("dur", time.Since(start)),
		zap.String("request_id", req.Header.Get("X-Request-ID")),
	)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("api: read %s %s: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newRequestError(method, path, resp.StatusCode, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("api: decode %s %s: %w", method, path, err)
	}
	return nil
}
