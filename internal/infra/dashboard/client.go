package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	// DefaultBaseURL is the dashboard API root
	DefaultBaseURL = "https://v2.mnitnetwork.com/api/v1/mnitnetworkcom"

	loginPath   = "/auth/login"
	tokenPath   = "/auth/token"
	consolePath = "/dashboard/getconsole"

	// authHeader carries the short-lived token on data requests
	authHeader = "mhitauth"

	maxBodyBytes = 4 << 20

	// defaultFlightTimeout bounds a shared login or token refresh
	defaultFlightTimeout = 30 * time.Second
)

var errNoToken = errors.New("token response has no token")

// Credentials are the dashboard account used for automatic logins
type Credentials struct {
	Email    string
	Password string
}

func (c Credentials) empty() bool {
	return c.Email == "" || c.Password == ""
}

// ConsoleResponse is the dashboard console payload
type ConsoleResponse struct {
	Meta map[string]interface{} `json:"meta"`
	Data struct {
		Messages []json.RawMessage `json:"messages"`
	} `json:"data"`
	Message string `json:"message"`
}

// Client talks to the dashboard API.
// It owns the token cache: logins and token exchanges are collapsed with
// singleflight so concurrent callers trigger at most one upstream call each.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	credsMu sync.RWMutex
	creds   Credentials

	cache  *TokenCache
	flight singleflight.Group

	ttl           time.Duration
	now           func() time.Time
	flightTimeout time.Duration
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL overrides the dashboard API root
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
}

// WithHTTPClient sets the HTTP client used for every call
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTokenTTL sets how long a token is trusted
func WithTokenTTL(ttl time.Duration) Option {
	return func(c *Client) {
		c.ttl = ttl
	}
}

// WithClock replaces time.Now for the token cache
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a dashboard client with an empty token cache
func NewClient(creds Credentials, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     slog.Default(),
		creds:      creds,
		ttl:        DefaultTokenTTL,

		flightTimeout: defaultFlightTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With("component", "dashboard")
	c.cache = NewTokenCache(c.ttl, c.now)
	return c
}

// Cache exposes the token cache
func (c *Client) Cache() *TokenCache {
	return c.cache
}

func (c *Client) credentials() Credentials {
	c.credsMu.RLock()
	defer c.credsMu.RUnlock()
	return c.creds
}

// Login authenticates with explicit credentials and returns the raw response.
// On success the session is cached and the credentials are kept for later
// automatic re-authentication.
func (c *Client) Login(ctx context.Context, email, password string) (json.RawMessage, error) {
	creds := Credentials{Email: email, Password: password}
	body, session, err := c.login(ctx, creds)
	if err != nil {
		return nil, err
	}

	c.credsMu.Lock()
	c.creds = creds
	c.credsMu.Unlock()
	c.cache.SetSession(session)

	c.logger.Info("logged in", "email", email)
	return body, nil
}

// EnsureSession returns the cached session, logging in when there is none
func (c *Client) EnsureSession(ctx context.Context) (string, error) {
	if session := c.cache.Session(); session != "" {
		return session, nil
	}

	v, err := c.share(ctx, "login", func(ctx context.Context) (interface{}, error) {
		if session := c.cache.Session(); session != "" {
			return session, nil
		}
		_, session, err := c.login(ctx, c.credentials())
		if err != nil {
			return "", err
		}
		c.cache.SetSession(session)
		c.logger.Info("session acquired")
		return session, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// EnsureToken returns a fresh token. A token younger than the TTL is served
// from the cache without a network call. Otherwise the session is exchanged
// for a new token; if the upstream rejects it, the session is replaced by a
// fresh login and the exchange is retried exactly once.
func (c *Client) EnsureToken(ctx context.Context) (string, bool, error) {
	if token, ok := c.cache.Token(); ok {
		c.logger.Debug("token cache hit")
		return token, true, nil
	}

	v, err := c.share(ctx, "token", func(ctx context.Context) (interface{}, error) {
		// A flight that finished just before this one may have refreshed it
		if token, ok := c.cache.Token(); ok {
			return token, nil
		}
		return c.refreshToken(ctx)
	})
	if err != nil {
		return "", false, err
	}
	return v.(string), false, nil
}

// InvalidateToken forces the next EnsureToken to go upstream
func (c *Client) InvalidateToken() {
	c.cache.InvalidateToken()
}

// share runs fn once for all concurrent callers of key, detached from any one
// caller's cancellation and bounded by flightTimeout. Each caller stops waiting
// when its own ctx ends.
func (c *Client) share(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	ch := c.flight.DoChan(key, func() (interface{}, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.flightTimeout)
		defer cancel()
		return fn(flightCtx)
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) refreshToken(ctx context.Context) (string, error) {
	session, err := c.EnsureSession(ctx)
	if err != nil {
		return "", err
	}

	token, err := c.exchange(ctx, session)
	if err == nil {
		c.cache.SetToken(token, session)
		return token, nil
	}
	if !sessionRejected(err) {
		// Transport failures say nothing about the session; keep it
		return "", err
	}

	c.logger.Warn("token exchange rejected, logging in again", "err", err)
	c.cache.DropSession(session)

	session, err = c.EnsureSession(ctx)
	if err != nil {
		return "", err
	}
	token, err = c.exchange(ctx, session)
	if err != nil {
		return "", &AuthError{Op: "token exchange", Err: err}
	}
	c.cache.SetToken(token, session)
	return token, nil
}

// FetchConsole fetches the live console. A rejected token is refreshed
// (bypassing the cache) and the request retried exactly once.
func (c *Client) FetchConsole(ctx context.Context) (*ConsoleResponse, error) {
	token, _, err := c.EnsureToken(ctx)
	if err != nil {
		return nil, err
	}

	body, err := c.getConsole(ctx, token)
	if IsUnauthorized(err) {
		c.logger.Warn("console rejected token, refreshing", "err", err)
		c.InvalidateToken()

		token, _, err = c.EnsureToken(ctx)
		if err != nil {
			return nil, err
		}
		body, err = c.getConsole(ctx, token)
		if IsUnauthorized(err) {
			return nil, &AuthError{Op: "fetch console", Err: err}
		}
	}
	if err != nil {
		return nil, err
	}

	var resp ConsoleResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode console: %w", err)
	}
	return &resp, nil
}

func (c *Client) login(ctx context.Context, creds Credentials) (json.RawMessage, string, error) {
	if creds.empty() {
		return nil, "", &AuthError{Op: "login", Err: errors.New("credentials not configured")}
	}

	body, err := c.do(ctx, http.MethodPost, loginPath, map[string]string{
		"email":    creds.Email,
		"password": creds.Password,
	}, nil)
	if err != nil {
		return nil, "", &AuthError{Op: "login", Err: err}
	}

	session := extractField(body, "session")
	if session == "" {
		return nil, "", &AuthError{Op: "login", Err: errors.New("response has no session")}
	}
	return body, session, nil
}

func (c *Client) exchange(ctx context.Context, session string) (string, error) {
	body, err := c.do(ctx, http.MethodPost, tokenPath, map[string]string{"session": session}, nil)
	if err != nil {
		return "", err
	}
	token := extractField(body, "token")
	if token == "" {
		return "", errNoToken
	}
	return token, nil
}

// sessionRejected reports whether an exchange failed because the upstream
// answered with a non-success response
func sessionRejected(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) || errors.Is(err, errNoToken)
}

func (c *Client) getConsole(ctx context.Context, token string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, consolePath, nil, map[string]string{authHeader: token})
}

func (c *Client) do(ctx context.Context, method, path string, payload interface{}, headers map[string]string) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		jsonBody, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "*/*")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP %s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(body)
		if len(snippet) > 256 {
			snippet = snippet[:256]
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: url, Body: snippet}
	}
	return body, nil
}

// extractField reads a string field from the top level or from "data"
func extractField(body []byte, field string) string {
	var parsed map[string]interface{}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ""
	}
	if v, ok := parsed[field].(string); ok && v != "" {
		return v
	}
	if data, ok := parsed["data"].(map[string]interface{}); ok {
		if v, ok := data[field].(string); ok {
			return v
		}
	}
	return ""
}
