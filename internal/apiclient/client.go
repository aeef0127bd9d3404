// Package apiclient is the single outbound path to the storefront REST
// backend. It owns base addressing, default headers, the request timeout,
// bearer token injection and the reaction to expired tokens.
package apiclient

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
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const maxErrorBody = 64 << 10

// TokenSource is the part of the token store the client needs
type TokenSource interface {
	AccessToken() (string, error)
	Clear() error
}

// Config holds client settings
type Config struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64 // 0 disables throttling
	UserAgent         string
}

// Client represents an HTTP client for the storefront API
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	tokens     TokenSource
	limiter    *rate.Limiter
	logger     zerolog.Logger
}

// New creates a new API client
func New(cfg Config, tokens TokenSource, log zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "storefront-client"
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
		logger:     log,
	}

	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return c
}

// SetHTTPClient sets a custom HTTP client. Its Timeout replaces the configured one.
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

// BaseURL returns the normalized backend address
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get issues a GET and decodes the JSON response into out (may be nil)
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST with a JSON body
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

// Put issues a PUT with a JSON body
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, body, out)
}

// Patch issues a PATCH with a JSON body
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPatch, path, body, out)
}

// Delete issues a DELETE
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}

// Do sends a JSON request. body and out may be nil.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.send(req, path, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", ulid.Make().String())

	return req, nil
}

// authorize attaches the current bearer token, or makes sure none is attached
func (c *Client) authorize(req *http.Request) error {
	token, err := c.tokens.AccessToken()
	if err != nil {
		return fmt.Errorf("failed to load access token: %w", err)
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	} else {
		req.Header.Del("Authorization")
	}
	return nil
}

func (c *Client) send(req *http.Request, path string, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return fmt.Errorf("request throttled: %w", err)
		}
	}

	if err := c.authorize(req); err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%w: %s %s: %w", ErrTimeout, req.Method, path, err)
		}
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("method", req.Method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Str("request_id", req.Header.Get("X-Request-ID")).
		Msg("API request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &APIError{Method: req.Method, Path: path, Status: resp.StatusCode, Body: data}

		if resp.StatusCode == http.StatusUnauthorized {
			c.handleUnauthorized(apiErr)
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// handleUnauthorized drops stored tokens when the backend says the token
// itself is bad, so the next request goes out unauthenticated instead of
// replaying a dead credential. The decision uses this response only; the
// error is still returned to the caller unchanged.
func (c *Client) handleUnauthorized(apiErr *APIError) {
	if !IsTokenFailure(apiErr.Body) {
		return
	}

	if err := c.tokens.Clear(); err != nil {
		c.logger.Warn().Err(err).Str("path", apiErr.Path).Msg("Failed to clear rejected tokens")
		return
	}
	c.logger.Info().Str("path", apiErr.Path).Msg("Backend rejected access token, cleared stored tokens")
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
