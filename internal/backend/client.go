// Package backend is the gateway to the shop's backend REST API. It owns
// outbound request construction: base URL handling, bearer-token injection,
// and session-expiry detection on 401 responses.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// TokenSource supplies the current session token and receives the
// invalidation side effect when the backend rejects it. Making this an
// explicit dependency (instead of ambient storage) keeps the "any call can
// end the session" behavior while leaving it testable.
type TokenSource interface {
	// Token returns the current bearer token, or "" when anonymous.
	Token(ctx context.Context) string

	// InvalidateToken discards the stored token after a 401 response.
	InvalidateToken(ctx context.Context)
}

// Doer executes HTTP requests. Both httpclient.Client and
// httpclient.CircuitBreakerClient satisfy this.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Client issues requests against the backend API. It never retries: a single
// failed call is surfaced immediately for the caller to interpret.
type Client struct {
	baseURL string
	http    Doer
	logger  *slog.Logger
}

// NewClient creates a backend API client for the given base URL.
func NewClient(baseURL string, doer Doer, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    doer,
		logger:  logger,
	}
}

// Request performs a backend call. When ts holds a token it is attached as a
// bearer Authorization header; anonymous calls carry no auth header at all.
//
// A 401 response is treated as session-invalidating regardless of which call
// produced it: the token source is told to discard its token and the caller
// receives ErrSessionExpired. Callers must handle that error gracefully
// rather than assuming a normal response shape.
func (c *Client) Request(ctx context.Context, ts TokenSource, method, endpoint string, body any) (*http.Response, error) {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("create %s %s request: %w", method, endpoint, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	var hadToken bool
	if ts != nil {
		if token := ts.Token(ctx); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
			hadToken = true
		}
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("call backend %s %s: %w", method, endpoint, err)
	}

	if resp.StatusCode == http.StatusUnauthorized && hadToken {
		// The stored token is stale or revoked. Discard it as a side effect
		// so the whole session flips to anonymous, not just this caller.
		_ = resp.Body.Close()
		ts.InvalidateToken(ctx)
		c.logger.WarnContext(ctx, "backend rejected session token",
			slog.String("method", method),
			slog.String("endpoint", endpoint),
		)
		return nil, apperrors.SessionExpired()
	}

	return resp, nil
}

// decode decodes a JSON response body into dst and closes the body.
func decode(resp *http.Response, dst any) error {
	defer func() { _ = resp.Body.Close() }()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode backend response: %w", err)
	}
	return nil
}
