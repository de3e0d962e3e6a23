// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Configuration constants for the backend API client.
const (
	// DefaultTimeout is the default timeout for API requests.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for
	// rate-limited requests.
	DefaultMaxRetries = 5

	// defaultInitialBackoff is the first backoff wait after a 429 without a
	// retry-after header.
	defaultInitialBackoff = 500 * time.Millisecond

	// defaultMaxBackoff caps the doubled backoff wait.
	defaultMaxBackoff = 10 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	// SECURITY: Response size limit prevents memory exhaustion attacks.
	// Conversation documents can be large; 50MB is well past anything the
	// service actually serves.
	MaxResponseSize = 50 * 1024 * 1024
)

// Error variables for common API client errors.
var (
	// ErrRetriesExhausted indicates the request stayed rate-limited through
	// every allowed attempt.
	ErrRetriesExhausted = errors.New("max retries exceeded")
)

// HTTPError represents a non-success, non-429 response from the backend API.
// These statuses indicate a non-transient condition (auth revoked, not
// found, server fault) and are never retried.
type HTTPError struct {
	Status int
	URL    string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.URL)
}

// Client is a rate-limit aware client for the backend API. All pipeline
// stages share one Client so a run presents a single bounded request stream
// to the service.
//
// The retry policy is intentionally narrow: only HTTP 429 is retried,
// honoring the retry-after header when present and doubling an exponential
// backoff otherwise. Any other failure status fails the request immediately.
type Client struct {
	baseURL        string
	cred           Credential
	httpClient     *http.Client
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// NewClient creates a client for the given API root and credential.
func NewClient(baseURL string, cred Credential) *Client {
	return &Client{
		baseURL:        trimSlash(baseURL),
		cred:           cred,
		httpClient:     &http.Client{Timeout: DefaultTimeout},
		maxRetries:     DefaultMaxRetries,
		initialBackoff: defaultInitialBackoff,
		maxBackoff:     defaultMaxBackoff,
	}
}

// WithMaxRetries sets the maximum number of rate-limited attempts.
func (c *Client) WithMaxRetries(n int) *Client {
	c.maxRetries = n
	return c
}

// WithBackoff sets the exponential backoff bounds.
func (c *Client) WithBackoff(initial, max time.Duration) *Client {
	c.initialBackoff = initial
	c.maxBackoff = max
	return c
}

// WithHTTPClient sets a custom underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// setHeaders sets the required headers for backend API requests.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.cred.BearerToken)
	req.Header.Set("Content-Type", "application/json")
	if c.cred.WorkspaceAccountID != "" {
		req.Header.Set("Chatgpt-Account-Id", c.cred.WorkspaceAccountID)
	}
}

// Get performs a GET against the given URL with bounded retry.
//
// On 429 the client waits per the retry-after header when present (whole
// seconds), otherwise the current backoff value; the backoff then doubles,
// capped at the configured maximum, and one attempt is consumed. Any other
// non-2xx response fails immediately with *HTTPError. When every attempt was
// rate-limited the call fails with ErrRetriesExhausted.
//
// The caller owns the response body.
func (c *Client) Get(ctx context.Context, requestURL string) (*http.Response, error) {
	backoff := c.initialBackoff

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		c.setHeaders(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			resp.Body.Close()
			return nil, &HTTPError{Status: resp.StatusCode, URL: requestURL}
		}

		wait := backoff
		if ra := retryAfter(resp); ra > 0 {
			wait = ra
		}
		resp.Body.Close()

		log.Printf("Rate limited, waiting %v (retry %d/%d)", wait, attempt+1, c.maxRetries)
		if err := sleep(ctx, wait); err != nil {
			return nil, err
		}

		backoff *= 2
		if backoff > c.maxBackoff {
			backoff = c.maxBackoff
		}
	}

	return nil, fmt.Errorf("%w for %s", ErrRetriesExhausted, requestURL)
}

// GetJSON performs a retried GET and decodes the JSON response body into v.
func (c *Client) GetJSON(ctx context.Context, requestURL string, v interface{}) error {
	resp, err := c.Get(ctx, requestURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := readResponse(resp)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// ListConversationsPage fetches one page of the conversation listing.
// The archived collection is the same endpoint with an is_archived filter.
func (c *Client) ListConversationsPage(ctx context.Context, offset, limit int, archived bool) ([]ConversationSummary, error) {
	u := fmt.Sprintf("%s/conversations?offset=%d&limit=%d", c.baseURL, offset, limit)
	if archived {
		u += "&is_archived=true"
	}

	var page conversationsPage
	if err := c.GetJSON(ctx, u, &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}

// FetchConversation retrieves the full document for one conversation id.
// The document is opaque to the client; content semantics are the
// pipeline's concern.
func (c *Client) FetchConversation(ctx context.Context, id string) (json.RawMessage, error) {
	u := c.baseURL + "/conversation/" + url.PathEscape(id)

	var doc json.RawMessage
	if err := c.GetJSON(ctx, u, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// DownloadFile resolves an attachment id to its bytes. The download endpoint
// either serves the bytes directly or returns a JSON descriptor with a
// download_url, disambiguated by content type; the descriptor URL points at
// blob storage and is followed without credentials.
func (c *Client) DownloadFile(ctx context.Context, id string) ([]byte, error) {
	u := c.baseURL + "/files/" + url.PathEscape(id) + "/download"

	resp, err := c.Get(ctx, u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if !isJSONResponse(resp) {
		return readResponse(resp)
	}

	body, err := readResponse(resp)
	if err != nil {
		return nil, err
	}
	var desc fileDownloadDescriptor
	if err := json.Unmarshal(body, &desc); err != nil {
		return nil, fmt.Errorf("failed to parse download descriptor: %w", err)
	}
	if desc.DownloadURL == "" {
		return nil, fmt.Errorf("download descriptor for %s has no download_url", id)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, desc.DownloadURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}

	// Unauthenticated: the descriptor URL is pre-signed and forwarding the
	// bearer token to third-party blob storage would leak it.
	dlResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer dlResp.Body.Close()

	if dlResp.StatusCode < 200 || dlResp.StatusCode >= 300 {
		return nil, &HTTPError{Status: dlResp.StatusCode, URL: desc.DownloadURL}
	}
	return readResponse(dlResp)
}

// =============================================================================
// HELPERS
// =============================================================================

// readResponse reads the response body with a size limit.
// SECURITY: Response size limit prevents memory exhaustion.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// retryAfter parses a retry-after header as whole seconds. Zero means the
// header was absent or unparseable.
func retryAfter(resp *http.Response) time.Duration {
	raw := resp.Header.Get("Retry-After")
	if raw == "" {
		return 0
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// isJSONResponse reports whether the response declares a JSON body.
func isJSONResponse(resp *http.Response) bool {
	return strings.Contains(resp.Header.Get("Content-Type"), "application/json")
}

// sleep waits for d or until the context is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func trimSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}
