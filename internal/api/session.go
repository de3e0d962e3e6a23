// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Error variables for session resolution.
var (
	// ErrNotLoggedIn indicates the session endpoint returned no bearer token:
	// the user is not logged in or the session has expired. A missing session
	// is not transient, so resolution is never retried.
	ErrNotLoggedIn = errors.New("not logged in or session expired")
)

// Credential authorizes calls against the backend API. It is resolved once
// per pipeline run, immutable thereafter, and never persisted.
type Credential struct {
	// BearerToken is sent as the Authorization header on every call.
	BearerToken string

	// WorkspaceAccountID is the Team/Business workspace identifier from the
	// _account cookie. Empty means a personal account.
	WorkspaceAccountID string
}

// IsWorkspace reports whether the credential targets a Team/Business
// workspace rather than a personal account.
func (c Credential) IsWorkspace() bool {
	return c.WorkspaceAccountID != ""
}

// sessionResponse is the shape of the session endpoint's JSON body. Only the
// access token matters here.
type sessionResponse struct {
	AccessToken string `json:"accessToken"`
}

// SessionResolver obtains a bearer credential from the ambient browsing
// context: the session endpoint (authenticated by cookie) plus the cookie
// string itself for workspace detection.
type SessionResolver struct {
	// SessionURL is the session endpoint.
	SessionURL string

	// Cookie is the raw Cookie header value captured from the browsing
	// context. It authenticates the session call and carries the _account
	// workspace marker.
	Cookie string

	// Token, when non-empty, is used directly and the session endpoint is
	// never contacted. Workspace detection still reads the cookie.
	Token string

	// HTTPClient is the client used for the session call. Nil means a
	// default client with a 30s timeout.
	HTTPClient *http.Client
}

// Resolve obtains the bearer credential for this run. It fails with
// ErrNotLoggedIn when the session endpoint is unreachable or returns no
// token.
func (r *SessionResolver) Resolve(ctx context.Context) (Credential, error) {
	cred := Credential{
		BearerToken:        strings.TrimSpace(r.Token),
		WorkspaceAccountID: workspaceAccountID(r.Cookie),
	}
	if cred.BearerToken != "" {
		return cred, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.SessionURL, nil)
	if err != nil {
		return Credential{}, fmt.Errorf("failed to create session request: %w", err)
	}
	if r.Cookie != "" {
		req.Header.Set("Cookie", r.Cookie)
	}

	client := r.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	resp, err := client.Do(req)
	if err != nil {
		return Credential{}, fmt.Errorf("%w: %v", ErrNotLoggedIn, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Credential{}, fmt.Errorf("%w: session endpoint returned HTTP %d", ErrNotLoggedIn, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Credential{}, fmt.Errorf("failed to read session response: %w", err)
	}

	var session sessionResponse
	if err := json.Unmarshal(body, &session); err != nil {
		return Credential{}, fmt.Errorf("failed to parse session response: %w", err)
	}
	if session.AccessToken == "" {
		return Credential{}, fmt.Errorf("%w: no access token in session response", ErrNotLoggedIn)
	}

	cred.BearerToken = session.AccessToken
	return cred, nil
}

// workspaceAccountID extracts the _account cookie value from a raw Cookie
// header. Presence of the cookie marks a Team/Business workspace.
func workspaceAccountID(cookie string) string {
	for _, part := range strings.Split(cookie, ";") {
		part = strings.TrimSpace(part)
		if value, ok := strings.CutPrefix(part, "_account="); ok {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
