// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestResolveFromSessionEndpoint verifies the token is read from the session
// endpoint, authenticated by the ambient cookie.
func TestResolveFromSessionEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Cookie"); got != "sid=abc; _account=ws-7" {
			t.Errorf("Cookie header = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"accessToken":"session-token","user":{"name":"someone"}}`)
	}))
	defer server.Close()

	resolver := &SessionResolver{
		SessionURL: server.URL,
		Cookie:     "sid=abc; _account=ws-7",
	}
	cred, err := resolver.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if cred.BearerToken != "session-token" {
		t.Errorf("BearerToken = %q, expected session-token", cred.BearerToken)
	}
	if cred.WorkspaceAccountID != "ws-7" {
		t.Errorf("WorkspaceAccountID = %q, expected ws-7", cred.WorkspaceAccountID)
	}
	if !cred.IsWorkspace() {
		t.Error("IsWorkspace() = false, expected true")
	}
}

// TestResolvePersonalAccount verifies workspace detection is absent without
// the _account cookie.
func TestResolvePersonalAccount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"accessToken":"tok"}`)
	}))
	defer server.Close()

	resolver := &SessionResolver{SessionURL: server.URL, Cookie: "sid=abc"}
	cred, err := resolver.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if cred.IsWorkspace() {
		t.Errorf("IsWorkspace() = true for personal account, WorkspaceAccountID = %q", cred.WorkspaceAccountID)
	}
}

// TestResolveDirectToken verifies a supplied token bypasses the endpoint.
func TestResolveDirectToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("session endpoint should not be contacted when a token is supplied")
	}))
	defer server.Close()

	resolver := &SessionResolver{
		SessionURL: server.URL,
		Token:      " direct-token ",
		Cookie:     "_account=ws-9",
	}
	cred, err := resolver.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if cred.BearerToken != "direct-token" {
		t.Errorf("BearerToken = %q, expected direct-token", cred.BearerToken)
	}
	if cred.WorkspaceAccountID != "ws-9" {
		t.Errorf("WorkspaceAccountID = %q, expected ws-9", cred.WorkspaceAccountID)
	}
}

// TestResolveNotLoggedIn covers the failure shapes that all mean the same
// thing: there is no usable session.
func TestResolveNotLoggedIn(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "unauthorized",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
		},
		{
			name: "empty session",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{}`)
			},
		},
		{
			name: "blank token",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"accessToken":""}`)
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(tc.handler)
			defer server.Close()

			resolver := &SessionResolver{SessionURL: server.URL}
			_, err := resolver.Resolve(context.Background())
			if !errors.Is(err, ErrNotLoggedIn) {
				t.Fatalf("err = %v, expected ErrNotLoggedIn", err)
			}
		})
	}
}

// TestResolveUnreachable verifies an unreachable endpoint maps to
// ErrNotLoggedIn rather than a bare transport error.
func TestResolveUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // deliberately closed

	resolver := &SessionResolver{SessionURL: server.URL}
	_, err := resolver.Resolve(context.Background())
	if !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("err = %v, expected ErrNotLoggedIn", err)
	}
}

func TestWorkspaceAccountID(t *testing.T) {
	tests := []struct {
		cookie   string
		expected string
	}{
		{"", ""},
		{"sid=abc", ""},
		{"_account=team-1", "team-1"},
		{"sid=abc; _account=team-2; theme=dark", "team-2"},
		{"sid=abc;_account= team-3 ", "team-3"},
	}

	for _, tc := range tests {
		if got := workspaceAccountID(tc.cookie); got != tc.expected {
			t.Errorf("workspaceAccountID(%q) = %q, expected %q", tc.cookie, got, tc.expected)
		}
	}
}
