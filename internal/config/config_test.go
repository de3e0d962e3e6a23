// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "https://chatgpt.com/backend-api", cfg.API.BaseURL)
	assert.Equal(t, "https://chatgpt.com/api/auth/session", cfg.API.SessionURL)
	assert.Equal(t, 100, cfg.API.PageSize)
	assert.Equal(t, 5, cfg.API.MaxRetries)
	assert.Equal(t, 500, cfg.API.InitialBackoffMs)
	assert.Equal(t, 10000, cfg.API.MaxBackoffMs)
	assert.Equal(t, 300, cfg.API.DelayPagesMs)
	assert.Equal(t, 800, cfg.API.DelayFetchesMs)
	assert.Equal(t, 500, cfg.API.DelayAttachmentsMs)
	assert.True(t, cfg.Export.IncludeArchived)
	assert.False(t, cfg.Export.IncludeAttachments)

	require.NoError(t, cfg.Validate())
}

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := `
version = "1.0.0"

[api]
page_size = 50
delay_pages_ms = 100

[export]
output_dir = "/tmp/exports"
include_archived = false
include_attachments = true

[auth]
token = "test-bearer-token"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	// Explicit values win
	assert.Equal(t, 50, cfg.API.PageSize)
	assert.Equal(t, 100, cfg.API.DelayPagesMs)
	assert.Equal(t, "/tmp/exports", cfg.Export.OutputDir)
	assert.False(t, cfg.Export.IncludeArchived)
	assert.True(t, cfg.Export.IncludeAttachments)
	assert.Equal(t, "test-bearer-token", cfg.Auth.Token)

	// Missing values fall back to defaults
	assert.Equal(t, "https://chatgpt.com/backend-api", cfg.API.BaseURL)
	assert.Equal(t, 5, cfg.API.MaxRetries)
	assert.Equal(t, 800, cfg.API.DelayFetchesMs)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CHATGPT_EXPORT_TOKEN", "env-token")
	t.Setenv("CHATGPT_EXPORT_BASE_URL", "https://example.test/backend-api")
	t.Setenv("CHATGPT_EXPORT_ARCHIVED", "false")
	t.Setenv("CHATGPT_EXPORT_ATTACHMENTS", "1")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, "env-token", cfg.Auth.Token)
	assert.Equal(t, "https://example.test/backend-api", cfg.API.BaseURL)
	assert.False(t, cfg.Export.IncludeArchived)
	assert.True(t, cfg.Export.IncludeAttachments)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "bad base url",
			mutate:  func(c *Config) { c.API.BaseURL = "not a url" },
			wantErr: "api.base_url",
		},
		{
			name:    "page size too large",
			mutate:  func(c *Config) { c.API.PageSize = 500 },
			wantErr: "api.page_size",
		},
		{
			name:    "zero retries",
			mutate:  func(c *Config) { c.API.MaxRetries = 0; c.API.MaxRetries = -1 },
			wantErr: "api.max_retries",
		},
		{
			name:    "max backoff below initial",
			mutate:  func(c *Config) { c.API.MaxBackoffMs = 100 },
			wantErr: "api.max_backoff_ms",
		},
		{
			name:    "negative delay",
			mutate:  func(c *Config) { c.API.DelayFetchesMs = -1 },
			wantErr: "api.delay_fetches_ms",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 500*time.Millisecond, cfg.API.InitialBackoff())
	assert.Equal(t, 10*time.Second, cfg.API.MaxBackoff())
	assert.Equal(t, 300*time.Millisecond, cfg.API.DelayPages())
	assert.Equal(t, 800*time.Millisecond, cfg.API.DelayFetches())
	assert.Equal(t, 500*time.Millisecond, cfg.API.DelayAttachments())
}

func TestStringRedactsSecrets(t *testing.T) {
	cfg := Default()
	cfg.Auth.Token = "super-secret-bearer"
	cfg.Auth.Cookie = "_account=team-abc"

	s := cfg.String()
	assert.NotContains(t, s, "super-secret-bearer")
	assert.NotContains(t, s, "team-abc")
	assert.Contains(t, s, "[REDACTED]")
}
