// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete chatgpt-export configuration.
//
// The pipeline receives this struct by value at construction time and never
// mutates it; a run's behavior is fully determined by the Config it started
// with.
type Config struct {
	Version string `toml:"version"`

	// API contains remote endpoint and request pacing configuration.
	API APIConfig `toml:"api"`

	// Export contains archive and output configuration.
	Export ExportConfig `toml:"export"`

	// Auth contains session material supplied by the host environment.
	Auth AuthConfig `toml:"auth"`

	// History contains run-history database configuration.
	History HistoryConfig `toml:"history"`
}

// APIConfig contains the remote API surface and the request pacing knobs.
// The delays exist to avoid triggering rate limits proactively; the retry
// and backoff bounds govern what happens once the service throttles anyway.
type APIConfig struct {
	// BaseURL is the private backend API root.
	BaseURL string `toml:"base_url"`
	// SessionURL is the session endpoint used to resolve the bearer token.
	SessionURL string `toml:"session_url"`
	// PageSize is the conversation listing page size.
	PageSize int `toml:"page_size"`
	// MaxRetries bounds rate-limited retries per request.
	MaxRetries int `toml:"max_retries"`
	// InitialBackoffMs is the first backoff wait after a 429 without a
	// retry-after header.
	InitialBackoffMs int `toml:"initial_backoff_ms"`
	// MaxBackoffMs caps the doubled backoff wait.
	MaxBackoffMs int `toml:"max_backoff_ms"`
	// DelayPagesMs is the fixed wait between listing page requests.
	DelayPagesMs int `toml:"delay_pages_ms"`
	// DelayFetchesMs is the fixed wait between per-conversation fetches.
	DelayFetchesMs int `toml:"delay_fetches_ms"`
	// DelayAttachmentsMs is the fixed wait between attachment downloads.
	DelayAttachmentsMs int `toml:"delay_attachments_ms"`
}

// ExportConfig contains archive assembly and output configuration.
type ExportConfig struct {
	// OutputDir is where the archive (and attachments) are written.
	OutputDir string `toml:"output_dir"`
	// IncludeArchived walks the archived collection after the active one.
	IncludeArchived bool `toml:"include_archived"`
	// IncludeAttachments runs the secondary attachment-download pass.
	IncludeAttachments bool `toml:"include_attachments"`
	// SourceLabel identifies the exporter build inside the archive.
	SourceLabel string `toml:"source_label"`
}

// AuthConfig carries session material. The bearer token is resolved from the
// session endpoint at run time; a token configured here bypasses that call.
// Neither value is ever written back to disk by the tool.
type AuthConfig struct {
	// Token is an already-established bearer token (optional).
	Token string `toml:"token"`
	// Cookie is the ambient cookie header for the session endpoint and
	// workspace detection (the _account cookie).
	Cookie string `toml:"cookie"`
}

// HistoryConfig contains the run-history database settings.
type HistoryConfig struct {
	// Enabled records a summary row per export run.
	Enabled bool `toml:"enabled"`
	// Path is the SQLite database path (empty = ~/.chatgpt-export/history.db).
	Path string `toml:"path"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values. The pacing and
// backoff numbers are tuned to what the service tolerates without throttling.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		API: APIConfig{
			BaseURL:            "https://chatgpt.com/backend-api",
			SessionURL:         "https://chatgpt.com/api/auth/session",
			PageSize:           100,
			MaxRetries:         5,
			InitialBackoffMs:   500,
			MaxBackoffMs:       10000,
			DelayPagesMs:       300,
			DelayFetchesMs:     800,
			DelayAttachmentsMs: 500,
		},

		Export: ExportConfig{
			OutputDir:          ".",
			IncludeArchived:    true,
			IncludeAttachments: false,
			SourceLabel:        "chatgpt-export (github.com/jeranaias/chatgpt-export)",
		},

		History: HistoryConfig{
			Enabled: true,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the chatgpt-export configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".chatgpt-export"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// HistoryPath returns the effective run-history database path.
func (c *Config) HistoryPath() (string, error) {
	if c.History.Path != "" {
		return c.History.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}

// ensureSecurePermissions checks and fixes permissions on the config file.
// SECURITY: Config files should be 0600 (owner read/write only) because the
// auth section may contain a bearer token or session cookie.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the default config file, falling back to
// defaults when no file exists. Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(path); statErr != nil {
		cfg := Default()
		cfg.ApplyEnvOverrides()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
		return cfg, nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific TOML file with full
// validation.
func LoadFromPath(path string) (*Config, error) {
	if err := ensureSecurePermissions(path); err != nil {
		// Permissions might not be fixable on all systems; warn and continue.
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode TOML file: %w", err)
	}

	cfg.fillDefaults()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// fillDefaults fills in any missing values with defaults. Zero is not a
// meaningful value for any pacing or retry knob, so zeros are treated as
// unset.
func (c *Config) fillDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = defaults.API.BaseURL
	}
	if c.API.SessionURL == "" {
		c.API.SessionURL = defaults.API.SessionURL
	}
	if c.API.PageSize == 0 {
		c.API.PageSize = defaults.API.PageSize
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = defaults.API.MaxRetries
	}
	if c.API.InitialBackoffMs == 0 {
		c.API.InitialBackoffMs = defaults.API.InitialBackoffMs
	}
	if c.API.MaxBackoffMs == 0 {
		c.API.MaxBackoffMs = defaults.API.MaxBackoffMs
	}
	if c.API.DelayPagesMs == 0 {
		c.API.DelayPagesMs = defaults.API.DelayPagesMs
	}
	if c.API.DelayFetchesMs == 0 {
		c.API.DelayFetchesMs = defaults.API.DelayFetchesMs
	}
	if c.API.DelayAttachmentsMs == 0 {
		c.API.DelayAttachmentsMs = defaults.API.DelayAttachmentsMs
	}
	if c.Export.OutputDir == "" {
		c.Export.OutputDir = defaults.Export.OutputDir
	}
	if c.Export.SourceLabel == "" {
		c.Export.SourceLabel = defaults.Export.SourceLabel
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - CHATGPT_EXPORT_TOKEN: overrides auth.token
//   - CHATGPT_EXPORT_COOKIE: overrides auth.cookie
//   - CHATGPT_EXPORT_BASE_URL: overrides api.base_url
//   - CHATGPT_EXPORT_SESSION_URL: overrides api.session_url
//   - CHATGPT_EXPORT_OUTPUT_DIR: overrides export.output_dir
//   - CHATGPT_EXPORT_ARCHIVED: "0"/"false" skips the archived collection
//   - CHATGPT_EXPORT_ATTACHMENTS: "1"/"true" enables the attachment pass
func (c *Config) ApplyEnvOverrides() {
	if token := os.Getenv("CHATGPT_EXPORT_TOKEN"); token != "" {
		c.Auth.Token = token
	}
	if cookie := os.Getenv("CHATGPT_EXPORT_COOKIE"); cookie != "" {
		c.Auth.Cookie = cookie
	}
	if base := os.Getenv("CHATGPT_EXPORT_BASE_URL"); base != "" {
		c.API.BaseURL = base
	}
	if session := os.Getenv("CHATGPT_EXPORT_SESSION_URL"); session != "" {
		c.API.SessionURL = session
	}
	if dir := os.Getenv("CHATGPT_EXPORT_OUTPUT_DIR"); dir != "" {
		c.Export.OutputDir = dir
	}
	if v := os.Getenv("CHATGPT_EXPORT_ARCHIVED"); v != "" {
		c.Export.IncludeArchived = parseBool(v)
	}
	if v := os.Getenv("CHATGPT_EXPORT_ATTACHMENTS"); v != "" {
		c.Export.IncludeAttachments = parseBool(v)
	}
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	for field, raw := range map[string]string{
		"api.base_url":    c.API.BaseURL,
		"api.session_url": c.API.SessionURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("invalid URL %q", raw),
			})
		}
	}

	if c.API.PageSize < 1 || c.API.PageSize > 100 {
		errs = append(errs, ValidationError{
			Field:   "api.page_size",
			Message: fmt.Sprintf("must be 1-100 (server limit), got %d", c.API.PageSize),
		})
	}
	if c.API.MaxRetries < 1 || c.API.MaxRetries > 20 {
		errs = append(errs, ValidationError{
			Field:   "api.max_retries",
			Message: fmt.Sprintf("must be 1-20, got %d", c.API.MaxRetries),
		})
	}
	if c.API.InitialBackoffMs < 1 {
		errs = append(errs, ValidationError{
			Field:   "api.initial_backoff_ms",
			Message: "must be positive",
		})
	}
	if c.API.MaxBackoffMs < c.API.InitialBackoffMs {
		errs = append(errs, ValidationError{
			Field:   "api.max_backoff_ms",
			Message: fmt.Sprintf("must be >= initial_backoff_ms (%d), got %d", c.API.InitialBackoffMs, c.API.MaxBackoffMs),
		})
	}
	for field, v := range map[string]int{
		"api.delay_pages_ms":       c.API.DelayPagesMs,
		"api.delay_fetches_ms":     c.API.DelayFetchesMs,
		"api.delay_attachments_ms": c.API.DelayAttachmentsMs,
	} {
		if v < 0 {
			errs = append(errs, ValidationError{Field: field, Message: "must be non-negative"})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// DURATION HELPERS
// =============================================================================

// InitialBackoff returns the initial backoff wait as a time.Duration.
func (c *APIConfig) InitialBackoff() time.Duration {
	return time.Duration(c.InitialBackoffMs) * time.Millisecond
}

// MaxBackoff returns the maximum backoff wait as a time.Duration.
func (c *APIConfig) MaxBackoff() time.Duration {
	return time.Duration(c.MaxBackoffMs) * time.Millisecond
}

// DelayPages returns the inter-page wait as a time.Duration.
func (c *APIConfig) DelayPages() time.Duration {
	return time.Duration(c.DelayPagesMs) * time.Millisecond
}

// DelayFetches returns the inter-conversation wait as a time.Duration.
func (c *APIConfig) DelayFetches() time.Duration {
	return time.Duration(c.DelayFetchesMs) * time.Millisecond
}

// DelayAttachments returns the inter-attachment wait as a time.Duration.
func (c *APIConfig) DelayAttachments() time.Duration {
	return time.Duration(c.DelayAttachmentsMs) * time.Millisecond
}

// String returns a string representation of the config for debugging.
// SECURITY: Redacts the token and cookie so session material never appears
// in logs or error output.
func (c *Config) String() string {
	safe := *c
	if safe.Auth.Token != "" {
		safe.Auth.Token = "[REDACTED]"
	}
	if safe.Auth.Cookie != "" {
		safe.Auth.Cookie = "[REDACTED]"
	}
	return fmt.Sprintf("%+v", safe)
}
