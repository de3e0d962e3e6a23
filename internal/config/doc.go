// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for
// chatgpt-export.
//
// Configuration is an explicit, immutable struct handed to the pipeline
// constructor. There is no module-level state: callers load a Config once
// and pass it down.
//
// Configuration file location:
//   - ~/.chatgpt-export/config.toml
//   - Built-in defaults when no file exists
//
// Environment variables override file values (see ApplyEnvOverrides).
package config
