// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides utility functions for the chatgpt-export tool.
//
// This package contains common helper functions used throughout the
// application for string handling and file operations.
//
// # Key Functions
//
// String Utilities:
//   - TruncateRunes: UTF-8 safe string truncation with ellipsis
//   - SanitizeFilename: turns arbitrary display names into safe filenames
//
// File Operations:
//   - AtomicWriteFile: Crash-safe file writing with fsync
package util
