// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists export output to the local filesystem: the
// archive document and, when enabled, downloaded attachment files. Writes
// are atomic and filenames are sanitized for cross-platform safety.
package storage
