// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history records completed export runs in a local SQLite database
// so past runs can be listed without re-reading archives. The store is
// advisory: a history failure never fails an export.
package history
