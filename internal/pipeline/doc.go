// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package pipeline orchestrates one export run end to end: resolve the
// session, list every conversation page, fetch each conversation body,
// index attachment references, assemble the archive document, and
// optionally download the referenced files.
//
// The run is strictly sequential. Pacing between requests is enforced with
// rate limiters so a run never hammers the backend, and every wait is
// context-aware so cancellation takes effect mid-run.
//
// Failure policy: a failure while listing aborts the run (the inventory
// would be incomplete and the gap invisible); a failure on an individual
// conversation or attachment is recorded in the archive and the run
// continues.
package pipeline
