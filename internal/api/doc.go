// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api implements the client side of the ChatGPT private backend API.
//
// The service exposes no export endpoint; everything the pipeline needs is
// assembled from three session-scoped, rate-limited calls:
//
//	GET /conversations?offset=&limit=&[is_archived=true]  -> {items: [...]}
//	GET /conversation/{id}                                -> full document
//	GET /files/{id}/download                              -> descriptor or bytes
//
// The package provides a SessionResolver that turns ambient session state
// into a Credential, and a Client whose retry policy is tuned to the
// service's rate-limit signaling: HTTP 429 is retried with retry-after aware
// exponential backoff, every other failure status is surfaced immediately.
package api
