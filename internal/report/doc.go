// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package report renders export run progress. Two sinks are provided: a
// styled console reporter for interactive use and a structured JSON
// reporter for scripted runs and log collection. Both implement
// pipeline.Reporter.
package report
