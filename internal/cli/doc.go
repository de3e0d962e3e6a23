// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli parses command-line arguments for the exporter and provides
// the interactive credential prompt. Command handlers live in main; this
// package only decides what to run and with which options.
package cli
