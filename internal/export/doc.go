// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export assembles per-conversation results into the single
// self-describing archive document that is the tool's only persisted
// artifact.
//
// The Assembler is pure accumulation: no network, no disk. Records and
// attachment references stream in during the run; Finalize computes the
// summary counts and stamps the export time. Serialization is a pure
// function of the Archive value and is byte-deterministic for identical
// input, so repeated finalization differs only in the timestamp.
//
// The archive JSON schema is a compatibility surface shared with other
// export tooling and must not change shape.
package export
