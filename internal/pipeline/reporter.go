// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package pipeline

// =============================================================================
// RUN PHASES
// =============================================================================

// Phase is the coarse state of an export run. Transitions are strictly
// forward: Idle, Authenticating, Listing, Downloading, Packaging, optionally
// Attachments, then Done. Error is terminal from any phase.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAuthenticating
	PhaseListing
	PhaseDownloading
	PhasePackaging
	PhaseAttachments
	PhaseDone
	PhaseError
)

// String returns the phase name for logs.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAuthenticating:
		return "authenticating"
	case PhaseListing:
		return "listing"
	case PhaseDownloading:
		return "downloading"
	case PhasePackaging:
		return "packaging"
	case PhaseAttachments:
		return "attachments"
	case PhaseDone:
		return "done"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// Terminal reports whether the run is finished in this phase.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseError
}

// =============================================================================
// REPORTER
// =============================================================================

// Reporter receives run progress. It is a one-way push sink: the pipeline
// never reads reporter state or return values. Implementations render it
// however they like (console, JSON log, test recorder); the pipeline calls
// them from a single goroutine in order, so implementations need no
// locking.
type Reporter interface {
	// Status announces a phase change with a human-readable text.
	Status(phase Phase, text string)

	// Progress reports item-level position within the current phase.
	Progress(current, total int)

	// Log emits a free-form line. isError marks per-item failures.
	Log(text string, isError bool)

	// Stats pushes the running counters; counts only ever grow within a
	// run.
	Stats(stats RunStats)

	// Done delivers the final counters when the run completes.
	Done(stats RunStats)

	// Error delivers the terminal failure when the run aborts.
	Error(text string)
}

// NullReporter discards all progress. Useful as a default and in tests.
type NullReporter struct{}

func (NullReporter) Status(Phase, string) {}
func (NullReporter) Progress(int, int)    {}
func (NullReporter) Log(string, bool)     {}
func (NullReporter) Stats(RunStats)       {}
func (NullReporter) Done(RunStats)        {}
func (NullReporter) Error(string)         {}
