// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package pipeline

import "time"

// RunStats summarizes one export run for the final report and the run
// history store.
type RunStats struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time

	Conversations int // records in the archive, including failed ones
	Errors        int // per-conversation failures recorded in the archive
	Attachments   int // unique attachment references discovered

	AttachmentsDownloaded int
	AttachmentsFailed     int

	ArchiveBytes int
	ArchivePath  string
}

// Duration returns the wall-clock length of the run.
func (s RunStats) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}
