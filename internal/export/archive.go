// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"fmt"
	"time"
)

// =============================================================================
// ARCHIVE DOCUMENT
// =============================================================================

// ConversationRecord is one entry of the archive's conversations list.
// Exactly one of Conversation or Error is set: a record either carries the
// full conversation document or the failure message that replaced it. The
// archive keeps both shapes so an export is complete even under partial
// failure.
//
// Timestamps and the conversation document pass through as raw JSON; the
// exporter does not interpret conversation content.
type ConversationRecord struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	CreateTime   json.RawMessage `json:"create_time,omitempty"`
	UpdateTime   json.RawMessage `json:"update_time,omitempty"`
	Conversation json.RawMessage `json:"conversation,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// Failed reports whether this record carries an error instead of content.
func (r ConversationRecord) Failed() bool {
	return r.Error != ""
}

// RecordError is one entry of the archive's error list. The message is the
// per-item failure preserved verbatim for offline diagnostics.
type RecordError struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Error string `json:"error"`
}

// AttachmentRef is a discovered pointer to a remote file, keyed by
// attachment id in the archive's attachment map. It identifies the file and
// where it was first seen; the bytes themselves are fetched, if at all, by
// the optional download pass.
type AttachmentRef struct {
	Name              string `json:"name"`
	ConversationID    string `json:"conversationId"`
	ConversationTitle string `json:"conversationTitle,omitempty"`
}

// Archive is the export document. The field set and JSON names are a fixed
// compatibility surface; conversations keep discovery order (active before
// archived, pages in server order) and the attachment map is keyed by
// attachment id with unique keys.
type Archive struct {
	ExportTime         time.Time                `json:"export_time"`
	Source             string                   `json:"source"`
	WorkspaceAccountID *string                  `json:"workspace_account_id"`
	ConversationCount  int                      `json:"conversation_count"`
	AttachmentCount    int                      `json:"attachment_count"`
	Errors             []RecordError            `json:"errors"`
	Attachments        map[string]AttachmentRef `json:"attachments"`
	Conversations      []ConversationRecord     `json:"conversations"`
}

// Marshal serializes the archive. The output is byte-deterministic for
// identical input: field order is fixed by the struct, list order is
// preserved, and encoding/json emits map keys sorted.
func (a *Archive) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize archive: %w", err)
	}
	return data, nil
}

// Filename returns the suggested archive filename for the given export time.
func Filename(t time.Time) string {
	return "chatgpt-export-" + t.Format("2006-01-02") + ".json"
}

// =============================================================================
// ASSEMBLER
// =============================================================================

// Assembler accumulates per-conversation results and the deduplicated
// attachment index for one run. It performs no I/O; the pipeline feeds it
// and calls Finalize exactly once after the last conversation.
type Assembler struct {
	source      string
	workspaceID string

	records     []ConversationRecord
	errors      []RecordError
	attachments map[string]AttachmentRef
	attachOrder []string
	seen        map[string]bool

	// now is the clock used to stamp export_time; injectable for tests.
	now func() time.Time
}

// NewAssembler creates an assembler for one run. workspaceID may be empty
// for personal accounts; it serializes as null.
func NewAssembler(source, workspaceID string) *Assembler {
	return &Assembler{
		source:      source,
		workspaceID: workspaceID,
		records:     []ConversationRecord{},
		errors:      []RecordError{},
		attachments: make(map[string]AttachmentRef),
		seen:        make(map[string]bool),
		now:         time.Now,
	}
}

// WithClock replaces the export-time clock. Test hook.
func (a *Assembler) WithClock(now func() time.Time) *Assembler {
	a.now = now
	return a
}

// Append adds one conversation record in discovery order. An error-shaped
// record is additionally indexed in the archive's error list. A conversation
// id is accepted at most once; duplicates are dropped.
func (a *Assembler) Append(rec ConversationRecord) {
	if a.seen[rec.ID] {
		return
	}
	a.seen[rec.ID] = true

	a.records = append(a.records, rec)
	if rec.Failed() {
		a.errors = append(a.errors, RecordError{ID: rec.ID, Title: rec.Title, Error: rec.Error})
	}
}

// AddAttachment registers an attachment reference. The first registration
// for a given id wins and is never overwritten; a file referenced from
// multiple conversations appears once, under the name it was first seen
// with. Reports whether the id was new.
func (a *Assembler) AddAttachment(id string, ref AttachmentRef) bool {
	if id == "" {
		return false
	}
	if _, exists := a.attachments[id]; exists {
		return false
	}
	a.attachments[id] = ref
	a.attachOrder = append(a.attachOrder, id)
	return true
}

// AttachmentIDs returns the attachment ids in discovery order. The download
// pass walks this list.
func (a *Assembler) AttachmentIDs() []string {
	ids := make([]string, len(a.attachOrder))
	copy(ids, a.attachOrder)
	return ids
}

// Attachment returns the reference registered for id.
func (a *Assembler) Attachment(id string) (AttachmentRef, bool) {
	ref, ok := a.attachments[id]
	return ref, ok
}

// Counts returns the current conversation, attachment, and error counts.
func (a *Assembler) Counts() (conversations, attachments, errs int) {
	return len(a.records), len(a.attachments), len(a.errors)
}

// Finalize computes the summary counts from the accumulated collections and
// stamps the current time. The returned archive shares no mutable state
// obligations with the assembler: finalizing again without intervening
// appends yields an identical document except for export_time.
func (a *Assembler) Finalize() *Archive {
	var workspace *string
	if a.workspaceID != "" {
		id := a.workspaceID
		workspace = &id
	}

	conversations := make([]ConversationRecord, len(a.records))
	copy(conversations, a.records)
	errs := make([]RecordError, len(a.errors))
	copy(errs, a.errors)
	attachments := make(map[string]AttachmentRef, len(a.attachments))
	for id, ref := range a.attachments {
		attachments[id] = ref
	}

	return &Archive{
		ExportTime:         a.now().UTC(),
		Source:             a.source,
		WorkspaceAccountID: workspace,
		ConversationCount:  len(conversations),
		AttachmentCount:    len(attachments),
		Errors:             errs,
		Attachments:        attachments,
		Conversations:      conversations,
	}
}
