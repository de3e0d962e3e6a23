// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package pipeline

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/chatgpt-export/internal/api"
	"github.com/jeranaias/chatgpt-export/internal/export"
)

// assetPointerPrefix marks file references embedded in message content
// parts. The attachment id is everything after the prefix.
const assetPointerPrefix = "file-service://"

// fetchClient is the slice of the API client the fetcher needs.
type fetchClient interface {
	FetchConversation(ctx context.Context, id string) (json.RawMessage, error)
}

// Fetcher retrieves individual conversation bodies and turns each result,
// success or failure, into an archive record.
type Fetcher struct {
	client  fetchClient
	limiter *rate.Limiter
}

// NewFetcher returns a fetcher that waits delay between successive
// conversation requests.
func NewFetcher(client fetchClient, delay time.Duration) *Fetcher {
	return &Fetcher{
		client:  client,
		limiter: rate.NewLimiter(rate.Every(delay), 1),
	}
}

// FetchOne retrieves a single conversation. An item-level failure does not
// fail the run: the failure message is captured in the returned record and
// the caller moves on. The returned error is non-nil only when the context
// is cancelled, which aborts the run.
func (f *Fetcher) FetchOne(ctx context.Context, summary api.ConversationSummary) (export.ConversationRecord, error) {
	rec := export.ConversationRecord{
		ID:         summary.ID,
		Title:      summary.Title,
		CreateTime: summary.CreateTime,
		UpdateTime: summary.UpdateTime,
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return rec, err
	}
	body, err := f.client.FetchConversation(ctx, summary.ID)
	if err != nil {
		if ctx.Err() != nil {
			return rec, ctx.Err()
		}
		// A failure entry serializes as exactly {id,title,error}; the
		// timestamps belong to content-bearing records only.
		rec.CreateTime = nil
		rec.UpdateTime = nil
		rec.Error = err.Error()
		return rec, nil
	}
	rec.Conversation = body
	return rec, nil
}

// =============================================================================
// ATTACHMENT EXTRACTION
// =============================================================================

// conversationMapping is the subset of a conversation document needed to
// discover attachment references: the message graph keyed by node id.
type conversationMapping struct {
	Mapping map[string]mappingNode `json:"mapping"`
}

type mappingNode struct {
	Message *nodeMessage `json:"message"`
}

type nodeMessage struct {
	Metadata nodeMetadata `json:"metadata"`
	Content  nodeContent  `json:"content"`
}

type nodeMetadata struct {
	Attachments []metaAttachment `json:"attachments"`
}

type metaAttachment struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type nodeContent struct {
	// Parts mixes plain strings with structured objects; each part is
	// decoded individually so unknown shapes are skipped, not fatal.
	Parts []json.RawMessage `json:"parts"`
}

type assetPart struct {
	AssetPointer string `json:"asset_pointer"`
}

// ExtractAttachments scans a successful record's conversation document for
// attachment references and registers each with the assembler. References
// come from two places: explicit metadata attachment lists, which carry a
// display name, and asset pointers inside content parts, which only carry
// the id. A malformed or absent mapping yields zero references, never an
// error.
func ExtractAttachments(rec export.ConversationRecord, asm *export.Assembler) int {
	if rec.Failed() || len(rec.Conversation) == 0 {
		return 0
	}
	var doc conversationMapping
	if err := json.Unmarshal(rec.Conversation, &doc); err != nil {
		return 0
	}

	// Node visit order must be stable so the name surviving the dedup is
	// the same on every run; Go map iteration is randomized.
	nodeIDs := make([]string, 0, len(doc.Mapping))
	for id := range doc.Mapping {
		nodeIDs = append(nodeIDs, id)
	}
	sort.Strings(nodeIDs)

	// Metadata lists are scanned before asset pointers so that when both
	// reference the same file, the named entry wins the dedup.
	added := 0
	for _, nodeID := range nodeIDs {
		node := doc.Mapping[nodeID]
		if node.Message == nil {
			continue
		}
		for _, att := range node.Message.Metadata.Attachments {
			if att.ID == "" {
				continue
			}
			name := att.Name
			if name == "" {
				name = att.ID
			}
			if asm.AddAttachment(att.ID, export.AttachmentRef{
				Name:              name,
				ConversationID:    rec.ID,
				ConversationTitle: rec.Title,
			}) {
				added++
			}
		}
	}
	for _, nodeID := range nodeIDs {
		node := doc.Mapping[nodeID]
		if node.Message == nil {
			continue
		}
		for _, part := range node.Message.Content.Parts {
			var ap assetPart
			if err := json.Unmarshal(part, &ap); err != nil {
				continue
			}
			if !strings.HasPrefix(ap.AssetPointer, assetPointerPrefix) {
				continue
			}
			id := strings.TrimPrefix(ap.AssetPointer, assetPointerPrefix)
			if id == "" {
				continue
			}
			if asm.AddAttachment(id, export.AttachmentRef{
				Name:              id,
				ConversationID:    rec.ID,
				ConversationTitle: rec.Title,
			}) {
				added++
			}
		}
	}
	return added
}
