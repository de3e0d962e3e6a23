// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package pipeline

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/chatgpt-export/internal/api"
)

// listClient is the slice of the API client the lister needs.
type listClient interface {
	ListConversationsPage(ctx context.Context, offset, limit int, archived bool) ([]api.ConversationSummary, error)
}

// Lister walks a conversation collection page by page until it is
// exhausted. Both the active and the archived collection are walked to the
// end; stopping after the first page would silently truncate the export.
type Lister struct {
	client   listClient
	pageSize int
	limiter  *rate.Limiter
}

// NewLister returns a lister that requests pages of pageSize and waits
// delay between successive page requests.
func NewLister(client listClient, pageSize int, delay time.Duration) *Lister {
	return &Lister{
		client:   client,
		pageSize: pageSize,
		limiter:  rate.NewLimiter(rate.Every(delay), 1),
	}
}

// ListAll returns every conversation summary in the collection, in server
// order. Any page failure is fatal: a partial inventory would make the
// export silently incomplete.
func (l *Lister) ListAll(ctx context.Context, archived bool) ([]api.ConversationSummary, error) {
	var all []api.ConversationSummary
	offset := 0
	for {
		if err := l.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		items, err := l.client.ListConversationsPage(ctx, offset, l.pageSize, archived)
		if err != nil {
			return nil, fmt.Errorf("failed to list conversations at offset %d: %w", offset, err)
		}
		all = append(all, items...)
		// A short or empty page is the end of the collection.
		if len(items) < l.pageSize {
			return all, nil
		}
		offset += l.pageSize
	}
}
