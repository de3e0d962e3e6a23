// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import "encoding/json"

// ConversationSummary is one entry of the conversation listing. Timestamps
// pass through as raw JSON: the service has emitted both ISO strings and
// epoch floats for these fields over time, and the archive preserves
// whichever form the server returned.
type ConversationSummary struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	CreateTime json.RawMessage `json:"create_time,omitempty"`
	UpdateTime json.RawMessage `json:"update_time,omitempty"`
}

// conversationsPage is the response body of the listing endpoint.
type conversationsPage struct {
	Items []ConversationSummary `json:"items"`
}

// fileDownloadDescriptor is the JSON body the file-download endpoint returns
// when it does not serve the bytes directly.
type fileDownloadDescriptor struct {
	DownloadURL string `json:"download_url"`
}
