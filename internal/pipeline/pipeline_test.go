// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/chatgpt-export/internal/config"
)

// recordingReporter captures reporter calls for assertions.
type recordingReporter struct {
	phases []Phase
	texts  []string
	logs   []string
	errs   []string
	stats  []RunStats
	done   []RunStats
	fatal  []string
}

func (r *recordingReporter) Status(phase Phase, text string) {
	if len(r.phases) == 0 || r.phases[len(r.phases)-1] != phase {
		r.phases = append(r.phases, phase)
	}
	r.texts = append(r.texts, text)
}

func (r *recordingReporter) Progress(int, int) {}

func (r *recordingReporter) Log(text string, isError bool) {
	if isError {
		r.errs = append(r.errs, text)
	} else {
		r.logs = append(r.logs, text)
	}
}

func (r *recordingReporter) Stats(stats RunStats) { r.stats = append(r.stats, stats) }
func (r *recordingReporter) Done(stats RunStats)  { r.done = append(r.done, stats) }
func (r *recordingReporter) Error(text string)    { r.fatal = append(r.fatal, text) }

// memorySink collects saved attachments in memory.
type memorySink struct {
	saved map[string][]byte
}

func (m *memorySink) SaveAttachment(id, name string, data []byte) (string, error) {
	if m.saved == nil {
		m.saved = make(map[string][]byte)
	}
	m.saved[id] = data
	return name, nil
}

// newBackend builds a fake service with total active conversations. Ids in
// failIDs answer HTTP 500 on fetch. Conversation conv-000 carries one
// attachment reference.
func newBackend(t *testing.T, total int, failIDs map[string]bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/api/auth/session", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"accessToken":"test-token","user":{"email":"u@example.com"}}`)
	})

	mux.HandleFunc("/backend-api/conversations", func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if r.URL.Query().Get("is_archived") == "true" {
			fmt.Fprint(w, `{"items":[],"total":0}`)
			return
		}
		var items []map[string]interface{}
		for i := offset; i < offset+limit && i < total; i++ {
			items = append(items, map[string]interface{}{
				"id":          fmt.Sprintf("conv-%03d", i),
				"title":       fmt.Sprintf("Conversation %d", i),
				"create_time": 1714000000 + float64(i),
			})
		}
		if items == nil {
			items = []map[string]interface{}{}
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"items": items, "total": total})
	})

	mux.HandleFunc("/backend-api/conversation/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/backend-api/conversation/")
		if failIDs[id] {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		mapping := `{}`
		if id == "conv-000" {
			mapping = `{"n1":{"message":{"metadata":{"attachments":[{"id":"file-001","name":"notes.txt"}]},"content":{"parts":[]}}}}`
		}
		fmt.Fprintf(w, `{"title":"full %s","mapping":%s}`, id, mapping)
	})

	mux.HandleFunc("/backend-api/files/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte("file bytes"))
	})

	return httptest.NewServer(mux)
}

func testConfig(server *httptest.Server) *config.Config {
	cfg := config.Default()
	cfg.API.BaseURL = server.URL + "/backend-api"
	cfg.API.SessionURL = server.URL + "/api/auth/session"
	cfg.API.DelayPagesMs = 0
	cfg.API.DelayFetchesMs = 0
	cfg.API.DelayAttachmentsMs = 0
	cfg.Export.IncludeArchived = true
	cfg.Auth.Cookie = "sess=abc"
	return cfg
}

func TestRunFullExport(t *testing.T) {
	server := newBackend(t, 137, nil)
	defer server.Close()

	rep := &recordingReporter{}
	p := New(testConfig(server), rep)

	result, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 137, result.Archive.ConversationCount)
	assert.Empty(t, result.Archive.Errors)
	assert.Len(t, result.Archive.Conversations, 137)
	assert.Equal(t, 1, result.Archive.AttachmentCount)
	assert.Equal(t, "notes.txt", result.Archive.Attachments["file-001"].Name)
	assert.Nil(t, result.Archive.WorkspaceAccountID)

	// Phase order is strictly forward and ends at Done.
	assert.Equal(t, []Phase{
		PhaseAuthenticating, PhaseListing, PhaseDownloading, PhasePackaging, PhaseDone,
	}, rep.phases)
	assert.Contains(t, rep.texts, "Authenticating...")
	assert.Contains(t, rep.texts, "Listing Conversations...")
	assert.Contains(t, rep.texts, "Downloading 137/137...")
	assert.Contains(t, rep.texts, "Export Complete!")
	assert.Contains(t, rep.logs, "Found 137 conversations")

	sizeLogged := false
	for _, line := range rep.logs {
		if strings.HasPrefix(line, "Export size: ~") && strings.HasSuffix(line, " MB") {
			sizeLogged = true
		}
	}
	assert.True(t, sizeLogged, "size line in MB missing: %v", rep.logs)

	assert.Equal(t, 137, result.Stats.Conversations)
	assert.Equal(t, 0, result.Stats.Errors)
	assert.NotEmpty(t, result.Stats.RunID)
	assert.Equal(t, len(result.Data), result.Stats.ArchiveBytes)

	// Stats are pushed as counters grow and once more on completion.
	require.NotEmpty(t, rep.stats)
	assert.Equal(t, 137, rep.stats[0].Conversations)
	require.Len(t, rep.done, 1)
	assert.Equal(t, 137, rep.done[0].Conversations)
	assert.Empty(t, rep.fatal)

	// The serialized document parses back to the same counts.
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(result.Data, &doc))
	assert.Equal(t, float64(137), doc["conversation_count"])
	assert.Nil(t, doc["workspace_account_id"])
}

func TestRunPartialFailure(t *testing.T) {
	fail := map[string]bool{"conv-003": true, "conv-007": true}
	server := newBackend(t, 10, fail)
	defer server.Close()

	rep := &recordingReporter{}
	p := New(testConfig(server), rep)

	result, err := p.Run(context.Background())
	require.NoError(t, err, "item failures must not fail the run")

	assert.Equal(t, 10, result.Archive.ConversationCount)
	require.Len(t, result.Archive.Errors, 2)
	assert.Equal(t, "conv-003", result.Archive.Errors[0].ID)
	assert.Equal(t, "conv-007", result.Archive.Errors[1].ID)

	// All ten ids are present, failed ones as error records.
	failed := 0
	for _, rec := range result.Archive.Conversations {
		if rec.Failed() {
			failed++
			assert.True(t, fail[rec.ID])
		}
	}
	assert.Equal(t, 2, failed)
	assert.Len(t, rep.errs, 2)
	assert.Equal(t, 2, result.Stats.Errors)
}

func TestRunDownloadsAttachments(t *testing.T) {
	server := newBackend(t, 3, nil)
	defer server.Close()

	cfg := testConfig(server)
	cfg.Export.IncludeAttachments = true

	sink := &memorySink{}
	rep := &recordingReporter{}
	p := New(cfg, rep).WithAttachmentSink(sink)

	result, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Stats.AttachmentsDownloaded)
	assert.Equal(t, 0, result.Stats.AttachmentsFailed)
	assert.Equal(t, []byte("file bytes"), sink.saved["file-001"])
	assert.Contains(t, rep.texts, "Attachments 1/1...")
}

func TestRunSessionFailureIsFatal(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/session", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	rep := &recordingReporter{}
	p := New(testConfig(server), rep)

	_, err := p.Run(context.Background())
	require.Error(t, err)
	require.Len(t, rep.fatal, 1)
	assert.Empty(t, rep.done)
}

func TestRunListingFailureIsFatal(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/session", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"accessToken":"tok"}`)
	})
	mux.HandleFunc("/backend-api/conversations", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	rep := &recordingReporter{}
	p := New(testConfig(server), rep)

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "offset 0")
}

func TestRunWorkspaceAccount(t *testing.T) {
	server := newBackend(t, 1, nil)
	defer server.Close()

	cfg := testConfig(server)
	cfg.Auth.Cookie = "sess=abc; _account=team-42"

	result, err := New(cfg, nil).Run(context.Background())
	require.NoError(t, err)

	require.NotNil(t, result.Archive.WorkspaceAccountID)
	assert.Equal(t, "team-42", *result.Archive.WorkspaceAccountID)
}
