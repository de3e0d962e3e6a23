// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/chatgpt-export/internal/api"
	"github.com/jeranaias/chatgpt-export/internal/config"
	"github.com/jeranaias/chatgpt-export/internal/export"
)

// Result is the outcome of a completed run: the assembled archive, its
// serialized bytes, and the run statistics.
type Result struct {
	Archive *export.Archive
	Data    []byte
	Stats   RunStats
}

// Pipeline drives one export run. Construct with New, optionally attach an
// attachment sink, then call Run once.
type Pipeline struct {
	cfg      *config.Config
	reporter Reporter
	sink     AttachmentSink

	// httpClient overrides the transport for every request when set.
	httpClient *http.Client
	now        func() time.Time
	runID      string
}

// New returns a pipeline for the given configuration. A nil reporter
// discards progress.
func New(cfg *config.Config, reporter Reporter) *Pipeline {
	if reporter == nil {
		reporter = NullReporter{}
	}
	return &Pipeline{
		cfg:      cfg,
		reporter: reporter,
		now:      time.Now,
	}
}

// WithAttachmentSink enables the attachment download pass, persisting files
// through sink. Without a sink the pass is skipped even when configured on.
func (p *Pipeline) WithAttachmentSink(sink AttachmentSink) *Pipeline {
	p.sink = sink
	return p
}

// WithHTTPClient sets the underlying HTTP client for session resolution and
// API calls.
func (p *Pipeline) WithHTTPClient(hc *http.Client) *Pipeline {
	p.httpClient = hc
	return p
}

// WithClock overrides the time source.
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.now = now
	return p
}

// WithRunID fixes the run id instead of generating one, so callers can tag
// their own reporting with it.
func (p *Pipeline) WithRunID(id string) *Pipeline {
	p.runID = id
	return p
}

// Run executes the export end to end and returns the assembled archive.
// It is fatal-on-infrastructure, tolerant-on-items: session and listing
// failures return an error, per-conversation and per-attachment failures
// are recorded and the run continues.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	runID := p.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	stats := RunStats{
		RunID:     runID,
		StartedAt: p.now().UTC(),
	}

	// --- Authenticate -------------------------------------------------
	p.reporter.Status(PhaseAuthenticating, "Authenticating...")
	resolver := &api.SessionResolver{
		SessionURL: p.cfg.API.SessionURL,
		Cookie:     p.cfg.Auth.Cookie,
		Token:      p.cfg.Auth.Token,
		HTTPClient: p.httpClient,
	}
	cred, err := resolver.Resolve(ctx)
	if err != nil {
		p.reporter.Error(err.Error())
		return nil, err
	}

	client := api.NewClient(p.cfg.API.BaseURL, cred).
		WithMaxRetries(p.cfg.API.MaxRetries).
		WithBackoff(p.cfg.API.InitialBackoff(), p.cfg.API.MaxBackoff())
	if p.httpClient != nil {
		client = client.WithHTTPClient(p.httpClient)
	}

	// --- List ---------------------------------------------------------
	p.reporter.Status(PhaseListing, "Listing Conversations...")
	lister := NewLister(client, p.cfg.API.PageSize, p.cfg.API.DelayPages())
	summaries, err := lister.ListAll(ctx, false)
	if err != nil {
		p.reporter.Error(err.Error())
		return nil, err
	}
	if p.cfg.Export.IncludeArchived {
		archived, err := lister.ListAll(ctx, true)
		if err != nil {
			p.reporter.Error(err.Error())
			return nil, err
		}
		summaries = append(summaries, archived...)
	}
	p.reporter.Log(fmt.Sprintf("Found %d conversations", len(summaries)), false)
	stats.Conversations = len(summaries)
	p.reporter.Stats(stats)

	// --- Fetch --------------------------------------------------------
	asm := export.NewAssembler(p.cfg.Export.SourceLabel, cred.WorkspaceAccountID)
	fetcher := NewFetcher(client, p.cfg.API.DelayFetches())
	total := len(summaries)
	for i, summary := range summaries {
		p.reporter.Progress(i+1, total)
		p.reporter.Status(PhaseDownloading, fmt.Sprintf("Downloading %d/%d...", i+1, total))

		rec, err := fetcher.FetchOne(ctx, summary)
		if err != nil {
			p.reporter.Error(err.Error())
			return nil, err
		}
		if rec.Failed() {
			stats.Errors++
			p.reporter.Log(fmt.Sprintf("Failed to fetch conversation %s (%s): %s", rec.ID, rec.Title, rec.Error), true)
		} else {
			stats.Attachments += ExtractAttachments(rec, asm)
		}
		asm.Append(rec)
		p.reporter.Stats(stats)
	}

	// --- Package ------------------------------------------------------
	p.reporter.Status(PhasePackaging, "Packaging...")
	archive := asm.Finalize()
	data, err := archive.Marshal()
	if err != nil {
		p.reporter.Error(err.Error())
		return nil, err
	}

	stats.Conversations = archive.ConversationCount
	stats.Errors = len(archive.Errors)
	stats.Attachments = archive.AttachmentCount
	stats.ArchiveBytes = len(data)

	// --- Attachments (optional) ---------------------------------------
	if p.cfg.Export.IncludeAttachments && p.sink != nil && archive.AttachmentCount > 0 {
		downloader := NewDownloader(client, p.sink, p.cfg.API.DelayAttachments(), p.reporter)
		downloaded, failed, err := downloader.DownloadAll(ctx, asm)
		if err != nil {
			p.reporter.Error(err.Error())
			return nil, err
		}
		stats.AttachmentsDownloaded = downloaded
		stats.AttachmentsFailed = failed
	}

	stats.FinishedAt = p.now().UTC()
	p.reporter.Status(PhaseDone, "Export Complete!")
	p.reporter.Log(fmt.Sprintf("Export size: ~%.2f MB", float64(len(data))/(1024*1024)), false)
	p.reporter.Done(stats)

	return &Result{Archive: archive, Data: data, Stats: stats}, nil
}
