// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package pipeline

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/chatgpt-export/internal/export"
)

// fileClient is the slice of the API client the downloader needs.
type fileClient interface {
	DownloadFile(ctx context.Context, id string) ([]byte, error)
}

// AttachmentSink persists downloaded attachment bytes. The storage layer
// implements it; tests substitute an in-memory recorder.
type AttachmentSink interface {
	SaveAttachment(id, name string, data []byte) (string, error)
}

// Downloader fetches the files referenced by an assembled archive. It runs
// after the archive is packaged: a download failure never degrades the
// archive itself, only the on-disk file set.
type Downloader struct {
	client   fileClient
	sink     AttachmentSink
	limiter  *rate.Limiter
	reporter Reporter
}

// NewDownloader returns a downloader that waits delay between successive
// file requests.
func NewDownloader(client fileClient, sink AttachmentSink, delay time.Duration, reporter Reporter) *Downloader {
	if reporter == nil {
		reporter = NullReporter{}
	}
	return &Downloader{
		client:   client,
		sink:     sink,
		limiter:  rate.NewLimiter(rate.Every(delay), 1),
		reporter: reporter,
	}
}

// DownloadAll fetches every attachment the assembler has indexed, in
// discovery order, and persists each through the sink. Per-file failures
// are logged and counted; only context cancellation aborts the pass.
func (d *Downloader) DownloadAll(ctx context.Context, asm *export.Assembler) (downloaded, failed int, err error) {
	ids := asm.AttachmentIDs()
	total := len(ids)
	for i, id := range ids {
		d.reporter.Progress(i+1, total)
		d.reporter.Status(PhaseAttachments, fmt.Sprintf("Attachments %d/%d...", i+1, total))

		if err := d.limiter.Wait(ctx); err != nil {
			return downloaded, failed, err
		}
		ref, _ := asm.Attachment(id)
		data, dlErr := d.client.DownloadFile(ctx, id)
		if dlErr != nil {
			if ctx.Err() != nil {
				return downloaded, failed, ctx.Err()
			}
			failed++
			d.reporter.Log(fmt.Sprintf("Failed to download attachment %s (%s): %v", id, ref.Name, dlErr), true)
			continue
		}
		if _, saveErr := d.sink.SaveAttachment(id, ref.Name, data); saveErr != nil {
			failed++
			d.reporter.Log(fmt.Sprintf("Failed to save attachment %s (%s): %v", id, ref.Name, saveErr), true)
			continue
		}
		downloaded++
	}
	return downloaded, failed, nil
}
