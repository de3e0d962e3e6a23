// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package report

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/jeranaias/chatgpt-export/internal/pipeline"
)

var _ pipeline.Reporter = (*JSONLog)(nil)

// JSONLog emits run progress as structured zerolog events, one JSON object
// per line. Intended for non-interactive runs where the output is collected
// rather than watched.
type JSONLog struct {
	logger zerolog.Logger
}

// NewJSONLog returns a JSON reporter writing to out, tagged with the run id.
func NewJSONLog(out io.Writer, runID string) *JSONLog {
	logger := zerolog.New(out).With().
		Timestamp().
		Str("run_id", runID).
		Logger()
	return &JSONLog{logger: logger}
}

func (j *JSONLog) Status(phase pipeline.Phase, text string) {
	j.logger.Info().
		Str("event", "status").
		Str("phase", phase.String()).
		Msg(text)
}

func (j *JSONLog) Progress(current, total int) {
	j.logger.Debug().
		Str("event", "progress").
		Int("current", current).
		Int("total", total).
		Send()
}

func (j *JSONLog) Log(text string, isError bool) {
	event := j.logger.Info()
	if isError {
		event = j.logger.Error()
	}
	event.Str("event", "log").Msg(text)
}

func (j *JSONLog) Stats(stats pipeline.RunStats) {
	j.logger.Debug().
		Str("event", "stats").
		Int("conversations", stats.Conversations).
		Int("attachments", stats.Attachments).
		Int("errors", stats.Errors).
		Send()
}

func (j *JSONLog) Done(stats pipeline.RunStats) {
	j.logger.Info().
		Str("event", "done").
		Int("conversations", stats.Conversations).
		Int("attachments", stats.Attachments).
		Int("errors", stats.Errors).
		Int("archive_bytes", stats.ArchiveBytes).
		Dur("duration", stats.Duration()).
		Msg("Export complete")
}

func (j *JSONLog) Error(text string) {
	j.logger.Error().
		Str("event", "error").
		Msg(text)
}
