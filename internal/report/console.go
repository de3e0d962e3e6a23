// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package report

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/chatgpt-export/internal/pipeline"
	"github.com/jeranaias/chatgpt-export/internal/util"
)

// maxLogWidth bounds free-form log lines so conversation titles with CJK or
// emoji content do not wrap progress output.
const maxLogWidth = 100

var _ pipeline.Reporter = (*Console)(nil)

// Console renders run progress as styled lines on a terminal.
type Console struct {
	mu  sync.Mutex
	out io.Writer

	phaseStyle lipgloss.Style
	infoStyle  lipgloss.Style
	errStyle   lipgloss.Style
	doneStyle  lipgloss.Style

	lastProgress string
}

// NewConsole returns a console reporter writing to out.
func NewConsole(out io.Writer) *Console {
	return &Console{
		out: out,
		phaseStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true),
		infoStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")),
		errStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")),
		doneStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")).
			Bold(true),
	}
}

// Status prints the phase text. Per-item statuses within a phase arrive
// once per item; identical consecutive lines are suppressed.
func (c *Console) Status(phase pipeline.Phase, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if text == c.lastProgress {
		return
	}
	c.lastProgress = text

	style := c.phaseStyle
	switch phase {
	case pipeline.PhaseDone:
		style = c.doneStyle
	case pipeline.PhaseError:
		style = c.errStyle
	}
	fmt.Fprintln(c.out, style.Render(text))
}

// Progress is carried by the Status text on the console; item counters are
// not rendered twice.
func (c *Console) Progress(current, total int) {}

// Log prints a free-form line, truncated to terminal-friendly width.
func (c *Console) Log(text string, isError bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	line := util.TruncateWidth(text, maxLogWidth)
	if isError {
		fmt.Fprintln(c.out, c.errStyle.Render("  ✗ "+line))
		return
	}
	fmt.Fprintln(c.out, c.infoStyle.Render("  "+line))
}

// Stats is rendered only at completion on the console.
func (c *Console) Stats(stats pipeline.RunStats) {}

// Done prints the final summary line.
func (c *Console) Done(stats pipeline.RunStats) {
	c.mu.Lock()
	defer c.mu.Unlock()

	summary := fmt.Sprintf("  %d conversations, %d attachments, %d errors in %s",
		stats.Conversations, stats.Attachments, stats.Errors,
		stats.Duration().Round(time.Second))
	fmt.Fprintln(c.out, c.infoStyle.Render(summary))
}

// Error prints the terminal failure.
func (c *Console) Error(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, c.errStyle.Render("Export failed: "+text))
}
