// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"strconv"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdExport Command = iota
	CmdHistory
	CmdConfig
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global
	Quiet bool
	JSON  bool // structured JSON progress instead of styled console output

	// Export options
	OutputDir   string
	ConfigPath  string
	Token       string
	Cookie      string
	Archived    *bool // nil means "use config"
	Attachments *bool

	// History options
	HistoryLimit int
}

// Parse interprets os.Args style arguments (without the program name) into
// a command and its options.
func Parse(raw []string) (Command, Args) {
	parser := NewArgParser(raw)

	args := Args{
		Quiet:        parser.BoolFlag("quiet", "q"),
		JSON:         parser.BoolFlag("json"),
		OutputDir:    parser.Flag("output", "o"),
		ConfigPath:   parser.Flag("config"),
		Token:        parser.Flag("token"),
		Cookie:       parser.Flag("cookie"),
		HistoryLimit: 10,
	}

	if v, ok := parser.BoolFlagSet("archived"); ok {
		args.Archived = &v
	}
	if parser.BoolFlag("no-archived") {
		f := false
		args.Archived = &f
	}
	if v, ok := parser.BoolFlagSet("attachments"); ok {
		args.Attachments = &v
	}
	if limit := parser.Flag("limit", "n"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil && n > 0 {
			args.HistoryLimit = n
		}
	}

	if parser.BoolFlag("version", "v") {
		return CmdVersion, args
	}
	if parser.BoolFlag("help", "h") {
		return CmdHelp, args
	}

	switch parser.Subcommand() {
	case "", "export":
		return CmdExport, args
	case "history":
		return CmdHistory, args
	case "config":
		return CmdConfig, args
	case "version":
		return CmdVersion, args
	case "help":
		return CmdHelp, args
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", parser.Subcommand())
		return CmdHelp, args
	}
}

// PrintHelp writes usage to stdout.
func PrintHelp() {
	fmt.Print(`chatgpt-export - bulk export of ChatGPT conversations

Usage:
  chatgpt-export [export] [flags]    Run an export (default command)
  chatgpt-export history [flags]     List past export runs
  chatgpt-export config              Show the effective configuration
  chatgpt-export version             Show version information

Export flags:
  -o, --output DIR      Output directory (default: current directory)
      --config PATH     Config file (default: ~/.chatgpt-export/config.toml)
      --token TOKEN     Bearer token (skips the session endpoint)
      --cookie COOKIE   Session cookie for authentication
      --archived        Include archived conversations
      --no-archived     Exclude archived conversations
      --attachments     Download referenced attachment files
      --json            Emit progress as JSON lines
  -q, --quiet           Suppress progress output

History flags:
  -n, --limit N         Number of runs to show (default: 10)

Environment:
  CHATGPT_EXPORT_TOKEN, CHATGPT_EXPORT_COOKIE override config credentials.
`)
}

// PrintVersion writes version information to stdout.
func PrintVersion() {
	fmt.Printf("chatgpt-export %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
}
