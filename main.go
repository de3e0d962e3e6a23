// chatgpt-export - bulk export of ChatGPT conversations to a local archive.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/jeranaias/chatgpt-export/internal/cli"
	"github.com/jeranaias/chatgpt-export/internal/config"
	"github.com/jeranaias/chatgpt-export/internal/history"
	"github.com/jeranaias/chatgpt-export/internal/pipeline"
	"github.com/jeranaias/chatgpt-export/internal/report"
	"github.com/jeranaias/chatgpt-export/internal/storage"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse(os.Args[1:])

	var err error
	switch cmd {
	case cli.CmdExport:
		err = runExport(args)
	case cli.CmdHistory:
		err = runHistory(args)
	case cli.CmdConfig:
		err = runConfig(args)
	case cli.CmdVersion:
		cli.PrintVersion()
	case cli.CmdHelp:
		cli.PrintHelp()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// EXPORT COMMAND
// =============================================================================

func runExport(args cli.Args) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	// Credentials may come from flags, environment, config, or a prompt.
	if cfg.Auth.Token == "" && cfg.Auth.Cookie == "" {
		cookie, promptErr := cli.PromptSecret("Session cookie (or leave blank to abort)")
		if promptErr != nil {
			return promptErr
		}
		if cookie == "" {
			return errors.New("no credentials: provide --token, --cookie, or environment overrides")
		}
		cfg.Auth.Cookie = cookie
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	// Ctrl-C cancels the run; whatever was fetched so far is discarded
	// rather than written as a silently partial archive.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewStore(cfg.Export.OutputDir)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	var reporter pipeline.Reporter
	switch {
	case args.Quiet:
		reporter = pipeline.NullReporter{}
	case args.JSON:
		reporter = report.NewJSONLog(os.Stdout, runID)
	default:
		reporter = report.NewConsole(os.Stdout)
	}

	p := pipeline.New(cfg, reporter).WithRunID(runID)
	if cfg.Export.IncludeAttachments {
		p = p.WithAttachmentSink(store)
	}

	result, err := p.Run(ctx)
	if err != nil {
		return err
	}

	path, err := store.SaveArchive(result.Data, result.Archive.ExportTime)
	if err != nil {
		return err
	}
	result.Stats.ArchivePath = path
	reporter.Log(fmt.Sprintf("Archive written to %s", path), false)

	recordRun(cfg, result.Stats, reporter)
	return nil
}

// recordRun appends the run to the history database. History is advisory;
// failures are reported but never fail the export.
func recordRun(cfg *config.Config, stats pipeline.RunStats, reporter pipeline.Reporter) {
	if !cfg.History.Enabled {
		return
	}
	path, err := cfg.HistoryPath()
	if err != nil {
		reporter.Log(fmt.Sprintf("History disabled: %v", err), true)
		return
	}
	store, err := history.Open(path)
	if err != nil {
		reporter.Log(fmt.Sprintf("History disabled: %v", err), true)
		return
	}
	defer store.Close()

	if err := store.Record(context.Background(), stats); err != nil {
		reporter.Log(fmt.Sprintf("Failed to record run history: %v", err), true)
	}
}

// =============================================================================
// HISTORY COMMAND
// =============================================================================

func runHistory(args cli.Args) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	path, err := cfg.HistoryPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		fmt.Println("No export runs recorded yet.")
		return nil
	}

	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Recent(context.Background(), args.HistoryLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No export runs recorded yet.")
		return nil
	}

	fmt.Printf("%-20s  %-13s  %-6s  %-11s  %s\n",
		"STARTED", "CONVERSATIONS", "ERRORS", "ATTACHMENTS", "ARCHIVE")
	for _, run := range runs {
		fmt.Printf("%-20s  %-13d  %-6d  %-11d  %s\n",
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.Conversations,
			run.Errors,
			run.Attachments,
			run.ArchivePath,
		)
	}
	return nil
}

// =============================================================================
// CONFIG COMMAND
// =============================================================================

func runConfig(args cli.Args) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	fmt.Println(cfg.String())
	return nil
}

// =============================================================================
// SHARED SETUP
// =============================================================================

// loadConfig builds the effective configuration: file, then environment,
// then command-line flags, most specific last.
func loadConfig(args cli.Args) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if args.ConfigPath != "" {
		cfg, err = config.LoadFromPath(args.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if args.OutputDir != "" {
		cfg.Export.OutputDir = args.OutputDir
	}
	if args.Token != "" {
		cfg.Auth.Token = args.Token
	}
	if args.Cookie != "" {
		cfg.Auth.Cookie = args.Cookie
	}
	if args.Archived != nil {
		cfg.Export.IncludeArchived = *args.Archived
	}
	if args.Attachments != nil {
		cfg.Export.IncludeAttachments = *args.Attachments
	}
	return cfg, nil
}
