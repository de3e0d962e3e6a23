// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jeranaias/chatgpt-export/internal/export"
	"github.com/jeranaias/chatgpt-export/internal/util"
)

// attachmentsSubdir is where downloaded files land, next to the archive.
const attachmentsSubdir = "attachments"

// Store writes export output under a single directory.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the output directory.
func (s *Store) Dir() string {
	return s.dir
}

// SaveArchive writes the serialized archive under its date-stamped name and
// returns the full path. The write is atomic: a crash mid-write never
// leaves a truncated archive at the final path.
func (s *Store) SaveArchive(data []byte, exportTime time.Time) (string, error) {
	path := filepath.Join(s.dir, export.Filename(exportTime))
	if err := util.AtomicWriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write archive: %w", err)
	}
	return path, nil
}

// SaveAttachment persists one downloaded file under attachments/, named by
// its sanitized display name. Name collisions between distinct attachments
// are disambiguated with the attachment id, which is unique.
func (s *Store) SaveAttachment(id, name string, data []byte) (string, error) {
	dir := filepath.Join(s.dir, attachmentsSubdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create attachments directory: %w", err)
	}

	clean := util.SanitizeFilename(name)
	path := filepath.Join(dir, clean)
	if _, err := os.Stat(path); err == nil {
		ext := filepath.Ext(clean)
		base := clean[:len(clean)-len(ext)]
		path = filepath.Join(dir, base+"-"+util.SanitizeFilename(id)+ext)
	}

	if err := util.AtomicWriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write attachment %s: %w", id, err)
	}
	return path, nil
}
