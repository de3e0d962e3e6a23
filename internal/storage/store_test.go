// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveArchive(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	require.NoError(t, err)

	ts := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	path, err := s.SaveArchive([]byte(`{"conversation_count": 0}`), ts)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "chatgpt-export-2025-03-14.json"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"conversation_count": 0}`, string(data))
}

func TestSaveArchiveOverwritesSameDay(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	ts := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	_, err = s.SaveArchive([]byte(`first`), ts)
	require.NoError(t, err)
	path, err := s.SaveArchive([]byte(`second`), ts)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestSaveAttachmentSanitizesName(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	require.NoError(t, err)

	path, err := s.SaveAttachment("file-1", `bad/name:with*chars?.png`, []byte("png"))
	require.NoError(t, err)

	assert.Equal(t, filepath.Dir(path), filepath.Join(dir, "attachments"))
	assert.NotContains(t, filepath.Base(path), "/")
	assert.NotContains(t, filepath.Base(path), ":")
	assert.NotContains(t, filepath.Base(path), "*")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
}

func TestSaveAttachmentCollision(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	first, err := s.SaveAttachment("file-1", "notes.txt", []byte("one"))
	require.NoError(t, err)
	second, err := s.SaveAttachment("file-2", "notes.txt", []byte("two"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Contains(t, filepath.Base(second), "file-2")
	assert.Contains(t, filepath.Base(second), ".txt")

	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))
}

func TestNewStoreCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	s, err := NewStore(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, s.Dir())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
