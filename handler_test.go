// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package molog

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamHandler(t *testing.T) {
	t.Parallel()

	buffer := new(bytes.Buffer)
	handler := NewStreamHandler(buffer)
	t.Cleanup(func() { _ = handler.Close() })
	handler.SetFormatter(mustTextFormatter(BasicFormat, StylePercent))

	require.NoError(t, handler.Handle(NewRecord("test", INFO, "hello %s", []any{"world"})))
	assert.Equal(t, "INFO:test:hello world\n", buffer.String())
}

func TestStreamHandlerDefaultFormatter(t *testing.T) {
	t.Parallel()

	buffer := new(bytes.Buffer)
	handler := NewStreamHandler(buffer)
	t.Cleanup(func() { _ = handler.Close() })

	require.NoError(t, handler.Handle(NewRecord("test", INFO, "bare message", nil)))
	assert.Equal(t, "bare message\n", buffer.String())
}

func TestStreamHandlerSetWriter(t *testing.T) {
	t.Parallel()

	first := new(bytes.Buffer)
	second := new(bytes.Buffer)
	handler := NewStreamHandler(first)
	t.Cleanup(func() { _ = handler.Close() })

	require.NoError(t, handler.Handle(NewRecord("test", INFO, "one", nil)))

	previous := handler.SetWriter(second)
	assert.Same(t, first, previous)
	assert.Nil(t, handler.SetWriter(second))

	require.NoError(t, handler.Handle(NewRecord("test", INFO, "two", nil)))
	assert.Equal(t, "one\n", first.String())
	assert.Equal(t, "two\n", second.String())
}

func TestHandlerFilters(t *testing.T) {
	t.Parallel()

	buffer := new(bytes.Buffer)
	handler := NewStreamHandler(buffer)
	t.Cleanup(func() { _ = handler.Close() })
	handler.AddFilter(NewNameFilter("input"))

	require.NoError(t, handler.Handle(NewRecord("output", INFO, "dropped", nil)))
	require.NoError(t, handler.Handle(NewRecord("input.csv", INFO, "kept", nil)))
	assert.Equal(t, "kept\n", buffer.String())
}

func TestHandlerNameRegistry(t *testing.T) {
	t.Parallel()

	handler := NewStreamHandler(new(bytes.Buffer))
	handler.SetName("registry-test-console")

	assert.Equal(t, "registry-test-console", handler.Name())
	assert.Same(t, Handler(handler), HandlerByName("registry-test-console"))
	assert.Contains(t, HandlerNames(), "registry-test-console")

	handler.SetName("registry-test-renamed")
	assert.Nil(t, HandlerByName("registry-test-console"))
	assert.Same(t, Handler(handler), HandlerByName("registry-test-renamed"))

	require.NoError(t, handler.Close())
	assert.Nil(t, HandlerByName("registry-test-renamed"))
}

func TestFileHandler(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "app.log")

	handler, err := NewFileHandler(path, false, false)
	require.NoError(t, err)
	assert.Equal(t, path, handler.Path())

	require.NoError(t, handler.Handle(NewRecord("test", INFO, "first", nil)))
	require.NoError(t, handler.Close())
	require.NoError(t, handler.Close()) // closing twice is a no-op

	// Appending reopens where the previous handler left off.
	handler, err = NewFileHandler(path, false, false)
	require.NoError(t, err)
	require.NoError(t, handler.Handle(NewRecord("test", INFO, "second", nil)))
	require.NoError(t, handler.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", string(content))
}

func TestFileHandlerTruncate(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, os.WriteFile(path, []byte("stale content\n"), 0o644))

	handler, err := NewFileHandler(path, true, false)
	require.NoError(t, err)
	require.NoError(t, handler.Handle(NewRecord("test", INFO, "fresh", nil)))
	require.NoError(t, handler.Close())

	// Emitting on a closed truncating handler must not reopen and wipe the file.
	require.NoError(t, handler.Handle(NewRecord("test", INFO, "late", nil)))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "fresh\n", string(content))
}

func TestFileHandlerDelay(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "app.log")

	handler, err := NewFileHandler(path, false, true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = handler.Close() })

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))

	require.NoError(t, handler.Handle(NewRecord("test", INFO, "first", nil)))
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first\n", string(content))
}

func TestNullHandler(t *testing.T) {
	t.Parallel()

	handler := NewNullHandler()
	t.Cleanup(func() { _ = handler.Close() })

	assert.NoError(t, handler.Handle(NewRecord("test", CRITICAL, "discarded", nil)))
}

func TestShutdown(t *testing.T) {
	flushedBuffer := new(bytes.Buffer)
	flushed := NewMemoryHandler(100, CRITICAL, NewStreamHandler(flushedBuffer))

	droppedBuffer := new(bytes.Buffer)
	dropped := NewMemoryHandler(100, CRITICAL, NewStreamHandler(droppedBuffer))
	dropped.SetFlushOnClose(false)

	require.NoError(t, flushed.Handle(NewRecord("test", INFO, "kept", nil)))
	require.NoError(t, dropped.Handle(NewRecord("test", INFO, "lost", nil)))

	Shutdown()

	assert.Equal(t, "kept\n", flushedBuffer.String())
	assert.Empty(t, droppedBuffer.String())
	assert.True(t, flushed.isClosed())
	assert.True(t, dropped.isClosed())
}
