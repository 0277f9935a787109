// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package molog

import (
	"io"
	"os"
	"path/filepath"
)

// StreamHandler writes formatted records to an io.Writer, one per line. The
// handler never closes the writer: os.Stdout or os.Stderr may be in use.
type StreamHandler struct {
	BaseHandler

	writer     io.Writer
	terminator string
}

// NewStreamHandler returns a handler writing to w; os.Stderr when w is nil.
func NewStreamHandler(w io.Writer) *StreamHandler {
	if w == nil {
		w = os.Stderr
	}

	h := &StreamHandler{
		writer:     w,
		terminator: "\n",
	}
	h.initBase(h, NOTSET, h.emitRecord)
	return h
}

func (h *StreamHandler) emitRecord(record *Record) error {
	msg, err := h.format(record)
	if err != nil {
		return err
	}

	_, err = io.WriteString(h.writer, msg+h.terminator)
	return err
}

// SetWriter swaps the destination writer, returning the previous one. The
// swap happens under the I/O lock so no record is split across writers.
func (h *StreamHandler) SetWriter(w io.Writer) io.Writer {
	h.mu.Lock()
	defer h.mu.Unlock()

	if w == h.writer {
		return nil
	}
	previous := h.writer
	h.writer = w
	return previous
}

// Flush implements Handler.
func (h *StreamHandler) Flush() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if syncer, ok := h.writer.(interface{ Sync() error }); ok {
		return syncer.Sync()
	}
	return nil
}

// Close implements Handler. The destination writer is left open.
func (h *StreamHandler) Close() error {
	h.closeBase()
	return nil
}

// FileHandler writes formatted records to a disk file.
type FileHandler struct {
	StreamHandler

	path     string
	truncate bool
	file     *os.File
}

// NewFileHandler opens path for appending (or truncating, when truncate is
// set) and returns a handler writing to it. With delay set the file is not
// opened until the first record is emitted.
func NewFileHandler(path string, truncate, delay bool) (*FileHandler, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	h := &FileHandler{
		path:     abs,
		truncate: truncate,
	}
	h.terminator = "\n"
	h.initBase(h, NOTSET, h.emitRecord)

	if !delay {
		if err := h.open(); err != nil {
			h.closeBase()
			return nil, err
		}
	}
	return h, nil
}

// open creates or opens the backing file and installs it as the stream
// writer. It must be called with the I/O lock held or before the handler is
// shared.
func (h *FileHandler) open() error {
	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if h.truncate {
		flags = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	}

	file, err := os.OpenFile(h.path, flags, 0o644)
	if err != nil {
		return err
	}
	h.file = file
	h.writer = file
	return nil
}

func (h *FileHandler) emitRecord(record *Record) error {
	// Delayed handlers open on first use. A handler closed while configured
	// for truncation must not reopen, or it would wipe what it wrote.
	if h.file == nil {
		if h.closed && h.truncate {
			return nil
		}
		if err := h.open(); err != nil {
			return err
		}
	}
	return h.StreamHandler.emitRecord(record)
}

// Path returns the absolute path of the backing file.
func (h *FileHandler) Path() string {
	return h.path
}

// Flush implements Handler.
func (h *FileHandler) Flush() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.file == nil {
		return nil
	}
	return h.file.Sync()
}

// Close implements Handler and closes the backing file.
func (h *FileHandler) Close() error {
	if !h.closeBase() {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.file == nil {
		return nil
	}

	err := h.file.Close()
	h.file = nil
	h.writer = io.Discard
	return err
}

// stderrWriter resolves os.Stderr at write time, so redirections of the
// process stderr performed after handler construction are honored.
type stderrWriter struct{}

func (stderrWriter) Write(p []byte) (int, error) {
	return os.Stderr.Write(p)
}

// newStderrHandler returns a stream handler bound to the current os.Stderr
// at every write.
func newStderrHandler(level Level) *StreamHandler {
	h := NewStreamHandler(stderrWriter{})
	h.SetLevel(level)
	return h
}

// LastResort receives records that reach the top of the logger hierarchy
// without meeting any handler. Setting it to nil silences such records
// entirely; by default it writes bare messages at WARNING and above to
// stderr.
var LastResort Handler = newStderrHandler(WARNING)

// NullHandler discards every record. Libraries attach it to their top-level
// logger so that applications that do not configure logging never see the
// one-off "no handlers" warning.
type NullHandler struct {
	BaseHandler
}

// NewNullHandler returns a handler that does nothing.
func NewNullHandler() *NullHandler {
	h := &NullHandler{}
	h.initBase(h, NOTSET, func(*Record) error { return nil })
	return h
}

// Handle implements Handler and skips filtering and locking entirely.
func (h *NullHandler) Handle(*Record) error { return nil }

// Close implements Handler.
func (h *NullHandler) Close() error {
	h.closeBase()
	return nil
}
