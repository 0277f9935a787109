// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package molog

// MemoryHandler buffers records in memory and flushes them to a target
// handler whenever the buffer fills up or a record at or above the trigger
// level arrives. It is useful to keep cheap DEBUG context around and only
// ship it when something goes wrong.
type MemoryHandler struct {
	BaseHandler

	capacity     int
	triggerLevel Level
	target       Handler
	flushOnClose bool
	buffer       []*Record
}

// NewMemoryHandler returns a memory handler holding up to capacity records
// and flushing to target when a record at triggerLevel or above is handled.
// A nil target buffers until SetTarget is called.
func NewMemoryHandler(capacity int, triggerLevel Level, target Handler) *MemoryHandler {
	if capacity < 1 {
		capacity = 1
	}

	h := &MemoryHandler{
		capacity:     capacity,
		triggerLevel: triggerLevel,
		target:       target,
		flushOnClose: true,
	}
	h.initBase(h, NOTSET, h.emitRecord)
	return h
}

// SetTarget installs the handler receiving flushed records.
func (h *MemoryHandler) SetTarget(target Handler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.target = target
}

// SetFlushOnClose controls whether Close (and Shutdown) flush the buffered
// records to the target before releasing them.
func (h *MemoryHandler) SetFlushOnClose(flush bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.flushOnClose = flush
}

// FlushOnClose reports whether buffered records are flushed on Close.
func (h *MemoryHandler) FlushOnClose() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.flushOnClose
}

// Buffered returns the number of records currently held.
func (h *MemoryHandler) Buffered() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.buffer)
}

func (h *MemoryHandler) emitRecord(record *Record) error {
	h.buffer = append(h.buffer, record)
	if len(h.buffer) >= h.capacity || record.Level >= h.triggerLevel {
		return h.flushLocked()
	}
	return nil
}

// flushLocked drains the buffer to the target handler. The buffer is always
// released, even when the target reports errors, so a failing target cannot
// grow the buffer without bound.
func (h *MemoryHandler) flushLocked() error {
	if h.target == nil {
		return nil
	}

	var firstErr error
	for _, record := range h.buffer {
		if err := h.target.Handle(record); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	h.buffer = h.buffer[:0]
	return firstErr
}

// Flush implements Handler and drains the buffer to the target.
func (h *MemoryHandler) Flush() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.flushLocked()
}

// Close implements Handler. The buffered records are flushed to the target
// first unless SetFlushOnClose disabled it. The target is not closed: it may
// be shared.
func (h *MemoryHandler) Close() error {
	if !h.closeBase() {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.flushOnClose {
		return h.flushLocked()
	}
	h.buffer = nil
	return nil
}
