// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package molog

// FuncHandler adapts plain functions to the Handler interface. It is the
// extension point for handlers implemented outside this package: the emit
// function receives the record together with its formatted rendition, and
// optional flush and close functions hook into the handler lifecycle.
type FuncHandler struct {
	BaseHandler

	emitFn  func(record *Record, formatted string) error
	flushFn func() error
	closeFn func() error
}

// NewFuncHandler returns a handler delegating its emit step to emit.
func NewFuncHandler(level Level, emit func(record *Record, formatted string) error) *FuncHandler {
	h := &FuncHandler{emitFn: emit}
	h.initBase(h, level, h.emitRecord)
	return h
}

// OnFlush installs the function called by Flush.
func (h *FuncHandler) OnFlush(flush func() error) *FuncHandler {
	h.flushFn = flush
	return h
}

// OnClose installs the function called by the first Close.
func (h *FuncHandler) OnClose(closer func() error) *FuncHandler {
	h.closeFn = closer
	return h
}

func (h *FuncHandler) emitRecord(record *Record) error {
	formatted, err := h.format(record)
	if err != nil {
		return err
	}
	return h.emitFn(record, formatted)
}

// Flush implements Handler.
func (h *FuncHandler) Flush() error {
	if h.flushFn == nil {
		return nil
	}
	return h.flushFn()
}

// Close implements Handler. The close function runs once, on the first call.
func (h *FuncHandler) Close() error {
	if !h.closeBase() {
		return nil
	}
	if h.closeFn == nil {
		return nil
	}
	return h.closeFn()
}
