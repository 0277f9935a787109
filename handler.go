// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package molog

import (
	"fmt"
	"os"
	"sync"
)

// Handler dispatches logging records to a specific destination. A handler has
// its own level gate, filter chain and formatter. Implementations embed
// BaseHandler, which supplies all of the bookkeeping, and provide the emit
// step.
type Handler interface {
	// Handle filters the record and, when it passes, emits it while holding
	// the handler I/O lock.
	Handle(record *Record) error
	// Flush forces any buffered output to be written out.
	Flush() error
	// Close releases the handler resources and removes it from the package
	// registries. Closing an already closed handler is a no-op.
	Close() error

	Level() Level
	SetLevel(level Level)
	SetFormatter(formatter Formatter)
	AddFilter(filter Filter)
	RemoveFilter(filter Filter)
}

// ReportHandlerErrors controls whether errors that occur while a handler
// emits a record are reported on stderr. Most users care about application
// errors rather than errors in the logging system, so reporting is the only
// channel: emit errors are never propagated to logging call sites.
var ReportHandlerErrors = true

var (
	handlersByName = map[string]Handler{}

	// shutdownHandlers tracks every live handler so Shutdown can flush and
	// close them in reverse creation order.
	shutdownHandlers []Handler
)

// BaseHandler implements the shared portion of Handler. Concrete handlers
// embed it and wire their emit function at construction time.
type BaseHandler struct {
	filterSet

	mu        sync.Mutex
	level     Level
	formatter Formatter
	name      string
	closed    bool

	// self is the outermost handler value, needed by the package registries.
	self Handler
	emit func(record *Record) error
}

// initBase prepares the embedded BaseHandler and registers self on the
// shutdown list. self must be the outermost handler value.
func (h *BaseHandler) initBase(self Handler, level Level, emit func(record *Record) error) {
	h.level = level
	h.self = self
	h.emit = emit
	registerHandler(self)
}

// Handle implements Handler. The record is offered to the handler filters;
// when it passes, the emit step runs under the handler I/O lock. Emit errors
// are reported and swallowed.
func (h *BaseHandler) Handle(record *Record) error {
	record, ok := h.apply(record)
	if !ok {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.emit(record); err != nil {
		reportHandlerError(record, err)
		return err
	}
	return nil
}

// Flush implements Handler and does nothing; handlers with buffered output
// override it.
func (h *BaseHandler) Flush() error { return nil }

// Level returns the handler severity gate.
func (h *BaseHandler) Level() Level {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.level
}

// SetLevel updates the handler severity gate.
func (h *BaseHandler) SetLevel(level Level) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.level = level
}

// SetFormatter assigns the formatter used by the emit step.
func (h *BaseHandler) SetFormatter(formatter Formatter) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.formatter = formatter
}

// Formatter returns the assigned formatter, which may be nil.
func (h *BaseHandler) Formatter() Formatter {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.formatter
}

// format renders the record with the assigned formatter, falling back to the
// package default formatter. It must be called with the I/O lock held.
func (h *BaseHandler) format(record *Record) (string, error) {
	formatter := h.formatter
	if formatter == nil {
		formatter = defaultFormatter
	}
	return formatter.Format(record)
}

// closeBase marks the handler closed and removes it from the package
// registries. It reports whether this call performed the transition.
func (h *BaseHandler) closeBase() bool {
	h.mu.Lock()
	alreadyClosed := h.closed
	h.closed = true
	name := h.name
	h.mu.Unlock()

	if alreadyClosed {
		return false
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if name != "" {
		delete(handlersByName, name)
	}
	for i, registered := range shutdownHandlers {
		if registered == h.self {
			shutdownHandlers = append(shutdownHandlers[:i], shutdownHandlers[i+1:]...)
			break
		}
	}
	return true
}

// isClosed reports whether Close has been called.
func (h *BaseHandler) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// SetName binds name to the handler for later lookup with HandlerByName. Any
// previous binding of the handler is removed; an empty name only removes it.
func (h *BaseHandler) SetName(name string) {
	globalMu.Lock()
	defer globalMu.Unlock()

	h.mu.Lock()
	if h.name != "" {
		delete(handlersByName, h.name)
	}
	h.name = name
	self := h.self
	h.mu.Unlock()

	if name != "" {
		handlersByName[name] = self
	}
}

// Name returns the registry name of the handler, if any.
func (h *BaseHandler) Name() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.name
}

// HandlerByName returns the handler registered under name, or nil.
func HandlerByName(name string) Handler {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return handlersByName[name]
}

// HandlerNames returns all the currently bound handler names.
func HandlerNames() []string {
	globalMu.RLock()
	defer globalMu.RUnlock()

	names := make([]string, 0, len(handlersByName))
	for name := range handlersByName {
		names = append(names, name)
	}
	return names
}

// registerHandler adds h to the shutdown list.
func registerHandler(h Handler) {
	globalMu.Lock()
	defer globalMu.Unlock()
	shutdownHandlers = append(shutdownHandlers, h)
}

// Shutdown flushes and closes every live handler in reverse creation order.
// It should be called at application exit. Errors are ignored: at shutdown
// handlers may already have lost their underlying resources.
func Shutdown() {
	globalMu.RLock()
	handlers := make([]Handler, len(shutdownHandlers))
	copy(handlers, shutdownHandlers)
	globalMu.RUnlock()

	for i := len(handlers) - 1; i >= 0; i-- {
		h := handlers[i]
		if m, ok := h.(*MemoryHandler); ok && !m.FlushOnClose() {
			_ = h.Close()
			continue
		}
		_ = h.Flush()
		_ = h.Close()
	}
}

// reportHandlerError writes a diagnostic block for an emit failure to stderr.
// The logging system cannot log its own failures through itself.
func reportHandlerError(record *Record, err error) {
	if !ReportHandlerErrors {
		return
	}

	fmt.Fprintf(os.Stderr, "--- Logging error ---\n%v\n", err)
	if record != nil {
		fmt.Fprintf(os.Stderr, "Logger: %s\nMessage: %q\nArguments: %v\n",
			record.LoggerName, record.Msg, record.Args)
	}
}
