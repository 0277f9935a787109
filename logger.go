// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package molog

import (
	"fmt"
	"os"
	"runtime/debug"
	"sync"
)

// Logger represents a single logging channel: an area of an application,
// identified by a dot-separated hierarchical name such as "input",
// "input.csv" or "input.csv.parse". There is no limit to the depth of
// nesting. Loggers are obtained with GetLogger and are never constructed
// directly.
type Logger struct {
	filterSet

	name    string
	manager *Manager
	// parent is maintained by the manager under the package lock.
	parent *Logger

	mu        sync.Mutex
	level     Level
	propagate bool
	disabled  bool
	handlers  []Handler
	cache     map[Level]bool
}

// newLoggerNode is the default LoggerFactory.
func newLoggerNode(name string) *Logger {
	return &Logger{
		name:      name,
		level:     NOTSET,
		propagate: true,
	}
}

// Name returns the dotted name of the logger.
func (l *Logger) Name() string {
	return l.name
}

// SetLevel updates the severity threshold of this logger and invalidates the
// hierarchy enablement caches.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()

	if l.manager != nil {
		l.manager.clearCaches()
	}
}

// Level returns the threshold configured on this logger, which may be NOTSET.
func (l *Logger) Level() Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// SetPropagate controls whether records handled by this logger continue to
// the ancestors' handlers.
func (l *Logger) SetPropagate(propagate bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.propagate = propagate
}

// Propagate reports whether records continue to the ancestors' handlers.
func (l *Logger) Propagate() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.propagate
}

// SetDisabled turns the logger off entirely. Disabled loggers drop every
// record regardless of levels and handlers.
func (l *Logger) SetDisabled(disabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.disabled = disabled
}

// AddHandler attaches handler to this logger unless already attached.
func (l *Logger) AddHandler(handler Handler) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, h := range l.handlers {
		if h == handler {
			return
		}
	}
	l.handlers = append(l.handlers, handler)
}

// RemoveHandler detaches handler from this logger.
func (l *Logger) RemoveHandler(handler Handler) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, h := range l.handlers {
		if h == handler {
			l.handlers = append(l.handlers[:i], l.handlers[i+1:]...)
			return
		}
	}
}

// Handlers returns a copy of the handlers attached to this logger.
func (l *Logger) Handlers() []Handler {
	l.mu.Lock()
	defer l.mu.Unlock()

	handlers := make([]Handler, len(l.handlers))
	copy(handlers, l.handlers)
	return handlers
}

// HasHandlers reports whether this logger, or any ancestor reachable through
// propagation, has handlers attached.
func (l *Logger) HasHandlers() bool {
	globalMu.RLock()
	defer globalMu.RUnlock()

	for c := l; c != nil; {
		c.mu.Lock()
		count, propagate := len(c.handlers), c.propagate
		c.mu.Unlock()

		if count > 0 {
			return true
		}
		if !propagate {
			return false
		}
		c = c.parent
	}
	return false
}

// EffectiveLevel walks this logger and its ancestors, returning the first
// threshold that is not NOTSET.
func (l *Logger) EffectiveLevel() Level {
	globalMu.RLock()
	defer globalMu.RUnlock()

	for c := l; c != nil; c = c.parent {
		c.mu.Lock()
		level := c.level
		c.mu.Unlock()
		if level != NOTSET {
			return level
		}
	}
	return NOTSET
}

// IsEnabledFor reports whether a record of the given severity would be
// processed by this logger. The answer is cached until a level changes
// anywhere in the hierarchy.
func (l *Logger) IsEnabledFor(level Level) bool {
	l.mu.Lock()
	if l.disabled {
		l.mu.Unlock()
		return false
	}
	if enabled, ok := l.cache[level]; ok {
		l.mu.Unlock()
		return enabled
	}
	l.mu.Unlock()

	var enabled bool
	if l.manager != nil && l.manager.disableLevel() >= level {
		enabled = false
	} else {
		enabled = level >= l.EffectiveLevel()
	}

	l.mu.Lock()
	if l.cache == nil {
		l.cache = map[Level]bool{}
	}
	l.cache[level] = enabled
	l.mu.Unlock()
	return enabled
}

// clearCache drops the per-level enablement cache.
func (l *Logger) clearCache() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = nil
}

// Child returns a descendant of this logger. logger.Child("csv.parse") on the
// logger "input" is the same as GetLogger("input.csv.parse").
func (l *Logger) Child(suffix string) *Logger {
	if l.manager == nil {
		return l
	}
	if l.manager.root != l {
		suffix = l.name + "." + suffix
	}
	return l.manager.Logger(suffix)
}

// Children returns the loggers directly below this one in the hierarchy,
// skipping placeholders.
func (l *Logger) Children() []*Logger {
	if l.manager == nil {
		return nil
	}

	hierLevel := func(logger *Logger) int {
		if logger == logger.manager.root {
			return 0
		}
		return 1 + countDots(logger.name)
	}

	globalMu.RLock()
	defer globalMu.RUnlock()

	children := []*Logger{}
	for _, node := range l.manager.loggers {
		logger, ok := node.(*Logger)
		// With placeholders in between, a logger's parent link can point to a
		// grandparent; the depth check keeps deeper descendants out.
		if ok && logger.parent == l && hierLevel(logger) == 1+hierLevel(logger.parent) {
			children = append(children, logger)
		}
	}
	return children
}

func countDots(s string) int {
	count := 0
	for _, r := range s {
		if r == '.' {
			count++
		}
	}
	return count
}

// String describes the logger and its effective level.
func (l *Logger) String() string {
	return fmt.Sprintf("<Logger %s (%s)>", l.name, l.EffectiveLevel())
}

// Debug logs a message with severity DEBUG. The message is a printf format
// substituted with args.
func (l *Logger) Debug(msg string, args ...any) {
	if l.IsEnabledFor(DEBUG) {
		l.log(defaultCallDepth, DEBUG, nil, msg, args)
	}
}

// Info logs a message with severity INFO.
func (l *Logger) Info(msg string, args ...any) {
	if l.IsEnabledFor(INFO) {
		l.log(defaultCallDepth, INFO, nil, msg, args)
	}
}

// Notice logs a message with severity NOTICE.
func (l *Logger) Notice(msg string, args ...any) {
	if l.IsEnabledFor(NOTICE) {
		l.log(defaultCallDepth, NOTICE, nil, msg, args)
	}
}

// Warning logs a message with severity WARNING.
func (l *Logger) Warning(msg string, args ...any) {
	if l.IsEnabledFor(WARNING) {
		l.log(defaultCallDepth, WARNING, nil, msg, args)
	}
}

// Error logs a message with severity ERROR.
func (l *Logger) Error(msg string, args ...any) {
	if l.IsEnabledFor(ERROR) {
		l.log(defaultCallDepth, ERROR, nil, msg, args)
	}
}

// Critical logs a message with severity CRITICAL.
func (l *Logger) Critical(msg string, args ...any) {
	if l.IsEnabledFor(CRITICAL) {
		l.log(defaultCallDepth, CRITICAL, nil, msg, args)
	}
}

// Log logs a message with an arbitrary severity.
func (l *Logger) Log(level Level, msg string, args ...any) {
	if l.IsEnabledFor(level) {
		l.log(defaultCallDepth, level, nil, msg, args)
	}
}

// LogDepth is Log for wrappers: extraSkip additional stack frames are skipped
// when resolving the record caller.
func (l *Logger) LogDepth(extraSkip int, level Level, msg string, args ...any) {
	if l.IsEnabledFor(level) {
		l.log(defaultCallDepth+extraSkip, level, nil, msg, args)
	}
}

// WithError returns an adapter that attaches err to the records it emits.
func (l *Logger) WithError(err error) *Adapter {
	return &Adapter{logger: l, err: err}
}

// WithExtra returns an adapter that attaches the given contextual fields to
// the records it emits.
func (l *Logger) WithExtra(extra map[string]any) *Adapter {
	return &Adapter{logger: l, extra: extra}
}

// WithStack returns an adapter that attaches a formatted call stack to the
// records it emits.
func (l *Logger) WithStack() *Adapter {
	return &Adapter{logger: l, stack: true}
}

// defaultCallDepth reaches the user frame when exactly one exported method
// sits between the call site and Logger.log.
const defaultCallDepth = 2

// log builds a record and hands it to the dispatch chain. Level checks have
// already happened.
func (l *Logger) log(calldepth int, level Level, opts *Adapter, msg string, args []any) {
	record := newRecord(l.name, level, msg, args)
	if LogCaller {
		record.setCaller(calldepth)
	}
	if opts != nil {
		record.Err = opts.err
		if len(opts.extra) > 0 {
			record.Extra = opts.extra
		}
		if opts.stack {
			record.Stack = string(debug.Stack())
		}
	}
	l.Handle(record)
}

// Handle applies the logger filters to record and dispatches it to the
// relevant handlers. It is also the entry point for records received from
// another process or rebuilt from an encoded form.
func (l *Logger) Handle(record *Record) {
	l.mu.Lock()
	disabled := l.disabled
	l.mu.Unlock()
	if disabled {
		return
	}

	record, ok := l.apply(record)
	if !ok {
		return
	}
	l.callHandlers(record)
}

// callHandlers passes the record to all the handlers of this logger and of
// its ancestors, honoring propagation and per-handler level gates. When no
// handler is found anywhere, the record goes to LastResort; with LastResort
// unset a one-off warning is printed on stderr.
func (l *Logger) callHandlers(record *Record) {
	found := 0

	globalMu.RLock()
	chain := []*Logger{}
	for c := l; c != nil; {
		chain = append(chain, c)
		c.mu.Lock()
		propagate := c.propagate
		c.mu.Unlock()
		if !propagate {
			break
		}
		c = c.parent
	}
	globalMu.RUnlock()

	for _, c := range chain {
		for _, handler := range c.Handlers() {
			found++
			if record.Level >= handler.Level() {
				_ = handler.Handle(record)
			}
		}
	}

	if found > 0 {
		return
	}
	if LastResort != nil {
		if record.Level >= LastResort.Level() {
			_ = LastResort.Handle(record)
		}
	} else if l.manager != nil && l.manager.noHandlerWarning() {
		fmt.Fprintf(os.Stderr, "No handlers could be found for logger %q\n", l.name)
	}
}
