// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package molog

// Adapter wraps a logger with contextual information: an error, structured
// extra fields, or a request for a call stack. Adapters are immutable; the
// With methods return new values, so an adapter can be stored and shared
// (for example through a context) while call sites refine it further.
type Adapter struct {
	logger *Logger
	err    error
	extra  map[string]any
	stack  bool
}

// NewAdapter returns an adapter around logger carrying the given extra
// fields.
func NewAdapter(logger *Logger, extra map[string]any) *Adapter {
	return &Adapter{logger: logger, extra: extra}
}

// Logger returns the wrapped logger.
func (a *Adapter) Logger() *Logger {
	return a.logger
}

// WithError returns a copy of the adapter carrying err.
func (a *Adapter) WithError(err error) *Adapter {
	clone := *a
	clone.err = err
	return &clone
}

// WithExtra returns a copy of the adapter with extra merged over the fields
// already carried; call-site values take precedence.
func (a *Adapter) WithExtra(extra map[string]any) *Adapter {
	clone := *a
	if len(a.extra) == 0 {
		clone.extra = extra
		return &clone
	}

	merged := make(map[string]any, len(a.extra)+len(extra))
	for key, value := range a.extra {
		merged[key] = value
	}
	for key, value := range extra {
		merged[key] = value
	}
	clone.extra = merged
	return &clone
}

// WithStack returns a copy of the adapter that attaches a call stack to the
// records it emits.
func (a *Adapter) WithStack() *Adapter {
	clone := *a
	clone.stack = true
	return &clone
}

// IsEnabledFor delegates to the wrapped logger.
func (a *Adapter) IsEnabledFor(level Level) bool {
	return a.logger.IsEnabledFor(level)
}

// Debug logs a message with severity DEBUG through the wrapped logger.
func (a *Adapter) Debug(msg string, args ...any) {
	if a.logger.IsEnabledFor(DEBUG) {
		a.logger.log(defaultCallDepth, DEBUG, a, msg, args)
	}
}

// Info logs a message with severity INFO through the wrapped logger.
func (a *Adapter) Info(msg string, args ...any) {
	if a.logger.IsEnabledFor(INFO) {
		a.logger.log(defaultCallDepth, INFO, a, msg, args)
	}
}

// Notice logs a message with severity NOTICE through the wrapped logger.
func (a *Adapter) Notice(msg string, args ...any) {
	if a.logger.IsEnabledFor(NOTICE) {
		a.logger.log(defaultCallDepth, NOTICE, a, msg, args)
	}
}

// Warning logs a message with severity WARNING through the wrapped logger.
func (a *Adapter) Warning(msg string, args ...any) {
	if a.logger.IsEnabledFor(WARNING) {
		a.logger.log(defaultCallDepth, WARNING, a, msg, args)
	}
}

// Error logs a message with severity ERROR through the wrapped logger.
func (a *Adapter) Error(msg string, args ...any) {
	if a.logger.IsEnabledFor(ERROR) {
		a.logger.log(defaultCallDepth, ERROR, a, msg, args)
	}
}

// Critical logs a message with severity CRITICAL through the wrapped logger.
func (a *Adapter) Critical(msg string, args ...any) {
	if a.logger.IsEnabledFor(CRITICAL) {
		a.logger.log(defaultCallDepth, CRITICAL, a, msg, args)
	}
}

// Log logs a message with an arbitrary severity through the wrapped logger.
func (a *Adapter) Log(level Level, msg string, args ...any) {
	if a.logger.IsEnabledFor(level) {
		a.logger.log(defaultCallDepth, level, a, msg, args)
	}
}

// LogDepth is Log for wrappers: extraSkip additional stack frames are skipped
// when resolving the record caller.
func (a *Adapter) LogDepth(extraSkip int, level Level, msg string, args ...any) {
	if a.logger.IsEnabledFor(level) {
		a.logger.log(defaultCallDepth+extraSkip, level, a, msg, args)
	}
}
